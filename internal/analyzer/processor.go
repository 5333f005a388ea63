package analyzer

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/pipeline"
)

type AnalyzerProcessor struct{}

func (ap *AnalyzerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Postfix {
		return ctx
	}
	prog, ok := ctx.AstRoot.(*ast.Program)
	if !ok || prog == nil || ctx.Failed() {
		return ctx
	}

	info, errs := New().Analyze(prog)
	ctx.Info = info
	for _, err := range errs {
		ctx.AddError(err)
	}
	return ctx
}
