package compiler

import (
	"errors"

	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/token"
)

type CompilerProcessor struct{}

func (cp *CompilerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Postfix || ctx.Failed() || ctx.Info == nil {
		return ctx
	}
	prog, ok := ctx.AstRoot.(*ast.Program)
	if !ok || prog == nil {
		return ctx
	}
	if prog.File == "" {
		prog.File = ctx.FilePath
	}

	chunk, err := Compile(prog, ctx.Info)
	if err != nil {
		addErrors(ctx, err)
		return ctx
	}
	ctx.Chunk = chunk
	return ctx
}

// addErrors records err on ctx, keeping individual diagnostics when it is a
// list of them.
func addErrors(ctx *pipeline.PipelineContext, err error) {
	var list diagnostics.List
	if errors.As(err, &list) {
		for _, e := range list {
			ctx.AddError(e)
		}
		return
	}
	var single *diagnostics.DiagnosticError
	if errors.As(err, &single) {
		ctx.AddError(single)
		return
	}
	ctx.AddError(diagnostics.NewError(diagnostics.ErrC005, token.Token{}, "%v", err))
}
