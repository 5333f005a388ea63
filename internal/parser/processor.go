package parser

import (
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Postfix {
		// The command-stream form is assembled directly from tokens.
		return ctx
	}
	if ctx.TokenStream == nil {
		ctx.AddError(diagnostics.NewError(diagnostics.ErrP000, token.Token{}, "parser: token stream is nil"))
		return ctx
	}

	parser := New(ctx.TokenStream, ctx)
	prog := parser.ParseProgram()
	prog.File = ctx.FilePath
	ctx.AstRoot = prog
	return ctx
}
