package asm

import (
	"errors"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/token"
)

// AsmProcessor assembles the token stream of a command-stream source.
type AsmProcessor struct{}

func (ap *AsmProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if !ctx.Postfix || ctx.Failed() {
		return ctx
	}
	chunk, err := AssembleTokens(ctx.TokenStream, ctx.HostParams, ctx.FilePath)
	if err != nil {
		var list diagnostics.List
		var single *diagnostics.DiagnosticError
		switch {
		case errors.As(err, &list):
			for _, e := range list {
				ctx.AddError(e)
			}
		case errors.As(err, &single):
			ctx.AddError(single)
		default:
			ctx.AddError(diagnostics.NewError(diagnostics.ErrC005, token.Token{}, "%v", err))
		}
		return ctx
	}
	ctx.Chunk = chunk
	return ctx
}
