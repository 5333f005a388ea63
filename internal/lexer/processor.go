package lexer

import (
	"strings"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	var l *Lexer
	if ctx.Postfix {
		l = NewPostfix(ctx.SourceCode)
	} else {
		l = New(ctx.SourceCode)
	}
	ctx.TokenStream = l.All()
	for _, err := range Errors(ctx.TokenStream) {
		ctx.AddError(err)
	}
	return ctx
}

// Errors reports one LexError per ILLEGAL token.
func Errors(tokens []token.Token) []*diagnostics.DiagnosticError {
	var errs []*diagnostics.DiagnosticError
	for _, tok := range tokens {
		if tok.Type != token.ILLEGAL {
			continue
		}
		reason, _ := tok.Literal.(string)
		code := diagnostics.ErrL001
		switch {
		case reason == "unterminated string":
			code = diagnostics.ErrL002
		case !strings.HasPrefix(reason, "unrecognized"):
			code = diagnostics.ErrL003
		}
		errs = append(errs, diagnostics.NewError(code, tok, "%s", reason))
	}
	return errs
}
