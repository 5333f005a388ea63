package pipeline

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/vm"
)

// PipelineContext carries everything the stages produce for one source.
type PipelineContext struct {
	SourceCode string
	FilePath   string

	// Postfix selects the command-stream text form instead of the
	// structured language.
	Postfix bool

	// HostParams declares the parameters a command stream may read. The
	// structured language declares its own with param statements.
	HostParams []vm.ParamSpec

	TokenStream []token.Token
	AstRoot     ast.Node

	// Info is the bound program: resolutions, inferred types, frame layouts
	// and declared parameters.
	Info *symbols.Info

	// Chunk is set only when every stage finished without errors.
	Chunk *vm.Chunk

	Errors []*diagnostics.DiagnosticError
}

func NewContext(source, file string) *PipelineContext {
	return &PipelineContext{SourceCode: source, FilePath: file}
}

// Failed reports whether any stage recorded an error.
func (ctx *PipelineContext) Failed() bool {
	return len(ctx.Errors) > 0
}

// Err returns the collected diagnostics as one error, or nil.
func (ctx *PipelineContext) Err() error {
	if len(ctx.Errors) == 0 {
		return nil
	}
	list := diagnostics.List(ctx.Errors)
	return list
}

// AddError appends err, stamping the context file path on it.
func (ctx *PipelineContext) AddError(err *diagnostics.DiagnosticError) {
	if err.File == "" {
		err.File = ctx.FilePath
	}
	ctx.Errors = append(ctx.Errors, err)
}
