package backend

import (
	"context"
	"errors"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/vm"
)

// ExecutionProcessor is the last pipeline stage: it renders the chunk the
// earlier stages produced. Result holds the output of the last run.
type ExecutionProcessor struct {
	Backend Backend
	Env     vm.Env
	Context context.Context

	Result *Result
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(b Backend, env vm.Env) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b, Env: env}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.Chunk == nil || ctx.Failed() {
		return ctx
	}
	run := p.Context
	if run == nil {
		run = context.Background()
	}

	result, err := p.Backend.Render(run, ctx.Chunk, p.Env)
	p.Result = result
	if err != nil {
		ctx.AddError(Diagnostic(err))
	}
	return ctx
}

// Diagnostic converts a render error to a located diagnostic so that it is
// reported like the compile-time ones.
func Diagnostic(err error) *diagnostics.DiagnosticError {
	var fault *vm.Fault
	if errors.As(err, &fault) {
		d := diagnostics.NewError(fault.Code, token.Token{Line: fault.Line, Column: fault.Column}, "%s", fault.Message)
		d.File = fault.File
		return d
	}
	return diagnostics.NewError(diagnostics.ErrR009, token.Token{}, "render aborted: %v", err)
}
