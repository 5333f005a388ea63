// Package dvi is the embedding API: compile a program once, then render
// it any number of times, concurrently, with different parameters.
package dvi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/dvi/internal/analyzer"
	"github.com/funvibe/dvi/internal/asm"
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/backend"
	"github.com/funvibe/dvi/internal/compiler"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/lexer"
	"github.com/funvibe/dvi/internal/params"
	"github.com/funvibe/dvi/internal/parser"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/prettyprinter"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/typesystem"
	"github.com/funvibe/dvi/internal/vm"
)

// Program is a compiled source. It is immutable and safe to render from
// several goroutines.
type Program struct {
	File  string
	Chunk *vm.Chunk

	// AST and Info are nil for command streams.
	AST  *ast.Program
	Info *symbols.Info
}

type compileOptions struct {
	postfix    bool
	hostParams []vm.ParamSpec
}

// CompileOption configures Compile.
type CompileOption func(*compileOptions)

// Postfix selects the command-stream text form.
func Postfix() CompileOption {
	return func(o *compileOptions) { o.postfix = true }
}

// HostParams declares the parameters a command stream may read.
func HostParams(specs ...vm.ParamSpec) CompileOption {
	return func(o *compileOptions) { o.hostParams = append(o.hostParams, specs...) }
}

// Stages returns the compile pipeline. Each stage skips itself when it
// does not apply to the selected form.
func Stages() *pipeline.Pipeline {
	return pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&analyzer.AnalyzerProcessor{},
		&compiler.CompilerProcessor{},
		&asm.AsmProcessor{},
	)
}

// Check runs every compile stage and returns the context, diagnostics and
// all, without turning them into an error.
func Check(source, file string, opts ...CompileOption) *pipeline.PipelineContext {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}
	ctx := pipeline.NewContext(source, file)
	ctx.Postfix = o.postfix
	ctx.HostParams = o.hostParams
	ctx = Stages().Run(ctx)
	diagnostics.List(ctx.Errors).Sort()
	return ctx
}

// Compile returns the program or a diagnostics.List.
func Compile(source, file string, opts ...CompileOption) (*Program, error) {
	ctx := Check(source, file, opts...)
	if ctx.Failed() {
		return nil, diagnostics.List(ctx.Errors)
	}
	if ctx.Chunk == nil {
		return nil, fmt.Errorf("%s: no code produced", file)
	}
	p := &Program{File: file, Chunk: ctx.Chunk, Info: ctx.Info}
	if prog, ok := ctx.AstRoot.(*ast.Program); ok {
		p.AST = prog
	}
	return p, nil
}

// IsStream reports whether path names a command-stream file.
func IsStream(path string) bool {
	return strings.EqualFold(filepath.Ext(path), config.StreamFileExt)
}

// CompileFile reads and compiles path, choosing the form from its
// extension.
func CompileFile(path string, opts ...CompileOption) (*Program, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if IsStream(path) {
		opts = append([]CompileOption{Postfix()}, opts...)
	}
	return Compile(string(content), path, opts...)
}

// Params lists the declared render-time parameters.
func (p *Program) Params() []vm.ParamSpec { return p.Chunk.Params }

// Env builds an environment from Go values, checking each against its
// declared type.
func (p *Program) Env(values map[string]interface{}) (vm.Env, error) {
	m := NewMarshaller()
	env := make(vm.Env, len(values))
	for name, v := range values {
		spec, ok := p.Chunk.Param(name)
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		obj, err := m.ToValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		if spec.Type != nil {
			if err := typesystem.Explain(spec.Type, obj); err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}
		}
		env[name] = obj
	}
	return env, nil
}

// LoadParams decodes a YAML environment for this program.
func (p *Program) LoadParams(data []byte, withExamples bool) (vm.Env, error) {
	var opts []params.Option
	if withExamples {
		opts = append(opts, params.WithExamples())
	}
	return params.Load(data, p.Chunk.Params, opts...)
}

// DescribeParams exports the declared parameters as YAML.
func (p *Program) DescribeParams() ([]byte, error) {
	return params.Describe(p.Chunk.Params)
}

// Render runs the program once on b.
func (p *Program) Render(ctx context.Context, b backend.Backend, env vm.Env) (*backend.Result, error) {
	return b.Render(ctx, p.Chunk, env)
}

// Trace renders with the tracing backend.
func (p *Program) Trace(ctx context.Context, env vm.Env) (*backend.Result, error) {
	return p.Render(ctx, backend.NewTracer(), env)
}

// Disassemble prints the compiled command stream.
func (p *Program) Disassemble() string {
	return vm.Disassemble(p.Chunk, p.File)
}

// Format pretty-prints the structured form.
func (p *Program) Format() (string, error) {
	if p.AST == nil {
		return "", fmt.Errorf("%s: command streams have no structured form", p.File)
	}
	return prettyprinter.Print(p.AST), nil
}
