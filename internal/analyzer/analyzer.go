// Package analyzer binds every identifier of a parsed program and infers a
// static type for every expression. Its output is a symbols.Info the
// compiler lowers to a command stream.
package analyzer

import (
	"errors"
	"fmt"

	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/builtins"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/typesystem"
)

// typeMembers tracks the hidden bindings of one record type definition.
// A binding appears in syms once its declaration has been analyzed.
type typeMembers struct {
	alias  *typesystem.Alias
	record *typesystem.Record
	def    *ast.RecordType
	syms   map[string]*symbols.Symbol
	consts map[string]bool
}

// Analyzer performs semantic analysis on the AST.
type Analyzer struct {
	info  *symbols.Info
	scope *symbols.Scope
	file  string

	errorSet map[string]bool
	errors   diagnostics.List

	// aliases holds the alias created for each type definition while its
	// scope is hoisted.
	aliases map[*ast.TypeDef]*typesystem.Alias
	records map[*typesystem.Record]*typeMembers
	byAlias map[*typesystem.Alias]*typeMembers
}

// New creates an analyzer whose root scope holds the prelude.
func New() *Analyzer {
	prelude := symbols.NewPrelude()
	for _, name := range builtins.Names() {
		t, _ := builtins.TypeOf(name)
		prelude.DefineBuiltin(name, t)
	}
	return &Analyzer{
		info:     symbols.NewInfo(),
		scope:    prelude,
		errorSet: make(map[string]bool),
		aliases:  make(map[*ast.TypeDef]*typesystem.Alias),
		records:  make(map[*typesystem.Record]*typeMembers),
		byAlias:  make(map[*typesystem.Alias]*typeMembers),
	}
}

// Analyze binds and type-checks prog. The returned Info is complete only
// when the list is empty.
func (a *Analyzer) Analyze(prog *ast.Program) (*symbols.Info, diagnostics.List) {
	a.file = prog.File

	frame := symbols.NewFrame("main", prog, nil)
	a.info.Frames[prog] = frame
	a.scope = symbols.NewEnclosedScope(a.scope, frame)

	a.analyzeStatements(prog.Statements)

	a.errors.Sort()
	return a.info, a.errors
}

// addError records a diagnostic once per position and code.
func (a *Analyzer) addError(err *diagnostics.DiagnosticError) {
	key := fmt.Sprintf("%d:%d:%s", err.Token.Line, err.Token.Column, err.Code)
	if a.errorSet[key] {
		return
	}
	a.errorSet[key] = true
	err.File = a.file
	a.errors = append(a.errors, err)
}

func (a *Analyzer) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	a.addError(diagnostics.NewError(code, tok, format, args...))
}

// withScope runs fn in a child scope. A non-nil frame starts a new
// activation record.
func (a *Analyzer) withScope(frame *symbols.Frame, fn func()) {
	outer := a.scope
	a.scope = symbols.NewEnclosedScope(outer, frame)
	defer func() { a.scope = outer }()
	fn()
}

// assignable is the static check behind annotations and call arguments.
// Values of unknown type pass; the VM checks them when they matter.
func assignable(expected, got typesystem.Type) error {
	if got == nil || typesystem.Resolve(got) == typesystem.Any {
		return nil
	}
	return typesystem.Check(expected, got)
}

// assignableExpr is assignable for an expression: a constant that fails
// the static check still passes when the expected type admits its value,
// so refinements such as Range(0, 10) accept literals.
func (a *Analyzer) assignableExpr(expected, got typesystem.Type, e ast.Expression) error {
	err := assignable(expected, got)
	if err == nil {
		return nil
	}
	if v, ok := a.constant(e); ok {
		return typesystem.Explain(expected, v)
	}
	return err
}

// checkCode maps a failed check to its diagnostic code.
func checkCode(err error) diagnostics.ErrorCode {
	var missing *typesystem.MissingFieldError
	var extra *typesystem.ExtraFieldError
	var arity *typesystem.ArityError
	switch {
	case errors.As(err, &missing):
		return diagnostics.ErrT002
	case errors.As(err, &extra):
		return diagnostics.ErrT003
	case errors.As(err, &arity):
		return diagnostics.ErrT004
	}
	return diagnostics.ErrT001
}

func (a *Analyzer) define(id *ast.Identifier, t typesystem.Type) *symbols.Symbol {
	sym, ok := a.scope.Define(id.Value, t, id.Token)
	if !ok {
		a.errorf(diagnostics.ErrB002, id.Token, "%s is already declared in this scope", id.Value)
	}
	a.info.Defs[id] = sym
	return sym
}
