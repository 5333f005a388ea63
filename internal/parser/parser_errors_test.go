package parser_test

import (
	"strings"
	"testing"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/lexer"
	"github.com/funvibe/dvi/internal/parser"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/token"
)

// parseWithErrors runs the lexer+parser and returns all diagnostic errors.
func parseWithErrors(input string) []*diagnostics.DiagnosticError {
	ctx := &pipeline.PipelineContext{SourceCode: input}
	lp := &lexer.LexerProcessor{}
	ctx = lp.Process(ctx)
	pp := &parser.ParserProcessor{}
	ctx = pp.Process(ctx)
	return ctx.Errors
}

// expectError asserts an error with the given code is among the results.
func expectError(t *testing.T, input string, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	errs := parseWithErrors(input)
	if len(errs) == 0 {
		t.Fatalf("expected error %s, but got none\ninput: %s", code, input)
	}
	for _, e := range errs {
		if e.Code == code {
			return e
		}
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	t.Fatalf("expected error %s, got:\n%s\ninput: %s", code, strings.Join(msgs, "\n"), input)
	return nil
}

// ---------------------------------------------------------------------------
// P001: Unexpected token
// ---------------------------------------------------------------------------

func TestP001_LetWithoutName(t *testing.T) {
	err := expectError(t, "let = 5;", diagnostics.ErrP001)
	if err.Line() != 1 || err.Column() != 5 {
		t.Errorf("expected 1:5, got %d:%d", err.Line(), err.Column())
	}
	if err.Kind() != diagnostics.KindSyntax {
		t.Errorf("expected SyntaxError, got %s", err.Kind())
	}
}

func TestP001_MissingSemicolon(t *testing.T) {
	expectError(t, "let a = 1 let b = 2;", diagnostics.ErrP001)
}

func TestP001_UnterminatedBlock(t *testing.T) {
	expectError(t, "proc p() { emit(1);", diagnostics.ErrP001)
}

func TestP001_FuncNeedsReturnType(t *testing.T) {
	expectError(t, "func f(x: Int) { x }", diagnostics.ErrP001)
}

// ---------------------------------------------------------------------------
// P002: No prefix parse function
// ---------------------------------------------------------------------------

func TestP002_MissingValue(t *testing.T) {
	expectError(t, "let x = ;", diagnostics.ErrP002)
}

func TestP002_OperatorWithoutLeft(t *testing.T) {
	expectError(t, "* 2;", diagnostics.ErrP002)
}

// ---------------------------------------------------------------------------
// P003: Block expression as operand
// ---------------------------------------------------------------------------

func TestP003_BlockOperand(t *testing.T) {
	for _, input := range []string{
		"let x = 1 + { 2 };",
		"let x = { 1 } * 2;",
		"let y = if (a) { 1 } else { 2 } + 1;",
		"let z = -{ 1 };",
		"let w = (if (a) { 1 });",
	} {
		expectError(t, input, diagnostics.ErrP003)
	}
}

// ---------------------------------------------------------------------------
// P004: Illegal token reaching the parser
// ---------------------------------------------------------------------------

func TestP004_IllegalToken(t *testing.T) {
	ctx := pipeline.NewContext("", "")
	tokens := []token.Token{
		{Type: token.ILLEGAL, Lexeme: "?", Literal: "stray", Line: 1, Column: 1},
		{Type: token.SEMICOLON, Lexeme: ";", Line: 1, Column: 2},
		{Type: token.EOF, Line: 1, Column: 3},
	}
	parser.New(tokens, ctx).ParseProgram()
	if !diagnostics.List(ctx.Errors).Has(diagnostics.ErrP004) {
		t.Fatalf("expected P004, got %v", ctx.Errors)
	}
}

func TestIllegalTokenReportedOnce(t *testing.T) {
	errs := parseWithErrors("let x = $;")
	count := 0
	for _, e := range errs {
		if e.Line() == 1 && e.Column() == 9 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one diagnostic at 1:9, got %d: %v", count, errs)
	}
}

// ---------------------------------------------------------------------------
// P005: Invalid type expression
// ---------------------------------------------------------------------------

func TestP005_InvalidTypes(t *testing.T) {
	for _, input := range []string{
		"type T = 5;",
		"type R = Range(3, 1);",
		"type L = List Int;",
		"type S = Step(0);",
		"type N = Not(Int, Str);",
		"type X = { weird x: Int };",
		"type U = Union{};",
	} {
		expectError(t, input, diagnostics.ErrP005)
	}
}

// ---------------------------------------------------------------------------
// P006: Nesting too deep
// ---------------------------------------------------------------------------

func TestP006_DeepNesting(t *testing.T) {
	input := "let x = " + strings.Repeat("(", 300) + "1" + strings.Repeat(")", 300) + ";"
	expectError(t, input, diagnostics.ErrP006)
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecoveryCollectsAllErrors(t *testing.T) {
	prog, errs := parser.Parse("let = 1; let y = ; let z = 3;")
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 good statement, got %d", len(prog.Statements))
	}
}

func TestRecoveryInsideBlock(t *testing.T) {
	_, errs := parser.Parse("proc p() { let = 1; emit(2) } let ok = 1;")
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
	}
}
