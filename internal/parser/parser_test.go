package parser_test

import (
	"strings"
	"testing"

	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/parser"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, errs := parser.Parse(input)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors for %q:\n%s", input, errs.Error())
	}
	return prog
}

func dumpStatements(prog *ast.Program) string {
	parts := make([]string, len(prog.Statements))
	for i, s := range prog.Statements {
		parts[i] = ast.Dump(s)
	}
	return strings.Join(parts, " ")
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3;", "(+ 1 (* 2 3))"},
		{"-f(x);", "(- (call f x))"},
		{"a ^ b ^ c;", "(^ a (^ b c))"},
		{"-a ^ 2;", "(^ (- a) 2)"},
		{"a < b and c > d;", "(and (< a b) (> c d))"},
		{"not a or b;", "(or (not a) b)"},
		{"p.x + q[0];", "(+ (. p x) ([] q 0))"},
		{"f(x).y;", "(. (call f x) y)"},
		{"1 - -2;", "(- 1 -2)"},
		{"x-1;", "(- x 1)"},
		{"(1 + 2) * 3;", "(* (+ 1 2) 3)"},
		{"a / b * c;", "(* (/ a b) c)"},
		{"a == b < c;", "(< (== a b) c)"},
		{"f(g(1), 2)(3);", "(call (call f (call g 1) 2) 3)"},
	}

	for _, tt := range tests {
		prog := parse(t, tt.input)
		if got := dumpStatements(prog); got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(1, 2);", "(tuple 1 2)"},
		{"();", "(tuple)"},
		{`[1, 2.5, "s", #ff0000, true];`, `(list 1 2.5 "s" #ff0000ff true)`},
		{`{x: 1, "y z": 2};`, `(map "x":1 "y z":2)`},
		{"{:};", "(map)"},
		{"[{ 1 }, if (a) { 2 }];", "(list (block => 1) (if [a (block => 2)]))"},
		{"fn (x: Int) -> Int { x * 2 };", "(fn (x:Int) Int (block => (* x 2)))"},
		{"fn () { };", "(fn () _ (block))"},
		{"f(1) { emit(2) };", "(call* f 1 (fn () _ (block => (call emit 2))))"},
	}

	for _, tt := range tests {
		prog := parse(t, tt.input)
		if got := dumpStatements(prog); got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let r = 5;", "(let r _ 5)"},
		{"let r: Float = 5;", "(let r Float 5)"},
		{"func sq(x: Float) -> Float { x * x }", "(func sq (x:Float) Float (block => (* x x)))"},
		{"proc dot(p: Point) { circle <- p, 1; fill <- ; }", "(proc dot (p:Point) (block (<- circle p 1) (<- fill)))"},
		{"type Size = Range(0, 10);", "(type Size (Range 0 10))"},
		{`param size: Size = 4, "dot radius";`, `(param size Size 4 "dot radius")`},
		{"param t: Float = 0;", `(param t Float 0 "")`},
		{"for x in [1, 2, 3] { emit(x) }", "(for x (list 1 2 3) (block => (call emit x)))"},
		{"for k, v in m { emit(k, v); }", "(for k,v m (block (call emit k v)))"},
		{"for x in f(3) { emit(x) }", "(for x (call f 3) (block => (call emit x)))"},
		{"if (a) { 1 } elif (b) { 2 } else { 3 }", "(if [a (block => 1)] [b (block => 2)] else (block => 3))"},
		{"let y = { let z = 1; z + 1 };", "(let y _ (block (let z _ 1) => (+ z 1)))"},
		{"let y = if (c) { 1 } else { 2 };", "(let y _ (if [c (block => 1)] else (block => 2)))"},
		{"{ if (c) { 1 }; 2 }", "(block (if [c (block => 1)]) => 2)"},
		{"emit <- 1, \"two\";", `(<- emit 1 "two")`},
	}

	for _, tt := range tests {
		prog := parse(t, tt.input)
		if got := dumpStatements(prog); got != tt.expected {
			t.Errorf("%q:\nexpected %s\n     got %s", tt.input, tt.expected, got)
		}
	}
}

func TestTypeExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"type T = List of Map of Int;", "(type T (List (Map Int)))"},
		{"type T = (Int, Str);", "(type T (Tuple Int Str))"},
		{"type T = (Int);", "(type T Int)"},
		{"type F = Func(Int, Float) -> Bool;", "(type F (Func Int Float -> Bool))"},
		{"type P = Proc(Point);", "(type P (Proc Point))"},
		{`type J = Union{"bevel", "miter"};`, `(type J (Union "bevel" "miter"))`},
		{"type D = Diff(Float, Int);", "(type D (Diff Float Int))"},
		{"type S = SymDiff(Float, Int);", "(type S (SymDiff Float Int))"},
		{"type N = Not(Str);", "(type N (Not Str))"},
		{"type Q = Inter{Float, Step(0.5)};", "(type Q (Inter Float (Step 0.5)))"},
		{"type R = Range(-1, 1.5);", "(type R (Range -1 1.5))"},
		{
			"type Pt = { field x: Float; field y: Float; const zero = 0; " +
				"method len() -> Float { sqrt(self.x * self.x) } static origin() -> Pt { {x: 0, y: 0} } }",
			`(type Pt (Record (field x Float) (field y Float) (const zero 0) ` +
				`(method len () Float (block => (call sqrt (* (. self x) (. self x))))) ` +
				`(static origin () Pt (block => (map "x":0 "y":0)))))`,
		},
	}

	for _, tt := range tests {
		prog := parse(t, tt.input)
		if got := dumpStatements(prog); got != tt.expected {
			t.Errorf("%q:\nexpected %s\n     got %s", tt.input, tt.expected, got)
		}
	}
}

func TestTrailingBlockIsCallArgument(t *testing.T) {
	prog := parse(t, "group(1) { circle <- (0, 0), 1; };")
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected *ast.CallExpression, got %T", stmt.Expression)
	}
	if !call.Trailing || len(call.Arguments) != 2 {
		t.Fatalf("expected trailing call with 2 args, got trailing=%v args=%d", call.Trailing, len(call.Arguments))
	}
	lambda, ok := call.Arguments[1].(*ast.LambdaExpression)
	if !ok || len(lambda.Params) != 0 {
		t.Fatalf("expected zero-arg lambda, got %T", call.Arguments[1])
	}
}

func TestTrailingBlockEndsStatement(t *testing.T) {
	prog := parse(t, `group("g") { fill <- ; }
let a = group(1) { paint <- ; }
fill <- ;`)
	if len(prog.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(prog.Statements))
	}
	if _, ok := prog.Statements[0].(*ast.ExpressionStatement); !ok {
		t.Errorf("expected an expression statement first, got %T", prog.Statements[0])
	}
	if _, ok := prog.Statements[1].(*ast.LetStatement); !ok {
		t.Errorf("expected a let statement second, got %T", prog.Statements[1])
	}
	if _, ok := prog.Statements[2].(*ast.EffectStatement); !ok {
		t.Errorf("expected an effect statement last, got %T", prog.Statements[2])
	}
}

func TestProgramFile(t *testing.T) {
	prog := parse(t, "let a = 1; let b = 2;")
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	let := prog.Statements[1].(*ast.LetStatement)
	if let.Token.Line != 1 || let.Token.Column != 12 {
		t.Errorf("expected let at 1:12, got %d:%d", let.Token.Line, let.Token.Column)
	}
}
