package compiler_test

import (
	"context"
	"strings"
	"testing"

	"github.com/funvibe/dvi/internal/analyzer"
	"github.com/funvibe/dvi/internal/compiler"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/parser"
	"github.com/funvibe/dvi/internal/surface"
	"github.com/funvibe/dvi/internal/vm"
)

func compile(t *testing.T, src string) (*vm.Chunk, error) {
	t.Helper()
	prog, errs := parser.Parse(src)
	if len(errs) > 0 {
		t.Fatalf("parse errors for %q:\n%s", src, errs.Error())
	}
	info, errs := analyzer.New().Analyze(prog)
	if len(errs) > 0 {
		t.Fatalf("analysis errors for %q:\n%s", src, errs.Error())
	}
	return compiler.Compile(prog, info)
}

func mustCompile(t *testing.T, src string) *vm.Chunk {
	t.Helper()
	chunk, err := compile(t, src)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return chunk
}

func render(t *testing.T, src string, env vm.Env) string {
	t.Helper()
	chunk := mustCompile(t, src)
	rec := surface.NewRecorder()
	if err := vm.New(chunk, rec).Run(context.Background(), env); err != nil {
		t.Fatalf("run %q: %v\n%s", src, err, vm.Disassemble(chunk, "test"))
	}
	return rec.Trace()
}

func TestRenderTraces(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"emit", `emit(1, "two");`, `emit 1 "two"`},
		{"for", "for x in [1, 2, 3] { emit(x) }", "emit 1\nemit 2\nemit 3"},
		{"for with index", `for i, s in ["a", "b"] { emit(i, s) }`, "emit 0 \"a\"\nemit 1 \"b\""},
		{"for over map", "for k, v in {a: 1, b: 2} { emit(k, v) }", "emit \"a\" 1\nemit \"b\" 2"},
		{"for over map values", "for v in {a: 1, b: 2} { emit(v) }", "emit 1\nemit 2"},
		{"empty for", "for x in range(0) { emit(x) }", ""},
		{"drawing effects", "let r = 5; circle <- (0, 0), r; setsource <- #ff0000; fill <- ;",
			"circle (0,0) 5\nsetsource #ff0000\nfill"},
		{"host effect", `glow <- 2, "soft";`, `glow 2 "soft"`},
		{"arithmetic", "emit(1 + 2 * 3, 7 / 2, 2 ^ 3);", "emit 7 3.5 8"},
		{"point arithmetic", "let p = (1, 2) + (3, 4) * 2; emit(p.x, p.y);", "emit 7.0 10.0"},
		{"if", "for x in [1, 5] { if (x < 3) { emit(\"small\") } else { emit(\"big\") }; }",
			"emit \"small\"\nemit \"big\""},
		{"elif", "let x = 2; emit(if (x == 1) { \"one\" } elif (x == 2) { \"two\" } else { \"many\" });", `emit "two"`},
		{"short circuit", "let z = 0; emit(false and 1 / z > 0, true or 1 / z > 0);", "emit false true"},
		{"block value", "emit({ let a = 2; a * 3 });", "emit 6"},
		{"function", "func sq(x: Float) -> Float { x * x } emit(sq(3));", "emit 9"},
		{"proc", "proc dot(p: Point) { circle <- p, 1; fill <- ; } dot((2, 3));", "circle (2,3) 1\nfill"},
		{"closure capture", "let k = 10; let add = fn (x) { x + k }; emit(add(1));", "emit 11"},
		{"nested capture", "let k = 2; func outer() -> Float { let f = fn () { k * 3 }; f() } emit(outer());", "emit 6"},
		{"loop captures", "let s = 10; for x in [1, 2] { emit(x + s) }", "emit 11\nemit 12"},
		{"builtins", "emit(max(1, 4), len([1, 2]), sqrt(16));", "emit 4 2 4.0"},
		{"builtin value", "let f = abs; emit(f(-3));", "emit 3"},
		{"index", `let m = {a: 1}; let xs = [5, 6]; emit(m["a"], xs[1]);`, "emit 1 6"},
		{"record methods", `type Pt = {
	field x: Float;
	field y: Float;
	const unit = 1;
	method sum() -> Float { self.x + self.y }
	method scaled(k: Float) -> Float { self.sum() * k }
	static make(v: Float) -> Pt { {x: v, y: Pt.unit} }
};
let p = Pt.make(4);
emit(p.sum(), p.scaled(2));`, "emit 5 10"},
		{"method proc", `type C = { field r: Float; method draw() { circle <- (0, 0), self.r; } };
let c: C = {r: 3};
c.draw();`, "circle (0,0) 3"},
		{"currentpoint", "moveto <- (1, 2); currentpoint <- ; stroke <- ;", "moveto (1,2)\nstroke"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src, nil); got != tt.want {
				t.Errorf("trace:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestParametersFlowIntoTheChunk(t *testing.T) {
	src := `param size: Range(0, 10) = 4, "radius";
circle <- (0, 0), size;
fill <- ;`
	chunk := mustCompile(t, src)
	spec, ok := chunk.Param("size")
	if !ok {
		t.Fatalf("size not declared in chunk")
	}
	if spec.Doc != "radius" || spec.Example.Inspect() != "4" || spec.Line != 1 {
		t.Errorf("unexpected param spec %+v", spec)
	}

	rec := surface.NewRecorder()
	err := vm.New(chunk, rec).Run(context.Background(), vm.Env{"size": &object.Integer{Value: 7}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Trace() != "circle (0,0) 7\nfill" {
		t.Errorf("trace:\n%s", rec.Trace())
	}

	err = vm.New(chunk, surface.NewRecorder()).Run(context.Background(), vm.Env{"size": &object.Integer{Value: 70}})
	if err == nil || !strings.Contains(err.Error(), "R007") {
		t.Errorf("expected an R007 fault, got %v", err)
	}
}

func TestEffectArity(t *testing.T) {
	_, err := compile(t, "circle <- (0, 0);")
	if err == nil {
		t.Fatalf("expected an error")
	}
	list, ok := err.(diagnostics.List)
	if !ok || !list.Has(diagnostics.ErrC004) {
		t.Errorf("expected C004, got %v", err)
	}
}

func TestStrokeCompilesButFaults(t *testing.T) {
	chunk := mustCompile(t, "stroke <- ;")
	err := vm.New(chunk, surface.NewRecorder()).Run(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "RuntimeFault[R002]") {
		t.Errorf("expected an R002 fault, got %v", err)
	}
}

func TestDivisionByZeroIsARuntimeFault(t *testing.T) {
	chunk := mustCompile(t, "let z = 0;\nemit(1 / z);")
	err := vm.New(chunk, surface.NewRecorder()).Run(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "2:") || !strings.Contains(err.Error(), "R003") {
		t.Errorf("expected an R003 fault on line 2, got %v", err)
	}
}

func TestCompiledRendersAreDeterministic(t *testing.T) {
	src := "for i in range(4) { moveto <- (i, i * 2); } stroke <- ;"
	if render(t, src, nil) != render(t, src, nil) {
		t.Errorf("renders differ")
	}
}

func TestLayoutSkipsFunctionBodies(t *testing.T) {
	chunk := mustCompile(t, "func f() -> Int { 1 } emit(f());")
	if len(chunk.Protos) != 2 {
		t.Fatalf("expected main and f, got %d protos", len(chunk.Protos))
	}
	f := chunk.Protos[1]
	if chunk.Code[f.Start-1].Op != vm.OP_JUMP || chunk.Code[f.Start-1].Arg != f.End {
		t.Errorf("function body should be skipped by a jump to %d", f.End)
	}
	if chunk.Code[f.End-1].Op != vm.OP_RETURN {
		t.Errorf("function body should end with RETURN, got %s", chunk.Code[f.End-1].Op)
	}
	if chunk.Code[chunk.Len()-1].Op != vm.OP_HALT {
		t.Errorf("program should end with HALT")
	}
}
