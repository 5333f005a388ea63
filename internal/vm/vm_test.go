package vm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/surface"
	"github.com/funvibe/dvi/internal/typesystem"
)

// program assembles a chunk by hand. Every instruction sits on line 1
// unless at() moves it.
type program struct {
	c    *Chunk
	line int
}

func newProgram() *program {
	c := NewChunk()
	c.File = "test.dvs"
	c.AddProto(&Proto{Name: "main"})
	return &program{c: c, line: 1}
}

func (p *program) at(line int) *program {
	p.line = line
	return p
}

func (p *program) op(op Opcode, arg ...int) int {
	a := 0
	if len(arg) > 0 {
		a = arg[0]
	}
	return p.c.Emit(op, a, p.line, 1)
}

func (p *program) constant(o object.Object) {
	p.op(OP_CONST, p.c.AddConstant(o))
}

// block emits a quoted block around body and pushes its closure.
func (p *program) block(body func()) {
	jump := p.op(OP_JUMP)
	proto := &Proto{Name: "block", Start: p.c.Len(), Quote: true}
	body()
	p.op(OP_END)
	proto.End = p.c.Len()
	p.c.Patch(jump, p.c.Len())
	p.op(OP_CLOSURE, p.c.AddProto(proto))
}

func (p *program) done() *Chunk {
	p.op(OP_HALT)
	p.c.Protos[0].End = p.c.Len()
	return p.c
}

func num(v float64) object.Object { return &object.Float{Value: v} }
func integer(v int64) object.Object { return &object.Integer{Value: v} }
func pt(x, y float64) object.Object { return &object.Point{X: x, Y: y} }
func str(s string) object.Object { return &object.String{Value: s} }

func list(elems ...object.Object) object.Object { return &object.List{Elements: elems} }

func run(t *testing.T, chunk *Chunk, env Env) (*surface.Recorder, *VM, error) {
	t.Helper()
	rec := surface.NewRecorder()
	m := New(chunk, rec)
	err := m.Run(context.Background(), env)
	return rec, m, err
}

func mustRun(t *testing.T, chunk *Chunk, env Env) (*surface.Recorder, *VM) {
	t.Helper()
	rec, m, err := run(t, chunk, env)
	if err != nil {
		t.Fatalf("unexpected fault: %v\n%s", err, Disassemble(chunk, "failing"))
	}
	return rec, m
}

func expectFault(t *testing.T, err error, code diagnostics.ErrorCode) *Fault {
	t.Helper()
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected RuntimeFault %s, got %v", code, err)
	}
	if f.Code != code {
		t.Fatalf("expected %s, got %s: %s", code, f.Code, f.Message)
	}
	return f
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		a, b object.Object
		op   Opcode
		want string
	}{
		{integer(1), integer(2), OP_ADD, "3"},
		{integer(7), integer(2), OP_SUB, "5"},
		{integer(3), integer(4), OP_MUL, "12"},
		{integer(1), integer(2), OP_DIV, "0.5"},
		{integer(4), integer(2), OP_DIV, "2.0"},
		{integer(2), integer(3), OP_POW, "8"},
		{integer(2), integer(-1), OP_POW, "0.5"},
		{num(1.5), integer(1), OP_ADD, "2.5"},
		{pt(1, 2), pt(3, 4), OP_ADD, "(4,6)"},
		{pt(1, 2), pt(3, 4), OP_SUB, "(-2,-2)"},
		{pt(1, 2), integer(2), OP_MUL, "(2,4)"},
		{integer(2), pt(1, 2), OP_MUL, "(2,4)"},
		{pt(2, 4), integer(2), OP_DIV, "(1,2)"},
		{str("a"), str("b"), OP_ADD, `"ab"`},
		{integer(1), integer(2), OP_LT, "true"},
		{integer(1), num(1), OP_EQ, "true"},
		{str("b"), str("a"), OP_GT, "true"},
		{integer(2), integer(2), OP_LE, "true"},
		{integer(1), integer(2), OP_GE, "false"},
		{object.True, object.False, OP_AND, "false"},
		{object.True, object.False, OP_OR, "true"},
		{object.True, object.True, OP_XOR, "false"},
	}

	for _, tt := range tests {
		p := newProgram()
		p.constant(tt.a)
		p.constant(tt.b)
		p.op(tt.op)
		_, m := mustRun(t, p.done(), nil)
		stack := m.Stack()
		if len(stack) != 1 {
			t.Fatalf("%s %s %s: stack has %d values", tt.a.Inspect(), tt.op, tt.b.Inspect(), len(stack))
		}
		if got := stack[0].Inspect(); got != tt.want {
			t.Errorf("%s %s %s = %s, want %s", tt.a.Inspect(), tt.op, tt.b.Inspect(), got, tt.want)
		}
	}
}

func TestUnaryAndStackWords(t *testing.T) {
	p := newProgram()
	p.constant(integer(1))
	p.constant(pt(1, -2))
	p.op(OP_NEG)
	p.op(OP_SWAP)
	p.op(OP_DUP)
	p.op(OP_POP)
	p.constant(object.False)
	p.op(OP_NOT)
	_, m := mustRun(t, p.done(), nil)

	var got []string
	for _, v := range m.Stack() {
		got = append(got, v.Inspect())
	}
	if strings.Join(got, " ") != "(-1,2) 1 true" {
		t.Errorf("stack = %v", got)
	}
}

func TestDivisionByZero(t *testing.T) {
	p := newProgram()
	p.constant(integer(1))
	p.constant(integer(0))
	p.at(4).op(OP_DIV)
	_, _, err := run(t, p.done(), nil)
	f := expectFault(t, err, diagnostics.ErrR003)
	if f.Line != 4 {
		t.Errorf("fault line = %d, want 4", f.Line)
	}
	if !strings.HasPrefix(f.Error(), "test.dvs:4:1: RuntimeFault[R003]") {
		t.Errorf("unexpected rendering %q", f.Error())
	}
}

func TestUnderflow(t *testing.T) {
	p := newProgram()
	p.constant(integer(1))
	p.op(OP_ADD)
	_, _, err := run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR001)
}

func TestPathAndStroke(t *testing.T) {
	p := newProgram()
	p.constant(pt(0, 0))
	p.op(OP_MOVETO)
	p.constant(pt(10, 0))
	p.op(OP_LINETO)
	p.constant(integer(2))
	p.op(OP_SETLINEWIDTH)
	p.constant(str("round"))
	p.op(OP_SETLINECAP)
	p.op(OP_STROKE)
	rec, m := mustRun(t, p.done(), nil)

	want := "moveto (0,0)\nlineto (10,0)\nsetlinewidth 2\nsetlinecap round\nstroke"
	if got := rec.Trace(); got != want {
		t.Errorf("trace:\n%s\nwant:\n%s", got, want)
	}
	if len(m.Context().Path) != 0 {
		t.Errorf("stroke should clear the path")
	}
	if m.Context().LineWidth != 2 || m.Context().Cap != "round" {
		t.Errorf("style not recorded: %+v", m.Context())
	}
}

func TestTerminalsNeedAPath(t *testing.T) {
	for _, op := range []Opcode{OP_STROKE, OP_FILL, OP_CLIP} {
		p := newProgram()
		p.at(2).op(op)
		rec, _, err := run(t, p.done(), nil)
		f := expectFault(t, err, diagnostics.ErrR002)
		if f.Line != 2 {
			t.Errorf("%s: fault line = %d", op, f.Line)
		}
		if len(rec.Calls) != 0 {
			t.Errorf("%s: surface was called: %s", op, rec.Trace())
		}
	}
}

func TestLineToNeedsCurrentPoint(t *testing.T) {
	p := newProgram()
	p.constant(pt(1, 1))
	p.op(OP_LINETO)
	_, _, err := run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR002)
}

func TestBadLineJoin(t *testing.T) {
	p := newProgram()
	p.constant(str("wobbly"))
	p.op(OP_SETLINEJOIN)
	_, _, err := run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR006)
}

func TestCurrentPointIsUserSpace(t *testing.T) {
	p := newProgram()
	p.constant(pt(10, 20))
	p.op(OP_TRANSLATE)
	p.constant(integer(2))
	p.constant(integer(2))
	p.op(OP_SCALE)
	p.constant(pt(1, 1))
	p.op(OP_MOVETO)
	p.op(OP_CURRENTPOINT)
	_, m := mustRun(t, p.done(), nil)

	stack := m.Stack()
	if len(stack) != 1 || stack[0].Inspect() != "(1,1)" {
		t.Fatalf("currentpoint = %v", stack)
	}
	if cur := *m.Context().Current; cur.X != 12 || cur.Y != 22 {
		t.Errorf("device point = %v, want (12,22)", cur)
	}
}

func TestRestoreWithoutSave(t *testing.T) {
	p := newProgram()
	p.op(OP_RESTORE)
	_, _, err := run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR008)
}

func TestSaveRestoresContext(t *testing.T) {
	p := newProgram()
	p.op(OP_SAVE)
	p.constant(integer(5))
	p.op(OP_SETLINEWIDTH)
	p.op(OP_RESTORE)
	_, m := mustRun(t, p.done(), nil)
	if m.Context().LineWidth != 1 {
		t.Errorf("line width after restore = %v", m.Context().LineWidth)
	}
}

func TestBlockUnwindsOpenSaves(t *testing.T) {
	p := newProgram()
	p.block(func() {
		p.op(OP_SAVE)
		p.constant(pt(5, 5))
		p.op(OP_TRANSLATE)
	})
	p.op(OP_EXEC)
	rec, m := mustRun(t, p.done(), nil)

	if got := rec.Trace(); got != "save\ntranslate (5,5)\nrestore" {
		t.Errorf("trace:\n%s", got)
	}
	if m.Context().Transform != Identity {
		t.Errorf("transform leaked out of block: %v", m.Context().Transform)
	}
}

func TestBlockCannotRestoreOuterSave(t *testing.T) {
	p := newProgram()
	p.op(OP_SAVE)
	p.block(func() {
		p.op(OP_RESTORE)
	})
	p.op(OP_EXEC)
	_, _, err := run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR008)
}

func TestRepeat(t *testing.T) {
	emit := func(p *program) {
		p.op(OP_LIST, 1)
		p.op(OP_EFFECT, p.c.AddName("emit"))
	}

	tests := []struct {
		coll object.Object
		want string
	}{
		{list(integer(1), integer(2), integer(3)), "emit 1\nemit 2\nemit 3"},
		{list(), ""},
		{&object.Tuple{Elements: []object.Object{str("a"), str("b")}}, "emit \"a\"\nemit \"b\""},
	}

	for _, tt := range tests {
		p := newProgram()
		p.constant(tt.coll)
		p.block(func() { emit(p) })
		p.op(OP_REPEAT)
		rec, m := mustRun(t, p.done(), nil)
		if got := rec.Trace(); got != tt.want {
			t.Errorf("repeat %s:\n%s\nwant:\n%s", tt.coll.Inspect(), got, tt.want)
		}
		if n := len(m.Stack()); n != 0 {
			t.Errorf("repeat %s left %d values", tt.coll.Inspect(), n)
		}
	}
}

func TestRepeatOverMapPushesKeyAndValue(t *testing.T) {
	m := object.NewMap()
	m.Set("a", integer(1))
	m.Set("b", integer(2))

	p := newProgram()
	p.constant(m)
	p.block(func() {
		p.op(OP_LIST, 2)
		p.op(OP_EFFECT, p.c.AddName("pair"))
	})
	p.op(OP_REPEAT)
	rec, _ := mustRun(t, p.done(), nil)
	if got := rec.Trace(); got != "pair \"a\" 1\npair \"b\" 2" {
		t.Errorf("trace:\n%s", got)
	}
}

func TestRepeatRejectsNonCollection(t *testing.T) {
	p := newProgram()
	p.constant(integer(3))
	p.block(func() { p.op(OP_POP) })
	p.op(OP_REPEAT)
	_, _, err := run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR005)

	p = newProgram()
	p.constant(list(integer(1)))
	p.constant(integer(3))
	p.op(OP_REPEAT)
	_, _, err = run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR005)
}

func TestIfElse(t *testing.T) {
	for _, cond := range []bool{true, false} {
		p := newProgram()
		p.constant(object.Bool(cond))
		p.block(func() { p.op(OP_PAINT) })
		p.block(func() { p.op(OP_NEWPATH) })
		p.op(OP_IFELSE)
		rec, _ := mustRun(t, p.done(), nil)
		want := "newpath"
		if cond {
			want = "paint"
		}
		if got := rec.Trace(); got != want {
			t.Errorf("ifelse %v: %q, want %q", cond, got, want)
		}
	}
}

func TestFunctionCall(t *testing.T) {
	p := newProgram()
	jump := p.op(OP_JUMP)
	fn := &Proto{Name: "add", Start: p.c.Len(), Arity: 2, NumLocals: 2}
	p.op(OP_GET_LOCAL, 0)
	p.op(OP_GET_LOCAL, 1)
	p.op(OP_ADD)
	p.op(OP_RETURN)
	fn.End = p.c.Len()
	p.c.Patch(jump, p.c.Len())
	p.op(OP_CLOSURE, p.c.AddProto(fn))
	p.constant(integer(2))
	p.constant(integer(3))
	p.op(OP_CALL, 2)
	_, m := mustRun(t, p.done(), nil)

	stack := m.Stack()
	if len(stack) != 1 || stack[0].Inspect() != "5" {
		t.Errorf("stack = %v", stack)
	}
}

func TestSelection(t *testing.T) {
	rec := object.NewMap()
	rec.Set("w", integer(4))

	p := newProgram()
	p.constant(rec)
	p.op(OP_FIELD, p.c.AddName("w"))
	p.constant(pt(3, 9))
	p.op(OP_FIELD, p.c.AddName("y"))
	p.constant(list(str("a"), str("b")))
	p.constant(integer(1))
	p.op(OP_INDEX)
	_, m := mustRun(t, p.done(), nil)

	var got []string
	for _, v := range m.Stack() {
		got = append(got, v.Inspect())
	}
	if strings.Join(got, " ") != `4 9.0 "b"` {
		t.Errorf("stack = %v", got)
	}

	p = newProgram()
	p.constant(list(integer(1)))
	p.constant(integer(5))
	p.op(OP_INDEX)
	_, _, err := run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR004)

	p = newProgram()
	p.constant(rec)
	p.op(OP_FIELD, p.c.AddName("missing"))
	_, _, err = run(t, p.done(), nil)
	expectFault(t, err, diagnostics.ErrR004)
}

func TestParameters(t *testing.T) {
	build := func() *Chunk {
		p := newProgram()
		p.c.Params = []ParamSpec{{Name: "r", Type: typesystem.Float, Line: 1, Column: 7}}
		p.op(OP_GET_PARAM, p.c.AddName("r"))
		return p.done()
	}

	_, _, err := run(t, build(), Env{})
	f := expectFault(t, err, diagnostics.ErrR007)
	if f.Column != 7 {
		t.Errorf("fault column = %d, want the declaration", f.Column)
	}

	_, _, err = run(t, build(), Env{"r": str("big")})
	expectFault(t, err, diagnostics.ErrR007)

	_, m := mustRun(t, build(), Env{"r": integer(5)})
	if s := m.Stack(); len(s) != 1 || s[0].Inspect() != "5" {
		t.Errorf("stack = %v", s)
	}
}

func TestDeterministic(t *testing.T) {
	p := newProgram()
	p.constant(list(integer(1), integer(2), integer(3)))
	p.block(func() {
		p.op(OP_SET_LOCAL, 0)
		p.op(OP_GET_LOCAL, 0)
		p.op(OP_GET_LOCAL, 0)
		p.op(OP_POINT)
		p.op(OP_MOVETO)
	})
	p.c.Protos[len(p.c.Protos)-1].NumLocals = 1
	p.op(OP_REPEAT)
	chunk := p.done()

	first, _ := mustRun(t, chunk, nil)
	second, _ := mustRun(t, chunk, nil)
	if first.Trace() != second.Trace() {
		t.Errorf("renders differ:\n%s\n---\n%s", first.Trace(), second.Trace())
	}
	if first.Trace() != "moveto (1,1)\nmoveto (2,2)\nmoveto (3,3)" {
		t.Errorf("trace:\n%s", first.Trace())
	}
}

func TestCancellation(t *testing.T) {
	items := make([]object.Object, 4*cancelCheckInterval)
	for i := range items {
		items[i] = integer(int64(i))
	}
	p := newProgram()
	p.constant(list(items...))
	p.block(func() { p.op(OP_POP) })
	p.op(OP_REPEAT)
	chunk := p.done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(chunk, surface.NewRecorder()).Run(ctx, nil)
	expectFault(t, err, diagnostics.ErrR009)
}

func TestStackLimit(t *testing.T) {
	p := newProgram()
	for i := 0; i < 5; i++ {
		p.constant(integer(1))
	}
	chunk := p.done()
	err := New(chunk, surface.NewRecorder(), WithMaxStack(3)).Run(context.Background(), nil)
	expectFault(t, err, diagnostics.ErrR009)
}

func TestDisassemble(t *testing.T) {
	p := newProgram()
	p.constant(list(integer(1)))
	p.block(func() {
		p.op(OP_LIST, 1)
		p.op(OP_EFFECT, p.c.AddName("emit"))
	})
	p.op(OP_REPEAT)
	out := Disassemble(p.done(), "demo")

	for _, want := range []string{"== demo ==", "0000    1 CONST", "-- block block", "'emit'", "JUMP", "REPEAT", "HALT"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing lacks %q:\n%s", want, out)
		}
	}
}

func TestRepeatHonoursBlockArity(t *testing.T) {
	m := object.NewMap()
	m.Set("a", integer(1))
	m.Set("b", integer(2))

	tests := []struct {
		coll  object.Object
		arity int
		want  string
	}{
		{m, 1, "got 1\ngot 2"},
		{list(str("x"), str("y")), 2, "got 0 \"x\"\ngot 1 \"y\""},
		{list(str("x")), 1, "got \"x\""},
	}

	for _, tt := range tests {
		p := newProgram()
		p.constant(tt.coll)
		p.block(func() {
			p.op(OP_LIST, tt.arity)
			p.op(OP_EFFECT, p.c.AddName("got"))
		})
		p.c.Protos[len(p.c.Protos)-1].Arity = tt.arity
		p.op(OP_REPEAT)
		rec, _ := mustRun(t, p.done(), nil)
		if got := rec.Trace(); got != tt.want {
			t.Errorf("arity %d over %s:\n%s\nwant:\n%s", tt.arity, tt.coll.Inspect(), got, tt.want)
		}
	}
}
