package compiler

import (
	"errors"
	"testing"

	"github.com/funvibe/dvi/internal/builtins"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/vm"
)

type stream struct {
	c *vm.Chunk
}

func newStream() *stream {
	c := vm.NewChunk()
	c.AddProto(&vm.Proto{Name: "main"})
	return &stream{c: c}
}

func (s *stream) op(op vm.Opcode, arg ...int) int {
	a := 0
	if len(arg) > 0 {
		a = arg[0]
	}
	return s.c.Emit(op, a, 1, s.c.Len()+1)
}

func (s *stream) constant(o object.Object) {
	s.op(vm.OP_CONST, s.c.AddConstant(o))
}

// quote lays body out as a quoted block taking arity values and pushes it.
func (s *stream) quote(arity int, body func()) {
	jump := s.op(vm.OP_JUMP)
	proto := &vm.Proto{Name: "block", Start: s.c.Len(), Arity: arity, Quote: true}
	body()
	s.op(vm.OP_END)
	proto.End = s.c.Len()
	s.c.Patch(jump, s.c.Len())
	s.op(vm.OP_CLOSURE, s.c.AddProto(proto))
}

func (s *stream) done() *vm.Chunk {
	s.op(vm.OP_HALT)
	s.c.Protos[0].End = s.c.Len()
	return s.c
}

func ints(vs ...int64) object.Object {
	elems := make([]object.Object, len(vs))
	for i, v := range vs {
		elems[i] = &object.Integer{Value: v}
	}
	return &object.List{Elements: elems}
}

func expectCodes(t *testing.T, err error, want ...diagnostics.ErrorCode) {
	t.Helper()
	if len(want) == 0 {
		if err != nil {
			t.Fatalf("expected the stream to verify, got %v", err)
		}
		return
	}
	var list diagnostics.List
	if !errors.As(err, &list) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	for _, code := range want {
		if !list.Has(code) {
			t.Errorf("expected %s in %v", code, err)
		}
	}
}

func TestVerifyStreams(t *testing.T) {
	tests := []struct {
		name  string
		build func(s *stream)
		want  []diagnostics.ErrorCode
	}{
		{"balanced", func(s *stream) {
			s.constant(&object.Point{})
			s.constant(&object.Integer{Value: 5})
			s.op(vm.OP_CIRCLE)
			s.op(vm.OP_FILL)
		}, nil},
		{"underflow", func(s *stream) {
			s.constant(&object.Integer{Value: 5})
			s.op(vm.OP_CIRCLE)
		}, []diagnostics.ErrorCode{diagnostics.ErrC001}},
		{"operand type", func(s *stream) {
			s.constant(&object.String{Value: "a"})
			s.constant(&object.Integer{Value: 5})
			s.op(vm.OP_CIRCLE)
		}, []diagnostics.ErrorCode{diagnostics.ErrC002}},
		{"builtin operand type", func(s *stream) {
			sqrt, _ := builtins.Lookup("sqrt")
			s.constant(&object.String{Value: "x"})
			s.op(vm.OP_BUILTIN, s.c.AddConstant(sqrt.Builtin))
			s.op(vm.OP_POP)
		}, []diagnostics.ErrorCode{diagnostics.ErrC002}},
		{"path dependent depth", func(s *stream) {
			s.constant(object.True)
			skip := s.op(vm.OP_JUMP_IF_FALSE)
			s.constant(&object.Integer{Value: 1})
			s.c.Patch(skip, s.c.Len())
			s.op(vm.OP_POP)
		}, []diagnostics.ErrorCode{diagnostics.ErrC003}},
		{"branches agree", func(s *stream) {
			s.constant(object.True)
			other := s.op(vm.OP_JUMP_IF_FALSE)
			s.constant(&object.Integer{Value: 1})
			end := s.op(vm.OP_JUMP)
			s.c.Patch(other, s.c.Len())
			s.constant(&object.Integer{Value: 2})
			s.c.Patch(end, s.c.Len())
			s.op(vm.OP_SETLINEWIDTH)
		}, nil},
		{"condition type", func(s *stream) {
			s.constant(&object.Integer{Value: 1})
			skip := s.op(vm.OP_JUMP_IF_FALSE)
			s.c.Patch(skip, s.c.Len())
		}, []diagnostics.ErrorCode{diagnostics.ErrC002}},
		{"backward jump", func(s *stream) {
			s.op(vm.OP_JUMP, 0)
		}, []diagnostics.ErrorCode{diagnostics.ErrC005}},
		{"unrolled repeat", func(s *stream) {
			s.constant(ints(1, 2, 3))
			s.quote(0, func() {})
			s.op(vm.OP_REPEAT)
			s.op(vm.OP_POP)
			s.op(vm.OP_POP)
			s.op(vm.OP_POP)
		}, nil},
		{"unrolled repeat overrun", func(s *stream) {
			s.constant(ints(1, 2, 3))
			s.quote(0, func() {})
			s.op(vm.OP_REPEAT)
			for i := 0; i < 4; i++ {
				s.op(vm.OP_POP)
			}
		}, []diagnostics.ErrorCode{diagnostics.ErrC001}},
		{"unrolled element types", func(s *stream) {
			s.constant(ints(1, 2))
			s.quote(0, func() {
				s.op(vm.OP_MOVETO)
			})
			s.op(vm.OP_REPEAT)
		}, []diagnostics.ErrorCode{diagnostics.ErrC002}},
		{"unknown length balanced body", func(s *stream) {
			s.op(vm.OP_GET_LOCAL, 0)
			s.quote(1, func() {
				s.op(vm.OP_POP)
			})
			s.op(vm.OP_REPEAT)
			s.op(vm.OP_POP)
		}, []diagnostics.ErrorCode{diagnostics.ErrC001}},
		{"unknown length growing body", func(s *stream) {
			s.op(vm.OP_GET_LOCAL, 0)
			s.quote(1, func() {})
			s.op(vm.OP_REPEAT)
			s.op(vm.OP_POP)
			s.op(vm.OP_POP)
		}, nil},
		{"range of a constant unrolls", func(s *stream) {
			rng, _ := builtins.Lookup("range")
			s.constant(&object.Integer{Value: 2})
			s.op(vm.OP_BUILTIN, s.c.AddConstant(rng.Builtin))
			s.quote(0, func() {})
			s.op(vm.OP_REPEAT)
			s.op(vm.OP_ADD)
			s.op(vm.OP_POP)
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStream()
			tt.build(s)
			expectCodes(t, Verify(s.done()), tt.want...)
		})
	}
}

func TestVerifyChecksUncalledFunctions(t *testing.T) {
	s := newStream()
	jump := s.op(vm.OP_JUMP)
	fn := &vm.Proto{Name: "f", Start: s.c.Len()}
	s.op(vm.OP_POP)
	s.op(vm.OP_UNIT)
	s.op(vm.OP_RETURN)
	fn.End = s.c.Len()
	s.c.AddProto(fn)
	s.c.Patch(jump, s.c.Len())
	expectCodes(t, Verify(s.done()), diagnostics.ErrC001)
}

func TestVerifyQuoteNesting(t *testing.T) {
	s := newStream()
	var nest func(depth int)
	nest = func(depth int) {
		if depth == 0 {
			return
		}
		s.quote(0, func() {
			nest(depth - 1)
			s.op(vm.OP_EXEC)
		})
	}
	nest(70)
	s.op(vm.OP_EXEC)
	expectCodes(t, Verify(s.done()), diagnostics.ErrC005)
}

func TestVerifyReportsPositions(t *testing.T) {
	s := newStream()
	s.op(vm.OP_POP)
	s.c.File = "shape.dvs"
	err := Verify(s.done())
	var list diagnostics.List
	if !errors.As(err, &list) || len(list) != 1 {
		t.Fatalf("expected one diagnostic, got %v", err)
	}
	if list[0].File != "shape.dvs" || list[0].Line() != 1 || list[0].Column() != 1 {
		t.Errorf("unexpected position %s:%d:%d", list[0].File, list[0].Line(), list[0].Column())
	}
}
