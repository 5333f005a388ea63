package compiler

import (
	"fmt"

	"github.com/funvibe/dvi/internal/builtins"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/typesystem"
	"github.com/funvibe/dvi/internal/vm"
)

// maxVerifySteps bounds the instructions simulated across all unrolled
// loops. Past it, loops are checked as if their length were unknown.
const maxVerifySteps = 1 << 20

// entry is one abstract stack value.
type entry struct {
	t     typesystem.Type
	proto int           // quote or function proto, or -1
	n     int           // collection length, or -1
	c     object.Object // constant value, if known
}

var unknown = entry{t: typesystem.Any, proto: -1, n: -1}

func typed(t typesystem.Type) entry {
	return entry{t: t, proto: -1, n: -1}
}

// shape is the abstract operand stack at one point of a proto. Paths
// reaching the point leave between min and len(stack) values. An open
// shape has values of unknown number below it.
type shape struct {
	stack []entry
	min   int
	open  bool
}

func (s *shape) clone() *shape {
	out := &shape{stack: make([]entry, len(s.stack)), min: s.min, open: s.open}
	copy(out.stack, s.stack)
	return out
}

func (s *shape) push(e entry) {
	s.stack = append(s.stack, e)
	s.min++
}

type verifier struct {
	chunk    *vm.Chunk
	errors   diagnostics.List
	reported map[string]bool
	visited  map[int]bool
	nesting  int
	steps    int
}

// Verify simulates the stack shape of every proto in chunk. It rejects
// sequences that underflow on every path, statically known operand type
// mismatches, stack depths that depend on the path when a later
// instruction needs them, and code that exceeds the nesting limits.
func Verify(chunk *vm.Chunk) error {
	if len(chunk.Protos) == 0 {
		return fmt.Errorf("verify: chunk has no program proto")
	}
	v := &verifier{
		chunk:    chunk,
		reported: make(map[string]bool),
		visited:  make(map[int]bool),
	}
	v.visited[0] = true
	v.walk(0, &shape{})

	for i, p := range chunk.Protos {
		if v.visited[i] {
			continue
		}
		v.visited[i] = true
		if p.Quote {
			v.walk(i, &shape{open: true})
		} else {
			v.walk(i, &shape{})
		}
	}

	v.errors.Sort()
	return v.errors.AsError()
}

func (v *verifier) errorf(code diagnostics.ErrorCode, pc int, format string, args ...interface{}) {
	key := fmt.Sprintf("%d:%s", pc, code)
	if v.reported[key] {
		return
	}
	v.reported[key] = true
	tok := token.Token{}
	if pc >= 0 && pc < len(v.chunk.Lines) {
		tok.Line, tok.Column = v.chunk.Lines[pc], v.chunk.Columns[pc]
	}
	err := diagnostics.NewError(code, tok, format, args...)
	err.File = v.chunk.File
	v.errors = append(v.errors, err)
}

// pop removes one value and checks it against want.
func (v *verifier) pop(s *shape, pc int, want typesystem.Type) entry {
	op := v.chunk.Code[pc].Op
	if len(s.stack) == 0 {
		if !s.open {
			v.errorf(diagnostics.ErrC001, pc, "stack underflow in %s", opName(op))
			s.open = true
		}
		return unknown
	}
	if s.min == 0 {
		v.errorf(diagnostics.ErrC003, pc, "%s needs a value some paths do not leave on the stack", opName(op))
		s.min = len(s.stack)
	}
	e := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.min--
	if want != nil && typesystem.Disjoint(e.t, want) {
		v.errorf(diagnostics.ErrC002, pc, "%s expects %s, got %s", opName(op), want, e.t)
	}
	return e
}

// popN pops n values and returns them bottom first.
func (v *verifier) popN(s *shape, pc int, wants []typesystem.Type, n int) []entry {
	out := make([]entry, n)
	for i := n - 1; i >= 0; i-- {
		var want typesystem.Type
		if i < len(wants) {
			want = wants[i]
		}
		out[i] = v.pop(s, pc, want)
	}
	return out
}

// merge joins the shapes of two paths meeting at one instruction.
func merge(a, b *shape) *shape {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if len(a.stack) == len(b.stack) && a.min == b.min {
		out := a.clone()
		for i := range out.stack {
			out.stack[i] = joinEntry(a.stack[i], b.stack[i])
		}
		out.open = a.open || b.open
		return out
	}
	n := len(a.stack)
	if len(b.stack) > n {
		n = len(b.stack)
	}
	out := &shape{stack: make([]entry, n), min: a.min, open: a.open || b.open}
	if b.min < out.min {
		out.min = b.min
	}
	for i := range out.stack {
		out.stack[i] = unknown
	}
	return out
}

func joinEntry(a, b entry) entry {
	out := typed(typesystem.Join(a.t, b.t))
	if a.proto == b.proto {
		out.proto = a.proto
	}
	if a.n == b.n {
		out.n = a.n
	}
	if a.c != nil && b.c != nil && object.Equal(a.c, b.c) {
		out.c = a.c
	}
	return out
}

// walk simulates proto k starting from in and returns the shape at its
// exits, or nil when no exit is reachable.
func (v *verifier) walk(k int, in *shape) *shape {
	p := v.chunk.Protos[k]
	locals := make(map[int]entry)
	pending := make(map[int]*shape)
	cur := in
	var out *shape

	for pc := p.Start; pc < p.End && pc < len(v.chunk.Code); pc++ {
		if st, ok := pending[pc]; ok {
			cur = merge(cur, st)
			delete(pending, pc)
		}
		if cur == nil {
			continue
		}
		v.steps++
		ins := v.chunk.Code[pc]

		switch {
		case ins.Op.IsJump():
			if ins.Arg <= pc || ins.Arg > p.End {
				v.errorf(diagnostics.ErrC005, pc, "jump to %d leaves the forward range of %s", ins.Arg, p.Name)
				cur = nil
				continue
			}
			if ins.Op != vm.OP_JUMP {
				v.pop(cur, pc, typesystem.Bool)
			}
			pending[ins.Arg] = merge(pending[ins.Arg], cur.clone())
			if ins.Op == vm.OP_JUMP {
				cur = nil
			}
		case ins.Op == vm.OP_RETURN:
			v.pop(cur, pc, nil)
			out = merge(out, cur)
			cur = nil
		case ins.Op == vm.OP_END || ins.Op == vm.OP_HALT:
			out = merge(out, cur)
			cur = nil
		default:
			cur = v.step(cur, pc, ins, locals)
		}
	}
	if st, ok := pending[p.End]; ok {
		out = merge(out, st)
	}
	if cur != nil {
		out = merge(out, cur)
	}
	return out
}

// step applies one non-control instruction to s.
func (v *verifier) step(s *shape, pc int, ins vm.Instr, locals map[int]entry) *shape {
	chunk := v.chunk
	switch ins.Op {
	case vm.OP_CONST:
		c := chunk.Constants[ins.Arg]
		e := typed(typesystem.Of(c))
		e.c = c
		if elems, ok := object.Elements(c); ok {
			e.n = len(elems)
		} else if m, ok := c.(*object.Map); ok {
			e.n = m.Len()
		}
		s.push(e)
	case vm.OP_UNIT:
		s.push(typed(typesystem.UnitType))
	case vm.OP_POP:
		v.pop(s, pc, nil)
	case vm.OP_DUP:
		e := v.pop(s, pc, nil)
		s.push(e)
		s.push(e)
	case vm.OP_SWAP:
		vals := v.popN(s, pc, nil, 2)
		s.push(vals[1])
		s.push(vals[0])
	case vm.OP_GET_LOCAL:
		if e, ok := locals[ins.Arg]; ok {
			s.push(e)
		} else {
			s.push(unknown)
		}
	case vm.OP_SET_LOCAL:
		locals[ins.Arg] = v.pop(s, pc, nil)
	case vm.OP_GET_CAPTURE:
		s.push(unknown)
	case vm.OP_GET_PARAM:
		if spec, ok := chunk.Param(chunk.Name(ins.Arg)); ok && spec.Type != nil {
			s.push(typed(spec.Type))
		} else {
			s.push(unknown)
		}
	case vm.OP_CALL:
		v.popN(s, pc, nil, ins.Arg)
		callee := v.pop(s, pc, callableType)
		ret := typesystem.Type(typesystem.Any)
		if callee.proto >= 0 {
			if fn, ok := typesystem.Resolve(chunk.Protos[callee.proto].Type).(*typesystem.Func); ok && fn.Ret != nil {
				ret = fn.Ret
			}
		}
		s.push(typed(ret))
	case vm.OP_BUILTIN:
		b, _ := chunk.Constants[ins.Arg].(*object.Builtin)
		if b == nil {
			v.errorf(diagnostics.ErrC002, pc, "BUILTIN operand is not a builtin")
			return s
		}
		var sig *typesystem.Func
		if spec, ok := builtins.Lookup(b.Name); ok {
			sig = spec.Sig
		}
		var wants []typesystem.Type
		if sig != nil {
			wants = sig.Params
		}
		args := v.popN(s, pc, wants, b.NumArgs)
		res := unknown
		if sig != nil {
			res = typed(sig.Ret)
		}
		if b.Name == config.RangeFuncName && len(args) == 1 {
			if n, ok := args[0].c.(*object.Integer); ok && n.Value >= 0 {
				res.n = int(n.Value)
			}
		}
		s.push(res)
	case vm.OP_CLOSURE:
		if ins.Arg < 0 || ins.Arg >= len(chunk.Protos) {
			v.errorf(diagnostics.ErrC005, pc, "closure over unknown proto %d", ins.Arg)
			return s
		}
		p := chunk.Protos[ins.Arg]
		v.popN(s, pc, nil, p.NumCaptures)
		t := vm.BlockType
		if !p.Quote && p.Type != nil {
			t = p.Type
		}
		s.push(entry{t: t, proto: ins.Arg, n: -1})
	case vm.OP_LIST, vm.OP_TUPLE:
		elems := v.popN(s, pc, nil, ins.Arg)
		if ins.Op == vm.OP_LIST {
			var elem typesystem.Type = typesystem.Never
			for _, e := range elems {
				elem = typesystem.Join(elem, e.t)
			}
			s.push(entry{t: &typesystem.List{Elem: elem}, proto: -1, n: ins.Arg})
		} else {
			ts := make([]typesystem.Type, len(elems))
			for i, e := range elems {
				ts[i] = e.t
			}
			s.push(entry{t: &typesystem.Tuple{Elems: ts}, proto: -1, n: ins.Arg})
		}
	case vm.OP_MAP:
		wants := make([]typesystem.Type, 2*ins.Arg)
		for i := 0; i < len(wants); i += 2 {
			wants[i] = typesystem.Str
		}
		vals := v.popN(s, pc, wants, 2*ins.Arg)
		var val typesystem.Type = typesystem.Never
		for i := 1; i < len(vals); i += 2 {
			val = typesystem.Join(val, vals[i].t)
		}
		s.push(entry{t: &typesystem.MapOf{Value: val}, proto: -1, n: ins.Arg})
	case vm.OP_FIELD:
		e := v.pop(s, pc, nil)
		switch {
		case typesystem.IsSubtype(e.t, typesystem.PointType), typesystem.IsSubtype(e.t, typesystem.ColorType):
			s.push(typed(typesystem.Float))
		default:
			s.push(unknown)
		}
	case vm.OP_INDEX:
		args := v.popN(s, pc, nil, 2)
		if l, ok := typesystem.Resolve(args[0].t).(*typesystem.List); ok {
			s.push(typed(l.Elem))
		} else {
			s.push(unknown)
		}
	case vm.OP_EFFECT:
		v.pop(s, pc, &typesystem.List{Elem: typesystem.Any})
	case vm.OP_REPEAT:
		return v.repeat(s, pc)
	case vm.OP_EXEC:
		block := v.pop(s, pc, vm.BlockType)
		return v.runQuote(block, s, pc)
	case vm.OP_IFELSE:
		args := v.popN(s, pc, []typesystem.Type{typesystem.Bool, vm.BlockType, vm.BlockType}, 3)
		if args[1].proto < 0 || args[2].proto < 0 {
			return &shape{open: true}
		}
		return merge(v.runQuote(args[1], s.clone(), pc), v.runQuote(args[2], s.clone(), pc))
	default:
		w, ok := vm.WordFor(ins.Op)
		if !ok {
			v.errorf(diagnostics.ErrC005, pc, "unknown opcode %d", ins.Op)
			return s
		}
		args := v.popN(s, pc, w.In, len(w.In))
		for _, t := range w.Out {
			s.push(typed(resultType(ins.Op, args, t)))
		}
	}
	return s
}

var callableType = typesystem.NewUnion(vm.BlockType, typesystem.Complement(typesystem.NewUnion(
	typesystem.UnitType, typesystem.Bool, typesystem.Float, typesystem.Str,
	typesystem.PointType, typesystem.ColorType,
)))

// resultType narrows a word's declared output where the inputs allow it.
func resultType(op vm.Opcode, args []entry, declared typesystem.Type) typesystem.Type {
	switch op {
	case vm.OP_ADD, vm.OP_SUB, vm.OP_MUL, vm.OP_DIV, vm.OP_NEG:
		all := func(t typesystem.Type) bool {
			for _, a := range args {
				if !typesystem.IsSubtype(a.t, t) {
					return false
				}
			}
			return true
		}
		switch {
		case all(typesystem.Int) && op != vm.OP_DIV:
			return typesystem.Int
		case all(typesystem.Float):
			return typesystem.Float
		case all(typesystem.PointType):
			return typesystem.PointType
		}
	}
	return declared
}

// runQuote simulates a quote on the caller's stack.
func (v *verifier) runQuote(block entry, s *shape, pc int) *shape {
	if block.proto < 0 || block.proto >= len(v.chunk.Protos) || !v.chunk.Protos[block.proto].Quote {
		return &shape{open: true}
	}
	if v.nesting >= config.MaxQuoteNesting {
		v.errorf(diagnostics.ErrC005, pc, "quoted blocks nest deeper than %d", config.MaxQuoteNesting)
		return &shape{open: true}
	}
	v.visited[block.proto] = true
	v.nesting++
	out := v.walk(block.proto, s)
	v.nesting--
	if out == nil {
		return &shape{open: true}
	}
	return out
}

// repeat simulates REPEAT. A collection of known length unrolls the body
// once per element; otherwise a body with zero net effect keeps the shape
// and any other body leaves it unknown.
func (v *verifier) repeat(s *shape, pc int) *shape {
	args := v.popN(s, pc, []typesystem.Type{vm.CollectionType, vm.BlockType}, 2)
	coll, block := args[0], args[1]
	if block.proto < 0 || block.proto >= len(v.chunk.Protos) || !v.chunk.Protos[block.proto].Quote {
		return &shape{open: true}
	}

	items := iterationTypes(coll.t, v.chunk.Protos[block.proto].Arity)
	if items == nil {
		v.runQuote(block, &shape{open: true}, pc)
		return &shape{open: true}
	}
	withItems := func(in *shape) *shape {
		out := in.clone()
		for _, t := range items {
			out.push(typed(t))
		}
		return out
	}

	if coll.n >= 0 && coll.n <= config.MaxUnrolledCount && v.steps < maxVerifySteps {
		cur := s
		for i := 0; i < coll.n && !cur.open; i++ {
			cur = v.runQuote(block, withItems(cur), pc)
		}
		return cur
	}

	out := v.runQuote(block, withItems(s), pc)
	if !out.open && !s.open && len(out.stack) == len(s.stack) && out.min == s.min {
		return merge(s, out)
	}
	return &shape{open: true}
}

// iterationTypes lists what REPEAT pushes per element for a block taking
// arity values, or nil when it depends on the run-time collection.
func iterationTypes(coll typesystem.Type, arity int) []typesystem.Type {
	switch ct := typesystem.Resolve(coll).(type) {
	case *typesystem.List:
		if arity == 2 {
			return []typesystem.Type{typesystem.Int, ct.Elem}
		}
		return []typesystem.Type{ct.Elem}
	case *typesystem.Tuple:
		var elem typesystem.Type = typesystem.Never
		for _, e := range ct.Elems {
			elem = typesystem.Join(elem, e)
		}
		if arity == 2 {
			return []typesystem.Type{typesystem.Int, elem}
		}
		return []typesystem.Type{elem}
	case *typesystem.MapOf:
		if arity == 1 {
			return []typesystem.Type{ct.Value}
		}
		return []typesystem.Type{typesystem.Str, ct.Value}
	case *typesystem.Record:
		var val typesystem.Type = typesystem.Never
		for _, f := range ct.Fields {
			val = typesystem.Join(val, f.Type)
		}
		if arity == 1 {
			return []typesystem.Type{val}
		}
		return []typesystem.Type{typesystem.Str, val}
	}
	switch arity {
	case 1:
		return []typesystem.Type{typesystem.Any}
	case 2:
		return []typesystem.Type{typesystem.Any, typesystem.Any}
	}
	return nil
}

func opName(op vm.Opcode) string {
	if w, ok := vm.WordFor(op); ok {
		return w.Name
	}
	return op.String()
}
