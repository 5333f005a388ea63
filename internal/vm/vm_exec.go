package vm

import (
	"context"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
)

func (vm *VM) frame() *CallFrame {
	return vm.frames[len(vm.frames)-1]
}

// run is the dispatch loop. It returns nil at HALT.
func (vm *VM) run(ctx context.Context) error {
	steps := 0
	for {
		steps++
		if steps%cancelCheckInterval == 0 && ctx != nil {
			if err := ctx.Err(); err != nil {
				return vm.fault(diagnostics.ErrR009, "render cancelled: %v", err)
			}
		}

		fr := vm.frame()
		vm.pc = fr.ip
		if vm.pc < 0 || vm.pc >= len(vm.chunk.Code) {
			return vm.fault(diagnostics.ErrR009, "instruction pointer %d out of range", vm.pc)
		}
		in := vm.chunk.Code[vm.pc]
		fr.ip++

		halt, f := vm.step(fr, in)
		if f != nil {
			return f
		}
		if halt {
			vm.unwindContext(0)
			return nil
		}
		if len(vm.stack) > vm.maxStack {
			return vm.fault(diagnostics.ErrR009, "stack overflow: more than %d values", vm.maxStack)
		}
	}
}

func (vm *VM) step(fr *CallFrame, in Instr) (bool, *Fault) {
	switch in.Op {
	case OP_CONST:
		vm.push(vm.chunk.Constants[in.Arg])
	case OP_UNIT:
		vm.push(object.UnitValue)
	case OP_POP:
		if _, f := vm.pop(); f != nil {
			return false, f
		}
	case OP_DUP:
		v, f := vm.pop()
		if f != nil {
			return false, f
		}
		vm.push(v)
		vm.push(v)
	case OP_SWAP:
		vals, f := vm.popN(2)
		if f != nil {
			return false, f
		}
		vm.push(vals[1])
		vm.push(vals[0])

	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_POW, OP_EQ, OP_LT, OP_GT, OP_LE, OP_GE, OP_AND, OP_OR, OP_XOR:
		vals, f := vm.popN(2)
		if f != nil {
			return false, f
		}
		res, f := vm.binary(in.Op, vals[0], vals[1])
		if f != nil {
			return false, f
		}
		vm.push(res)
	case OP_NEG, OP_NOT:
		v, f := vm.pop()
		if f != nil {
			return false, f
		}
		res, f := vm.unary(in.Op, v)
		if f != nil {
			return false, f
		}
		vm.push(res)

	case OP_GET_LOCAL:
		v := fr.locals[in.Arg]
		if v == nil {
			return false, vm.fault(diagnostics.ErrR006, "local %d read before assignment", in.Arg)
		}
		vm.push(v)
	case OP_SET_LOCAL:
		v, f := vm.pop()
		if f != nil {
			return false, f
		}
		fr.locals[in.Arg] = v
	case OP_GET_CAPTURE:
		vm.push(fr.closure.Captures[in.Arg])
	case OP_GET_PARAM:
		name := vm.chunk.Name(in.Arg)
		v, ok := vm.env[name]
		if !ok {
			return false, vm.fault(diagnostics.ErrR007, "missing parameter %q", name)
		}
		vm.push(v)

	case OP_JUMP:
		fr.ip = in.Arg
	case OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE:
		v, f := vm.pop()
		if f != nil {
			return false, f
		}
		b, ok := v.(*object.Boolean)
		if !ok {
			return false, vm.fault(diagnostics.ErrR006, "condition must be Bool, got %s", object.TypeName(v))
		}
		if b.Value == (in.Op == OP_JUMP_IF_TRUE) {
			fr.ip = in.Arg
		}

	case OP_CALL:
		return false, vm.call(in.Arg)
	case OP_BUILTIN:
		b := vm.chunk.Constants[in.Arg].(*object.Builtin)
		args, f := vm.popN(b.NumArgs)
		if f != nil {
			return false, f
		}
		res, err := b.Fn(args...)
		if err != nil {
			return false, vm.fault(diagnostics.ErrR006, "%s: %v", b.Name, err)
		}
		vm.push(res)
	case OP_CLOSURE:
		proto := vm.chunk.Protos[in.Arg]
		caps, f := vm.popN(proto.NumCaptures)
		if f != nil {
			return false, f
		}
		vm.push(&Closure{Proto: proto, Captures: caps})
	case OP_RETURN:
		res, f := vm.pop()
		if f != nil {
			return false, f
		}
		vm.unwindContext(fr.ctxBase)
		vm.stack = vm.stack[:fr.base]
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.push(res)
	case OP_END:
		vm.unwindContext(fr.ctxBase)
		if it := fr.iter; it != nil && it.next < len(it.items) {
			vm.startIteration(fr)
			return false, nil
		}
		vm.frames = vm.frames[:len(vm.frames)-1]
	case OP_HALT:
		return true, nil

	case OP_LIST, OP_TUPLE:
		vals, f := vm.popN(in.Arg)
		if f != nil {
			return false, f
		}
		if in.Op == OP_LIST {
			vm.push(&object.List{Elements: vals})
		} else {
			vm.push(&object.Tuple{Elements: vals})
		}
	case OP_MAP:
		vals, f := vm.popN(2 * in.Arg)
		if f != nil {
			return false, f
		}
		m := object.NewMap()
		for i := 0; i < len(vals); i += 2 {
			key, ok := vals[i].(*object.String)
			if !ok {
				return false, vm.fault(diagnostics.ErrR006, "map key must be Str, got %s", object.TypeName(vals[i]))
			}
			m.Set(key.Value, vals[i+1])
		}
		vm.push(m)
	case OP_POINT:
		vals, f := vm.popN(2)
		if f != nil {
			return false, f
		}
		x, f := vm.number(vals[0])
		if f != nil {
			return false, f
		}
		y, f := vm.number(vals[1])
		if f != nil {
			return false, f
		}
		vm.push(&object.Point{X: x, Y: y})
	case OP_UNPACK:
		v, f := vm.pop()
		if f != nil {
			return false, f
		}
		p, ok := v.(*object.Point)
		if !ok {
			return false, vm.fault(diagnostics.ErrR006, "unpack expects a Point, got %s", object.TypeName(v))
		}
		vm.push(&object.Float{Value: p.X})
		vm.push(&object.Float{Value: p.Y})
	case OP_FIELD:
		v, f := vm.pop()
		if f != nil {
			return false, f
		}
		res, f := vm.field(v, vm.chunk.Name(in.Arg))
		if f != nil {
			return false, f
		}
		vm.push(res)
	case OP_INDEX:
		vals, f := vm.popN(2)
		if f != nil {
			return false, f
		}
		res, f := vm.index(vals[0], vals[1])
		if f != nil {
			return false, f
		}
		vm.push(res)

	case OP_EFFECT:
		v, f := vm.pop()
		if f != nil {
			return false, f
		}
		args, ok := v.(*object.List)
		if !ok {
			return false, vm.fault(diagnostics.ErrR006, "effect arguments must be a list")
		}
		vm.surface.Effect(vm.chunk.Name(in.Arg), args.Elements)

	case OP_REPEAT:
		return false, vm.repeat()
	case OP_EXEC:
		v, f := vm.pop()
		if f != nil {
			return false, f
		}
		return false, vm.enterBlock(v, nil)
	case OP_IFELSE:
		vals, f := vm.popN(3)
		if f != nil {
			return false, f
		}
		cond, ok := vals[0].(*object.Boolean)
		if !ok {
			return false, vm.fault(diagnostics.ErrR006, "ifelse condition must be Bool, got %s", object.TypeName(vals[0]))
		}
		if cond.Value {
			return false, vm.enterBlock(vals[1], nil)
		}
		return false, vm.enterBlock(vals[2], nil)

	default:
		if _, ok := WordFor(in.Op); ok {
			return false, vm.draw(in.Op)
		}
		return false, vm.fault(diagnostics.ErrR009, "unknown opcode %d", in.Op)
	}
	return false, nil
}

func (vm *VM) pushFrame(fr *CallFrame) *Fault {
	if len(vm.frames) >= vm.maxFrames {
		return vm.fault(diagnostics.ErrR009, "call depth exceeds %d", vm.maxFrames)
	}
	vm.frames = append(vm.frames, fr)
	return nil
}

// call invokes the callee sitting below n arguments.
func (vm *VM) call(n int) *Fault {
	args, f := vm.popN(n)
	if f != nil {
		return f
	}
	callee, f := vm.pop()
	if f != nil {
		return f
	}
	switch fn := callee.(type) {
	case *object.Builtin:
		if fn.NumArgs >= 0 && fn.NumArgs != n {
			return vm.fault(diagnostics.ErrR006, "%s expects %d arguments, got %d", fn.Name, fn.NumArgs, n)
		}
		res, err := fn.Fn(args...)
		if err != nil {
			return vm.fault(diagnostics.ErrR006, "%s: %v", fn.Name, err)
		}
		vm.push(res)
		return nil
	case *Closure:
		if fn.Proto.Quote {
			return vm.fault(diagnostics.ErrR005, "a quoted block is run with exec, not called")
		}
		if fn.Proto.Arity != n {
			return vm.fault(diagnostics.ErrR006, "%s expects %d arguments, got %d", fn.Proto.Name, fn.Proto.Arity, n)
		}
		locals := make([]object.Object, fn.Proto.NumLocals)
		copy(locals, args)
		return vm.pushFrame(&CallFrame{
			closure: fn,
			proto:   fn.Proto,
			ip:      fn.Proto.Start,
			locals:  locals,
			base:    len(vm.stack),
			ctxBase: len(vm.ctxStack),
		})
	}
	return vm.fault(diagnostics.ErrR006, "%s is not callable", object.TypeName(callee))
}

// enterBlock runs a quoted block on the shared stack, once or per item.
func (vm *VM) enterBlock(v object.Object, it *iteration) *Fault {
	block, ok := v.(*Closure)
	if !ok || !block.Proto.Quote {
		return vm.fault(diagnostics.ErrR005, "expected a quoted block, got %s", object.TypeName(v))
	}
	fr := &CallFrame{
		closure: block,
		proto:   block.Proto,
		base:    len(vm.stack),
		ctxBase: len(vm.ctxStack),
		iter:    it,
	}
	if f := vm.pushFrame(fr); f != nil {
		return f
	}
	if it != nil {
		vm.startIteration(fr)
		return nil
	}
	fr.ip = block.Proto.Start
	fr.locals = make([]object.Object, block.Proto.NumLocals)
	return nil
}

// startIteration pushes the next item group and rewinds the block.
func (vm *VM) startIteration(fr *CallFrame) {
	it := fr.iter
	for i := 0; i < it.width; i++ {
		vm.push(it.items[it.next+i])
	}
	it.next += it.width
	fr.ip = fr.proto.Start
	fr.locals = make([]object.Object, fr.proto.NumLocals)
}

// repeat pops a collection and a block and runs the block per element.
// A block declaring two inputs gets key and value from a map and index and
// element from a list; one input gets the element or the map value. Blocks
// that declare nothing get the element, or key then value.
func (vm *VM) repeat() *Fault {
	vals, f := vm.popN(2)
	if f != nil {
		return f
	}
	coll, v := vals[0], vals[1]
	block, ok := v.(*Closure)
	if !ok || !block.Proto.Quote {
		return vm.fault(diagnostics.ErrR005, "repeat expects a quoted block, got %s", object.TypeName(v))
	}

	it := &iteration{width: 1}
	switch c := coll.(type) {
	case *object.List, *object.Tuple:
		elems, _ := object.Elements(c)
		if block.Proto.Arity == 2 {
			it.width = 2
			it.items = make([]object.Object, 0, 2*len(elems))
			for i, e := range elems {
				it.items = append(it.items, &object.Integer{Value: int64(i)}, e)
			}
		} else {
			it.items = elems
		}
	case *object.Map:
		if block.Proto.Arity == 1 {
			it.items = make([]object.Object, 0, c.Len())
			for _, k := range c.Keys {
				it.items = append(it.items, c.Values[k])
			}
			break
		}
		it.width = 2
		it.items = make([]object.Object, 0, 2*c.Len())
		for _, k := range c.Keys {
			it.items = append(it.items, &object.String{Value: k}, c.Values[k])
		}
	default:
		return vm.fault(diagnostics.ErrR005, "repeat expects a collection, got %s", object.TypeName(coll))
	}
	if len(it.items) == 0 {
		return nil
	}
	return vm.enterBlock(block, it)
}

// unwindContext restores saves left open above depth.
func (vm *VM) unwindContext(depth int) {
	for len(vm.ctxStack) > depth {
		vm.ctx = vm.ctxStack[len(vm.ctxStack)-1]
		vm.ctxStack = vm.ctxStack[:len(vm.ctxStack)-1]
		vm.surface.Restore()
	}
}
