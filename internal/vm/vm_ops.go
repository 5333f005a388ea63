package vm

import (
	"math"
	"strings"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
)

func (vm *VM) number(o object.Object) (float64, *Fault) {
	f, ok := object.ToFloat(o)
	if !ok {
		return 0, vm.fault(diagnostics.ErrR006, "%s expects a number, got %s", vm.op(), object.TypeName(o))
	}
	return f, nil
}

func (vm *VM) op() Opcode {
	if vm.pc < 0 || vm.pc >= len(vm.chunk.Code) {
		return OP_HALT
	}
	return vm.chunk.Code[vm.pc].Op
}

func (vm *VM) unary(op Opcode, v object.Object) (object.Object, *Fault) {
	switch op {
	case OP_NOT:
		b, ok := v.(*object.Boolean)
		if !ok {
			return nil, vm.fault(diagnostics.ErrR006, "not expects Bool, got %s", object.TypeName(v))
		}
		return object.Bool(!b.Value), nil
	case OP_NEG:
		switch x := v.(type) {
		case *object.Integer:
			return &object.Integer{Value: -x.Value}, nil
		case *object.Float:
			return &object.Float{Value: -x.Value}, nil
		case *object.Point:
			return &object.Point{X: -x.X, Y: -x.Y}, nil
		}
		return nil, vm.fault(diagnostics.ErrR006, "cannot negate %s", object.TypeName(v))
	}
	return nil, vm.fault(diagnostics.ErrR009, "unknown unary opcode %s", op)
}

func (vm *VM) binary(op Opcode, a, b object.Object) (object.Object, *Fault) {
	switch op {
	case OP_EQ:
		return object.Bool(object.Equal(a, b)), nil
	case OP_AND, OP_OR, OP_XOR:
		x, ok1 := a.(*object.Boolean)
		y, ok2 := b.(*object.Boolean)
		if !ok1 || !ok2 {
			return nil, vm.fault(diagnostics.ErrR006, "%s expects Bool operands, got %s and %s", op, object.TypeName(a), object.TypeName(b))
		}
		switch op {
		case OP_AND:
			return object.Bool(x.Value && y.Value), nil
		case OP_OR:
			return object.Bool(x.Value || y.Value), nil
		}
		return object.Bool(x.Value != y.Value), nil
	case OP_LT, OP_GT, OP_LE, OP_GE:
		return vm.compare(op, a, b)
	}

	if as, ok := a.(*object.String); ok && op == OP_ADD {
		if bs, ok := b.(*object.String); ok {
			return &object.String{Value: as.Value + bs.Value}, nil
		}
	}

	ap, aPoint := a.(*object.Point)
	bp, bPoint := b.(*object.Point)
	switch {
	case aPoint && bPoint:
		switch op {
		case OP_ADD:
			return &object.Point{X: ap.X + bp.X, Y: ap.Y + bp.Y}, nil
		case OP_SUB:
			return &object.Point{X: ap.X - bp.X, Y: ap.Y - bp.Y}, nil
		}
		return nil, vm.typeError(op, a, b)
	case aPoint:
		k, ok := object.ToFloat(b)
		if !ok {
			return nil, vm.typeError(op, a, b)
		}
		switch op {
		case OP_MUL:
			return &object.Point{X: ap.X * k, Y: ap.Y * k}, nil
		case OP_DIV:
			if k == 0 {
				return nil, vm.fault(diagnostics.ErrR003, "division by zero")
			}
			return &object.Point{X: ap.X / k, Y: ap.Y / k}, nil
		}
		return nil, vm.typeError(op, a, b)
	case bPoint:
		k, ok := object.ToFloat(a)
		if !ok || op != OP_MUL {
			return nil, vm.typeError(op, a, b)
		}
		return &object.Point{X: bp.X * k, Y: bp.Y * k}, nil
	}

	ai, aInt := a.(*object.Integer)
	bi, bInt := b.(*object.Integer)
	if aInt && bInt {
		switch op {
		case OP_ADD:
			return &object.Integer{Value: ai.Value + bi.Value}, nil
		case OP_SUB:
			return &object.Integer{Value: ai.Value - bi.Value}, nil
		case OP_MUL:
			return &object.Integer{Value: ai.Value * bi.Value}, nil
		case OP_POW:
			if bi.Value >= 0 {
				return &object.Integer{Value: ipow(ai.Value, bi.Value)}, nil
			}
		}
	}

	x, ok1 := object.ToFloat(a)
	y, ok2 := object.ToFloat(b)
	if !ok1 || !ok2 {
		return nil, vm.typeError(op, a, b)
	}
	switch op {
	case OP_ADD:
		return &object.Float{Value: x + y}, nil
	case OP_SUB:
		return &object.Float{Value: x - y}, nil
	case OP_MUL:
		return &object.Float{Value: x * y}, nil
	case OP_DIV:
		if y == 0 {
			return nil, vm.fault(diagnostics.ErrR003, "division by zero")
		}
		return &object.Float{Value: x / y}, nil
	case OP_POW:
		return &object.Float{Value: math.Pow(x, y)}, nil
	}
	return nil, vm.typeError(op, a, b)
}

func ipow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func (vm *VM) compare(op Opcode, a, b object.Object) (object.Object, *Fault) {
	var c int
	if x, ok := object.ToFloat(a); ok {
		y, ok := object.ToFloat(b)
		if !ok {
			return nil, vm.typeError(op, a, b)
		}
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	} else if as, ok := a.(*object.String); ok {
		bs, ok := b.(*object.String)
		if !ok {
			return nil, vm.typeError(op, a, b)
		}
		c = strings.Compare(as.Value, bs.Value)
	} else {
		return nil, vm.typeError(op, a, b)
	}
	switch op {
	case OP_LT:
		return object.Bool(c < 0), nil
	case OP_GT:
		return object.Bool(c > 0), nil
	case OP_LE:
		return object.Bool(c <= 0), nil
	}
	return object.Bool(c >= 0), nil
}

func (vm *VM) typeError(op Opcode, a, b object.Object) *Fault {
	name := op.String()
	if w, ok := WordFor(op); ok {
		name = w.Name
	}
	return vm.fault(diagnostics.ErrR006, "unsupported operands for %s: %s and %s", name, object.TypeName(a), object.TypeName(b))
}

func (vm *VM) field(v object.Object, name string) (object.Object, *Fault) {
	switch x := v.(type) {
	case *object.Map:
		if res, ok := x.Get(name); ok {
			return res, nil
		}
		return nil, vm.fault(diagnostics.ErrR004, "no field %q", name)
	case *object.Point:
		switch name {
		case "x":
			return &object.Float{Value: x.X}, nil
		case "y":
			return &object.Float{Value: x.Y}, nil
		}
	case *object.Color:
		switch name {
		case "r":
			return &object.Float{Value: x.R}, nil
		case "g":
			return &object.Float{Value: x.G}, nil
		case "b":
			return &object.Float{Value: x.B}, nil
		case "a":
			return &object.Float{Value: x.A}, nil
		}
	default:
		return nil, vm.fault(diagnostics.ErrR006, "%s has no fields", object.TypeName(v))
	}
	return nil, vm.fault(diagnostics.ErrR004, "%s has no field %q", object.TypeName(v), name)
}

func (vm *VM) index(coll, key object.Object) (object.Object, *Fault) {
	if m, ok := coll.(*object.Map); ok {
		k, ok := key.(*object.String)
		if !ok {
			return nil, vm.fault(diagnostics.ErrR006, "map index must be Str, got %s", object.TypeName(key))
		}
		if res, ok := m.Get(k.Value); ok {
			return res, nil
		}
		return nil, vm.fault(diagnostics.ErrR004, "missing key %q", k.Value)
	}
	elems, ok := object.Elements(coll)
	if !ok {
		return nil, vm.fault(diagnostics.ErrR005, "cannot index %s", object.TypeName(coll))
	}
	f, ok := object.ToFloat(key)
	if !ok || f != math.Trunc(f) {
		return nil, vm.fault(diagnostics.ErrR006, "index must be an integer, got %s", key.Inspect())
	}
	i := int(f)
	if i < 0 || i >= len(elems) {
		return nil, vm.fault(diagnostics.ErrR004, "index %d out of range [0,%d)", i, len(elems))
	}
	return elems[i], nil
}
