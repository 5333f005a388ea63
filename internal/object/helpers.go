package object

// ToFloat widens a numeric object.
func ToFloat(o Object) (float64, bool) {
	switch v := o.(type) {
	case *Integer:
		return float64(v.Value), true
	case *Float:
		return v.Value, true
	}
	return 0, false
}

func IsNumber(o Object) bool {
	_, ok := ToFloat(o)
	return ok
}

// Elements returns the members of a list or tuple.
func Elements(o Object) ([]Object, bool) {
	switch v := o.(type) {
	case *List:
		return v.Elements, true
	case *Tuple:
		return v.Elements, true
	}
	return nil, false
}

// Equal is structural equality. Int and Float compare numerically.
func Equal(a, b Object) bool {
	if af, ok := ToFloat(a); ok {
		bf, ok := ToFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case *Unit:
		_, ok := b.(*Unit)
		return ok
	case *Boolean:
		bv, ok := b.(*Boolean)
		return ok && av.Value == bv.Value
	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value
	case *Point:
		bv, ok := b.(*Point)
		return ok && av.X == bv.X && av.Y == bv.Y
	case *Color:
		bv, ok := b.(*Color)
		return ok && *av == *bv
	case *List, *Tuple:
		ae, _ := Elements(a)
		be, ok := Elements(b)
		if !ok || a.Type() != b.Type() || len(ae) != len(be) {
			return false
		}
		for i := range ae {
			if !Equal(ae[i], be[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || len(av.Keys) != len(bv.Keys) {
			return false
		}
		for _, k := range av.Keys {
			other, ok := bv.Values[k]
			if !ok || !Equal(av.Values[k], other) {
				return false
			}
		}
		return true
	}
	return a == b
}

// TypeName is the user-facing name of a value's runtime shape.
func TypeName(o Object) string {
	switch o.(type) {
	case *Unit:
		return "Unit"
	case *Boolean:
		return "Bool"
	case *Integer:
		return "Int"
	case *Float:
		return "Float"
	case *String:
		return "Str"
	case *Point:
		return "Point"
	case *Color:
		return "Color"
	case *List:
		return "List"
	case *Tuple:
		return "Tuple"
	case *Map:
		return "Map"
	}
	if o == nil {
		return "nothing"
	}
	return "Func"
}
