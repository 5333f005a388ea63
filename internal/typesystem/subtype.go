package typesystem

import (
	"math"

	"github.com/funvibe/dvi/internal/object"
)

// IsSubtype reports whether every member of a is a member of b.
// Aliases are looked through, so the test is purely structural.
func IsSubtype(a, b Type) bool {
	a, b = normalize(a), normalize(b)

	if a == Never || b == Any {
		return true
	}
	if a.String() == b.String() {
		return true
	}

	if u, ok := a.(*Union); ok {
		for _, m := range u.Types {
			if !IsSubtype(m, b) {
				return false
			}
		}
		return true
	}
	if i, ok := b.(*Inter); ok {
		for _, m := range i.Types {
			if !IsSubtype(a, m) {
				return false
			}
		}
		return true
	}
	if n, ok := b.(*Not); ok {
		return Disjoint(a, n.Inner)
	}
	if i, ok := a.(*Inter); ok {
		if isEmpty(i) {
			return true
		}
		for k, m := range i.Types {
			if IsSubtype(m, b) {
				return true
			}
			if u, ok := normalize(m).(*Union); ok {
				rest := append(append([]Type{}, i.Types[:k]...), i.Types[k+1:]...)
				for _, um := range u.Types {
					if !IsSubtype(NewInter(append([]Type{um}, rest...)...), b) {
						return false
					}
				}
				return true
			}
		}
		if r, ok := numericBounds(a); ok {
			return IsSubtype(r, b)
		}
		return false
	}
	if u, ok := b.(*Union); ok {
		for _, m := range u.Types {
			if IsSubtype(a, m) {
				return true
			}
		}
		return false
	}
	if a == Any {
		return false
	}
	if _, ok := a.(*Not); ok {
		return false
	}
	return leafSubtype(a, b)
}

func leafSubtype(a, b Type) bool {
	switch bt := b.(type) {
	case *Prim:
		if bt == Float {
			return isNumeric(a)
		}
		ap, ok := a.(*Prim)
		if ok {
			return ap == bt
		}
		if bt == Str {
			_, isEnum := a.(*Enum)
			return isEnum
		}
		return false

	case integralType:
		switch at := a.(type) {
		case *Prim:
			return at == Int
		case integralType:
			return true
		case *Step:
			return at.Q != 0 && at.Q == math.Trunc(at.Q)
		case *Range:
			return at.Lo == at.Hi && at.Lo == math.Trunc(at.Lo)
		}
		return false

	case *Range:
		if ar, ok := a.(*Range); ok {
			return bt.Lo <= ar.Lo && ar.Hi <= bt.Hi
		}
		return false

	case *Step:
		switch at := a.(type) {
		case *Step:
			return isMultiple(at.Q, bt.Q)
		case *Prim:
			return at == Int && bt.Q != 0 && isMultiple(1, bt.Q)
		case integralType:
			return bt.Q != 0 && isMultiple(1, bt.Q)
		case *Range:
			return at.Lo == at.Hi && isMultiple(at.Lo, bt.Q)
		}
		return false

	case *Enum:
		ae, ok := a.(*Enum)
		return ok && ae.Tag == bt.Tag

	case *List:
		al, ok := a.(*List)
		return ok && IsSubtype(al.Elem, bt.Elem)

	case *Tuple:
		at, ok := a.(*Tuple)
		if !ok || len(at.Elems) != len(bt.Elems) {
			return false
		}
		for i := range at.Elems {
			if !IsSubtype(at.Elems[i], bt.Elems[i]) {
				return false
			}
		}
		return true

	case *MapOf:
		switch at := a.(type) {
		case *MapOf:
			return IsSubtype(at.Value, bt.Value)
		case *Record:
			for _, f := range at.Fields {
				if !IsSubtype(f.Type, bt.Value) {
					return false
				}
			}
			return true
		}
		return false

	case *Record:
		ar, ok := a.(*Record)
		if !ok || len(ar.Fields) != len(bt.Fields) {
			return false
		}
		for _, f := range bt.Fields {
			at, ok := ar.Field(f.Name)
			if !ok || !IsSubtype(at, f.Type) {
				return false
			}
		}
		return true

	case *Func:
		af, ok := a.(*Func)
		if !ok || len(af.Params) != len(bt.Params) {
			return false
		}
		for i := range af.Params {
			if !IsSubtype(bt.Params[i], af.Params[i]) {
				return false
			}
		}
		return IsSubtype(af.Ret, bt.Ret)
	}
	return false
}

// isEmpty spots intersections with two mutually exclusive members.
func isEmpty(i *Inter) bool {
	for x := 0; x < len(i.Types); x++ {
		for y := x + 1; y < len(i.Types); y++ {
			if Disjoint(i.Types[x], i.Types[y]) {
				return true
			}
		}
	}
	return false
}

func isNumeric(t Type) bool {
	switch v := t.(type) {
	case *Prim:
		return v == Int || v == Float
	case integralType, *Range, *Step:
		return true
	}
	return false
}

// numericBounds narrows an intersection of numeric refinements to the
// range all members agree on.
func numericBounds(t Type) (*Range, bool) {
	i, ok := t.(*Inter)
	if !ok {
		return nil, false
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	found := false
	for _, m := range i.Types {
		if r, ok := normalize(m).(*Range); ok {
			lo, hi = math.Max(lo, r.Lo), math.Min(hi, r.Hi)
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return &Range{Lo: lo, Hi: hi}, true
}

// shapes lists the object types a type can admit.
func shapes(t Type) map[object.ObjectType]bool {
	set := map[object.ObjectType]bool{}
	switch v := normalize(t).(type) {
	case *Prim:
		for _, s := range v.shape {
			set[s] = true
		}
	case integralType, *Range, *Step:
		set[object.INTEGER_OBJ] = true
		set[object.FLOAT_OBJ] = true
	case *Enum:
		set[object.STRING_OBJ] = true
	case *List:
		set[object.LIST_OBJ] = true
	case *Tuple:
		set[object.TUPLE_OBJ] = true
	case *MapOf, *Record:
		set[object.MAP_OBJ] = true
	case *Func:
		set[object.BUILTIN_OBJ] = true
		set[object.CLOSURE_OBJ] = true
	case *Union:
		for _, m := range v.Types {
			for s := range shapes(m) {
				set[s] = true
			}
		}
	default:
		return nil
	}
	return set
}

// Disjoint reports whether no value belongs to both a and b. It errs on the
// side of false.
func Disjoint(a, b Type) bool {
	a, b = normalize(a), normalize(b)
	if a == Never || b == Never {
		return true
	}
	if a == Any || b == Any {
		return false
	}
	if u, ok := a.(*Union); ok {
		for _, m := range u.Types {
			if !Disjoint(m, b) {
				return false
			}
		}
		return true
	}
	if _, ok := b.(*Union); ok {
		return Disjoint(b, a)
	}
	if n, ok := a.(*Not); ok {
		return IsSubtype(b, n.Inner)
	}
	if n, ok := b.(*Not); ok {
		return IsSubtype(a, n.Inner)
	}
	if i, ok := a.(*Inter); ok {
		for _, m := range i.Types {
			if Disjoint(m, b) {
				return true
			}
		}
		return false
	}
	if _, ok := b.(*Inter); ok {
		return Disjoint(b, a)
	}

	sa, sb := shapes(a), shapes(b)
	if sa != nil && sb != nil {
		overlap := false
		for s := range sa {
			if sb[s] {
				overlap = true
				break
			}
		}
		if !overlap {
			return true
		}
	}

	if ra, ok := a.(*Range); ok {
		if rb, ok := b.(*Range); ok {
			return ra.Hi < rb.Lo || rb.Hi < ra.Lo
		}
	}
	if ea, ok := a.(*Enum); ok {
		if eb, ok := b.(*Enum); ok {
			return ea.Tag != eb.Tag
		}
	}
	return false
}

// Join is the smallest type inference needs to cover both a and b.
func Join(a, b Type) Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if IsSubtype(a, b) {
		return b
	}
	if IsSubtype(b, a) {
		return a
	}
	if isNumeric(normalize(a)) && isNumeric(normalize(b)) {
		return Float
	}
	return NewUnion(a, b)
}

// Equivalent holds when a and b admit the same values.
func Equivalent(a, b Type) bool {
	return IsSubtype(a, b) && IsSubtype(b, a)
}
