package typesystem

import (
	"strings"

	"github.com/funvibe/dvi/internal/object"
)

type List struct {
	Elem Type
}

func (l *List) String() string { return "List of " + l.Elem.String() }
func (l *List) Contains(v object.Object) bool {
	list, ok := v.(*object.List)
	if !ok {
		return false
	}
	for _, e := range list.Elements {
		if !l.Elem.Contains(e) {
			return false
		}
	}
	return true
}

type Tuple struct {
	Elems []Type
}

func (t *Tuple) String() string { return "(" + joinTypes(t.Elems, ", ") + ")" }
func (t *Tuple) Contains(v object.Object) bool {
	tup, ok := v.(*object.Tuple)
	if !ok || len(tup.Elements) != len(t.Elems) {
		return false
	}
	for i, e := range tup.Elements {
		if !t.Elems[i].Contains(e) {
			return false
		}
	}
	return true
}

// MapOf is a string-keyed mapping with uniform values.
type MapOf struct {
	Value Type
}

func (m *MapOf) String() string { return "Map of " + m.Value.String() }
func (m *MapOf) Contains(v object.Object) bool {
	mp, ok := v.(*object.Map)
	if !ok {
		return false
	}
	for _, k := range mp.Keys {
		if !m.Value.Contains(mp.Values[k]) {
			return false
		}
	}
	return true
}

type Field struct {
	Name string
	Type Type
}

// Record is an exact field set. Methods take the record as an implicit
// receiver; Statics hang off the type name. Neither affects membership.
type Record struct {
	Fields  []Field
	Methods []Field
	Statics []Field
}

func (r *Record) Field(name string) (Type, bool) {
	return lookupField(r.Fields, name)
}

func (r *Record) Method(name string) (Type, bool) {
	return lookupField(r.Methods, name)
}

func (r *Record) Static(name string) (Type, bool) {
	return lookupField(r.Statics, name)
}

func lookupField(fs []Field, name string) (Type, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

func (r *Record) String() string {
	parts := make([]string, 0, len(r.Fields)+len(r.Methods)+len(r.Statics))
	for _, f := range r.Fields {
		parts = append(parts, "field "+f.Name+": "+f.Type.String())
	}
	for _, f := range r.Methods {
		parts = append(parts, "method "+f.Name+": "+f.Type.String())
	}
	for _, f := range r.Statics {
		parts = append(parts, "static "+f.Name+": "+f.Type.String())
	}
	return "{" + strings.Join(parts, "; ") + "}"
}

func (r *Record) Contains(v object.Object) bool {
	mp, ok := v.(*object.Map)
	if !ok || mp.Len() != len(r.Fields) {
		return false
	}
	for _, f := range r.Fields {
		val, ok := mp.Get(f.Name)
		if !ok || !f.Type.Contains(val) {
			return false
		}
	}
	return true
}

// Func is a callable signature. Proc is a Func returning Unit.
type Func struct {
	Params []Type
	Ret    Type
}

func NewProc(params ...Type) *Func {
	return &Func{Params: params, Ret: UnitType}
}

func (f *Func) IsProc() bool { return f.Ret == UnitType }

func (f *Func) String() string {
	if f.IsProc() {
		return "Proc(" + joinTypes(f.Params, ", ") + ")"
	}
	return "Func(" + joinTypes(f.Params, ", ") + ") -> " + f.Ret.String()
}

// Typed is implemented by runtime callables that remember their signature.
type Typed interface {
	DeclaredType() Type
}

func (f *Func) Contains(v object.Object) bool {
	c, ok := v.(object.Callable)
	if !ok {
		return false
	}
	if c.Arity() >= 0 && c.Arity() != len(f.Params) {
		return false
	}
	if typed, ok := v.(Typed); ok && typed.DeclaredType() != nil {
		return IsSubtype(typed.DeclaredType(), f)
	}
	return true
}
