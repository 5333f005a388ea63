package typesystem

import (
	"strings"

	"github.com/funvibe/dvi/internal/object"
)

// Type is a membership predicate over runtime values.
type Type interface {
	String() string
	Contains(v object.Object) bool
}

type anyType struct{}

func (anyType) String() string                { return "Any" }
func (anyType) Contains(v object.Object) bool { return v != nil }

type neverType struct{}

func (neverType) String() string              { return "Never" }
func (neverType) Contains(object.Object) bool { return false }

// Prim is a leaf type identified by the object shapes it admits.
type Prim struct {
	Name  string
	shape []object.ObjectType
}

func (p *Prim) String() string { return p.Name }
func (p *Prim) Contains(v object.Object) bool {
	if v == nil {
		return false
	}
	for _, s := range p.shape {
		if v.Type() == s {
			return true
		}
	}
	return false
}

var (
	Any   Type = anyType{}
	Never Type = neverType{}

	UnitType  = &Prim{Name: "Unit", shape: []object.ObjectType{object.UNIT_OBJ}}
	Bool      = &Prim{Name: "Bool", shape: []object.ObjectType{object.BOOLEAN_OBJ}}
	Int       = &Prim{Name: "Int", shape: []object.ObjectType{object.INTEGER_OBJ}}
	Float     = &Prim{Name: "Float", shape: []object.ObjectType{object.INTEGER_OBJ, object.FLOAT_OBJ}}
	Str       = &Prim{Name: "Str", shape: []object.ObjectType{object.STRING_OBJ}}
	PointType = &Prim{Name: "Point", shape: []object.ObjectType{object.POINT_OBJ}}
	ColorType = &Prim{Name: "Color", shape: []object.ObjectType{object.COLOR_OBJ}}
)

// Primitives maps the primitive keywords of the type grammar.
var Primitives = map[string]Type{
	"Any":      Any,
	"Unit":     UnitType,
	"Bool":     Bool,
	"Int":      Int,
	"Float":    Float,
	"Str":      Str,
	"Point":    PointType,
	"Color":    ColorType,
	"Integral": Integral,
}

// Alias is a named type introduced by a type definition. It is transparent:
// every operation looks through it.
type Alias struct {
	Name   string
	Target Type
}

func (a *Alias) String() string { return a.Name }
func (a *Alias) Contains(v object.Object) bool {
	if a.Target == nil {
		return false
	}
	return a.Target.Contains(v)
}

// Resolve strips aliases.
func Resolve(t Type) Type {
	for i := 0; i < 64; i++ {
		a, ok := t.(*Alias)
		if !ok || a.Target == nil {
			return t
		}
		t = a.Target
	}
	return t
}

func joinTypes(ts []Type, sep string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}
