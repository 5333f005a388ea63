package typesystem

import "github.com/funvibe/dvi/internal/object"

// Of returns the narrowest type describing a constant value. Strings
// become enum tags so they can satisfy enumerations.
func Of(v object.Object) Type {
	switch o := v.(type) {
	case *object.Unit:
		return UnitType
	case *object.Boolean:
		return Bool
	case *object.Integer:
		return Int
	case *object.Float:
		return Float
	case *object.String:
		return &Enum{Tag: o.Value}
	case *object.Point:
		return PointType
	case *object.Color:
		return ColorType
	case *object.List:
		var elem Type = Never
		for _, e := range o.Elements {
			elem = Join(elem, Of(e))
		}
		return &List{Elem: elem}
	case *object.Tuple:
		elems := make([]Type, len(o.Elements))
		for i, e := range o.Elements {
			elems[i] = Of(e)
		}
		return &Tuple{Elems: elems}
	case *object.Map:
		rec := &Record{}
		for _, k := range o.Keys {
			rec.Fields = append(rec.Fields, Field{Name: k, Type: Of(o.Values[k])})
		}
		return rec
	case Typed:
		if t := o.DeclaredType(); t != nil {
			return t
		}
	}
	return Any
}
