package dvi

import (
	"fmt"
	"image/color"
	"reflect"
	"sort"

	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/surface"
)

// Marshaller handles conversion between Go and dvi values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value to a dvi value. Numbers, booleans, strings,
// slices and string-keyed maps convert structurally; surface.Point,
// [2]float64 and image/color values become points and colours.
func (m *Marshaller) ToValue(val interface{}) (object.Object, error) {
	if val == nil {
		return nil, fmt.Errorf("cannot convert nil")
	}
	if obj, ok := val.(object.Object); ok {
		return obj, nil
	}
	switch v := val.(type) {
	case surface.Point:
		return &object.Point{X: v.X, Y: v.Y}, nil
	case surface.Color:
		return &object.Color{R: v.R, G: v.G, B: v.B, A: v.A}, nil
	case [2]float64:
		return &object.Point{X: v[0], Y: v[1]}, nil
	case color.Color:
		c := color.NRGBAModel.Convert(v).(color.NRGBA)
		return &object.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255, A: float64(c.A) / 255}, nil
	}

	// Unpack interface if it's contained in one
	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("cannot convert nil %s", v.Type())
		}
		return m.ToValue(v.Elem().Interface())
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &object.Integer{Value: v.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return &object.Integer{Value: int64(v.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return &object.Float{Value: v.Float()}, nil
	case reflect.Bool:
		return object.Bool(v.Bool()), nil
	case reflect.String:
		return &object.String{Value: v.String()}, nil
	case reflect.Slice, reflect.Array:
		return m.sliceToList(v)
	case reflect.Map:
		return m.mapToMap(v)
	case reflect.Struct:
		return m.structToMap(v)
	}
	return nil, fmt.Errorf("unsupported Go type %s", v.Type())
}

func (m *Marshaller) sliceToList(v reflect.Value) (*object.List, error) {
	elements := make([]object.Object, v.Len())
	for i := 0; i < v.Len(); i++ {
		val, err := m.ToValue(v.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elements[i] = val
	}
	return &object.List{Elements: elements}, nil
}

// mapToMap orders keys so that conversion is deterministic.
func (m *Marshaller) mapToMap(v reflect.Value) (*object.Map, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map keys must be strings, got %s", v.Type().Key())
	}
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	result := object.NewMap()
	for _, k := range keys {
		val, err := m.ToValue(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())).Interface())
		if err != nil {
			return nil, fmt.Errorf("map value %q: %w", k, err)
		}
		result.Set(k, val)
	}
	return result, nil
}

// structToMap converts exported fields in declaration order, honouring a
// dvi:"name" tag.
func (m *Marshaller) structToMap(v reflect.Value) (*object.Map, error) {
	result := object.NewMap()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" { // Skip unexported fields
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("dvi"); tag != "" {
			if tag == "-" {
				continue
			}
			name = tag
		}
		val, err := m.ToValue(v.Field(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		result.Set(name, val)
	}
	return result, nil
}

// FromValue converts a dvi value to plain Go data: int64, float64, bool,
// string, surface.Point, surface.Color, []interface{} and
// map[string]interface{}.
func (m *Marshaller) FromValue(obj object.Object) (interface{}, error) {
	switch o := obj.(type) {
	case nil:
		return nil, nil
	case *object.Integer:
		return o.Value, nil
	case *object.Float:
		return o.Value, nil
	case *object.Boolean:
		return o.Value, nil
	case *object.String:
		return o.Value, nil
	case *object.Unit:
		return nil, nil
	case *object.Point:
		return surface.Point{X: o.X, Y: o.Y}, nil
	case *object.Color:
		return surface.Color{R: o.R, G: o.G, B: o.B, A: o.A}, nil
	case *object.List:
		return m.listToSlice(o.Elements)
	case *object.Tuple:
		return m.listToSlice(o.Elements)
	case *object.Map:
		out := make(map[string]interface{}, o.Len())
		for _, k := range o.Keys {
			v, err := m.FromValue(o.Values[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported type for conversion: %s", obj.Type())
}

func (m *Marshaller) listToSlice(elems []object.Object) ([]interface{}, error) {
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		v, err := m.FromValue(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
