// Package builtins holds the prelude functions shared by the structured
// language and the command-stream words.
package builtins

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/typesystem"
)

// ErrDomain reports an argument outside a builtin's domain.
var ErrDomain = errors.New("argument out of domain")

// Spec pairs a builtin with its static signature.
type Spec struct {
	*object.Builtin
	Sig *typesystem.Func

	// Variadic builtins accept any number of arguments of any type. They
	// have no Go implementation; the compiler lowers them.
	Variadic bool
}

var (
	num     = typesystem.Float
	pt      = typesystem.PointType
	anyColl = typesystem.NewUnion(
		&typesystem.List{Elem: typesystem.Any},
		&typesystem.MapOf{Value: typesystem.Any},
		typesystem.Str,
	)
)

func fn(ret typesystem.Type, params ...typesystem.Type) *typesystem.Func {
	return &typesystem.Func{Params: params, Ret: ret}
}

var Builtins = map[string]*Spec{
	config.SinFuncName:   unary(config.SinFuncName, math.Sin),
	config.CosFuncName:   unary(config.CosFuncName, math.Cos),
	config.SqrtFuncName:  {Builtin: &object.Builtin{Name: config.SqrtFuncName, NumArgs: 1, Fn: builtinSqrt}, Sig: fn(num, num)},
	config.AbsFuncName:   {Builtin: &object.Builtin{Name: config.AbsFuncName, NumArgs: 1, Fn: builtinAbs}, Sig: fn(num, num)},
	config.MinFuncName:   {Builtin: &object.Builtin{Name: config.MinFuncName, NumArgs: 2, Fn: pick(func(a, b float64) bool { return a <= b })}, Sig: fn(num, num, num)},
	config.MaxFuncName:   {Builtin: &object.Builtin{Name: config.MaxFuncName, NumArgs: 2, Fn: pick(func(a, b float64) bool { return a >= b })}, Sig: fn(num, num, num)},
	config.LenFuncName:   {Builtin: &object.Builtin{Name: config.LenFuncName, NumArgs: 1, Fn: builtinLen}, Sig: fn(typesystem.Int, anyColl)},
	config.RangeFuncName: {Builtin: &object.Builtin{Name: config.RangeFuncName, NumArgs: 1, Fn: builtinRange}, Sig: fn(&typesystem.List{Elem: typesystem.Int}, typesystem.Int)},
	config.PointFuncName: {Builtin: &object.Builtin{Name: config.PointFuncName, NumArgs: 2, Fn: builtinPoint}, Sig: fn(pt, num, num)},
	config.UnpackName:    {Builtin: &object.Builtin{Name: config.UnpackName, NumArgs: 1, Fn: builtinUnpack}, Sig: fn(&typesystem.Tuple{Elems: []typesystem.Type{num, num}}, pt)},
	config.RgbFuncName:   {Builtin: &object.Builtin{Name: config.RgbFuncName, NumArgs: 3, Fn: builtinRgb}, Sig: fn(typesystem.ColorType, num, num, num)},
	config.RgbaFuncName:  {Builtin: &object.Builtin{Name: config.RgbaFuncName, NumArgs: 4, Fn: builtinRgb}, Sig: fn(typesystem.ColorType, num, num, num, num)},
	config.EmitFuncName:  {Sig: fn(typesystem.UnitType), Variadic: true},
}

// Constants are prelude values rather than functions.
var Constants = map[string]object.Object{
	config.PiConstName: &object.Float{Value: math.Pi},
}

func Lookup(name string) (*Spec, bool) {
	s, ok := Builtins[name]
	return s, ok
}

// Names lists builtins and constants in a stable order.
func Names() []string {
	names := make([]string, 0, len(Builtins)+len(Constants))
	for n := range Builtins {
		names = append(names, n)
	}
	for n := range Constants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TypeOf is the static type of a prelude name.
func TypeOf(name string) (typesystem.Type, bool) {
	if s, ok := Builtins[name]; ok {
		return s.Sig, true
	}
	if c, ok := Constants[name]; ok {
		return typesystem.Of(c), true
	}
	return nil, false
}

func unary(name string, f func(float64) float64) *Spec {
	return &Spec{
		Builtin: &object.Builtin{Name: name, NumArgs: 1, Fn: func(args ...object.Object) (object.Object, error) {
			x, err := number(name, args[0])
			if err != nil {
				return nil, err
			}
			return &object.Float{Value: f(x)}, nil
		}},
		Sig: fn(num, num),
	}
}

func number(name string, o object.Object) (float64, error) {
	f, ok := object.ToFloat(o)
	if !ok {
		return 0, fmt.Errorf("%s: expected a number, got %s", name, object.TypeName(o))
	}
	return f, nil
}

func builtinSqrt(args ...object.Object) (object.Object, error) {
	x, err := number(config.SqrtFuncName, args[0])
	if err != nil {
		return nil, err
	}
	if x < 0 {
		return nil, fmt.Errorf("sqrt of %s: %w", args[0].Inspect(), ErrDomain)
	}
	return &object.Float{Value: math.Sqrt(x)}, nil
}

func builtinAbs(args ...object.Object) (object.Object, error) {
	if i, ok := args[0].(*object.Integer); ok {
		if i.Value < 0 {
			return &object.Integer{Value: -i.Value}, nil
		}
		return i, nil
	}
	x, err := number(config.AbsFuncName, args[0])
	if err != nil {
		return nil, err
	}
	return &object.Float{Value: math.Abs(x)}, nil
}

// pick returns the first argument when keep holds, else the second. The
// chosen argument keeps its own representation.
func pick(keep func(a, b float64) bool) object.BuiltinFunction {
	return func(args ...object.Object) (object.Object, error) {
		a, err := number("min/max", args[0])
		if err != nil {
			return nil, err
		}
		b, err := number("min/max", args[1])
		if err != nil {
			return nil, err
		}
		if keep(a, b) {
			return args[0], nil
		}
		return args[1], nil
	}
}

func builtinLen(args ...object.Object) (object.Object, error) {
	switch v := args[0].(type) {
	case *object.List:
		return &object.Integer{Value: int64(len(v.Elements))}, nil
	case *object.Tuple:
		return &object.Integer{Value: int64(len(v.Elements))}, nil
	case *object.Map:
		return &object.Integer{Value: int64(v.Len())}, nil
	case *object.String:
		return &object.Integer{Value: int64(len([]rune(v.Value)))}, nil
	}
	return nil, fmt.Errorf("len: expected a collection, got %s", object.TypeName(args[0]))
}

func builtinRange(args ...object.Object) (object.Object, error) {
	f, err := number(config.RangeFuncName, args[0])
	if err != nil {
		return nil, err
	}
	if f != math.Trunc(f) || f > config.MaxRangeLength {
		return nil, fmt.Errorf("range of %s: %w", args[0].Inspect(), ErrDomain)
	}
	n := int(f)
	if n < 0 {
		n = 0
	}
	elems := make([]object.Object, n)
	for i := range elems {
		elems[i] = &object.Integer{Value: int64(i)}
	}
	return &object.List{Elements: elems}, nil
}

func builtinPoint(args ...object.Object) (object.Object, error) {
	x, err := number(config.PointFuncName, args[0])
	if err != nil {
		return nil, err
	}
	y, err := number(config.PointFuncName, args[1])
	if err != nil {
		return nil, err
	}
	return &object.Point{X: x, Y: y}, nil
}

func builtinUnpack(args ...object.Object) (object.Object, error) {
	p, ok := args[0].(*object.Point)
	if !ok {
		return nil, fmt.Errorf("unpack: expected a Point, got %s", object.TypeName(args[0]))
	}
	return &object.Tuple{Elements: []object.Object{&object.Float{Value: p.X}, &object.Float{Value: p.Y}}}, nil
}

// builtinRgb serves rgb and rgba; channels are clamped to [0,1].
func builtinRgb(args ...object.Object) (object.Object, error) {
	ch := [4]float64{0, 0, 0, 1}
	for i, a := range args {
		v, err := number(config.RgbFuncName, a)
		if err != nil {
			return nil, err
		}
		ch[i] = math.Max(0, math.Min(1, v))
	}
	return &object.Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}
