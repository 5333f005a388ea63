package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ObjectType string

const (
	UNIT_OBJ    = "UNIT"
	BOOLEAN_OBJ = "BOOLEAN"
	INTEGER_OBJ = "INTEGER"
	FLOAT_OBJ   = "FLOAT"
	STRING_OBJ  = "STRING"
	POINT_OBJ   = "POINT"
	COLOR_OBJ   = "COLOR"
	LIST_OBJ    = "LIST"
	TUPLE_OBJ   = "TUPLE"
	MAP_OBJ     = "MAP"
	BUILTIN_OBJ = "BUILTIN"
	CLOSURE_OBJ = "CLOSURE"
)

// Object is a runtime value. Objects are immutable once built.
type Object interface {
	Type() ObjectType
	Inspect() string
}

type Unit struct{}

func (u *Unit) Type() ObjectType { return UNIT_OBJ }
func (u *Unit) Inspect() string  { return "()" }

// UnitValue is the shared unit instance.
var UnitValue = &Unit{}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

var (
	True  = &Boolean{Value: true}
	False = &Boolean{Value: false}
)

func Bool(v bool) *Boolean {
	if v {
		return True
	}
	return False
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType { return FLOAT_OBJ }
func (f *Float) Inspect() string  { return FormatFloat(f.Value) }

// FormatFloat prints the shortest form that still reads back as a float.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return strconv.Quote(s.Value) }

type Point struct {
	X, Y float64
}

func (p *Point) Type() ObjectType { return POINT_OBJ }
func (p *Point) Inspect() string {
	return "(" + formatCoord(p.X) + "," + formatCoord(p.Y) + ")"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Color channels are in [0,1].
type Color struct {
	R, G, B, A float64
}

func (c *Color) Type() ObjectType { return COLOR_OBJ }
func (c *Color) Inspect() string {
	r, g, b, a := c.RGBA8()
	if a == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, a)
}

// RGBA8 quantises the channels to bytes.
func (c *Color) RGBA8() (r, g, b, a uint8) {
	q := func(v float64) uint8 {
		return uint8(math.Round(clamp01(v) * 255))
	}
	return q(c.R), q(c.G), q(c.B), q(c.A)
}

// ColorFromHex unpacks 0xRRGGBBAA.
func ColorFromHex(v uint32) *Color {
	return &Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string  { return "[" + joinInspect(l.Elements) + "]" }
func (l *List) Len() int         { return len(l.Elements) }

type Tuple struct {
	Elements []Object
}

func (t *Tuple) Type() ObjectType { return TUPLE_OBJ }
func (t *Tuple) Inspect() string  { return "(" + joinInspect(t.Elements) + ")" }

// Map is an insertion-ordered string-keyed mapping. Records are maps at
// run time; their type is checked structurally.
type Map struct {
	Keys   []string
	Values map[string]Object
}

func NewMap() *Map {
	return &Map{Values: make(map[string]Object)}
}

// Set adds or replaces key. Only used while building a map.
func (m *Map) Set(key string, val Object) {
	if _, ok := m.Values[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.Values[key] = val
}

func (m *Map) Get(key string) (Object, bool) {
	v, ok := m.Values[key]
	return v, ok
}

func (m *Map) Len() int { return len(m.Keys) }

func (m *Map) Type() ObjectType { return MAP_OBJ }
func (m *Map) Inspect() string {
	if len(m.Keys) == 0 {
		return "{:}"
	}
	parts := make([]string, len(m.Keys))
	for i, k := range m.Keys {
		parts[i] = k + ": " + m.Values[k].Inspect()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// BuiltinFunction is the Go side of a builtin.
type BuiltinFunction func(args ...Object) (Object, error)

type Builtin struct {
	Name    string
	NumArgs int // -1 for variadic
	Fn      BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "<builtin " + b.Name + ">" }
func (b *Builtin) Arity() int       { return b.NumArgs }

// Callable is implemented by builtins and compiled closures.
type Callable interface {
	Object
	Arity() int
}

func joinInspect(objs []Object) string {
	parts := make([]string, len(objs))
	for i, o := range objs {
		parts[i] = o.Inspect()
	}
	return strings.Join(parts, ", ")
}
