// Package params moves render-time parameters in and out of YAML.
//
// Describe exports what a chunk declares so that a host can build a form
// or a config file; Load decodes such a file back into an environment and
// checks every value against its declared type.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/typesystem"
	"github.com/funvibe/dvi/internal/vm"

	"gopkg.in/yaml.v3"
)

// Entry is the exported form of one parameter.
type Entry struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	Doc     string      `yaml:"doc,omitempty"`
	Example interface{} `yaml:"example,omitempty"`
	Line    int         `yaml:"line,omitempty"`
}

// Document is the top level of a Describe result.
type Document struct {
	Params []Entry `yaml:"params"`
}

// Describe renders the declared parameters as YAML, in declaration order.
func Describe(specs []vm.ParamSpec) ([]byte, error) {
	doc := Document{Params: make([]Entry, 0, len(specs))}
	for _, p := range specs {
		e := Entry{Name: p.Name, Doc: p.Doc, Line: p.Line, Type: "Any"}
		if p.Type != nil {
			e.Type = p.Type.String()
		}
		if p.Example != nil {
			e.Example = ToGo(p.Example)
		}
		doc.Params = append(doc.Params, e)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding parameters: %w", err)
	}
	return out, nil
}

// Template is a ready-to-edit environment holding every example value.
func Template(specs []vm.ParamSpec) ([]byte, error) {
	var root yaml.Node
	root.Kind = yaml.MappingNode
	for _, p := range specs {
		if p.Example == nil {
			continue
		}
		var val yaml.Node
		if err := val.Encode(ToGo(p.Example)); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", p.Name, err)
		}
		key := yaml.Node{Kind: yaml.ScalarNode, Value: p.Name, LineComment: p.Doc}
		root.Content = append(root.Content, &key, &val)
	}
	return yaml.Marshal(&root)
}

// ToGo converts a value to plain Go data for encoding. Points become
// [x, y] pairs and colours their hex spelling.
func ToGo(o object.Object) interface{} {
	switch v := o.(type) {
	case *object.Integer:
		return v.Value
	case *object.Float:
		return v.Value
	case *object.Boolean:
		return v.Value
	case *object.String:
		return v.Value
	case *object.Point:
		return []float64{v.X, v.Y}
	case *object.Color:
		return v.Inspect()
	case *object.List:
		return sliceToGo(v.Elements)
	case *object.Tuple:
		return sliceToGo(v.Elements)
	case *object.Map:
		out := make(map[string]interface{}, v.Len())
		for _, k := range v.Keys {
			out[k] = ToGo(v.Values[k])
		}
		return out
	}
	return o.Inspect()
}

func sliceToGo(elems []object.Object) []interface{} {
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		out[i] = ToGo(e)
	}
	return out
}

type options struct {
	examples bool
}

// Option changes how Load fills the environment.
type Option func(*options)

// WithExamples fills parameters the document omits with their example
// value. Without it a missing parameter is left for the VM to reject.
func WithExamples() Option {
	return func(o *options) { o.examples = true }
}

// Load decodes a YAML mapping of parameter values. Every value must belong
// to its declared type and every key must name a declared parameter.
func Load(data []byte, specs []vm.ParamSpec, opts ...Option) (vm.Env, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	env := make(vm.Env, len(specs))

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing parameters: %w", err)
	}
	if len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("parameters must be a mapping, line %d", root.Line)
		}
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, val := root.Content[i], root.Content[i+1]
			spec, ok := find(specs, key.Value)
			if !ok {
				return nil, fmt.Errorf("line %d: unknown parameter %q", key.Line, key.Value)
			}
			v, err := Decode(val, spec.Type)
			if err != nil {
				return nil, fmt.Errorf("line %d: parameter %q: %w", val.Line, key.Value, err)
			}
			env[key.Value] = v
		}
	}

	if o.examples {
		for name, v := range Examples(specs) {
			if _, ok := env[name]; !ok {
				env[name] = v
			}
		}
	}
	return env, nil
}

// Examples is the environment made of example values alone.
func Examples(specs []vm.ParamSpec) vm.Env {
	env := make(vm.Env, len(specs))
	for _, p := range specs {
		if p.Example != nil {
			env[p.Name] = p.Example
		}
	}
	return env
}

func find(specs []vm.ParamSpec, name string) (vm.ParamSpec, bool) {
	for _, p := range specs {
		if p.Name == name {
			return p, true
		}
	}
	return vm.ParamSpec{}, false
}

// Decode converts one YAML node to a value of type t. A node can spell
// several values (a two element sequence is a point or a list, "#fff" is
// a colour or a string); the first one t contains wins.
func Decode(n *yaml.Node, t typesystem.Type) (object.Object, error) {
	cands, err := candidates(n)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return cands[0], nil
	}
	for _, c := range cands {
		if t.Contains(c) {
			return c, nil
		}
	}
	return nil, typesystem.Explain(t, cands[0])
}

func candidates(n *yaml.Node) ([]object.Object, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return candidates(n.Alias)
	case yaml.ScalarNode:
		return scalar(n)
	case yaml.SequenceNode:
		elems := make([]object.Object, len(n.Content))
		for i, c := range n.Content {
			cs, err := candidates(c)
			if err != nil {
				return nil, err
			}
			elems[i] = cs[0]
		}
		var out []object.Object
		if len(elems) == 2 {
			x, okX := object.ToFloat(elems[0])
			y, okY := object.ToFloat(elems[1])
			if okX && okY {
				out = append(out, &object.Point{X: x, Y: y})
			}
		}
		return append(out, &object.List{Elements: elems}, &object.Tuple{Elements: elems}), nil
	case yaml.MappingNode:
		m := object.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			cs, err := candidates(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, cs[0])
		}
		return []object.Object{m}, nil
	}
	return nil, fmt.Errorf("unsupported YAML node at line %d", n.Line)
}

func scalar(n *yaml.Node) ([]object.Object, error) {
	switch n.ShortTag() {
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", n.Value)
		}
		return []object.Object{&object.Integer{Value: v}, &object.Float{Value: float64(v)}}, nil
	case "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("bad number %q", n.Value)
		}
		return []object.Object{&object.Float{Value: v}}, nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("bad boolean %q", n.Value)
		}
		return []object.Object{object.Bool(v)}, nil
	case "!!null":
		return nil, fmt.Errorf("parameter value is null")
	}
	s := &object.String{Value: n.Value}
	if c, ok := ParseColor(n.Value); ok {
		return []object.Object{c, s}, nil
	}
	return []object.Object{s}, nil
}

// ParseColor reads #rgb, #rrggbb or #rrggbbaa.
func ParseColor(s string) (*object.Color, bool) {
	if !strings.HasPrefix(s, "#") {
		return nil, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	switch len(hex) {
	case 6:
		hex += "ff"
	case 8:
	default:
		return nil, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, false
	}
	return object.ColorFromHex(uint32(v)), true
}
