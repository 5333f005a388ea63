package builtins

import (
	"errors"
	"math"
	"testing"

	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/typesystem"
)

func call(t *testing.T, name string, args ...object.Object) object.Object {
	t.Helper()
	spec, ok := Lookup(name)
	if !ok || spec.Builtin == nil {
		t.Fatalf("builtin %s not found", name)
	}
	if spec.NumArgs != len(args) {
		t.Fatalf("%s takes %d arguments, test passed %d", name, spec.NumArgs, len(args))
	}
	res, err := spec.Fn(args...)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return res
}

func TestBuiltins(t *testing.T) {
	i := func(v int64) object.Object { return &object.Integer{Value: v} }
	f := func(v float64) object.Object { return &object.Float{Value: v} }

	tests := []struct {
		name     string
		args     []object.Object
		expected string
	}{
		{"sin", []object.Object{i(0)}, "0.0"},
		{"cos", []object.Object{i(0)}, "1.0"},
		{"sqrt", []object.Object{i(9)}, "3.0"},
		{"abs", []object.Object{i(-4)}, "4"},
		{"abs", []object.Object{f(-1.5)}, "1.5"},
		{"min", []object.Object{i(3), f(2.5)}, "2.5"},
		{"max", []object.Object{i(3), f(2.5)}, "3"},
		{"len", []object.Object{&object.List{Elements: []object.Object{i(1), i(2)}}}, "2"},
		{"len", []object.Object{&object.String{Value: "héllo"}}, "5"},
		{"range", []object.Object{i(3)}, "[0, 1, 2]"},
		{"range", []object.Object{i(-2)}, "[]"},
		{"point", []object.Object{i(1), f(2.5)}, "(1,2.5)"},
		{"unpack", []object.Object{&object.Point{X: 1, Y: 2}}, "(1.0, 2.0)"},
		{"rgb", []object.Object{i(1), i(0), i(0)}, "#ff0000"},
		{"rgba", []object.Object{i(0), i(0), i(1), f(0.5)}, "#0000ff80"},
		{"rgb", []object.Object{i(2), i(-1), i(0)}, "#ff0000"},
	}
	for _, tt := range tests {
		got := call(t, tt.name, tt.args...).Inspect()
		if got != tt.expected {
			t.Errorf("%s%v: expected %s, got %s", tt.name, tt.args, tt.expected, got)
		}
	}
}

func TestDomainErrors(t *testing.T) {
	spec, _ := Lookup("sqrt")
	if _, err := spec.Fn(&object.Integer{Value: -1}); !errors.Is(err, ErrDomain) {
		t.Errorf("sqrt(-1): expected ErrDomain, got %v", err)
	}
	spec, _ = Lookup("range")
	if _, err := spec.Fn(&object.Float{Value: 1.5}); !errors.Is(err, ErrDomain) {
		t.Errorf("range(1.5): expected ErrDomain, got %v", err)
	}
	spec, _ = Lookup("len")
	if _, err := spec.Fn(&object.Integer{Value: 1}); err == nil {
		t.Errorf("len(1) should fail")
	}
}

func TestSignaturesMatchArity(t *testing.T) {
	for name, spec := range Builtins {
		if spec.Variadic {
			continue
		}
		if len(spec.Sig.Params) != spec.NumArgs {
			t.Errorf("%s: signature has %d params, builtin takes %d", name, len(spec.Sig.Params), spec.NumArgs)
		}
	}
}

func TestPrelude(t *testing.T) {
	pi, ok := TypeOf("pi")
	if !ok || pi != typesystem.Float {
		t.Fatalf("pi should be a Float constant, got %v", pi)
	}
	if v := Constants["pi"].(*object.Float).Value; v != math.Pi {
		t.Errorf("pi = %v", v)
	}
	if _, ok := TypeOf("nope"); ok {
		t.Errorf("unknown name has a type")
	}
	names := Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}
