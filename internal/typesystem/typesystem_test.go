package typesystem

import (
	"errors"
	"testing"

	"github.com/funvibe/dvi/internal/object"
)

func rec(fields ...Field) *Record { return &Record{Fields: fields} }

func TestIsSubtype(t *testing.T) {
	pointRec := rec(Field{"x", Float}, Field{"y", Float})
	intRec := rec(Field{"x", Int}, Field{"y", Int})

	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"int reflexive", Int, Int, true},
		{"int to float", Int, Float, true},
		{"float to int", Float, Int, false},
		{"range to float", NewRange(0, 10), Float, true},
		{"wider range", NewRange(0, 10), NewRange(0, 5), false},
		{"narrower range", NewRange(1, 4), NewRange(0, 5), true},
		{"int to integral", Int, Integral, true},
		{"float to integral", Float, Integral, false},
		{"step multiple", &Step{Q: 0.5}, &Step{Q: 0.25}, true},
		{"step not multiple", &Step{Q: 0.25}, &Step{Q: 0.5}, false},
		{"int to step", Int, &Step{Q: 0.5}, true},
		{"enum to str", &Enum{Tag: "round"}, Str, true},
		{"enum to union", &Enum{Tag: "round"}, NewEnum("bevel", "round"), true},
		{"enum outside union", &Enum{Tag: "butt"}, NewEnum("bevel", "round"), false},
		{"anything to any", PointType, Any, true},
		{"never to anything", Never, ColorType, true},
		{"any to int", Any, Int, false},
		{"list covariant", &List{Elem: Int}, &List{Elem: Float}, true},
		{"list not contravariant", &List{Elem: Float}, &List{Elem: Int}, false},
		{"tuple length", &Tuple{Elems: []Type{Int}}, &Tuple{Elems: []Type{Int, Int}}, false},
		{"record covariant", intRec, pointRec, true},
		{"record extra field", rec(Field{"x", Int}, Field{"y", Int}, Field{"z", Int}), pointRec, false},
		{"record to map", intRec, &MapOf{Value: Float}, true},
		{"func contravariant params", &Func{Params: []Type{Float}, Ret: Int}, &Func{Params: []Type{Int}, Ret: Float}, true},
		{"func covariant params rejected", &Func{Params: []Type{Int}, Ret: Int}, &Func{Params: []Type{Float}, Ret: Int}, false},
		{"union members", NewUnion(Int, NewRange(0, 1)), Float, true},
		{"into union", Int, NewUnion(Str, Int), true},
		{"inter into member", NewInter(Int, NewRange(0, 3)), NewRange(0, 3), true},
		{"inter of ranges", NewInter(NewRange(0, 10), NewRange(5, 20)), NewRange(5, 10), true},
		{"into not", Int, Complement(Str), true},
		{"not into not", Complement(Float), Complement(Int), true},
		{"diff", Difference(Float, Int), Float, true},
		{"diff excludes", Difference(NewUnion(Int, Str), Int), Str, true},
		{"alias transparent", &Alias{Name: "Size", Target: NewRange(0, 10)}, Float, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubtype(tt.a, tt.b); got != tt.want {
				t.Errorf("IsSubtype(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDisjoint(t *testing.T) {
	tests := []struct {
		a, b Type
		want bool
	}{
		{Int, Str, true},
		{Int, Float, false},
		{NewRange(0, 1), NewRange(2, 3), true},
		{NewRange(0, 2), NewRange(2, 3), false},
		{&Enum{Tag: "a"}, &Enum{Tag: "b"}, true},
		{Never, Any, true},
		{Any, Int, false},
		{NewUnion(Int, Str), ColorType, true},
		{Complement(Int), Int, true},
	}
	for _, tt := range tests {
		if got := Disjoint(tt.a, tt.b); got != tt.want {
			t.Errorf("Disjoint(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join(Int, Float); got != Float {
		t.Errorf("Join(Int, Float) = %s, want Float", got)
	}
	if got := Join(Int, Int); got != Int {
		t.Errorf("Join(Int, Int) = %s, want Int", got)
	}
	if got := Join(Str, UnitType); got.String() != "Union{Str, Unit}" {
		t.Errorf("Join(Str, Unit) = %s", got)
	}
	if got := Join(nil, Bool); got != Bool {
		t.Errorf("Join(nil, Bool) = %s", got)
	}
}

func TestContains(t *testing.T) {
	pt := object.NewMap()
	pt.Set("x", &object.Integer{Value: 1})
	pt.Set("y", &object.Float{Value: 2.5})

	tests := []struct {
		name string
		t    Type
		v    object.Object
		want bool
	}{
		{"int in float", Float, &object.Integer{Value: 3}, true},
		{"float not in int", Int, &object.Float{Value: 3}, false},
		{"range inclusive", NewRange(0, 10), &object.Integer{Value: 10}, true},
		{"range outside", NewRange(0, 10), &object.Float{Value: 10.5}, false},
		{"integral float", Integral, &object.Float{Value: 4}, true},
		{"integral fraction", Integral, &object.Float{Value: 4.5}, false},
		{"step noise", &Step{Q: 0.1}, &object.Float{Value: 0.30000000000000004}, true},
		{"enum", NewEnum("bevel", "miter"), &object.String{Value: "miter"}, true},
		{"enum miss", NewEnum("bevel", "miter"), &object.String{Value: "round"}, false},
		{"record exact", rec(Field{"x", Float}, Field{"y", Float}), pt, true},
		{"record missing", rec(Field{"x", Float}, Field{"y", Float}, Field{"z", Float}), pt, false},
		{"record extra", rec(Field{"x", Float}), pt, false},
		{"map of", &MapOf{Value: Float}, pt, true},
		{"list", &List{Elem: Int}, &object.List{Elements: []object.Object{&object.Integer{Value: 1}}}, true},
		{"not", Complement(Str), &object.Integer{Value: 1}, true},
		{"symdiff", SymmetricDifference(Float, Int), &object.Integer{Value: 1}, false},
		{"symdiff float", SymmetricDifference(Float, Int), &object.Float{Value: 1.5}, true},
		{"any nil", Any, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.Contains(tt.v); got != tt.want {
				t.Errorf("%s.Contains(%v) = %v, want %v", tt.t, tt.v, got, tt.want)
			}
		})
	}
}

func TestCheckErrors(t *testing.T) {
	want := rec(Field{"x", Float}, Field{"y", Float})

	var missing *MissingFieldError
	if err := Check(want, rec(Field{"x", Float})); !errors.As(err, &missing) || missing.Field != "y" {
		t.Errorf("expected missing field y, got %v", err)
	}

	var extra *ExtraFieldError
	got := rec(Field{"x", Float}, Field{"y", Float}, Field{"z", Str})
	if err := Check(want, got); !errors.As(err, &extra) || extra.Field != "z" {
		t.Errorf("expected extra field z, got %v", err)
	}

	var arity *ArityError
	if err := Check(NewProc(Int), NewProc(Int, Int)); !errors.As(err, &arity) {
		t.Errorf("expected arity error, got %v", err)
	}

	var mismatch *MismatchError
	if err := Check(Int, Str); !errors.As(err, &mismatch) {
		t.Errorf("expected mismatch, got %v", err)
	}

	if err := Check(Float, NewRange(0, 1)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExplain(t *testing.T) {
	if err := Explain(NewRange(0, 10), &object.Integer{Value: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Explain(NewRange(0, 10), &object.Integer{Value: 12})
	if err == nil || err.Error() != "type mismatch: expected Range(0, 10), got Int 12" {
		t.Errorf("got %v", err)
	}
	m := object.NewMap()
	m.Set("x", &object.Integer{Value: 1})
	var missing *MissingFieldError
	if err := Explain(rec(Field{"x", Int}, Field{"y", Int}), m); !errors.As(err, &missing) {
		t.Errorf("expected missing field, got %v", err)
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		t    Type
		want string
	}{
		{&List{Elem: Int}, "List of Int"},
		{&MapOf{Value: Str}, "Map of Str"},
		{&Tuple{Elems: []Type{Int, PointType}}, "(Int, Point)"},
		{NewProc(Float), "Proc(Float)"},
		{&Func{Params: []Type{Int}, Ret: Bool}, "Func(Int) -> Bool"},
		{NewRange(0, 1.5), "Range(0, 1.5)"},
		{&Step{Q: 0.25}, "Step(0.25)"},
		{NewEnum("a"), `"a"`},
		{Complement(Int), "Not(Int)"},
		{rec(Field{"x", Int}), "{field x: Int}"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
