package typesystem

import (
	"github.com/funvibe/dvi/internal/object"
)

// Union holds when any member holds.
type Union struct {
	Types []Type
}

func (u *Union) String() string { return "Union{" + joinTypes(u.Types, ", ") + "}" }
func (u *Union) Contains(v object.Object) bool {
	for _, t := range u.Types {
		if t.Contains(v) {
			return true
		}
	}
	return false
}

// Inter holds when every member holds.
type Inter struct {
	Types []Type
}

func (i *Inter) String() string { return "Inter{" + joinTypes(i.Types, ", ") + "}" }
func (i *Inter) Contains(v object.Object) bool {
	for _, t := range i.Types {
		if !t.Contains(v) {
			return false
		}
	}
	return true
}

// Not is the complement of Inner.
type Not struct {
	Inner Type
}

func (n *Not) String() string                { return "Not(" + n.Inner.String() + ")" }
func (n *Not) Contains(v object.Object) bool { return v != nil && !n.Inner.Contains(v) }

// Diff holds for members of A that are not members of B.
type Diff struct {
	A, B Type
}

func (d *Diff) String() string { return "Diff(" + d.A.String() + ", " + d.B.String() + ")" }
func (d *Diff) Contains(v object.Object) bool {
	return d.A.Contains(v) && !d.B.Contains(v)
}

// SymDiff holds for members of exactly one side.
type SymDiff struct {
	A, B Type
}

func (s *SymDiff) String() string { return "SymDiff{" + s.A.String() + ", " + s.B.String() + "}" }
func (s *SymDiff) Contains(v object.Object) bool {
	return s.A.Contains(v) != s.B.Contains(v)
}

// NewUnion flattens nested unions and drops duplicates and Never.
func NewUnion(ts ...Type) Type {
	var out []Type
	seen := map[string]bool{}
	var add func(t Type)
	add = func(t Type) {
		if u, ok := t.(*Union); ok {
			for _, m := range u.Types {
				add(m)
			}
			return
		}
		if t == Never {
			return
		}
		key := t.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, t)
	}
	for _, t := range ts {
		add(t)
	}
	for _, t := range out {
		if t == Any {
			return Any
		}
	}
	switch len(out) {
	case 0:
		return Never
	case 1:
		return out[0]
	}
	return &Union{Types: out}
}

// NewInter flattens nested intersections.
func NewInter(ts ...Type) Type {
	var out []Type
	seen := map[string]bool{}
	var add func(t Type)
	add = func(t Type) {
		if i, ok := t.(*Inter); ok {
			for _, m := range i.Types {
				add(m)
			}
			return
		}
		if t == Any {
			return
		}
		key := t.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, t)
	}
	for _, t := range ts {
		add(t)
	}
	for _, t := range out {
		if t == Never {
			return Never
		}
	}
	switch len(out) {
	case 0:
		return Any
	case 1:
		return out[0]
	}
	return &Inter{Types: out}
}

// Complement negates t, cancelling double negation.
func Complement(t Type) Type {
	if n, ok := t.(*Not); ok {
		return n.Inner
	}
	switch t {
	case Any:
		return Never
	case Never:
		return Any
	}
	return &Not{Inner: t}
}

func Difference(a, b Type) Type {
	return &Diff{A: a, B: b}
}

func SymmetricDifference(a, b Type) Type {
	return &SymDiff{A: a, B: b}
}

// normalize rewrites Diff and SymDiff into Union/Inter/Not and strips aliases
// at the top level.
func normalize(t Type) Type {
	t = Resolve(t)
	switch v := t.(type) {
	case *Diff:
		return NewInter(v.A, Complement(v.B))
	case *SymDiff:
		return NewUnion(NewInter(v.A, Complement(v.B)), NewInter(v.B, Complement(v.A)))
	case *Not:
		inner := normalize(v.Inner)
		if n, ok := inner.(*Not); ok {
			return normalize(n.Inner)
		}
		return Complement(inner)
	}
	return t
}
