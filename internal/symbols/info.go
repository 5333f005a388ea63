package symbols

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/typesystem"
)

// ParamInfo is the metadata a declared render-time parameter exposes to
// configuration tooling.
type ParamInfo struct {
	Name    string
	Type    typesystem.Type
	Doc     string
	Example object.Object
	Token   token.Token
}

type MemberKind int

const (
	FieldRef MemberKind = iota
	MethodRef
	StaticRef
	ConstRef
)

// MemberRef says how a selection compiles. Field selections read the value
// itself; the other kinds load a hidden member binding.
type MemberRef struct {
	Kind MemberKind
	Res  Resolution
}

// Info is the bound program.
type Info struct {
	// Resolutions maps every identifier in expression position.
	Resolutions map[*ast.Identifier]Resolution

	// Defs maps declaring identifiers (let, for, parameters, func and proc
	// names) to the symbol they introduce.
	Defs map[*ast.Identifier]*Symbol

	// Members maps record const, method and static declarations to their
	// hidden bindings.
	Members map[ast.RecordMember]*Symbol

	// Selections maps member expressions that are not plain field reads.
	Selections map[*ast.MemberExpression]MemberRef

	// Types is the inferred type of every expression.
	Types map[ast.Expression]typesystem.Type

	// Frames holds the layout of the program, every function, method and
	// loop body, keyed by the owning node.
	Frames map[ast.Node]*Frame

	// Builtins lists builtin calls keyed by call expression; the compiler
	// emits them as direct builtin instructions.
	Builtins map[*ast.CallExpression]string

	Params []ParamInfo
}

func NewInfo() *Info {
	return &Info{
		Resolutions: make(map[*ast.Identifier]Resolution),
		Defs:        make(map[*ast.Identifier]*Symbol),
		Members:     make(map[ast.RecordMember]*Symbol),
		Selections:  make(map[*ast.MemberExpression]MemberRef),
		Types:       make(map[ast.Expression]typesystem.Type),
		Frames:      make(map[ast.Node]*Frame),
		Builtins:    make(map[*ast.CallExpression]string),
	}
}

// TypeOf returns the inferred type of e, or Any when unknown.
func (i *Info) TypeOf(e ast.Expression) typesystem.Type {
	if t, ok := i.Types[e]; ok && t != nil {
		return t
	}
	return typesystem.Any
}

// Param returns the declared parameter called name.
func (i *Info) Param(name string) (ParamInfo, bool) {
	for _, p := range i.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamInfo{}, false
}
