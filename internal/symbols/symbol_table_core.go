package symbols

import (
	"fmt"

	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/typesystem"
)

type SymbolKind int

const (
	VariableSymbol SymbolKind = iota // let, parameters, for variables, func/proc names
	ParamSymbol                      // render-time parameter
	BuiltinSymbol                    // prelude function or constant
	TypeSymbol                       // type alias
	MemberSymbol                     // hidden binding for a record const, method or static
)

func (k SymbolKind) String() string {
	switch k {
	case VariableSymbol:
		return "variable"
	case ParamSymbol:
		return "param"
	case BuiltinSymbol:
		return "builtin"
	case TypeSymbol:
		return "type"
	case MemberSymbol:
		return "member"
	}
	return "unknown"
}

// Symbol is one named binding.
type Symbol struct {
	Name  string
	Type  typesystem.Type
	Kind  SymbolKind
	Token token.Token // where it was declared; zero for builtins

	// Frame and Slot locate variables and member bindings.
	Frame *Frame
	Slot  int
}

// IsLocal reports whether the symbol lives in a frame slot.
func (s *Symbol) IsLocal() bool {
	return s.Kind == VariableSymbol || s.Kind == MemberSymbol
}

type ResolutionKind int

const (
	Local ResolutionKind = iota
	Capture
	Param
	Builtin
	TypeName
)

func (k ResolutionKind) String() string {
	switch k {
	case Local:
		return "Local"
	case Capture:
		return "Capture"
	case Param:
		return "Param"
	case Builtin:
		return "Builtin"
	case TypeName:
		return "TypeName"
	}
	return "?"
}

// Resolution says how an identifier is reached from the frame it occurs in.
// Index is the local slot for Local and the capture index for Capture.
type Resolution struct {
	Kind   ResolutionKind
	Index  int
	Symbol *Symbol
}

func (r Resolution) String() string {
	switch r.Kind {
	case Local, Capture:
		return fmt.Sprintf("%s(%d)", r.Kind, r.Index)
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Symbol.Name)
}

// Name is the resolved symbol's name.
func (r Resolution) Name() string {
	if r.Symbol == nil {
		return ""
	}
	return r.Symbol.Name
}

// Type is the resolved symbol's static type.
func (r Resolution) Type() typesystem.Type {
	if r.Symbol == nil || r.Symbol.Type == nil {
		return typesystem.Any
	}
	return r.Symbol.Type
}
