package symbols

import (
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/typesystem"
)

// Scope is one lexical level. A child reads through to its parents but
// only ever defines into itself.
type Scope struct {
	store map[string]*Symbol
	order []string
	outer *Scope
	frame *Frame
}

// NewPrelude returns the root scope holding builtins. It has no frame.
func NewPrelude() *Scope {
	return &Scope{store: make(map[string]*Symbol)}
}

// NewEnclosedScope opens a child scope. A non-nil frame starts a new
// activation record; nil keeps the parent's.
func NewEnclosedScope(outer *Scope, frame *Frame) *Scope {
	s := &Scope{store: make(map[string]*Symbol), outer: outer, frame: frame}
	if frame == nil && outer != nil {
		s.frame = outer.frame
	}
	return s
}

func (s *Scope) Outer() *Scope { return s.outer }
func (s *Scope) Frame() *Frame { return s.frame }

// Names lists the scope's own names in definition order.
func (s *Scope) Names() []string { return s.order }

func (s *Scope) define(sym *Symbol) (*Symbol, bool) {
	if prev, ok := s.store[sym.Name]; ok {
		return prev, false
	}
	s.store[sym.Name] = sym
	s.order = append(s.order, sym.Name)
	return sym, true
}

// Define binds a local variable in the current frame. On a duplicate it
// returns the existing symbol and false.
func (s *Scope) Define(name string, t typesystem.Type, tok token.Token) (*Symbol, bool) {
	if _, ok := s.store[name]; ok {
		return s.store[name], false
	}
	sym := &Symbol{Name: name, Type: t, Kind: VariableSymbol, Token: tok, Frame: s.frame, Slot: s.frame.NewSlot()}
	return s.define(sym)
}

// DefineMember binds the hidden slot for a record const, method or static.
func (s *Scope) DefineMember(name string, t typesystem.Type, tok token.Token) (*Symbol, bool) {
	if _, ok := s.store[name]; ok {
		return s.store[name], false
	}
	sym := &Symbol{Name: name, Type: t, Kind: MemberSymbol, Token: tok, Frame: s.frame, Slot: s.frame.NewSlot()}
	return s.define(sym)
}

func (s *Scope) DefineParam(name string, t typesystem.Type, tok token.Token) (*Symbol, bool) {
	return s.define(&Symbol{Name: name, Type: t, Kind: ParamSymbol, Token: tok})
}

func (s *Scope) DefineBuiltin(name string, t typesystem.Type) (*Symbol, bool) {
	return s.define(&Symbol{Name: name, Type: t, Kind: BuiltinSymbol})
}

func (s *Scope) DefineType(name string, t typesystem.Type, tok token.Token) (*Symbol, bool) {
	return s.define(&Symbol{Name: name, Type: t, Kind: TypeSymbol, Token: tok})
}

// Find looks name up through the chain without computing captures.
func (s *Scope) Find(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		if sym, ok := sc.store[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// FindLocal looks only at the current scope.
func (s *Scope) FindLocal(name string) (*Symbol, bool) {
	sym, ok := s.store[name]
	return sym, ok
}

// Resolve finds name and says how the current frame reaches it. A local of
// an enclosing frame is threaded through the capture list of every frame in
// between, so each closure copies it from its direct parent.
func (s *Scope) Resolve(name string) (Resolution, bool) {
	sym, ok := s.Find(name)
	if !ok {
		return Resolution{}, false
	}
	return s.ResolveSymbol(sym), true
}

// ResolveSymbol is Resolve for a symbol already in hand.
func (s *Scope) ResolveSymbol(sym *Symbol) Resolution {
	switch sym.Kind {
	case ParamSymbol:
		return Resolution{Kind: Param, Symbol: sym}
	case BuiltinSymbol:
		return Resolution{Kind: Builtin, Symbol: sym}
	case TypeSymbol:
		return Resolution{Kind: TypeName, Symbol: sym}
	}

	if sym.Frame == s.frame || s.frame == nil {
		return Resolution{Kind: Local, Index: sym.Slot, Symbol: sym}
	}
	if !sym.Frame.encloses(s.frame) {
		return Resolution{Kind: Local, Index: sym.Slot, Symbol: sym}
	}

	var chain []*Frame
	for fr := s.frame; fr != sym.Frame; fr = fr.Outer {
		chain = append(chain, fr)
	}
	res := Resolution{Kind: Local, Index: sym.Slot, Symbol: sym}
	for i := len(chain) - 1; i >= 0; i-- {
		idx := chain[i].capture(sym, res)
		res = Resolution{Kind: Capture, Index: idx, Symbol: sym}
	}
	return res
}
