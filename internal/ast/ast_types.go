package ast

import (
	"github.com/funvibe/dvi/internal/token"
)

// --- Type System Nodes ---

// TypeTag is the syntactic form of a type. The analyzer lowers it to a
// typesystem.Type.
type TypeTag interface {
	Node
	typeNode()
	GetToken() token.Token
}

// NamedType is a primitive (Int, Float, ...) or an alias name.
type NamedType struct {
	Token token.Token
	Name  string
}

func (nt *NamedType) Accept(v Visitor)      { v.VisitNamedType(nt) }
func (nt *NamedType) typeNode()             {}
func (nt *NamedType) TokenLiteral() string  { return nt.Token.Lexeme }
func (nt *NamedType) GetToken() token.Token { return nt.Token }

// ListType is 'List of T'.
type ListType struct {
	Token token.Token
	Elem  TypeTag
}

func (lt *ListType) Accept(v Visitor)      { v.VisitListType(lt) }
func (lt *ListType) typeNode()             {}
func (lt *ListType) TokenLiteral() string  { return lt.Token.Lexeme }
func (lt *ListType) GetToken() token.Token { return lt.Token }

// MapType is 'Map of T'; keys are strings.
type MapType struct {
	Token token.Token
	Value TypeTag
}

func (mt *MapType) Accept(v Visitor)      { v.VisitMapType(mt) }
func (mt *MapType) typeNode()             {}
func (mt *MapType) TokenLiteral() string  { return mt.Token.Lexeme }
func (mt *MapType) GetToken() token.Token { return mt.Token }

// TupleType represents a tuple type, e.g. (Int, Bool)
type TupleType struct {
	Token token.Token // The '(' token
	Types []TypeTag
}

func (tt *TupleType) Accept(v Visitor)      { v.VisitTupleType(tt) }
func (tt *TupleType) typeNode()             {}
func (tt *TupleType) TokenLiteral() string  { return tt.Token.Lexeme }
func (tt *TupleType) GetToken() token.Token { return tt.Token }

// FuncType is 'Func(T...) -> R' or, with Proc set, 'Proc(T...)'.
type FuncType struct {
	Token      token.Token
	Params     []TypeTag
	ReturnType TypeTag // nil for Proc
	Proc       bool
}

func (ft *FuncType) Accept(v Visitor)      { v.VisitFuncType(ft) }
func (ft *FuncType) typeNode()             {}
func (ft *FuncType) TokenLiteral() string  { return ft.Token.Lexeme }
func (ft *FuncType) GetToken() token.Token { return ft.Token }

// RecordType keeps members in source order.
type RecordType struct {
	Token   token.Token // The '{' token
	Members []RecordMember
}

func (rt *RecordType) Accept(v Visitor)      { v.VisitRecordType(rt) }
func (rt *RecordType) typeNode()             {}
func (rt *RecordType) TokenLiteral() string  { return rt.Token.Lexeme }
func (rt *RecordType) GetToken() token.Token { return rt.Token }

// RecordMember is a field, const, method or static of a record type.
type RecordMember interface {
	MemberName() *Identifier
	GetToken() token.Token
}

// FieldMember: field x: T
type FieldMember struct {
	Token token.Token
	Name  *Identifier
	Type  TypeTag
}

func (m *FieldMember) MemberName() *Identifier { return m.Name }
func (m *FieldMember) GetToken() token.Token   { return m.Token }

// ConstMember: const c = e. It hangs off the type name like a static.
type ConstMember struct {
	Token token.Token
	Name  *Identifier
	Value Expression
}

func (m *ConstMember) MemberName() *Identifier { return m.Name }
func (m *ConstMember) GetToken() token.Token   { return m.Token }

// MethodMember: method m(params) -> R { body }. The receiver is bound as
// 'self' inside the body.
type MethodMember struct {
	Token      token.Token
	Name       *Identifier
	Params     []*Parameter
	ReturnType TypeTag // nil means Unit
	Body       *BlockExpression
}

func (m *MethodMember) MemberName() *Identifier { return m.Name }
func (m *MethodMember) GetToken() token.Token   { return m.Token }

// StaticMember: static s(params) -> R { body }, called as Type.s(...).
type StaticMember struct {
	Token      token.Token
	Name       *Identifier
	Params     []*Parameter
	ReturnType TypeTag // nil means Unit
	Body       *BlockExpression
}

func (m *StaticMember) MemberName() *Identifier { return m.Name }
func (m *StaticMember) GetToken() token.Token   { return m.Token }

// UnionType is Union{A, B, ...}.
type UnionType struct {
	Token token.Token
	Types []TypeTag
}

func (ut *UnionType) Accept(v Visitor)      { v.VisitUnionType(ut) }
func (ut *UnionType) typeNode()             {}
func (ut *UnionType) TokenLiteral() string  { return ut.Token.Lexeme }
func (ut *UnionType) GetToken() token.Token { return ut.Token }

// InterType is Inter{A, B, ...}.
type InterType struct {
	Token token.Token
	Types []TypeTag
}

func (it *InterType) Accept(v Visitor)      { v.VisitInterType(it) }
func (it *InterType) typeNode()             {}
func (it *InterType) TokenLiteral() string  { return it.Token.Lexeme }
func (it *InterType) GetToken() token.Token { return it.Token }

type NotType struct {
	Token token.Token
	Inner TypeTag
}

func (nt *NotType) Accept(v Visitor)      { v.VisitNotType(nt) }
func (nt *NotType) typeNode()             {}
func (nt *NotType) TokenLiteral() string  { return nt.Token.Lexeme }
func (nt *NotType) GetToken() token.Token { return nt.Token }

type DiffType struct {
	Token token.Token
	Left  TypeTag
	Right TypeTag
}

func (dt *DiffType) Accept(v Visitor)      { v.VisitDiffType(dt) }
func (dt *DiffType) typeNode()             {}
func (dt *DiffType) TokenLiteral() string  { return dt.Token.Lexeme }
func (dt *DiffType) GetToken() token.Token { return dt.Token }

type SymDiffType struct {
	Token token.Token
	Left  TypeTag
	Right TypeTag
}

func (st *SymDiffType) Accept(v Visitor)      { v.VisitSymDiffType(st) }
func (st *SymDiffType) typeNode()             {}
func (st *SymDiffType) TokenLiteral() string  { return st.Token.Lexeme }
func (st *SymDiffType) GetToken() token.Token { return st.Token }

// RangeType is Range(lo, hi), inclusive.
type RangeType struct {
	Token token.Token
	Lo    float64
	Hi    float64
}

func (rt *RangeType) Accept(v Visitor)      { v.VisitRangeType(rt) }
func (rt *RangeType) typeNode()             {}
func (rt *RangeType) TokenLiteral() string  { return rt.Token.Lexeme }
func (rt *RangeType) GetToken() token.Token { return rt.Token }

// StepType is Step(q).
type StepType struct {
	Token token.Token
	Q     float64
}

func (st *StepType) Accept(v Visitor)      { v.VisitStepType(st) }
func (st *StepType) typeNode()             {}
func (st *StepType) TokenLiteral() string  { return st.Token.Lexeme }
func (st *StepType) GetToken() token.Token { return st.Token }

// EnumType is a string literal used as a type: the singleton tag.
type EnumType struct {
	Token token.Token
	Tag   string
}

func (et *EnumType) Accept(v Visitor)      { v.VisitEnumType(et) }
func (et *EnumType) typeNode()             {}
func (et *EnumType) TokenLiteral() string  { return et.Token.Lexeme }
func (et *EnumType) GetToken() token.Token { return et.Token }
