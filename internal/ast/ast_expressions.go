package ast

import (
	"github.com/funvibe/dvi/internal/token"
)

// Identifier represents an identifier, e.g., a variable name.
type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) Accept(v Visitor)     { v.VisitIdentifier(i) }
func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token {
	if i == nil {
		return token.Token{}
	}
	return i.Token
}

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) Accept(v Visitor)      { v.VisitIntegerLiteral(il) }
func (il *IntegerLiteral) expressionNode()       {}
func (il *IntegerLiteral) TokenLiteral() string  { return il.Token.Lexeme }
func (il *IntegerLiteral) GetToken() token.Token { return il.Token }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) Accept(v Visitor)      { v.VisitFloatLiteral(fl) }
func (fl *FloatLiteral) expressionNode()       {}
func (fl *FloatLiteral) TokenLiteral() string  { return fl.Token.Lexeme }
func (fl *FloatLiteral) GetToken() token.Token { return fl.Token }

// StringLiteral represents a string, e.g. "hello"
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) Accept(v Visitor)      { v.VisitStringLiteral(sl) }
func (sl *StringLiteral) expressionNode()       {}
func (sl *StringLiteral) TokenLiteral() string  { return sl.Token.Lexeme }
func (sl *StringLiteral) GetToken() token.Token { return sl.Token }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) Accept(v Visitor)      { v.VisitBooleanLiteral(b) }
func (b *BooleanLiteral) expressionNode()       {}
func (b *BooleanLiteral) TokenLiteral() string  { return b.Token.Lexeme }
func (b *BooleanLiteral) GetToken() token.Token { return b.Token }

// ColorLiteral is #rrggbb or #rrggbbaa packed as 0xRRGGBBAA.
type ColorLiteral struct {
	Token token.Token
	Value uint32
}

func (cl *ColorLiteral) Accept(v Visitor)      { v.VisitColorLiteral(cl) }
func (cl *ColorLiteral) expressionNode()       {}
func (cl *ColorLiteral) TokenLiteral() string  { return cl.Token.Lexeme }
func (cl *ColorLiteral) GetToken() token.Token { return cl.Token }

// PrefixExpression represents '-x' or 'not x'.
type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. -
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) Accept(v Visitor)      { v.VisitPrefixExpression(pe) }
func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }

// InfixExpression represents a binary operation, e.g. a + b
type InfixExpression struct {
	Token    token.Token // The operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) Accept(v Visitor)      { v.VisitInfixExpression(ie) }
func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }

// CallExpression represents f(args). With Trailing set the last argument
// was written as a block after the closing paren and is a zero-arg lambda.
type CallExpression struct {
	Token     token.Token // The '(' token
	Function  Expression
	Arguments []Expression
	Trailing  bool
}

func (ce *CallExpression) Accept(v Visitor)      { v.VisitCallExpression(ce) }
func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }

// MemberExpression represents dot access, e.g. p.x or Shape.unit
type MemberExpression struct {
	Token  token.Token // The '.' token
	Left   Expression
	Member *Identifier
}

func (me *MemberExpression) Accept(v Visitor)      { v.VisitMemberExpression(me) }
func (me *MemberExpression) expressionNode()       {}
func (me *MemberExpression) TokenLiteral() string  { return me.Token.Lexeme }
func (me *MemberExpression) GetToken() token.Token { return me.Token }

// IndexExpression represents indexing, e.g. xs[i]
type IndexExpression struct {
	Token token.Token // The '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) Accept(v Visitor)      { v.VisitIndexExpression(ie) }
func (ie *IndexExpression) expressionNode()       {}
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IndexExpression) GetToken() token.Token { return ie.Token }

// LambdaExpression is an anonymous function.
// fn (x: Int) -> Int { x * 2 }
type LambdaExpression struct {
	Token      token.Token // The 'fn' token
	Params     []*Parameter
	ReturnType TypeTag // Optional
	Body       *BlockExpression
}

func (le *LambdaExpression) Accept(v Visitor)      { v.VisitLambdaExpression(le) }
func (le *LambdaExpression) expressionNode()       {}
func (le *LambdaExpression) TokenLiteral() string  { return le.Token.Lexeme }
func (le *LambdaExpression) GetToken() token.Token { return le.Token }

// BlockExpression is a braced statement list. Its value is Value, or Unit
// when Value is nil.
type BlockExpression struct {
	Token       token.Token // {
	Statements  []Statement
	Value       Expression
	RBraceToken token.Token // }
}

func (be *BlockExpression) Accept(v Visitor)      { v.VisitBlockExpression(be) }
func (be *BlockExpression) expressionNode()       {}
func (be *BlockExpression) TokenLiteral() string  { return be.Token.Lexeme }
func (be *BlockExpression) GetToken() token.Token { return be.Token }

// IfBranch is the 'if' or one 'elif' arm of an IfExpression.
type IfBranch struct {
	Token     token.Token
	Condition Expression
	Body      *BlockExpression
}

// IfExpression is if / elif* / else. A missing else yields Unit.
type IfExpression struct {
	Token    token.Token // The 'if' token
	Branches []*IfBranch
	Else     *BlockExpression
}

func (ie *IfExpression) Accept(v Visitor)      { v.VisitIfExpression(ie) }
func (ie *IfExpression) expressionNode()       {}
func (ie *IfExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IfExpression) GetToken() token.Token { return ie.Token }

// ListLiteral represents a list, e.g. [1, 2, 3]
type ListLiteral struct {
	Token    token.Token // The '[' token
	Elements []Expression
}

func (ll *ListLiteral) Accept(v Visitor)      { v.VisitListLiteral(ll) }
func (ll *ListLiteral) expressionNode()       {}
func (ll *ListLiteral) TokenLiteral() string  { return ll.Token.Lexeme }
func (ll *ListLiteral) GetToken() token.Token { return ll.Token }

// MapEntry is one key: value pair. Keys are names or strings.
type MapEntry struct {
	Token token.Token // the key token
	Key   string
	Value Expression
}

// MapLiteral represents { x: 1, "y z": 2 } and the empty map {:}.
type MapLiteral struct {
	Token   token.Token // The '{' token
	Entries []*MapEntry
}

func (ml *MapLiteral) Accept(v Visitor)      { v.VisitMapLiteral(ml) }
func (ml *MapLiteral) expressionNode()       {}
func (ml *MapLiteral) TokenLiteral() string  { return ml.Token.Lexeme }
func (ml *MapLiteral) GetToken() token.Token { return ml.Token }

// TupleLiteral represents a tuple, e.g. (1, "hello", true). A pair of
// numbers is a point.
type TupleLiteral struct {
	Token    token.Token // The '(' token
	Elements []Expression
}

func (tl *TupleLiteral) Accept(v Visitor)      { v.VisitTupleLiteral(tl) }
func (tl *TupleLiteral) expressionNode()       {}
func (tl *TupleLiteral) TokenLiteral() string  { return tl.Token.Lexeme }
func (tl *TupleLiteral) GetToken() token.Token { return tl.Token }

// IsBlockLike reports whether e belongs to the block-expression production,
// which may not appear as an operator operand.
func IsBlockLike(e Expression) bool {
	switch e.(type) {
	case *BlockExpression, *IfExpression:
		return true
	}
	return false
}
