package ast

import (
	"github.com/funvibe/dvi/internal/token"
)

// TokenProvider is an interface for any AST node that can provide its primary token.
// This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	Accept(v Visitor)
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
	GetToken() token.Token
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
}

// Program is the root node of every AST our parser produces.
type Program struct {
	File       string // Source file path
	Statements []Statement
}

func (p *Program) Accept(v Visitor) { v.VisitProgram(p) }
func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

// Parameter is one entry of a function, procedure, lambda or method
// parameter list. Type is nil when the annotation is omitted.
type Parameter struct {
	Token token.Token // the parameter name
	Name  *Identifier
	Type  TypeTag
}

func (p *Parameter) GetToken() token.Token { return p.Token }

// FuncDef represents a named function.
// func name(params) -> T { body }
type FuncDef struct {
	Token      token.Token // The 'func' token
	Name       *Identifier
	Params     []*Parameter
	ReturnType TypeTag
	Body       *BlockExpression
}

func (fd *FuncDef) Accept(v Visitor)     { v.VisitFuncDef(fd) }
func (fd *FuncDef) statementNode()       {}
func (fd *FuncDef) TokenLiteral() string { return fd.Token.Lexeme }
func (fd *FuncDef) GetToken() token.Token {
	if fd == nil {
		return token.Token{}
	}
	return fd.Token
}

// ProcDef represents a named procedure: a function whose value is Unit.
// proc name(params) { body }
type ProcDef struct {
	Token  token.Token // The 'proc' token
	Name   *Identifier
	Params []*Parameter
	Body   *BlockExpression
}

func (pd *ProcDef) Accept(v Visitor)     { v.VisitProcDef(pd) }
func (pd *ProcDef) statementNode()       {}
func (pd *ProcDef) TokenLiteral() string { return pd.Token.Lexeme }
func (pd *ProcDef) GetToken() token.Token {
	if pd == nil {
		return token.Token{}
	}
	return pd.Token
}

// TypeDef introduces a type alias.
// type Name = T;
type TypeDef struct {
	Token token.Token // The 'type' token
	Name  *Identifier
	Type  TypeTag
}

func (td *TypeDef) Accept(v Visitor)     { v.VisitTypeDef(td) }
func (td *TypeDef) statementNode()       {}
func (td *TypeDef) TokenLiteral() string { return td.Token.Lexeme }
func (td *TypeDef) GetToken() token.Token {
	if td == nil {
		return token.Token{}
	}
	return td.Token
}

// ParamDecl declares a render-time parameter with an example value.
// param name: T = example, "doc";
type ParamDecl struct {
	Token   token.Token // The 'param' token
	Name    *Identifier
	Type    TypeTag
	Example Expression
	Doc     string
}

func (pd *ParamDecl) Accept(v Visitor)     { v.VisitParamDecl(pd) }
func (pd *ParamDecl) statementNode()       {}
func (pd *ParamDecl) TokenLiteral() string { return pd.Token.Lexeme }
func (pd *ParamDecl) GetToken() token.Token {
	if pd == nil {
		return token.Token{}
	}
	return pd.Token
}

// LetStatement binds an immutable local.
// let x [: T] = value;
type LetStatement struct {
	Token token.Token // The 'let' token
	Name  *Identifier
	Type  TypeTag // Optional
	Value Expression
}

func (ls *LetStatement) Accept(v Visitor)     { v.VisitLetStatement(ls) }
func (ls *LetStatement) statementNode()       {}
func (ls *LetStatement) TokenLiteral() string { return ls.Token.Lexeme }
func (ls *LetStatement) GetToken() token.Token {
	if ls == nil {
		return token.Token{}
	}
	return ls.Token
}

// EffectStatement sends its arguments to a named back-end operation.
// name <- a, b;
type EffectStatement struct {
	Token token.Token // The '<-' token
	Name  *Identifier
	Args  []Expression
}

func (es *EffectStatement) Accept(v Visitor)     { v.VisitEffectStatement(es) }
func (es *EffectStatement) statementNode()       {}
func (es *EffectStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *EffectStatement) GetToken() token.Token {
	if es == nil {
		return token.Token{}
	}
	return es.Token
}

// ForStatement iterates a list or tuple (Key == nil) or a map.
// for v in e { ... }   for k, v in e { ... }
type ForStatement struct {
	Token      token.Token // The 'for' token
	Key        *Identifier
	Value      *Identifier
	Collection Expression
	Body       *BlockExpression
}

func (fs *ForStatement) Accept(v Visitor)     { v.VisitForStatement(fs) }
func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *ForStatement) GetToken() token.Token {
	if fs == nil {
		return token.Token{}
	}
	return fs.Token
}

// ExpressionStatement is a statement that consists of a single expression.
type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) Accept(v Visitor)      { v.VisitExpressionStatement(es) }
func (es *ExpressionStatement) statementNode()        {}
func (es *ExpressionStatement) TokenLiteral() string  { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token { return es.Token }
