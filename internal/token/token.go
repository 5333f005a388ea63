package token

import "fmt"

type TokenType string

// Token is a single lexical unit. Literal holds the decoded value for
// literals (int64, float64, string, bool) and the lexeme otherwise.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"
	INT    = "INT"
	FLOAT  = "FLOAT"
	STRING = "STRING"
	COLOR  = "COLOR" // #rrggbb or #rrggbbaa

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	CARET    = "^"
	LT       = "<"
	GT       = ">"
	LTE      = "<="
	GTE      = ">="
	EQ       = "=="
	L_ARROW  = "<-"
	ARROW    = "->"

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	DOT       = "."
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	// Keywords
	FUNC  = "FUNC"
	PROC  = "PROC"
	TYPE  = "TYPE"
	PARAM = "PARAM"
	LET   = "LET"
	FOR   = "FOR"
	IN    = "IN"
	IF    = "IF"
	ELIF  = "ELIF"
	ELSE  = "ELSE"
	FN    = "FN"
	AND   = "AND"
	OR    = "OR"
	XOR   = "XOR"
	NOT   = "NOT"
	OF    = "OF"
	TRUE  = "TRUE"
	FALSE = "FALSE"
)

var keywords = map[string]TokenType{
	"func":  FUNC,
	"proc":  PROC,
	"type":  TYPE,
	"param": PARAM,
	"let":   LET,
	"for":   FOR,
	"in":    IN,
	"if":    IF,
	"elif":  ELIF,
	"else":  ELSE,
	"fn":    FN,
	"and":   AND,
	"or":    OR,
	"xor":   XOR,
	"not":   NOT,
	"of":    OF,
	"true":  TRUE,
	"false": FALSE,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether s is reserved.
func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

// EndsOperand reports whether a token of this type can be the last token of
// an operand. The lexer uses it to decide whether '-' before a digit is a sign.
func EndsOperand(t TokenType) bool {
	switch t {
	case IDENT, INT, FLOAT, STRING, COLOR, TRUE, FALSE, RPAREN, RBRACKET, RBRACE:
		return true
	}
	return false
}
