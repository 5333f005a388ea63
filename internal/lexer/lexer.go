package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/funvibe/dvi/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number

	// postfix: '-' directly before a digit always starts a number.
	postfix bool
	last    token.TokenType
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// NewPostfix returns a lexer for the command-stream text form.
func NewPostfix(input string) *Lexer {
	l := New(input)
	l.postfix = true
	return l
}

// Tokenize lexes the whole input eagerly. The result always ends with EOF;
// malformed input shows up as ILLEGAL tokens whose Literal is the reason.
func Tokenize(input string) []token.Token {
	return New(input).All()
}

// All drains the lexer.
func (l *Lexer) All() []token.Token {
	tokens := make([]token.Token, 0, len(l.input)/3+1)
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) NextToken() token.Token {
	tok := l.nextToken()
	l.last = tok.Type
	return tok
}

func (l *Lexer) nextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Lexeme: "==", Literal: "==", Line: l.line, Column: l.column - 1}
		} else {
			tok = newToken(token.ASSIGN, l.ch, l.line, l.column)
		}
	case '+':
		tok = newToken(token.PLUS, l.ch, l.line, l.column)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.ARROW, Lexeme: "->", Literal: "->", Line: l.line, Column: l.column - 1}
		} else if isDigit(l.peekChar()) && l.signAllowed() {
			return l.readNumber()
		} else {
			tok = newToken(token.MINUS, l.ch, l.line, l.column)
		}
	case '*':
		tok = newToken(token.ASTERISK, l.ch, l.line, l.column)
	case '/':
		tok = newToken(token.SLASH, l.ch, l.line, l.column)
	case '^':
		tok = newToken(token.CARET, l.ch, l.line, l.column)
	case '<':
		switch l.peekChar() {
		case '-':
			l.readChar()
			tok = token.Token{Type: token.L_ARROW, Lexeme: "<-", Literal: "<-", Line: l.line, Column: l.column - 1}
		case '=':
			l.readChar()
			tok = token.Token{Type: token.LTE, Lexeme: "<=", Literal: "<=", Line: l.line, Column: l.column - 1}
		default:
			tok = newToken(token.LT, l.ch, l.line, l.column)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GTE, Lexeme: ">=", Literal: ">=", Line: l.line, Column: l.column - 1}
		} else {
			tok = newToken(token.GT, l.ch, l.line, l.column)
		}
	case ',':
		tok = newToken(token.COMMA, l.ch, l.line, l.column)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, l.line, l.column)
	case ':':
		tok = newToken(token.COLON, l.ch, l.line, l.column)
	case '.':
		tok = newToken(token.DOT, l.ch, l.line, l.column)
	case '(':
		tok = newToken(token.LPAREN, l.ch, l.line, l.column)
	case ')':
		tok = newToken(token.RPAREN, l.ch, l.line, l.column)
	case '{':
		tok = newToken(token.LBRACE, l.ch, l.line, l.column)
	case '}':
		tok = newToken(token.RBRACE, l.ch, l.line, l.column)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, l.line, l.column)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, l.line, l.column)
	case '"':
		return l.readString()
	case '#':
		return l.readColor()
	case 0:
		return token.Token{Type: token.EOF, Lexeme: "", Line: l.line, Column: l.column}
	default:
		if isLetter(l.ch) {
			startLine, startCol := l.line, l.column
			lexeme := l.readIdentifier()
			tokType := token.LookupIdent(lexeme)
			var literal interface{} = lexeme
			switch tokType {
			case token.TRUE:
				literal = true
			case token.FALSE:
				literal = false
			}
			return token.Token{Type: tokType, Lexeme: lexeme, Literal: literal, Line: startLine, Column: startCol}
		} else if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = newToken(token.ILLEGAL, l.ch, l.line, l.column)
		tok.Literal = "unrecognized character " + strconv.QuoteRune(l.ch)
	}

	l.readChar()
	return tok
}

// signAllowed decides whether '-' before a digit belongs to the number.
func (l *Lexer) signAllowed() bool {
	if l.postfix {
		return true
	}
	return !token.EndsOperand(l.last)
}

func (l *Lexer) readString() token.Token {
	startLine, startCol := l.line, l.column
	start := l.position
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		switch l.ch {
		case '"':
			l.readChar()
			return token.Token{Type: token.STRING, Lexeme: l.input[start:l.position], Literal: sb.String(), Line: startLine, Column: startCol}
		case 0, '\n':
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:l.position], Literal: "unterminated string", Line: startLine, Column: startCol}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			case 0:
				return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:l.position], Literal: "unterminated string", Line: startLine, Column: startCol}
			default:
				// unknown escapes are kept verbatim
				sb.WriteRune('\\')
				sb.WriteRune(l.ch)
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
}

// readColor reads #rrggbb or #rrggbbaa. Literal is the packed 0xRRGGBBAA value.
func (l *Lexer) readColor() token.Token {
	startLine, startCol := l.line, l.column
	start := l.position
	l.readChar() // #
	for isHexDigit(l.ch) {
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	digits := lexeme[1:]
	if len(digits) != 6 && len(digits) != 8 {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "malformed color " + lexeme, Line: startLine, Column: startCol}
	}
	if len(digits) == 6 {
		digits += "ff"
	}
	val, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "malformed color " + lexeme, Line: startLine, Column: startCol}
	}
	return token.Token{Type: token.COLOR, Lexeme: lexeme, Literal: uint32(val), Line: startLine, Column: startCol}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	isFloat := false

	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[position:l.position]
	if isFloat {
		val, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: err.Error(), Line: startLine, Column: startCol}
		}
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
	}
	val, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "integer out of range " + lexeme, Line: startLine, Column: startCol}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func newToken(tokenType token.TokenType, ch rune, line, col int) token.Token {
	literal := string(ch)
	return token.Token{Type: tokenType, Lexeme: literal, Literal: literal, Line: line, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}
