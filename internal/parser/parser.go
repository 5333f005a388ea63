package parser

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/lexer"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/token"
)

// MaxRecursionDepth bounds expression, block and type nesting.
const MaxRecursionDepth = 200

const (
	_ int = iota
	LOWEST
	LOGIC      // and or xor
	RELATIONAL // < > <= >= ==
	SUM        // + -
	FACTOR     // * /
	EXPONENT   // ^
	PREFIX     // -x not x
	CALL       // f(x)
	SELECTION  // x.f x[i]
	TERM
)

var precedences = map[token.TokenType]int{
	token.AND:      LOGIC,
	token.OR:       LOGIC,
	token.XOR:      LOGIC,
	token.LT:       RELATIONAL,
	token.GT:       RELATIONAL,
	token.LTE:      RELATIONAL,
	token.GTE:      RELATIONAL,
	token.EQ:       RELATIONAL,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: FACTOR,
	token.SLASH:    FACTOR,
	token.CARET:    EXPONENT,
	token.LPAREN:   CALL,
	token.DOT:      SELECTION,
	token.LBRACKET: SELECTION,
}

// Precedence exposes the binding power of an infix operator lexeme to the
// code printer.
func Precedence(op string) int {
	if p, ok := precedences[token.TokenType(op)]; ok {
		return p
	}
	switch op {
	case "and":
		return LOGIC
	case "or":
		return LOGIC
	case "xor":
		return LOGIC
	}
	return LOWEST
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	tokens []token.Token
	pos    int
	ctx    *pipeline.PipelineContext

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	depth               int
	inRecursionRecovery bool
	blockDepth          int

	// noTree suppresses trailing-block calls while parsing a for collection,
	// where the brace opens the loop body.
	noTree bool

	// lastUnterminated is set when the expression statement just parsed did
	// not end in ';'.
	lastUnterminated bool
}

func New(tokens []token.Token, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{tokens: tokens, ctx: ctx}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.COLOR, p.parseColorLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseListLiteral)
	p.registerPrefix(token.LBRACE, p.parseBraceOperand)
	p.registerPrefix(token.IF, p.parseIfOperand)
	p.registerPrefix(token.FN, p.parseLambdaExpression)
	p.registerPrefix(token.ILLEGAL, p.parseIllegal)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, t := range []token.TokenType{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH,
		token.LT, token.GT, token.LTE, token.GTE, token.EQ,
		token.AND, token.OR, token.XOR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.CARET, p.parseRightAssocInfixExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.DOT, p.parseMemberExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

// Parse lexes and parses src in one go. It is the entry point for tools
// that do not need the full pipeline.
func Parse(src string) (*ast.Program, diagnostics.List) {
	ctx := pipeline.NewContext(src, "")
	ctx = (&lexer.LexerProcessor{}).Process(ctx)
	ctx = (&ParserProcessor{}).Process(ctx)
	prog, _ := ctx.AstRoot.(*ast.Program)
	return prog, diagnostics.List(ctx.Errors)
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.tokenAt(p.pos)
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// tokenAt returns the token at absolute index i, or EOF past the end.
func (p *Parser) tokenAt(i int) token.Token {
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	if len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		return token.Token{Type: token.EOF, Line: last.Line, Column: last.Column}
	}
	return token.Token{Type: token.EOF}
}

// peekAt looks n tokens past curToken; peekAt(1) is peekToken.
func (p *Parser) peekAt(n int) token.Token {
	return p.tokenAt(p.pos + n - 2)
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) addError(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	p.ctx.AddError(diagnostics.NewError(code, tok, format, args...))
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError(diagnostics.ErrP001, p.peekToken,
		"expected next token to be %s, got %s instead", describe(t), describeToken(p.peekToken))
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	p.addError(diagnostics.ErrP002, tok, "no prefix parse function for %s found", describeToken(tok))
}

func describe(t token.TokenType) string {
	switch t {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.COLOR, token.EOF:
		return string(t)
	}
	return "'" + string(t) + "'"
}

func describeToken(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.COLOR:
		return string(tok.Type) + " " + tok.Lexeme
	}
	return "'" + tok.Lexeme + "'"
}

// synchronize skips the rest of a broken statement. It stops on the ';'
// that ends it, or on or just before the '}' that closes the enclosing block.
func (p *Parser) synchronize() {
	depth := 0
	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			if depth == 0 {
				return
			}
			depth--
		case token.SEMICOLON:
			if depth == 0 {
				return
			}
		}
		if depth == 0 && (p.peekTokenIs(token.RBRACE) || p.peekTokenIs(token.EOF)) {
			return
		}
		p.nextToken()
	}
}

// ParseProgram parses statements until EOF, recovering after each error so
// that all diagnostics of a file are reported together.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		if p.curTokenIs(token.RBRACE) {
			p.addError(diagnostics.ErrP001, p.curToken, "unexpected '}'")
			p.nextToken()
			continue
		}
		before := len(p.ctx.Errors)
		stmt := p.parseStatement()
		if len(p.ctx.Errors) > before {
			p.synchronize()
		} else if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) enter(tok token.Token) bool {
	p.depth++
	if p.depth > MaxRecursionDepth {
		if !p.inRecursionRecovery {
			p.addError(diagnostics.ErrP006, tok, "expression too complex: recursion depth limit exceeded")
			p.inRecursionRecovery = true
		}
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
	if p.depth == 0 {
		p.inRecursionRecovery = false
	}
}
