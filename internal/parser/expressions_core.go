package parser

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/token"
)

// parseValue parses the positions that also admit block expressions:
// statements, let and param values, arguments, list elements and yields.
func (p *Parser) parseValue() ast.Expression {
	var block ast.Expression
	switch {
	case p.curTokenIs(token.IF):
		block = p.parseIfExpression()
	case p.curTokenIs(token.LBRACE) && !p.isMapStart():
		if b := p.parseBlock(); b != nil {
			block = b
		}
	default:
		return p.parseExpression(LOWEST)
	}
	if block == nil {
		return nil
	}
	if isBinaryOperator(p.peekToken.Type) {
		p.addError(diagnostics.ErrP003, p.peekToken, "block expression used as operand of %s", describeToken(p.peekToken))
		return nil
	}
	return block
}

// isBinaryOperator lists the operators that cannot also start a statement.
func isBinaryOperator(t token.TokenType) bool {
	switch t {
	case token.PLUS, token.ASTERISK, token.SLASH, token.CARET,
		token.LT, token.GT, token.LTE, token.GTE, token.EQ,
		token.AND, token.OR, token.XOR, token.DOT:
		return true
	}
	return false
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	if !p.enter(p.curToken) {
		p.leave()
		return nil
	}
	defer p.leave()

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		nextExp := infix(leftExp)
		if nextExp == nil {
			return nil
		}
		leftExp = nextExp
	}

	return leftExp
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
	}
	p.nextToken()
	expression.Right = p.parseOperand(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseOperand(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseRightAssocInfixExpression handles '^': a ^ b ^ c is a ^ (b ^ c).
func (p *Parser) parseRightAssocInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseOperand(precedence - 1)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseOperand rejects block expressions on the right of an operator.
func (p *Parser) parseOperand(precedence int) ast.Expression {
	if p.curTokenIs(token.IF) || (p.curTokenIs(token.LBRACE) && !p.isMapStart()) {
		p.addError(diagnostics.ErrP003, p.curToken, "block expression used as operand")
		return nil
	}
	return p.parseExpression(precedence)
}

// parseBraceOperand is reached only in operand position: a map literal is
// fine there, a block is not.
func (p *Parser) parseBraceOperand() ast.Expression {
	if p.isMapStart() {
		return p.parseMapLiteral()
	}
	p.addError(diagnostics.ErrP003, p.curToken, "block expression used as operand")
	return nil
}

func (p *Parser) parseIfOperand() ast.Expression {
	p.addError(diagnostics.ErrP003, p.curToken, "block expression used as operand")
	return nil
}

func (p *Parser) parseIllegal() ast.Expression {
	for _, e := range p.ctx.Errors {
		if e.Token.Line == p.curToken.Line && e.Token.Column == p.curToken.Column {
			return nil
		}
	}
	reason, _ := p.curToken.Literal.(string)
	p.addError(diagnostics.ErrP004, p.curToken, "illegal token: %s", reason)
	return nil
}

// parseGroupedExpression handles '(e)', tuples '(a, b, ...)' and '()'.
func (p *Parser) parseGroupedExpression() ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.TupleLiteral{Token: tok, Elements: []ast.Expression{}}
	}
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	if !p.peekTokenIs(token.COMMA) {
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return first
	}
	tuple := &ast.TupleLiteral{Token: tok, Elements: []ast.Expression{first}}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		el := p.parseExpression(LOWEST)
		if el == nil {
			return nil
		}
		tuple.Elements = append(tuple.Elements, el)
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return tuple
}
