package parser

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/token"
)

// parseCallExpression parses f(args). A block right after ')' is a tree
// expression: it becomes a trailing zero-argument lambda.
func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: function}
	args, ok := p.parseValueList(token.RPAREN)
	if !ok {
		return nil
	}
	exp.Arguments = args

	if !p.noTree && p.peekTokenIs(token.LBRACE) && !p.mapAhead() {
		p.nextToken()
		body := p.parseBlock()
		if body == nil {
			return nil
		}
		exp.Arguments = append(exp.Arguments, &ast.LambdaExpression{
			Token:  body.Token,
			Params: []*ast.Parameter{},
			Body:   body,
		})
		exp.Trailing = true
	}
	return exp
}

// mapAhead is isMapStart for a '{' in peekToken.
func (p *Parser) mapAhead() bool {
	switch p.peekAt(2).Type {
	case token.COLON:
		return true
	case token.IDENT, token.STRING:
		return p.peekAt(3).Type == token.COLON
	}
	return false
}

func (p *Parser) parseMemberExpression(left ast.Expression) ast.Expression {
	exp := &ast.MemberExpression{Token: p.curToken, Left: left}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Member = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	return exp
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	if exp.Index = p.parseExpression(LOWEST); exp.Index == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}
