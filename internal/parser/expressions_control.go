package parser

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/token"
)

// if (c) { ... } elif (c) { ... } else { ... }
func (p *Parser) parseIfExpression() ast.Expression {
	exp := &ast.IfExpression{Token: p.curToken}
	for {
		branch := &ast.IfBranch{Token: p.curToken}
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		p.nextToken()
		if branch.Condition = p.parseExpression(LOWEST); branch.Condition == nil {
			return nil
		}
		if !p.expectPeek(token.RPAREN) || !p.expectPeek(token.LBRACE) {
			return nil
		}
		if branch.Body = p.parseBlock(); branch.Body == nil {
			return nil
		}
		exp.Branches = append(exp.Branches, branch)
		if !p.peekTokenIs(token.ELIF) {
			break
		}
		p.nextToken()
	}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		if exp.Else = p.parseBlock(); exp.Else == nil {
			return nil
		}
	}
	return exp
}

// fn (params) [-> T] { body }
func (p *Parser) parseLambdaExpression() ast.Expression {
	lambda := &ast.LambdaExpression{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params, ok := p.parseParameters()
	if !ok {
		return nil
	}
	lambda.Params = params
	if p.peekTokenIs(token.ARROW) {
		p.nextToken()
		p.nextToken()
		if lambda.ReturnType = p.parseType(); lambda.ReturnType == nil {
			return nil
		}
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	if lambda.Body = p.parseBlock(); lambda.Body == nil {
		return nil
	}
	return lambda
}
