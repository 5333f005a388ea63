package parser

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/token"
)

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	v, _ := p.curToken.Literal.(int64)
	return &ast.IntegerLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	v, _ := p.curToken.Literal.(float64)
	return &ast.FloatLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	v, _ := p.curToken.Literal.(string)
	return &ast.StringLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseColorLiteral() ast.Expression {
	v, _ := p.curToken.Literal.(uint32)
	return &ast.ColorLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

// parseListLiteral parses [a, b, ...]; elements may be block expressions.
func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.ListLiteral{Token: p.curToken}
	elems, ok := p.parseValueList(token.RBRACKET)
	if !ok {
		return nil
	}
	list.Elements = elems
	return list
}

// parseValueList parses comma-separated values up to end, with curToken on
// the opener. It leaves curToken on end.
func (p *Parser) parseValueList(end token.TokenType) ([]ast.Expression, bool) {
	list := []ast.Expression{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}
	p.nextToken()
	for {
		v := p.parseValue()
		if v == nil {
			return nil, false
		}
		list = append(list, v)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil, false
	}
	return list, true
}

// isMapStart decides, with curToken on '{', between a map literal and a
// block: '{:}' and '{name:' or '{"key":' open maps.
func (p *Parser) isMapStart() bool {
	if p.peekTokenIs(token.COLON) {
		return true
	}
	if p.peekTokenIs(token.IDENT) || p.peekTokenIs(token.STRING) {
		return p.peekAt(2).Type == token.COLON
	}
	return false
}

func (p *Parser) parseMapLiteral() ast.Expression {
	m := &ast.MapLiteral{Token: p.curToken, Entries: []*ast.MapEntry{}}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		if !p.expectPeek(token.RBRACE) {
			return nil
		}
		return m
	}
	for {
		p.nextToken()
		var key string
		switch p.curToken.Type {
		case token.IDENT:
			key = p.curToken.Lexeme
		case token.STRING:
			key, _ = p.curToken.Literal.(string)
		default:
			p.addError(diagnostics.ErrP001, p.curToken, "expected map key, got %s", describeToken(p.curToken))
			return nil
		}
		entry := &ast.MapEntry{Token: p.curToken, Key: key}
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		if entry.Value = p.parseValue(); entry.Value == nil {
			return nil
		}
		m.Entries = append(m.Entries, entry)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return m
}
