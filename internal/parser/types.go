package parser

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/token"
)

// parseType parses a type expression starting at curToken and leaves
// curToken on its last token. It returns nil after reporting an error.
func (p *Parser) parseType() ast.TypeTag {
	if !p.enter(p.curToken) {
		p.leave()
		return nil
	}
	defer p.leave()

	tok := p.curToken
	switch tok.Type {
	case token.IDENT:
		return p.parseNamedOrConstructedType()
	case token.STRING:
		tag, _ := tok.Literal.(string)
		return &ast.EnumType{Token: tok, Tag: tag}
	case token.LPAREN:
		types, ok := p.parseTypeList(token.RPAREN)
		if !ok {
			return nil
		}
		if len(types) == 1 {
			return types[0]
		}
		return &ast.TupleType{Token: tok, Types: types}
	case token.LBRACE:
		return p.parseRecordType()
	}
	p.addError(diagnostics.ErrP005, tok, "invalid type expression: unexpected %s", describeToken(tok))
	return nil
}

func (p *Parser) parseNamedOrConstructedType() ast.TypeTag {
	tok := p.curToken
	switch tok.Lexeme {
	case "List", "Map":
		if !p.peekTokenIs(token.OF) {
			p.addError(diagnostics.ErrP005, p.peekToken, "invalid type expression: %s needs 'of'", tok.Lexeme)
			return nil
		}
		p.nextToken()
		p.nextToken()
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		if tok.Lexeme == "List" {
			return &ast.ListType{Token: tok, Elem: elem}
		}
		return &ast.MapType{Token: tok, Value: elem}

	case "Func":
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		params, ok := p.parseTypeList(token.RPAREN)
		if !ok || !p.expectPeek(token.ARROW) {
			return nil
		}
		p.nextToken()
		ret := p.parseType()
		if ret == nil {
			return nil
		}
		return &ast.FuncType{Token: tok, Params: params, ReturnType: ret}

	case "Proc":
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		params, ok := p.parseTypeList(token.RPAREN)
		if !ok {
			return nil
		}
		return &ast.FuncType{Token: tok, Params: params, Proc: true}

	case "Union", "Inter":
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		types, ok := p.parseTypeList(token.RBRACE)
		if !ok {
			return nil
		}
		if len(types) == 0 {
			p.addError(diagnostics.ErrP005, tok, "invalid type expression: empty %s", tok.Lexeme)
			return nil
		}
		if tok.Lexeme == "Union" {
			return &ast.UnionType{Token: tok, Types: types}
		}
		return &ast.InterType{Token: tok, Types: types}

	case "Not":
		args, ok := p.parseTypeArgs(1)
		if !ok {
			return nil
		}
		return &ast.NotType{Token: tok, Inner: args[0]}

	case "Diff", "SymDiff":
		args, ok := p.parseTypeArgs(2)
		if !ok {
			return nil
		}
		if tok.Lexeme == "Diff" {
			return &ast.DiffType{Token: tok, Left: args[0], Right: args[1]}
		}
		return &ast.SymDiffType{Token: tok, Left: args[0], Right: args[1]}

	case "Range":
		nums, ok := p.parseNumberArgs(2)
		if !ok {
			return nil
		}
		if nums[0] > nums[1] {
			p.addError(diagnostics.ErrP005, tok, "invalid type expression: empty range")
			return nil
		}
		return &ast.RangeType{Token: tok, Lo: nums[0], Hi: nums[1]}

	case "Step":
		nums, ok := p.parseNumberArgs(1)
		if !ok {
			return nil
		}
		if nums[0] <= 0 {
			p.addError(diagnostics.ErrP005, tok, "invalid type expression: step must be positive")
			return nil
		}
		return &ast.StepType{Token: tok, Q: nums[0]}
	}
	return &ast.NamedType{Token: tok, Name: tok.Lexeme}
}

// parseTypeList parses 'T, U, ...' up to end with curToken on the opener.
func (p *Parser) parseTypeList(end token.TokenType) ([]ast.TypeTag, bool) {
	types := []ast.TypeTag{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return types, true
	}
	for {
		p.nextToken()
		t := p.parseType()
		if t == nil {
			return nil, false
		}
		types = append(types, t)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil, false
	}
	return types, true
}

func (p *Parser) parseTypeArgs(n int) ([]ast.TypeTag, bool) {
	name := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil, false
	}
	types, ok := p.parseTypeList(token.RPAREN)
	if !ok {
		return nil, false
	}
	if len(types) != n {
		p.addError(diagnostics.ErrP005, name, "invalid type expression: %s takes %d argument(s), got %d", name.Lexeme, n, len(types))
		return nil, false
	}
	return types, true
}

func (p *Parser) parseNumberArgs(n int) ([]float64, bool) {
	name := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil, false
	}
	nums := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && !p.expectPeek(token.COMMA) {
			return nil, false
		}
		p.nextToken()
		switch v := p.curToken.Literal.(type) {
		case int64:
			nums = append(nums, float64(v))
		case float64:
			nums = append(nums, v)
		default:
			p.addError(diagnostics.ErrP005, p.curToken, "invalid type expression: %s expects a number, got %s", name.Lexeme, describeToken(p.curToken))
			return nil, false
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	return nums, true
}

// parseRecordType parses
//
//	{ field x: T; const c = e; method m(p: T) -> R { ... }; static s() -> R { ... } }
func (p *Parser) parseRecordType() ast.TypeTag {
	rt := &ast.RecordType{Token: p.curToken, Members: []ast.RecordMember{}}
	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		tok := p.curToken
		if tok.Type != token.IDENT {
			p.addError(diagnostics.ErrP005, tok, "invalid type expression: expected record member, got %s", describeToken(tok))
			return nil
		}
		var member ast.RecordMember
		endsInBlock := false
		switch tok.Lexeme {
		case "field":
			name := p.parseName()
			if name == nil || !p.expectPeek(token.COLON) {
				return nil
			}
			p.nextToken()
			t := p.parseType()
			if t == nil {
				return nil
			}
			member = &ast.FieldMember{Token: tok, Name: name, Type: t}
		case "const":
			name := p.parseName()
			if name == nil || !p.expectPeek(token.ASSIGN) {
				return nil
			}
			p.nextToken()
			v := p.parseValue()
			if v == nil {
				return nil
			}
			member = &ast.ConstMember{Token: tok, Name: name, Value: v}
		case "method", "static":
			name := p.parseName()
			if name == nil || !p.expectPeek(token.LPAREN) {
				return nil
			}
			params, ok := p.parseParameters()
			if !ok {
				return nil
			}
			var ret ast.TypeTag
			if p.peekTokenIs(token.ARROW) {
				p.nextToken()
				p.nextToken()
				if ret = p.parseType(); ret == nil {
					return nil
				}
			}
			if !p.expectPeek(token.LBRACE) {
				return nil
			}
			body := p.parseBlock()
			if body == nil {
				return nil
			}
			endsInBlock = true
			if tok.Lexeme == "method" {
				member = &ast.MethodMember{Token: tok, Name: name, Params: params, ReturnType: ret, Body: body}
			} else {
				member = &ast.StaticMember{Token: tok, Name: name, Params: params, ReturnType: ret, Body: body}
			}
		default:
			p.addError(diagnostics.ErrP005, tok, "invalid type expression: unknown record member kind %q", tok.Lexeme)
			return nil
		}
		rt.Members = append(rt.Members, member)

		switch {
		case p.peekTokenIs(token.SEMICOLON):
			p.nextToken()
		case p.peekTokenIs(token.RBRACE), endsInBlock:
		default:
			p.peekError(token.SEMICOLON)
			return nil
		}
	}
	p.nextToken()
	return rt
}
