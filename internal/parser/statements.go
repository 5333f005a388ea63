package parser

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/token"
)

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.FUNC:
		return p.parseFuncDef()
	case token.PROC:
		return p.parseProcDef()
	case token.TYPE:
		return p.parseTypeDef()
	case token.PARAM:
		return p.parseParamDecl()
	case token.LET:
		return p.parseLetStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.IDENT:
		if p.peekTokenIs(token.L_ARROW) {
			return p.parseEffectStatement()
		}
	}
	return p.parseExpressionStatement()
}

// skipOptionalSemicolon consumes a ';' after a construct that ends in '}'.
func (p *Parser) skipOptionalSemicolon() {
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseName() *ast.Identifier {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

// func name(params) -> T { body }
func (p *Parser) parseFuncDef() ast.Statement {
	fd := &ast.FuncDef{Token: p.curToken}
	if fd.Name = p.parseName(); fd.Name == nil {
		return nil
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params, ok := p.parseParameters()
	if !ok {
		return nil
	}
	fd.Params = params
	if !p.expectPeek(token.ARROW) {
		return nil
	}
	p.nextToken()
	if fd.ReturnType = p.parseType(); fd.ReturnType == nil {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	if fd.Body = p.parseBlock(); fd.Body == nil {
		return nil
	}
	p.skipOptionalSemicolon()
	return fd
}

// proc name(params) { body }
func (p *Parser) parseProcDef() ast.Statement {
	pd := &ast.ProcDef{Token: p.curToken}
	if pd.Name = p.parseName(); pd.Name == nil {
		return nil
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params, ok := p.parseParameters()
	if !ok {
		return nil
	}
	pd.Params = params
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	if pd.Body = p.parseBlock(); pd.Body == nil {
		return nil
	}
	p.skipOptionalSemicolon()
	return pd
}

// type Name = T;
func (p *Parser) parseTypeDef() ast.Statement {
	td := &ast.TypeDef{Token: p.curToken}
	if td.Name = p.parseName(); td.Name == nil {
		return nil
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	if td.Type = p.parseType(); td.Type == nil {
		return nil
	}
	if _, isRecord := td.Type.(*ast.RecordType); isRecord {
		p.skipOptionalSemicolon()
		return td
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return td
}

// param name: T = example [, "doc"];
func (p *Parser) parseParamDecl() ast.Statement {
	pd := &ast.ParamDecl{Token: p.curToken}
	if pd.Name = p.parseName(); pd.Name == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	if pd.Type = p.parseType(); pd.Type == nil {
		return nil
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	if pd.Example = p.parseValue(); pd.Example == nil {
		return nil
	}
	if p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if !p.expectPeek(token.STRING) {
			return nil
		}
		pd.Doc, _ = p.curToken.Literal.(string)
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return pd
}

// let x [: T] = value;
func (p *Parser) parseLetStatement() ast.Statement {
	ls := &ast.LetStatement{Token: p.curToken}
	if ls.Name = p.parseName(); ls.Name == nil {
		return nil
	}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		if ls.Type = p.parseType(); ls.Type == nil {
			return nil
		}
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	if ls.Value = p.parseValue(); ls.Value == nil {
		return nil
	}
	if endsWithBlock(ls.Value) {
		p.skipOptionalSemicolon()
		return ls
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return ls
}

// name <- a, b;
func (p *Parser) parseEffectStatement() ast.Statement {
	es := &ast.EffectStatement{Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}}
	p.nextToken()
	es.Token = p.curToken
	es.Args = []ast.Expression{}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return es
	}
	for {
		p.nextToken()
		arg := p.parseValue()
		if arg == nil {
			return nil
		}
		es.Args = append(es.Args, arg)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return es
}

// for v in e { ... }   for k, v in e { ... }
func (p *Parser) parseForStatement() ast.Statement {
	fs := &ast.ForStatement{Token: p.curToken}
	first := p.parseName()
	if first == nil {
		return nil
	}
	fs.Value = first
	if p.peekTokenIs(token.COMMA) {
		p.nextToken()
		fs.Key = first
		if fs.Value = p.parseName(); fs.Value == nil {
			return nil
		}
	}
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()

	saved := p.noTree
	p.noTree = true
	fs.Collection = p.parseExpression(LOWEST)
	p.noTree = saved
	if fs.Collection == nil {
		return nil
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	if fs.Body = p.parseBlock(); fs.Body == nil {
		return nil
	}
	p.skipOptionalSemicolon()
	return fs
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseValue()
	if stmt.Expression == nil {
		return nil
	}

	p.lastUnterminated = false
	switch {
	case p.peekTokenIs(token.SEMICOLON):
		p.nextToken()
	case p.blockDepth > 0 && p.peekTokenIs(token.RBRACE):
		p.lastUnterminated = true
	case endsWithBlock(stmt.Expression):
		p.lastUnterminated = true
	default:
		p.peekError(token.SEMICOLON)
		return nil
	}
	return stmt
}

// endsWithBlock reports whether e ends in a closing brace, after which
// the statement's ';' is optional.
func endsWithBlock(e ast.Expression) bool {
	if ce, ok := e.(*ast.CallExpression); ok && ce.Trailing {
		return true
	}
	return ast.IsBlockLike(e)
}

// parseBlock parses '{ stmt* [Expr] }' with curToken on '{' and leaves
// curToken on the closing '}'.
func (p *Parser) parseBlock() *ast.BlockExpression {
	block := &ast.BlockExpression{Token: p.curToken, Statements: []ast.Statement{}}
	if !p.enter(p.curToken) {
		p.leave()
		p.skipBlock()
		return nil
	}
	defer p.leave()

	savedTree := p.noTree
	p.noTree = false
	p.blockDepth++
	defer func() {
		p.blockDepth--
		p.noTree = savedTree
	}()

	p.nextToken()
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.addError(diagnostics.ErrP001, p.curToken, "unterminated block: expected '}'")
			return nil
		}
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		before := len(p.ctx.Errors)
		stmt := p.parseStatement()
		if len(p.ctx.Errors) > before {
			p.synchronize()
			if p.curTokenIs(token.EOF) {
				return nil
			}
			if p.curTokenIs(token.RBRACE) {
				break
			}
		} else if stmt != nil {
			if es, ok := stmt.(*ast.ExpressionStatement); ok && p.lastUnterminated && p.peekTokenIs(token.RBRACE) {
				block.Value = es.Expression
			} else {
				block.Statements = append(block.Statements, stmt)
			}
		}
		p.lastUnterminated = false
		p.nextToken()
	}
	block.RBraceToken = p.curToken
	return block
}

// skipBlock jumps past a block too deep to parse, keeping braces balanced.
func (p *Parser) skipBlock() {
	depth := 0
	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
			if depth == 0 {
				return
			}
		}
		p.nextToken()
	}
}

// parseParameters parses '(a: T, b)' with curToken on '(' and leaves it on ')'.
func (p *Parser) parseParameters() ([]*ast.Parameter, bool) {
	params := []*ast.Parameter{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params, true
	}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil, false
		}
		param := &ast.Parameter{Token: p.curToken, Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}}
		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			p.nextToken()
			if param.Type = p.parseType(); param.Type == nil {
				return nil, false
			}
		}
		params = append(params, param)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	return params, true
}
