// Package asm assembles the textual command stream: postfix words,
// constants and quoted blocks, written directly against the VM.
package asm

import (
	"github.com/funvibe/dvi/internal/builtins"
	"github.com/funvibe/dvi/internal/compiler"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/lexer"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/vm"
)

// scope holds the names visible inside one proto. Names of enclosing
// protos are reached through captures, loaded when the quote is closed.
type scope struct {
	parent   *scope
	locals   map[string]int
	slots    int
	captures []string
	capIndex map[string]int
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, locals: make(map[string]int), capIndex: make(map[string]int)}
}

func (s *scope) define(name string) int {
	slot := s.slots
	s.slots++
	s.locals[name] = slot
	return slot
}

// visible reports whether name is bound here or in an enclosing scope.
func (s *scope) visible(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.locals[name]; ok {
			return true
		}
	}
	return false
}

type assembler struct {
	tokens []token.Token
	pos    int
	chunk  *vm.Chunk
	scope  *scope
	params map[string]bool
	errors diagnostics.List
	depth  int
}

// Assemble turns command-stream text into a verified chunk. Identifiers
// that are neither words, builtins nor locals must name one of params.
func Assemble(src string, params []vm.ParamSpec) (*vm.Chunk, error) {
	tokens := lexer.NewPostfix(src).All()
	if errs := diagnostics.List(lexer.Errors(tokens)); len(errs) > 0 {
		return nil, errs.AsError()
	}
	return AssembleTokens(tokens, params, "")
}

// AssembleTokens assembles an already lexed stream.
func AssembleTokens(tokens []token.Token, params []vm.ParamSpec, file string) (*vm.Chunk, error) {
	a := &assembler{
		tokens: tokens,
		chunk:  vm.NewChunk(),
		scope:  newScope(nil),
		params: make(map[string]bool),
	}
	a.chunk.File = file
	for _, p := range params {
		a.params[p.Name] = true
	}
	a.chunk.Params = append(a.chunk.Params, params...)

	main := &vm.Proto{Name: "main"}
	a.chunk.AddProto(main)
	a.words(token.EOF)
	a.emit(vm.OP_HALT, 0, a.cur())
	main.End = a.chunk.Len()
	main.NumLocals = a.scope.slots

	if len(a.errors) > 0 {
		for _, e := range a.errors {
			if e.File == "" {
				e.File = file
			}
		}
		a.errors.Sort()
		return nil, a.errors.AsError()
	}
	if err := compiler.Verify(a.chunk); err != nil {
		return nil, err
	}
	return a.chunk, nil
}

func (a *assembler) cur() token.Token {
	if a.pos < len(a.tokens) {
		return a.tokens[a.pos]
	}
	return token.Token{Type: token.EOF}
}

func (a *assembler) advance() token.Token {
	tok := a.cur()
	if a.pos < len(a.tokens) {
		a.pos++
	}
	return tok
}

func (a *assembler) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	a.errors = append(a.errors, diagnostics.NewError(code, tok, format, args...))
}

func (a *assembler) emit(op vm.Opcode, arg int, tok token.Token) int {
	return a.chunk.Emit(op, arg, tok.Line, tok.Column)
}

func (a *assembler) constant(o object.Object, tok token.Token) {
	a.emit(vm.OP_CONST, a.chunk.AddConstant(o), tok)
}

// words assembles until end (or EOF) and leaves the cursor on it.
func (a *assembler) words(end token.TokenType) {
	for {
		tok := a.cur()
		if tok.Type == end || tok.Type == token.EOF {
			return
		}
		a.word()
	}
}

func (a *assembler) word() {
	tok := a.advance()
	switch tok.Type {
	case token.SEMICOLON:
	case token.INT:
		v, _ := tok.Literal.(int64)
		a.constant(&object.Integer{Value: v}, tok)
	case token.FLOAT:
		v, _ := tok.Literal.(float64)
		a.constant(&object.Float{Value: v}, tok)
	case token.STRING:
		v, _ := tok.Literal.(string)
		a.constant(&object.String{Value: v}, tok)
	case token.COLOR:
		v, _ := tok.Literal.(uint32)
		a.constant(object.ColorFromHex(v), tok)
	case token.TRUE:
		a.constant(object.True, tok)
	case token.FALSE:
		a.constant(object.False, tok)
	case token.LPAREN:
		a.point(tok)
	case token.LBRACKET:
		a.quote(tok)
	case token.RBRACKET:
		a.errorf(diagnostics.ErrP001, tok, "unexpected ']' without a matching '['")
	case token.LET:
		a.let(tok)
	case token.IDENT:
		a.name(tok)
	default:
		a.operator(tok)
	}
}

// point reads a constant '(x, y)'.
func (a *assembler) point(open token.Token) {
	var coords [2]float64
	for i := range coords {
		tok := a.advance()
		v, ok := numberLiteral(tok)
		if !ok {
			a.errorf(diagnostics.ErrP001, tok, "expected a number in point literal, got %q", tok.Lexeme)
			a.skipTo(token.RPAREN)
			return
		}
		coords[i] = v
		want := token.TokenType(token.COMMA)
		if i == 1 {
			want = token.RPAREN
		}
		if next := a.advance(); next.Type != want {
			a.errorf(diagnostics.ErrP001, next, "expected '%s' in point literal, got %q", want, next.Lexeme)
			if next.Type != token.RPAREN {
				a.skipTo(token.RPAREN)
			}
			return
		}
	}
	a.constant(&object.Point{X: coords[0], Y: coords[1]}, open)
}

func numberLiteral(tok token.Token) (float64, bool) {
	switch v := tok.Literal.(type) {
	case int64:
		return float64(v), tok.Type == token.INT
	case float64:
		return v, tok.Type == token.FLOAT
	}
	return 0, false
}

func (a *assembler) skipTo(t token.TokenType) {
	for a.cur().Type != t && a.cur().Type != token.EOF {
		a.advance()
	}
	a.advance()
}

// quote lays a '[ ... ]' block out behind a jump and pushes its closure.
func (a *assembler) quote(open token.Token) {
	if a.depth >= maxDepth {
		a.errorf(diagnostics.ErrP006, open, "quoted blocks nest deeper than %d", maxDepth)
		a.skipBlock()
		return
	}
	a.depth++
	defer func() { a.depth-- }()

	skip := a.emit(vm.OP_JUMP, -1, open)
	proto := &vm.Proto{Name: "block", Start: a.chunk.Len(), Quote: true}
	idx := a.chunk.AddProto(proto)

	outer := a.scope
	a.scope = newScope(outer)
	a.words(token.RBRACKET)
	closing := a.advance()
	if closing.Type != token.RBRACKET {
		a.errorf(diagnostics.ErrP001, open, "unterminated block: expected ']'")
	}
	a.emit(vm.OP_END, 0, closing)
	inner := a.scope
	a.scope = outer

	proto.End = a.chunk.Len()
	proto.NumLocals = inner.slots
	proto.NumCaptures = len(inner.captures)
	a.chunk.Patch(skip, a.chunk.Len())
	for _, name := range inner.captures {
		a.load(name, open)
	}
	a.emit(vm.OP_CLOSURE, idx, open)
}

func (a *assembler) skipBlock() {
	depth := 1
	for depth > 0 && a.cur().Type != token.EOF {
		switch a.advance().Type {
		case token.LBRACKET:
			depth++
		case token.RBRACKET:
			depth--
		}
	}
}

// let binds the value left by the words up to ';' to a fresh local.
func (a *assembler) let(tok token.Token) {
	name := a.advance()
	if name.Type != token.IDENT {
		a.errorf(diagnostics.ErrP001, name, "expected a name after let, got %q", name.Lexeme)
		return
	}
	if eq := a.advance(); eq.Type != token.ASSIGN {
		a.errorf(diagnostics.ErrP001, eq, "expected '=' after let %s, got %q", name.Lexeme, eq.Lexeme)
		return
	}
	a.words(token.SEMICOLON)
	if a.cur().Type != token.SEMICOLON {
		a.errorf(diagnostics.ErrP001, tok, "let %s is not terminated by ';'", name.Lexeme)
		return
	}
	a.advance()
	slot := a.scope.define(name.Lexeme)
	a.emit(vm.OP_SET_LOCAL, slot, name)
}

// name resolves an identifier: locals shadow words, words shadow builtins
// and builtins shadow parameters.
func (a *assembler) name(tok token.Token) {
	n := tok.Lexeme
	if a.scope.visible(n) {
		a.load(n, tok)
		return
	}
	if w, ok := vm.LookupWord(n); ok {
		a.emit(w.Op, 0, tok)
		return
	}
	if c, ok := builtins.Constants[n]; ok {
		a.constant(c, tok)
		return
	}
	if spec, ok := builtins.Lookup(n); ok && spec.Builtin != nil {
		a.emit(vm.OP_BUILTIN, a.chunk.AddConstant(spec.Builtin), tok)
		return
	}
	if a.params[n] {
		a.emit(vm.OP_GET_PARAM, a.chunk.AddName(n), tok)
		return
	}
	a.errorf(diagnostics.ErrB001, tok, "unknown word %s", n)
}

// load pushes a visible name, capturing it when it belongs to an
// enclosing quote.
func (a *assembler) load(name string, tok token.Token) {
	a.emitLoad(a.scope, name, tok)
}

func (a *assembler) emitLoad(s *scope, name string, tok token.Token) {
	if slot, ok := s.locals[name]; ok {
		a.emit(vm.OP_GET_LOCAL, slot, tok)
		return
	}
	idx, ok := s.capIndex[name]
	if !ok {
		idx = len(s.captures)
		s.captures = append(s.captures, name)
		s.capIndex[name] = idx
	}
	a.emit(vm.OP_GET_CAPTURE, idx, tok)
}

// operator handles punctuation and keyword tokens that spell words.
func (a *assembler) operator(tok token.Token) {
	if w, ok := vm.LookupWord(tok.Lexeme); ok {
		a.emit(w.Op, 0, tok)
		return
	}
	if tok.Type == token.ILLEGAL {
		reason, _ := tok.Literal.(string)
		a.errorf(diagnostics.ErrP004, tok, "%s", reason)
		return
	}
	a.errorf(diagnostics.ErrP002, tok, "%q is not a word", tok.Lexeme)
}

const maxDepth = 64
