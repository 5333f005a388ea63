package lexer

import (
	"testing"

	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `let r: Float = 5.5;
func area(x: Float) -> Float { x ^ 2 }
circle <- (0, 0), r;
for k, v in {a: 1} { emit(k) }
if (r >= 1 and not false) { "a\"b" } elif (r <= 2) { #ff0000 } else { [1, -2] }
// comment
x == y - 3`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
	}{
		{token.LET, "let"},
		{token.IDENT, "r"},
		{token.COLON, ":"},
		{token.IDENT, "Float"},
		{token.ASSIGN, "="},
		{token.FLOAT, "5.5"},
		{token.SEMICOLON, ";"},
		{token.FUNC, "func"},
		{token.IDENT, "area"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COLON, ":"},
		{token.IDENT, "Float"},
		{token.RPAREN, ")"},
		{token.ARROW, "->"},
		{token.IDENT, "Float"},
		{token.LBRACE, "{"},
		{token.IDENT, "x"},
		{token.CARET, "^"},
		{token.INT, "2"},
		{token.RBRACE, "}"},
		{token.IDENT, "circle"},
		{token.L_ARROW, "<-"},
		{token.LPAREN, "("},
		{token.INT, "0"},
		{token.COMMA, ","},
		{token.INT, "0"},
		{token.RPAREN, ")"},
		{token.COMMA, ","},
		{token.IDENT, "r"},
		{token.SEMICOLON, ";"},
		{token.FOR, "for"},
		{token.IDENT, "k"},
		{token.COMMA, ","},
		{token.IDENT, "v"},
		{token.IN, "in"},
		{token.LBRACE, "{"},
		{token.IDENT, "a"},
		{token.COLON, ":"},
		{token.INT, "1"},
		{token.RBRACE, "}"},
		{token.LBRACE, "{"},
		{token.IDENT, "emit"},
		{token.LPAREN, "("},
		{token.IDENT, "k"},
		{token.RPAREN, ")"},
		{token.RBRACE, "}"},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.IDENT, "r"},
		{token.GTE, ">="},
		{token.INT, "1"},
		{token.AND, "and"},
		{token.NOT, "not"},
		{token.FALSE, "false"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.STRING, `"a\"b"`},
		{token.RBRACE, "}"},
		{token.ELIF, "elif"},
		{token.LPAREN, "("},
		{token.IDENT, "r"},
		{token.LTE, "<="},
		{token.INT, "2"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.COLOR, "#ff0000"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.LBRACKET, "["},
		{token.INT, "1"},
		{token.COMMA, ","},
		{token.INT, "-2"},
		{token.RBRACKET, "]"},
		{token.RBRACE, "}"},
		{token.IDENT, "x"},
		{token.EQ, "=="},
		{token.IDENT, "y"},
		{token.MINUS, "-"},
		{token.INT, "3"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)", i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.expectedLexeme, tok.Lexeme)
		}
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected interface{}
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.25", 3.25},
		{"-0.5", -0.5},
		{`"tab\there"`, "tab\there"},
		{`"line\n"`, "line\n"},
		{"#ff0000", uint32(0xff0000ff)},
		{"#00ff0080", uint32(0x00ff0080)},
		{"true", true},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Literal != tt.expected {
			t.Errorf("input %q: literal = %#v, want %#v", tt.input, tok.Literal, tt.expected)
		}
	}
}

func TestMinusAfterOperandIsOperator(t *testing.T) {
	toks := Tokenize("a -1")
	if toks[1].Type != token.MINUS || toks[2].Type != token.INT || toks[2].Literal != int64(1) {
		t.Fatalf("expected binary minus, got %v", toks)
	}

	toks = NewPostfix("5 -3 sub").All()
	if toks[1].Type != token.INT || toks[1].Literal != int64(-3) {
		t.Fatalf("postfix mode should lex -3 as a number, got %v", toks[1])
	}
}

func TestPositions(t *testing.T) {
	toks := Tokenize("let a = 1;\n  fill <- ;")
	fill := toks[5]
	if fill.Lexeme != "fill" || fill.Line != 2 || fill.Column != 3 {
		t.Fatalf("fill token at %d:%d (%q), want 2:3", fill.Line, fill.Column, fill.Lexeme)
	}
}

func TestTokenizeIsEager(t *testing.T) {
	toks := Tokenize("a b c")
	if len(toks) != 4 || toks[3].Type != token.EOF {
		t.Fatalf("expected 3 tokens + EOF, got %v", toks)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		input string
		code  string
		line  int
		col   int
	}{
		{"let a = 1 @ 2;", "L001", 1, 11},
		{"let s = \"open", "L002", 1, 9},
		{"x\n  #12;", "L003", 2, 3},
	}

	for _, tt := range tests {
		ctx := &pipeline.PipelineContext{SourceCode: tt.input}
		ctx = (&LexerProcessor{}).Process(ctx)
		if len(ctx.Errors) != 1 {
			t.Fatalf("%q: expected 1 error, got %d", tt.input, len(ctx.Errors))
		}
		e := ctx.Errors[0]
		if string(e.Code) != tt.code {
			t.Errorf("%q: code = %s, want %s", tt.input, e.Code, tt.code)
		}
		if e.Token.Line != tt.line || e.Token.Column != tt.col {
			t.Errorf("%q: position = %d:%d, want %d:%d", tt.input, e.Token.Line, e.Token.Column, tt.line, tt.col)
		}
	}
}
