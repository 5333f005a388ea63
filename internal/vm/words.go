package vm

import (
	"github.com/funvibe/dvi/internal/surface"
	"github.com/funvibe/dvi/internal/typesystem"
)

type WordKind int

const (
	StackWord WordKind = iota
	MathWord
	PathWord
	StyleWord
	ContextWord
	TerminalWord
	ControlWord
	QueryWord
)

// Word is a named opcode with its stack signature. In lists consumed
// values bottom to top; Out lists produced values the same way.
type Word struct {
	Name string
	Op   Opcode
	Kind WordKind
	In   []typesystem.Type
	Out  []typesystem.Type
}

// Drawing reports whether the word talks to the surface. Only drawing words
// may be named by an effect statement.
func (w *Word) Drawing() bool {
	switch w.Kind {
	case PathWord, StyleWord, ContextWord, TerminalWord, QueryWord:
		return true
	}
	return false
}

// Types shared by signatures and the verifier.
var (
	Number     = typesystem.Float
	Arithmetic = typesystem.NewUnion(typesystem.Float, typesystem.PointType, typesystem.Str)

	// BlockType is the type of quoted blocks.
	BlockType typesystem.Type = &typesystem.Func{Ret: typesystem.Any}

	// CollectionType admits everything REPEAT can iterate.
	CollectionType = typesystem.NewUnion(
		&typesystem.List{Elem: typesystem.Any},
		&typesystem.MapOf{Value: typesystem.Any},
		&typesystem.Tuple{},
	)

	LineJoinType = typesystem.NewEnum(surface.LineJoins...)
	LineCapType  = typesystem.NewEnum(surface.LineCaps...)
)

func ts(types ...typesystem.Type) []typesystem.Type { return types }

var (
	numT   = typesystem.Float
	pointT = typesystem.PointType
	anyT   = typesystem.Any
	boolT  = typesystem.Bool
)

// Words is the vocabulary of the command stream.
var Words = []*Word{
	{"pop", OP_POP, StackWord, ts(anyT), nil},
	{"dup", OP_DUP, StackWord, ts(anyT), ts(anyT, anyT)},
	{"swap", OP_SWAP, StackWord, ts(anyT, anyT), ts(anyT, anyT)},

	{"+", OP_ADD, MathWord, ts(Arithmetic, Arithmetic), ts(Arithmetic)},
	{"-", OP_SUB, MathWord, ts(Arithmetic, Arithmetic), ts(Arithmetic)},
	{"*", OP_MUL, MathWord, ts(Arithmetic, Arithmetic), ts(Arithmetic)},
	{"/", OP_DIV, MathWord, ts(Arithmetic, Arithmetic), ts(Arithmetic)},
	{"^", OP_POW, MathWord, ts(numT, numT), ts(numT)},
	{"neg", OP_NEG, MathWord, ts(Arithmetic), ts(Arithmetic)},
	{"<", OP_LT, MathWord, ts(anyT, anyT), ts(boolT)},
	{">", OP_GT, MathWord, ts(anyT, anyT), ts(boolT)},
	{"<=", OP_LE, MathWord, ts(anyT, anyT), ts(boolT)},
	{">=", OP_GE, MathWord, ts(anyT, anyT), ts(boolT)},
	{"==", OP_EQ, MathWord, ts(anyT, anyT), ts(boolT)},
	{"and", OP_AND, MathWord, ts(boolT, boolT), ts(boolT)},
	{"or", OP_OR, MathWord, ts(boolT, boolT), ts(boolT)},
	{"xor", OP_XOR, MathWord, ts(boolT, boolT), ts(boolT)},
	{"not", OP_NOT, MathWord, ts(boolT), ts(boolT)},
	{"point", OP_POINT, MathWord, ts(numT, numT), ts(pointT)},
	{"unpack", OP_UNPACK, MathWord, ts(pointT), ts(numT, numT)},

	{"moveto", OP_MOVETO, PathWord, ts(pointT), nil},
	{"lineto", OP_LINETO, PathWord, ts(pointT), nil},
	{"curveto", OP_CURVETO, PathWord, ts(pointT, pointT, pointT), nil},
	{"arc", OP_ARC, PathWord, ts(pointT, numT, numT, numT), nil},
	{"circle", OP_CIRCLE, PathWord, ts(pointT, numT), nil},
	{"rectangle", OP_RECTANGLE, PathWord, ts(pointT, numT, numT), nil},
	{"closepath", OP_CLOSEPATH, PathWord, nil, nil},
	{"newpath", OP_NEWPATH, PathWord, nil, nil},

	{"setsource", OP_SETSOURCE, StyleWord, ts(typesystem.ColorType), nil},
	{"setlinewidth", OP_SETLINEWIDTH, StyleWord, ts(numT), nil},
	{"setlinejoin", OP_SETLINEJOIN, StyleWord, ts(LineJoinType), nil},
	{"setlinecap", OP_SETLINECAP, StyleWord, ts(LineCapType), nil},

	{"save", OP_SAVE, ContextWord, nil, nil},
	{"restore", OP_RESTORE, ContextWord, nil, nil},
	{"translate", OP_TRANSLATE, ContextWord, ts(pointT), nil},
	{"rotate", OP_ROTATE, ContextWord, ts(numT), nil},
	{"scale", OP_SCALE, ContextWord, ts(numT, numT), nil},

	{"fill", OP_FILL, TerminalWord, nil, nil},
	{"stroke", OP_STROKE, TerminalWord, nil, nil},
	{"clip", OP_CLIP, TerminalWord, nil, nil},
	{"paint", OP_PAINT, TerminalWord, nil, nil},
	{"text", OP_TEXT, TerminalWord, ts(pointT, typesystem.Str), nil},

	{"repeat", OP_REPEAT, ControlWord, ts(CollectionType, BlockType), nil},
	{"ifelse", OP_IFELSE, ControlWord, ts(boolT, BlockType, BlockType), nil},
	{"exec", OP_EXEC, ControlWord, ts(BlockType), nil},

	{"currentpoint", OP_CURRENTPOINT, QueryWord, nil, ts(pointT)},
}

var (
	wordsByName = map[string]*Word{}
	wordsByOp   = map[Opcode]*Word{}
)

func init() {
	for _, w := range Words {
		wordsByName[w.Name] = w
		wordsByOp[w.Op] = w
	}
}

// LookupWord finds a word by its source name.
func LookupWord(name string) (*Word, bool) {
	w, ok := wordsByName[name]
	return w, ok
}

// WordFor returns the word an opcode implements, if any.
func WordFor(op Opcode) (*Word, bool) {
	w, ok := wordsByOp[op]
	return w, ok
}
