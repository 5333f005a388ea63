// Package vm implements the stack machine that renders a compiled command
// stream into a drawing surface.
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // Push constant Arg
	OP_UNIT                // Push unit
	OP_POP                 // Discard top of stack
	OP_DUP                 // Duplicate top of stack
	OP_SWAP                // Exchange the two top values

	// Arithmetic
	OP_ADD // +
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /
	OP_POW // ^
	OP_NEG // Unary minus

	// Comparison
	OP_EQ // ==
	OP_LT // <
	OP_GT // >
	OP_LE // <=
	OP_GE // >=

	// Logic
	OP_NOT
	OP_AND
	OP_OR
	OP_XOR

	// Variables
	OP_GET_LOCAL   // Push local slot Arg
	OP_SET_LOCAL   // Pop into local slot Arg
	OP_GET_CAPTURE // Push capture Arg of the running closure
	OP_GET_PARAM   // Push the parameter named by constant Arg

	// Control flow; Arg is an absolute target
	OP_JUMP
	OP_JUMP_IF_FALSE // Pops the condition
	OP_JUMP_IF_TRUE  // Pops the condition

	// Functions and quotes
	OP_CALL    // Call with Arg arguments
	OP_BUILTIN // Call builtin constant Arg with its fixed arity
	OP_CLOSURE // Pop captures and push a closure over proto Arg
	OP_RETURN  // Return top of stack from a function frame
	OP_END     // End of a quoted block
	OP_HALT    // End of the program

	// Data structures
	OP_LIST   // Build list from Arg values
	OP_MAP    // Build map from Arg key/value pairs
	OP_TUPLE  // Build tuple from Arg values
	OP_POINT  // Build point from x y
	OP_UNPACK // Split point into x y
	OP_FIELD  // Select field named by constant Arg
	OP_INDEX  // Index list, tuple or map

	// Host
	OP_EFFECT // Pop an argument list and hand it to Surface.Effect under constant Arg

	// Path construction
	OP_MOVETO
	OP_LINETO
	OP_CURVETO
	OP_ARC
	OP_CIRCLE
	OP_RECTANGLE
	OP_CLOSEPATH
	OP_NEWPATH

	// Style
	OP_SETSOURCE
	OP_SETLINEWIDTH
	OP_SETLINEJOIN
	OP_SETLINECAP

	// Context
	OP_SAVE
	OP_RESTORE
	OP_TRANSLATE
	OP_ROTATE
	OP_SCALE

	// Terminals
	OP_FILL
	OP_STROKE
	OP_CLIP
	OP_PAINT
	OP_TEXT

	// Control words
	OP_REPEAT
	OP_IFELSE
	OP_EXEC

	// Query
	OP_CURRENTPOINT
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_CONST: "CONST",
	OP_UNIT:  "UNIT",
	OP_POP:   "POP",
	OP_DUP:   "DUP",
	OP_SWAP:  "SWAP",

	OP_ADD: "ADD",
	OP_SUB: "SUB",
	OP_MUL: "MUL",
	OP_DIV: "DIV",
	OP_POW: "POW",
	OP_NEG: "NEG",

	OP_EQ: "EQ",
	OP_LT: "LT",
	OP_GT: "GT",
	OP_LE: "LE",
	OP_GE: "GE",

	OP_NOT: "NOT",
	OP_AND: "AND",
	OP_OR:  "OR",
	OP_XOR: "XOR",

	OP_GET_LOCAL:   "GET_LOCAL",
	OP_SET_LOCAL:   "SET_LOCAL",
	OP_GET_CAPTURE: "GET_CAPTURE",
	OP_GET_PARAM:   "GET_PARAM",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_JUMP_IF_TRUE:  "JUMP_IF_TRUE",

	OP_CALL:    "CALL",
	OP_BUILTIN: "BUILTIN",
	OP_CLOSURE: "CLOSURE",
	OP_RETURN:  "RETURN",
	OP_END:     "END",
	OP_HALT:    "HALT",

	OP_LIST:   "LIST",
	OP_MAP:    "MAP",
	OP_TUPLE:  "TUPLE",
	OP_POINT:  "POINT",
	OP_UNPACK: "UNPACK",
	OP_FIELD:  "FIELD",
	OP_INDEX:  "INDEX",

	OP_EFFECT: "EFFECT",

	OP_MOVETO:    "MOVETO",
	OP_LINETO:    "LINETO",
	OP_CURVETO:   "CURVETO",
	OP_ARC:       "ARC",
	OP_CIRCLE:    "CIRCLE",
	OP_RECTANGLE: "RECTANGLE",
	OP_CLOSEPATH: "CLOSEPATH",
	OP_NEWPATH:   "NEWPATH",

	OP_SETSOURCE:    "SETSOURCE",
	OP_SETLINEWIDTH: "SETLINEWIDTH",
	OP_SETLINEJOIN:  "SETLINEJOIN",
	OP_SETLINECAP:   "SETLINECAP",

	OP_SAVE:      "SAVE",
	OP_RESTORE:   "RESTORE",
	OP_TRANSLATE: "TRANSLATE",
	OP_ROTATE:    "ROTATE",
	OP_SCALE:     "SCALE",

	OP_FILL:   "FILL",
	OP_STROKE: "STROKE",
	OP_CLIP:   "CLIP",
	OP_PAINT:  "PAINT",
	OP_TEXT:   "TEXT",

	OP_REPEAT: "REPEAT",
	OP_IFELSE: "IFELSE",
	OP_EXEC:   "EXEC",

	OP_CURRENTPOINT: "CURRENTPOINT",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsJump reports whether Arg is a code address.
func (op Opcode) IsJump() bool {
	return op == OP_JUMP || op == OP_JUMP_IF_FALSE || op == OP_JUMP_IF_TRUE
}
