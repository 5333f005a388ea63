package vm

import (
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/typesystem"
)

// Instr is one (opcode, operand) pair of the command stream.
type Instr struct {
	Op  Opcode
	Arg int
}

// Proto describes a function or quoted block laid out inside the chunk.
// Its body occupies Code[Start:End]. For a quote Arity is the number of
// values it takes per REPEAT iteration, or 0 when unspecified.
type Proto struct {
	Name        string
	Start, End  int
	Arity       int
	NumLocals   int
	NumCaptures int

	// Quote blocks run on the caller's operand stack and finish with END;
	// functions take arguments into locals and finish with RETURN.
	Quote bool

	// Type is the declared signature of a function, if any.
	Type typesystem.Type
}

// ParamSpec is a render-time parameter the chunk reads.
type ParamSpec struct {
	Name    string
	Type    typesystem.Type
	Example object.Object
	Doc     string
	Line    int
	Column  int
}

// Chunk is a compiled command stream. It is never modified after the
// compiler returns it and may be shared by concurrent renders.
type Chunk struct {
	Code []Instr

	// Lines and Columns map instruction index to source position
	Lines   []int
	Columns []int

	// Constants pool - literals, names, builtins
	Constants []object.Object

	// Protos[0] is the program body
	Protos []*Proto

	Params []ParamSpec

	// File is the source file name
	File string

	names map[string]int
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]Instr, 0, 256),
		Lines:     make([]int, 0, 256),
		Columns:   make([]int, 0, 256),
		Constants: make([]object.Object, 0, 64),
		names:     make(map[string]int),
	}
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(op Opcode, arg, line, col int) int {
	c.Code = append(c.Code, Instr{Op: op, Arg: arg})
	c.Lines = append(c.Lines, line)
	c.Columns = append(c.Columns, col)
	return len(c.Code) - 1
}

// Patch rewrites the operand of instruction at.
func (c *Chunk) Patch(at, arg int) {
	c.Code[at].Arg = arg
}

// AddConstant adds a constant to the pool and returns its index
func (c *Chunk) AddConstant(value object.Object) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// AddName interns a string constant used as a name operand.
func (c *Chunk) AddName(name string) int {
	if c.names == nil {
		c.names = make(map[string]int)
	}
	if idx, ok := c.names[name]; ok {
		return idx
	}
	idx := c.AddConstant(&object.String{Value: name})
	c.names[name] = idx
	return idx
}

// AddProto registers a prototype and returns its index.
func (c *Chunk) AddProto(p *Proto) int {
	c.Protos = append(c.Protos, p)
	return len(c.Protos) - 1
}

// Len returns the number of instructions in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}

// Name returns the string constant at idx.
func (c *Chunk) Name(idx int) string {
	if s, ok := c.Constants[idx].(*object.String); ok {
		return s.Value
	}
	return ""
}

// Param looks up a declared parameter.
func (c *Chunk) Param(name string) (ParamSpec, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}
