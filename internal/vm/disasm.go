package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	starts := make(map[int]*Proto)
	for _, p := range chunk.Protos {
		starts[p.Start] = p
	}

	for offset := range chunk.Code {
		if p, ok := starts[offset]; ok && offset > 0 {
			sb.WriteString(protoHeader(p))
		}
		disassembleInstruction(&sb, chunk, offset)
	}

	for _, p := range chunk.Params {
		sb.WriteString(fmt.Sprintf("param %s: %s\n", p.Name, p.Type))
	}

	return sb.String()
}

func protoHeader(p *Proto) string {
	if p.Quote {
		return fmt.Sprintf("-- block %s (locals %d, captures %d) --\n", p.Name, p.NumLocals, p.NumCaptures)
	}
	return fmt.Sprintf("-- fn %s/%d (locals %d, captures %d) --\n", p.Name, p.Arity, p.NumLocals, p.NumCaptures)
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	// Print line number
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	in := chunk.Code[offset]
	name := in.Op.String()

	switch in.Op {
	case OP_CONST, OP_BUILTIN:
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, in.Arg, chunk.Constants[in.Arg].Inspect()))
	case OP_GET_PARAM, OP_FIELD, OP_EFFECT:
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, in.Arg, chunk.Name(in.Arg)))
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE:
		sb.WriteString(fmt.Sprintf("%-16s %4d -> %04d\n", name, offset, in.Arg))
	case OP_CLOSURE:
		p := chunk.Protos[in.Arg]
		sb.WriteString(fmt.Sprintf("%-16s %4d <%s %04d..%04d>\n", name, in.Arg, p.Name, p.Start, p.End))
	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_CAPTURE, OP_CALL, OP_LIST, OP_MAP, OP_TUPLE:
		sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, in.Arg))
	default:
		sb.WriteString(name + "\n")
	}
}
