// Package compiler flattens a bound program into a vm.Chunk and verifies the
// stack shape of the result.
package compiler

import (
	"fmt"

	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/builtins"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/vm"
)

// Compiler compiles a bound AST to a command stream.
type Compiler struct {
	chunk *vm.Chunk
	info  *symbols.Info

	// builtinConsts interns one constant per prelude function.
	builtinConsts map[string]int

	errors diagnostics.List
}

// Compile lowers prog, which must have been analyzed without errors, and
// verifies the result.
func Compile(prog *ast.Program, info *symbols.Info) (*vm.Chunk, error) {
	c := &Compiler{
		chunk:         vm.NewChunk(),
		info:          info,
		builtinConsts: make(map[string]int),
	}
	c.chunk.File = prog.File

	frame := info.Frames[prog]
	if frame == nil {
		return nil, fmt.Errorf("compiler: program was not analyzed")
	}
	main := &vm.Proto{Name: "main"}
	c.chunk.AddProto(main)
	c.compileParams()

	for _, stmt := range prog.Statements {
		c.compileStatement(stmt)
	}
	c.emit(vm.OP_HALT, 0, lastToken(prog))
	main.End = c.chunk.Len()
	main.NumLocals = frame.Locals

	if len(c.errors) > 0 {
		c.errors.Sort()
		return nil, c.errors
	}
	if err := Verify(c.chunk); err != nil {
		return nil, err
	}
	return c.chunk, nil
}

func lastToken(prog *ast.Program) token.Token {
	if n := len(prog.Statements); n > 0 {
		return prog.Statements[n-1].GetToken()
	}
	return token.Token{Line: 1, Column: 1}
}

func (c *Compiler) compileParams() {
	for _, p := range c.info.Params {
		c.chunk.Params = append(c.chunk.Params, vm.ParamSpec{
			Name:    p.Name,
			Type:    p.Type,
			Example: p.Example,
			Doc:     p.Doc,
			Line:    p.Token.Line,
			Column:  p.Token.Column,
		})
	}
}

func (c *Compiler) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	err := diagnostics.NewError(code, tok, format, args...)
	err.File = c.chunk.File
	c.errors = append(c.errors, err)
}

func (c *Compiler) emit(op vm.Opcode, arg int, tok token.Token) int {
	return c.chunk.Emit(op, arg, tok.Line, tok.Column)
}

func (c *Compiler) emitConstant(value object.Object, tok token.Token) {
	c.emit(vm.OP_CONST, c.chunk.AddConstant(value), tok)
}

// emitJump emits a forward jump to be patched later.
func (c *Compiler) emitJump(op vm.Opcode, tok token.Token) int {
	return c.emit(op, -1, tok)
}

// patchJump points the jump at offset to the next instruction.
func (c *Compiler) patchJump(offset int) {
	c.chunk.Patch(offset, c.chunk.Len())
}

// load pushes the value a resolution names.
func (c *Compiler) load(res symbols.Resolution, tok token.Token) {
	switch res.Kind {
	case symbols.Local:
		c.emit(vm.OP_GET_LOCAL, res.Index, tok)
	case symbols.Capture:
		c.emit(vm.OP_GET_CAPTURE, res.Index, tok)
	case symbols.Param:
		c.emit(vm.OP_GET_PARAM, c.chunk.AddName(res.Name()), tok)
	case symbols.Builtin:
		c.loadBuiltin(res.Name(), tok)
	default:
		c.errorf(diagnostics.ErrT005, tok, "%s is not a value", res.Name())
	}
}

func (c *Compiler) loadBuiltin(name string, tok token.Token) {
	if v, ok := builtins.Constants[name]; ok {
		c.emitConstant(v, tok)
		return
	}
	c.emit(vm.OP_CONST, c.builtinConst(name, tok), tok)
}

// builtinConst returns the constant slot holding a prelude function.
func (c *Compiler) builtinConst(name string, tok token.Token) int {
	if idx, ok := c.builtinConsts[name]; ok {
		return idx
	}
	spec, ok := builtins.Lookup(name)
	if !ok || spec.Builtin == nil {
		c.errorf(diagnostics.ErrT005, tok, "%s can only be called", name)
		return 0
	}
	idx := c.chunk.AddConstant(spec.Builtin)
	c.builtinConsts[name] = idx
	return idx
}

// store pops into the slot of a declared symbol.
func (c *Compiler) store(sym *symbols.Symbol, tok token.Token) {
	if sym == nil {
		c.errorf(diagnostics.ErrB001, tok, "binding was not analyzed")
		return
	}
	c.emit(vm.OP_SET_LOCAL, sym.Slot, tok)
}

func isEmit(name string) bool { return name == config.EmitFuncName }
