package compiler

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/vm"
)

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.FuncDef:
		c.compileFunction(s.Name.Value, s, s.Body, false, s.Token).Type = symType(c.info.Defs[s.Name])
		c.store(c.info.Defs[s.Name], s.Name.Token)
	case *ast.ProcDef:
		c.compileFunction(s.Name.Value, s, s.Body, true, s.Token).Type = symType(c.info.Defs[s.Name])
		c.store(c.info.Defs[s.Name], s.Name.Token)
	case *ast.TypeDef:
		c.compileTypeDef(s)
	case *ast.ParamDecl:
		// Parameters are read by name from the render environment.
	case *ast.LetStatement:
		c.compileExpression(s.Value)
		c.store(c.info.Defs[s.Name], s.Name.Token)
	case *ast.EffectStatement:
		c.compileEffect(s)
	case *ast.ForStatement:
		c.compileFor(s)
	case *ast.ExpressionStatement:
		if s.Expression != nil {
			c.compileExpression(s.Expression)
			c.emit(vm.OP_POP, 0, s.Token)
		}
	}
}

// compileEffect emits a drawing word directly when the effect names one,
// and hands anything else to the surface as a named effect.
func (c *Compiler) compileEffect(es *ast.EffectStatement) {
	name := es.Name.Value
	if w, ok := vm.LookupWord(name); ok && w.Drawing() {
		if len(es.Args) != len(w.In) {
			c.errorf(diagnostics.ErrC004, es.Name.Token, "%s takes %d arguments, got %d", name, len(w.In), len(es.Args))
			return
		}
		for _, arg := range es.Args {
			c.compileExpression(arg)
		}
		c.emit(w.Op, 0, es.Name.Token)
		for range w.Out {
			c.emit(vm.OP_POP, 0, es.Name.Token)
		}
		return
	}
	for _, arg := range es.Args {
		c.compileExpression(arg)
	}
	c.emit(vm.OP_LIST, len(es.Args), es.Token)
	c.emit(vm.OP_EFFECT, c.chunk.AddName(name), es.Name.Token)
}

// compileFor lays the body out as a quote that first pops the pushed value
// (and key) into its locals, then runs it with REPEAT.
func (c *Compiler) compileFor(fs *ast.ForStatement) {
	frame := c.info.Frames[fs]
	if frame == nil {
		c.errorf(diagnostics.ErrB001, fs.Token, "loop was not analyzed")
		return
	}
	c.compileExpression(fs.Collection)

	skip := c.emitJump(vm.OP_JUMP, fs.Token)
	proto := &vm.Proto{
		Name:        "for",
		Start:       c.chunk.Len(),
		Arity:       frame.Arity,
		NumCaptures: len(frame.Captures),
		Quote:       true,
	}
	idx := c.chunk.AddProto(proto)

	c.store(c.info.Defs[fs.Value], fs.Value.Token)
	if fs.Key != nil {
		c.store(c.info.Defs[fs.Key], fs.Key.Token)
	}
	c.compileBlock(fs.Body)
	c.emit(vm.OP_POP, 0, fs.Body.RBraceToken)
	c.emit(vm.OP_END, 0, fs.Body.RBraceToken)
	proto.End = c.chunk.Len()
	proto.NumLocals = frame.Locals
	c.patchJump(skip)

	for _, cp := range frame.Captures {
		c.load(cp.Source, fs.Token)
	}
	c.emit(vm.OP_CLOSURE, idx, fs.Token)
	c.emit(vm.OP_REPEAT, 0, fs.Token)
}

// compileTypeDef fills the hidden slots of a record's consts, then its
// methods and statics, in declaration order.
func (c *Compiler) compileTypeDef(td *ast.TypeDef) {
	rt, ok := td.Type.(*ast.RecordType)
	if !ok {
		return
	}
	for _, m := range rt.Members {
		cm, ok := m.(*ast.ConstMember)
		if !ok {
			continue
		}
		sym := c.info.Members[cm]
		if sym == nil {
			continue
		}
		c.compileExpression(cm.Value)
		c.store(sym, cm.Token)
	}
	for _, m := range rt.Members {
		var (
			name string
			body *ast.BlockExpression
			proc bool
		)
		switch m := m.(type) {
		case *ast.MethodMember:
			name, body, proc = m.Name.Value, m.Body, m.ReturnType == nil
		case *ast.StaticMember:
			name, body, proc = m.Name.Value, m.Body, m.ReturnType == nil
		default:
			continue
		}
		sym := c.info.Members[m]
		if sym == nil {
			continue
		}
		c.compileFunction(td.Name.Value+"."+name, body, body, proc, m.GetToken()).Type = sym.Type
		c.store(sym, m.GetToken())
	}
}
