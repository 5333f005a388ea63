package compiler

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/typesystem"
	"github.com/funvibe/dvi/internal/vm"
)

var infixOps = map[string]vm.Opcode{
	"+":   vm.OP_ADD,
	"-":   vm.OP_SUB,
	"*":   vm.OP_MUL,
	"/":   vm.OP_DIV,
	"^":   vm.OP_POW,
	"==":  vm.OP_EQ,
	"<":   vm.OP_LT,
	">":   vm.OP_GT,
	"<=":  vm.OP_LE,
	">=":  vm.OP_GE,
	"xor": vm.OP_XOR,
}

func (c *Compiler) compileExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Identifier:
		res, ok := c.info.Resolutions[e]
		if !ok {
			c.errorf(diagnostics.ErrB001, e.Token, "undeclared name %s", e.Value)
			return
		}
		c.load(res, e.Token)
	case *ast.IntegerLiteral:
		c.emitConstant(&object.Integer{Value: e.Value}, e.Token)
	case *ast.FloatLiteral:
		c.emitConstant(&object.Float{Value: e.Value}, e.Token)
	case *ast.StringLiteral:
		c.emitConstant(&object.String{Value: e.Value}, e.Token)
	case *ast.BooleanLiteral:
		c.emitConstant(object.Bool(e.Value), e.Token)
	case *ast.ColorLiteral:
		c.emitConstant(object.ColorFromHex(e.Value), e.Token)
	case *ast.PrefixExpression:
		c.compileExpression(e.Right)
		if e.Operator == "not" {
			c.emit(vm.OP_NOT, 0, e.Token)
		} else {
			c.emit(vm.OP_NEG, 0, e.Token)
		}
	case *ast.InfixExpression:
		c.compileInfix(e)
	case *ast.CallExpression:
		c.compileCall(e)
	case *ast.MemberExpression:
		c.compileMember(e)
	case *ast.IndexExpression:
		c.compileExpression(e.Left)
		c.compileExpression(e.Index)
		c.emit(vm.OP_INDEX, 0, e.Token)
	case *ast.LambdaExpression:
		c.compileFunction("fn", e, e.Body, false, e.Token).Type = c.info.TypeOf(e)
	case *ast.BlockExpression:
		c.compileBlock(e)
	case *ast.IfExpression:
		c.compileIf(e)
	case *ast.ListLiteral:
		for _, el := range e.Elements {
			c.compileExpression(el)
		}
		c.emit(vm.OP_LIST, len(e.Elements), e.Token)
	case *ast.MapLiteral:
		for _, entry := range e.Entries {
			c.emit(vm.OP_CONST, c.chunk.AddName(entry.Key), entry.Token)
			c.compileExpression(entry.Value)
		}
		c.emit(vm.OP_MAP, len(e.Entries), e.Token)
	case *ast.TupleLiteral:
		for _, el := range e.Elements {
			c.compileExpression(el)
		}
		if c.info.TypeOf(e) == typesystem.PointType {
			c.emit(vm.OP_POINT, 0, e.Token)
		} else {
			c.emit(vm.OP_TUPLE, len(e.Elements), e.Token)
		}
	default:
		c.errorf(diagnostics.ErrP002, expr.GetToken(), "cannot compile %T", expr)
	}
}

// compileInfix emits both operands then the operator. and/or short-circuit:
// the left value stays on the stack when it decides the result.
func (c *Compiler) compileInfix(e *ast.InfixExpression) {
	switch e.Operator {
	case "and", "or":
		c.compileExpression(e.Left)
		c.emit(vm.OP_DUP, 0, e.Token)
		op := vm.OP_JUMP_IF_FALSE
		if e.Operator == "or" {
			op = vm.OP_JUMP_IF_TRUE
		}
		end := c.emitJump(op, e.Token)
		c.emit(vm.OP_POP, 0, e.Token)
		c.compileExpression(e.Right)
		c.patchJump(end)
		return
	}
	op, ok := infixOps[e.Operator]
	if !ok {
		c.errorf(diagnostics.ErrP002, e.Token, "unknown operator %s", e.Operator)
		return
	}
	c.compileExpression(e.Left)
	c.compileExpression(e.Right)
	c.emit(op, 0, e.Token)
}

// compileBlock emits the statements and then the block's value.
func (c *Compiler) compileBlock(b *ast.BlockExpression) {
	for _, stmt := range b.Statements {
		c.compileStatement(stmt)
	}
	if b.Value != nil {
		c.compileExpression(b.Value)
	} else {
		c.emit(vm.OP_UNIT, 0, b.RBraceToken)
	}
}

func (c *Compiler) compileIf(e *ast.IfExpression) {
	var ends []int
	for _, br := range e.Branches {
		c.compileExpression(br.Condition)
		next := c.emitJump(vm.OP_JUMP_IF_FALSE, br.Token)
		c.compileBlock(br.Body)
		ends = append(ends, c.emitJump(vm.OP_JUMP, br.Body.RBraceToken))
		c.patchJump(next)
	}
	if e.Else != nil {
		c.compileBlock(e.Else)
	} else {
		c.emit(vm.OP_UNIT, 0, e.Token)
	}
	for _, end := range ends {
		c.patchJump(end)
	}
}

func (c *Compiler) compileCall(e *ast.CallExpression) {
	if name, ok := c.info.Builtins[e]; ok {
		for _, arg := range e.Arguments {
			c.compileExpression(arg)
		}
		if isEmit(name) {
			c.emit(vm.OP_LIST, len(e.Arguments), e.Token)
			c.emit(vm.OP_EFFECT, c.chunk.AddName(name), e.Token)
			c.emit(vm.OP_UNIT, 0, e.Token)
			return
		}
		c.emit(vm.OP_BUILTIN, c.builtinConst(name, e.Token), e.Token)
		return
	}

	n := len(e.Arguments)
	if me, ok := e.Function.(*ast.MemberExpression); ok {
		if ref, ok := c.info.Selections[me]; ok && ref.Kind == symbols.MethodRef {
			c.load(ref.Res, me.Member.Token)
			c.compileExpression(me.Left)
			n++
		} else {
			c.compileMember(me)
		}
	} else {
		c.compileExpression(e.Function)
	}
	for _, arg := range e.Arguments {
		c.compileExpression(arg)
	}
	c.emit(vm.OP_CALL, n, e.Token)
}

// compileMember reads a field, or loads the hidden binding of a static or
// const member.
func (c *Compiler) compileMember(me *ast.MemberExpression) {
	if ref, ok := c.info.Selections[me]; ok {
		if ref.Kind == symbols.MethodRef {
			c.errorf(diagnostics.ErrT006, me.Member.Token, "method %s must be called", me.Member.Value)
			return
		}
		c.load(ref.Res, me.Member.Token)
		return
	}
	c.compileExpression(me.Left)
	c.emit(vm.OP_FIELD, c.chunk.AddName(me.Member.Value), me.Member.Token)
}

// compileFunction lays a function body out inline behind a jump and emits
// the CLOSURE that captures its free variables. With proc set the body's
// value is replaced by Unit.
func (c *Compiler) compileFunction(name string, node ast.Node, body *ast.BlockExpression, proc bool, tok token.Token) *vm.Proto {
	frame := c.info.Frames[node]
	proto := &vm.Proto{Name: name}
	if frame == nil {
		c.errorf(diagnostics.ErrB001, tok, "%s was not analyzed", name)
		return proto
	}

	skip := c.emitJump(vm.OP_JUMP, tok)
	proto.Start = c.chunk.Len()
	proto.Arity = frame.Arity
	proto.NumCaptures = len(frame.Captures)
	idx := c.chunk.AddProto(proto)

	c.compileBlock(body)
	if proc {
		c.emit(vm.OP_POP, 0, body.RBraceToken)
		c.emit(vm.OP_UNIT, 0, body.RBraceToken)
	}
	c.emit(vm.OP_RETURN, 0, body.RBraceToken)
	proto.End = c.chunk.Len()
	proto.NumLocals = frame.Locals
	c.patchJump(skip)

	for _, cp := range frame.Captures {
		c.load(cp.Source, tok)
	}
	c.emit(vm.OP_CLOSURE, idx, tok)
	return proto
}

func symType(sym *symbols.Symbol) typesystem.Type {
	if sym == nil {
		return nil
	}
	return sym.Type
}
