package analyzer

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/builtins"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/symbols"
)

// constant evaluates an expression built only from literals, prelude
// constants and prelude calls. Parameter examples must be constant.
func (a *Analyzer) constant(e ast.Expression) (object.Object, bool) {
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		return &object.Integer{Value: n.Value}, true
	case *ast.FloatLiteral:
		return &object.Float{Value: n.Value}, true
	case *ast.StringLiteral:
		return &object.String{Value: n.Value}, true
	case *ast.BooleanLiteral:
		return object.Bool(n.Value), true
	case *ast.ColorLiteral:
		return object.ColorFromHex(n.Value), true

	case *ast.Identifier:
		res, ok := a.info.Resolutions[n]
		if !ok || res.Kind != symbols.Builtin {
			return nil, false
		}
		c, ok := builtins.Constants[n.Value]
		return c, ok

	case *ast.PrefixExpression:
		v, ok := a.constant(n.Right)
		if !ok {
			return nil, false
		}
		switch x := v.(type) {
		case *object.Integer:
			if n.Operator == "-" {
				return &object.Integer{Value: -x.Value}, true
			}
		case *object.Float:
			if n.Operator == "-" {
				return &object.Float{Value: -x.Value}, true
			}
		case *object.Point:
			if n.Operator == "-" {
				return &object.Point{X: -x.X, Y: -x.Y}, true
			}
		case *object.Boolean:
			if n.Operator == "not" {
				return object.Bool(!x.Value), true
			}
		}
		return nil, false

	case *ast.InfixExpression:
		return a.constantArith(n)

	case *ast.ListLiteral:
		elems, ok := a.constants(n.Elements)
		if !ok {
			return nil, false
		}
		return &object.List{Elements: elems}, true

	case *ast.TupleLiteral:
		elems, ok := a.constants(n.Elements)
		if !ok {
			return nil, false
		}
		if len(elems) == 2 {
			x, okx := object.ToFloat(elems[0])
			y, oky := object.ToFloat(elems[1])
			if okx && oky {
				return &object.Point{X: x, Y: y}, true
			}
		}
		return &object.Tuple{Elements: elems}, true

	case *ast.MapLiteral:
		m := object.NewMap()
		for _, entry := range n.Entries {
			v, ok := a.constant(entry.Value)
			if !ok {
				return nil, false
			}
			m.Set(entry.Key, v)
		}
		return m, true

	case *ast.CallExpression:
		name, ok := a.info.Builtins[n]
		if !ok {
			return nil, false
		}
		spec, ok := builtins.Lookup(name)
		if !ok || spec.Variadic || len(n.Arguments) != spec.NumArgs {
			return nil, false
		}
		args, ok := a.constants(n.Arguments)
		if !ok {
			return nil, false
		}
		v, err := spec.Fn(args...)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func (a *Analyzer) constants(es []ast.Expression) ([]object.Object, bool) {
	out := make([]object.Object, len(es))
	for i, e := range es {
		v, ok := a.constant(e)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// constantArith folds numeric arithmetic. Integers stay integers under
// + - and *.
func (a *Analyzer) constantArith(ie *ast.InfixExpression) (object.Object, bool) {
	l, ok := a.constant(ie.Left)
	if !ok {
		return nil, false
	}
	r, ok := a.constant(ie.Right)
	if !ok {
		return nil, false
	}
	li, lInt := l.(*object.Integer)
	ri, rInt := r.(*object.Integer)
	if lInt && rInt {
		switch ie.Operator {
		case "+":
			return &object.Integer{Value: li.Value + ri.Value}, true
		case "-":
			return &object.Integer{Value: li.Value - ri.Value}, true
		case "*":
			return &object.Integer{Value: li.Value * ri.Value}, true
		}
	}
	x, okx := object.ToFloat(l)
	y, oky := object.ToFloat(r)
	if !okx || !oky {
		return nil, false
	}
	switch ie.Operator {
	case "+":
		return &object.Float{Value: x + y}, true
	case "-":
		return &object.Float{Value: x - y}, true
	case "*":
		return &object.Float{Value: x * y}, true
	case "/":
		if y == 0 {
			return nil, false
		}
		return &object.Float{Value: x / y}, true
	}
	return nil, false
}
