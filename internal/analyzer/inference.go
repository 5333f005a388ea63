package analyzer

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/typesystem"
)

// infer computes and records the static type of e.
func (a *Analyzer) infer(e ast.Expression) typesystem.Type {
	if e == nil {
		return typesystem.Any
	}
	t := a.inferExpr(e)
	if t == nil {
		t = typesystem.Any
	}
	a.info.Types[e] = t
	return t
}

func (a *Analyzer) inferExpr(e ast.Expression) typesystem.Type {
	switch n := e.(type) {
	case *ast.Identifier:
		return a.inferIdentifier(n)
	case *ast.IntegerLiteral:
		return typesystem.Int
	case *ast.FloatLiteral:
		return typesystem.Float
	case *ast.StringLiteral:
		return &typesystem.Enum{Tag: n.Value}
	case *ast.BooleanLiteral:
		return typesystem.Bool
	case *ast.ColorLiteral:
		return typesystem.ColorType
	case *ast.PrefixExpression:
		return a.inferPrefix(n)
	case *ast.InfixExpression:
		return a.inferInfix(n)
	case *ast.CallExpression:
		return a.inferCall(n)
	case *ast.MemberExpression:
		return a.inferMember(n, false)
	case *ast.IndexExpression:
		return a.inferIndex(n)
	case *ast.LambdaExpression:
		return a.analyzeFunction("fn", n, n.Params, n.ReturnType, n.Body, nil, false)
	case *ast.BlockExpression:
		return a.inferBlock(n)
	case *ast.IfExpression:
		return a.inferIf(n)
	case *ast.ListLiteral:
		var elem typesystem.Type = typesystem.Never
		for _, el := range n.Elements {
			elem = typesystem.Join(elem, a.infer(el))
		}
		return &typesystem.List{Elem: elem}
	case *ast.MapLiteral:
		return a.inferMap(n)
	case *ast.TupleLiteral:
		return a.inferTuple(n)
	}
	return typesystem.Any
}

func (a *Analyzer) inferIdentifier(id *ast.Identifier) typesystem.Type {
	res, ok := a.scope.Resolve(id.Value)
	if !ok {
		a.errorf(diagnostics.ErrB001, id.Token, "undeclared name %s", id.Value)
		return typesystem.Any
	}
	a.info.Resolutions[id] = res
	switch {
	case res.Kind == symbols.TypeName:
		a.errorf(diagnostics.ErrT005, id.Token, "type %s used as a value", id.Value)
		return typesystem.Any
	case res.Kind == symbols.Builtin && id.Value == config.EmitFuncName:
		a.errorf(diagnostics.ErrT005, id.Token, "%s can only be called", id.Value)
		return typesystem.Any
	}
	return res.Type()
}

// inferBlock analyzes a block in a child scope of the current frame. Its
// type is the type of its trailing expression, or Unit.
func (a *Analyzer) inferBlock(b *ast.BlockExpression) typesystem.Type {
	if b == nil {
		return typesystem.UnitType
	}
	var t typesystem.Type = typesystem.UnitType
	a.withScope(nil, func() {
		a.analyzeStatements(b.Statements)
		if b.Value != nil {
			t = a.infer(b.Value)
		}
	})
	a.info.Types[b] = t
	return t
}

func (a *Analyzer) inferIf(ie *ast.IfExpression) typesystem.Type {
	var t typesystem.Type
	for _, br := range ie.Branches {
		ct := a.infer(br.Condition)
		if typesystem.Disjoint(ct, typesystem.Bool) {
			a.errorf(diagnostics.ErrT005, br.Condition.GetToken(), "condition must be Bool, got %s", ct)
		}
		t = typesystem.Join(t, a.inferBlock(br.Body))
	}
	if ie.Else != nil {
		t = typesystem.Join(t, a.inferBlock(ie.Else))
	} else {
		t = typesystem.Join(t, typesystem.UnitType)
	}
	return t
}

// inferMap types a map literal as the exact record of its entries.
func (a *Analyzer) inferMap(ml *ast.MapLiteral) typesystem.Type {
	rec := &typesystem.Record{}
	seen := make(map[string]bool, len(ml.Entries))
	for _, entry := range ml.Entries {
		vt := a.infer(entry.Value)
		if seen[entry.Key] {
			a.errorf(diagnostics.ErrB005, entry.Token, "duplicate key %q", entry.Key)
			continue
		}
		seen[entry.Key] = true
		rec.Fields = append(rec.Fields, typesystem.Field{Name: entry.Key, Type: vt})
	}
	return rec
}

// inferTuple types a literal tuple. A pair of numbers builds a point.
func (a *Analyzer) inferTuple(tl *ast.TupleLiteral) typesystem.Type {
	elems := make([]typesystem.Type, len(tl.Elements))
	for i, el := range tl.Elements {
		elems[i] = a.infer(el)
	}
	if isPointPair(elems) {
		return typesystem.PointType
	}
	return &typesystem.Tuple{Elems: elems}
}

func isPointPair(elems []typesystem.Type) bool {
	return len(elems) == 2 &&
		typesystem.IsSubtype(elems[0], typesystem.Float) &&
		typesystem.IsSubtype(elems[1], typesystem.Float)
}

func (a *Analyzer) inferPrefix(pe *ast.PrefixExpression) typesystem.Type {
	rt := a.infer(pe.Right)
	switch pe.Operator {
	case "not":
		if typesystem.Disjoint(rt, typesystem.Bool) {
			a.errorf(diagnostics.ErrT005, pe.Token, "not expects Bool, got %s", rt)
		}
		return typesystem.Bool
	case "-":
		switch {
		case typesystem.IsSubtype(rt, typesystem.Int):
			return typesystem.Int
		case typesystem.IsSubtype(rt, typesystem.Float):
			return typesystem.Float
		case typesystem.IsSubtype(rt, typesystem.PointType):
			return typesystem.PointType
		case typesystem.Disjoint(rt, typesystem.NewUnion(typesystem.Float, typesystem.PointType)):
			a.errorf(diagnostics.ErrT005, pe.Token, "cannot negate %s", rt)
		}
	}
	return typesystem.Any
}

func (a *Analyzer) inferInfix(ie *ast.InfixExpression) typesystem.Type {
	lt := a.infer(ie.Left)
	rt := a.infer(ie.Right)

	switch ie.Operator {
	case "and", "or", "xor":
		for _, side := range []struct {
			t typesystem.Type
			e ast.Expression
		}{{lt, ie.Left}, {rt, ie.Right}} {
			if typesystem.Disjoint(side.t, typesystem.Bool) {
				a.errorf(diagnostics.ErrT005, side.e.GetToken(), "%s expects Bool, got %s", ie.Operator, side.t)
			}
		}
		return typesystem.Bool
	case "==":
		return typesystem.Bool
	case "<", ">", "<=", ">=":
		if !comparable(lt, rt) {
			a.errorf(diagnostics.ErrT005, ie.Token, "cannot compare %s and %s", lt, rt)
		}
		return typesystem.Bool
	}

	t, ok := arithmetic(ie.Operator, lt, rt)
	if !ok {
		a.errorf(diagnostics.ErrT005, ie.Token, "unsupported operands for %s: %s and %s", ie.Operator, lt, rt)
		return typesystem.Any
	}
	return t
}

// known reports whether t is precise enough to reject an operation.
func known(t typesystem.Type) bool {
	switch typesystem.Resolve(t).(type) {
	case *typesystem.Union, *typesystem.Inter, *typesystem.Not, *typesystem.Diff, *typesystem.SymDiff:
		return false
	}
	return typesystem.Resolve(t) != typesystem.Any
}

func comparable(lt, rt typesystem.Type) bool {
	if !known(lt) || !known(rt) {
		return true
	}
	num := typesystem.IsSubtype(lt, typesystem.Float) && typesystem.IsSubtype(rt, typesystem.Float)
	str := typesystem.IsSubtype(lt, typesystem.Str) && typesystem.IsSubtype(rt, typesystem.Str)
	return num || str
}

// arithmetic mirrors the VM's operator table. Unknown operands give Any.
func arithmetic(op string, lt, rt typesystem.Type) (typesystem.Type, bool) {
	if !known(lt) || !known(rt) {
		return typesystem.Any, true
	}
	isInt := func(t typesystem.Type) bool { return typesystem.IsSubtype(t, typesystem.Int) }
	isNum := func(t typesystem.Type) bool { return typesystem.IsSubtype(t, typesystem.Float) }
	isPt := func(t typesystem.Type) bool { return typesystem.IsSubtype(t, typesystem.PointType) }
	isStr := func(t typesystem.Type) bool { return typesystem.IsSubtype(t, typesystem.Str) }

	switch {
	case isStr(lt) && isStr(rt):
		if op == "+" {
			return typesystem.Str, true
		}
	case isPt(lt) && isPt(rt):
		if op == "+" || op == "-" {
			return typesystem.PointType, true
		}
	case isPt(lt) && isNum(rt):
		if op == "*" || op == "/" {
			return typesystem.PointType, true
		}
	case isNum(lt) && isPt(rt):
		if op == "*" {
			return typesystem.PointType, true
		}
	case isInt(lt) && isInt(rt):
		switch op {
		case "+", "-", "*":
			return typesystem.Int, true
		case "/", "^":
			return typesystem.Float, true
		}
	case isNum(lt) && isNum(rt):
		switch op {
		case "+", "-", "*", "/", "^":
			return typesystem.Float, true
		}
	}
	return nil, false
}

func (a *Analyzer) inferIndex(ie *ast.IndexExpression) typesystem.Type {
	lt := a.infer(ie.Left)
	it := a.infer(ie.Index)

	badIndex := func(want typesystem.Type) {
		if typesystem.Disjoint(it, want) {
			a.errorf(diagnostics.ErrT005, ie.Index.GetToken(), "cannot index %s with %s", lt, it)
		}
	}

	switch ct := typesystem.Resolve(lt).(type) {
	case *typesystem.List:
		badIndex(typesystem.Int)
		return ct.Elem
	case *typesystem.Tuple:
		badIndex(typesystem.Int)
		if lit, ok := ie.Index.(*ast.IntegerLiteral); ok {
			if lit.Value < 0 || lit.Value >= int64(len(ct.Elems)) {
				a.errorf(diagnostics.ErrT005, lit.Token, "index %d out of range for %s", lit.Value, lt)
				return typesystem.Any
			}
			return ct.Elems[lit.Value]
		}
		var elem typesystem.Type = typesystem.Never
		for _, e := range ct.Elems {
			elem = typesystem.Join(elem, e)
		}
		return elem
	case *typesystem.MapOf:
		badIndex(typesystem.Str)
		return ct.Value
	case *typesystem.Record:
		badIndex(typesystem.Str)
		if lit, ok := ie.Index.(*ast.StringLiteral); ok {
			ft, ok := ct.Field(lit.Value)
			if !ok {
				a.errorf(diagnostics.ErrT006, lit.Token, "%s has no field %q", lt, lit.Value)
				return typesystem.Any
			}
			return ft
		}
		var elem typesystem.Type = typesystem.Never
		for _, f := range ct.Fields {
			elem = typesystem.Join(elem, f.Type)
		}
		return elem
	}
	if known(lt) {
		a.errorf(diagnostics.ErrT005, ie.Token, "cannot index %s", lt)
	}
	return typesystem.Any
}
