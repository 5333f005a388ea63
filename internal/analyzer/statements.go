package analyzer

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/token"
	"github.com/funvibe/dvi/internal/typesystem"
	"github.com/funvibe/dvi/internal/vm"
)

func (a *Analyzer) analyzeStatements(stmts []ast.Statement) {
	a.hoistTypes(stmts)
	for _, stmt := range stmts {
		a.analyzeStatement(stmt)
	}
}

func (a *Analyzer) analyzeStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.FuncDef:
		ft := a.analyzeFunction(s.Name.Value, s, s.Params, s.ReturnType, s.Body, nil, false)
		a.define(s.Name, ft)
	case *ast.ProcDef:
		ft := a.analyzeFunction(s.Name.Value, s, s.Params, nil, s.Body, nil, true)
		a.define(s.Name, ft)
	case *ast.TypeDef:
		a.analyzeTypeDef(s)
	case *ast.ParamDecl:
		a.analyzeParamDecl(s)
	case *ast.LetStatement:
		a.analyzeLet(s)
	case *ast.EffectStatement:
		a.analyzeEffect(s)
	case *ast.ForStatement:
		a.analyzeFor(s)
	case *ast.ExpressionStatement:
		if s.Expression != nil {
			a.infer(s.Expression)
		}
	}
}

// analyzeFunction binds params and body in a fresh frame and returns the
// function's type. The function's own name is not in scope, so it cannot
// call itself. With proc set the body's value is discarded.
func (a *Analyzer) analyzeFunction(name string, node ast.Node, params []*ast.Parameter, retTag ast.TypeTag, body *ast.BlockExpression, self typesystem.Type, proc bool) *typesystem.Func {
	sig := a.signature(params, retTag, proc)
	frame := symbols.NewFrame(name, node, a.scope.Frame())
	a.info.Frames[node] = frame

	a.withScope(frame, func() {
		if self != nil {
			a.scope.Define(config.SelfName, self, token.Token{})
			frame.Arity++
		}
		for i, p := range params {
			a.define(p.Name, sig.Params[i])
			frame.Arity++
		}

		bt := a.inferBlock(body)
		switch {
		case proc:
		case sig.Ret != nil:
			if err := assignable(sig.Ret, bt); err != nil {
				a.errorf(checkCode(err), body.RBraceToken, "%s returns %s: %v", name, bt, err)
			}
		default:
			sig.Ret = bt
		}
	})
	return sig
}

// analyzeTypeDef binds the hidden slots of a record's consts, methods and
// statics, in that order. A member body sees only the members bound
// before it.
func (a *Analyzer) analyzeTypeDef(td *ast.TypeDef) {
	alias, ok := a.aliases[td]
	if !ok {
		return
	}
	tm, ok := a.byAlias[alias]
	if !ok {
		return
	}
	typeName := alias.Name

	for _, m := range tm.def.Members {
		c, ok := m.(*ast.ConstMember)
		if !ok || c.Name == nil || tm.syms[c.Name.Value] != nil {
			continue
		}
		t := a.infer(c.Value)
		sym, _ := a.scope.DefineMember(typeName+"."+c.Name.Value, t, c.Token)
		a.info.Members[c] = sym
		tm.syms[c.Name.Value] = sym
		tm.consts[c.Name.Value] = true
	}

	for _, m := range tm.def.Members {
		var (
			name   *ast.Identifier
			params []*ast.Parameter
			ret    ast.TypeTag
			body   *ast.BlockExpression
			self   typesystem.Type
		)
		switch m := m.(type) {
		case *ast.MethodMember:
			name, params, ret, body, self = m.Name, m.Params, m.ReturnType, m.Body, alias
		case *ast.StaticMember:
			name, params, ret, body = m.Name, m.Params, m.ReturnType, m.Body
		default:
			continue
		}
		if name == nil || body == nil || tm.syms[name.Value] != nil {
			continue
		}
		ft := a.analyzeFunction(typeName+"."+name.Value, body, params, ret, body, self, ret == nil)
		if self != nil {
			ft = &typesystem.Func{Params: append([]typesystem.Type{self}, ft.Params...), Ret: ft.Ret}
		}
		sym, _ := a.scope.DefineMember(typeName+"."+name.Value, ft, name.Token)
		a.info.Members[m] = sym
		tm.syms[name.Value] = sym
	}
}

func (a *Analyzer) analyzeParamDecl(pd *ast.ParamDecl) {
	t := a.lowerType(pd.Type)
	a.infer(pd.Example)

	example, ok := a.constant(pd.Example)
	if !ok {
		a.errorf(diagnostics.ErrT001, pd.Example.GetToken(), "example for parameter %s must be a constant", pd.Name.Value)
	} else if err := typesystem.Explain(t, example); err != nil {
		a.errorf(checkCode(err), pd.Example.GetToken(), "example for parameter %s: %v", pd.Name.Value, err)
	}

	if _, dup := a.info.Param(pd.Name.Value); dup {
		a.errorf(diagnostics.ErrB002, pd.Name.Token, "parameter %s is already declared", pd.Name.Value)
		return
	}
	if _, ok := a.scope.DefineParam(pd.Name.Value, t, pd.Name.Token); !ok {
		a.errorf(diagnostics.ErrB002, pd.Name.Token, "%s is already declared in this scope", pd.Name.Value)
		return
	}
	a.info.Params = append(a.info.Params, symbols.ParamInfo{
		Name:    pd.Name.Value,
		Type:    t,
		Doc:     pd.Doc,
		Example: example,
		Token:   pd.Name.Token,
	})
}

func (a *Analyzer) analyzeLet(ls *ast.LetStatement) {
	t := a.infer(ls.Value)
	if ls.Type != nil {
		declared := a.lowerType(ls.Type)
		if err := a.assignableExpr(declared, t, ls.Value); err != nil {
			a.errorf(checkCode(err), ls.Value.GetToken(), "%s: %v", ls.Name.Value, err)
		}
		t = declared
	}
	a.define(ls.Name, t)
}

// analyzeEffect checks the argument types of effects that name a drawing
// word. The argument count is checked when the word is emitted.
func (a *Analyzer) analyzeEffect(es *ast.EffectStatement) {
	types := make([]typesystem.Type, len(es.Args))
	for i, arg := range es.Args {
		types[i] = a.infer(arg)
	}
	w, ok := vm.LookupWord(es.Name.Value)
	if !ok || !w.Drawing() || len(w.In) != len(types) {
		return
	}
	for i, t := range types {
		if typesystem.Disjoint(t, w.In[i]) {
			a.errorf(diagnostics.ErrT008, es.Args[i].GetToken(), "%s argument %d: expected %s, got %s", w.Name, i+1, w.In[i], t)
		}
	}
}

// analyzeFor binds the loop names in the body's own frame. With one name a
// list yields its elements and a map its values; with two, index and
// element or key and value.
func (a *Analyzer) analyzeFor(fs *ast.ForStatement) {
	keyT, valT := a.elementTypes(fs.Collection, a.infer(fs.Collection))

	frame := symbols.NewFrame("for", fs, a.scope.Frame())
	a.info.Frames[fs] = frame
	a.withScope(frame, func() {
		if fs.Key != nil {
			a.define(fs.Key, keyT)
			frame.Arity++
		}
		a.define(fs.Value, valT)
		frame.Arity++
		a.inferBlock(fs.Body)
	})
}

func (a *Analyzer) elementTypes(coll ast.Expression, t typesystem.Type) (key, val typesystem.Type) {
	switch ct := typesystem.Resolve(t).(type) {
	case *typesystem.List:
		return typesystem.Int, ct.Elem
	case *typesystem.Tuple:
		var elem typesystem.Type = typesystem.Never
		for _, e := range ct.Elems {
			elem = typesystem.Join(elem, e)
		}
		return typesystem.Int, elem
	case *typesystem.MapOf:
		return typesystem.Str, ct.Value
	case *typesystem.Record:
		var elem typesystem.Type = typesystem.Never
		for _, f := range ct.Fields {
			elem = typesystem.Join(elem, f.Type)
		}
		return typesystem.Str, elem
	}
	if typesystem.Disjoint(t, vm.CollectionType) {
		a.errorf(diagnostics.ErrT005, coll.GetToken(), "cannot iterate over %s", t)
	}
	return typesystem.Any, typesystem.Any
}
