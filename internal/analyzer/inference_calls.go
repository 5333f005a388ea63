package analyzer

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/builtins"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/typesystem"
)

func (a *Analyzer) inferCall(ce *ast.CallExpression) typesystem.Type {
	if id, ok := ce.Function.(*ast.Identifier); ok {
		if t, ok := a.inferBuiltinCall(ce, id); ok {
			return t
		}
	}

	var ft typesystem.Type
	if me, ok := ce.Function.(*ast.MemberExpression); ok {
		ft = a.inferMember(me, true)
		a.info.Types[me] = ft
	} else {
		ft = a.infer(ce.Function)
	}
	args := a.inferArgs(ce.Arguments)

	fn, ok := typesystem.Resolve(ft).(*typesystem.Func)
	if !ok {
		if known(ft) {
			a.errorf(diagnostics.ErrT007, ce.Function.GetToken(), "%s is not callable", ft)
		}
		return typesystem.Any
	}
	a.checkArgs(ce, fn, args)
	if fn.Ret == nil {
		return typesystem.Any
	}
	return fn.Ret
}

// inferBuiltinCall handles a call whose callee names a prelude function.
// It reports false when the name is shadowed or is not a function.
func (a *Analyzer) inferBuiltinCall(ce *ast.CallExpression, id *ast.Identifier) (typesystem.Type, bool) {
	res, ok := a.scope.Resolve(id.Value)
	if !ok || res.Kind != symbols.Builtin {
		return nil, false
	}
	spec, ok := builtins.Lookup(id.Value)
	if !ok {
		return nil, false
	}
	a.info.Resolutions[id] = res
	a.info.Types[id] = spec.Sig
	a.info.Builtins[ce] = id.Value

	args := a.inferArgs(ce.Arguments)
	if !spec.Variadic {
		a.checkArgs(ce, spec.Sig, args)
	}
	return spec.Sig.Ret, true
}

func (a *Analyzer) inferArgs(args []ast.Expression) []typesystem.Type {
	out := make([]typesystem.Type, len(args))
	for i, arg := range args {
		out[i] = a.infer(arg)
	}
	return out
}

func (a *Analyzer) checkArgs(ce *ast.CallExpression, fn *typesystem.Func, args []typesystem.Type) {
	if len(args) != len(fn.Params) {
		a.errorf(diagnostics.ErrT004, ce.Token, "wrong number of arguments: expected %d, got %d", len(fn.Params), len(args))
		return
	}
	for i, at := range args {
		if err := a.assignableExpr(fn.Params[i], at, ce.Arguments[i]); err != nil {
			a.errorf(checkCode(err), ce.Arguments[i].GetToken(), "argument %d: %v", i+1, err)
		}
	}
}

// inferMember types a dot selection. A method may only be selected as the
// callee of a call.
func (a *Analyzer) inferMember(me *ast.MemberExpression, callee bool) typesystem.Type {
	if id, ok := me.Left.(*ast.Identifier); ok {
		if sym, ok := a.scope.Find(id.Value); ok && sym.Kind == symbols.TypeSymbol {
			a.info.Resolutions[id] = a.scope.ResolveSymbol(sym)
			return a.inferStatic(me, sym)
		}
	}

	lt := a.infer(me.Left)
	name := me.Member.Value

	switch {
	case !known(lt):
		return typesystem.Any
	case typesystem.IsSubtype(lt, typesystem.PointType):
		if name == "x" || name == "y" {
			return typesystem.Float
		}
	case typesystem.IsSubtype(lt, typesystem.ColorType):
		switch name {
		case "r", "g", "b", "a":
			return typesystem.Float
		}
	}

	switch ct := typesystem.Resolve(lt).(type) {
	case *typesystem.MapOf:
		return ct.Value
	case *typesystem.Record:
		if ft, ok := ct.Field(name); ok {
			return ft
		}
		if mt, ok := ct.Method(name); ok {
			if !callee {
				a.errorf(diagnostics.ErrT006, me.Member.Token, "method %s of %s must be called", name, lt)
				return typesystem.Any
			}
			if !a.selectMember(me, a.records[ct], name, symbols.MethodRef, lt) {
				return typesystem.Any
			}
			return mt
		}
	}
	a.errorf(diagnostics.ErrT006, me.Member.Token, "%s has no member %s", lt, name)
	return typesystem.Any
}

// inferStatic types Type.name, which names a static function or a const.
func (a *Analyzer) inferStatic(me *ast.MemberExpression, sym *symbols.Symbol) typesystem.Type {
	name := me.Member.Value
	alias, _ := sym.Type.(*typesystem.Alias)
	tm := a.byAlias[alias]
	if tm == nil {
		a.errorf(diagnostics.ErrT006, me.Member.Token, "type %s has no member %s", sym.Name, name)
		return typesystem.Any
	}

	if st, ok := tm.record.Static(name); ok {
		if !a.selectMember(me, tm, name, symbols.StaticRef, alias) {
			return typesystem.Any
		}
		return st
	}
	for _, m := range tm.def.Members {
		if c, ok := m.(*ast.ConstMember); ok && c.Name != nil && c.Name.Value == name {
			if !a.selectMember(me, tm, name, symbols.ConstRef, alias) {
				return typesystem.Any
			}
			return tm.syms[name].Type
		}
	}
	a.errorf(diagnostics.ErrT006, me.Member.Token, "type %s has no static member %s", sym.Name, name)
	return typesystem.Any
}

// selectMember records how a selection reaches its hidden binding. The
// binding must already be defined and visible from here.
func (a *Analyzer) selectMember(me *ast.MemberExpression, tm *typeMembers, name string, kind symbols.MemberKind, owner typesystem.Type) bool {
	var sym *symbols.Symbol
	if tm != nil {
		sym = tm.syms[name]
	}
	if sym == nil {
		a.errorf(diagnostics.ErrT006, me.Member.Token, "%s.%s is not defined yet", owner, name)
		return false
	}
	if found, ok := a.scope.Find(sym.Name); !ok || found != sym {
		a.errorf(diagnostics.ErrT006, me.Member.Token, "%s.%s is not in scope", owner, name)
		return false
	}
	a.info.Selections[me] = symbols.MemberRef{Kind: kind, Res: a.scope.ResolveSymbol(sym)}
	return true
}
