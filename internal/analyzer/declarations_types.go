package analyzer

import (
	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/symbols"
	"github.com/funvibe/dvi/internal/typesystem"
)

// hoistTypes declares every type definition of a statement list before any
// statement is analyzed, so definitions may refer to each other in any
// order. Recursive definitions are rejected.
func (a *Analyzer) hoistTypes(stmts []ast.Statement) {
	var defs []*ast.TypeDef
	for _, stmt := range stmts {
		td, ok := stmt.(*ast.TypeDef)
		if !ok || td.Name == nil {
			continue
		}
		alias := &typesystem.Alias{Name: td.Name.Value}
		if _, ok := a.scope.DefineType(td.Name.Value, alias, td.Name.Token); !ok {
			a.errorf(diagnostics.ErrB002, td.Name.Token, "type %s is already declared in this scope", td.Name.Value)
			continue
		}
		a.aliases[td] = alias
		defs = append(defs, td)
	}

	cyclic := a.findCycles(defs)
	for _, td := range defs {
		alias := a.aliases[td]
		if cyclic[td] {
			alias.Target = typesystem.Any
			continue
		}
		alias.Target = a.lowerType(td.Type)
		if rt, ok := td.Type.(*ast.RecordType); ok {
			if rec, ok := alias.Target.(*typesystem.Record); ok {
				tm := &typeMembers{alias: alias, record: rec, def: rt, syms: map[string]*symbols.Symbol{}, consts: map[string]bool{}}
				a.records[rec] = tm
				a.byAlias[alias] = tm
			}
		}
	}
}

// findCycles runs a DFS over the alias references of one scope's
// definitions. Method and static signatures do not count: a method may
// return its own record type.
func (a *Analyzer) findCycles(defs []*ast.TypeDef) map[*ast.TypeDef]bool {
	byName := make(map[string]*ast.TypeDef, len(defs))
	for _, td := range defs {
		byName[td.Name.Value] = td
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[*ast.TypeDef]int)
	cyclic := make(map[*ast.TypeDef]bool)
	var stack []*ast.TypeDef

	var visit func(td *ast.TypeDef)
	visit = func(td *ast.TypeDef) {
		color[td] = grey
		stack = append(stack, td)
		for _, name := range typeRefs(td.Type, nil) {
			next, ok := byName[name]
			if !ok {
				continue
			}
			switch color[next] {
			case grey:
				for i := len(stack) - 1; i >= 0; i-- {
					if !cyclic[stack[i]] {
						cyclic[stack[i]] = true
						a.errorf(diagnostics.ErrB003, stack[i].Name.Token, "type %s is defined in terms of itself", stack[i].Name.Value)
					}
					if stack[i] == next {
						break
					}
				}
			case white:
				visit(next)
			}
		}
		stack = stack[:len(stack)-1]
		color[td] = black
	}

	for _, td := range defs {
		if color[td] == white {
			visit(td)
		}
	}
	return cyclic
}

// typeRefs lists the names a type expression mentions.
func typeRefs(tag ast.TypeTag, acc []string) []string {
	switch t := tag.(type) {
	case *ast.NamedType:
		if _, prim := typesystem.Primitives[t.Name]; !prim {
			acc = append(acc, t.Name)
		}
	case *ast.ListType:
		acc = typeRefs(t.Elem, acc)
	case *ast.MapType:
		acc = typeRefs(t.Value, acc)
	case *ast.TupleType:
		for _, e := range t.Types {
			acc = typeRefs(e, acc)
		}
	case *ast.FuncType:
		for _, p := range t.Params {
			acc = typeRefs(p, acc)
		}
		if t.ReturnType != nil {
			acc = typeRefs(t.ReturnType, acc)
		}
	case *ast.RecordType:
		for _, m := range t.Members {
			if f, ok := m.(*ast.FieldMember); ok {
				acc = typeRefs(f.Type, acc)
			}
		}
	case *ast.UnionType:
		for _, e := range t.Types {
			acc = typeRefs(e, acc)
		}
	case *ast.InterType:
		for _, e := range t.Types {
			acc = typeRefs(e, acc)
		}
	case *ast.NotType:
		acc = typeRefs(t.Inner, acc)
	case *ast.DiffType:
		acc = typeRefs(t.Right, typeRefs(t.Left, acc))
	case *ast.SymDiffType:
		acc = typeRefs(t.Right, typeRefs(t.Left, acc))
	}
	return acc
}

// lowerType turns a syntactic type into a predicate.
func (a *Analyzer) lowerType(tag ast.TypeTag) typesystem.Type {
	switch t := tag.(type) {
	case nil:
		return typesystem.Any
	case *ast.NamedType:
		if prim, ok := typesystem.Primitives[t.Name]; ok {
			return prim
		}
		if sym, ok := a.scope.Find(t.Name); ok && sym.Kind == symbols.TypeSymbol {
			return sym.Type
		}
		a.errorf(diagnostics.ErrB004, t.Token, "unknown type %s", t.Name)
		return typesystem.Any
	case *ast.ListType:
		return &typesystem.List{Elem: a.lowerType(t.Elem)}
	case *ast.MapType:
		return &typesystem.MapOf{Value: a.lowerType(t.Value)}
	case *ast.TupleType:
		return &typesystem.Tuple{Elems: a.lowerTypes(t.Types)}
	case *ast.FuncType:
		ret := typesystem.Type(typesystem.UnitType)
		if !t.Proc && t.ReturnType != nil {
			ret = a.lowerType(t.ReturnType)
		}
		return &typesystem.Func{Params: a.lowerTypes(t.Params), Ret: ret}
	case *ast.RecordType:
		return a.lowerRecord(t)
	case *ast.UnionType:
		return typesystem.NewUnion(a.lowerTypes(t.Types)...)
	case *ast.InterType:
		return typesystem.NewInter(a.lowerTypes(t.Types)...)
	case *ast.NotType:
		return typesystem.Complement(a.lowerType(t.Inner))
	case *ast.DiffType:
		return typesystem.Difference(a.lowerType(t.Left), a.lowerType(t.Right))
	case *ast.SymDiffType:
		return typesystem.SymmetricDifference(a.lowerType(t.Left), a.lowerType(t.Right))
	case *ast.RangeType:
		return typesystem.NewRange(t.Lo, t.Hi)
	case *ast.StepType:
		return &typesystem.Step{Q: t.Q}
	case *ast.EnumType:
		return &typesystem.Enum{Tag: t.Tag}
	}
	return typesystem.Any
}

func (a *Analyzer) lowerTypes(tags []ast.TypeTag) []typesystem.Type {
	out := make([]typesystem.Type, len(tags))
	for i, t := range tags {
		out[i] = a.lowerType(t)
	}
	return out
}

func (a *Analyzer) lowerRecord(rt *ast.RecordType) *typesystem.Record {
	rec := &typesystem.Record{}
	seen := make(map[string]bool)
	for _, m := range rt.Members {
		name := m.MemberName()
		if name == nil {
			continue
		}
		if seen[name.Value] {
			a.errorf(diagnostics.ErrB005, name.Token, "duplicate member %s", name.Value)
			continue
		}
		seen[name.Value] = true

		switch m := m.(type) {
		case *ast.FieldMember:
			rec.Fields = append(rec.Fields, typesystem.Field{Name: name.Value, Type: a.lowerType(m.Type)})
		case *ast.MethodMember:
			rec.Methods = append(rec.Methods, typesystem.Field{Name: name.Value, Type: a.signature(m.Params, m.ReturnType, true)})
		case *ast.StaticMember:
			rec.Statics = append(rec.Statics, typesystem.Field{Name: name.Value, Type: a.signature(m.Params, m.ReturnType, true)})
		}
	}
	return rec
}

// signature lowers a parameter list and return annotation. With unitDefault
// a missing return type means Unit; otherwise it is left nil for inference.
func (a *Analyzer) signature(params []*ast.Parameter, ret ast.TypeTag, unitDefault bool) *typesystem.Func {
	fn := &typesystem.Func{Params: make([]typesystem.Type, len(params))}
	for i, p := range params {
		fn.Params[i] = a.lowerType(p.Type)
	}
	switch {
	case ret != nil:
		fn.Ret = a.lowerType(ret)
	case unitDefault:
		fn.Ret = typesystem.UnitType
	}
	return fn
}
