package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders a node as an S-expression that ignores positions. Two trees
// with equal dumps are structurally equal.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n)
	return sb.String()
}

func dump(sb *strings.Builder, n Node) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	switch n := n.(type) {
	case *Program:
		sb.WriteString("(program")
		for _, s := range n.Statements {
			sb.WriteByte(' ')
			dump(sb, s)
		}
		sb.WriteByte(')')

	case *FuncDef:
		fmt.Fprintf(sb, "(func %s ", n.Name.Value)
		dumpParams(sb, n.Params)
		sb.WriteByte(' ')
		dumpTag(sb, n.ReturnType)
		sb.WriteByte(' ')
		dumpBlock(sb, n.Body)
		sb.WriteByte(')')
	case *ProcDef:
		fmt.Fprintf(sb, "(proc %s ", n.Name.Value)
		dumpParams(sb, n.Params)
		sb.WriteByte(' ')
		dumpBlock(sb, n.Body)
		sb.WriteByte(')')
	case *TypeDef:
		fmt.Fprintf(sb, "(type %s ", n.Name.Value)
		dumpTag(sb, n.Type)
		sb.WriteByte(')')
	case *ParamDecl:
		fmt.Fprintf(sb, "(param %s ", n.Name.Value)
		dumpTag(sb, n.Type)
		sb.WriteByte(' ')
		dumpExpr(sb, n.Example)
		fmt.Fprintf(sb, " %s)", strconv.Quote(n.Doc))
	case *LetStatement:
		fmt.Fprintf(sb, "(let %s ", n.Name.Value)
		dumpTag(sb, n.Type)
		sb.WriteByte(' ')
		dumpExpr(sb, n.Value)
		sb.WriteByte(')')
	case *EffectStatement:
		fmt.Fprintf(sb, "(<- %s", n.Name.Value)
		dumpList(sb, n.Args)
		sb.WriteByte(')')
	case *ForStatement:
		sb.WriteString("(for ")
		if n.Key != nil {
			sb.WriteString(n.Key.Value + ",")
		}
		sb.WriteString(n.Value.Value + " ")
		dumpExpr(sb, n.Collection)
		sb.WriteByte(' ')
		dumpBlock(sb, n.Body)
		sb.WriteByte(')')
	case *ExpressionStatement:
		dumpExpr(sb, n.Expression)

	case *Identifier:
		sb.WriteString(n.Value)
	case *IntegerLiteral:
		sb.WriteString(strconv.FormatInt(n.Value, 10))
	case *FloatLiteral:
		sb.WriteString(FormatFloatLiteral(n.Value))
	case *StringLiteral:
		sb.WriteString(strconv.Quote(n.Value))
	case *BooleanLiteral:
		sb.WriteString(strconv.FormatBool(n.Value))
	case *ColorLiteral:
		fmt.Fprintf(sb, "#%08x", n.Value)
	case *PrefixExpression:
		fmt.Fprintf(sb, "(%s ", n.Operator)
		dumpExpr(sb, n.Right)
		sb.WriteByte(')')
	case *InfixExpression:
		fmt.Fprintf(sb, "(%s ", n.Operator)
		dumpExpr(sb, n.Left)
		sb.WriteByte(' ')
		dumpExpr(sb, n.Right)
		sb.WriteByte(')')
	case *CallExpression:
		if n.Trailing {
			sb.WriteString("(call* ")
		} else {
			sb.WriteString("(call ")
		}
		dumpExpr(sb, n.Function)
		dumpList(sb, n.Arguments)
		sb.WriteByte(')')
	case *MemberExpression:
		sb.WriteString("(. ")
		dumpExpr(sb, n.Left)
		fmt.Fprintf(sb, " %s)", n.Member.Value)
	case *IndexExpression:
		sb.WriteString("([] ")
		dumpExpr(sb, n.Left)
		sb.WriteByte(' ')
		dumpExpr(sb, n.Index)
		sb.WriteByte(')')
	case *LambdaExpression:
		sb.WriteString("(fn ")
		dumpParams(sb, n.Params)
		sb.WriteByte(' ')
		dumpTag(sb, n.ReturnType)
		sb.WriteByte(' ')
		dumpBlock(sb, n.Body)
		sb.WriteByte(')')
	case *BlockExpression:
		sb.WriteString("(block")
		for _, s := range n.Statements {
			sb.WriteByte(' ')
			dump(sb, s)
		}
		if n.Value != nil {
			sb.WriteString(" => ")
			dumpExpr(sb, n.Value)
		}
		sb.WriteByte(')')
	case *IfExpression:
		sb.WriteString("(if")
		for _, b := range n.Branches {
			sb.WriteString(" [")
			dumpExpr(sb, b.Condition)
			sb.WriteByte(' ')
			dumpBlock(sb, b.Body)
			sb.WriteByte(']')
		}
		if n.Else != nil {
			sb.WriteString(" else ")
			dumpBlock(sb, n.Else)
		}
		sb.WriteByte(')')
	case *ListLiteral:
		sb.WriteString("(list")
		dumpList(sb, n.Elements)
		sb.WriteByte(')')
	case *MapLiteral:
		sb.WriteString("(map")
		for _, e := range n.Entries {
			fmt.Fprintf(sb, " %s:", strconv.Quote(e.Key))
			dumpExpr(sb, e.Value)
		}
		sb.WriteByte(')')
	case *TupleLiteral:
		sb.WriteString("(tuple")
		dumpList(sb, n.Elements)
		sb.WriteByte(')')

	case TypeTag:
		dumpTag(sb, n)
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}

// dumpExpr guards against typed nil expressions left behind by parse errors.
func dumpExpr(sb *strings.Builder, e Expression) {
	if e == nil {
		sb.WriteString("nil")
		return
	}
	dump(sb, e)
}

func dumpList(sb *strings.Builder, es []Expression) {
	for _, e := range es {
		sb.WriteByte(' ')
		dumpExpr(sb, e)
	}
}

func dumpParams(sb *strings.Builder, ps []*Parameter) {
	sb.WriteByte('(')
	for i, p := range ps {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(p.Name.Value)
		if p.Type != nil {
			sb.WriteByte(':')
			dumpTag(sb, p.Type)
		}
	}
	sb.WriteByte(')')
}

func dumpTag(sb *strings.Builder, t TypeTag) {
	if t == nil {
		sb.WriteString("_")
		return
	}
	switch t := t.(type) {
	case *NamedType:
		sb.WriteString(t.Name)
	case *ListType:
		sb.WriteString("(List ")
		dumpTag(sb, t.Elem)
		sb.WriteByte(')')
	case *MapType:
		sb.WriteString("(Map ")
		dumpTag(sb, t.Value)
		sb.WriteByte(')')
	case *TupleType:
		sb.WriteString("(Tuple")
		dumpTags(sb, t.Types)
		sb.WriteByte(')')
	case *FuncType:
		if t.Proc {
			sb.WriteString("(Proc")
			dumpTags(sb, t.Params)
		} else {
			sb.WriteString("(Func")
			dumpTags(sb, t.Params)
			sb.WriteString(" -> ")
			dumpTag(sb, t.ReturnType)
		}
		sb.WriteByte(')')
	case *RecordType:
		sb.WriteString("(Record")
		for _, m := range t.Members {
			sb.WriteByte(' ')
			dumpMember(sb, m)
		}
		sb.WriteByte(')')
	case *UnionType:
		sb.WriteString("(Union")
		dumpTags(sb, t.Types)
		sb.WriteByte(')')
	case *InterType:
		sb.WriteString("(Inter")
		dumpTags(sb, t.Types)
		sb.WriteByte(')')
	case *NotType:
		sb.WriteString("(Not ")
		dumpTag(sb, t.Inner)
		sb.WriteByte(')')
	case *DiffType:
		sb.WriteString("(Diff")
		dumpTags(sb, []TypeTag{t.Left, t.Right})
		sb.WriteByte(')')
	case *SymDiffType:
		sb.WriteString("(SymDiff")
		dumpTags(sb, []TypeTag{t.Left, t.Right})
		sb.WriteByte(')')
	case *RangeType:
		fmt.Fprintf(sb, "(Range %s %s)", formatBound(t.Lo), formatBound(t.Hi))
	case *StepType:
		fmt.Fprintf(sb, "(Step %s)", formatBound(t.Q))
	case *EnumType:
		sb.WriteString(strconv.Quote(t.Tag))
	default:
		fmt.Fprintf(sb, "<%T>", t)
	}
}

func dumpTags(sb *strings.Builder, ts []TypeTag) {
	for _, t := range ts {
		sb.WriteByte(' ')
		dumpTag(sb, t)
	}
}

func dumpMember(sb *strings.Builder, m RecordMember) {
	switch m := m.(type) {
	case *FieldMember:
		fmt.Fprintf(sb, "(field %s ", m.Name.Value)
		dumpTag(sb, m.Type)
	case *ConstMember:
		fmt.Fprintf(sb, "(const %s ", m.Name.Value)
		dumpExpr(sb, m.Value)
	case *MethodMember:
		fmt.Fprintf(sb, "(method %s ", m.Name.Value)
		dumpParams(sb, m.Params)
		sb.WriteByte(' ')
		dumpTag(sb, m.ReturnType)
		sb.WriteByte(' ')
		dumpBlock(sb, m.Body)
	case *StaticMember:
		fmt.Fprintf(sb, "(static %s ", m.Name.Value)
		dumpParams(sb, m.Params)
		sb.WriteByte(' ')
		dumpTag(sb, m.ReturnType)
		sb.WriteByte(' ')
		dumpBlock(sb, m.Body)
	}
	sb.WriteByte(')')
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatFloatLiteral prints f so that it lexes back as a float literal.
func FormatFloatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

func dumpBlock(sb *strings.Builder, b *BlockExpression) {
	if b == nil {
		sb.WriteString("nil")
		return
	}
	dump(sb, b)
}
