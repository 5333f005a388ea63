package prettyprinter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/dvi/internal/ast"
	"github.com/funvibe/dvi/internal/token"
)

// --- Code Printer (Output looks like source code) ---

// Operator precedence (higher = binds tighter). Mirrors the parser table.
var operatorPrecedence = map[string]int{
	"and": 1,
	"or":  1,
	"xor": 1,
	"<":   2,
	">":   2,
	"<=":  2,
	">=":  2,
	"==":  2,
	"+":   3,
	"-":   3,
	"*":   4,
	"/":   4,
	"^":   5, // right-assoc
}

const (
	prefixPrec    = 6
	callPrec      = 7
	selectionPrec = 8
)

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return 10 // Default high precedence for unknown ops
}

// Right-associative operators
var rightAssoc = map[string]bool{
	"^": true,
}

type CodePrinter struct {
	buf    bytes.Buffer
	indent int
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

// Print renders a node as source text. The output parses back to a tree
// with the same ast.Dump.
func Print(node ast.Node) string {
	p := NewCodePrinter()
	node.Accept(p)
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

// printExpr prints an expression, adding parentheses only if needed
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int, isRight bool) {
	if expr == nil {
		p.write("<???>")
		return
	}
	switch e := expr.(type) {
	case *ast.InfixExpression:
		prec := getPrecedence(e.Operator)
		needParens := prec < parentPrec
		// For same precedence, check associativity
		if prec == parentPrec && isRight != rightAssoc[e.Operator] {
			needParens = true
		}
		if needParens {
			p.write("(")
		}
		p.printExpr(e.Left, prec, false)
		p.write(" " + e.Operator + " ")
		p.printExpr(e.Right, prec, true)
		if needParens {
			p.write(")")
		}
	case *ast.PrefixExpression:
		needParens := prefixPrec < parentPrec
		if needParens {
			p.write("(")
		}
		p.write(e.Operator)
		// '-5' would lex as a literal and 'not' needs a separator
		if e.Operator == "not" || startsWithNumber(e.Right) {
			p.write(" ")
		}
		p.printExpr(e.Right, prefixPrec, false)
		if needParens {
			p.write(")")
		}
	default:
		// For non-operator expressions, just use visitor
		expr.Accept(p)
	}
}

// startsWithNumber reports whether the printed form of e begins with a
// numeric literal.
func startsWithNumber(e ast.Expression) bool {
	switch e := e.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral:
		return true
	case *ast.CallExpression:
		return startsWithNumber(e.Function)
	case *ast.MemberExpression:
		return startsWithNumber(e.Left)
	case *ast.IndexExpression:
		return startsWithNumber(e.Left)
	}
	return false
}

// printTarget prints the left side of a call or selection.
func (p *CodePrinter) printTarget(e ast.Expression, prec int) {
	switch e.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral:
		p.write("(")
		e.Accept(p)
		p.write(")")
		return
	}
	p.printExpr(e, prec, false)
}

func (p *CodePrinter) printValues(es []ast.Expression) {
	for i, e := range es {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(e, 0, false)
	}
}

func (p *CodePrinter) printBlock(b *ast.BlockExpression) {
	if b == nil {
		p.write("<???>")
		return
	}
	b.Accept(p)
}

func (p *CodePrinter) printParams(params []*ast.Parameter) {
	p.write("(")
	for i, param := range params {
		if i > 0 {
			p.write(", ")
		}
		p.write(param.Name.Value)
		if param.Type != nil {
			p.write(": ")
			param.Type.Accept(p)
		}
	}
	p.write(")")
}

func (p *CodePrinter) printTypes(ts []ast.TypeTag) {
	for i, t := range ts {
		if i > 0 {
			p.write(", ")
		}
		t.Accept(p)
	}
}

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// mapKey prints bare names when they lex back as identifiers.
func mapKey(k string) string {
	if k == "" || token.IsKeyword(k) {
		return quote(k)
	}
	for i, r := range k {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		digit := r >= '0' && r <= '9'
		if !letter && !(digit && i > 0) {
			return quote(k)
		}
	}
	return k
}

// --- Program and statements ---

func (p *CodePrinter) VisitProgram(n *ast.Program) {
	for i, stmt := range n.Statements {
		if i > 0 {
			p.write("\n")
		}
		stmt.Accept(p)
		p.write("\n")
	}
}

func (p *CodePrinter) VisitFuncDef(n *ast.FuncDef) {
	p.write("func " + n.Name.Value)
	p.printParams(n.Params)
	p.write(" -> ")
	n.ReturnType.Accept(p)
	p.write(" ")
	p.printBlock(n.Body)
}

func (p *CodePrinter) VisitProcDef(n *ast.ProcDef) {
	p.write("proc " + n.Name.Value)
	p.printParams(n.Params)
	p.write(" ")
	p.printBlock(n.Body)
}

func (p *CodePrinter) VisitTypeDef(n *ast.TypeDef) {
	p.write("type " + n.Name.Value + " = ")
	n.Type.Accept(p)
	p.write(";")
}

func (p *CodePrinter) VisitParamDecl(n *ast.ParamDecl) {
	p.write("param " + n.Name.Value + ": ")
	n.Type.Accept(p)
	p.write(" = ")
	p.printExpr(n.Example, 0, false)
	if n.Doc != "" {
		p.write(", " + quote(n.Doc))
	}
	p.write(";")
}

func (p *CodePrinter) VisitLetStatement(n *ast.LetStatement) {
	p.write("let " + n.Name.Value)
	if n.Type != nil {
		p.write(": ")
		n.Type.Accept(p)
	}
	p.write(" = ")
	p.printExpr(n.Value, 0, false)
	p.write(";")
}

func (p *CodePrinter) VisitEffectStatement(n *ast.EffectStatement) {
	p.write(n.Name.Value + " <-")
	if len(n.Args) > 0 {
		p.write(" ")
		p.printValues(n.Args)
	} else {
		p.write(" ")
	}
	p.write(";")
}

func (p *CodePrinter) VisitForStatement(n *ast.ForStatement) {
	p.write("for ")
	if n.Key != nil {
		p.write(n.Key.Value + ", ")
	}
	p.write(n.Value.Value + " in ")
	p.printExpr(n.Collection, 0, false)
	p.write(" ")
	p.printBlock(n.Body)
}

func (p *CodePrinter) VisitExpressionStatement(n *ast.ExpressionStatement) {
	p.printExpr(n.Expression, 0, false)
	p.write(";")
}

// --- Expressions ---

func (p *CodePrinter) VisitIdentifier(n *ast.Identifier) {
	p.write(n.Value)
}

func (p *CodePrinter) VisitIntegerLiteral(n *ast.IntegerLiteral) {
	p.write(strconv.FormatInt(n.Value, 10))
}

func (p *CodePrinter) VisitFloatLiteral(n *ast.FloatLiteral) {
	p.write(ast.FormatFloatLiteral(n.Value))
}

func (p *CodePrinter) VisitStringLiteral(n *ast.StringLiteral) {
	p.write(quote(n.Value))
}

func (p *CodePrinter) VisitBooleanLiteral(n *ast.BooleanLiteral) {
	p.write(strconv.FormatBool(n.Value))
}

func (p *CodePrinter) VisitColorLiteral(n *ast.ColorLiteral) {
	if n.Value&0xff == 0xff {
		p.write(fmt.Sprintf("#%06x", n.Value>>8))
		return
	}
	p.write(fmt.Sprintf("#%08x", n.Value))
}

func (p *CodePrinter) VisitPrefixExpression(n *ast.PrefixExpression) {
	p.printExpr(n, 0, false)
}

func (p *CodePrinter) VisitInfixExpression(n *ast.InfixExpression) {
	p.printExpr(n, 0, false)
}

func (p *CodePrinter) VisitCallExpression(n *ast.CallExpression) {
	p.printTarget(n.Function, callPrec)
	args := n.Arguments
	var trailing *ast.LambdaExpression
	if n.Trailing && len(args) > 0 {
		trailing, _ = args[len(args)-1].(*ast.LambdaExpression)
		if trailing != nil {
			args = args[:len(args)-1]
		}
	}
	p.write("(")
	p.printValues(args)
	p.write(")")
	if trailing != nil {
		p.write(" ")
		p.printBlock(trailing.Body)
	}
}

func (p *CodePrinter) VisitMemberExpression(n *ast.MemberExpression) {
	p.printTarget(n.Left, selectionPrec)
	p.write("." + n.Member.Value)
}

func (p *CodePrinter) VisitIndexExpression(n *ast.IndexExpression) {
	p.printTarget(n.Left, selectionPrec)
	p.write("[")
	p.printExpr(n.Index, 0, false)
	p.write("]")
}

func (p *CodePrinter) VisitLambdaExpression(n *ast.LambdaExpression) {
	p.write("fn ")
	p.printParams(n.Params)
	if n.ReturnType != nil {
		p.write(" -> ")
		n.ReturnType.Accept(p)
	}
	p.write(" ")
	p.printBlock(n.Body)
}

func (p *CodePrinter) VisitBlockExpression(n *ast.BlockExpression) {
	if len(n.Statements) == 0 && n.Value == nil {
		p.write("{}")
		return
	}
	p.write("{\n")
	p.indent++
	for _, stmt := range n.Statements {
		p.writeIndent()
		stmt.Accept(p)
		p.write("\n")
	}
	if n.Value != nil {
		p.writeIndent()
		p.printExpr(n.Value, 0, false)
		p.write("\n")
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) VisitIfExpression(n *ast.IfExpression) {
	for i, b := range n.Branches {
		if i == 0 {
			p.write("if (")
		} else {
			p.write(" elif (")
		}
		p.printExpr(b.Condition, 0, false)
		p.write(") ")
		p.printBlock(b.Body)
	}
	if n.Else != nil {
		p.write(" else ")
		p.printBlock(n.Else)
	}
}

func (p *CodePrinter) VisitListLiteral(n *ast.ListLiteral) {
	p.write("[")
	p.printValues(n.Elements)
	p.write("]")
}

func (p *CodePrinter) VisitMapLiteral(n *ast.MapLiteral) {
	if len(n.Entries) == 0 {
		p.write("{:}")
		return
	}
	p.write("{")
	for i, e := range n.Entries {
		if i > 0 {
			p.write(", ")
		}
		p.write(mapKey(e.Key) + ": ")
		p.printExpr(e.Value, 0, false)
	}
	p.write("}")
}

func (p *CodePrinter) VisitTupleLiteral(n *ast.TupleLiteral) {
	p.write("(")
	p.printValues(n.Elements)
	p.write(")")
}

// --- Types ---

func (p *CodePrinter) VisitNamedType(n *ast.NamedType) {
	p.write(n.Name)
}

func (p *CodePrinter) VisitListType(n *ast.ListType) {
	p.write("List of ")
	n.Elem.Accept(p)
}

func (p *CodePrinter) VisitMapType(n *ast.MapType) {
	p.write("Map of ")
	n.Value.Accept(p)
}

func (p *CodePrinter) VisitTupleType(n *ast.TupleType) {
	p.write("(")
	p.printTypes(n.Types)
	p.write(")")
}

func (p *CodePrinter) VisitFuncType(n *ast.FuncType) {
	if n.Proc {
		p.write("Proc(")
		p.printTypes(n.Params)
		p.write(")")
		return
	}
	p.write("Func(")
	p.printTypes(n.Params)
	p.write(") -> ")
	n.ReturnType.Accept(p)
}

func (p *CodePrinter) VisitRecordType(n *ast.RecordType) {
	if len(n.Members) == 0 {
		p.write("{}")
		return
	}
	p.write("{\n")
	p.indent++
	for _, m := range n.Members {
		p.writeIndent()
		switch m := m.(type) {
		case *ast.FieldMember:
			p.write("field " + m.Name.Value + ": ")
			m.Type.Accept(p)
		case *ast.ConstMember:
			p.write("const " + m.Name.Value + " = ")
			p.printExpr(m.Value, 0, false)
		case *ast.MethodMember:
			p.printMethod("method", m.Name, m.Params, m.ReturnType, m.Body)
		case *ast.StaticMember:
			p.printMethod("static", m.Name, m.Params, m.ReturnType, m.Body)
		}
		p.write(";\n")
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) printMethod(kind string, name *ast.Identifier, params []*ast.Parameter, ret ast.TypeTag, body *ast.BlockExpression) {
	p.write(kind + " " + name.Value)
	p.printParams(params)
	if ret != nil {
		p.write(" -> ")
		ret.Accept(p)
	}
	p.write(" ")
	p.printBlock(body)
}

func (p *CodePrinter) VisitUnionType(n *ast.UnionType) {
	p.write("Union{")
	p.printTypes(n.Types)
	p.write("}")
}

func (p *CodePrinter) VisitInterType(n *ast.InterType) {
	p.write("Inter{")
	p.printTypes(n.Types)
	p.write("}")
}

func (p *CodePrinter) VisitNotType(n *ast.NotType) {
	p.write("Not(")
	n.Inner.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitDiffType(n *ast.DiffType) {
	p.write("Diff(")
	p.printTypes([]ast.TypeTag{n.Left, n.Right})
	p.write(")")
}

func (p *CodePrinter) VisitSymDiffType(n *ast.SymDiffType) {
	p.write("SymDiff(")
	p.printTypes([]ast.TypeTag{n.Left, n.Right})
	p.write(")")
}

func (p *CodePrinter) VisitRangeType(n *ast.RangeType) {
	p.write("Range(" + formatNumber(n.Lo) + ", " + formatNumber(n.Hi) + ")")
}

func (p *CodePrinter) VisitStepType(n *ast.StepType) {
	p.write("Step(" + formatNumber(n.Q) + ")")
}

func (p *CodePrinter) VisitEnumType(n *ast.EnumType) {
	p.write(quote(n.Tag))
}
