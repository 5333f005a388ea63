package ast

// Visitor is implemented by tree walkers such as the code printer.
type Visitor interface {
	VisitProgram(node *Program)

	VisitFuncDef(node *FuncDef)
	VisitProcDef(node *ProcDef)
	VisitTypeDef(node *TypeDef)
	VisitParamDecl(node *ParamDecl)
	VisitLetStatement(node *LetStatement)
	VisitEffectStatement(node *EffectStatement)
	VisitForStatement(node *ForStatement)
	VisitExpressionStatement(node *ExpressionStatement)

	VisitIdentifier(node *Identifier)
	VisitIntegerLiteral(node *IntegerLiteral)
	VisitFloatLiteral(node *FloatLiteral)
	VisitStringLiteral(node *StringLiteral)
	VisitBooleanLiteral(node *BooleanLiteral)
	VisitColorLiteral(node *ColorLiteral)
	VisitPrefixExpression(node *PrefixExpression)
	VisitInfixExpression(node *InfixExpression)
	VisitCallExpression(node *CallExpression)
	VisitMemberExpression(node *MemberExpression)
	VisitIndexExpression(node *IndexExpression)
	VisitLambdaExpression(node *LambdaExpression)
	VisitBlockExpression(node *BlockExpression)
	VisitIfExpression(node *IfExpression)
	VisitListLiteral(node *ListLiteral)
	VisitMapLiteral(node *MapLiteral)
	VisitTupleLiteral(node *TupleLiteral)

	VisitNamedType(node *NamedType)
	VisitListType(node *ListType)
	VisitMapType(node *MapType)
	VisitTupleType(node *TupleType)
	VisitFuncType(node *FuncType)
	VisitRecordType(node *RecordType)
	VisitUnionType(node *UnionType)
	VisitInterType(node *InterType)
	VisitNotType(node *NotType)
	VisitDiffType(node *DiffType)
	VisitSymDiffType(node *SymDiffType)
	VisitRangeType(node *RangeType)
	VisitStepType(node *StepType)
	VisitEnumType(node *EnumType)
}
