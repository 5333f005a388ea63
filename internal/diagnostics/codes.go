package diagnostics

type ErrorCode string

// Kind groups codes into the error taxonomy shown to users.
type Kind string

const (
	KindLex     Kind = "LexError"
	KindSyntax  Kind = "SyntaxError"
	KindType    Kind = "TypeError"
	KindBind    Kind = "BindError"
	KindCompile Kind = "CompileError"
	KindRuntime Kind = "RuntimeFault"
)

const (
	// Lexer
	ErrL001 ErrorCode = "L001" // unrecognized character
	ErrL002 ErrorCode = "L002" // unterminated string
	ErrL003 ErrorCode = "L003" // malformed number or color

	// Parser
	ErrP000 ErrorCode = "P000" // internal: missing input
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // no prefix parse function
	ErrP003 ErrorCode = "P003" // block expression used as operand
	ErrP004 ErrorCode = "P004" // illegal token
	ErrP005 ErrorCode = "P005" // invalid type expression
	ErrP006 ErrorCode = "P006" // nesting too deep

	// Binder
	ErrB001 ErrorCode = "B001" // undeclared identifier
	ErrB002 ErrorCode = "B002" // duplicate binding
	ErrB003 ErrorCode = "B003" // recursive type alias
	ErrB004 ErrorCode = "B004" // unknown type name
	ErrB005 ErrorCode = "B005" // duplicate record member

	// Types
	ErrT001 ErrorCode = "T001" // declared vs inferred mismatch
	ErrT002 ErrorCode = "T002" // missing record field
	ErrT003 ErrorCode = "T003" // extra record field
	ErrT004 ErrorCode = "T004" // call arity mismatch
	ErrT005 ErrorCode = "T005" // operand types
	ErrT006 ErrorCode = "T006" // unknown member
	ErrT007 ErrorCode = "T007" // not callable
	ErrT008 ErrorCode = "T008" // effect argument type

	// Compiler
	ErrC001 ErrorCode = "C001" // stack underflow
	ErrC002 ErrorCode = "C002" // operand type mismatch
	ErrC003 ErrorCode = "C003" // unbalanced branches
	ErrC004 ErrorCode = "C004" // effect arity
	ErrC005 ErrorCode = "C005" // limits exceeded

	// Runtime
	ErrR001 ErrorCode = "R001" // stack underflow
	ErrR002 ErrorCode = "R002" // empty path
	ErrR003 ErrorCode = "R003" // division by zero
	ErrR004 ErrorCode = "R004" // index out of range / missing key
	ErrR005 ErrorCode = "R005" // not a collection / not a block
	ErrR006 ErrorCode = "R006" // operand type
	ErrR007 ErrorCode = "R007" // missing or invalid parameter
	ErrR008 ErrorCode = "R008" // context stack
	ErrR009 ErrorCode = "R009" // limits / cancelled
)

var kinds = map[byte]Kind{
	'L': KindLex,
	'P': KindSyntax,
	'B': KindBind,
	'T': KindType,
	'C': KindCompile,
	'R': KindRuntime,
}

// KindOf maps a code to its taxonomy entry.
func KindOf(code ErrorCode) Kind {
	if len(code) == 0 {
		return KindSyntax
	}
	if k, ok := kinds[code[0]]; ok {
		return k
	}
	return KindSyntax
}
