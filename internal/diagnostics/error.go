package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/dvi/internal/token"
)

// DiagnosticError is a located error produced by any compile-time stage.
type DiagnosticError struct {
	Code    ErrorCode
	Token   token.Token
	File    string
	Message string
}

func NewError(code ErrorCode, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &DiagnosticError{Code: code, Token: tok, Message: msg}
}

func (e *DiagnosticError) Kind() Kind { return KindOf(e.Code) }

func (e *DiagnosticError) Line() int   { return e.Token.Line }
func (e *DiagnosticError) Column() int { return e.Token.Column }

func (e *DiagnosticError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(":")
	}
	fmt.Fprintf(&sb, "%d:%d: %s[%s]: %s", e.Token.Line, e.Token.Column, e.Kind(), e.Code, e.Message)
	return sb.String()
}

// List is a set of diagnostics returned as a single error.
type List []*DiagnosticError

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Sort orders diagnostics by position, keeping the stage order for ties.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		if l[i].Token.Line != l[j].Token.Line {
			return l[i].Token.Line < l[j].Token.Line
		}
		return l[i].Token.Column < l[j].Token.Column
	})
}

// Has reports whether any diagnostic carries code.
func (l List) Has(code ErrorCode) bool {
	for _, e := range l {
		if e.Code == code {
			return true
		}
	}
	return false
}

// AsError returns nil for an empty list.
func (l List) AsError() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
