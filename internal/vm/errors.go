package vm

import (
	"fmt"

	"github.com/funvibe/dvi/internal/diagnostics"
)

// Fault is a RuntimeFault. It aborts the current render only.
type Fault struct {
	Code    diagnostics.ErrorCode
	Message string
	File    string
	Line    int
	Column  int
}

func (f *Fault) Error() string {
	prefix := ""
	if f.File != "" {
		prefix = f.File + ":"
	}
	return fmt.Sprintf("%s%d:%d: %s[%s]: %s", prefix, f.Line, f.Column, diagnostics.KindRuntime, f.Code, f.Message)
}

// fault builds a Fault located at the instruction being executed.
func (vm *VM) fault(code diagnostics.ErrorCode, format string, args ...interface{}) *Fault {
	f := &Fault{Code: code, Message: fmt.Sprintf(format, args...), File: vm.chunk.File}
	if pc := vm.pc; pc >= 0 && pc < len(vm.chunk.Lines) {
		f.Line = vm.chunk.Lines[pc]
		f.Column = vm.chunk.Columns[pc]
	}
	return f
}
