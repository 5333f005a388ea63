package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/funvibe/dvi/internal/backend"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/vm"

	"github.com/mattn/go-isatty"
)

// NewLogger writes text records at level and above to w. Unknown levels
// fall back to info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// isTerminal reports whether w is a terminal, so diagnostics can be
// coloured.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func ansiWrap(code int, s string) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", code, s)
}

func kindColor(k diagnostics.Kind) int {
	switch k {
	case diagnostics.KindRuntime:
		return 35
	case diagnostics.KindType, diagnostics.KindBind:
		return 33
	}
	return 31
}

// formatDiagnostic renders one diagnostic like DiagnosticError.Error,
// optionally with the position in bold and the kind coloured.
func formatDiagnostic(e *diagnostics.DiagnosticError, color bool) string {
	if !color {
		return e.Error()
	}
	pos := fmt.Sprintf("%d:%d:", e.Line(), e.Column())
	if e.File != "" {
		pos = e.File + ":" + pos
	}
	kind := fmt.Sprintf("%s[%s]:", e.Kind(), e.Code)
	return ansiWrap(1, pos) + " " + ansiWrap(kindColor(e.Kind()), kind) + " " + e.Message
}

// report prints err to w. Diagnostic lists print one per line and runtime
// faults print with their position; other errors print as they are.
func report(w io.Writer, err error) {
	color := isTerminal(w)
	var list diagnostics.List
	var fault *vm.Fault
	switch {
	case errors.As(err, &list):
		for _, e := range list {
			fmt.Fprintln(w, formatDiagnostic(e, color))
		}
	case errors.As(err, &fault):
		fmt.Fprintln(w, formatDiagnostic(backend.Diagnostic(fault), color))
	default:
		fmt.Fprintf(w, "dvi: %v\n", err)
	}
}
