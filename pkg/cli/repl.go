package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funvibe/dvi/internal/params"
	dvi "github.com/funvibe/dvi/pkg/embed"

	"github.com/lmorg/readline"
)

const (
	promptMain = "dvi> "
	promptMore = "...> "
	replFile   = "<repl>"
)

type lineReader interface {
	SetPrompt(string)
	Readline() (string, error)
}

// scanReader reads plain lines when stdin is not a terminal.
type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) SetPrompt(string) {}

func (r *scanReader) Readline() (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (a *App) lineReader() lineReader {
	if f, ok := a.Stdin.(*os.File); ok && isTerminal(f) {
		return readline.NewInstance()
	}
	return &scanReader{sc: bufio.NewScanner(a.Stdin)}
}

// session is the REPL state: the statements accepted so far and how many
// surface calls have already been shown.
type session struct {
	a       *App
	postfix bool
	lines   []string
	shown   int
}

func (a *App) handleRepl(args []string) error {
	fs := a.flags("repl")
	postfix := fs.Bool("postfix", false, "read command-stream words instead of statements")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	s := &session{a: a, postfix: *postfix}
	rl := a.lineReader()

	var pending []string
	for {
		if len(pending) == 0 {
			rl.SetPrompt(promptMain)
		} else {
			rl.SetPrompt(promptMore)
		}
		line, err := rl.Readline()
		if err != nil {
			return nil
		}
		if len(pending) == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ":") {
				if s.command(trimmed) {
					return nil
				}
				continue
			}
		}
		pending = append(pending, line)
		input := strings.Join(pending, "\n")
		if depth(input) > 0 {
			continue
		}
		pending = nil
		s.eval(input)
	}
}

// depth is the count of unclosed braces, brackets and parentheses.
func depth(src string) int {
	n := 0
	inString := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{' || c == '[' || c == '(':
			n++
		case c == '}' || c == ']' || c == ')':
			n--
		}
	}
	return n
}

func (s *session) source(extra string) string {
	all := append(append([]string(nil), s.lines...), extra)
	return strings.Join(all, "\n")
}

func (s *session) compile(src string) (*dvi.Program, error) {
	var opts []dvi.CompileOption
	if s.postfix {
		opts = append(opts, dvi.Postfix())
	}
	return dvi.Compile(src, replFile, opts...)
}

// eval accepts input when the program extended by it compiles and
// renders, and prints the calls it added.
func (s *session) eval(input string) {
	prog, err := s.compile(s.source(input))
	if err != nil {
		report(s.a.Stdout, err)
		return
	}
	res, err := prog.Trace(context.Background(), params.Examples(prog.Params()))
	if err != nil {
		report(s.a.Stdout, err)
		return
	}
	s.lines = append(s.lines, input)
	if s.shown > len(res.Calls) {
		s.shown = 0
	}
	for _, c := range res.Calls[s.shown:] {
		fmt.Fprintln(s.a.Stdout, c.String())
	}
	s.shown = len(res.Calls)
}

// command runs a colon command and reports whether the REPL should end.
func (s *session) command(cmd string) bool {
	name, _, _ := strings.Cut(cmd, " ")
	switch name {
	case ":q", ":quit":
		return true
	case ":reset":
		s.lines, s.shown = nil, 0
	case ":source":
		if len(s.lines) > 0 {
			fmt.Fprintln(s.a.Stdout, strings.Join(s.lines, "\n"))
		}
	case ":disasm", ":params":
		prog, err := s.compile(strings.Join(s.lines, "\n"))
		if err != nil {
			report(s.a.Stdout, err)
			return false
		}
		if name == ":disasm" {
			fmt.Fprint(s.a.Stdout, prog.Disassemble())
			return false
		}
		out, err := prog.DescribeParams()
		if err != nil {
			report(s.a.Stdout, err)
			return false
		}
		s.a.Stdout.Write(out)
	case ":help":
		fmt.Fprintln(s.a.Stdout, ":quit :reset :source :disasm :params")
	default:
		fmt.Fprintf(s.a.Stdout, "unknown command %s, try :help\n", name)
	}
	return false
}
