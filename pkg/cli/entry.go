// Package cli implements the dvi command: checking, formatting,
// disassembling and rendering sources, comparing stored traces, an
// interactive REPL and the render service.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/funvibe/dvi/internal/config"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// App holds the streams and settings of one invocation.
type App struct {
	Stdin          io.Reader
	Stdout, Stderr io.Writer

	// Settings are loaded lazily by settings; tests may preset them.
	Settings *config.Settings
	Log      *slog.Logger
}

type command struct {
	usage string
	run   func(a *App, args []string) error
}

var commands = map[string]command{
	"check":  {"check FILE...", (*App).handleCheck},
	"fmt":    {"fmt [-w] FILE", (*App).handleFmt},
	"disasm": {"disasm FILE", (*App).handleDisasm},
	"params": {"params [-template] FILE", (*App).handleParams},
	"render": {"render [-p env.yaml] [-o out.png] [-trace] [-examples] [-store] FILE", (*App).handleRender},
	"diff":   {"diff ID1 ID2", (*App).handleDiff},
	"traces": {"traces [-n N] [-rm ID] [FILE]", (*App).handleTraces},
	"repl":   {"repl [-postfix]", (*App).handleRepl},
	"serve":  {"serve [-addr :7070]", (*App).handleServe},
}

// errUsage is returned for bad invocations; Run exits with 2.
var errUsage = errors.New("usage")

// errFailed means diagnostics were already printed; Run exits with 1.
var errFailed = errors.New("failed")

// Run is the dvi entry point.
func Run() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()
	app := &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	os.Exit(app.Run(os.Args[1:]))
}

// Run dispatches args and returns the exit status.
func (a *App) Run(args []string) int {
	if len(args) == 0 {
		a.usage()
		return 2
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		a.usage()
		return 0
	case "-v", "-version", "--version", "version":
		fmt.Fprintln(a.Stdout, "dvi "+Version)
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.Stderr, "dvi: unknown command %q\n", args[0])
		a.usage()
		return 2
	}
	err := cmd.run(a, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(a.Stderr, "usage: dvi %s\n", cmd.usage)
		return 2
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errFailed):
		return 1
	}
	report(a.Stderr, err)
	return 1
}

func (a *App) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(a.Stderr, "usage:")
	for _, name := range names {
		fmt.Fprintf(a.Stderr, "  dvi %s\n", commands[name].usage)
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("dvi "+name, flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	return fs
}

// settings resolves defaults < dvi.yaml found from dir < DVI_* variables.
// Flags are applied by each command on top.
func (a *App) settings(dir string) (*config.Settings, error) {
	if a.Settings != nil {
		return a.Settings, nil
	}
	if dir == "" {
		dir = "."
	}
	path, err := config.FindSettings(dir)
	if err != nil {
		return nil, err
	}
	s, err := config.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnv(); err != nil {
		return nil, err
	}
	a.Settings = s
	if a.Log == nil {
		a.Log = NewLogger(s.LogLevel, a.Stderr)
	}
	if path != "" {
		a.Log.Debug("settings loaded", "path", path)
	}
	return s, nil
}

func (a *App) logger() *slog.Logger {
	if a.Log == nil {
		a.Log = NewLogger(config.DefaultLogLevel, a.Stderr)
	}
	return a.Log
}

// signalContext is cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func sourceDir(path string) string {
	if path == "" {
		return "."
	}
	return filepath.Dir(path)
}
