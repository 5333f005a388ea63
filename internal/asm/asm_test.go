package asm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/lexer"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/pipeline"
	"github.com/funvibe/dvi/internal/surface"
	"github.com/funvibe/dvi/internal/typesystem"
	"github.com/funvibe/dvi/internal/vm"
)

func mustAssemble(t *testing.T, src string, params ...vm.ParamSpec) *vm.Chunk {
	t.Helper()
	chunk, err := Assemble(src, params)
	if err != nil {
		t.Fatalf("assemble %q: %v", src, err)
	}
	return chunk
}

func run(t *testing.T, chunk *vm.Chunk, env vm.Env) (*surface.Recorder, *vm.VM, error) {
	t.Helper()
	rec := surface.NewRecorder()
	machine := vm.New(chunk, rec)
	err := machine.Run(context.Background(), env)
	return rec, machine, err
}

func TestTraces(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"end to end", "let r = 5; (0,0) r circle #ff0000 setsource fill;",
			"circle (0,0) 5\nsetsource #ff0000\nfill"},
		{"repeat", "3 range [ (0,0) swap circle ] repeat",
			"circle (0,0) 0\ncircle (0,0) 1\ncircle (0,0) 2"},
		{"captured local", "let r = 2; 2 range [ pop (1,1) r circle ] repeat",
			"circle (1,1) 2\ncircle (1,1) 2"},
		{"nested captures", "let w = 3; [ [ w setlinewidth ] exec ] exec", "setlinewidth 3"},
		{"ifelse", "1 2 < [ 1 setlinewidth ] [ 2 setlinewidth ] ifelse", "setlinewidth 1"},
		{"builtins", "pi 2 / sin setlinewidth 4 sqrt neg 1 max setlinewidth", "setlinewidth 1\nsetlinewidth 1"},
		{"negative numbers", "(-1,2.5) moveto -3 0 point lineto stroke", "moveto (-1,2.5)\nlineto (-3,0)\nstroke"},
		{"keywords as words", "true false xor not [ 1 setlinewidth ] [ 2 setlinewidth ] ifelse", "setlinewidth 2"},
		{"context", "save (1,1) translate 90 rotate restore", "save\ntranslate (1,1)\nrotate 90\nrestore"},
		{"text", `(0,0) "hi" text`, `text (0,0) "hi"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _, err := run(t, mustAssemble(t, tt.src), nil)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if got := rec.Trace(); got != tt.want {
				t.Errorf("trace:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestArity(t *testing.T) {
	mustAssemble(t, "5 setlinewidth")

	chunk := mustAssemble(t, "stroke")
	_, _, err := run(t, chunk, nil)
	var fault *vm.Fault
	if !errors.As(err, &fault) || fault.Code != diagnostics.ErrR002 {
		t.Errorf("expected an R002 fault, got %v", err)
	}
}

func TestEmptyRepeatLeavesTheStack(t *testing.T) {
	chunk := mustAssemble(t, "7 0 range [ pop 1 setlinewidth ] repeat")
	rec, machine, err := run(t, chunk, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.Calls) != 0 {
		t.Errorf("expected no surface calls, got %s", rec.Trace())
	}
	stack := machine.Stack()
	if len(stack) != 1 || stack[0].Inspect() != "7" {
		t.Errorf("expected the stack to hold only 7, got %v", stack)
	}
}

func TestParameters(t *testing.T) {
	size := vm.ParamSpec{Name: "size", Type: typesystem.Float}
	chunk := mustAssemble(t, "(0,0) size circle fill", size)
	rec, _, err := run(t, chunk, vm.Env{"size": &object.Float{Value: 1.5}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Trace() != "circle (0,0) 1.5\nfill" {
		t.Errorf("trace:\n%s", rec.Trace())
	}

	_, _, err = run(t, chunk, nil)
	var fault *vm.Fault
	if !errors.As(err, &fault) || fault.Code != diagnostics.ErrR007 {
		t.Errorf("expected an R007 fault for a missing parameter, got %v", err)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		code diagnostics.ErrorCode
	}{
		{"pop", diagnostics.ErrC001},
		{`"a" 5 circle`, diagnostics.ErrC002},
		{"true [ 1 ] [ ] ifelse setlinewidth", diagnostics.ErrC003},
		{"[ 1 setlinewidth", diagnostics.ErrP001},
		{"1 ]", diagnostics.ErrP001},
		{"(1, x) moveto", diagnostics.ErrP001},
		{"let = 1;", diagnostics.ErrP001},
		{"frob", diagnostics.ErrB001},
		{"[ let a = 1; ] exec a", diagnostics.ErrB001},
		{"1 -> 2", diagnostics.ErrP002},
		{`"open`, diagnostics.ErrL002},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Assemble(tt.src, nil)
			var list diagnostics.List
			if !errors.As(err, &list) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if !list.Has(tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestProcessor(t *testing.T) {
	ctx := pipeline.NewContext("(0,0) 2 circle size setlinewidth", "dot.dvs")
	ctx.Postfix = true
	ctx.HostParams = []vm.ParamSpec{{Name: "size", Type: typesystem.Float}}
	ctx = pipeline.New(&lexer.LexerProcessor{}, &AsmProcessor{}).Run(ctx)
	if ctx.Failed() {
		t.Fatalf("unexpected errors: %v", ctx.Err())
	}
	if ctx.Chunk == nil || ctx.Chunk.File != "dot.dvs" {
		t.Fatalf("expected a chunk for dot.dvs")
	}
	if _, ok := ctx.Chunk.Param("size"); !ok {
		t.Errorf("host parameter missing from chunk")
	}

	ctx = pipeline.NewContext("1 pop pop", "bad.dvs")
	ctx.Postfix = true
	ctx = pipeline.New(&lexer.LexerProcessor{}, &AsmProcessor{}).Run(ctx)
	if !ctx.Failed() || ctx.Chunk != nil {
		t.Fatalf("expected the stream to be rejected")
	}
	if e := ctx.Errors[0]; e.Code != diagnostics.ErrC001 || !strings.HasPrefix(e.Error(), "bad.dvs:1:7:") {
		t.Errorf("unexpected diagnostic %v", e)
	}
}

func TestDisassemblyShowsQuotes(t *testing.T) {
	chunk := mustAssemble(t, "let k = 1; [ k setlinewidth ] exec")
	out := vm.Disassemble(chunk, "quote")
	for _, want := range []string{"== quote ==", "-- block block (locals 0, captures 1) --"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly lacks %q:\n%s", want, out)
		}
	}
}
