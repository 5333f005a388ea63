package dvi_test

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/funvibe/dvi/internal/backend"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/surface"
	"github.com/funvibe/dvi/internal/typesystem"
	"github.com/funvibe/dvi/internal/vm"
	dvi "github.com/funvibe/dvi/pkg/embed"
)

const dots = `param count: Int = 3, "number of dots";
param ink: Color = #ff0000;
setsource <- ink;
for i in range(count) {
	circle <- (i * 10, 0), 2;
	fill <- ;
}`

func mustCompile(t *testing.T, src string, opts ...dvi.CompileOption) *dvi.Program {
	t.Helper()
	p, err := dvi.Compile(src, "test.dvi", opts...)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return p
}

func TestEmbedAPI(t *testing.T) {
	p := mustCompile(t, dots)
	if len(p.Params()) != 2 {
		t.Fatalf("expected two parameters, got %+v", p.Params())
	}

	env, err := p.Env(map[string]interface{}{
		"count": 2,
		"ink":   color.RGBA{G: 0xff, A: 0xff},
	})
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	res, err := p.Trace(context.Background(), env)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "setsource #00ff00\ncircle (0,0) 2\nfill\ncircle (10,0) 2\nfill"
	if res.Trace() != want {
		t.Errorf("trace:\n%s\nwant:\n%s", res.Trace(), want)
	}
}

func TestEnvRejects(t *testing.T) {
	p := mustCompile(t, dots)
	tests := []map[string]interface{}{
		{"count": "three"},
		{"size": 1},
		{"ink": nil},
	}
	for _, values := range tests {
		if _, err := p.Env(values); err == nil {
			t.Errorf("%v: expected an error", values)
		}
	}
}

func TestLoadParams(t *testing.T) {
	p := mustCompile(t, dots)
	env, err := p.LoadParams([]byte("count: 1\n"), true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := p.Trace(context.Background(), env)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Trace() != "setsource #ff0000\ncircle (0,0) 2\nfill" {
		t.Errorf("trace:\n%s", res.Trace())
	}

	out, err := p.DescribeParams()
	if err != nil || !strings.Contains(string(out), "number of dots") {
		t.Errorf("describe: %s, %v", out, err)
	}
}

func TestCompileReportsDiagnostics(t *testing.T) {
	_, err := dvi.Compile("let x = ;\nemit(y);", "bad.dvi")
	var list diagnostics.List
	if !errors.As(err, &list) || len(list) == 0 {
		t.Fatalf("expected diagnostics, got %v", err)
	}
	if !strings.HasPrefix(list[0].Error(), "bad.dvi:1:") {
		t.Errorf("diagnostics must be sorted and located, got %v", list)
	}

	ctx := dvi.Check("emit(y);", "unbound.dvi")
	if !diagnostics.List(ctx.Errors).Has(diagnostics.ErrB001) {
		t.Errorf("expected B001, got %v", ctx.Errors)
	}
}

func TestCommandStream(t *testing.T) {
	size := vm.ParamSpec{Name: "size", Type: typesystem.Float}
	p := mustCompile(t, "(0,0) size circle fill", dvi.Postfix(), dvi.HostParams(size))
	if p.AST != nil {
		t.Errorf("command streams have no tree")
	}
	if _, err := p.Format(); err == nil {
		t.Errorf("formatting a command stream must fail")
	}
	env, err := p.Env(map[string]interface{}{"size": 1.5})
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	res, err := p.Trace(context.Background(), env)
	if err != nil || res.Trace() != "circle (0,0) 1.5\nfill" {
		t.Errorf("trace %q, %v", res.Trace(), err)
	}
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	stream := filepath.Join(dir, "a.dvs")
	if err := os.WriteFile(stream, []byte("2 setlinewidth"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := dvi.CompileFile(stream)
	if err != nil {
		t.Fatalf("compile %s: %v", stream, err)
	}
	if !strings.Contains(p.Disassemble(), "== "+stream+" ==") {
		t.Errorf("disassembly header:\n%s", p.Disassemble())
	}
	if _, err := dvi.CompileFile(filepath.Join(dir, "missing.dvi")); err == nil {
		t.Errorf("expected a read error")
	}
}

func TestFormatRoundTrips(t *testing.T) {
	p := mustCompile(t, dots)
	text, err := p.Format()
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	again := mustCompile(t, text)
	env, err := p.LoadParams(nil, true)
	if err != nil {
		t.Fatal(err)
	}
	a, errA := p.Trace(context.Background(), env)
	b, errB := again.Trace(context.Background(), env)
	if errA != nil || errB != nil {
		t.Fatalf("render: %v, %v", errA, errB)
	}
	if a.Trace() == "" || a.Trace() != b.Trace() {
		t.Errorf("formatted program renders differently:\n%s", text)
	}
}

func TestConcurrentRenders(t *testing.T) {
	p := mustCompile(t, dots)
	raster, err := backend.NewRaster(40, 10, "#fff")
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	traces := make([]string, 8)
	for i := range traces {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			env, _ := p.Env(map[string]interface{}{"count": i%3 + 1, "ink": surface.Color{B: 1, A: 1}})
			res, err := p.Render(context.Background(), raster, env)
			if err != nil {
				t.Errorf("render %d: %v", i, err)
				return
			}
			traces[i] = res.Trace()
		}(i)
	}
	wg.Wait()
	for i := 3; i < len(traces); i++ {
		if traces[i] != traces[i-3] {
			t.Errorf("renders %d and %d differ", i, i-3)
		}
	}
}

func TestMarshallerRoundTrip(t *testing.T) {
	m := dvi.NewMarshaller()
	type pt struct {
		X    float64 `dvi:"x"`
		Y    float64 `dvi:"y"`
		skip int
	}
	in := map[string]interface{}{
		"n":    3,
		"xs":   []float64{1, 2},
		"at":   [2]float64{1, 2},
		"rec":  pt{X: 1, Y: 2},
		"name": "dot",
	}
	obj, err := m.ToValue(in)
	if err != nil {
		t.Fatalf("to value: %v", err)
	}
	if got := obj.Inspect(); got != `{at: (1,2), n: 3, name: "dot", rec: {x: 1.0, y: 2.0}, xs: [1.0, 2.0]}` {
		t.Errorf("unexpected value %s", got)
	}
	back, err := m.FromValue(obj)
	if err != nil {
		t.Fatalf("from value: %v", err)
	}
	out := back.(map[string]interface{})
	if out["n"] != int64(3) || out["at"] != (surface.Point{X: 1, Y: 2}) {
		t.Errorf("unexpected round trip %v", out)
	}
}
