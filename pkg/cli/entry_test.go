package cli

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/token"
)

const dots = `param count: Int = 3, "number of dots";
param ink: Color = #ff0000;
setsource <- ink;
for i in range(count) {
	circle <- (i * 10, 0), 2;
	fill <- ;
}
`

type result struct {
	code           int
	stdout, stderr string
}

func newApp(t *testing.T, stdin string) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	s := config.DefaultSettings()
	s.Canvas.Width, s.Canvas.Height = 32, 8
	s.Store.DSN = filepath.Join(t.TempDir(), "traces.db")
	return &App{
		Stdin:    strings.NewReader(stdin),
		Stdout:   &stdout,
		Stderr:   &stderr,
		Settings: s,
		Log:      NewLogger("error", &stderr),
	}, &stdout, &stderr
}

func run(t *testing.T, app *App, args ...string) result {
	t.Helper()
	stdout, stderr := app.Stdout.(*bytes.Buffer), app.Stderr.(*bytes.Buffer)
	stdout.Reset()
	stderr.Reset()
	code := app.Run(args)
	return result{code, stdout.String(), stderr.String()}
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUsage(t *testing.T) {
	app, _, _ := newApp(t, "")
	if r := run(t, app); r.code != 2 || !strings.Contains(r.stderr, "dvi render") {
		t.Errorf("no arguments: %+v", r)
	}
	if r := run(t, app, "nope"); r.code != 2 || !strings.Contains(r.stderr, `unknown command "nope"`) {
		t.Errorf("unknown command: %+v", r)
	}
	if r := run(t, app, "disasm"); r.code != 2 || !strings.Contains(r.stderr, "usage: dvi disasm FILE") {
		t.Errorf("missing file: %+v", r)
	}
	if r := run(t, app, "version"); r.code != 0 || r.stdout != "dvi dev\n" {
		t.Errorf("version: %+v", r)
	}
}

func TestCheck(t *testing.T) {
	app, _, _ := newApp(t, "")
	good := writeSource(t, "good.dvi", dots)
	bad := writeSource(t, "bad.dvi", "param n: Int = 1;\ncircle <- (0, 0), r;\n")
	stream := writeSource(t, "s.dvs", "1 2 + pop\n")

	if r := run(t, app, "check", good, stream); r.code != 0 || r.stderr != "" {
		t.Errorf("clean check: %+v", r)
	}
	r := run(t, app, "check", good, bad)
	if r.code != 1 {
		t.Fatalf("expected failure, got %+v", r)
	}
	if !strings.HasPrefix(r.stderr, bad+":2:") || !strings.Contains(r.stderr, "BindError[B001]") {
		t.Errorf("diagnostic: %q", r.stderr)
	}
}

func TestFmtAndDisasm(t *testing.T) {
	app, _, _ := newApp(t, "")
	path := writeSource(t, "dots.dvi", dots)

	r := run(t, app, "fmt", path)
	if r.code != 0 || !strings.Contains(r.stdout, "param count") {
		t.Fatalf("fmt: %+v", r)
	}
	formatted := r.stdout
	if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := run(t, app, "fmt", path); r.stdout != formatted {
		t.Errorf("fmt is not stable:\n%s\nvs\n%s", formatted, r.stdout)
	}

	if r := run(t, app, "disasm", path); r.code != 0 || !strings.HasPrefix(r.stdout, "== "+path+" ==") {
		t.Errorf("disasm: %+v", r)
	}

	stream := writeSource(t, "s.dvs", "paint\n")
	if r := run(t, app, "fmt", stream); r.code != 1 || !strings.Contains(r.stderr, "no structured form") {
		t.Errorf("fmt of a stream: %+v", r)
	}
}

func TestParams(t *testing.T) {
	app, _, _ := newApp(t, "")
	path := writeSource(t, "dots.dvi", dots)

	r := run(t, app, "params", path)
	if r.code != 0 || !strings.Contains(r.stdout, "name: count") || !strings.Contains(r.stdout, "doc: number of dots") {
		t.Errorf("params: %+v", r)
	}
	r = run(t, app, "params", "-template", path)
	if r.code != 0 || !strings.Contains(r.stdout, "count: 3") {
		t.Errorf("template: %+v", r)
	}
}

func TestRenderTrace(t *testing.T) {
	app, _, _ := newApp(t, "")
	path := writeSource(t, "dots.dvi", dots)
	env := writeSource(t, "env.yaml", "count: 2\n")

	r := run(t, app, "render", path, "-p", env, "-examples", "-trace")
	want := "setsource #ff0000\ncircle (0,0) 2\nfill\ncircle (10,0) 2\nfill\n"
	if r.code != 0 || r.stdout != want {
		t.Errorf("trace: %+v", r)
	}

	r = run(t, app, "render", path)
	if r.code != 1 || !strings.Contains(r.stderr, "R007") {
		t.Errorf("missing parameters must fault: %+v", r)
	}
}

func TestRenderPNG(t *testing.T) {
	app, _, _ := newApp(t, "")
	path := writeSource(t, "dots.dvi", dots)
	out := filepath.Join(t.TempDir(), "out.png")

	r := run(t, app, "render", "-examples", "-o", out, "-width", "20", path)
	if r.code != 0 {
		t.Fatalf("render: %+v", r)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 8 {
		t.Errorf("bounds %v", b)
	}
}

func TestStoreAndDiff(t *testing.T) {
	app, _, _ := newApp(t, "")
	path := writeSource(t, "dots.dvi", dots)
	two := writeSource(t, "two.yaml", "count: 2\n")
	three := writeSource(t, "three.yaml", "count: 3\n")

	id := func(env string) string {
		t.Helper()
		r := run(t, app, "render", "-trace", "-examples", "-store", "-p", env, path)
		if r.code != 0 {
			t.Fatalf("render: %+v", r)
		}
		lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
		last := lines[len(lines)-1]
		if !strings.HasPrefix(last, "trace ") {
			t.Fatalf("no trace id in %q", r.stdout)
		}
		return strings.TrimPrefix(last, "trace ")
	}
	a, b, c := id(two), id(three), id(two)

	if r := run(t, app, "diff", a, c); r.code != 0 || r.stdout != "identical\n" {
		t.Errorf("same renders: %+v", r)
	}
	r := run(t, app, "diff", a, b)
	if r.code != 1 || r.stdout != "+5 circle (20,0) 2\n+6 fill\n" {
		t.Errorf("diff: %+v", r)
	}

	r = run(t, app, "traces", path)
	if r.code != 0 || strings.Count(r.stdout, "\n") != 3 {
		t.Errorf("traces: %+v", r)
	}
	if r := run(t, app, "traces", "-rm", b); r.code != 0 {
		t.Errorf("rm: %+v", r)
	}
	if r := run(t, app, "diff", a, b); r.code != 1 || !strings.Contains(r.stderr, "trace not found") {
		t.Errorf("diff after rm: %+v", r)
	}
}

func TestFormatDiagnostic(t *testing.T) {
	e := diagnostics.NewError(diagnostics.ErrT005, token.Token{Line: 3, Column: 7}, "bad operands")
	e.File = "a.dvi"
	if got := formatDiagnostic(e, false); got != "a.dvi:3:7: TypeError[T005]: bad operands" {
		t.Errorf("plain: %q", got)
	}
	got := formatDiagnostic(e, true)
	if !strings.Contains(got, "\033[1ma.dvi:3:7:\033[0m") || !strings.Contains(got, "\033[33mTypeError[T005]:\033[0m") {
		t.Errorf("coloured: %q", got)
	}
}

func TestSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFileName), []byte("canvas:\n  width: 12\n  height: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DVI_HEIGHT", "6")
	app := &App{Stderr: io.Discard}
	s, err := app.settings(dir)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.Canvas.Width != 12 || s.Canvas.Height != 6 {
		t.Errorf("precedence: %+v", s.Canvas)
	}
}
