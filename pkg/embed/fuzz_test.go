package dvi_test

import (
	"context"
	"testing"
	"time"

	"github.com/funvibe/dvi/internal/params"
	dvi "github.com/funvibe/dvi/pkg/embed"
)

var seeds = []string{
	dots,
	"fill <- ;",
	"let p = (1, 2);\ncircle <- p, 3;",
	"func f(x: Int) -> Int { x * 2 }\nsetlinewidth <- f(2);",
	"if 1 < 2 { paint <- ; } else { fill <- ; }",
	"type P = {x: Float, y: Float};\nlet q: P = {x: 1.0, y: 2.0};",
	"for k, v in {a: 1} { circle <- (v, v), 1; }",
	"\"unterminated",
	"let x = ((((1",
}

// renderExamples runs prog with its example values under a short deadline.
func renderExamples(t *testing.T, prog *dvi.Program) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res, _ := prog.Trace(ctx, params.Examples(prog.Params()))
	return res.Trace()
}

// FuzzCompile checks that no input makes a stage panic and that every
// program that compiles also runs to completion or a fault.
func FuzzCompile(f *testing.F) {
	for _, s := range seeds {
		f.Add(s, false)
	}
	f.Add("1 2 + pop (0,0) 1 circle fill", true)
	f.Add("[ 1 ] [ 2 ] true ifelse pop", true)
	f.Add("pop", true)

	f.Fuzz(func(t *testing.T, src string, postfix bool) {
		if len(src) > 4096 {
			return
		}
		var opts []dvi.CompileOption
		if postfix {
			opts = append(opts, dvi.Postfix())
		}
		prog, err := dvi.Compile(src, "fuzz", opts...)
		if err != nil {
			return
		}
		renderExamples(t, prog)
	})
}

// FuzzFormatRoundTrip checks that formatting a program that compiles
// yields a program with the same behaviour, and that formatting is stable.
func FuzzFormatRoundTrip(f *testing.F) {
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 4096 {
			return
		}
		prog, err := dvi.Compile(src, "fuzz")
		if err != nil {
			return
		}
		printed, err := prog.Format()
		if err != nil {
			t.Fatalf("format: %v", err)
		}
		again, err := dvi.Compile(printed, "fuzz")
		if err != nil {
			t.Fatalf("formatted program no longer compiles: %v\n--- input\n%s\n--- printed\n%s", err, src, printed)
		}
		if a, b := renderExamples(t, prog), renderExamples(t, again); a != b {
			t.Fatalf("trace changed after formatting:\n%s\nvs\n%s\n--- printed\n%s", a, b, printed)
		}
		twice, err := again.Format()
		if err != nil || twice != printed {
			t.Fatalf("format is not stable:\n%s\nvs\n%s", printed, twice)
		}
	})
}
