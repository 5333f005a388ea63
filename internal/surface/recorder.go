package surface

import (
	"strconv"
	"strings"

	"github.com/funvibe/dvi/internal/object"
)

// Call is one recorded surface invocation with its arguments already
// formatted.
type Call struct {
	Op   string   `json:"op" yaml:"op"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Op
	}
	return c.Op + " " + strings.Join(c.Args, " ")
}

// Recorder keeps every call. The zero value is ready to use.
type Recorder struct {
	Calls []Call
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) add(op string, args ...string) {
	r.Calls = append(r.Calls, Call{Op: op, Args: args})
}

// Trace renders one call per line.
func (r *Recorder) Trace() string {
	return FormatTrace(r.Calls)
}

func (r *Recorder) Reset() { r.Calls = nil }

// FormatTrace renders calls one per line.
func FormatTrace(calls []Call) string {
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

func num(v float64) string { return FormatNumber(v) }

func (r *Recorder) MoveTo(p Point)          { r.add("moveto", p.String()) }
func (r *Recorder) LineTo(p Point)          { r.add("lineto", p.String()) }
func (r *Recorder) CurveTo(c1, c2, p Point) { r.add("curveto", c1.String(), c2.String(), p.String()) }
func (r *Recorder) Arc(c Point, rad, a1, a2 float64) {
	r.add("arc", c.String(), num(rad), num(a1), num(a2))
}
func (r *Recorder) Circle(c Point, rad float64)          { r.add("circle", c.String(), num(rad)) }
func (r *Recorder) Rectangle(origin Point, w, h float64) { r.add("rectangle", origin.String(), num(w), num(h)) }
func (r *Recorder) ClosePath()                           { r.add("closepath") }
func (r *Recorder) NewPath()                             { r.add("newpath") }
func (r *Recorder) SetPattern(c Color)                   { r.add("setsource", c.String()) }
func (r *Recorder) SetLineWidth(w float64)               { r.add("setlinewidth", num(w)) }
func (r *Recorder) SetLineJoin(j string)                 { r.add("setlinejoin", j) }
func (r *Recorder) SetLineCap(c string)                  { r.add("setlinecap", c) }
func (r *Recorder) Save()                                { r.add("save") }
func (r *Recorder) Restore()                             { r.add("restore") }
func (r *Recorder) Translate(d Point)                    { r.add("translate", d.String()) }
func (r *Recorder) Rotate(rad float64)                   { r.add("rotate", num(rad)) }
func (r *Recorder) Scale(sx, sy float64)                 { r.add("scale", num(sx), num(sy)) }
func (r *Recorder) Fill()                                { r.add("fill") }
func (r *Recorder) Stroke()                              { r.add("stroke") }
func (r *Recorder) Clip()                                { r.add("clip") }
func (r *Recorder) Paint()                               { r.add("paint") }
func (r *Recorder) Text(p Point, s string)               { r.add("text", p.String(), strconv.Quote(s)) }

func (r *Recorder) Effect(name string, args []object.Object) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Inspect()
	}
	r.add(name, parts...)
}
