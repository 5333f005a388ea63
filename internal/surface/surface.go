// Package surface defines the drawing collaborator the VM renders into.
package surface

import (
	"fmt"
	"math"
	"strconv"

	"github.com/funvibe/dvi/internal/object"
)

// Point is a position in user space.
type Point struct {
	X, Y float64
}

func (p Point) String() string { return "(" + FormatNumber(p.X) + "," + FormatNumber(p.Y) + ")" }

// Color channels are in [0,1].
type Color struct {
	R, G, B, A float64
}

func (c Color) String() string {
	r, g, b, a := c.RGBA8()
	if a == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, a)
}

// RGBA8 quantises the channels to bytes.
func (c Color) RGBA8() (r, g, b, a uint8) {
	q := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return q(c.R), q(c.G), q(c.B), q(c.A)
}

// FormatNumber is the shortest decimal form of v.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Surface receives drawing calls in program order. Path calls take user
// coordinates; implementations that rasterise track the transform from
// Translate, Rotate and Scale themselves.
type Surface interface {
	MoveTo(p Point)
	LineTo(p Point)
	CurveTo(c1, c2, p Point)
	Arc(c Point, r, a1, a2 float64)
	Circle(c Point, r float64)
	Rectangle(origin Point, w, h float64)
	ClosePath()
	NewPath()

	SetPattern(c Color)
	SetLineWidth(w float64)
	SetLineJoin(j string)
	SetLineCap(c string)

	Save()
	Restore()
	Translate(d Point)
	Rotate(rad float64)
	Scale(sx, sy float64)

	Fill()
	Stroke()
	Clip()
	Paint()
	Text(p Point, s string)

	// Effect receives effect statements that name no drawing word.
	Effect(name string, args []object.Object)
}

// Line joins and caps accepted by SetLineJoin and SetLineCap.
var (
	LineJoins = []string{"miter", "round", "bevel"}
	LineCaps  = []string{"butt", "round", "square"}
)
