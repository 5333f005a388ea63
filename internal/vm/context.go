package vm

import (
	"github.com/funvibe/dvi/internal/surface"
)

// Matrix is the affine transform shared with rasterising surfaces.
type Matrix = surface.Matrix

var (
	Identity    = surface.Identity
	Translation = surface.Translation
	Scaling     = surface.Scaling
	Rotation    = surface.Rotation
)

// Segment is one path element in device space.
type Segment struct {
	Op     Opcode
	Points []surface.Point
}

// RenderContext is the implicit drawing state. The VM owns exactly one
// current context and a stack of saved copies.
type RenderContext struct {
	Path      []Segment
	Current   *surface.Point // device space; nil without a current point
	Pattern   surface.Color
	LineWidth float64
	Join      string
	Cap       string
	Transform Matrix
}

func NewRenderContext() *RenderContext {
	return &RenderContext{
		Pattern:   surface.Color{A: 1},
		LineWidth: 1,
		Join:      surface.LineJoins[0],
		Cap:       surface.LineCaps[0],
		Transform: Identity,
	}
}

// Clone copies the context deeply enough that later path edits do not
// show through.
func (c *RenderContext) Clone() *RenderContext {
	cp := *c
	cp.Path = append([]Segment(nil), c.Path...)
	if c.Current != nil {
		cur := *c.Current
		cp.Current = &cur
	}
	return &cp
}

func (c *RenderContext) addSegment(op Opcode, end surface.Point, pts ...surface.Point) {
	dev := make([]surface.Point, len(pts))
	for i, p := range pts {
		dev[i] = c.Transform.Apply(p)
	}
	c.Path = append(c.Path, Segment{Op: op, Points: dev})
	cur := c.Transform.Apply(end)
	c.Current = &cur
}

func (c *RenderContext) clearPath() {
	c.Path = nil
	c.Current = nil
}

// CurrentPoint is the current point in user space.
func (c *RenderContext) CurrentPoint() (surface.Point, bool) {
	if c.Current == nil {
		return surface.Point{}, false
	}
	inv, ok := c.Transform.Invert()
	if !ok {
		return surface.Point{}, false
	}
	return inv.Apply(*c.Current), true
}
