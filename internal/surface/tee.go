package surface

import "github.com/funvibe/dvi/internal/object"

// Tee forwards every call to each surface in order.
type Tee []Surface

func (t Tee) MoveTo(p Point) {
	for _, s := range t {
		s.MoveTo(p)
	}
}

func (t Tee) LineTo(p Point) {
	for _, s := range t {
		s.LineTo(p)
	}
}

func (t Tee) CurveTo(c1, c2, p Point) {
	for _, s := range t {
		s.CurveTo(c1, c2, p)
	}
}

func (t Tee) Arc(c Point, r, a1, a2 float64) {
	for _, s := range t {
		s.Arc(c, r, a1, a2)
	}
}

func (t Tee) Circle(c Point, r float64) {
	for _, s := range t {
		s.Circle(c, r)
	}
}

func (t Tee) Rectangle(origin Point, w, h float64) {
	for _, s := range t {
		s.Rectangle(origin, w, h)
	}
}

func (t Tee) ClosePath() {
	for _, s := range t {
		s.ClosePath()
	}
}

func (t Tee) NewPath() {
	for _, s := range t {
		s.NewPath()
	}
}

func (t Tee) SetPattern(c Color) {
	for _, s := range t {
		s.SetPattern(c)
	}
}

func (t Tee) SetLineWidth(w float64) {
	for _, s := range t {
		s.SetLineWidth(w)
	}
}

func (t Tee) SetLineJoin(j string) {
	for _, s := range t {
		s.SetLineJoin(j)
	}
}

func (t Tee) SetLineCap(c string) {
	for _, s := range t {
		s.SetLineCap(c)
	}
}

func (t Tee) Save() {
	for _, s := range t {
		s.Save()
	}
}

func (t Tee) Restore() {
	for _, s := range t {
		s.Restore()
	}
}

func (t Tee) Translate(d Point) {
	for _, s := range t {
		s.Translate(d)
	}
}

func (t Tee) Rotate(rad float64) {
	for _, s := range t {
		s.Rotate(rad)
	}
}

func (t Tee) Scale(sx, sy float64) {
	for _, s := range t {
		s.Scale(sx, sy)
	}
}

func (t Tee) Fill() {
	for _, s := range t {
		s.Fill()
	}
}

func (t Tee) Stroke() {
	for _, s := range t {
		s.Stroke()
	}
}

func (t Tee) Clip() {
	for _, s := range t {
		s.Clip()
	}
}

func (t Tee) Paint() {
	for _, s := range t {
		s.Paint()
	}
}

func (t Tee) Text(p Point, str string) {
	for _, s := range t {
		s.Text(p, str)
	}
}

func (t Tee) Effect(name string, args []object.Object) {
	for _, s := range t {
		s.Effect(name, args)
	}
}
