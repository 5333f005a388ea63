package surface

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"

	"github.com/funvibe/dvi/internal/object"
)

const (
	curveSteps  = 24
	circleSteps = 64
	miterLimit  = 10
)

type subpath struct {
	pts    []Point // device space
	closed bool
}

type rasterState struct {
	pattern   Color
	lineWidth float64
	join, cap string
	transform Matrix
	clip      *image.Alpha
}

// Raster paints into an RGBA canvas. Paths are flattened in device space
// and filled with the non-zero rule.
type Raster struct {
	img   *image.RGBA
	state rasterState
	saved []rasterState

	path    []subpath
	current *Point // user space
	font    tinyfont.Fonter
}

// NewRaster returns a w by h canvas cleared to bg.
func NewRaster(w, h int, bg Color) *Raster {
	r := &Raster{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		font: &tinyfont.TomThumb,
	}
	r.state = rasterState{
		pattern:   Color{A: 1},
		lineWidth: 1,
		join:      LineJoins[0],
		cap:       LineCaps[0],
		transform: Identity,
	}
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(toNRGBA(bg)), image.Point{}, draw.Src)
	return r
}

// Image returns the canvas. It is shared, not copied.
func (r *Raster) Image() *image.RGBA { return r.img }

// EncodePNG writes the canvas as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.img)
}

func toNRGBA(c Color) color.NRGBA {
	r, g, b, a := c.RGBA8()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

func (r *Raster) device(p Point) Point { return r.state.transform.Apply(p) }

func (r *Raster) begin(p Point) {
	r.path = append(r.path, subpath{pts: []Point{r.device(p)}})
	r.current = &p
}

func (r *Raster) extend(p Point) {
	if len(r.path) == 0 || r.path[len(r.path)-1].closed {
		r.begin(p)
		return
	}
	last := &r.path[len(r.path)-1]
	last.pts = append(last.pts, r.device(p))
	r.current = &p
}

func (r *Raster) MoveTo(p Point) { r.begin(p) }

func (r *Raster) LineTo(p Point) { r.extend(p) }

func (r *Raster) CurveTo(c1, c2, p Point) {
	if r.current == nil {
		r.begin(c1)
	}
	p0 := *r.current
	for i := 1; i <= curveSteps; i++ {
		t := float64(i) / curveSteps
		u := 1 - t
		r.extend(Point{
			X: u*u*u*p0.X + 3*u*u*t*c1.X + 3*u*t*t*c2.X + t*t*t*p.X,
			Y: u*u*u*p0.Y + 3*u*u*t*c1.Y + 3*u*t*t*c2.Y + t*t*t*p.Y,
		})
	}
}

func (r *Raster) Arc(c Point, rad, a1, a2 float64) {
	for a2 < a1 {
		a2 += 2 * math.Pi
	}
	steps := int(math.Ceil((a2 - a1) / (2 * math.Pi) * circleSteps))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		a := a1 + (a2-a1)*float64(i)/float64(steps)
		r.extend(Point{X: c.X + rad*math.Cos(a), Y: c.Y + rad*math.Sin(a)})
	}
}

func (r *Raster) Circle(c Point, rad float64) {
	start := Point{X: c.X + rad, Y: c.Y}
	r.begin(start)
	for i := 1; i < circleSteps; i++ {
		a := 2 * math.Pi * float64(i) / circleSteps
		r.extend(Point{X: c.X + rad*math.Cos(a), Y: c.Y + rad*math.Sin(a)})
	}
	r.ClosePath()
	r.current = &start
}

func (r *Raster) Rectangle(origin Point, w, h float64) {
	r.begin(origin)
	r.extend(Point{X: origin.X + w, Y: origin.Y})
	r.extend(Point{X: origin.X + w, Y: origin.Y + h})
	r.extend(Point{X: origin.X, Y: origin.Y + h})
	r.ClosePath()
	r.current = &origin
}

func (r *Raster) ClosePath() {
	if len(r.path) == 0 {
		return
	}
	last := &r.path[len(r.path)-1]
	last.closed = true
	if inv, ok := r.state.transform.Invert(); ok {
		start := inv.Apply(last.pts[0])
		r.current = &start
	}
}

func (r *Raster) NewPath() {
	r.path = nil
	r.current = nil
}

func (r *Raster) SetPattern(c Color)     { r.state.pattern = c }
func (r *Raster) SetLineWidth(w float64) { r.state.lineWidth = w }
func (r *Raster) SetLineJoin(j string)   { r.state.join = j }
func (r *Raster) SetLineCap(c string)    { r.state.cap = c }

func (r *Raster) Save() { r.saved = append(r.saved, r.state) }

func (r *Raster) Restore() {
	if len(r.saved) == 0 {
		return
	}
	r.state = r.saved[len(r.saved)-1]
	r.saved = r.saved[:len(r.saved)-1]
}

func (r *Raster) Translate(d Point) {
	r.state.transform = r.state.transform.Mul(Translation(d.X, d.Y))
}

func (r *Raster) Rotate(rad float64) {
	r.state.transform = r.state.transform.Mul(Rotation(rad))
}

func (r *Raster) Scale(sx, sy float64) {
	r.state.transform = r.state.transform.Mul(Scaling(sx, sy))
}

func (r *Raster) Fill() {
	mask := r.rasterize(func(z *vector.Rasterizer) {
		for _, sp := range r.path {
			addPath(z, sp.pts)
		}
	})
	r.paintMask(mask)
	r.NewPath()
}

func (r *Raster) Stroke() {
	width := r.state.lineWidth * r.state.transform.Scale()
	mask := r.rasterize(func(z *vector.Rasterizer) {
		for _, sp := range r.path {
			r.strokeSubpath(z, sp, width/2)
		}
	})
	r.paintMask(mask)
	r.NewPath()
}

func (r *Raster) Clip() {
	mask := r.rasterize(func(z *vector.Rasterizer) {
		for _, sp := range r.path {
			addPath(z, sp.pts)
		}
	})
	if old := r.state.clip; old != nil {
		for i := range mask.Pix {
			mask.Pix[i] = uint8(uint16(mask.Pix[i]) * uint16(old.Pix[i]) / 0xff)
		}
	}
	r.state.clip = mask
	r.NewPath()
}

func (r *Raster) Paint() {
	src := image.NewUniform(toNRGBA(r.state.pattern))
	if r.state.clip == nil {
		draw.Draw(r.img, r.img.Bounds(), src, image.Point{}, draw.Over)
		return
	}
	draw.DrawMask(r.img, r.img.Bounds(), src, image.Point{}, r.state.clip, image.Point{}, draw.Over)
}

// Text draws s with its baseline starting at p. Glyphs are not scaled by
// the transform.
func (r *Raster) Text(p Point, s string) {
	d := r.device(p)
	tinyfont.WriteLine(&displayer{r: r}, r.font, int16(math.Round(d.X)), int16(math.Round(d.Y)), s, rgbaOf(r.state.pattern))
}

// Effect is ignored: named effects have no pixels.
func (r *Raster) Effect(name string, args []object.Object) {}

func rgbaOf(c Color) color.RGBA {
	return color.RGBAModel.Convert(toNRGBA(c)).(color.RGBA)
}

func (r *Raster) rasterize(build func(z *vector.Rasterizer)) *image.Alpha {
	b := r.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Src
	build(z)
	mask := image.NewAlpha(b)
	z.Draw(mask, b, image.Opaque, image.Point{})
	return mask
}

func (r *Raster) paintMask(mask *image.Alpha) {
	if clip := r.state.clip; clip != nil {
		for i := range mask.Pix {
			mask.Pix[i] = uint8(uint16(mask.Pix[i]) * uint16(clip.Pix[i]) / 0xff)
		}
	}
	src := image.NewUniform(toNRGBA(r.state.pattern))
	draw.DrawMask(r.img, r.img.Bounds(), src, image.Point{}, mask, image.Point{}, draw.Over)
}

// addPolygon adds pts as a closed polygon, oriented so that overlapping
// stroke pieces accumulate instead of cancelling.
func addPolygon(z *vector.Rasterizer, pts []Point) {
	if len(pts) < 3 {
		return
	}
	if signedArea(pts) < 0 {
		rev := make([]Point, len(pts))
		for i, p := range pts {
			rev[len(pts)-1-i] = p
		}
		pts = rev
	}
	addPath(z, pts)
}

// addPath adds pts as a closed polygon keeping its winding.
func addPath(z *vector.Rasterizer, pts []Point) {
	if len(pts) < 3 {
		return
	}
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

func signedArea(pts []Point) float64 {
	var a float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// strokeSubpath covers a polyline of half width hw with one quad per
// segment plus joins and caps.
func (r *Raster) strokeSubpath(z *vector.Rasterizer, sp subpath, hw float64) {
	pts := dedupe(sp.pts)
	if hw <= 0 || len(pts) == 0 {
		return
	}
	if len(pts) == 1 {
		if r.state.cap == "round" {
			addPolygon(z, disc(pts[0], hw))
		}
		return
	}
	if sp.closed && pts[0] != pts[len(pts)-1] {
		pts = append(pts, pts[0])
	}
	n := len(pts) - 1
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[i+1]
		if !sp.closed {
			if i == 0 {
				a = r.capEnd(z, b, a, hw)
			}
			if i == n-1 {
				b = r.capEnd(z, a, b, hw)
			}
		}
		nx, ny := normal(a, b, hw)
		addPolygon(z, []Point{
			{X: a.X + nx, Y: a.Y + ny}, {X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny}, {X: a.X - nx, Y: a.Y - ny},
		})
	}
	for i := 1; i < len(pts)-1; i++ {
		r.join(z, pts[i-1], pts[i], pts[i+1], hw)
	}
	if sp.closed && len(pts) > 2 {
		r.join(z, pts[n-1], pts[0], pts[1], hw)
	}
}

// capEnd draws the cap at end of the segment from start and returns the
// end point the segment body should reach.
func (r *Raster) capEnd(z *vector.Rasterizer, start, end Point, hw float64) Point {
	switch r.state.cap {
	case "round":
		addPolygon(z, disc(end, hw))
	case "square":
		dx, dy := end.X-start.X, end.Y-start.Y
		l := math.Hypot(dx, dy)
		return Point{X: end.X + dx/l*hw, Y: end.Y + dy/l*hw}
	}
	return end
}

func (r *Raster) join(z *vector.Rasterizer, a, b, c Point, hw float64) {
	if r.state.join == "round" {
		addPolygon(z, disc(b, hw))
		return
	}
	n1x, n1y := normal(a, b, hw)
	n2x, n2y := normal(b, c, hw)
	// Join on the outer side of the turn.
	if (b.X-a.X)*(c.Y-b.Y)-(b.Y-a.Y)*(c.X-b.X) > 0 {
		n1x, n1y, n2x, n2y = -n1x, -n1y, -n2x, -n2y
	}
	p1 := Point{X: b.X + n1x, Y: b.Y + n1y}
	p2 := Point{X: b.X + n2x, Y: b.Y + n2y}
	addPolygon(z, []Point{b, p1, p2})
	if r.state.join != "miter" {
		return
	}
	mx, my := n1x+n2x, n1y+n2y
	ml := math.Hypot(mx, my)
	if ml == 0 {
		return
	}
	cos := (n1x*n2x + n1y*n2y) / (hw * hw)
	half := math.Sqrt((1 + cos) / 2)
	if half == 0 || 1/half > miterLimit {
		return
	}
	tip := Point{X: b.X + mx/ml*hw/half, Y: b.Y + my/ml*hw/half}
	addPolygon(z, []Point{p1, tip, p2, b})
}

func normal(a, b Point, hw float64) (float64, float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return 0, 0
	}
	return -dy / l * hw, dx / l * hw
}

func disc(c Point, rad float64) []Point {
	pts := make([]Point, circleSteps)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSteps
		pts[i] = Point{X: c.X + rad*math.Cos(a), Y: c.Y + rad*math.Sin(a)}
	}
	return pts
}

func dedupe(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

// displayer adapts the canvas to the display contract tinyfont draws on.
type displayer struct {
	r *Raster
}

var _ drivers.Displayer = (*displayer)(nil)

func (d *displayer) Size() (x, y int16) {
	b := d.r.img.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

func (d *displayer) SetPixel(x, y int16, c color.RGBA) {
	px, py := int(x), int(y)
	if !(image.Point{X: px, Y: py}).In(d.r.img.Bounds()) {
		return
	}
	if clip := d.r.state.clip; clip != nil && clip.AlphaAt(px, py).A == 0 {
		return
	}
	d.r.img.SetRGBA(px, py, blend(d.r.img.RGBAAt(px, py), c))
}

func (d *displayer) Display() error { return nil }

// blend composites premultiplied src over dst.
func blend(dst, src color.RGBA) color.RGBA {
	inv := 0xff - uint16(src.A)
	return color.RGBA{
		R: uint8(uint16(src.R) + uint16(dst.R)*inv/0xff),
		G: uint8(uint16(src.G) + uint16(dst.G)*inv/0xff),
		B: uint8(uint16(src.B) + uint16(dst.B)*inv/0xff),
		A: uint8(uint16(src.A) + uint16(dst.A)*inv/0xff),
	}
}
