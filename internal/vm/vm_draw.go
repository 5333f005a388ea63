package vm

import (
	"math"

	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/surface"
)

// operands pops the inputs of a drawing word and checks their shapes.
type operands struct {
	vm   *VM
	vals []object.Object
	err  *Fault
}

func (o *operands) point(i int) surface.Point {
	if o.err != nil {
		return surface.Point{}
	}
	p, ok := o.vals[i].(*object.Point)
	if !ok {
		o.err = o.vm.fault(diagnostics.ErrR006, "%s expects a Point, got %s", o.vm.word(), object.TypeName(o.vals[i]))
		return surface.Point{}
	}
	return surface.Point{X: p.X, Y: p.Y}
}

func (o *operands) number(i int) float64 {
	if o.err != nil {
		return 0
	}
	f, ok := object.ToFloat(o.vals[i])
	if !ok {
		o.err = o.vm.fault(diagnostics.ErrR006, "%s expects a number, got %s", o.vm.word(), object.TypeName(o.vals[i]))
	}
	return f
}

func (o *operands) str(i int) string {
	if o.err != nil {
		return ""
	}
	s, ok := o.vals[i].(*object.String)
	if !ok {
		o.err = o.vm.fault(diagnostics.ErrR006, "%s expects Str, got %s", o.vm.word(), object.TypeName(o.vals[i]))
		return ""
	}
	return s.Value
}

func (o *operands) color(i int) surface.Color {
	if o.err != nil {
		return surface.Color{}
	}
	c, ok := o.vals[i].(*object.Color)
	if !ok {
		o.err = o.vm.fault(diagnostics.ErrR006, "%s expects a Color, got %s", o.vm.word(), object.TypeName(o.vals[i]))
		return surface.Color{}
	}
	return surface.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func (o *operands) oneOf(i int, allowed []string) string {
	s := o.str(i)
	if o.err != nil {
		return ""
	}
	for _, a := range allowed {
		if a == s {
			return s
		}
	}
	o.err = o.vm.fault(diagnostics.ErrR006, "%s: unknown value %q", o.vm.word(), s)
	return ""
}

func (vm *VM) word() string {
	if w, ok := WordFor(vm.op()); ok {
		return w.Name
	}
	return vm.op().String()
}

func (vm *VM) requireCurrent() *Fault {
	if vm.ctx.Current == nil {
		return vm.fault(diagnostics.ErrR002, "%s needs a current point", vm.word())
	}
	return nil
}

func (vm *VM) requirePath() *Fault {
	if len(vm.ctx.Path) == 0 {
		return vm.fault(diagnostics.ErrR002, "%s needs a non-empty path", vm.word())
	}
	return nil
}

// draw executes a path, style, context, terminal or query word.
func (vm *VM) draw(op Opcode) *Fault {
	w, _ := WordFor(op)
	vals, f := vm.popN(len(w.In))
	if f != nil {
		return f
	}
	args := &operands{vm: vm, vals: vals}
	c := vm.ctx
	s := vm.surface

	switch op {
	case OP_MOVETO:
		p := args.point(0)
		if args.err != nil {
			return args.err
		}
		c.addSegment(op, p, p)
		s.MoveTo(p)
	case OP_LINETO:
		p := args.point(0)
		if args.err != nil {
			return args.err
		}
		if f := vm.requireCurrent(); f != nil {
			return f
		}
		c.addSegment(op, p, p)
		s.LineTo(p)
	case OP_CURVETO:
		c1, c2, p := args.point(0), args.point(1), args.point(2)
		if args.err != nil {
			return args.err
		}
		if f := vm.requireCurrent(); f != nil {
			return f
		}
		c.addSegment(op, p, c1, c2, p)
		s.CurveTo(c1, c2, p)
	case OP_ARC:
		center, r, a1, a2 := args.point(0), args.number(1), args.number(2), args.number(3)
		if args.err != nil {
			return args.err
		}
		end := surface.Point{X: center.X + r*math.Cos(a2), Y: center.Y + r*math.Sin(a2)}
		c.addSegment(op, end, center, surface.Point{X: r, Y: 0}, surface.Point{X: a1, Y: a2})
		s.Arc(center, r, a1, a2)
	case OP_CIRCLE:
		center, r := args.point(0), args.number(1)
		if args.err != nil {
			return args.err
		}
		c.addSegment(op, surface.Point{X: center.X + r, Y: center.Y}, center, surface.Point{X: r, Y: 0})
		s.Circle(center, r)
	case OP_RECTANGLE:
		origin, wd, ht := args.point(0), args.number(1), args.number(2)
		if args.err != nil {
			return args.err
		}
		c.addSegment(op, origin, origin, surface.Point{X: origin.X + wd, Y: origin.Y + ht})
		s.Rectangle(origin, wd, ht)
	case OP_CLOSEPATH:
		if f := vm.requireCurrent(); f != nil {
			return f
		}
		c.Path = append(c.Path, Segment{Op: op})
		s.ClosePath()
	case OP_NEWPATH:
		c.clearPath()
		s.NewPath()

	case OP_SETSOURCE:
		col := args.color(0)
		if args.err != nil {
			return args.err
		}
		c.Pattern = col
		s.SetPattern(col)
	case OP_SETLINEWIDTH:
		lw := args.number(0)
		if args.err != nil {
			return args.err
		}
		if lw < 0 {
			return vm.fault(diagnostics.ErrR006, "line width must not be negative, got %s", surface.FormatNumber(lw))
		}
		c.LineWidth = lw
		s.SetLineWidth(lw)
	case OP_SETLINEJOIN:
		j := args.oneOf(0, surface.LineJoins)
		if args.err != nil {
			return args.err
		}
		c.Join = j
		s.SetLineJoin(j)
	case OP_SETLINECAP:
		cp := args.oneOf(0, surface.LineCaps)
		if args.err != nil {
			return args.err
		}
		c.Cap = cp
		s.SetLineCap(cp)

	case OP_SAVE:
		if len(vm.ctxStack) >= MaxContextDepth {
			return vm.fault(diagnostics.ErrR009, "more than %d nested saves", MaxContextDepth)
		}
		vm.ctxStack = append(vm.ctxStack, c.Clone())
		s.Save()
	case OP_RESTORE:
		if len(vm.ctxStack) <= vm.frame().ctxBase {
			return vm.fault(diagnostics.ErrR008, "restore without a matching save")
		}
		vm.ctx = vm.ctxStack[len(vm.ctxStack)-1]
		vm.ctxStack = vm.ctxStack[:len(vm.ctxStack)-1]
		s.Restore()
	case OP_TRANSLATE:
		d := args.point(0)
		if args.err != nil {
			return args.err
		}
		c.Transform = c.Transform.Mul(Translation(d.X, d.Y))
		s.Translate(d)
	case OP_ROTATE:
		rad := args.number(0)
		if args.err != nil {
			return args.err
		}
		c.Transform = c.Transform.Mul(Rotation(rad))
		s.Rotate(rad)
	case OP_SCALE:
		sx, sy := args.number(0), args.number(1)
		if args.err != nil {
			return args.err
		}
		c.Transform = c.Transform.Mul(Scaling(sx, sy))
		s.Scale(sx, sy)

	case OP_FILL, OP_STROKE, OP_CLIP:
		if f := vm.requirePath(); f != nil {
			return f
		}
		switch op {
		case OP_FILL:
			s.Fill()
		case OP_STROKE:
			s.Stroke()
		default:
			s.Clip()
		}
		c.clearPath()
	case OP_PAINT:
		s.Paint()
	case OP_TEXT:
		p, str := args.point(0), args.str(1)
		if args.err != nil {
			return args.err
		}
		s.Text(p, str)

	case OP_CURRENTPOINT:
		p, ok := c.CurrentPoint()
		if !ok {
			return vm.fault(diagnostics.ErrR002, "no current point")
		}
		vm.push(&object.Point{X: p.X, Y: p.Y})

	default:
		return vm.fault(diagnostics.ErrR009, "%s is not a drawing word", op)
	}
	return nil
}
