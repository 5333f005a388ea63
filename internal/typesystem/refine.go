package typesystem

import (
	"math"
	"strconv"

	"github.com/funvibe/dvi/internal/object"
)

// stepEpsilon absorbs float noise when testing quantisation.
const stepEpsilon = 1e-9

type integralType struct{}

// Integral admits numbers with no fractional part, ints or floats.
var Integral Type = integralType{}

func (integralType) String() string { return "Integral" }
func (integralType) Contains(v object.Object) bool {
	f, ok := object.ToFloat(v)
	return ok && !math.IsInf(f, 0) && f == math.Trunc(f)
}

// Range is an inclusive numeric interval.
type Range struct {
	Lo, Hi float64
}

func NewRange(lo, hi float64) *Range {
	return &Range{Lo: lo, Hi: hi}
}

func (r *Range) String() string {
	return "Range(" + formatNum(r.Lo) + ", " + formatNum(r.Hi) + ")"
}

func (r *Range) Contains(v object.Object) bool {
	f, ok := object.ToFloat(v)
	return ok && f >= r.Lo && f <= r.Hi
}

// Step admits numbers that are whole multiples of Q.
type Step struct {
	Q float64
}

func (s *Step) String() string { return "Step(" + formatNum(s.Q) + ")" }
func (s *Step) Contains(v object.Object) bool {
	f, ok := object.ToFloat(v)
	return ok && isMultiple(f, s.Q)
}

func isMultiple(v, q float64) bool {
	if q == 0 {
		return v == 0
	}
	n := v / q
	return math.Abs(n-math.Round(n)) < stepEpsilon
}

// Enum is a singleton string tag.
type Enum struct {
	Tag string
}

func (e *Enum) String() string { return strconv.Quote(e.Tag) }
func (e *Enum) Contains(v object.Object) bool {
	s, ok := v.(*object.String)
	return ok && s.Value == e.Tag
}

// NewEnum builds the union of the given tags.
func NewEnum(tags ...string) Type {
	ts := make([]Type, len(tags))
	for i, tag := range tags {
		ts[i] = &Enum{Tag: tag}
	}
	return NewUnion(ts...)
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
