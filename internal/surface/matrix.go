package surface

import "math"

// Matrix is an affine transform [a b c d e f]:
// x' = a*x + c*y + e, y' = b*x + d*y + f.
type Matrix [6]float64

var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Mul returns m applied after n.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		n[0]*m[0] + n[1]*m[2],
		n[0]*m[1] + n[1]*m[3],
		n[2]*m[0] + n[3]*m[2],
		n[2]*m[1] + n[3]*m[3],
		n[4]*m[0] + n[5]*m[2] + m[4],
		n[4]*m[1] + n[5]*m[3] + m[5],
	}
}

func (m Matrix) Apply(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

// Invert returns the inverse and false when m is singular.
func (m Matrix) Invert() (Matrix, bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 {
		return Matrix{}, false
	}
	return Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, true
}

// Scale is the factor m applies to lengths, averaged over directions.
func (m Matrix) Scale() float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

func Translation(dx, dy float64) Matrix { return Matrix{1, 0, 0, 1, dx, dy} }
func Scaling(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }
func Rotation(rad float64) Matrix {
	s, c := math.Sincos(rad)
	return Matrix{c, s, -s, c, 0, 0}
}
