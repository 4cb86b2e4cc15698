package math3d

import "math"

// Mat3 is a 3x3 matrix stored in column-major order, the upper-left block of
// a Mat4.
//
// Memory layout (indices):
// | 0  3  6 |
// | 1  4  7 |
// | 2  5  8 |
type Mat3 [9]float64

// Identity3 returns the 3x3 identity.
func Identity3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Diagonal3 returns a matrix with v on the diagonal.
func Diagonal3(v Vec3) Mat3 {
	return Mat3{
		v.X, 0, 0,
		0, v.Y, 0,
		0, 0, v.Z,
	}
}

// RotationAxis3 returns the rotation of angle radians around axis.
func RotationAxis3(axis Vec3, angle float64) Mat3 {
	axis = axis.Normalize()
	c, s := math.Cos(angle), math.Sin(angle)
	t := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z

	return Mat3{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c,
	}
}

// Get returns the element at (row, col).
func (m Mat3) Get(row, col int) float64 {
	return m[row+col*3]
}

// Column returns column i as a vector.
func (m Mat3) Column(i int) Vec3 {
	return Vec3{m[i*3], m[i*3+1], m[i*3+2]}
}

// Mul returns a * b.
//
//nolint:st1016 // a*b naming convention is clearer for matrix multiplication
func (a Mat3) Mul(b Mat3) Mat3 {
	var m Mat3
	for col := range 3 {
		for row := range 3 {
			m[row+col*3] = a[row]*b[col*3] + a[row+3]*b[col*3+1] + a[row+6]*b[col*3+2]
		}
	}
	return m
}

// MulVec3 returns m * v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

// ScaleColumns returns m * Diagonal3(s).
func (m Mat3) ScaleColumns(s Vec3) Mat3 {
	return Mat3{
		m[0] * s.X, m[1] * s.X, m[2] * s.X,
		m[3] * s.Y, m[4] * s.Y, m[5] * s.Y,
		m[6] * s.Z, m[7] * s.Z, m[8] * s.Z,
	}
}

// ScaleRows returns Diagonal3(s) * m.
func (m Mat3) ScaleRows(s Vec3) Mat3 {
	return Mat3{
		m[0] * s.X, m[1] * s.Y, m[2] * s.Z,
		m[3] * s.X, m[4] * s.Y, m[5] * s.Z,
		m[6] * s.X, m[7] * s.Y, m[8] * s.Z,
	}
}

// Scale returns m with every element multiplied by s.
func (m Mat3) Scale(s float64) Mat3 {
	for i := range m {
		m[i] *= s
	}
	return m
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Determinant returns the determinant.
func (m Mat3) Determinant() float64 {
	return m[0]*(m[4]*m[8]-m[7]*m[5]) -
		m[3]*(m[1]*m[8]-m[7]*m[2]) +
		m[6]*(m[1]*m[5]-m[4]*m[2])
}

// Inverse returns the inverse computed from the adjugate. ok is false for a
// singular matrix, in which case the zero matrix is returned.
func (m Mat3) Inverse() (inv Mat3, ok bool) {
	c00 := m[4]*m[8] - m[7]*m[5]
	c01 := m[7]*m[2] - m[1]*m[8]
	c02 := m[1]*m[5] - m[4]*m[2]

	det := m[0]*c00 + m[3]*c01 + m[6]*c02
	if det == 0 {
		return Mat3{}, false
	}
	invDet := 1 / det

	inv[0] = c00 * invDet
	inv[1] = c01 * invDet
	inv[2] = c02 * invDet
	inv[3] = (m[6]*m[5] - m[3]*m[8]) * invDet
	inv[4] = (m[0]*m[8] - m[6]*m[2]) * invDet
	inv[5] = (m[3]*m[2] - m[0]*m[5]) * invDet
	inv[6] = (m[3]*m[7] - m[6]*m[4]) * invDet
	inv[7] = (m[6]*m[1] - m[0]*m[7]) * invDet
	inv[8] = (m[0]*m[4] - m[3]*m[1]) * invDet

	return inv, true
}

// FrobeniusNorm returns the square root of the sum of squared elements. It is
// never smaller than the largest stretch the matrix applies to a vector.
func (m Mat3) FrobeniusNorm() float64 {
	var sum float64
	for _, v := range m {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Homogeneous embeds m and the translation t in a 4x4 affine matrix.
func (m Mat3) Homogeneous(t Vec3) Mat4 {
	return Mat4{
		m[0], m[1], m[2], 0,
		m[3], m[4], m[5], 0,
		m[6], m[7], m[8], 0,
		t.X, t.Y, t.Z, 1,
	}
}

// ApproxEqual reports whether every element of a and b differs by at most eps.
//
//nolint:st1016 // a,b naming convention is clearer for comparisons
func (a Mat3) ApproxEqual(b Mat3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
