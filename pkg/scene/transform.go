package scene

import (
	"github.com/pkg/errors"
	"github.com/taigrr/canopy/pkg/math3d"
)

// Contract violations on Transform. They are programming errors and are
// raised with panic.
var (
	ErrNotRSMatrix     = errors.New("scene: transform is not a rotation-scale matrix")
	ErrNotUniformScale = errors.New("scene: transform scale is not uniform")
	ErrZeroScale       = errors.New("scene: transform scale component is zero")
)

// Transform is an affine transform Y = M*X + T. In rotation-scale (RS) mode
// M = R*S where R is a rotation and S a diagonal scale; otherwise M is a
// general 3x3 matrix and the rotation/scale accessors panic.
//
// The homogeneous matrix is rebuilt on every mutation, the inverse only on
// demand. Transform is a value type; copies carry their caches with them.
// The zero value is not the identity, use NewTransform.
type Transform struct {
	matrix    math3d.Mat3 // R in RS mode, M otherwise
	translate math3d.Vec3
	scale     math3d.Vec3

	isIdentity     bool
	isRSMatrix     bool
	isUniformScale bool

	hMatrix            math3d.Mat4
	invHMatrix         math3d.Mat4
	inverseNeedsUpdate bool
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	var t Transform
	t.MakeIdentity()
	return t
}

// MakeIdentity resets t to the identity.
func (t *Transform) MakeIdentity() {
	t.matrix = math3d.Identity3()
	t.translate = math3d.Zero3()
	t.scale = math3d.One3()
	t.isIdentity = true
	t.isRSMatrix = true
	t.isUniformScale = true
	t.updateHMatrix()
}

// MakeUnitScale resets the scale to one. The transform must be in RS mode.
func (t *Transform) MakeUnitScale() {
	t.mustRS()
	t.scale = math3d.One3()
	t.isUniformScale = true
	t.updateHMatrix()
}

// IsIdentity reports whether t is known to be the identity.
func (t *Transform) IsIdentity() bool { return t.isIdentity }

// IsRSMatrix reports whether t is in rotation-scale mode.
func (t *Transform) IsRSMatrix() bool { return t.isRSMatrix }

// IsUniformScale reports whether t is in RS mode with equal scale components.
func (t *Transform) IsUniformScale() bool { return t.isRSMatrix && t.isUniformScale }

// SetRotation sets R and switches t to RS mode. The scale is kept when t
// was already in RS mode and reset to one otherwise.
func (t *Transform) SetRotation(r math3d.Mat3) {
	if !t.isRSMatrix {
		t.scale = math3d.One3()
		t.isUniformScale = true
	}
	t.matrix = r
	t.isIdentity = false
	t.isRSMatrix = true
	t.updateHMatrix()
}

// Rotation returns R. It panics with ErrNotRSMatrix in general mode.
func (t *Transform) Rotation() math3d.Mat3 {
	t.mustRS()
	return t.matrix
}

// SetMatrix sets a general 3x3 block and leaves RS mode.
func (t *Transform) SetMatrix(m math3d.Mat3) {
	t.matrix = m
	t.isIdentity = false
	t.isRSMatrix = false
	t.isUniformScale = false
	t.updateHMatrix()
}

// Matrix returns the 3x3 block: R in RS mode, M otherwise.
func (t *Transform) Matrix() math3d.Mat3 {
	return t.matrix
}

// Linear returns the full 3x3 linear part, R*S in RS mode.
func (t *Transform) Linear() math3d.Mat3 {
	if t.isRSMatrix {
		return t.matrix.ScaleColumns(t.scale)
	}
	return t.matrix
}

// SetTranslation sets T.
func (t *Transform) SetTranslation(v math3d.Vec3) {
	t.translate = v
	t.isIdentity = false
	t.updateHMatrix()
}

// Translation returns T.
func (t *Transform) Translation() math3d.Vec3 {
	return t.translate
}

// SetScale sets a possibly non-uniform scale. t must be in RS mode and no
// component may be zero.
func (t *Transform) SetScale(s math3d.Vec3) {
	t.mustRS()
	if s.X == 0 || s.Y == 0 || s.Z == 0 {
		panic(ErrZeroScale)
	}
	t.scale = s
	t.isIdentity = false
	t.isUniformScale = s.X == s.Y && s.Y == s.Z
	t.updateHMatrix()
}

// SetUniformScale sets all scale components to s.
func (t *Transform) SetUniformScale(s float64) {
	t.mustRS()
	if s == 0 {
		panic(ErrZeroScale)
	}
	t.scale = math3d.V3(s, s, s)
	t.isIdentity = false
	t.isUniformScale = true
	t.updateHMatrix()
}

// Scale returns S. It panics with ErrNotRSMatrix in general mode.
func (t *Transform) Scale() math3d.Vec3 {
	t.mustRS()
	return t.scale
}

// UniformScale returns the single scale factor. t must be in RS mode with a
// uniform scale.
func (t *Transform) UniformScale() float64 {
	t.mustRS()
	if !t.isUniformScale {
		panic(ErrNotUniformScale)
	}
	return t.scale.X
}

// Norm returns an upper bound on how much t stretches any vector: the largest
// absolute scale in RS mode, the Frobenius norm of M otherwise.
func (t *Transform) Norm() float64 {
	if t.isRSMatrix {
		return t.scale.Abs().MaxComponent()
	}
	return t.matrix.FrobeniusNorm()
}

// HMatrix returns the homogeneous 4x4 matrix.
func (t *Transform) HMatrix() math3d.Mat4 {
	return t.hMatrix
}

// HInverse returns the inverse of HMatrix, recomputing it only after a
// mutation.
func (t *Transform) HInverse() math3d.Mat4 {
	if !t.inverseNeedsUpdate {
		return t.invHMatrix
	}
	t.inverseNeedsUpdate = false

	if t.isIdentity {
		t.invHMatrix = math3d.Identity()
		return t.invHMatrix
	}

	var inv math3d.Mat3
	switch {
	case t.isRSMatrix && t.isUniformScale:
		inv = t.matrix.Transpose().Scale(1 / t.scale.X)
	case t.isRSMatrix:
		inv = t.matrix.Transpose().ScaleRows(math3d.V3(1/t.scale.X, 1/t.scale.Y, 1/t.scale.Z))
	default:
		var ok bool
		inv, ok = t.matrix.Inverse()
		if !ok {
			// Singular block: keep the cache well defined.
			inv = math3d.Identity3()
		}
	}
	t.invHMatrix = inv.Homogeneous(inv.MulVec3(t.translate).Negate())
	return t.invHMatrix
}

// Inverse returns the inverse transform. The result is in general mode
// unless t is the identity.
func (t *Transform) Inverse() Transform {
	if t.isIdentity {
		return NewTransform()
	}
	h := t.HInverse()
	var inv Transform
	inv.SetMatrix(h.Upper3())
	inv.SetTranslation(h.Translation())
	return inv
}

// ApplyForward maps a point: M*p + T.
func (t *Transform) ApplyForward(p math3d.Vec3) math3d.Vec3 {
	if t.isIdentity {
		return p
	}
	if t.isRSMatrix {
		return t.matrix.MulVec3(p.Mul(t.scale)).Add(t.translate)
	}
	return t.matrix.MulVec3(p).Add(t.translate)
}

// ApplyForwardDir maps a direction: M*v.
func (t *Transform) ApplyForwardDir(v math3d.Vec3) math3d.Vec3 {
	if t.isIdentity {
		return v
	}
	return t.Linear().MulVec3(v)
}

// ApplyInverse maps a point back: M^-1*(p - T).
func (t *Transform) ApplyInverse(p math3d.Vec3) math3d.Vec3 {
	if t.isIdentity {
		return p
	}
	return t.HInverse().Upper3().MulVec3(p.Sub(t.translate))
}

// Product returns a*b, the transform that applies b first and then a.
func Product(a, b *Transform) Transform {
	if a.isIdentity {
		return *b
	}
	if b.isIdentity {
		return *a
	}

	var out Transform
	if a.isRSMatrix && b.isRSMatrix && a.isUniformScale {
		// s_a*R_a * R_b*S_b = (R_a*R_b) * (s_a*S_b)
		sa := a.scale.X
		out.matrix = a.matrix.Mul(b.matrix)
		out.translate = a.matrix.MulVec3(b.translate).Scale(sa).Add(a.translate)
		out.scale = b.scale.Scale(sa)
		out.isRSMatrix = true
		out.isUniformScale = b.isUniformScale
		out.updateHMatrix()
		return out
	}

	ma := a.Linear()
	out.matrix = ma.Mul(b.Linear())
	out.translate = ma.MulVec3(b.translate).Add(a.translate)
	out.updateHMatrix()
	return out
}

// ApproxEqual compares the homogeneous matrices of t and other.
func (t *Transform) ApproxEqual(other *Transform, eps float64) bool {
	return t.hMatrix.ApproxEqual(other.hMatrix, eps)
}

func (t *Transform) mustRS() {
	if !t.isRSMatrix {
		panic(ErrNotRSMatrix)
	}
}

func (t *Transform) updateHMatrix() {
	if t.isIdentity {
		t.hMatrix = math3d.Identity()
	} else {
		t.hMatrix = t.Linear().Homogeneous(t.translate)
	}
	t.inverseNeedsUpdate = true
}
