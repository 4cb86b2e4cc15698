package math3d

// Plane represents the plane Normal · p + D = 0. The side the normal points
// to is the positive side.
type Plane struct {
	Normal Vec3
	D      float64
}

// NewPlane creates the plane through point with the given normal. The normal
// is normalized.
func NewPlane(normal, point Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, D: -n.Dot(point)}
}

// PlaneFromVec4 builds a plane from packed (A, B, C, D) coefficients.
func PlaneFromVec4(v Vec4) Plane {
	return Plane{Normal: v.Vec3(), D: v.W}
}

// Normalize scales the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1.0 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to a point.
// Positive = in front (same side as normal), negative = behind.
func (p Plane) DistanceToPoint(point Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// WhichSide returns +1 when point is on the positive side, -1 on the negative
// side and 0 when it lies on the plane.
func (p Plane) WhichSide(point Vec3) int {
	d := p.DistanceToPoint(point)
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}

// Flip returns the plane with the opposite orientation.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Negate(), D: -p.D}
}
