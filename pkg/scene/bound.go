package scene

import (
	"math"

	"github.com/taigrr/canopy/pkg/math3d"
)

// BoundingSphere is the bounding volume carried by every Spatial.
// A zero Radius marks an empty bound; the culler never reports it visible.
type BoundingSphere struct {
	Center math3d.Vec3
	Radius float64
}

// NewBoundingSphere creates a sphere. Negative radii are clamped to zero.
func NewBoundingSphere(center math3d.Vec3, radius float64) BoundingSphere {
	return BoundingSphere{Center: center, Radius: math.Max(radius, 0)}
}

// IsEmpty reports whether b is the zero-radius sentinel.
func (b BoundingSphere) IsEmpty() bool {
	return b.Radius == 0
}

// WhichSide classifies b against a plane: +1 entirely on the positive side,
// -1 entirely on the negative side, 0 when it straddles the plane.
func (b BoundingSphere) WhichSide(p math3d.Plane) int {
	d := p.DistanceToPoint(b.Center)
	if d <= -b.Radius {
		return -1
	}
	if d >= b.Radius {
		return 1
	}
	return 0
}

// GrowToContain enlarges b to the smallest sphere containing both b and
// other. Empty spheres do not contribute.
func (b *BoundingSphere) GrowToContain(other BoundingSphere) {
	if other.IsEmpty() {
		return
	}
	if b.IsEmpty() {
		*b = other
		return
	}

	diff := other.Center.Sub(b.Center)
	lenSq := diff.LenSq()
	rDiff := other.Radius - b.Radius

	if rDiff*rDiff >= lenSq {
		// One sphere already contains the other.
		if rDiff >= 0 {
			*b = other
		}
		return
	}

	length := math.Sqrt(lenSq)
	if length > 1e-12 {
		b.Center = b.Center.Add(diff.Scale((length + rDiff) / (2 * length)))
	}
	b.Radius = 0.5 * (length + b.Radius + other.Radius)
}

// TransformBy returns b mapped through t. The radius is scaled by t.Norm(),
// which never underestimates the stretch of a non-uniform transform.
func (b BoundingSphere) TransformBy(t *Transform) BoundingSphere {
	if b.IsEmpty() {
		return BoundingSphere{Center: t.ApplyForward(b.Center)}
	}
	return BoundingSphere{
		Center: t.ApplyForward(b.Center),
		Radius: t.Norm() * b.Radius,
	}
}

// ComputeFromPoints returns a sphere centered on the average of points that
// contains all of them. No points yields the empty sphere.
func ComputeFromPoints(points []math3d.Vec3) BoundingSphere {
	if len(points) == 0 {
		return BoundingSphere{}
	}

	var sum math3d.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	center := sum.Scale(1 / float64(len(points)))

	var maxSq float64
	for _, p := range points {
		maxSq = math.Max(maxSq, p.Sub(center).LenSq())
	}
	return BoundingSphere{Center: center, Radius: math.Sqrt(maxSq)}
}

// Contains reports whether p lies inside or on b.
func (b BoundingSphere) Contains(p math3d.Vec3) bool {
	return p.Sub(b.Center).LenSq() <= b.Radius*b.Radius
}

// ContainsSphere reports whether other lies inside b, allowing eps of slack.
// Empty spheres are contained by anything.
func (b BoundingSphere) ContainsSphere(other BoundingSphere, eps float64) bool {
	if other.IsEmpty() {
		return true
	}
	return b.Center.Distance(other.Center)+other.Radius <= b.Radius+eps
}

// Intersects reports whether b and other overlap.
func (b BoundingSphere) Intersects(other BoundingSphere) bool {
	r := b.Radius + other.Radius
	return b.Center.Sub(other.Center).LenSq() <= r*r
}
