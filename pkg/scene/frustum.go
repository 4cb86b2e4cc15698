package scene

import (
	"github.com/taigrr/canopy/pkg/math3d"
)

// Camera supplies the combined projection-view matrix the culler derives its
// frustum from. render.Camera implements it.
type Camera interface {
	ViewProjectionMatrix() math3d.Mat4
}

// ViewFrustumQuantity is the number of view-frustum planes at the bottom of
// the culler's plane stack.
const ViewFrustumQuantity = 6

// Frustum plane indices. D is the view direction, U up and R right.
const (
	PlaneDMin = iota // near
	PlaneDMax        // far
	PlaneUMin        // bottom
	PlaneUMax        // top
	PlaneRMin        // left
	PlaneRMax        // right
)

// ExtractFrustumPlanes derives the six frustum planes from a projection-view
// matrix with the Gribb/Hartmann method. The matrix is column-major and maps
// column vectors into OpenGL clip space (-w <= x, y, z <= w). The returned
// planes are normalized and their normals point into the frustum.
func ExtractFrustumPlanes(m math3d.Mat4) [ViewFrustumQuantity]math3d.Plane {
	row0, row1, row2, row3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)

	var planes [ViewFrustumQuantity]math3d.Plane
	planes[PlaneDMin] = math3d.PlaneFromVec4(row3.Add(row2))
	planes[PlaneDMax] = math3d.PlaneFromVec4(row3.Sub(row2))
	planes[PlaneUMin] = math3d.PlaneFromVec4(row3.Add(row1))
	planes[PlaneUMax] = math3d.PlaneFromVec4(row3.Sub(row1))
	planes[PlaneRMin] = math3d.PlaneFromVec4(row3.Add(row0))
	planes[PlaneRMax] = math3d.PlaneFromVec4(row3.Sub(row0))

	for i := range planes {
		planes[i].Normalize()
	}
	return planes
}

// PlaneName returns a short label for a plane index, used in logs.
func PlaneName(i int) string {
	switch i {
	case PlaneDMin:
		return "near"
	case PlaneDMax:
		return "far"
	case PlaneUMin:
		return "bottom"
	case PlaneUMax:
		return "top"
	case PlaneRMin:
		return "left"
	case PlaneRMax:
		return "right"
	}
	return "user"
}
