package render

import (
	"math"

	"github.com/taigrr/canopy/pkg/math3d"
	"github.com/taigrr/canopy/pkg/scene"
)

// boundSegments is the number of segments per bounding-sphere ring.
const boundSegments = 24

// Wireframe draws 3D lines through a camera into a framebuffer.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{camera: camera, fb: fb}
}

// DrawLine3D draws a world-space segment, clipped to the view volume.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	vp := w.camera.ViewProjectionMatrix()
	a, b, ok := clipLine(vp.MulVec4(math3d.V4FromV3(p1, 1)), vp.MulVec4(math3d.V4FromV3(p2, 1)))
	if !ok {
		return
	}

	x1, y1 := ndcToScreen(a.PerspectiveDivide(), w.fb.Width, w.fb.Height)
	x2, y2 := ndcToScreen(b.PerspectiveDivide(), w.fb.Width, w.fb.Height)
	w.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
}

// clipLine clips a clip-space segment against -w <= x, y, z <= w with the
// Liang-Barsky method.
func clipLine(a, b math3d.Vec4) (math3d.Vec4, math3d.Vec4, bool) {
	da, db := boundaryDistances(a), boundaryDistances(b)
	t0, t1 := 0.0, 1.0
	for i := range da {
		fa, fb := da[i], db[i]
		switch {
		case fa < 0 && fb < 0:
			return a, b, false
		case fa < 0:
			t0 = math.Max(t0, fa/(fa-fb))
		case fb < 0:
			t1 = math.Min(t1, fa/(fa-fb))
		}
	}
	if t0 > t1 {
		return a, b, false
	}
	return lerp4(a, b, t0), lerp4(a, b, t1), true
}

func boundaryDistances(v math3d.Vec4) [6]float64 {
	return [6]float64{v.W + v.X, v.W - v.X, v.W + v.Y, v.W - v.Y, v.W + v.Z, v.W - v.Z}
}

func lerp4(a, b math3d.Vec4, t float64) math3d.Vec4 {
	return math3d.V4(
		a.X+(b.X-a.X)*t,
		a.Y+(b.Y-a.Y)*t,
		a.Z+(b.Z-a.Z)*t,
		a.W+(b.W-a.W)*t,
	)
}

// DrawVisibleSet draws every Visual in vs: the triangle edges of its mesh
// in world space, or its world bounding sphere when it has no mesh.
func (w *Wireframe) DrawVisibleSet(vs *scene.VisibleSet, meshColor, boundColor Color) {
	for s := range vs.All() {
		v, ok := s.(*scene.Visual)
		if !ok {
			continue
		}
		if v.Mesh == nil || len(v.Mesh.Faces) == 0 {
			w.DrawBound(v.WorldBound(), boundColor)
			continue
		}
		w.drawMesh(v, meshColor)
	}
}

func (w *Wireframe) drawMesh(v *scene.Visual, color Color) {
	pts := v.WorldPoints()
	for _, f := range v.Mesh.Faces {
		w.DrawLine3D(pts[f.V[0]], pts[f.V[1]], color)
		w.DrawLine3D(pts[f.V[1]], pts[f.V[2]], color)
		w.DrawLine3D(pts[f.V[2]], pts[f.V[0]], color)
	}
}

// DrawBound draws a sphere as three axis-aligned rings.
func (w *Wireframe) DrawBound(b scene.BoundingSphere, color Color) {
	if b.IsEmpty() {
		return
	}
	ring := func(axisA, axisB math3d.Vec3) {
		prev := b.Center.Add(axisA.Scale(b.Radius))
		for i := 1; i <= boundSegments; i++ {
			theta := 2 * math.Pi * float64(i) / boundSegments
			p := b.Center.
				Add(axisA.Scale(b.Radius * math.Cos(theta))).
				Add(axisB.Scale(b.Radius * math.Sin(theta)))
			w.DrawLine3D(prev, p, color)
			prev = p
		}
	}
	x, y, z := math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1)
	ring(x, y)
	ring(y, z)
	ring(z, x)
}

// DrawAxes draws the coordinate axes at the origin.
func (w *Wireframe) DrawAxes(length float64) {
	origin := math3d.Zero3()
	w.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)
	w.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen)
	w.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)
}

// DrawGrid draws a grid on the XZ plane at y=0.
func (w *Wireframe) DrawGrid(size, step float64, color Color) {
	if step <= 0 {
		return
	}
	half := size / 2
	for x := -half; x <= half; x += step {
		w.DrawLine3D(math3d.V3(x, 0, -half), math3d.V3(x, 0, half), color)
	}
	for z := -half; z <= half; z += step {
		w.DrawLine3D(math3d.V3(-half, 0, z), math3d.V3(half, 0, z), color)
	}
}
