package scene

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/taigrr/canopy/pkg/math3d"
)

// buildGrid creates root -> groups -> leaves with leaves scattered in a
// 200x200 square around the origin.
func buildGrid(groups, leavesPerGroup int) *Node {
	rng := rand.New(rand.NewSource(42))
	root := NewNode("root")
	for g := range groups {
		group := NewNode(fmt.Sprintf("group%d", g))
		group.Local().SetTranslation(math3d.V3(rng.Float64()*200-100, 0, rng.Float64()*200-100))
		for l := range leavesPerGroup {
			leaf := NewVisual(fmt.Sprintf("leaf%d.%d", g, l), NewBoundingSphere(math3d.Zero3(), 0.5+rng.Float64()))
			leaf.Local().SetTranslation(math3d.V3(rng.Float64()*10-5, rng.Float64()*4, rng.Float64()*10-5))
			group.MustAttach(leaf)
		}
		root.MustAttach(group)
	}
	root.Update(0, true)
	return root
}

func perspectiveCamera() fixedCamera {
	proj := math3d.Perspective(math.Pi/3, 16.0/9.0, 0.1, 150)
	view := math3d.LookAt(math3d.V3(0, 5, 0), math3d.V3(0, 5, -1), math3d.Up())
	return fixedCamera(proj.Mul(view))
}

// BenchmarkUpdate measures the two-pass world data update.
func BenchmarkUpdate(b *testing.B) {
	root := buildGrid(50, 20)
	for b.Loop() {
		root.Update(0, true)
	}
}

// BenchmarkComputeVisibleSet measures hierarchical culling of 1000 leaves.
func BenchmarkComputeVisibleSet(b *testing.B) {
	root := buildGrid(50, 20)
	cam := perspectiveCamera()
	c := NewCuller()

	for b.Loop() {
		c.ComputeVisibleSet(cam, root)
	}
	b.ReportMetric(float64(c.VisibleSet().Len()), "visible")
}

// BenchmarkIsVisible compares a sphere that fails early with one that is
// tested against every plane.
func BenchmarkIsVisible(b *testing.B) {
	c := NewCuller()
	c.PushViewFrustumPlanes(perspectiveCamera())

	b.Run("visible", func(b *testing.B) {
		s := NewBoundingSphere(math3d.V3(0, 5, -20), 1)
		for b.Loop() {
			c.SetPlaneState(allPlanesActive)
			_ = c.IsVisible(s)
		}
	})

	b.Run("culled", func(b *testing.B) {
		s := NewBoundingSphere(math3d.V3(0, 5, 20), 1)
		for b.Loop() {
			c.SetPlaneState(allPlanesActive)
			_ = c.IsVisible(s)
		}
	})
}

// BenchmarkProduct covers the three composition paths.
func BenchmarkProduct(b *testing.B) {
	uniform := rsTransform(math3d.RotationAxis3(math3d.Up(), 0.5), math3d.V3(2, 2, 2), math3d.V3(1, 2, 3))
	nonUniform := rsTransform(math3d.RotationAxis3(math3d.Up(), 0.5), math3d.V3(1, 2, 3), math3d.V3(1, 2, 3))
	general := generalTransform(math3d.Mat3{1, 0.5, 0, 0, 1, 0, 0, 0, 1}, math3d.V3(1, 2, 3))

	b.Run("rs", func(b *testing.B) {
		for b.Loop() {
			_ = Product(&uniform, &nonUniform)
		}
	})
	b.Run("general", func(b *testing.B) {
		for b.Loop() {
			_ = Product(&general, &uniform)
		}
	})
}
