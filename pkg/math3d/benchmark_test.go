package math3d

import (
	"testing"
)

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3))
	m2 := RotateY(0.5)

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4MulVec3(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5))
	v := V3(1, 2, 3)

	for b.Loop() {
		_ = m.MulVec3(v)
	}
}

func BenchmarkMat3Mul(b *testing.B) {
	m1 := RotationAxis3(V3(1, 1, 0), 0.3)
	m2 := RotationAxis3(V3(0, 1, 1), 0.7)

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat3Inverse(b *testing.B) {
	m := RotationAxis3(V3(0, 1, 0), 0.5).ScaleColumns(V3(2, 3, 4))

	for b.Loop() {
		_, _ = m.Inverse()
	}
}

func BenchmarkPlaneDistance(b *testing.B) {
	p := NewPlane(V3(1, 2, 3), V3(0, 0, 1))
	pt := V3(4, 5, 6)

	for b.Loop() {
		_ = p.DistanceToPoint(pt)
	}
}

func BenchmarkViewProjection(b *testing.B) {
	eye := V3(0, 0, 10)
	target := V3(0, 0, 0)
	up := V3(0, 1, 0)
	view := LookAt(eye, target, up)
	proj := Perspective(60.0, 1.333, 0.1, 100.0)

	for b.Loop() {
		_ = proj.Mul(view)
	}
}
