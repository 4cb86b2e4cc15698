package math3d

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestMat3Inverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat3
	}{
		{"identity", Identity3()},
		{"rotation", RotationAxis3(V3(1, 2, 3), 0.8)},
		{"rotation scale", RotationAxis3(V3(0, 1, 0), 1.1).ScaleColumns(V3(2, 0.5, 3))},
		{"shear", Mat3{1, 0, 0, 2, 1, 0, 0, 3, 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv, ok := tc.m.Inverse()
			require.True(t, ok)
			assert.True(t, tc.m.Mul(inv).ApproxEqual(Identity3(), eps), "m * inv = %v", tc.m.Mul(inv))
			assert.True(t, inv.Mul(tc.m).ApproxEqual(Identity3(), eps), "inv * m = %v", inv.Mul(tc.m))
		})
	}
}

func TestMat3InverseSingular(t *testing.T) {
	_, ok := Diagonal3(V3(1, 0, 1)).Inverse()
	assert.False(t, ok)
}

func TestMat3RotationIsOrthonormal(t *testing.T) {
	r := RotationAxis3(V3(3, -1, 2), 2.3)
	assert.True(t, r.Mul(r.Transpose()).ApproxEqual(Identity3(), eps))
	assert.InDelta(t, 1.0, r.Determinant(), eps)
}

func TestMat3MatchesMat4(t *testing.T) {
	r := RotationAxis3(V3(0, 0, 1), math.Pi/2)
	v := V3(1, 0, 0)

	got := r.MulVec3(v)
	assert.True(t, got.ApproxEqual(V3(0, 1, 0), eps), "got %v", got)
	assert.True(t, RotateZ(math.Pi/2).MulVec3Dir(v).ApproxEqual(got, eps))
}

func TestMat3ScaleRowsColumns(t *testing.T) {
	m := Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	s := V3(2, 3, 4)

	assert.Equal(t, m.Mul(Diagonal3(s)), m.ScaleColumns(s))
	assert.Equal(t, Diagonal3(s).Mul(m), m.ScaleRows(s))
}

func TestMat3Homogeneous(t *testing.T) {
	r := RotationAxis3(V3(0, 1, 0), 0.4)
	tr := V3(1, 2, 3)
	h := r.Homogeneous(tr)

	p := V3(-2, 5, 1)
	assert.True(t, h.MulVec3(p).ApproxEqual(r.MulVec3(p).Add(tr), eps))
	assert.Equal(t, r, h.Upper3())
	assert.Equal(t, tr, h.Translation())
}

func TestMat4Row(t *testing.T) {
	m := Translate(V3(4, 5, 6))
	assert.Equal(t, V4(1, 0, 0, 4), m.Row(0))
	assert.Equal(t, V4(0, 0, 0, 1), m.Row(3))
	assert.Equal(t, m.Transpose().Row(0), V4(m[0], m[1], m[2], m[3]))
}

func TestMat4Compose(t *testing.T) {
	// Translate after rotating: the point rotates around the origin first.
	m := Translate(V3(10, 0, 0)).Mul(RotateY(math.Pi / 2))
	got := m.MulVec3(V3(0, 0, -1))
	assert.True(t, got.ApproxEqual(V3(9, 0, 0), eps), "got %v", got)
}

func TestPlane(t *testing.T) {
	p := NewPlane(V3(0, 0, 2), V3(0, 0, 5))
	assert.InDelta(t, 1.0, p.Normal.Len(), eps)
	assert.InDelta(t, -5.0, p.D, eps)

	assert.Equal(t, 1, p.WhichSide(V3(0, 0, 6)))
	assert.Equal(t, -1, p.WhichSide(V3(3, 3, 4)))
	assert.Equal(t, 0, p.WhichSide(V3(7, -2, 5)))
	assert.InDelta(t, -p.DistanceToPoint(V3(1, 1, 1)), p.Flip().DistanceToPoint(V3(1, 1, 1)), eps)
}

func TestPlaneNormalize(t *testing.T) {
	plane := Plane{Normal: V3(0, 3, 4), D: 10}
	plane.Normalize()

	assert.InDelta(t, 1.0, plane.Normal.Len(), eps)
	assert.InDelta(t, 0.6, plane.Normal.Y, eps)
	assert.InDelta(t, 0.8, plane.Normal.Z, eps)
	assert.InDelta(t, 2.0, plane.D, eps)
}
