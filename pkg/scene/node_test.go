package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taigrr/canopy/pkg/math3d"
	"github.com/taigrr/canopy/pkg/models"
)

const halfPi = math.Pi / 2

func unitVisual(name string) *Visual {
	return NewVisual(name, NewBoundingSphere(math3d.Zero3(), 1))
}

func TestAttachChild(t *testing.T) {
	root := NewNode("root")
	a, b, c := unitVisual("a"), unitVisual("b"), unitVisual("c")

	i, err := root.AttachChild(a)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = root.AttachChild(b)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Same(t, root, a.Parent())

	// Detach leaves a hole that the next attach fills.
	assert.Equal(t, 0, root.DetachChild(a))
	assert.Nil(t, a.Parent())
	assert.Nil(t, root.Child(0))
	assert.Equal(t, 2, root.NumChildren())

	i, err = root.AttachChild(c)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	assert.Equal(t, -1, root.DetachChild(a))
}

func TestAttachChildErrors(t *testing.T) {
	root := NewNode("root")
	other := NewNode("other")
	leaf := unitVisual("leaf")
	other.MustAttach(leaf)

	_, err := root.AttachChild(nil)
	assert.ErrorIs(t, err, ErrNilChild)

	var typedNil *Visual
	_, err = root.AttachChild(typedNil)
	assert.ErrorIs(t, err, ErrNilChild)

	_, err = root.AttachChild(leaf)
	assert.ErrorIs(t, err, ErrHasParent)

	_, err = root.AttachChild(root)
	assert.ErrorIs(t, err, ErrIsAncestor)

	mid := NewNode("mid")
	root.MustAttach(mid)
	_, err = mid.AttachChild(root)
	assert.ErrorIs(t, err, ErrIsAncestor)

	assert.Panics(t, func() { root.MustAttach(leaf) })
}

func TestSetChild(t *testing.T) {
	root := NewNode("root")
	a, b := unitVisual("a"), unitVisual("b")

	prev, err := root.SetChild(3, a)
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.Equal(t, 4, root.NumChildren())

	prev, err = root.SetChild(3, b)
	require.NoError(t, err)
	assert.Same(t, a, prev)
	assert.Nil(t, a.Parent())
	assert.Same(t, root, b.Parent())

	_, err = root.SetChild(-1, a)
	assert.Error(t, err)

	var names []string
	for _, c := range root.Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"b"}, names)
}

func TestUpdateComposesWorldTransforms(t *testing.T) {
	root := NewNode("root")
	root.Local().SetTranslation(math3d.V3(1, 0, 0))
	root.Local().SetUniformScale(2)

	arm := NewNode("arm")
	arm.Local().SetRotation(math3d.RotationAxis3(math3d.V3(0, 0, 1), halfPi))
	arm.Local().SetTranslation(math3d.V3(0, 2, 0))

	hand := unitVisual("hand")
	hand.Local().SetTranslation(math3d.V3(1, 0, 0))

	root.MustAttach(arm.MustAttach(hand))
	root.Update(0, true)

	assert.True(t, WorldPosition(arm).ApproxEqual(math3d.V3(1, 4, 0), eps), "arm at %v", WorldPosition(arm))
	// The arm's rotation turns +x into +y, then the root scale doubles it.
	assert.True(t, WorldPosition(hand).ApproxEqual(math3d.V3(1, 6, 0), eps), "hand at %v", WorldPosition(hand))

	// World = parent world * local at every level.
	want := Product(arm.World(), hand.Local())
	assert.True(t, hand.World().ApproxEqual(&want, eps))

	bound := hand.WorldBound()
	assert.InDelta(t, 2.0, bound.Radius, eps)
}

func TestUpdateBoundsContainChildren(t *testing.T) {
	root := NewNode("root")
	left := NewNode("left")
	left.Local().SetTranslation(math3d.V3(-5, 0, 0))
	right := NewNode("right")
	right.Local().SetTranslation(math3d.V3(5, 0, 0))
	right.Local().SetUniformScale(3)

	a, b, c := unitVisual("a"), unitVisual("b"), unitVisual("c")
	b.Local().SetTranslation(math3d.V3(0, 4, 0))
	root.MustAttach(left.MustAttach(a, b), right.MustAttach(c))
	root.Update(0, true)

	var check func(n *Node)
	check = func(n *Node) {
		for _, child := range n.Children() {
			assert.True(t, n.WorldBound().ContainsSphere(child.WorldBound(), 1e-9),
				"%s bound %v does not contain %s bound %v", n.Name(), n.WorldBound(), child.Name(), child.WorldBound())
			if cn, ok := child.(*Node); ok {
				check(cn)
			}
		}
	}
	check(root)
}

func TestUpdateIsIdempotent(t *testing.T) {
	root := NewNode("root")
	child := unitVisual("child")
	child.Local().SetTranslation(math3d.V3(2, 3, 4))
	root.Local().SetRotation(math3d.RotationAxis3(math3d.V3(1, 1, 1), 0.3))
	root.MustAttach(child)

	root.Update(0, true)
	world := *child.World()
	bound := root.WorldBound()

	root.Update(0, true)
	assert.True(t, child.World().ApproxEqual(&world, 0))
	assert.Equal(t, bound, root.WorldBound())
}

func TestInitiatorPropagatesBoundToRoot(t *testing.T) {
	root := NewNode("root")
	mid := NewNode("mid")
	leaf := unitVisual("leaf")
	root.MustAttach(mid.MustAttach(leaf))
	root.Update(0, true)

	leaf.Local().SetTranslation(math3d.V3(50, 0, 0))

	leaf.Update(0, false)
	assert.False(t, root.WorldBound().ContainsSphere(leaf.WorldBound(), 1e-9))

	leaf.Update(0, true)
	assert.True(t, mid.WorldBound().ContainsSphere(leaf.WorldBound(), 1e-9))
	assert.True(t, root.WorldBound().ContainsSphere(leaf.WorldBound(), 1e-9))
}

func TestWorldOverride(t *testing.T) {
	root := NewNode("root")
	leaf := unitVisual("leaf")
	root.MustAttach(leaf)

	fixed := NewTransform()
	fixed.SetTranslation(math3d.V3(0, 0, -7))
	leaf.SetWorldTransform(fixed)
	root.Local().SetTranslation(math3d.V3(100, 0, 0))
	root.Update(0, true)
	assert.True(t, WorldPosition(leaf).ApproxEqual(math3d.V3(0, 0, -7), eps))

	leaf.ReleaseWorld()
	root.Update(0, true)
	assert.True(t, WorldPosition(leaf).ApproxEqual(math3d.V3(100, 0, 0), eps))
}

func TestEmptyNodeHasEmptyBound(t *testing.T) {
	root := NewNode("root")
	root.MustAttach(NewNode("empty"))
	root.Update(0, true)
	assert.True(t, root.WorldBound().IsEmpty())
}

func TestRoot(t *testing.T) {
	root := NewNode("root")
	mid := NewNode("mid")
	leaf := unitVisual("leaf")
	root.MustAttach(mid.MustAttach(leaf))

	assert.Same(t, root, Root(leaf))
	assert.Same(t, root, Root(root))
}

func TestVisualFromMesh(t *testing.T) {
	mesh := models.NewMesh("quad")
	mesh.Vertices = []models.MeshVertex{
		{Position: math3d.V3(-1, -1, 0)},
		{Position: math3d.V3(1, -1, 0)},
		{Position: math3d.V3(1, 1, 0)},
		{Position: math3d.V3(-1, 1, 0)},
	}

	v := NewVisualFromMesh("quad", mesh)
	assert.True(t, v.ModelBound().Center.ApproxEqual(math3d.Zero3(), eps))
	assert.InDelta(t, 1.4142135623730951, v.ModelBound().Radius, eps)

	v.Local().SetTranslation(math3d.V3(0, 0, 5))
	v.Update(0, true)
	pts := v.WorldPoints()
	require.Len(t, pts, 4)
	assert.True(t, pts[0].ApproxEqual(math3d.V3(-1, -1, 5), eps))
	// The mesh itself is untouched.
	assert.Equal(t, math3d.V3(-1, -1, 0), mesh.Vertices[0].Position)

	assert.True(t, NewVisualFromMesh("none", nil).ModelBound().IsEmpty())
}

func TestSwitchNodeActiveChild(t *testing.T) {
	sw := NewSwitchNode("lod")
	sw.MustAttach(unitVisual("high"), unitVisual("low"))
	assert.Equal(t, SwitchInvalidChild, sw.ActiveChild())

	sw.SetActiveChild(1)
	assert.Equal(t, 1, sw.ActiveChild())
	sw.SetActiveChild(5)
	assert.Equal(t, SwitchInvalidChild, sw.ActiveChild())
}
