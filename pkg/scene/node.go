package scene

import (
	"iter"

	"github.com/pkg/errors"
)

// Errors returned when editing the child list of a Node.
var (
	ErrNilChild   = errors.New("scene: child is nil")
	ErrHasParent  = errors.New("scene: child already has a parent")
	ErrIsAncestor = errors.New("scene: child is an ancestor of the node")
)

// Node is an interior scene-graph node. It owns its children; child slots
// may be empty after a detach and are reused by the next attach.
type Node struct {
	spatial
	children []Spatial
}

// NewNode creates an empty node with an identity local transform.
func NewNode(name string) *Node {
	return &Node{spatial: newSpatial(name)}
}

// Update recomputes world transforms and bounds of the subtree. See Spatial.
func (n *Node) Update(appTime float64, initiator bool) {
	update(n, appTime, initiator)
}

// NumChildren returns the number of child slots, including empty ones.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// Child returns the child in slot i, or nil for an empty or out of range slot.
func (n *Node) Child(i int) Spatial {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Children iterates over the occupied child slots in order.
func (n *Node) Children() iter.Seq2[int, Spatial] {
	return func(yield func(int, Spatial) bool) {
		for i, c := range n.children {
			if c == nil {
				continue
			}
			if !yield(i, c) {
				return
			}
		}
	}
}

// AttachChild places child in the first empty slot, appending when there is
// none, and returns the slot index. The child must not already have a
// parent.
func (n *Node) AttachChild(child Spatial) (int, error) {
	if err := n.checkAttach(child); err != nil {
		return -1, err
	}

	child.base().parent = n
	for i, c := range n.children {
		if c == nil {
			n.children[i] = child
			return i, nil
		}
	}
	n.children = append(n.children, child)
	return len(n.children) - 1, nil
}

// MustAttach is AttachChild for trees built in code, where a failure is a
// programming error. It returns n so calls can be chained.
func (n *Node) MustAttach(children ...Spatial) *Node {
	for _, c := range children {
		if _, err := n.AttachChild(c); err != nil {
			panic(errors.Wrapf(err, "attach %q to %q", nameOf(c), n.name))
		}
	}
	return n
}

// DetachChild removes child and returns the slot it occupied, or -1 when it
// is not a child of n.
func (n *Node) DetachChild(child Spatial) int {
	if child == nil {
		return -1
	}
	for i, c := range n.children {
		if c == child {
			n.children[i] = nil
			child.base().parent = nil
			return i
		}
	}
	return -1
}

// DetachChildAt empties slot i and returns its previous occupant.
func (n *Node) DetachChildAt(i int) Spatial {
	c := n.Child(i)
	if c == nil {
		return nil
	}
	n.children[i] = nil
	c.base().parent = nil
	return c
}

// SetChild stores child in slot i, growing the slot list when needed, and
// returns the detached previous occupant. A nil child just empties the slot.
func (n *Node) SetChild(i int, child Spatial) (Spatial, error) {
	if i < 0 {
		return nil, errors.Errorf("scene: negative child slot %d", i)
	}
	if child != nil {
		if err := n.checkAttach(child); err != nil {
			return nil, err
		}
	}

	for len(n.children) <= i {
		n.children = append(n.children, nil)
	}
	prev := n.DetachChildAt(i)
	if child != nil {
		child.base().parent = n
		n.children[i] = child
	}
	return prev, nil
}

func (n *Node) checkAttach(child Spatial) error {
	if isNil(child) {
		return ErrNilChild
	}
	if child.Parent() != nil {
		return ErrHasParent
	}
	for p := n; p != nil; p = p.parent {
		if p.base() == child.base() {
			return ErrIsAncestor
		}
	}
	return nil
}

// updateWorldData runs the shared top-down step, then updates every child
// as a non-initiator.
func (n *Node) updateWorldData(appTime float64) {
	n.spatial.updateWorldData(appTime)
	for _, c := range n.children {
		if c != nil {
			c.Update(appTime, false)
		}
	}
}

// updateWorldBound merges the world bounds of the children. A node without
// bounded children ends up with the empty sphere.
func (n *Node) updateWorldBound() {
	if n.worldBoundIsCurrent {
		return
	}
	var b BoundingSphere
	for _, c := range n.children {
		if c != nil {
			b.GrowToContain(c.WorldBound())
		}
	}
	n.worldBound = b
}

func (n *Node) getVisibleSet(c *Culler, noCull bool) {
	for _, child := range n.children {
		if child != nil {
			onGetVisibleSet(child, c, noCull)
		}
	}
}

func nameOf(s Spatial) string {
	if isNil(s) {
		return "<nil>"
	}
	return s.Name()
}

// isNil catches typed nil pointers stored in the interface.
func isNil(s Spatial) bool {
	if s == nil {
		return true
	}
	switch v := s.(type) {
	case *Node:
		return v == nil
	case *SwitchNode:
		return v == nil
	case *Visual:
		return v == nil
	}
	return false
}
