// Package scene implements the scene graph: hierarchical transforms,
// bounding-sphere maintenance and frustum culling into a visible set.
//
// A frame is driven in two calls. Update on the root (or on any dirty
// subtree) recomputes world transforms top-down and world bounds bottom-up,
// then refreshes the bounds of every ancestor. Culler.ComputeVisibleSet then
// walks the tree against the camera frustum and collects the surviving
// Visual leaves in traversal order.
package scene

import (
	"iter"

	"github.com/google/uuid"
	"github.com/taigrr/canopy/pkg/math3d"
)

// CullMode controls how the culler treats a Spatial and its subtree.
type CullMode int

const (
	// CullDynamic tests the world bound against the active planes.
	CullDynamic CullMode = iota
	// CullAlways excludes the subtree unconditionally.
	CullAlways
	// CullNever includes the subtree without any plane test.
	CullNever
)

// String returns the lower-case name used in scene files.
func (m CullMode) String() string {
	switch m {
	case CullDynamic:
		return "dynamic"
	case CullAlways:
		return "always"
	case CullNever:
		return "never"
	}
	return "unknown"
}

// Spatial is a node of the scene graph. The set of implementations is closed:
// *Node, *SwitchNode and *Visual.
type Spatial interface {
	ID() uuid.UUID
	Name() string
	Parent() *Node

	Local() *Transform
	World() *Transform
	WorldBound() BoundingSphere

	CullMode() CullMode
	SetCullMode(CullMode)

	// Update recomputes world data for the subtree rooted here. When
	// initiator is true the bounds of every ancestor are refreshed as well.
	Update(appTime float64, initiator bool)

	base() *spatial
	updateWorldData(appTime float64)
	updateWorldBound()
	getVisibleSet(c *Culler, noCull bool)
}

// spatial holds the state shared by every Spatial.
//
// parent is an observer link: the parent Node owns its children, never the
// other way around.
type spatial struct {
	id   uuid.UUID
	name string

	local      Transform
	world      Transform
	worldBound BoundingSphere

	worldIsCurrent      bool
	worldBoundIsCurrent bool

	cull        CullMode
	parent      *Node
	controllers []Controller
}

func newSpatial(name string) spatial {
	return spatial{
		id:    uuid.New(),
		name:  name,
		local: NewTransform(),
		world: NewTransform(),
	}
}

func (s *spatial) base() *spatial { return s }

// ID returns the unique identifier assigned at construction.
func (s *spatial) ID() uuid.UUID { return s.id }

// Name returns the node name.
func (s *spatial) Name() string { return s.name }

// Parent returns the owning node, or nil for a root.
func (s *spatial) Parent() *Node { return s.parent }

// Local returns the transform relative to the parent. Mutations take effect
// on the next Update.
func (s *spatial) Local() *Transform { return &s.local }

// World returns the transform relative to the scene root as of the last
// Update.
func (s *spatial) World() *Transform { return &s.world }

// WorldBound returns the world bounding sphere as of the last Update.
func (s *spatial) WorldBound() BoundingSphere { return s.worldBound }

// CullMode returns the culling mode.
func (s *spatial) CullMode() CullMode { return s.cull }

// SetCullMode sets the culling mode.
func (s *spatial) SetCullMode(m CullMode) { s.cull = m }

// SetWorldTransform overrides the world transform. Update leaves it alone
// until ReleaseWorld is called.
func (s *spatial) SetWorldTransform(t Transform) {
	s.world = t
	s.worldIsCurrent = true
}

// SetWorldBound overrides the world bound. Update leaves it alone until
// ReleaseWorld is called.
func (s *spatial) SetWorldBound(b BoundingSphere) {
	s.worldBound = b
	s.worldBoundIsCurrent = true
}

// ReleaseWorld hands world transform and bound back to Update.
func (s *spatial) ReleaseWorld() {
	s.worldIsCurrent = false
	s.worldBoundIsCurrent = false
}

// AttachController appends c to the controllers run at the start of every
// Update.
func (s *spatial) AttachController(c Controller) {
	if c == nil {
		return
	}
	s.controllers = append(s.controllers, c)
}

// DetachController removes c. It reports whether c was attached.
func (s *spatial) DetachController(c Controller) bool {
	for i, existing := range s.controllers {
		if existing == c {
			s.controllers = append(s.controllers[:i], s.controllers[i+1:]...)
			return true
		}
	}
	return false
}

// Controllers iterates over the attached controllers in update order.
func (s *spatial) Controllers() iter.Seq[Controller] {
	return func(yield func(Controller) bool) {
		for _, c := range s.controllers {
			if !yield(c) {
				return
			}
		}
	}
}

func (s *spatial) updateControllers(appTime float64) bool {
	changed := false
	for _, c := range s.controllers {
		if c.Update(appTime, s) {
			changed = true
		}
	}
	return changed
}

// updateWorldData is the top-down step shared by every kind of node.
func (s *spatial) updateWorldData(appTime float64) {
	s.updateControllers(appTime)

	if s.worldIsCurrent {
		return
	}
	if s.parent != nil {
		s.world = Product(s.parent.World(), &s.local)
	} else {
		s.world = s.local
	}
}

func (s *spatial) propagateBoundToRoot() {
	for p := s.parent; p != nil; p = p.parent {
		p.updateWorldBound()
	}
}

// update is the two-pass algorithm behind every Update method.
func update(s Spatial, appTime float64, initiator bool) {
	s.updateWorldData(appTime)
	s.updateWorldBound()
	if initiator {
		s.base().propagateBoundToRoot()
	}
}

// onGetVisibleSet applies the cull mode and plane test for s, recursing via
// getVisibleSet when it survives. The culler's plane state is restored
// before returning so siblings see the planes their parent saw.
func onGetVisibleSet(s Spatial, c *Culler, noCull bool) {
	switch s.CullMode() {
	case CullAlways:
		return
	case CullNever:
		noCull = true
	}

	saved := c.PlaneState()
	if noCull || c.IsVisible(s.WorldBound()) {
		s.getVisibleSet(c, noCull)
	} else {
		c.stats.Culled++
	}
	c.SetPlaneState(saved)
}

// WorldPosition returns the world-space origin of s.
func WorldPosition(s Spatial) math3d.Vec3 {
	return s.World().Translation()
}

// Root walks parent links up to the root of the tree containing s.
func Root(s Spatial) Spatial {
	var root Spatial = s
	for p := s.Parent(); p != nil; p = p.Parent() {
		root = p
	}
	return root
}
