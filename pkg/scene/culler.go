package scene

import (
	"log/slog"

	"github.com/taigrr/canopy/pkg/math3d"
)

// MaxPlaneQuantity bounds the culler's plane stack: the six frustum planes
// plus user planes. One bit of the plane state per plane.
const MaxPlaneQuantity = 32

const allPlanesActive = ^uint32(0)

// CullingStats counts the work done by the last ComputeVisibleSet.
type CullingStats struct {
	Tested     int // Bounds tested against the active planes
	Culled     int // Subtrees rejected by the plane test
	Inserted   int // Entries inserted into the visible set
	PlaneTests int // Individual sphere/plane classifications
}

// Culler computes the visible set of a scene graph. It keeps a stack of
// culling planes, the first ViewFrustumQuantity of which are the camera
// frustum, and a bit mask of the planes still active for the subtree being
// visited. A Culler is reused from frame to frame and is not safe for
// concurrent use.
type Culler struct {
	planes        [MaxPlaneQuantity]math3d.Plane
	planeQuantity int
	planeState    uint32

	visible VisibleSet
	stats   CullingStats
	logger  *slog.Logger
}

// CullerOption configures a Culler.
type CullerOption func(*Culler)

// WithLogger sets the logger used to report misuse. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) CullerOption {
	return func(c *Culler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCuller creates a culler with an all-active plane state and the six
// frustum slots reserved.
func NewCuller(opts ...CullerOption) *Culler {
	c := &Culler{
		planeQuantity: ViewFrustumQuantity,
		planeState:    allPlanesActive,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PushViewFrustumPlanes replaces the bottom six planes with the frustum of
// cam and reactivates every plane. User planes above them are kept.
func (c *Culler) PushViewFrustumPlanes(cam Camera) {
	frustum := ExtractFrustumPlanes(cam.ViewProjectionMatrix())
	copy(c.planes[:ViewFrustumQuantity], frustum[:])
	c.planeQuantity = max(c.planeQuantity, ViewFrustumQuantity)
	c.planeState = allPlanesActive
}

// PushPlane adds a user culling plane whose positive side is kept. It
// returns false when the stack is full.
func (c *Culler) PushPlane(p math3d.Plane) bool {
	if c.planeQuantity >= MaxPlaneQuantity {
		return false
	}
	c.planes[c.planeQuantity] = p
	c.planeState |= 1 << uint(c.planeQuantity)
	c.planeQuantity++
	return true
}

// PopPlane removes the most recently pushed user plane. The frustum planes
// cannot be popped; PopPlane returns false when only they are left.
func (c *Culler) PopPlane() bool {
	if c.planeQuantity <= ViewFrustumQuantity {
		return false
	}
	c.planeQuantity--
	return true
}

// PlaneQuantity returns the number of planes on the stack.
func (c *Culler) PlaneQuantity() int {
	return c.planeQuantity
}

// Planes returns the planes on the stack, frustum first.
func (c *Culler) Planes() []math3d.Plane {
	return c.planes[:c.planeQuantity]
}

// PlaneState returns the active-plane bit mask; bit i set means plane i
// still has to be tested.
func (c *Culler) PlaneState() uint32 {
	return c.planeState
}

// SetPlaneState restores a mask obtained from PlaneState.
func (c *Culler) SetPlaneState(state uint32) {
	c.planeState = state
}

// VisibleSet returns the output of the last ComputeVisibleSet.
func (c *Culler) VisibleSet() *VisibleSet {
	return &c.visible
}

// Stats returns the counters of the last ComputeVisibleSet.
func (c *Culler) Stats() CullingStats {
	return c.stats
}

// Insert appends s to the visible set. Leaves call it during traversal.
func (c *Culler) Insert(s Spatial) {
	c.visible.Insert(s)
	c.stats.Inserted++
}

// IsVisible tests sphere against the active planes, most recently pushed
// first. A plane the sphere lies entirely inside is deactivated for the rest
// of the current subtree, since every descendant bound lies inside this one.
// The empty sphere is never visible.
func (c *Culler) IsVisible(sphere BoundingSphere) bool {
	c.stats.Tested++
	if sphere.IsEmpty() {
		return false
	}

	index := c.planeQuantity - 1
	mask := uint32(1) << uint(index)
	for ; index >= 0; index, mask = index-1, mask>>1 {
		if c.planeState&mask == 0 {
			continue
		}
		c.stats.PlaneTests++
		switch sphere.WhichSide(c.planes[index]) {
		case -1:
			return false
		case 1:
			c.planeState &^= mask
		}
	}
	return true
}

// IsVisiblePolygon reports whether the convex polygon given by points can be
// seen: it is rejected only when all points lie on the negative side of one
// active plane. The near plane is skipped when ignoreNearPlane is set, which
// portal traversal uses for portals the camera stands in. The plane state is
// not modified.
func (c *Culler) IsVisiblePolygon(points []math3d.Vec3, ignoreNearPlane bool) bool {
	if len(points) == 0 {
		return false
	}

	index := c.planeQuantity - 1
	mask := uint32(1) << uint(index)
	for ; index >= 0; index, mask = index-1, mask>>1 {
		if ignoreNearPlane && index == PlaneDMin {
			continue
		}
		if c.planeState&mask == 0 {
			continue
		}
		if WhichSide(c.planes[index], points) < 0 {
			return false
		}
	}
	return true
}

// WhichSide classifies a point set against p: +1 when no point is on the
// negative side, -1 when no point is on the positive side, 0 otherwise. A
// set lying entirely on the plane counts as positive.
func WhichSide(p math3d.Plane, points []math3d.Vec3) int {
	var positive, negative int
	for _, pt := range points {
		switch p.WhichSide(pt) {
		case 1:
			positive++
		case -1:
			negative++
		}
		if positive > 0 && negative > 0 {
			return 0
		}
	}
	if negative > 0 {
		return -1
	}
	return 1
}

// ComputeVisibleSet culls the tree rooted at root against the frustum of cam
// and any user planes, replacing the visible set. With a nil root or camera
// it logs an error and leaves the previous visible set in place.
func (c *Culler) ComputeVisibleSet(cam Camera, root Spatial) {
	if isNil(root) {
		c.logger.Error("compute visible set: nil root", "visible", c.visible.Len())
		return
	}
	if cam == nil {
		c.logger.Error("compute visible set: nil camera", "root", root.Name())
		return
	}

	c.PushViewFrustumPlanes(cam)
	c.visible.Clear()
	c.stats = CullingStats{}

	onGetVisibleSet(root, c, false)

	c.logger.Debug("visible set computed",
		"root", root.Name(),
		"planes", c.planeQuantity,
		"tested", c.stats.Tested,
		"culled", c.stats.Culled,
		"visible", c.visible.Len(),
	)
}
