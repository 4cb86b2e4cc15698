package scene

import (
	"github.com/taigrr/canopy/pkg/math3d"
	"github.com/taigrr/canopy/pkg/models"
)

// Visual is a drawable leaf. Its world bound is its model-space bound mapped
// through the world transform. Mesh is optional; the culler only needs the
// bound.
type Visual struct {
	spatial
	modelBound BoundingSphere
	Mesh       *models.Mesh
}

// NewVisual creates a leaf with the given model-space bound.
func NewVisual(name string, modelBound BoundingSphere) *Visual {
	return &Visual{spatial: newSpatial(name), modelBound: modelBound}
}

// NewVisualFromMesh creates a leaf for mesh, bounding its vertex positions.
// A nil or empty mesh gives the empty bound.
func NewVisualFromMesh(name string, mesh *models.Mesh) *Visual {
	v := &Visual{spatial: newSpatial(name), Mesh: mesh}
	v.UpdateModelBound()
	return v
}

// Update recomputes world transform and bound. See Spatial.
func (v *Visual) Update(appTime float64, initiator bool) {
	update(v, appTime, initiator)
}

// ModelBound returns the model-space bound.
func (v *Visual) ModelBound() BoundingSphere {
	return v.modelBound
}

// SetModelBound replaces the model-space bound. It takes effect on the next
// Update.
func (v *Visual) SetModelBound(b BoundingSphere) {
	v.modelBound = b
}

// UpdateModelBound recomputes the model bound from the mesh vertices.
func (v *Visual) UpdateModelBound() {
	if v.Mesh == nil {
		v.modelBound = BoundingSphere{}
		return
	}
	v.modelBound = ComputeFromPoints(v.Mesh.Positions())
}

// WorldPoints returns the mesh vertex positions in world space.
func (v *Visual) WorldPoints() []math3d.Vec3 {
	if v.Mesh == nil {
		return nil
	}
	pts := v.Mesh.Positions()
	for i := range pts {
		pts[i] = v.world.ApplyForward(pts[i])
	}
	return pts
}

func (v *Visual) updateWorldBound() {
	if v.worldBoundIsCurrent {
		return
	}
	v.worldBound = v.modelBound.TransformBy(&v.world)
}

func (v *Visual) getVisibleSet(c *Culler, _ bool) {
	c.Insert(v)
}
