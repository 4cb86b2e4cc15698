// Package models holds the triangle meshes attached to scene-graph leaves and
// reads them from glTF documents.
package models

import (
	"github.com/taigrr/canopy/pkg/math3d"
)

// Mesh is an indexed triangle mesh in model space.
type Mesh struct {
	Name     string
	Vertices []MeshVertex
	Faces    []Face

	// Axis-aligned bounds, refreshed by CalculateBounds.
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds the vertex attributes canopy reads.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
}

// Face is a triangle of indices into Mesh.Vertices.
type Face struct {
	V [3]int
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// Positions returns a fresh copy of the vertex positions.
func (m *Mesh) Positions() []math3d.Vec3 {
	pts := make([]math3d.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		pts[i] = v.Position
	}
	return pts
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		m.BoundsMin, m.BoundsMax = math3d.Zero3(), math3d.Zero3()
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Validate reports the first face that indexes past the vertex list.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f.V {
			if idx < 0 || idx >= n {
				return &FaceIndexError{Mesh: m.Name, Face: i, Index: idx, Vertices: n}
			}
		}
	}
	return nil
}

// Append adds the vertices and faces of other, offsetting its indices.
func (m *Mesh) Append(other *Mesh) {
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, f := range other.Faces {
		m.Faces = append(m.Faces, Face{V: [3]int{f.V[0] + base, f.V[1] + base, f.V[2] + base}})
	}
}

// CalculateSmoothNormals computes area-weighted vertex normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position
		normal := v1.Sub(v0).Cross(v2.Sub(v0)) // Don't normalize yet

		for _, idx := range f.V {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(normal)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}
