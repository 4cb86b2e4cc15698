package models

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/taigrr/canopy/pkg/math3d"
)

// ErrExternalBuffer is returned for buffers that reference a separate file by
// URI. Only embedded (GLB or already resolved) buffer data is read.
var ErrExternalBuffer = errors.New("models: external buffers are not supported")

// FaceIndexError reports a face referencing a missing vertex.
type FaceIndexError struct {
	Mesh     string
	Face     int
	Index    int
	Vertices int
}

func (e *FaceIndexError) Error() string {
	return fmt.Sprintf("models: mesh %q face %d index %d out of range (%d vertices)", e.Mesh, e.Face, e.Index, e.Vertices)
}

// LoadMeshes converts every mesh of doc, keeping glTF mesh indices, so
// node.Mesh can index the result directly. Non-triangle primitives are
// skipped.
func LoadMeshes(doc *gltf.Document) ([]*Mesh, error) {
	meshes := make([]*Mesh, len(doc.Meshes))
	for i, m := range doc.Meshes {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", i)
		}
		mesh := NewMesh(name)
		if err := readMesh(doc, m, mesh); err != nil {
			return nil, errors.Wrapf(err, "mesh %q", name)
		}
		if err := mesh.Validate(); err != nil {
			return nil, err
		}
		mesh.CalculateBounds()
		meshes[i] = mesh
	}
	return meshes, nil
}

// LoadGLB opens a .glb or .gltf file and merges all of its meshes into one,
// ignoring the node hierarchy.
func LoadGLB(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open gltf")
	}
	meshes, err := LoadMeshes(doc)
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}

	merged := NewMesh(filepath.Base(path))
	for _, m := range meshes {
		merged.Append(m)
	}
	merged.CalculateBounds()
	return merged, nil
}

func readMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return errors.Wrap(err, "read positions")
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return errors.Wrap(err, "read normals")
			}
		}

		base := len(mesh.Vertices)
		for i, p := range positions {
			v := MeshVertex{Position: p}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []int
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return errors.Wrap(err, "read indices")
			}
		} else {
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}
		for i := 0; i+2 < len(indices); i += 3 {
			mesh.Faces = append(mesh.Faces, Face{
				V: [3]int{base + indices[i], base + indices[i+1], base + indices[i+2]},
			})
		}
	}
	return nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, errors.Errorf("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

func readVec3Accessor(doc *gltf.Document, idx int) ([]math3d.Vec3, error) {
	acc, err := accessor(doc, idx)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorVec3 || acc.ComponentType != gltf.ComponentFloat {
		return nil, errors.Errorf("expected float VEC3, got %v/%v", acc.Type, acc.ComponentType)
	}

	data, stride, err := accessorBytes(doc, acc, 12)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, acc.Count)
	for i := range acc.Count {
		off := i * stride
		result[i] = math3d.V3(
			float64(readFloat32(data[off:])),
			float64(readFloat32(data[off+4:])),
			float64(readFloat32(data[off+8:])),
		)
	}
	return result, nil
}

func readIndices(doc *gltf.Document, idx int) ([]int, error) {
	acc, err := accessor(doc, idx)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorScalar {
		return nil, errors.Errorf("expected SCALAR indices, got %v", acc.Type)
	}

	var size int
	switch acc.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, errors.Errorf("unsupported index component type %v", acc.ComponentType)
	}

	data, stride, err := accessorBytes(doc, acc, size)
	if err != nil {
		return nil, err
	}

	result := make([]int, acc.Count)
	for i := range acc.Count {
		off := i * stride
		switch size {
		case 1:
			result[i] = int(data[off])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(data[off:]))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(data[off:]))
		}
	}
	return result, nil
}

// accessorBytes returns the buffer bytes starting at the accessor's first
// element and the element stride, checking that count elements fit.
func accessorBytes(doc *gltf.Document, acc *gltf.Accessor, elemSize int) ([]byte, int, error) {
	if acc.BufferView == nil {
		return nil, 0, errors.New("accessor has no buffer view")
	}
	if *acc.BufferView >= len(doc.BufferViews) {
		return nil, 0, errors.Errorf("buffer view %d out of range", *acc.BufferView)
	}
	view := doc.BufferViews[*acc.BufferView]
	if view.Buffer >= len(doc.Buffers) {
		return nil, 0, errors.Errorf("buffer %d out of range", view.Buffer)
	}
	buf := doc.Buffers[view.Buffer]
	if buf.URI != "" && len(buf.Data) == 0 {
		return nil, 0, errors.Wrap(ErrExternalBuffer, buf.URI)
	}
	if len(buf.Data) == 0 {
		return nil, 0, errors.New("buffer has no data")
	}

	stride := view.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	start := view.ByteOffset + acc.ByteOffset
	if acc.Count == 0 {
		return nil, stride, nil
	}
	end := start + (acc.Count-1)*stride + elemSize
	if start < 0 || end > len(buf.Data) {
		return nil, 0, errors.Errorf("accessor reads bytes [%d, %d) of a %d byte buffer", start, end, len(buf.Data))
	}
	return buf.Data[start:end], stride, nil
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
