package models

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taigrr/canopy/pkg/math3d"
)

// quadDocument builds a glTF document with one indexed quad held in an
// embedded buffer.
func quadDocument() *gltf.Document {
	positions := []float32{
		-1, -1, 0,
		1, -1, 0,
		1, 1, 0,
		-1, 1, 0,
	}
	indices := []uint16{0, 1, 2, 0, 2, 3}

	data := make([]byte, 0, len(positions)*4+len(indices)*2)
	for _, f := range positions {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
	}
	for _, i := range indices {
		data = binary.LittleEndian.AppendUint16(data, i)
	}

	return &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: len(data), Data: data}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: len(positions) * 4},
			{Buffer: 0, ByteOffset: len(positions) * 4, ByteLength: len(indices) * 2},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Count: 4, Type: gltf.AccessorVec3},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentUshort, Count: 6, Type: gltf.AccessorScalar},
		},
		Meshes: []*gltf.Mesh{{
			Name: "quad",
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]int{gltf.POSITION: 0},
				Indices:    gltf.Index(1),
			}},
		}},
	}
}

func TestLoadMeshes(t *testing.T) {
	meshes, err := LoadMeshes(quadDocument())
	require.NoError(t, err)
	require.Len(t, meshes, 1)

	quad := meshes[0]
	assert.Equal(t, "quad", quad.Name)
	assert.Equal(t, 4, quad.VertexCount())
	assert.Equal(t, 2, quad.TriangleCount())
	assert.Equal(t, [3]int{0, 2, 3}, quad.Faces[1].V)
	assert.Equal(t, math3d.V3(1, 1, 0), quad.Vertices[2].Position)
	assert.Equal(t, math3d.V3(-1, -1, 0), quad.BoundsMin)
	assert.Equal(t, math3d.V3(1, 1, 0), quad.BoundsMax)
}

func TestLoadMeshesWithoutIndices(t *testing.T) {
	doc := quadDocument()
	doc.Meshes[0].Primitives[0].Indices = nil
	doc.Accessors[0].Count = 3

	meshes, err := LoadMeshes(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, meshes[0].TriangleCount())
	assert.Equal(t, [3]int{0, 1, 2}, meshes[0].Faces[0].V)
}

func TestLoadMeshesErrors(t *testing.T) {
	t.Run("accessor past buffer", func(t *testing.T) {
		doc := quadDocument()
		doc.Accessors[0].Count = 40
		_, err := LoadMeshes(doc)
		assert.Error(t, err)
	})

	t.Run("index out of range", func(t *testing.T) {
		doc := quadDocument()
		doc.Accessors[0].Count = 2
		_, err := LoadMeshes(doc)
		var faceErr *FaceIndexError
		require.ErrorAs(t, err, &faceErr)
		assert.Equal(t, "quad", faceErr.Mesh)
	})

	t.Run("external buffer", func(t *testing.T) {
		doc := quadDocument()
		doc.Buffers[0].URI = "quad.bin"
		doc.Buffers[0].Data = nil
		_, err := LoadMeshes(doc)
		assert.ErrorIs(t, err, ErrExternalBuffer)
	})

	t.Run("wrong accessor type", func(t *testing.T) {
		doc := quadDocument()
		doc.Accessors[0].Type = gltf.AccessorVec2
		_, err := LoadMeshes(doc)
		assert.Error(t, err)
	})
}

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	assert.Error(t, err)
}

func TestMeshPositionsIsACopy(t *testing.T) {
	meshes, err := LoadMeshes(quadDocument())
	require.NoError(t, err)

	pts := meshes[0].Positions()
	pts[0] = math3d.V3(100, 100, 100)
	assert.Equal(t, math3d.V3(-1, -1, 0), meshes[0].Vertices[0].Position)
}

func TestMeshAppend(t *testing.T) {
	a, err := LoadMeshes(quadDocument())
	require.NoError(t, err)
	b, err := LoadMeshes(quadDocument())
	require.NoError(t, err)

	merged := NewMesh("both")
	merged.Append(a[0])
	merged.Append(b[0])
	assert.Equal(t, 8, merged.VertexCount())
	assert.Equal(t, 4, merged.TriangleCount())
	assert.Equal(t, [3]int{4, 6, 7}, merged.Faces[3].V)
	assert.NoError(t, merged.Validate())
}

func TestCalculateSmoothNormals(t *testing.T) {
	meshes, err := LoadMeshes(quadDocument())
	require.NoError(t, err)
	quad := meshes[0]

	quad.CalculateSmoothNormals()
	for _, v := range quad.Vertices {
		assert.True(t, v.Normal.ApproxEqual(math3d.V3(0, 0, 1), 1e-12), "normal %v", v.Normal)
	}
}
