// Package loader builds canopy scene graphs from glTF documents and YAML
// scene descriptions.
package loader

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/taigrr/canopy/pkg/math3d"
	"github.com/taigrr/canopy/pkg/models"
	"github.com/taigrr/canopy/pkg/scene"
)

// ErrNodeCycle is returned for glTF node graphs that are not trees.
var ErrNodeCycle = errors.New("loader: glTF node hierarchy is not a tree")

var identity16 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// LoadGLTF opens a .gltf or .glb file and converts its default scene.
func LoadGLTF(path string) (*scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open gltf")
	}
	root, err := FromGLTF(doc)
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	return root, nil
}

// FromGLTF converts the default scene of doc into a scene graph under a new
// root node. Nodes with an explicit matrix get a general transform, TRS
// nodes an RS transform. A node with a mesh and no children becomes a Visual;
// a node with both gets its mesh as an extra Visual child.
func FromGLTF(doc *gltf.Document) (*scene.Node, error) {
	meshes, err := models.LoadMeshes(doc)
	if err != nil {
		return nil, err
	}

	b := gltfBuilder{doc: doc, meshes: meshes, onPath: make(map[int]bool)}
	root := scene.NewNode("gltf")
	for _, idx := range b.sceneRoots() {
		child, err := b.build(idx)
		if err != nil {
			return nil, err
		}
		if _, err := root.AttachChild(child); err != nil {
			return nil, err
		}
	}
	return root, nil
}

type gltfBuilder struct {
	doc    *gltf.Document
	meshes []*models.Mesh
	onPath map[int]bool
}

// sceneRoots returns the root nodes of the default scene, or every
// parentless node when the document has no scenes.
func (b *gltfBuilder) sceneRoots() []int {
	if len(b.doc.Scenes) > 0 {
		idx := 0
		if b.doc.Scene != nil && *b.doc.Scene < len(b.doc.Scenes) {
			idx = *b.doc.Scene
		}
		return b.doc.Scenes[idx].Nodes
	}

	hasParent := make([]bool, len(b.doc.Nodes))
	for _, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

func (b *gltfBuilder) build(idx int) (scene.Spatial, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, errors.Errorf("loader: node %d out of range", idx)
	}
	if b.onPath[idx] {
		return nil, errors.Wrapf(ErrNodeCycle, "node %d", idx)
	}
	b.onPath[idx] = true
	defer delete(b.onPath, idx)

	n := b.doc.Nodes[idx]
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("node%d", idx)
	}

	mesh, err := b.mesh(n)
	if err != nil {
		return nil, errors.Wrapf(err, "node %q", name)
	}

	if len(n.Children) == 0 && mesh != nil {
		v := scene.NewVisualFromMesh(name, mesh)
		if err := applyNodeTransform(v.Local(), n); err != nil {
			return nil, errors.Wrapf(err, "node %q", name)
		}
		return v, nil
	}

	node := scene.NewNode(name)
	if err := applyNodeTransform(node.Local(), n); err != nil {
		return nil, errors.Wrapf(err, "node %q", name)
	}
	if mesh != nil {
		node.MustAttach(scene.NewVisualFromMesh(name+"/"+mesh.Name, mesh))
	}
	for _, c := range n.Children {
		child, err := b.build(c)
		if err != nil {
			return nil, err
		}
		if _, err := node.AttachChild(child); err != nil {
			return nil, errors.Wrapf(err, "node %q", name)
		}
	}
	return node, nil
}

func (b *gltfBuilder) mesh(n *gltf.Node) (*models.Mesh, error) {
	if n.Mesh == nil {
		return nil, nil
	}
	if *n.Mesh < 0 || *n.Mesh >= len(b.meshes) {
		return nil, errors.Errorf("loader: mesh %d out of range", *n.Mesh)
	}
	return b.meshes[*n.Mesh], nil
}

// applyNodeTransform copies the local transform of a glTF node into t,
// leaving t the identity for nodes without one.
func applyNodeTransform(t *scene.Transform, n *gltf.Node) error {
	if n.Matrix != [16]float64{} && n.Matrix != identity16 {
		m := n.MatrixOrDefault()
		t.SetMatrix(math3d.Mat3{
			m[0], m[1], m[2],
			m[4], m[5], m[6],
			m[8], m[9], m[10],
		})
		t.SetTranslation(math3d.V3(m[12], m[13], m[14]))
		return nil
	}

	r := n.RotationOrDefault()
	if r != [4]float64{0, 0, 0, 1} {
		q := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}.Normalize()
		t.SetRotation(quatToMat3(q))
	}

	s := n.ScaleOrDefault()
	if s != [3]float64{1, 1, 1} {
		if s[0] == 0 || s[1] == 0 || s[2] == 0 {
			return errors.Wrapf(scene.ErrZeroScale, "scale %v", s)
		}
		t.SetScale(math3d.V3(s[0], s[1], s[2]))
	}

	if tr := n.TranslationOrDefault(); tr != [3]float64{} {
		t.SetTranslation(math3d.V3(tr[0], tr[1], tr[2]))
	}
	return nil
}

func quatToMat3(q mgl64.Quat) math3d.Mat3 {
	return math3d.Mat3(q.Mat4().Mat3())
}

// eulerToMat3 converts XYZ Euler angles in degrees to a rotation matrix.
func eulerToMat3(deg [3]float64) math3d.Mat3 {
	q := mgl64.AnglesToQuat(
		mgl64.DegToRad(deg[0]),
		mgl64.DegToRad(deg[1]),
		mgl64.DegToRad(deg[2]),
		mgl64.XYZ,
	)
	return quatToMat3(q)
}
