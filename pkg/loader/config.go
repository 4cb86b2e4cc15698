package loader

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/pkg/errors"
	"github.com/taigrr/canopy/pkg/math3d"
	"github.com/taigrr/canopy/pkg/models"
	"github.com/taigrr/canopy/pkg/render"
	"github.com/taigrr/canopy/pkg/scene"
	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrNoRoot        = errors.New("loader: scene has no root node")
	ErrLeafChildren  = errors.New("loader: sphere, mesh and gltf are leaf fields and cannot have children")
	ErrTooManyPlanes = errors.New("loader: too many user clip planes")
)

// Vec3 is a YAML [x, y, z] triple.
type Vec3 [3]float64

// V converts to math3d.
func (v Vec3) V() math3d.Vec3 { return math3d.V3(v[0], v[1], v[2]) }

// Scale accepts either a scalar (uniform) or an [x, y, z] triple.
type Scale struct {
	Value   Vec3
	Uniform bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scale) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := value.Decode(&f); err != nil {
			return err
		}
		*s = Scale{Value: Vec3{f, f, f}, Uniform: true}
		return nil
	case yaml.SequenceNode:
		var v Vec3
		if err := value.Decode(&v); err != nil {
			return err
		}
		*s = Scale{Value: v, Uniform: v[0] == v[1] && v[1] == v[2]}
		return nil
	}
	return errors.Errorf("line %d: scale must be a number or [x, y, z]", value.Line)
}

// CullMode is a scene.CullMode spelled as in CullMode.String.
type CullMode scene.CullMode

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *CullMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	for _, mode := range []scene.CullMode{scene.CullDynamic, scene.CullAlways, scene.CullNever} {
		if strings.EqualFold(s, mode.String()) {
			*m = CullMode(mode)
			return nil
		}
	}
	return errors.Errorf("line %d: unknown cull mode %q", value.Line, s)
}

// Config is a YAML scene description.
type Config struct {
	Camera CameraConfig  `yaml:"camera"`
	Planes []PlaneConfig `yaml:"planes,omitempty"`
	Root   *NodeConfig   `yaml:"root"`

	dir string
}

// CameraConfig describes the render.Camera.
type CameraConfig struct {
	Position   *Vec3   `yaml:"position,omitempty"`
	LookAt     *Vec3   `yaml:"look_at,omitempty"`
	Projection string  `yaml:"projection,omitempty"` // perspective or orthographic
	FOV        float64 `yaml:"fov,omitempty"`        // degrees
	Height     float64 `yaml:"height,omitempty"`     // orthographic view height
	Aspect     float64 `yaml:"aspect,omitempty"`
	Near       float64 `yaml:"near,omitempty"`
	Far        float64 `yaml:"far,omitempty"`
}

// PlaneConfig is a user culling plane; the side Normal points to is kept.
type PlaneConfig struct {
	Normal Vec3 `yaml:"normal"`
	Point  Vec3 `yaml:"point"`
}

// SphereConfig is a model-space bounding sphere.
type SphereConfig struct {
	Center Vec3    `yaml:"center"`
	Radius float64 `yaml:"radius"`
}

// NodeConfig describes one scene-graph node. A node with sphere, mesh or
// gltf is a leaf; switch makes it a SwitchNode.
type NodeConfig struct {
	Name        string             `yaml:"name"`
	Translate   *Vec3              `yaml:"translate,omitempty"`
	Rotate      *Vec3              `yaml:"rotate,omitempty"` // XYZ Euler degrees
	Scale       *Scale             `yaml:"scale,omitempty"`
	Matrix      []float64          `yaml:"matrix,omitempty"` // 9 values, column-major
	Cull        CullMode           `yaml:"cull,omitempty"`
	Sphere      *SphereConfig      `yaml:"sphere,omitempty"`
	Mesh        string             `yaml:"mesh,omitempty"`
	GLTF        string             `yaml:"gltf,omitempty"`
	Switch      *int               `yaml:"switch,omitempty"`
	Controllers []ControllerConfig `yaml:"controllers,omitempty"`
	Children    []*NodeConfig      `yaml:"children,omitempty"`
}

// ControllerConfig holds exactly one controller description.
type ControllerConfig struct {
	Spin       *SpinConfig       `yaml:"spin,omitempty"`
	Spring     *SpringConfig     `yaml:"spring,omitempty"`
	Projectile *ProjectileConfig `yaml:"projectile,omitempty"`
}

// SpinConfig configures a scene.SpinController.
type SpinConfig struct {
	Axis   Vec3    `yaml:"axis"`
	Rate   float64 `yaml:"rate"` // radians per second
	Repeat string  `yaml:"repeat,omitempty"`
	Min    float64 `yaml:"min,omitempty"`
	Max    float64 `yaml:"max,omitempty"`
}

// SpringConfig configures a scene.SpringController.
type SpringConfig struct {
	Target    Vec3    `yaml:"target"`
	FPS       int     `yaml:"fps,omitempty"`
	Frequency float64 `yaml:"frequency"`
	Damping   float64 `yaml:"damping"`
}

// ProjectileConfig configures a scene.ProjectileController starting at the
// node's translation.
type ProjectileConfig struct {
	Velocity Vec3  `yaml:"velocity"`
	Gravity  bool  `yaml:"gravity,omitempty"`
	Accel    *Vec3 `yaml:"accel,omitempty"`
	FPS      int   `yaml:"fps,omitempty"`
}

// Scene is a built Config.
type Scene struct {
	Root   *scene.Node
	Camera *render.Camera
	Planes []math3d.Plane
}

// NewCuller returns a culler with the scene's user planes pushed.
func (s *Scene) NewCuller(opts ...scene.CullerOption) (*scene.Culler, error) {
	c := scene.NewCuller(opts...)
	for _, p := range s.Planes {
		if !c.PushPlane(p) {
			return nil, ErrTooManyPlanes
		}
	}
	return c, nil
}

// LoadConfig reads a YAML scene file. Mesh and glTF paths in it are resolved
// relative to the file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open scene")
	}
	defer f.Close()

	cfg, err := decodeConfig(f)
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// ParseConfig decodes a YAML scene description. Unknown keys are errors.
func ParseConfig(data []byte) (*Config, error) {
	return decodeConfig(bytes.NewReader(data))
}

func decodeConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode scene")
	}
	if cfg.Root == nil {
		return nil, ErrNoRoot
	}
	return &cfg, nil
}

// Build creates the scene graph, runs an initial Update and configures the
// camera.
func (c *Config) Build() (*Scene, error) {
	if c.Root == nil {
		return nil, ErrNoRoot
	}

	b := configBuilder{dir: c.dir, meshes: make(map[string]*models.Mesh)}
	spatial, err := b.build(c.Root)
	if err != nil {
		return nil, err
	}
	root, ok := spatial.(*scene.Node)
	if !ok {
		root = scene.NewNode("root")
		root.MustAttach(spatial)
	}
	root.Update(0, true)

	planes := make([]math3d.Plane, 0, len(c.Planes))
	for i, p := range c.Planes {
		if p.Normal.V().LenSq() == 0 {
			return nil, errors.Errorf("loader: plane %d has a zero normal", i)
		}
		planes = append(planes, math3d.NewPlane(p.Normal.V(), p.Point.V()))
	}
	if len(planes) > scene.MaxPlaneQuantity-scene.ViewFrustumQuantity {
		return nil, ErrTooManyPlanes
	}

	cam, err := c.Camera.build()
	if err != nil {
		return nil, err
	}
	return &Scene{Root: root, Camera: cam, Planes: planes}, nil
}

func (cc CameraConfig) build() (*render.Camera, error) {
	cam := render.NewCamera()
	if cc.Aspect > 0 {
		cam.SetAspectRatio(cc.Aspect)
	}
	near, far := cam.Near, cam.Far
	if cc.Near > 0 {
		near = cc.Near
	}
	if cc.Far > 0 {
		far = cc.Far
	}
	if far <= near {
		return nil, errors.Errorf("loader: camera far %g must exceed near %g", far, near)
	}
	cam.SetClipPlanes(near, far)

	switch strings.ToLower(cc.Projection) {
	case "", "perspective":
		if cc.FOV > 0 {
			cam.SetPerspective(cc.FOV * math.Pi / 180)
		}
	case "orthographic", "ortho":
		height := cc.Height
		if height <= 0 {
			height = cam.OrthoHeight
		}
		cam.SetOrthographic(height)
	default:
		return nil, errors.Errorf("loader: unknown projection %q", cc.Projection)
	}

	pos := Vec3{0, 0, 10}
	if cc.Position != nil {
		pos = *cc.Position
	}
	cam.SetPosition(pos.V())
	target := math3d.Zero3()
	if cc.LookAt != nil {
		target = cc.LookAt.V()
	}
	if target.Sub(pos.V()).LenSq() > 0 {
		cam.LookAt(target)
	}
	return cam, nil
}

type configBuilder struct {
	dir    string
	meshes map[string]*models.Mesh
}

func (b *configBuilder) build(nc *NodeConfig) (scene.Spatial, error) {
	if nc == nil {
		return nil, errors.New("loader: empty node entry")
	}
	s, err := b.create(nc)
	if err != nil {
		return nil, errors.Wrapf(err, "node %q", nc.Name)
	}
	if err := applyConfigTransform(s.Local(), nc); err != nil {
		return nil, errors.Wrapf(err, "node %q", nc.Name)
	}
	s.SetCullMode(scene.CullMode(nc.Cull))

	if err := attachControllers(s, nc); err != nil {
		return nil, errors.Wrapf(err, "node %q", nc.Name)
	}
	return s, nil
}

// create makes the Spatial for nc and its subtree, without nc's transform.
func (b *configBuilder) create(nc *NodeConfig) (scene.Spatial, error) {
	isLeaf := nc.Sphere != nil || nc.Mesh != "" || nc.GLTF != ""
	if isLeaf && len(nc.Children) > 0 {
		return nil, ErrLeafChildren
	}

	switch {
	case nc.GLTF != "":
		root, err := LoadGLTF(b.resolve(nc.GLTF))
		if err != nil {
			return nil, err
		}
		node := scene.NewNode(nc.Name)
		node.MustAttach(root)
		return node, nil
	case nc.Mesh != "":
		mesh, err := b.mesh(nc.Mesh)
		if err != nil {
			return nil, err
		}
		return scene.NewVisualFromMesh(nc.Name, mesh), nil
	case nc.Sphere != nil:
		return scene.NewVisual(nc.Name, scene.NewBoundingSphere(nc.Sphere.Center.V(), nc.Sphere.Radius)), nil
	}

	var node *scene.Node
	var sw *scene.SwitchNode
	if nc.Switch != nil {
		sw = scene.NewSwitchNode(nc.Name)
		node = &sw.Node
	} else {
		node = scene.NewNode(nc.Name)
	}

	for _, child := range nc.Children {
		s, err := b.build(child)
		if err != nil {
			return nil, err
		}
		if _, err := node.AttachChild(s); err != nil {
			return nil, err
		}
	}

	if sw != nil {
		if *nc.Switch >= len(nc.Children) {
			return nil, errors.Errorf("switch child %d out of range (%d children)", *nc.Switch, len(nc.Children))
		}
		sw.SetActiveChild(*nc.Switch)
		return sw, nil
	}
	return node, nil
}

func (b *configBuilder) resolve(path string) string {
	if filepath.IsAbs(path) || b.dir == "" {
		return path
	}
	return filepath.Join(b.dir, path)
}

func (b *configBuilder) mesh(path string) (*models.Mesh, error) {
	full := b.resolve(path)
	if m, ok := b.meshes[full]; ok {
		return m, nil
	}
	m, err := models.LoadGLB(full)
	if err != nil {
		return nil, err
	}
	b.meshes[full] = m
	return m, nil
}

func applyConfigTransform(t *scene.Transform, nc *NodeConfig) error {
	if len(nc.Matrix) > 0 {
		if nc.Rotate != nil || nc.Scale != nil {
			return errors.New("matrix cannot be combined with rotate or scale")
		}
		if len(nc.Matrix) != 9 {
			return errors.Errorf("matrix needs 9 values, got %d", len(nc.Matrix))
		}
		var m math3d.Mat3
		copy(m[:], nc.Matrix)
		t.SetMatrix(m)
	}
	if nc.Rotate != nil {
		t.SetRotation(eulerToMat3(*nc.Rotate))
	}
	if nc.Scale != nil {
		v := nc.Scale.Value
		if v[0] == 0 || v[1] == 0 || v[2] == 0 {
			return errors.Wrapf(scene.ErrZeroScale, "scale %v", v)
		}
		if nc.Scale.Uniform {
			t.SetUniformScale(v[0])
		} else {
			t.SetScale(v.V())
		}
	}
	if nc.Translate != nil {
		t.SetTranslation(nc.Translate.V())
	}
	return nil
}

func attachControllers(s scene.Spatial, nc *NodeConfig) error {
	attacher, ok := s.(interface{ AttachController(scene.Controller) })
	if !ok {
		return errors.Errorf("%T does not take controllers", s)
	}

	for i, cc := range nc.Controllers {
		ctrl, err := cc.build(s.Local().Translation())
		if err != nil {
			return errors.Wrapf(err, "controller %d", i)
		}
		attacher.AttachController(ctrl)
	}
	return nil
}

func (cc ControllerConfig) build(start math3d.Vec3) (scene.Controller, error) {
	n := 0
	for _, set := range []bool{cc.Spin != nil, cc.Spring != nil, cc.Projectile != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return nil, errors.Errorf("need exactly one of spin, spring or projectile, got %d", n)
	}

	switch {
	case cc.Spin != nil:
		if cc.Spin.Axis.V().LenSq() == 0 {
			return nil, errors.New("spin axis is zero")
		}
		spin := scene.NewSpinController(cc.Spin.Axis.V().Normalize(), cc.Spin.Rate)
		switch strings.ToLower(cc.Spin.Repeat) {
		case "", "clamp":
			spin.Repeat = scene.RepeatClamp
		case "wrap":
			spin.Repeat = scene.RepeatWrap
		case "cycle":
			spin.Repeat = scene.RepeatCycle
		default:
			return nil, errors.Errorf("unknown repeat %q", cc.Spin.Repeat)
		}
		spin.MinTime, spin.MaxTime = cc.Spin.Min, cc.Spin.Max
		return spin, nil

	case cc.Spring != nil:
		return scene.NewSpringController(cc.Spring.Target.V(), cc.Spring.FPS, cc.Spring.Frequency, cc.Spring.Damping), nil

	default:
		accel := harmonica.Vector{}
		if cc.Projectile.Gravity {
			accel = harmonica.Gravity
		}
		if a := cc.Projectile.Accel; a != nil {
			accel = harmonica.Vector{X: a[0], Y: a[1], Z: a[2]}
		}
		return scene.NewProjectileController(cc.Projectile.FPS, start, cc.Projectile.Velocity.V(), accel), nil
	}
}
