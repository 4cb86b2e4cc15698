package render

import (
	"math"

	"github.com/taigrr/canopy/pkg/math3d"
	"github.com/taigrr/canopy/pkg/scene"
)

// Projection selects how a Camera maps view space to clip space.
type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

// Camera is a free-flying camera with Euler orientation. It implements
// scene.Camera, so a Culler can take its frustum directly.
type Camera struct {
	// Position in world space
	Position math3d.Vec3

	// Orientation (Euler angles in radians)
	Pitch float64 // Rotation around X axis (look up/down)
	Yaw   float64 // Rotation around Y axis (look left/right)
	Roll  float64 // Rotation around Z axis (tilt)

	Projection  Projection
	FOV         float64 // Vertical field of view in radians (perspective)
	OrthoHeight float64 // Height of the view volume (orthographic)
	AspectRatio float64 // Width / Height
	Near        float64
	Far         float64

	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewDirty      bool
	projDirty      bool
	viewProjDirty  bool
}

var _ scene.Camera = (*Camera)(nil)

// NewCamera creates a perspective camera at the origin looking down -Z.
func NewCamera() *Camera {
	return &Camera{
		Projection:    Perspective,
		FOV:           math.Pi / 3, // 60 degrees
		OrthoHeight:   10,
		AspectRatio:   16.0 / 9.0,
		Near:          0.1,
		Far:           1000,
		viewDirty:     true,
		projDirty:     true,
		viewProjDirty: true,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
	c.markView()
}

// SetRotation sets the camera rotation (pitch, yaw, roll in radians).
func (c *Camera) SetRotation(pitch, yaw, roll float64) {
	c.Pitch = pitch
	c.Yaw = yaw
	c.Roll = roll
	c.markView()
}

// SetPerspective switches to a perspective projection with the given
// vertical field of view.
func (c *Camera) SetPerspective(fov float64) {
	c.Projection = Perspective
	c.FOV = fov
	c.markProj()
}

// SetOrthographic switches to an orthographic projection whose view volume
// is height units tall.
func (c *Camera) SetOrthographic(height float64) {
	c.Projection = Orthographic
	c.OrthoHeight = height
	c.markProj()
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
	c.markProj()
}

// SetClipPlanes sets the near and far clipping distances.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.markProj()
}

func (c *Camera) markView() {
	c.viewDirty = true
	c.viewProjDirty = true
}

func (c *Camera) markProj() {
	c.projDirty = true
	c.viewProjDirty = true
}

// Forward returns the forward direction vector.
func (c *Camera) Forward() math3d.Vec3 {
	// Forward is -Z in camera space, rotated by yaw and pitch
	return math3d.V3(
		-math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// Right returns the right direction vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(math.Cos(c.Yaw), 0, -math.Sin(c.Yaw))
}

// Up returns the up direction vector.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// ViewMatrix returns the world-to-view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		rot := math3d.RotateZ(-c.Roll).
			Mul(math3d.RotateX(-c.Pitch)).
			Mul(math3d.RotateY(-c.Yaw))
		c.viewMatrix = rot.Mul(math3d.Translate(c.Position.Negate()))
		c.viewDirty = false
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the view-to-clip matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		switch c.Projection {
		case Orthographic:
			halfH := c.OrthoHeight / 2
			halfW := halfH * c.AspectRatio
			c.projMatrix = math3d.Orthographic(-halfW, halfW, -halfH, halfH, c.Near, c.Far)
		default:
			c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		}
		c.projDirty = false
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns projection * view.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	if c.viewProjDirty {
		c.viewProjMatrix = c.ProjectionMatrix().Mul(c.ViewMatrix())
		c.viewProjDirty = false
	}
	return c.viewProjMatrix
}

// MoveForward moves the camera forward (or backward if negative).
func (c *Camera) MoveForward(distance float64) {
	c.SetPosition(c.Position.Add(c.Forward().Scale(distance)))
}

// MoveRight moves the camera right (or left if negative).
func (c *Camera) MoveRight(distance float64) {
	c.SetPosition(c.Position.Add(c.Right().Scale(distance)))
}

// MoveUp moves the camera along world up.
func (c *Camera) MoveUp(distance float64) {
	c.SetPosition(c.Position.Add(math3d.Up().Scale(distance)))
}

// Rotate adds to the Euler angles. Pitch is clamped short of straight up or
// down.
func (c *Camera) Rotate(deltaPitch, deltaYaw, deltaRoll float64) {
	const maxPitch = math.Pi/2 - 0.01
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch+deltaPitch))
	c.Yaw += deltaYaw
	c.Roll += deltaRoll
	c.markView()
}

// LookAt turns the camera toward target.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()

	c.Pitch = math.Asin(dir.Y)
	c.Yaw = math.Atan2(-dir.X, -dir.Z)
	c.Roll = 0
	c.markView()
}

// WorldToScreen projects a world point to pixel coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clip := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))
	if clip.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clip.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	x, y = ndcToScreen(ndc, screenWidth, screenHeight)
	return x, y, ndc.Z, true
}

func ndcToScreen(ndc math3d.Vec3, width, height int) (x, y float64) {
	x = (ndc.X + 1) * 0.5 * float64(width)
	y = (1 - ndc.Y) * 0.5 * float64(height) // Y is flipped
	return x, y
}
