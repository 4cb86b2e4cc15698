package scene

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/canopy/pkg/math3d"
)

// Controlled is the view of a Spatial a Controller may modify: its local
// transform. Controllers run before the world transform is derived, so their
// edits are visible in the same Update.
type Controlled interface {
	Name() string
	Local() *Transform
}

// Controller animates a Controlled object. Update reports whether it changed
// anything.
type Controller interface {
	Update(appTime float64, obj Controlled) bool
}

// Repeat selects how Timing maps application time outside [Min, Max].
type Repeat int

const (
	RepeatClamp Repeat = iota // hold the end values
	RepeatWrap                // jump back to Min
	RepeatCycle               // run back and forth
)

// Timing converts application time into controller time:
// t = Frequency*appTime + Phase, then folded into [MinTime, MaxTime] per
// Repeat. A zero Timing passes time through unchanged.
type Timing struct {
	Repeat    Repeat
	MinTime   float64
	MaxTime   float64
	Phase     float64
	Frequency float64
	Active    bool
}

// DefaultTiming is an active, unbounded, unit-frequency timing.
func DefaultTiming() Timing {
	return Timing{Frequency: 1, Active: true}
}

// ControlTime returns the controller time for appTime.
func (t Timing) ControlTime(appTime float64) float64 {
	freq := t.Frequency
	if freq == 0 {
		freq = 1
	}
	ct := freq*appTime + t.Phase

	span := t.MaxTime - t.MinTime
	if span <= 0 {
		return ct
	}

	switch t.Repeat {
	case RepeatWrap:
		return t.MinTime + positiveMod(ct-t.MinTime, span)
	case RepeatCycle:
		m := positiveMod(ct-t.MinTime, 2*span)
		if m > span {
			m = 2*span - m
		}
		return t.MinTime + m
	default:
		return math.Min(math.Max(ct, t.MinTime), t.MaxTime)
	}
}

func positiveMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// SpinController rotates an object about Axis at Rate radians per unit of
// controller time, starting from the rotation it had on the first Update.
type SpinController struct {
	Timing
	Axis math3d.Vec3
	Rate float64

	base    math3d.Mat3
	started bool
}

// NewSpinController creates an active spin about axis.
func NewSpinController(axis math3d.Vec3, rate float64) *SpinController {
	return &SpinController{Timing: DefaultTiming(), Axis: axis, Rate: rate}
}

func (c *SpinController) Update(appTime float64, obj Controlled) bool {
	if !c.Active {
		return false
	}
	local := obj.Local()
	if !local.IsRSMatrix() {
		return false
	}
	if !c.started {
		c.base = local.Rotation()
		c.started = true
	}

	angle := c.Rate * c.ControlTime(appTime)
	local.SetRotation(math3d.RotationAxis3(c.Axis, angle).Mul(c.base))
	return true
}

// SpringController pulls the local translation toward Target with a damped
// harmonica spring. The spring is stepped at a fixed rate; each Update runs
// as many steps as fit in the application time elapsed since the last one.
type SpringController struct {
	Target math3d.Vec3
	Active bool

	spring   harmonica.Spring
	step     float64
	velocity math3d.Vec3
	lastTime float64
	pending  float64
	started  bool
}

// NewSpringController creates a spring stepped fps times per second with the
// given angular frequency and damping ratio (1 is critically damped).
func NewSpringController(target math3d.Vec3, fps int, frequency, damping float64) *SpringController {
	if fps <= 0 {
		fps = 60
	}
	return &SpringController{
		Target: target,
		Active: true,
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
		step:   1 / float64(fps),
	}
}

// maxSpringSteps caps the catch-up work after a long stall.
const maxSpringSteps = 240

func (c *SpringController) Update(appTime float64, obj Controlled) bool {
	if !c.Active {
		return false
	}
	if !c.started {
		c.started = true
		c.lastTime = appTime
		return false
	}

	c.pending += appTime - c.lastTime
	c.lastTime = appTime
	if c.pending < c.step {
		return false
	}

	local := obj.Local()
	pos := local.Translation()
	steps := 0
	for c.pending >= c.step && steps < maxSpringSteps {
		pos.X, c.velocity.X = c.spring.Update(pos.X, c.velocity.X, c.Target.X)
		pos.Y, c.velocity.Y = c.spring.Update(pos.Y, c.velocity.Y, c.Target.Y)
		pos.Z, c.velocity.Z = c.spring.Update(pos.Z, c.velocity.Z, c.Target.Z)
		c.pending -= c.step
		steps++
	}
	if steps == maxSpringSteps {
		c.pending = 0
	}
	local.SetTranslation(pos)
	return true
}

// Velocity returns the current spring velocity.
func (c *SpringController) Velocity() math3d.Vec3 {
	return c.velocity
}

// ProjectileController moves the local translation like a projectile under
// constant acceleration, one harmonica step per elapsed fixed interval.
type ProjectileController struct {
	Active bool

	projectile *harmonica.Projectile
	step       float64
	lastTime   float64
	pending    float64
	started    bool
}

// NewProjectileController launches from start with the given velocity and
// acceleration, for example harmonica.Gravity.
func NewProjectileController(fps int, start, velocity math3d.Vec3, accel harmonica.Vector) *ProjectileController {
	if fps <= 0 {
		fps = 60
	}
	return &ProjectileController{
		Active: true,
		projectile: harmonica.NewProjectile(
			harmonica.FPS(fps),
			harmonica.Point{X: start.X, Y: start.Y, Z: start.Z},
			harmonica.Vector{X: velocity.X, Y: velocity.Y, Z: velocity.Z},
			accel,
		),
		step: 1 / float64(fps),
	}
}

func (c *ProjectileController) Update(appTime float64, obj Controlled) bool {
	if !c.Active {
		return false
	}
	local := obj.Local()
	if !c.started {
		c.started = true
		c.lastTime = appTime
		p := c.projectile.Position()
		local.SetTranslation(math3d.V3(p.X, p.Y, p.Z))
		return true
	}

	c.pending += appTime - c.lastTime
	c.lastTime = appTime
	if c.pending < c.step {
		return false
	}

	var p harmonica.Point
	for steps := 0; c.pending >= c.step && steps < maxSpringSteps; steps++ {
		p = c.projectile.Update()
		c.pending -= c.step
	}
	if c.pending >= c.step {
		c.pending = 0
	}
	local.SetTranslation(math3d.V3(p.X, p.Y, p.Z))
	return true
}

// Position returns the projectile position in parent space.
func (c *ProjectileController) Position() math3d.Vec3 {
	p := c.projectile.Position()
	return math3d.V3(p.X, p.Y, p.Z)
}
