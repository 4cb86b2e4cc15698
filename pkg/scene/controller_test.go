package scene

import (
	"testing"

	"github.com/charmbracelet/harmonica"
	"github.com/stretchr/testify/assert"
	"github.com/taigrr/canopy/pkg/math3d"
)

func TestTimingControlTime(t *testing.T) {
	tests := []struct {
		name    string
		timing  Timing
		appTime float64
		want    float64
	}{
		{"zero value passes through", Timing{}, 3.5, 3.5},
		{"frequency and phase", Timing{Frequency: 2, Phase: 1}, 3, 7},
		{"clamp low", Timing{Repeat: RepeatClamp, MinTime: 1, MaxTime: 2}, 0, 1},
		{"clamp high", Timing{Repeat: RepeatClamp, MinTime: 1, MaxTime: 2}, 5, 2},
		{"wrap", Timing{Repeat: RepeatWrap, MinTime: 0, MaxTime: 2}, 5, 1},
		{"wrap negative", Timing{Repeat: RepeatWrap, MinTime: 0, MaxTime: 2}, -0.5, 1.5},
		{"cycle forward", Timing{Repeat: RepeatCycle, MinTime: 0, MaxTime: 2}, 1.5, 1.5},
		{"cycle backward", Timing{Repeat: RepeatCycle, MinTime: 0, MaxTime: 2}, 3.5, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.timing.ControlTime(tc.appTime), 1e-12)
		})
	}
}

func TestSpinControllerRotatesLocal(t *testing.T) {
	node := unitVisual("spinner")
	node.Local().SetUniformScale(2)
	spin := NewSpinController(math3d.V3(0, 0, 1), 1)
	node.AttachController(spin)

	node.Update(halfPi, true)
	got := node.World().ApplyForwardDir(math3d.V3(1, 0, 0))
	assert.True(t, got.ApproxEqual(math3d.V3(0, 2, 0), 1e-9), "got %v", got)
	assert.Equal(t, 2.0, node.Local().UniformScale())

	spin.Active = false
	node.Update(0, true)
	got = node.World().ApplyForwardDir(math3d.V3(1, 0, 0))
	assert.True(t, got.ApproxEqual(math3d.V3(0, 2, 0), 1e-9))
}

func TestSpinControllerSkipsGeneralTransforms(t *testing.T) {
	node := unitVisual("sheared")
	node.Local().SetMatrix(math3d.Mat3{1, 0, 0, 1, 1, 0, 0, 0, 1})
	spin := NewSpinController(math3d.V3(0, 0, 1), 1)
	assert.False(t, spin.Update(1, node))
}

func TestSpringControllerSettles(t *testing.T) {
	node := unitVisual("follower")
	spring := NewSpringController(math3d.V3(10, -4, 2), 60, 6, 1)
	node.AttachController(spring)

	node.Update(0, true)
	assert.Equal(t, math3d.Zero3(), node.Local().Translation())

	node.Update(0.001, true)
	assert.Equal(t, math3d.Zero3(), node.Local().Translation(), "less than one step elapsed")

	node.Update(0.5, true)
	mid := node.Local().Translation()
	assert.Greater(t, mid.X, 0.0)
	assert.Less(t, mid.X, 10.0)

	node.Update(4, true)
	pos := node.Local().Translation()
	assert.InDelta(t, 10, pos.X, 1e-3)
	assert.InDelta(t, -4, pos.Y, 1e-3)
	assert.InDelta(t, 2, pos.Z, 1e-3)
	assert.True(t, WorldPosition(node).ApproxEqual(pos, 0))
}

func TestProjectileControllerIntegrates(t *testing.T) {
	node := unitVisual("ball")
	proj := NewProjectileController(60, math3d.V3(0, 10, 0), math3d.V3(1, 0, 0), harmonica.Vector{})
	node.AttachController(proj)

	node.Update(0, true)
	assert.True(t, WorldPosition(node).ApproxEqual(math3d.V3(0, 10, 0), 1e-12))

	node.Update(1.001, true)
	assert.InDelta(t, 1, node.Local().Translation().X, 1e-6)
	assert.InDelta(t, 10, node.Local().Translation().Y, 1e-12)
}

func TestProjectileControllerFalls(t *testing.T) {
	node := unitVisual("ball")
	proj := NewProjectileController(60, math3d.V3(0, 10, 0), math3d.Zero3(), harmonica.Gravity)
	node.AttachController(proj)

	node.Update(0, true)
	node.Update(1, true)
	assert.Less(t, proj.Position().Y, 10.0)
	assert.Equal(t, proj.Position(), node.Local().Translation())
}

func TestDetachController(t *testing.T) {
	node := unitVisual("n")
	spin := NewSpinController(math3d.V3(0, 1, 0), 1)
	node.AttachController(spin)
	node.AttachController(nil)

	count := 0
	for range node.Controllers() {
		count++
	}
	assert.Equal(t, 1, count)
	assert.True(t, node.DetachController(spin))
	assert.False(t, node.DetachController(spin))
}
