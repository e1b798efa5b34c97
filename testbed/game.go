package testbed

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/leap/engine"
	"github.com/spaghettifunk/leap/engine/core"
	lmath "github.com/spaghettifunk/leap/engine/math"
)

// Degrees per second the demo model turns around the Y axis.
const rotationSpeed = 10.0

type TestGame struct {
	*engine.Game
}

type gameState struct {
	angle  float32
	width  uint32
	height uint32
}

// NewTestGame spins the configured model around the vertical axis.
func NewTestGame() *TestGame {
	state := &gameState{}
	tg := &TestGame{
		Game: &engine.Game{
			State: state,
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	return tg
}

func (tg *TestGame) state() *gameState {
	return tg.State.(*gameState)
}

func (tg *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("testbed ready, model index %d", e.ModelIndex())
	return e.Renderer().UpdateModel(e.ModelIndex(), modelTransform(0))
}

func (tg *TestGame) Update(e *engine.Engine, deltaTime float64) error {
	s := tg.state()
	s.angle = advanceAngle(s.angle, deltaTime)
	return e.Renderer().UpdateModel(e.ModelIndex(), modelTransform(s.angle))
}

func (tg *TestGame) OnResize(width, height uint32) error {
	s := tg.state()
	s.width, s.height = width, height
	return nil
}

func advanceAngle(angle float32, deltaTime float64) float32 {
	return lmath.WrapDegrees(angle + float32(rotationSpeed*deltaTime))
}

// modelTransform turns the model by angle degrees around Y, after laying it
// on its back (-90 degrees around X) so Z-up assets stand upright.
func modelTransform(angle float32) mgl32.Mat4 {
	yaw := mgl32.HomogRotate3DY(mgl32.DegToRad(angle))
	return yaw.Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(-90)))
}
