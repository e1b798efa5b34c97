package components

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultFieldOfView float32 = 45.0
	DefaultNearClip    float32 = 0.1
	DefaultFarClip     float32 = 100.0
)

// Camera is a look-at camera with a perspective projection.
type Camera struct {
	// Do not set directly, use SetPosition so the view matrix is rebuilt.
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	// Vertical field of view, in degrees.
	FieldOfView float32
	NearClip    float32
	FarClip     float32
	Aspect      float32

	isDirty    bool
	viewMatrix mgl32.Mat4
}

func NewCamera(position, target mgl32.Vec3) *Camera {
	return &Camera{
		Position:    position,
		Target:      target,
		Up:          mgl32.Vec3{0, 1, 0},
		FieldOfView: DefaultFieldOfView,
		NearClip:    DefaultNearClip,
		FarClip:     DefaultFarClip,
		Aspect:      1,
		isDirty:     true,
	}
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.isDirty = true
}

func (c *Camera) SetTarget(target mgl32.Vec3) {
	c.Target = target
	c.isDirty = true
}

// SetAspect updates the aspect ratio from a framebuffer size. A zero height
// (minimized window) keeps the previous ratio.
func (c *Camera) SetAspect(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

func (c *Camera) View() mgl32.Mat4 {
	if c.isDirty {
		c.viewMatrix = mgl32.LookAtV(c.Position, c.Target, c.Up)
		c.isDirty = false
	}
	return c.viewMatrix
}

// Projection returns the perspective matrix with Y flipped, since Vulkan
// clip space points Y down.
func (c *Camera) Projection() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.FieldOfView), c.Aspect, c.NearClip, c.FarClip)
	proj[5] *= -1
	return proj
}
