package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/components"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
)

// Renderer is the frontend the engine talks to. It owns the camera and
// forwards everything API specific to its backend.
type Renderer struct {
	backend RendererBackend
	camera  *components.Camera
}

func New(backend RendererBackend, camera *components.Camera) *Renderer {
	return &Renderer{
		backend: backend,
		camera:  camera,
	}
}

func (r *Renderer) Initialize(appName string, appWidth, appHeight uint32) error {
	r.camera.SetAspect(appWidth, appHeight)
	return r.backend.Initialize(appName, appWidth, appHeight)
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

func (r *Renderer) Camera() *components.Camera {
	return r.camera
}

func (r *Renderer) OnResize(width, height uint32) {
	r.camera.SetAspect(width, height)
	r.backend.Resized(width, height)
}

// ReloadShaders rebuilds the pipeline from the shader binaries on disk.
func (r *Renderer) ReloadShaders() {
	core.LogInfo("shader change detected, rebuilding pipeline")
	r.backend.RequestRebuild()
}

func (r *Renderer) CreateModel(path string) (int, error) {
	return r.backend.CreateModel(path)
}

func (r *Renderer) UpdateModel(index int, transform mgl32.Mat4) error {
	return r.backend.UpdateModel(index, transform)
}

// DrawFrame uploads the camera matrices and renders one frame.
func (r *Renderer) DrawFrame() error {
	r.backend.SetViewProjection(r.camera.View(), r.camera.Projection())
	if err := r.backend.Draw(); err != nil {
		core.LogError("failed to draw frame: %s", err)
		return err
	}
	return nil
}
