package renderer

import "github.com/go-gl/mathgl/mgl32"

// RendererBackend is the graphics API backend the frontend drives.
type RendererBackend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	// Resized is called when the framebuffer changes size. The backend
	// rebuilds its swapchain on the next frame.
	Resized(width, height uint32)
	// RequestRebuild recreates every swapchain-scoped resource, pipeline
	// included, before the next frame.
	RequestRebuild()
	CreateModel(path string) (int, error)
	UpdateModel(index int, transform mgl32.Mat4) error
	SetViewProjection(view, projection mgl32.Mat4)
	Draw() error
}
