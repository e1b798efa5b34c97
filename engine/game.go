package engine

// Game holds the application hooks the engine calls around its own work.
// Any of them may be nil.
type Game struct {
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
}

// Initialize runs once after the renderer and the configured model are
// ready.
type Initialize func(e *Engine) error

// Update runs every frame before drawing.
type Update func(e *Engine, deltaTime float64) error

type OnResize func(width uint32, height uint32) error
