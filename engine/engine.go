package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/spaghettifunk/leap/engine/assets"
	"github.com/spaghettifunk/leap/engine/config"
	"github.com/spaghettifunk/leap/engine/containers"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/platform"
	"github.com/spaghettifunk/leap/engine/renderer"
	"github.com/spaghettifunk/leap/engine/renderer/components"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
	"github.com/spaghettifunk/leap/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Asset change notifications buffered between two frames. Older entries are
// dropped when a burst overflows it.
const assetQueueSize = 32

// Frames between two metric log lines.
const metricsLogInterval = 120

var (
	DefaultCameraPosition = mgl32.Vec3{10, 0, 20}
	DefaultCameraTarget   = mgl32.Vec3{0, 0, -2}
)

type Engine struct {
	currentStage Stage
	sessionID    uuid.UUID
	config       *config.Config
	gameInstance *Game
	isRunning    atomic.Bool
	isSuspended  bool

	events       *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	clock        *core.Clock
	metrics      *core.FrameMetrics

	pendingAssets *containers.RingQueue[assets.AssetEvent]
	shadersDirty  bool

	modelIndex int
	width      uint32
	height     uint32
	lastTime   float64
}

func New(cfg *config.Config, g *Game) (*Engine, error) {
	if err := core.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}

	events := core.NewEventBus()
	p := platform.New(events)
	backend := vulkan.New(p, am, cfg.Renderer)
	camera := components.NewCamera(DefaultCameraPosition, DefaultCameraTarget)

	e := &Engine{
		currentStage:  EngineStageUninitialized,
		sessionID:     uuid.New(),
		config:        cfg,
		gameInstance:  g,
		events:        events,
		platform:      p,
		assetManager:  am,
		renderer:      renderer.New(backend, camera),
		clock:         core.NewClock(),
		metrics:       core.NewFrameMetrics(),
		pendingAssets: containers.NewRingQueue[assets.AssetEvent](assetQueueSize),
		modelIndex:    -1,
		width:         cfg.Width,
		height:        cfg.Height,
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	core.LogInfo("starting %s (session %s)", e.config.Title, e.sessionID)

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)

	if err := e.platform.Startup(e.config.Title, e.config.Width, e.config.Height, e.config.Resizable); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.AssetsDir); err != nil {
		return err
	}

	e.width, e.height = e.platform.FramebufferSize()
	if err := e.renderer.Initialize(e.config.Title, e.width, e.height); err != nil {
		return err
	}

	index, err := e.renderer.CreateModel(e.config.ModelPath())
	if err != nil {
		return err
	}
	e.modelIndex = index

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	frameClock := core.NewClock()
	var frameCount uint64

	for e.isRunning.Load() {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning.Store(false)
			break
		}

		e.collectAssetEvents()
		e.dispatchAssetEvents()
		if e.shadersDirty {
			e.renderer.ReloadShaders()
			e.shadersDirty = false
		}

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameClock.Start()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e, delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				return err
			}
		}

		if err := e.renderer.DrawFrame(); err != nil {
			return err
		}

		frameClock.Update()
		e.metrics.Update(frameClock.Elapsed())
		frameCount++
		if frameCount%metricsLogInterval == 0 {
			fps, ms := e.metrics.Frame()
			core.LogDebug("fps: %.1f frame time: %.3fms", fps, ms)
		}

		e.lastTime = currentTime
	}
	return nil
}

// Stop makes Run return after the current frame. Safe to call from any
// goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases everything in reverse creation order. It returns the
// first error but keeps going so the window and the watcher are always
// closed.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var result error
	if err := e.renderer.Shutdown(); err != nil {
		result = errors.CombineErrors(result, err)
	}
	if err := e.assetManager.Shutdown(); err != nil {
		result = errors.CombineErrors(result, err)
	}
	if err := e.platform.Shutdown(); err != nil {
		result = errors.CombineErrors(result, err)
	}
	e.events.Shutdown()
	core.LogInfo("session %s ended", e.sessionID)
	return result
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

// ModelIndex is the index of the model loaded from the configuration.
func (e *Engine) ModelIndex() int {
	return e.modelIndex
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

// collectAssetEvents moves the watcher notifications into the frame queue
// without blocking.
func (e *Engine) collectAssetEvents() {
	for {
		select {
		case ev, ok := <-e.assetManager.Events():
			if !ok {
				return
			}
			enqueueDroppingOldest(e.pendingAssets, ev)
		default:
			return
		}
	}
}

func (e *Engine) dispatchAssetEvents() {
	for !e.pendingAssets.IsEmpty() {
		ev, err := e.pendingAssets.Dequeue()
		if err != nil {
			return
		}
		e.events.Fire(core.EVENT_CODE_ASSET_CHANGED, ev.Path, assetEventContext(ev))
	}
}

func enqueueDroppingOldest(q *containers.RingQueue[assets.AssetEvent], ev assets.AssetEvent) {
	if q.IsFull() {
		dropped, _ := q.Dequeue()
		core.LogWarn("asset event queue full, dropping %s", dropped.Path)
	}
	_ = q.Enqueue(ev)
}

func assetEventContext(ev assets.AssetEvent) core.EventContext {
	context := core.EventContext{}
	context.Data.U32[0] = uint32(ev.Type)
	if ev.Removed {
		context.Data.U32[1] = 1
	}
	return context
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	key := context.Data.I32[0]
	if code == core.EVENT_CODE_KEY_PRESSED && key == platform.KeyEscape {
		e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	width, height := context.Data.U32[0], context.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.renderer.OnResize(width, height)
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return true
}

func (e *Engine) onAssetChanged(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if metadata.ResourceType(context.Data.U32[0]) == metadata.ResourceTypeShader && context.Data.U32[1] == 0 {
		core.LogDebug("shader changed: %v", sender)
		e.shadersDirty = true
	}
	return false
}
