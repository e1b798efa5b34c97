package engine

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/leap/engine/assets"
	"github.com/spaghettifunk/leap/engine/containers"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/platform"
	"github.com/spaghettifunk/leap/engine/renderer"
	"github.com/spaghettifunk/leap/engine/renderer/components"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

type fakeBackend struct {
	resized  [][2]uint32
	rebuilds int
}

func (f *fakeBackend) Initialize(string, uint32, uint32) error  { return nil }
func (f *fakeBackend) Shutdown() error                          { return nil }
func (f *fakeBackend) Resized(w, h uint32)                      { f.resized = append(f.resized, [2]uint32{w, h}) }
func (f *fakeBackend) RequestRebuild()                          { f.rebuilds++ }
func (f *fakeBackend) CreateModel(string) (int, error)          { return 0, nil }
func (f *fakeBackend) UpdateModel(int, mgl32.Mat4) error        { return nil }
func (f *fakeBackend) SetViewProjection(mgl32.Mat4, mgl32.Mat4) {}
func (f *fakeBackend) Draw() error                              { return nil }

func newTestEngine(backend *fakeBackend) *Engine {
	e := &Engine{
		gameInstance:  &Game{},
		events:        core.NewEventBus(),
		renderer:      renderer.New(backend, components.NewCamera(DefaultCameraPosition, DefaultCameraTarget)),
		pendingAssets: containers.NewRingQueue[assets.AssetEvent](4),
		width:         800,
		height:        600,
	}
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)
	e.isRunning.Store(true)
	return e
}

func keyContext(key int32) core.EventContext {
	ctx := core.EventContext{}
	ctx.Data.I32[0] = key
	return ctx
}

func sizeContext(w, h uint32) core.EventContext {
	ctx := core.EventContext{}
	ctx.Data.U32[0] = w
	ctx.Data.U32[1] = h
	return ctx
}

func TestEscapeQuits(t *testing.T) {
	e := newTestEngine(&fakeBackend{})
	e.events.Fire(core.EVENT_CODE_KEY_PRESSED, nil, keyContext('A'))
	if !e.isRunning.Load() {
		t.Fatal("engine stopped on a regular key")
	}
	e.events.Fire(core.EVENT_CODE_KEY_PRESSED, nil, keyContext(platform.KeyEscape))
	if e.isRunning.Load() {
		t.Fatal("engine still running after escape")
	}
}

func TestResizeSuspendsWhenMinimized(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEngine(backend)

	e.events.Fire(core.EVENT_CODE_RESIZED, nil, sizeContext(800, 600))
	if len(backend.resized) != 0 {
		t.Errorf("same size forwarded to the renderer: %v", backend.resized)
	}

	e.events.Fire(core.EVENT_CODE_RESIZED, nil, sizeContext(0, 0))
	if !e.isSuspended {
		t.Fatal("minimized window did not suspend")
	}
	if len(backend.resized) != 0 {
		t.Errorf("minimized size forwarded to the renderer: %v", backend.resized)
	}

	e.events.Fire(core.EVENT_CODE_RESIZED, nil, sizeContext(1024, 768))
	if e.isSuspended {
		t.Fatal("restored window still suspended")
	}
	if len(backend.resized) != 1 || backend.resized[0] != [2]uint32{1024, 768} {
		t.Errorf("renderer resizes = %v, want [[1024 768]]", backend.resized)
	}
	if w, h := e.GetFramebufferSize(); w != 1024 || h != 768 {
		t.Errorf("framebuffer size = %dx%d", w, h)
	}
}

func TestShaderChangesCoalesce(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEngine(backend)

	for _, ev := range []assets.AssetEvent{
		{Path: "shaders/vert.spv", Type: metadata.ResourceTypeShader},
		{Path: "shaders/frag.spv", Type: metadata.ResourceTypeShader},
		{Path: "textures/wood.png", Type: metadata.ResourceTypeTexture},
	} {
		enqueueDroppingOldest(e.pendingAssets, ev)
	}
	e.dispatchAssetEvents()
	if !e.shadersDirty {
		t.Fatal("shader change not noticed")
	}
	if !e.pendingAssets.IsEmpty() {
		t.Errorf("%d events left in the queue", e.pendingAssets.Len())
	}
}

func TestRemovedShaderIgnored(t *testing.T) {
	e := newTestEngine(&fakeBackend{})
	enqueueDroppingOldest(e.pendingAssets, assets.AssetEvent{
		Path: "shaders/old.spv", Type: metadata.ResourceTypeShader, Removed: true,
	})
	e.dispatchAssetEvents()
	if e.shadersDirty {
		t.Error("removed shader triggered a reload")
	}
}

func TestEnqueueDroppingOldest(t *testing.T) {
	q := containers.NewRingQueue[assets.AssetEvent](2)
	for _, p := range []string{"a", "b", "c"} {
		enqueueDroppingOldest(q, assets.AssetEvent{Path: p})
	}
	var got []string
	q.Each(func(ev assets.AssetEvent) { got = append(got, ev.Path) })
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("queue = %v, want [b c]", got)
	}
}
