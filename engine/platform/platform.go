package platform

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
)

// Key codes the engine reacts to, as carried in EventContext.Data.I32[0].
const (
	KeyEscape = int32(glfw.KeyEscape)
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the GLFW window and translates its callbacks into engine
// events. It also provides the Vulkan surface the renderer presents to.
type Platform struct {
	Window *glfw.Window
	events *core.EventBus
}

func New(events *core.EventBus) *Platform {
	return &Platform{
		events: events,
	}
}

func (p *Platform) Startup(applicationName string, width, height uint32, resizable bool) error {
	if err := glfw.Init(); err != nil {
		err = errors.Wrap(err, "failed to initialize glfw")
		core.LogError(err.Error())
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		err := errors.New("glfw reports no Vulkan loader")
		core.LogError(err.Error())
		return err
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.
	glfw.WindowHint(glfw.Resizable, glfwBool(resizable))

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		err = errors.Wrap(err, "failed to create window")
		core.LogError(err.Error())
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events, firing their callbacks.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) ShouldClose() bool {
	return p.Window == nil || p.Window.ShouldClose()
}

func (p *Platform) GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		err = errors.Wrap(err, "vkCreateWindowSurface failed")
		core.LogError(err.Error())
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

// FramebufferSize returns the drawable size in pixels. It is 0x0 while the
// window is minimized.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := keyEventCode(action)
	if !ok {
		return
	}
	context := core.EventContext{}
	context.Data.I32[0] = int32(key)
	p.events.Fire(code, p, context)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.events.Fire(core.EVENT_CODE_RESIZED, p, resizeContext(width, height))
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, p, core.EventContext{})
}

// keyEventCode maps a GLFW key action to an engine event. Repeats are
// dropped.
func keyEventCode(action glfw.Action) (core.SystemEventCode, bool) {
	switch action {
	case glfw.Press:
		return core.EVENT_CODE_KEY_PRESSED, true
	case glfw.Release:
		return core.EVENT_CODE_KEY_RELEASED, true
	}
	return 0, false
}

func resizeContext(width, height int) core.EventContext {
	context := core.EventContext{}
	if width > 0 {
		context.Data.U32[0] = uint32(width)
	}
	if height > 0 {
		context.Data.U32[1] = uint32(height)
	}
	return context
}

func glfwBool(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
