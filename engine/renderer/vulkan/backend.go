package vulkan

import (
	"path/filepath"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/assets/meshfile"
	"github.com/spaghettifunk/leap/engine/config"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

const (
	vertexShaderName   = "vert.spv"
	fragmentShaderName = "frag.spv"
)

// SurfaceProvider is the window the renderer presents to.
type SurfaceProvider interface {
	GetInstanceProcAddress() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// FramebufferSize is the drawable size in pixels, zero when minimized.
	FramebufferSize() (uint32, uint32)
}

type VulkanRenderer struct {
	FrameNumber uint64

	config  config.RendererConfig
	surface SurfaceProvider
	assets  AssetSource
	context *VulkanContext

	// Objects living as long as the device, and objects rebuilt with the
	// swapchain. Both release in reverse creation order.
	deviceScope    *ResourceStack
	swapchainScope *ResourceStack

	uboLayout      vk.DescriptorSetLayout
	samplerLayout  vk.DescriptorSetLayout
	textures       *TextureRegistry
	uniforms       *uniformBuffers
	commandBuffers []*VulkanCommandBuffer
	frames         []frameSlot
	orchestrator   *FrameOrchestrator

	models []*Model
	ubo    metadata.UboViewProjection
}

func New(surface SurfaceProvider, assets AssetSource, cfg config.RendererConfig) *VulkanRenderer {
	return &VulkanRenderer{
		config:         cfg,
		surface:        surface,
		assets:         assets,
		context:        &VulkanContext{FramesInFlight: cfg.FramesInFlight},
		deviceScope:    NewResourceStack("device"),
		swapchainScope: NewResourceStack("swapchain"),
		ubo: metadata.UboViewProjection{
			Projection: mgl32.Ident4(),
			View:       mgl32.Ident4(),
		},
	}
}

func (vr *VulkanRenderer) Initialize(appName string, width, height uint32) error {
	procAddr := vr.surface.GetInstanceProcAddress()
	if procAddr == nil {
		err := errors.New("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		err = errors.Wrap(err, "failed to initialize vulkan loader")
		core.LogError(err.Error())
		return err
	}

	// TODO: custom allocator.
	vr.context.Allocator = nil
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	ctx := vr.context
	if err := InstanceCreate(ctx, appName, vr.surface.RequiredInstanceExtensions(), vr.config.Validation); err != nil {
		InstanceDestroy(ctx)
		return err
	}
	vr.deviceScope.Push("instance", func() { InstanceDestroy(ctx) })

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.surface.CreateSurface(ctx.Instance)
	if err != nil {
		err = errors.Wrap(err, "failed to create platform surface")
		core.LogError(err.Error())
		return err
	}
	ctx.Surface = surface
	vr.deviceScope.Push("surface", func() {
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	})
	core.LogDebug("Vulkan surface created.")

	err = DeviceCreate(ctx)
	vr.deviceScope.Push("device", func() { DeviceDestroy(ctx) })
	if err != nil {
		return err
	}

	if vr.uboLayout, err = NewDescriptorSetLayout(ctx, vk.DescriptorTypeUniformBuffer, vk.ShaderStageVertexBit); err != nil {
		return err
	}
	uboLayout := vr.uboLayout
	vr.deviceScope.Push("ubo set layout", func() {
		vk.DestroyDescriptorSetLayout(ctx.Device.LogicalDevice, uboLayout, ctx.Allocator)
	})
	if vr.samplerLayout, err = NewDescriptorSetLayout(ctx, vk.DescriptorTypeCombinedImageSampler, vk.ShaderStageFragmentBit); err != nil {
		return err
	}
	samplerLayout := vr.samplerLayout
	vr.deviceScope.Push("sampler set layout", func() {
		vk.DestroyDescriptorSetLayout(ctx.Device.LogicalDevice, samplerLayout, ctx.Allocator)
	})

	if vr.textures, err = NewTextureRegistry(ctx, vr.assets, vr.samplerLayout, vr.config.MaxObjects); err != nil {
		return err
	}
	textures := vr.textures
	vr.deviceScope.Push("textures", func() { textures.Destroy(ctx) })
	if err := vr.textures.CreateDefaultTexture(ctx); err != nil {
		return err
	}

	if vr.frames, err = newFrameSlots(ctx, vr.config.FramesInFlight); err != nil {
		return err
	}
	frames := vr.frames
	vr.deviceScope.Push("frame sync", func() { destroyFrameSlots(ctx, frames) })

	if err := vr.createSwapchainResources(); err != nil {
		return err
	}

	vr.orchestrator = NewFrameOrchestrator(&vulkanFrameDevice{r: vr}, vr.config.FramesInFlight)

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

// createSwapchainResources builds everything sized by or bound to the
// swapchain images. Shaders are read from disk each time, so a rebuild also
// picks up recompiled shaders.
func (vr *VulkanRenderer) createSwapchainResources() error {
	ctx := vr.context
	scope := vr.swapchainScope

	sc, err := SwapchainCreate(ctx, ctx.FramebufferWidth, ctx.FramebufferHeight)
	if err != nil {
		return err
	}
	ctx.Swapchain = sc
	scope.Push("swapchain", func() {
		sc.Destroy(ctx)
		ctx.Swapchain = nil
	})

	rp, err := RenderpassCreate(ctx, vr.config.ClearColor, 1.0, 0)
	if err != nil {
		return err
	}
	ctx.MainRenderpass = rp
	scope.Push("renderpass", func() {
		rp.Destroy(ctx)
		ctx.MainRenderpass = nil
	})

	if err := regenerateFramebuffers(ctx, sc, rp); err != nil {
		return err
	}
	scope.Push("framebuffers", func() { destroyFramebuffers(ctx, sc) })

	pipeline, err := vr.createPipeline()
	if err != nil {
		return err
	}
	ctx.Pipeline = pipeline
	scope.Push("pipeline", func() {
		pipeline.Destroy(ctx)
		ctx.Pipeline = nil
	})

	uniforms, err := newUniformBuffers(ctx, vr.uboLayout, sc.ImageCount)
	if err != nil {
		return err
	}
	vr.uniforms = uniforms
	scope.Push("uniform buffers", func() { uniforms.destroy(ctx) })

	pool := ctx.Device.GraphicsCommandPool
	vr.commandBuffers = make([]*VulkanCommandBuffer, 0, sc.ImageCount)
	scope.Push("command buffers", func() {
		for _, cb := range vr.commandBuffers {
			cb.Free(ctx, pool)
		}
		vr.commandBuffers = nil
	})
	for i := uint32(0); i < sc.ImageCount; i++ {
		cb, err := NewVulkanCommandBuffer(ctx, pool, true)
		if err != nil {
			return err
		}
		vr.commandBuffers = append(vr.commandBuffers, cb)
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) loadShader(name string) ([]uint32, error) {
	res, err := vr.assets.Load(metadata.ResourceTypeShader, name, nil)
	if err != nil {
		return nil, err
	}
	defer vr.assets.Unload(res)

	data, ok := res.Data.(*metadata.ShaderResourceData)
	if !ok {
		err := errors.Newf("shader %s has unexpected resource data %T", name, res.Data)
		core.LogError(err.Error())
		return nil, err
	}
	return data.Code, nil
}

func (vr *VulkanRenderer) createPipeline() (*VulkanPipeline, error) {
	ctx := vr.context
	stageDefs := []struct {
		name  string
		stage vk.ShaderStageFlagBits
	}{
		{vertexShaderName, vk.ShaderStageVertexBit},
		{fragmentShaderName, vk.ShaderStageFragmentBit},
	}

	stages := make([]*VulkanShaderStage, 0, len(stageDefs))
	// Modules are only needed while the pipeline is created.
	defer func() {
		for _, s := range stages {
			s.Destroy(ctx)
		}
	}()
	for _, def := range stageDefs {
		code, err := vr.loadShader(def.name)
		if err != nil {
			return nil, err
		}
		stage, err := NewShaderStage(ctx, code, def.stage)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	return NewMainPipeline(
		ctx,
		stages,
		[]vk.DescriptorSetLayout{vr.uboLayout, vr.samplerLayout},
		metadata.ParseFrontFace(vr.config.FrontFace))
}

// rebuildSwapchain recreates the swapchain scope at the current framebuffer
// size. It reports false, without touching anything, while the window has
// no area.
func (vr *VulkanRenderer) rebuildSwapchain() (bool, error) {
	ctx := vr.context
	width, height := vr.surface.FramebufferSize()
	if width == 0 || height == 0 {
		core.LogDebug("swapchain rebuild skipped, framebuffer is %dx%d", width, height)
		return false, nil
	}

	if err := check(vk.DeviceWaitIdle(ctx.Device.LogicalDevice), "vkDeviceWaitIdle"); err != nil {
		return false, err
	}
	vr.swapchainScope.Release()

	ctx.FramebufferWidth = width
	ctx.FramebufferHeight = height
	if err := DeviceDetectDepthFormat(ctx.Device); err != nil {
		return false, err
	}
	if err := vr.createSwapchainResources(); err != nil {
		return false, err
	}
	core.LogInfo("Swapchain rebuilt at %dx%d.", width, height)
	return true, nil
}

// Shutdown waits for the device to go idle and releases everything in
// reverse creation order.
func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device != nil && vr.context.Device.LogicalDevice != nil {
		if err := check(vk.DeviceWaitIdle(vr.context.Device.LogicalDevice), "vkDeviceWaitIdle"); err != nil {
			core.LogWarn("shutting down without an idle device")
		}
	}
	vr.swapchainScope.Release()
	vr.deviceScope.Release()
	vr.models = nil
	vr.orchestrator = nil
	return nil
}

// Resized records a new framebuffer size. The swapchain is rebuilt before
// the next frame is drawn.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	core.LogInfo("Vulkan renderer resized: w/h: %d/%d", width, height)
	if vr.orchestrator != nil {
		vr.orchestrator.RequestRebuild()
	}
}

// RequestRebuild schedules a swapchain scope rebuild, which also reloads the
// shaders.
func (vr *VulkanRenderer) RequestRebuild() {
	if vr.orchestrator != nil {
		vr.orchestrator.RequestRebuild()
	}
}

// loadMeshFile reads a mesh through the asset index, falling back to the
// path itself for files outside the assets directory.
func (vr *VulkanRenderer) loadMeshFile(path string) (*meshfile.File, error) {
	res, err := vr.assets.Load(metadata.ResourceTypeMesh, filepath.Base(path), nil)
	if errors.Is(err, core.ErrAssetNotFound) {
		return meshfile.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	defer vr.assets.Unload(res)

	file, ok := res.Data.(*meshfile.File)
	if !ok {
		return nil, errors.Mark(errors.Newf("mesh asset %s has no mesh data", res.Name), core.ErrMalformedMesh)
	}
	return file, nil
}

// CreateModel uploads every mesh of a binary mesh file and returns the
// index of the new model.
func (vr *VulkanRenderer) CreateModel(path string) (int, error) {
	file, err := vr.loadMeshFile(path)
	if err != nil {
		return 0, err
	}

	ctx := vr.context
	textureIDs, err := materialTextureIDs(file, func(name string) (int, error) {
		return vr.textures.CreateTexture(ctx, name)
	})
	if err != nil {
		return 0, err
	}

	meshes := make([]*Mesh, 0, len(file.Meshes))
	fail := func(err error) (int, error) {
		for _, m := range meshes {
			m.Destroy(ctx)
		}
		return 0, err
	}
	for _, m := range file.Meshes {
		textureID, err := meshTextureID(m.MaterialIndex, textureIDs)
		if err != nil {
			return fail(err)
		}
		mesh, err := NewMesh(ctx, m.Vertices, m.Indices, textureID)
		if err != nil {
			return fail(err)
		}
		meshes = append(meshes, mesh)
	}

	model := NewModel(meshes)
	vr.models = append(vr.models, model)
	vr.deviceScope.Push("model "+model.ID.String(), func() { model.Destroy(ctx) })

	core.LogInfo("Model %s loaded from %s: %d meshes.", model.ID, path, len(meshes))
	return len(vr.models) - 1, nil
}

// UpdateModel sets the transform pushed for every mesh of a model.
func (vr *VulkanRenderer) UpdateModel(index int, transform mgl32.Mat4) error {
	if index < 0 || index >= len(vr.models) {
		err := errors.Mark(errors.Newf("model %d does not exist, %d loaded", index, len(vr.models)), core.ErrModelNotFound)
		core.LogError(err.Error())
		return err
	}
	vr.models[index].Transform = transform
	return nil
}

// SetViewProjection sets the camera block uploaded with the next frame.
func (vr *VulkanRenderer) SetViewProjection(view, projection mgl32.Mat4) {
	vr.ubo.View = view
	vr.ubo.Projection = projection
}

func (vr *VulkanRenderer) Draw() error {
	return vr.orchestrator.Draw()
}
