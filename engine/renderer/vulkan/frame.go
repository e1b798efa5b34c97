package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
)

// frameDevice is what the orchestrator needs from the GPU. Slots index the
// frames in flight, images index the swapchain.
type frameDevice interface {
	// WaitFence blocks until the slot's fence is signaled.
	WaitFence(slot int) error
	ResetFence(slot int) error
	// AcquireImage returns core.ErrSwapchainOutOfDate when the swapchain
	// no longer matches the surface.
	AcquireImage(slot int) (uint32, error)
	Record(image uint32) error
	UpdateUniforms(image uint32) error
	Submit(slot int, image uint32) error
	// Present returns core.ErrSwapchainOutOfDate when the swapchain should
	// be rebuilt.
	Present(slot int, image uint32) error
	// Rebuild recreates everything sized by the swapchain. It reports false
	// when the surface has no area and nothing was rebuilt.
	Rebuild() (bool, error)
}

// FrameOrchestrator drives the per frame protocol over FramesInFlight slots.
type FrameOrchestrator struct {
	device         frameDevice
	framesInFlight int
	currentFrame   int
	// Slot whose submission last used each swapchain image.
	imagesInFlight map[uint32]int
	rebuildPending bool
}

func NewFrameOrchestrator(device frameDevice, framesInFlight uint32) *FrameOrchestrator {
	if framesInFlight == 0 {
		panic("frames in flight must be positive")
	}
	return &FrameOrchestrator{
		device:         device,
		framesInFlight: int(framesInFlight),
		imagesInFlight: make(map[uint32]int),
	}
}

// RequestRebuild makes the next Draw rebuild the swapchain before rendering.
func (fo *FrameOrchestrator) RequestRebuild() {
	fo.rebuildPending = true
}

func (fo *FrameOrchestrator) CurrentFrame() int {
	return fo.currentFrame
}

func (fo *FrameOrchestrator) rebuild() (bool, error) {
	ok, err := fo.device.Rebuild()
	if err != nil {
		return false, err
	}
	if !ok {
		// Nothing to draw into yet, try again next frame.
		fo.rebuildPending = true
		return false, nil
	}
	fo.rebuildPending = false
	fo.imagesInFlight = make(map[uint32]int)
	return true, nil
}

// Draw renders and presents one frame. A frame skipped because the
// swapchain had to be rebuilt, or the window has no area, is not an error.
func (fo *FrameOrchestrator) Draw() error {
	if fo.rebuildPending {
		if ok, err := fo.rebuild(); err != nil || !ok {
			return err
		}
	}

	slot := fo.currentFrame
	if err := fo.device.WaitFence(slot); err != nil {
		return err
	}

	image, err := fo.device.AcquireImage(slot)
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		// The fence is still signaled, so the next wait on this slot passes.
		_, err = fo.rebuild()
		return err
	}
	if err != nil {
		return err
	}

	if owner, ok := fo.imagesInFlight[image]; ok && owner != slot {
		if err := fo.device.WaitFence(owner); err != nil {
			return err
		}
	}
	fo.imagesInFlight[image] = slot

	if err := fo.device.ResetFence(slot); err != nil {
		return err
	}
	if err := fo.device.Record(image); err != nil {
		return err
	}
	if err := fo.device.UpdateUniforms(image); err != nil {
		return err
	}
	if err := fo.device.Submit(slot, image); err != nil {
		return err
	}

	err = fo.device.Present(slot, image)
	fo.currentFrame = (fo.currentFrame + 1) % fo.framesInFlight
	if errors.Is(err, core.ErrSwapchainOutOfDate) || fo.rebuildPending {
		_, err = fo.rebuild()
	}
	return err
}

// vulkanFrameDevice implements frameDevice on top of a VulkanRenderer.
type vulkanFrameDevice struct {
	r *VulkanRenderer
}

func (d *vulkanFrameDevice) WaitFence(slot int) error {
	_, err := d.r.frames[slot].InFlight.Wait(d.r.context, VULKAN_WAIT_FOREVER)
	return err
}

func (d *vulkanFrameDevice) ResetFence(slot int) error {
	return d.r.frames[slot].InFlight.Reset(d.r.context)
}

func (d *vulkanFrameDevice) AcquireImage(slot int) (uint32, error) {
	return d.r.context.Swapchain.AcquireNextImage(d.r.context, d.r.frames[slot].ImageAvailable)
}

func (d *vulkanFrameDevice) Record(image uint32) error {
	r := d.r
	target := &sceneTarget{
		Renderpass:  r.context.MainRenderpass,
		Framebuffer: r.context.Swapchain.Framebuffers[image].Handle,
		Extent:      r.context.Swapchain.Extent,
		Pipeline:    r.context.Pipeline,
		UniformSet:  r.uniforms.sets[image],
		TextureSet:  r.textures.DescriptorSet,
	}
	return recordScene(&vulkanEncoder{cb: r.commandBuffers[image]}, target, r.models)
}

func (d *vulkanFrameDevice) UpdateUniforms(image uint32) error {
	return d.r.uniforms.update(d.r.context, image, &d.r.ubo)
}

func (d *vulkanFrameDevice) Submit(slot int, image uint32) error {
	r := d.r
	frame := r.frames[slot]
	cb := r.commandBuffers[image]

	// Color writes wait for the image, everything before them can start.
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{frame.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.RenderFinished},
	}
	if err := check(vk.QueueSubmit(r.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frame.InFlight.Handle), "vkQueueSubmit"); err != nil {
		return err
	}
	frame.InFlight.MarkSubmitted()
	cb.UpdateSubmitted()
	return nil
}

func (d *vulkanFrameDevice) Present(slot int, image uint32) error {
	r := d.r
	err := r.context.Swapchain.Present(r.context, r.frames[slot].RenderFinished, image)
	if err == nil {
		r.FrameNumber++
	}
	return err
}

func (d *vulkanFrameDevice) Rebuild() (bool, error) {
	return d.r.rebuildSwapchain()
}
