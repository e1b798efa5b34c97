package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanContext owns every handle shared between the renderer's components.
// One is created per renderer and passed explicitly.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass
	Pipeline       *VulkanPipeline

	FramesInFlight uint32
}

// FindMemoryIndex picks the memory type for an allocation. See
// findMemoryTypeIndex.
func (vc *VulkanContext) FindMemoryIndex(typeBits uint32, want vk.MemoryPropertyFlags) (uint32, error) {
	return findMemoryTypeIndex(memoryTypeFlags(vc.Device.Memory), typeBits, want)
}
