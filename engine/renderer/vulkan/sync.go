package vulkan

import (
	vk "github.com/goki/vulkan"
)

// frameSlot is the synchronisation set of one frame in flight.
type frameSlot struct {
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       *VulkanFence
}

func newSemaphore(context *VulkanContext) (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := check(vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &semaphore), "vkCreateSemaphore"); err != nil {
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}

// newFrameSlots creates count slots. Fences start signaled so the first wait
// on each slot returns immediately.
func newFrameSlots(context *VulkanContext, count uint32) ([]frameSlot, error) {
	slots := make([]frameSlot, count)
	for i := range slots {
		var err error
		if slots[i].ImageAvailable, err = newSemaphore(context); err != nil {
			destroyFrameSlots(context, slots)
			return nil, err
		}
		if slots[i].RenderFinished, err = newSemaphore(context); err != nil {
			destroyFrameSlots(context, slots)
			return nil, err
		}
		if slots[i].InFlight, err = NewFence(context, true); err != nil {
			destroyFrameSlots(context, slots)
			return nil, err
		}
	}
	return slots, nil
}

func destroyFrameSlots(context *VulkanContext, slots []frameSlot) {
	device := context.Device.LogicalDevice
	for i := range slots {
		if slots[i].ImageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(device, slots[i].ImageAvailable, context.Allocator)
			slots[i].ImageAvailable = vk.NullSemaphore
		}
		if slots[i].RenderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(device, slots[i].RenderFinished, context.Allocator)
			slots[i].RenderFinished = vk.NullSemaphore
		}
		if slots[i].InFlight != nil {
			slots[i].InFlight.Destroy(context)
			slots[i].InFlight = nil
		}
	}
}
