package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// uniformBuffers holds one host visible view/projection block per swapchain
// image, each bound through its own descriptor set. The buffers stay mapped
// for their whole lifetime.
type uniformBuffers struct {
	buffers []*VulkanBuffer
	pool    *VulkanDescriptorPool
	sets    []vk.DescriptorSet
}

func newUniformBuffers(context *VulkanContext, layout vk.DescriptorSetLayout, imageCount uint32) (*uniformBuffers, error) {
	pool, err := NewDescriptorPool(context, vk.DescriptorTypeUniformBuffer, layout, imageCount)
	if err != nil {
		return nil, err
	}
	ub := &uniformBuffers{
		pool:    pool,
		buffers: make([]*VulkanBuffer, 0, imageCount),
		sets:    make([]vk.DescriptorSet, 0, imageCount),
	}

	for i := uint32(0); i < imageCount; i++ {
		buffer, err := BufferCreate(
			context,
			metadata.UboViewProjectionSize,
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			stagingMemoryFlags)
		if err != nil {
			ub.destroy(context)
			return nil, err
		}
		ub.buffers = append(ub.buffers, buffer)
		if _, err := buffer.Map(context); err != nil {
			ub.destroy(context)
			return nil, err
		}

		set, err := pool.Allocate(context)
		if err != nil {
			ub.destroy(context)
			return nil, err
		}
		writeUniformBufferSet(context, set, buffer.Handle, metadata.UboViewProjectionSize)
		ub.sets = append(ub.sets, set)
	}
	return ub, nil
}

// update copies ubo into the block of imageIndex.
func (ub *uniformBuffers) update(context *VulkanContext, imageIndex uint32, ubo *metadata.UboViewProjection) error {
	return ub.buffers[imageIndex].LoadData(context, 0, ubo.Bytes())
}

func (ub *uniformBuffers) destroy(context *VulkanContext) {
	for _, b := range ub.buffers {
		b.Destroy(context)
	}
	ub.buffers = nil
	ub.sets = nil
	if ub.pool != nil {
		ub.pool.Destroy(context)
		ub.pool = nil
	}
}
