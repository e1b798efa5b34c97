package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
)

// descriptorBudget tracks how many sets a pool can still hand out, so the
// exhausted case is reported before the driver is asked.
type descriptorBudget struct {
	capacity uint32
	used     uint32
}

func (b *descriptorBudget) reserve() error {
	if b.used >= b.capacity {
		return errors.Mark(errors.Newf("descriptor pool capacity %d reached", b.capacity), core.ErrDescriptorPoolExhausted)
	}
	b.used++
	return nil
}

func (b *descriptorBudget) release() {
	if b.used > 0 {
		b.used--
	}
}

// descriptorSets is the part of a descriptor pool the texture registry
// needs.
type descriptorSets interface {
	Allocate(context *VulkanContext) (vk.DescriptorSet, error)
	Free(context *VulkanContext, set vk.DescriptorSet)
	Destroy(context *VulkanContext)
}

// VulkanDescriptorPool is a pool of sets of a single descriptor type, all
// allocated with the same layout.
type VulkanDescriptorPool struct {
	Handle vk.DescriptorPool
	Layout vk.DescriptorSetLayout
	Type   vk.DescriptorType

	budget descriptorBudget
}

// NewDescriptorSetLayout creates a layout with one binding of descriptorType
// at binding 0, visible to stage.
func NewDescriptorSetLayout(context *VulkanContext, descriptorType vk.DescriptorType, stage vk.ShaderStageFlagBits) (vk.DescriptorSetLayout, error) {
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(stage),
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

// NewDescriptorPool creates a pool able to hold capacity sets of layout.
func NewDescriptorPool(context *VulkanContext, descriptorType vk.DescriptorType, layout vk.DescriptorSetLayout, capacity uint32) (*VulkanDescriptorPool, error) {
	if capacity == 0 {
		err := errors.New("descriptor pool capacity must be positive")
		core.LogError(err.Error())
		return nil, err
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       capacity,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            descriptorType,
			DescriptorCount: capacity,
		}},
	}
	var handle vk.DescriptorPool
	if err := check(vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &handle), "vkCreateDescriptorPool"); err != nil {
		return nil, err
	}
	return &VulkanDescriptorPool{
		Handle: handle,
		Layout: layout,
		Type:   descriptorType,
		budget: descriptorBudget{capacity: capacity},
	}, nil
}

// Allocate hands out one set. An exhausted pool yields an error marked
// core.ErrDescriptorPoolExhausted.
func (p *VulkanDescriptorPool) Allocate(context *VulkanContext) (vk.DescriptorSet, error) {
	if err := p.budget.reserve(); err != nil {
		core.LogError(err.Error())
		return vk.NullDescriptorSet, err
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{p.Layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if err := check(vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]), "vkAllocateDescriptorSets"); err != nil {
		p.budget.release()
		return vk.NullDescriptorSet, err
	}
	return sets[0], nil
}

// Free returns one set to the pool and its slot to the budget.
func (p *VulkanDescriptorPool) Free(context *VulkanContext, set vk.DescriptorSet) {
	if set != vk.NullDescriptorSet && p.Handle != vk.NullDescriptorPool {
		if err := check(vk.FreeDescriptorSets(context.Device.LogicalDevice, p.Handle, 1, &set), "vkFreeDescriptorSets"); err != nil {
			core.LogWarn(err.Error())
		}
	}
	p.budget.release()
}

// Destroy frees the pool and every set allocated from it. The layout is
// owned by the caller.
func (p *VulkanDescriptorPool) Destroy(context *VulkanContext) {
	if p.Handle != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, p.Handle, context.Allocator)
		p.Handle = vk.NullDescriptorPool
	}
	p.budget.used = 0
}

func writeUniformBufferSet(context *VulkanContext, set vk.DescriptorSet, buffer vk.Buffer, size uint64) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer,
			Offset: 0,
			Range:  vk.DeviceSize(size),
		}},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func writeImageSamplerSet(context *VulkanContext, set vk.DescriptorSet, view vk.ImageView, sampler vk.Sampler) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
