package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
)

// findMemoryTypeIndex returns the first memory type that is allowed by
// typeBits and carries every flag in want.
func findMemoryTypeIndex(types []vk.MemoryPropertyFlags, typeBits uint32, want vk.MemoryPropertyFlags) (uint32, error) {
	for i, flags := range types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) != 0 && flags&want == want {
			return uint32(i), nil
		}
	}
	return 0, errors.Mark(
		errors.Newf("no memory type in mask %#b with properties %#x", typeBits, uint32(want)),
		core.ErrNoMemoryType)
}

func memoryTypeFlags(props vk.PhysicalDeviceMemoryProperties) []vk.MemoryPropertyFlags {
	flags := make([]vk.MemoryPropertyFlags, props.MemoryTypeCount)
	for i := range flags {
		t := props.MemoryTypes[i]
		t.Deref()
		flags[i] = t.PropertyFlags
	}
	return flags
}

// allocateMemory allocates device memory for the given requirements.
func allocateMemory(context *VulkanContext, req vk.MemoryRequirements, flags vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	index, err := context.FindMemoryIndex(req.MemoryTypeBits, flags)
	if err != nil {
		core.LogError(err.Error())
		return vk.NullDeviceMemory, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: index,
	}
	var memory vk.DeviceMemory
	if err := check(vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory), "vkAllocateMemory"); err != nil {
		return vk.NullDeviceMemory, err
	}
	return memory, nil
}
