package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags

	mapped unsafe.Pointer
}

const stagingMemoryFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// BufferCreate creates a buffer and binds memory of the first type that
// satisfies both the buffer's requirements and memoryFlags.
func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if size == 0 {
		err := errors.New("cannot create a zero sized buffer")
		core.LogError(err.Error())
		return nil, err
	}
	buffer := &VulkanBuffer{
		Size:  size,
		Usage: usage,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := check(vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle), "vkCreateBuffer"); err != nil {
		return nil, err
	}
	buffer.Handle = handle

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, handle, &req)
	req.Deref()

	memory, err := allocateMemory(context, req, memoryFlags)
	if err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.Memory = memory

	if err := check(vk.BindBufferMemory(context.Device.LogicalDevice, handle, memory, 0), "vkBindBufferMemory"); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vb.mapped != nil {
		vb.Unmap(context)
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	vb.Size = 0
}

// Map maps the whole buffer and keeps it mapped until Unmap or Destroy.
func (vb *VulkanBuffer) Map(context *VulkanContext) (unsafe.Pointer, error) {
	if vb.mapped != nil {
		return vb.mapped, nil
	}
	var data unsafe.Pointer
	if err := check(vk.MapMemory(context.Device.LogicalDevice, vb.Memory, 0, vk.DeviceSize(vb.Size), 0, &data), "vkMapMemory"); err != nil {
		return nil, err
	}
	vb.mapped = data
	return data, nil
}

func (vb *VulkanBuffer) Unmap(context *VulkanContext) {
	if vb.mapped == nil {
		return
	}
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	vb.mapped = nil
}

// LoadData copies data into host visible memory at offset. Memory is assumed
// coherent, so no flush follows.
func (vb *VulkanBuffer) LoadData(context *VulkanContext, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > vb.Size {
		err := errors.Newf("write of %d bytes at %d overflows buffer of %d bytes", len(data), offset, vb.Size)
		core.LogError(err.Error())
		return err
	}
	if vb.mapped != nil {
		vk.Memcopy(unsafe.Add(vb.mapped, offset), data)
		return nil
	}
	var ptr unsafe.Pointer
	if err := check(vk.MapMemory(context.Device.LogicalDevice, vb.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &ptr), "vkMapMemory"); err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	return nil
}

// BufferCopy copies size bytes from src to dst with a one-shot command
// buffer and waits for the transfer.
func BufferCopy(context *VulkanContext, src, dst vk.Buffer, size uint64) error {
	return SubmitSingleUse(context, func(cb *VulkanCommandBuffer) {
		region := vk.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      vk.DeviceSize(size),
		}
		vk.CmdCopyBuffer(cb.Handle, src, dst, 1, []vk.BufferCopy{region})
	})
}

// NewStagingBuffer creates a host visible transfer source holding data.
func NewStagingBuffer(context *VulkanContext, data []byte) (*VulkanBuffer, error) {
	staging, err := BufferCreate(context, uint64(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), stagingMemoryFlags)
	if err != nil {
		return nil, err
	}
	if err := staging.LoadData(context, 0, data); err != nil {
		staging.Destroy(context)
		return nil, err
	}
	return staging, nil
}

// BufferCreateDeviceLocal creates a device local buffer with the given usage and
// fills it through a staging buffer, which is destroyed afterwards.
func BufferCreateDeviceLocal(context *VulkanContext, usage vk.BufferUsageFlags, data []byte) (*VulkanBuffer, error) {
	staging, err := NewStagingBuffer(context, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	buffer, err := BufferCreate(
		context,
		uint64(len(data)),
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	if err := BufferCopy(context, staging.Handle, buffer.Handle, uint64(len(data))); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}
