package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanShaderStage represents a single shader stage.
type VulkanShaderStage struct {
	// The internal shader module Handle.
	Handle vk.ShaderModule
	// The pipeline shader stage creation info.
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// shaderCodeSize is the SPIR-V size in bytes.
func shaderCodeSize(code []uint32) uint64 {
	return uint64(len(code)) * 4
}

// NewShaderStage creates a module from SPIR-V words with "main" as the entry
// point.
func NewShaderStage(context *VulkanContext, code []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: shaderCodeSize(code),
		PCode:    code,
	}

	var handle vk.ShaderModule
	if err := check(vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle), "vkCreateShaderModule"); err != nil {
		return nil, err
	}

	return &VulkanShaderStage{
		Handle: handle,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
