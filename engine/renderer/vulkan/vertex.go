package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// vertexBindingDescription describes the single interleaved vertex stream.
func vertexBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0, // Binding index
		Stride:    metadata.VertexSize,
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}
}

// vertexAttributeDescriptions matches the shader inputs at locations 0..2:
// position, color and texture coordinate.
func vertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   metadata.VertexPositionOffset,
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   metadata.VertexColorOffset,
		},
		{
			Location: 2,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   metadata.VertexTexCoordOffset,
		},
	}
}
