package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// commandEncoder is the subset of command buffer recording the scene needs.
type commandEncoder interface {
	Begin() error
	BeginRenderPass(renderpass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, clearValues []vk.ClearValue)
	BindPipeline(pipeline vk.Pipeline)
	PushConstants(layout vk.PipelineLayout, data []byte)
	BindVertexBuffer(buffer vk.Buffer)
	BindIndexBuffer(buffer vk.Buffer)
	BindDescriptorSets(layout vk.PipelineLayout, sets []vk.DescriptorSet)
	DrawIndexed(indexCount uint32)
	EndRenderPass()
	End() error
}

// sceneTarget is everything recordScene draws with for one swapchain image.
type sceneTarget struct {
	Renderpass  *VulkanRenderpass
	Framebuffer vk.Framebuffer
	Extent      vk.Extent2D
	Pipeline    *VulkanPipeline
	UniformSet  vk.DescriptorSet
	TextureSet  func(textureID int) vk.DescriptorSet
}

// recordScene records the whole frame: one render pass, one pipeline, every
// non-empty mesh of every model drawn with its model's transform.
func recordScene(enc commandEncoder, target *sceneTarget, models []*Model) error {
	if err := enc.Begin(); err != nil {
		return err
	}
	enc.BeginRenderPass(target.Renderpass.Handle, target.Framebuffer, target.Extent, target.Renderpass.clearValues())
	enc.BindPipeline(target.Pipeline.Handle)

	layout := target.Pipeline.PipelineLayout
	for _, model := range models {
		push := metadata.ModelPushConstant{Model: model.Transform}
		enc.PushConstants(layout, push.Bytes())

		for _, mesh := range model.Meshes {
			if mesh.Empty() {
				continue
			}
			enc.BindVertexBuffer(mesh.VertexBuffer.Handle)
			enc.BindIndexBuffer(mesh.IndexBuffer.Handle)
			enc.BindDescriptorSets(layout, []vk.DescriptorSet{
				target.UniformSet,
				target.TextureSet(mesh.TextureID),
			})
			enc.DrawIndexed(mesh.IndexCount)
		}
	}

	enc.EndRenderPass()
	return enc.End()
}

// vulkanEncoder records into a real command buffer.
type vulkanEncoder struct {
	cb *VulkanCommandBuffer
}

func (e *vulkanEncoder) Begin() error {
	return e.cb.Begin(false, false, false)
}

func (e *vulkanEncoder) BeginRenderPass(renderpass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, clearValues []vk.ClearValue) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderpass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(e.cb.Handle, &beginInfo, vk.SubpassContentsInline)
	e.cb.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (e *vulkanEncoder) BindPipeline(pipeline vk.Pipeline) {
	vk.CmdBindPipeline(e.cb.Handle, vk.PipelineBindPointGraphics, pipeline)
}

func (e *vulkanEncoder) PushConstants(layout vk.PipelineLayout, data []byte) {
	vk.CmdPushConstants(e.cb.Handle, layout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (e *vulkanEncoder) BindVertexBuffer(buffer vk.Buffer) {
	vk.CmdBindVertexBuffers(e.cb.Handle, 0, 1, []vk.Buffer{buffer}, []vk.DeviceSize{0})
}

func (e *vulkanEncoder) BindIndexBuffer(buffer vk.Buffer) {
	vk.CmdBindIndexBuffer(e.cb.Handle, buffer, 0, vk.IndexTypeUint32)
}

func (e *vulkanEncoder) BindDescriptorSets(layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(e.cb.Handle, vk.PipelineBindPointGraphics, layout, 0, uint32(len(sets)), sets, 0, nil)
}

func (e *vulkanEncoder) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(e.cb.Handle, indexCount, 1, 0, 0, 0)
}

func (e *vulkanEncoder) EndRenderPass() {
	vk.CmdEndRenderPass(e.cb.Handle)
	e.cb.State = COMMAND_BUFFER_STATE_RECORDING
}

func (e *vulkanEncoder) End() error {
	return e.cb.End()
}
