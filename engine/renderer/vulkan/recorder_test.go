package vulkan

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

type mockEncoder struct {
	calls  []string
	pushes [][]byte
}

func (e *mockEncoder) Begin() error {
	e.calls = append(e.calls, "begin")
	return nil
}

func (e *mockEncoder) BeginRenderPass(_ vk.RenderPass, _ vk.Framebuffer, extent vk.Extent2D, clearValues []vk.ClearValue) {
	e.calls = append(e.calls, fmt.Sprintf("begin pass %dx%d clears=%d", extent.Width, extent.Height, len(clearValues)))
}

func (e *mockEncoder) BindPipeline(vk.Pipeline) {
	e.calls = append(e.calls, "bind pipeline")
}

func (e *mockEncoder) PushConstants(_ vk.PipelineLayout, data []byte) {
	e.calls = append(e.calls, fmt.Sprintf("push %d", len(data)))
	e.pushes = append(e.pushes, append([]byte(nil), data...))
}

func (e *mockEncoder) BindVertexBuffer(vk.Buffer) {
	e.calls = append(e.calls, "bind vertices")
}

func (e *mockEncoder) BindIndexBuffer(vk.Buffer) {
	e.calls = append(e.calls, "bind indices")
}

func (e *mockEncoder) BindDescriptorSets(_ vk.PipelineLayout, sets []vk.DescriptorSet) {
	e.calls = append(e.calls, fmt.Sprintf("bind sets %d", len(sets)))
}

func (e *mockEncoder) DrawIndexed(indexCount uint32) {
	e.calls = append(e.calls, fmt.Sprintf("draw %d", indexCount))
}

func (e *mockEncoder) EndRenderPass() {
	e.calls = append(e.calls, "end pass")
}

func (e *mockEncoder) End() error {
	e.calls = append(e.calls, "end")
	return nil
}

func drawableMesh(indexCount uint32, textureID int) *Mesh {
	return &Mesh{
		VertexBuffer: &VulkanBuffer{},
		IndexBuffer:  &VulkanBuffer{},
		VertexCount:  3,
		IndexCount:   indexCount,
		TextureID:    textureID,
	}
}

func TestRecordSceneOrder(t *testing.T) {
	first := &Model{
		Meshes:    []*Mesh{drawableMesh(6, 1), {TextureID: 2}},
		Transform: mgl32.Translate3D(1, 2, 3),
	}
	second := &Model{
		Meshes:    []*Mesh{drawableMesh(3, 0)},
		Transform: mgl32.Ident4(),
	}

	var textureIDs []int
	target := &sceneTarget{
		Renderpass: &VulkanRenderpass{ClearColor: [4]float32{0, 0, 0.2, 1}, Depth: 1},
		Extent:     vk.Extent2D{Width: 800, Height: 600},
		Pipeline:   &VulkanPipeline{},
		TextureSet: func(id int) vk.DescriptorSet {
			textureIDs = append(textureIDs, id)
			return vk.NullDescriptorSet
		},
	}

	enc := &mockEncoder{}
	if err := recordScene(enc, target, []*Model{first, second}); err != nil {
		t.Fatalf("recordScene() error = %v", err)
	}

	want := []string{
		"begin",
		"begin pass 800x600 clears=2",
		"bind pipeline",
		"push 64",
		"bind vertices", "bind indices", "bind sets 2", "draw 6",
		"push 64",
		"bind vertices", "bind indices", "bind sets 2", "draw 3",
		"end pass",
		"end",
	}
	if !reflect.DeepEqual(enc.calls, want) {
		t.Errorf("calls =\n%v\nwant\n%v", enc.calls, want)
	}
	if !reflect.DeepEqual(textureIDs, []int{1, 0}) {
		t.Errorf("texture sets requested for %v, want [1 0]", textureIDs)
	}

	push := metadata.ModelPushConstant{Model: first.Transform}
	if !bytes.Equal(enc.pushes[0], push.Bytes()) {
		t.Errorf("first push does not carry the model transform")
	}
}

func TestRecordSceneNoModels(t *testing.T) {
	target := &sceneTarget{
		Renderpass: &VulkanRenderpass{},
		Pipeline:   &VulkanPipeline{},
		TextureSet: func(int) vk.DescriptorSet { return vk.NullDescriptorSet },
	}
	enc := &mockEncoder{}
	if err := recordScene(enc, target, nil); err != nil {
		t.Fatalf("recordScene() error = %v", err)
	}
	want := []string{"begin", "begin pass 0x0 clears=2", "bind pipeline", "end pass", "end"}
	if !reflect.DeepEqual(enc.calls, want) {
		t.Errorf("calls = %v, want %v", enc.calls, want)
	}
}
