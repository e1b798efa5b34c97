package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/leap/engine/assets/meshfile"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// Mesh is an indexed triangle list resident in device local memory. A mesh
// built from empty arrays owns no buffers and is never drawn.
type Mesh struct {
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	VertexCount  uint32
	IndexCount   uint32
	TextureID    int
}

// Model groups the meshes of one loaded file under a single transform.
type Model struct {
	ID        uuid.UUID
	Meshes    []*Mesh
	Transform mgl32.Mat4
}

func NewMesh(context *VulkanContext, vertices []metadata.Vertex, indices []uint32, textureID int) (*Mesh, error) {
	mesh := &Mesh{
		VertexCount: uint32(len(vertices)),
		IndexCount:  uint32(len(indices)),
		TextureID:   textureID,
	}
	if mesh.Empty() {
		return mesh, nil
	}

	vb, err := BufferCreateDeviceLocal(context, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), metadata.VerticesAsBytes(vertices))
	if err != nil {
		return nil, err
	}
	mesh.VertexBuffer = vb

	ib, err := BufferCreateDeviceLocal(context, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), metadata.IndicesAsBytes(indices))
	if err != nil {
		mesh.Destroy(context)
		return nil, err
	}
	mesh.IndexBuffer = ib
	return mesh, nil
}

// Empty reports whether the mesh has nothing to draw.
func (m *Mesh) Empty() bool {
	return m.VertexCount == 0 || m.IndexCount == 0
}

func (m *Mesh) Destroy(context *VulkanContext) {
	if m.IndexBuffer != nil {
		m.IndexBuffer.Destroy(context)
		m.IndexBuffer = nil
	}
	if m.VertexBuffer != nil {
		m.VertexBuffer.Destroy(context)
		m.VertexBuffer = nil
	}
}

func NewModel(meshes []*Mesh) *Model {
	return &Model{
		ID:        uuid.New(),
		Meshes:    meshes,
		Transform: mgl32.Ident4(),
	}
}

func (m *Model) Destroy(context *VulkanContext) {
	for _, mesh := range m.Meshes {
		mesh.Destroy(context)
	}
	m.Meshes = nil
}

// materialTextureIDs maps every material of a mesh file to a texture slot.
// Materials without a diffuse texture use slot 0.
func materialTextureIDs(file *meshfile.File, createTexture func(name string) (int, error)) ([]int, error) {
	ids := make([]int, len(file.Materials))
	for i, name := range file.Materials {
		if name == "" {
			continue
		}
		id, err := createTexture(name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// meshTextureID resolves the material index stored with a mesh.
func meshTextureID(materialIndex uint32, textureIDs []int) (int, error) {
	if int(materialIndex) >= len(textureIDs) {
		err := errors.Mark(
			errors.Newf("material index %d out of range, file has %d materials", materialIndex, len(textureIDs)),
			core.ErrInvalidMaterialIndex)
		core.LogError(err.Error())
		return 0, err
	}
	return textureIDs[materialIndex], nil
}
