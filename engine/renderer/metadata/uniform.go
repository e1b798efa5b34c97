package metadata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// UboViewProjection is the per swapchain image uniform block bound at set 0.
type UboViewProjection struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
}

const UboViewProjectionSize = uint64(unsafe.Sizeof(UboViewProjection{}))

// Bytes views the uniform block as raw bytes for a mapped memory copy.
func (u *UboViewProjection) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), UboViewProjectionSize)
}

// ModelPushConstant is the per model transform pushed to the vertex stage.
type ModelPushConstant struct {
	Model mgl32.Mat4
}

const ModelPushConstantSize = uint32(unsafe.Sizeof(ModelPushConstant{}))

// Bytes views the push constant as raw bytes.
func (p *ModelPushConstant) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), ModelPushConstantSize)
}
