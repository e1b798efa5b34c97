package metadata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the only vertex layout understood by the main pipeline. The field
// order and sizes are shared with the shaders and with the binary mesh files.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

const VertexSize = uint32(unsafe.Sizeof(Vertex{}))

// Byte offsets of the Vertex fields, used for the pipeline's attribute
// descriptions.
const (
	VertexPositionOffset = uint32(unsafe.Offsetof(Vertex{}.Position))
	VertexColorOffset    = uint32(unsafe.Offsetof(Vertex{}.Color))
	VertexTexCoordOffset = uint32(unsafe.Offsetof(Vertex{}.TexCoord))
)

// VerticesAsBytes views the vertex slice as raw bytes without copying.
func VerticesAsBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(VertexSize))
}

// IndicesAsBytes views the index slice as raw bytes without copying.
func IndicesAsBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}
