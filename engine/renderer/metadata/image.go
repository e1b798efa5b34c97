package metadata

// ImageResourceData holds a decoded image as tightly packed RGBA8 rows.
type ImageResourceData struct {
	Width  uint32
	Height uint32
	Pixels []uint8
}

// Size returns the byte size of the pixel data as uploaded to the GPU.
func (d *ImageResourceData) Size() uint64 {
	return uint64(d.Width) * uint64(d.Height) * 4
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

// ShaderResourceData is a SPIR-V module as 32-bit words.
type ShaderResourceData struct {
	Code []uint32
}
