package metadata

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

/** @brief Winding order that marks a triangle as front facing. */
type FrontFace int

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

// ParseFrontFace maps the configuration value ("ccw" or "cw") to a FrontFace.
func ParseFrontFace(s string) FrontFace {
	if s == "cw" {
		return FrontFaceClockwise
	}
	return FrontFaceCounterClockwise
}
