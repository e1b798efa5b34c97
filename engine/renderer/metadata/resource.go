package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Compiled SPIR-V shader stage. */
	ResourceTypeShader
	/** @brief Image file decoded into a texture. */
	ResourceTypeTexture
	/** @brief Binary mesh file produced by meshc. */
	ResourceTypeMesh
	/** @brief Source model consumed by meshc (obj/mtl). */
	ResourceTypeModelSource
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeTexture:
		return "texture"
	case ResourceTypeMesh:
		return "mesh"
	case ResourceTypeModelSource:
		return "model-source"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The kind of resource. */
	Type ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}
