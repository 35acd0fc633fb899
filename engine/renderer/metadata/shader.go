package metadata

/** @brief Data type of a single vertex attribute component. */
type ComponentType uint32

const (
	ComponentTypeUnknown ComponentType = iota
	ComponentTypeByte
	ComponentTypeUnsignedByte
	ComponentTypeShort
	ComponentTypeUnsignedShort
	ComponentTypeInt
	ComponentTypeUnsignedInt
	ComponentTypeHalfFloat
	ComponentTypeFloat
)

/** @brief Size in bytes of one component, or 0 for an unknown type. */
func (c ComponentType) Size() uint32 {
	switch c {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		return 1
	case ComponentTypeShort, ComponentTypeUnsignedShort, ComponentTypeHalfFloat:
		return 2
	case ComponentTypeInt, ComponentTypeUnsignedInt, ComponentTypeFloat:
		return 4
	}
	return 0
}

func (c ComponentType) String() string {
	switch c {
	case ComponentTypeByte:
		return "byte"
	case ComponentTypeUnsignedByte:
		return "ubyte"
	case ComponentTypeShort:
		return "short"
	case ComponentTypeUnsignedShort:
		return "ushort"
	case ComponentTypeInt:
		return "int"
	case ComponentTypeUnsignedInt:
		return "uint"
	case ComponentTypeHalfFloat:
		return "half"
	case ComponentTypeFloat:
		return "float"
	}
	return "unknown"
}

/**
 * @brief Layout of a single vertex attribute inside an interleaved vertex record.
 */
type VertexAttribute struct {
	/** @brief The attribute Name, as it appears in the shader. */
	Name string
	/** @brief The number of components per vertex (1-4). */
	ComponentCount int32
	/** @brief The data type of each component. */
	ComponentType ComponentType
	/** @brief Whether integer data is normalized to [0,1] or [-1,1]. */
	Normalized bool
	/** @brief The Offset in bytes of the first component inside the vertex record. */
	Offset uint32
}

/** @brief Size in bytes of the attribute inside a vertex record. */
func (a VertexAttribute) Size() uint32 {
	return uint32(a.ComponentCount) * a.ComponentType.Size()
}

/** @brief Location reported by a shader for an attribute or uniform it does not have. */
const InvalidLocation int32 = -1
