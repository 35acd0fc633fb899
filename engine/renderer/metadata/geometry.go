package metadata

/** @brief Primitive assembly mode for indexed draws. */
type DrawMode uint32

const (
	DrawModePoints DrawMode = iota
	DrawModeLines
	DrawModeLineLoop
	DrawModeLineStrip
	DrawModeTriangles
	DrawModeTriangleStrip
	DrawModeTriangleFan
)

func (m DrawMode) String() string {
	switch m {
	case DrawModePoints:
		return "points"
	case DrawModeLines:
		return "lines"
	case DrawModeLineLoop:
		return "line_loop"
	case DrawModeLineStrip:
		return "line_strip"
	case DrawModeTriangles:
		return "triangles"
	case DrawModeTriangleStrip:
		return "triangle_strip"
	case DrawModeTriangleFan:
		return "triangle_fan"
	}
	return "unknown"
}

/** @brief Type of the elements stored in an index buffer. */
type IndexType uint32

const (
	IndexTypeUnsignedShort IndexType = iota
	IndexTypeUnsignedInt
)

/** @brief Size in bytes of a single index. */
func (t IndexType) Size() uint32 {
	if t == IndexTypeUnsignedInt {
		return 4
	}
	return 2
}
