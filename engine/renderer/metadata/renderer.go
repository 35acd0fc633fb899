package metadata

/** @brief The device binding target a buffer object is attached to. */
type BufferTarget uint32

const (
	/** @brief Target is unknown. Default, but always invalid. */
	BufferTargetUnknown BufferTarget = iota
	/** @brief Buffer holds interleaved vertex data. */
	BufferTargetArray
	/** @brief Buffer holds index data for indexed draws. */
	BufferTargetElementArray
	/** @brief Buffer holds uniform block data. */
	BufferTargetUniform
)

func (t BufferTarget) String() string {
	switch t {
	case BufferTargetArray:
		return "array"
	case BufferTargetElementArray:
		return "element_array"
	case BufferTargetUniform:
		return "uniform"
	}
	return "unknown"
}

/**
 * @brief Hint describing how often the contents of a buffer are replaced.
 * Static data is uploaded once, stream data is replaced every frame or so.
 */
type BufferUsage uint32

const (
	BufferUsageUnknown BufferUsage = iota
	/** @brief Set once, drawn many times. */
	BufferUsageStaticDraw
	/** @brief Changed often, drawn many times. */
	BufferUsageDynamicDraw
	/** @brief Set once, drawn at most a few times. */
	BufferUsageStreamDraw
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageStaticDraw:
		return "static"
	case BufferUsageDynamicDraw:
		return "dynamic"
	case BufferUsageStreamDraw:
		return "stream"
	}
	return "unknown"
}

// BufferUsageFromString is the inverse of BufferUsage.String.
func BufferUsageFromString(s string) (BufferUsage, error) {
	switch s {
	case "static":
		return BufferUsageStaticDraw, nil
	case "dynamic":
		return BufferUsageDynamicDraw, nil
	case "stream":
		return BufferUsageStreamDraw, nil
	}
	return BufferUsageUnknown, ErrUnknownEnum("BufferUsage", s)
}

/** @brief A range, typically of memory */
type MemoryRange struct {
	/** @brief The Offset in bytes. */
	Offset uint64
	/** @brief The size in bytes. */
	Size uint64
}

/** @brief Returns true when the range [Offset, Offset+Size) ends at or before limit. */
func (m MemoryRange) Fits(limit uint64) bool {
	return m.Offset+m.Size <= limit
}
