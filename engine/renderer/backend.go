package renderer

import "github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"

/**
 * @brief The device object API the buffers are built on. All calls are
 * synchronous and must be issued from the rendering thread.
 *
 * Handles are device-assigned; 0 is never a valid handle and binding 0
 * clears a target.
 */
type Device interface {
	/** @brief Minimum offset alignment, in bytes, of a uniform buffer range bind. */
	UniformBufferOffsetAlignment() uint32
	/** @brief Maximum size, in bytes, of a single uniform block. */
	MaxUniformBlockSize() uint32

	GenBuffer() (uint32, error)
	DeleteBuffer(buffer uint32)
	GenVertexArray() (uint32, error)
	DeleteVertexArray(array uint32)

	BindBuffer(target metadata.BufferTarget, buffer uint32)
	BindVertexArray(array uint32)

	/**
	 * @brief (Re)allocates the buffer bound to target with size bytes. When data
	 * is not nil its first size bytes are copied in.
	 */
	BufferData(target metadata.BufferTarget, size int, data []byte, usage metadata.BufferUsage) error
	/** @brief Replaces len(data) bytes at offset of the buffer bound to target. */
	BufferSubData(target metadata.BufferTarget, offset int, data []byte)

	/** @brief Attaches the whole buffer to slot index of the indexed target. */
	BindBufferBase(target metadata.BufferTarget, index uint32, buffer uint32)
	/** @brief Attaches [offset, offset+size) of the buffer to slot index. */
	BindBufferRange(target metadata.BufferTarget, index uint32, buffer uint32, offset, size int)

	EnableVertexAttribArray(location uint32)
	DisableVertexAttribArray(location uint32)
	VertexAttribPointer(location uint32, size int32, xtype metadata.ComponentType, normalized bool, stride int32, offset int)

	DrawElements(mode metadata.DrawMode, count int32, xtype metadata.IndexType, offset int)
	DrawElementsInstanced(mode metadata.DrawMode, count int32, xtype metadata.IndexType, offset int, instances int32)
}

/**
 * @brief A compiled and linked shader program. The buffers never own one;
 * they only bind it and query locations by name.
 */
type Shader interface {
	Bind()
	/** @brief Location of the named vertex attribute, or metadata.InvalidLocation. */
	AttributeLocation(name string) int32
	/** @brief Location of the named uniform, or metadata.InvalidLocation. */
	UniformLocation(name string) int32
}
