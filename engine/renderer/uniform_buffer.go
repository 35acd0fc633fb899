package renderer

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
)

/** @brief Block index that addresses every block of a uniform buffer at once. */
const AllBlocks int = -1

/** @brief Returned by offset lookups for names that were never registered. */
const InvalidOffset int32 = -1

/**
 * @brief A uniform buffer partitioned into interchangeable blocks.
 *
 * Uniform buffers and shaders have a many-to-many relationship, connected
 * through a table of bind points. The buffer is associated with a bind point
 * and a shader associates that bind point with a uniform struct, which then
 * pulls its data from the active block of this buffer.
 *
 * Being bound (attached to a bind point) and being active (receiving writes)
 * are independent. Writes made while the buffer is not active, or while
 * auto-flush is off, are cached in the host mirror until the next flush.
 */
type UniformBlockBuffer struct {
	device Device

	/** @brief The device buffer; 0 if not allocated. */
	buffer uint32
	/** @brief The descriptive buffer name. */
	name string
	/** @brief The usage hint for whole-buffer uploads. */
	usage metadata.BufferUsage

	/** @brief The number of blocks assigned to the buffer. */
	blockCount uint32
	/** @brief The capacity of a single block. */
	blockSize uint32
	/** @brief The aligned distance between the start of two blocks. */
	blockStride uint32
	/** @brief The block the shader currently reads from. */
	activeBlock uint32
	/** @brief The bind point associated with this buffer (default 0). */
	bindPoint uint32

	bound  bool
	active bool

	mirror    []byte
	autoFlush bool
	dirty     bool

	/** @brief A mapping of struct variable names to their std140 offsets. */
	offsets map[string]uint32
}

type UniformOption func(*UniformBlockBuffer)

func WithUniformName(name string) UniformOption {
	return func(ub *UniformBlockBuffer) {
		ub.name = name
	}
}

func WithUniformUsage(usage metadata.BufferUsage) UniformOption {
	return func(ub *UniformBlockBuffer) {
		ub.usage = usage
	}
}

func WithAutoFlush(autoFlush bool) UniformOption {
	return func(ub *UniformBlockBuffer) {
		ub.autoFlush = autoFlush
	}
}

/**
 * @brief Creates an uninitialized uniform buffer. It holds no device
 * resources until Initialize succeeds.
 */
func NewUniformBlockBuffer(device Device, opts ...UniformOption) *UniformBlockBuffer {
	ub := &UniformBlockBuffer{
		device:  device,
		usage:   metadata.BufferUsageStreamDraw,
		offsets: make(map[string]uint32),
	}
	for _, opt := range opts {
		opt(ub)
	}
	if ub.name == "" {
		ub.name = uuid.NewString()
	}
	return ub
}

/**
 * @brief Creates and initializes a uniform buffer of blockCount blocks of
 * blockSize bytes each. Returns nil and the error on failure.
 */
func CreateUniformBlockBuffer(device Device, blockSize, blockCount uint32, opts ...UniformOption) (*UniformBlockBuffer, error) {
	ub := NewUniformBlockBuffer(device, opts...)
	if err := ub.Initialize(blockSize, blockCount); err != nil {
		return nil, err
	}
	return ub, nil
}

/**
 * @brief Allocates blockCount blocks of blockSize bytes on host and device.
 *
 * Each block is padded to the device's uniform offset alignment. If the
 * padded block exceeds the device's maximum uniform block size, or the
 * device refuses the allocation, the buffer is left with zero capacity and
 * no device resources.
 */
func (ub *UniformBlockBuffer) Initialize(blockSize, blockCount uint32) error {
	core.Assert(ub.buffer == 0, "uniform buffer %s is already initialized", ub.name)

	// Computed in 64 bits so that padding a huge block cannot wrap around.
	alignment := max(ub.device.UniformBufferOffsetAlignment(), 1)
	stride := AlignUp(uint64(blockSize), uint64(alignment))

	// Quit if the memory request is too high
	if limit := ub.device.MaxUniformBlockSize(); stride > uint64(limit) {
		ub.reset()
		err := fmt.Errorf("uniform buffer %s: block stride %d exceeds maximum of %d bytes: %w", ub.name, stride, limit, core.ErrCapacityExceeded)
		core.LogError(err.Error())
		return err
	}
	if blockCount > 0 && stride > math.MaxInt/uint64(blockCount) {
		ub.reset()
		err := fmt.Errorf("uniform buffer %s: %d blocks of %d bytes overflow the address space: %w", ub.name, blockCount, stride, core.ErrCapacityExceeded)
		core.LogError(err.Error())
		return err
	}

	buffer, err := ub.device.GenBuffer()
	if err != nil || buffer == 0 {
		ub.reset()
		err = fmt.Errorf("could not create uniform buffer %s: %v: %w", ub.name, err, core.ErrDeviceAllocation)
		core.LogError(err.Error())
		return err
	}

	total := int(stride) * int(blockCount)
	ub.device.BindBuffer(metadata.BufferTargetUniform, buffer)
	err = ub.device.BufferData(metadata.BufferTargetUniform, total, nil, ub.usage)
	ub.restoreWriteTarget()
	if err != nil {
		ub.device.DeleteBuffer(buffer)
		ub.reset()
		err = fmt.Errorf("could not allocate memory for uniform buffer %s: %v: %w", ub.name, err, core.ErrDeviceAllocation)
		core.LogError(err.Error())
		return err
	}

	ub.buffer = buffer
	ub.blockSize = blockSize
	ub.blockCount = blockCount
	ub.blockStride = uint32(stride)
	ub.mirror = make([]byte, total)
	ub.activeBlock = 0
	ub.dirty = false
	core.LogDebug("uniform buffer %s created: %d blocks, size %d, stride %d", ub.name, blockCount, blockSize, stride)
	return nil
}

func (ub *UniformBlockBuffer) reset() {
	ub.buffer = 0
	ub.blockCount = 0
	ub.blockSize = 0
	ub.blockStride = 0
	ub.activeBlock = 0
	ub.mirror = nil
	ub.dirty = false
	ub.bound = false
	ub.active = false
}

/**
 * @brief Releases the device buffer and the host mirror. The buffer must
 * not be used afterwards.
 */
func (ub *UniformBlockBuffer) Destroy() {
	if ub.buffer != 0 {
		if ub.bound {
			ub.device.BindBufferBase(metadata.BufferTargetUniform, ub.bindPoint, 0)
			ub.restoreWriteTarget()
		}
		ub.Deactivate()
		ub.device.DeleteBuffer(ub.buffer)
	}
	ub.reset()
	clear(ub.offsets)
	ub.bindPoint = 0
}

/** @brief The device buffer handle, or 0 if the buffer is not initialized. */
func (ub *UniformBlockBuffer) Buffer() uint32 { return ub.buffer }

func (ub *UniformBlockBuffer) Name() string { return ub.name }

func (ub *UniformBlockBuffer) BlockCount() uint32 { return ub.blockCount }

func (ub *UniformBlockBuffer) BlockSize() uint32 { return ub.blockSize }

func (ub *UniformBlockBuffer) BlockStride() uint32 { return ub.blockStride }

func (ub *UniformBlockBuffer) BindPoint() uint32 { return ub.bindPoint }

func (ub *UniformBlockBuffer) IsBound() bool { return ub.bound }

/**
 * @brief True when this buffer is the target of device writes. Activating
 * another buffer on the same device deactivates this one.
 */
func (ub *UniformBlockBuffer) IsActive() bool { return ub.active }

/** @brief True when the host mirror holds changes not yet pushed to the device. */
func (ub *UniformBlockBuffer) IsDirty() bool { return ub.dirty }

func (ub *UniformBlockBuffer) AutoFlush() bool { return ub.autoFlush }

/**
 * @brief Sets whether writes to an active buffer go to the device
 * immediately. Pending changes are not pushed by this call.
 */
func (ub *UniformBlockBuffer) SetAutoFlush(autoFlush bool) { ub.autoFlush = autoFlush }

/**
 * @brief Sets the bind point for this buffer.
 *
 * The buffer is removed from its previous bind point but is not attached
 * to the new one; that requires a call to Bind.
 */
func (ub *UniformBlockBuffer) SetBindPoint(point uint32) {
	ub.device.BindBufferBase(metadata.BufferTargetUniform, ub.bindPoint, 0)
	ub.restoreWriteTarget()
	ub.bound = false
	ub.bindPoint = point
}

/**
 * @brief Attaches this buffer to its bind point, exposing the active block.
 * When activate is true the buffer is also made active.
 *
 * This call is reentrant.
 */
func (ub *UniformBlockBuffer) Bind(activate bool) {
	core.Assert(ub.buffer != 0, "uniform buffer %s has not been initialized", ub.name)
	if activate {
		ub.Activate()
	}
	ub.bindRange()
	ub.bound = true
}

/**
 * @brief Removes this buffer from its bind point. Activation is unaffected.
 *
 * This call is reentrant.
 */
func (ub *UniformBlockBuffer) Unbind() {
	ub.device.BindBufferBase(metadata.BufferTargetUniform, ub.bindPoint, 0)
	ub.restoreWriteTarget()
	ub.bound = false
}

/**
 * @brief Makes this buffer the target of device writes. Pending changes are
 * pushed immediately when auto-flush is on.
 *
 * This does not attach the buffer to a bind point.
 */
func (ub *UniformBlockBuffer) Activate() {
	core.Assert(ub.buffer != 0, "uniform buffer %s has not been initialized", ub.name)
	bindingsOf(ub.device).claimUniform(ub)
	ub.device.BindBuffer(metadata.BufferTargetUniform, ub.buffer)
	ub.active = true
	if ub.autoFlush && ub.dirty {
		ub.upload()
	}
}

/**
 * @brief Stops this buffer from receiving device writes. Later writes are
 * cached until the buffer is reactivated or flushed; the shader keeps
 * reading the current device data.
 */
func (ub *UniformBlockBuffer) Deactivate() {
	if !ub.active {
		return
	}
	ub.device.BindBuffer(metadata.BufferTargetUniform, 0)
	ub.active = false
	if b := bindingsOf(ub.device); b.uniform == ub {
		b.uniform = nil
	}
	release(ub.device)
}

/** @brief The block the shader currently reads from. */
func (ub *UniformBlockBuffer) Block() uint32 { return ub.activeBlock }

/**
 * @brief Selects the block the shader reads from. The buffer must be bound.
 */
func (ub *UniformBlockBuffer) SetBlock(block uint32) {
	core.Assert(ub.bound, "uniform buffer %s is not bound", ub.name)
	core.Assert(block < ub.blockCount, "block %d is invalid for uniform buffer %s", block, ub.name)
	if ub.activeBlock != block {
		ub.activeBlock = block
		ub.bindRange()
	}
}

/** @brief The device memory range holding the given block. */
func (ub *UniformBlockBuffer) BlockRange(block uint32) metadata.MemoryRange {
	return metadata.MemoryRange{
		Offset: uint64(block) * uint64(ub.blockStride),
		Size:   uint64(ub.blockSize),
	}
}

func (ub *UniformBlockBuffer) bindRange() {
	r := ub.BlockRange(ub.activeBlock)
	ub.device.BindBufferRange(metadata.BufferTargetUniform, ub.bindPoint, ub.buffer, int(r.Offset), int(r.Size))
	ub.restoreWriteTarget()
}

// Indexed binds also replace the generic uniform target; this puts back
// the buffer that is active on the device, if any.
func (ub *UniformBlockBuffer) restoreWriteTarget() {
	var buffer uint32
	if active := activeUniform(ub.device); active != nil {
		buffer = active.buffer
	}
	ub.device.BindBuffer(metadata.BufferTargetUniform, buffer)
}

/**
 * @brief Pushes the entire host mirror to the device.
 *
 * The buffer does not need to be active; if it is not, it is bound to the
 * write target for the duration of the upload only.
 */
func (ub *UniformBlockBuffer) Flush() {
	core.Assert(ub.buffer != 0, "uniform buffer %s has not been initialized", ub.name)
	if ub.active {
		ub.upload()
		return
	}
	ub.device.BindBuffer(metadata.BufferTargetUniform, ub.buffer)
	ub.upload()
	ub.restoreWriteTarget()
}

func (ub *UniformBlockBuffer) upload() {
	if err := ub.device.BufferData(metadata.BufferTargetUniform, len(ub.mirror), ub.mirror, ub.usage); err != nil {
		core.LogError("uniform buffer %s: flush failed: %s", ub.name, err)
		return
	}
	ub.dirty = false
}

/**
 * @brief Associates a struct variable name with a byte offset inside a block.
 *
 * Naming offsets is optional sugar; values can always be written by offset.
 * The buffer does not need to be bound or active.
 */
func (ub *UniformBlockBuffer) SetOffset(name string, offset uint32) {
	ub.offsets[name] = offset
}

/** @brief Registers the offset of every field in the given std140 layout. */
func (ub *UniformBlockBuffer) SetOffsets(layout *Std140Layout) {
	for _, f := range layout.Fields {
		ub.offsets[f.Name] = f.Offset
	}
}

/** @brief The byte offset for name, or InvalidOffset if it was never set. */
func (ub *UniformBlockBuffer) Offset(name string) int32 {
	offset, ok := ub.offsets[name]
	if !ok {
		return InvalidOffset
	}
	return int32(offset)
}

/** @brief The names of every registered offset, sorted. */
func (ub *UniformBlockBuffer) Offsets() []string {
	return slices.Sorted(maps.Keys(ub.offsets))
}

/**
 * @brief Writes raw bytes at offset of the given block, or of every block
 * when block is AllBlocks.
 *
 * If the buffer is active and auto-flush is on, each touched range is sent
 * to the device immediately. Otherwise the buffer becomes dirty.
 */
func (ub *UniformBlockBuffer) SetUniformBytes(block int, offset uint32, data []byte) {
	core.Assert(ub.buffer != 0, "uniform buffer %s has not been initialized", ub.name)
	core.Assert(block == AllBlocks || (block >= 0 && uint32(block) < ub.blockCount), "block %d is invalid", block)
	core.Assert(offset < ub.blockSize, "offset %d is invalid", offset)
	core.Assert(metadata.MemoryRange{Offset: uint64(offset), Size: uint64(len(data))}.Fits(uint64(ub.blockSize)),
		"write of %d bytes at offset %d overruns block size %d", len(data), offset, ub.blockSize)

	immediate := ub.autoFlush && ub.active
	if !immediate {
		ub.dirty = true
	}
	if block != AllBlocks {
		ub.writeBlock(uint32(block), offset, data, immediate)
		return
	}
	for bl := uint32(0); bl < ub.blockCount; bl++ {
		ub.writeBlock(bl, offset, data, immediate)
	}
}

func (ub *UniformBlockBuffer) writeBlock(block, offset uint32, data []byte, immediate bool) {
	position := int(block)*int(ub.blockStride) + int(offset)
	copy(ub.mirror[position:], data)
	if immediate {
		ub.device.BufferSubData(metadata.BufferTargetUniform, position, ub.mirror[position:position+len(data)])
	}
}

/** @brief Writes float values at offset. See SetUniformBytes. */
func (ub *UniformBlockBuffer) SetUniformfv(block int, offset uint32, values []float32) {
	ub.SetUniformBytes(block, offset, float32Bytes(values))
}

/** @brief Writes int values at offset. See SetUniformBytes. */
func (ub *UniformBlockBuffer) SetUniformiv(block int, offset uint32, values []int32) {
	ub.SetUniformBytes(block, offset, int32Bytes(values))
}

/** @brief Writes unsigned int values at offset. See SetUniformBytes. */
func (ub *UniformBlockBuffer) SetUniformuiv(block int, offset uint32, values []uint32) {
	ub.SetUniformBytes(block, offset, uint32Bytes(values))
}

func (ub *UniformBlockBuffer) SetUniform1f(block int, offset uint32, value float32) {
	ub.SetUniformfv(block, offset, []float32{value})
}

func (ub *UniformBlockBuffer) SetUniform1i(block int, offset uint32, value int32) {
	ub.SetUniformiv(block, offset, []int32{value})
}

func (ub *UniformBlockBuffer) SetUniformVec2(block int, offset uint32, v mgl32.Vec2) {
	ub.SetUniformfv(block, offset, v[:])
}

func (ub *UniformBlockBuffer) SetUniformVec3(block int, offset uint32, v mgl32.Vec3) {
	ub.SetUniformfv(block, offset, v[:])
}

func (ub *UniformBlockBuffer) SetUniformVec4(block int, offset uint32, v mgl32.Vec4) {
	ub.SetUniformfv(block, offset, v[:])
}

// SetUniformMat3 writes the three columns of m, each padded to a vec4 as
// std140 lays out a mat3. It fills 48 bytes.
func (ub *UniformBlockBuffer) SetUniformMat3(block int, offset uint32, m mgl32.Mat3) {
	var columns [12]float32
	for col := 0; col < 3; col++ {
		copy(columns[col*4:col*4+3], m[col*3:col*3+3])
	}
	ub.SetUniformfv(block, offset, columns[:])
}

// SetUniformMat4 writes m in column-major order, as std140 expects.
func (ub *UniformBlockBuffer) SetUniformMat4(block int, offset uint32, m mgl32.Mat4) {
	ub.SetUniformfv(block, offset, m[:])
}

func (ub *UniformBlockBuffer) mustOffset(name string) uint32 {
	offset, ok := ub.offsets[name]
	core.Assert(ok, "uniform buffer %s has no offset named %s", ub.name, name)
	return offset
}

/** @brief Writes raw bytes at the offset registered for name. */
func (ub *UniformBlockBuffer) SetUniformBytesByName(block int, name string, data []byte) {
	ub.SetUniformBytes(block, ub.mustOffset(name), data)
}

func (ub *UniformBlockBuffer) SetUniformfvByName(block int, name string, values []float32) {
	ub.SetUniformfv(block, ub.mustOffset(name), values)
}

func (ub *UniformBlockBuffer) SetUniformivByName(block int, name string, values []int32) {
	ub.SetUniformiv(block, ub.mustOffset(name), values)
}

func (ub *UniformBlockBuffer) SetUniformVec4ByName(block int, name string, v mgl32.Vec4) {
	ub.SetUniformVec4(block, ub.mustOffset(name), v)
}

func (ub *UniformBlockBuffer) SetUniformMat3ByName(block int, name string, m mgl32.Mat3) {
	ub.SetUniformMat3(block, ub.mustOffset(name), m)
}

func (ub *UniformBlockBuffer) SetUniformMat4ByName(block int, name string, m mgl32.Mat4) {
	ub.SetUniformMat4(block, ub.mustOffset(name), m)
}

/**
 * @brief Returns a copy of size bytes at offset of the given block, as held
 * in the host mirror.
 */
func (ub *UniformBlockBuffer) UniformBytes(block uint32, offset, size uint32) []byte {
	core.Assert(block < ub.blockCount, "block %d is invalid", block)
	core.Assert(metadata.MemoryRange{Offset: uint64(offset), Size: uint64(size)}.Fits(uint64(ub.blockStride)), "read of %d bytes at offset %d is out of range", size, offset)
	position := int(block)*int(ub.blockStride) + int(offset)
	return slices.Clone(ub.mirror[position : position+int(size)])
}

/** @brief Reads count float values at offset of the given block from the host mirror. */
func (ub *UniformBlockBuffer) UniformFloats(block uint32, offset uint32, count int) []float32 {
	return bytesFloat32(ub.UniformBytes(block, offset, uint32(count)*4))
}
