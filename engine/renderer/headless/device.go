// Package headless implements the renderer device and shader interfaces in
// host memory. It follows OpenGL binding semantics closely enough to run the
// buffers without a context, and counts every call so tests can observe the
// traffic a buffer generates.
package headless

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
)

var ErrInjected = errors.New("injected device failure")

/** @brief Device capability limits reported by a headless device. */
type Limits struct {
	UniformBufferOffsetAlignment uint32
	MaxUniformBlockSize          uint32
}

// DefaultLimits matches common desktop drivers.
var DefaultLimits = Limits{
	UniformBufferOffsetAlignment: 256,
	MaxUniformBlockSize:          16384,
}

type buffer struct {
	data  []byte
	usage metadata.BufferUsage
}

/** @brief The state of one generic vertex attribute inside a vertex array. */
type AttribState struct {
	Enabled    bool
	Buffer     uint32
	Size       int32
	Type       metadata.ComponentType
	Normalized bool
	Stride     int32
	Offset     int
}

type vertexArray struct {
	elementBuffer uint32
	attribs       map[uint32]*AttribState
}

/** @brief A buffer range attached to an indexed binding slot. */
type Slot struct {
	Buffer uint32
	Offset int
	Size   int
}

/** @brief A recorded draw call. */
type DrawCall struct {
	Mode          metadata.DrawMode
	Count         int32
	IndexType     metadata.IndexType
	Offset        int
	Instances     int32
	VertexArray   uint32
	ElementBuffer uint32
}

/**
 * @brief An in-memory device. The zero value is not usable; use NewDevice.
 */
type Device struct {
	limits Limits

	nextHandle uint32
	buffers    map[uint32]*buffer
	arrays     map[uint32]*vertexArray

	boundArray  uint32
	targets     map[metadata.BufferTarget]uint32
	uniformSlot map[uint32]Slot

	calls map[string]int
	draws []DrawCall

	// FailGenBuffer makes the n-th GenBuffer call (1-based) fail. Zero disables it.
	FailGenBuffer int
	// FailGenVertexArray makes the n-th GenVertexArray call fail.
	FailGenVertexArray int
	// FailBufferData makes every BufferData call fail.
	FailBufferData bool
}

func NewDevice(limits Limits) *Device {
	d := &Device{
		limits:      limits,
		buffers:     make(map[uint32]*buffer),
		targets:     make(map[metadata.BufferTarget]uint32),
		uniformSlot: make(map[uint32]Slot),
		calls:       make(map[string]int),
	}
	// Vertex array 0 is the default object, as in compatibility contexts.
	d.arrays = map[uint32]*vertexArray{0: newVertexArray()}
	return d
}

func newVertexArray() *vertexArray {
	return &vertexArray{attribs: make(map[uint32]*AttribState)}
}

func (d *Device) record(name string) {
	d.calls[name]++
}

/** @brief The number of times the named device call was issued. */
func (d *Device) Calls(name string) int {
	return d.calls[name]
}

/** @brief The total number of device calls issued. */
func (d *Device) TotalCalls() int {
	total := 0
	for _, n := range d.calls {
		total += n
	}
	return total
}

func (d *Device) ResetCalls() {
	clear(d.calls)
	d.draws = nil
}

func (d *Device) Draws() []DrawCall {
	return slices.Clone(d.draws)
}

func (d *Device) UniformBufferOffsetAlignment() uint32 {
	d.record("UniformBufferOffsetAlignment")
	return d.limits.UniformBufferOffsetAlignment
}

func (d *Device) MaxUniformBlockSize() uint32 {
	d.record("MaxUniformBlockSize")
	return d.limits.MaxUniformBlockSize
}

func (d *Device) GenBuffer() (uint32, error) {
	d.record("GenBuffer")
	if d.FailGenBuffer > 0 && d.calls["GenBuffer"] == d.FailGenBuffer {
		return 0, fmt.Errorf("gen buffer: %w", ErrInjected)
	}
	d.nextHandle++
	d.buffers[d.nextHandle] = &buffer{}
	return d.nextHandle, nil
}

func (d *Device) DeleteBuffer(id uint32) {
	d.record("DeleteBuffer")
	if _, ok := d.buffers[id]; !ok {
		core.LogWarn("headless: delete of unknown buffer %d", id)
		return
	}
	delete(d.buffers, id)
	for target, bound := range d.targets {
		if bound == id {
			d.targets[target] = 0
		}
	}
	for index, slot := range d.uniformSlot {
		if slot.Buffer == id {
			delete(d.uniformSlot, index)
		}
	}
	for _, va := range d.arrays {
		if va.elementBuffer == id {
			va.elementBuffer = 0
		}
	}
}

func (d *Device) GenVertexArray() (uint32, error) {
	d.record("GenVertexArray")
	if d.FailGenVertexArray > 0 && d.calls["GenVertexArray"] == d.FailGenVertexArray {
		return 0, fmt.Errorf("gen vertex array: %w", ErrInjected)
	}
	d.nextHandle++
	d.arrays[d.nextHandle] = newVertexArray()
	return d.nextHandle, nil
}

func (d *Device) DeleteVertexArray(id uint32) {
	d.record("DeleteVertexArray")
	if id == 0 {
		return
	}
	if _, ok := d.arrays[id]; !ok {
		core.LogWarn("headless: delete of unknown vertex array %d", id)
		return
	}
	delete(d.arrays, id)
	if d.boundArray == id {
		d.boundArray = 0
	}
}

func (d *Device) BindBuffer(target metadata.BufferTarget, id uint32) {
	d.record("BindBuffer")
	if target == metadata.BufferTargetElementArray {
		// The element binding is vertex array state.
		d.arrays[d.boundArray].elementBuffer = id
		return
	}
	d.targets[target] = id
}

func (d *Device) BindVertexArray(id uint32) {
	d.record("BindVertexArray")
	if _, ok := d.arrays[id]; !ok {
		core.LogError("headless: bind of unknown vertex array %d", id)
		return
	}
	d.boundArray = id
}

/** @brief The buffer bound to target, or 0. */
func (d *Device) Bound(target metadata.BufferTarget) uint32 {
	if target == metadata.BufferTargetElementArray {
		return d.arrays[d.boundArray].elementBuffer
	}
	return d.targets[target]
}

/** @brief The bound vertex array, or 0. */
func (d *Device) BoundVertexArray() uint32 {
	return d.boundArray
}

func (d *Device) BufferData(target metadata.BufferTarget, size int, data []byte, usage metadata.BufferUsage) error {
	d.record("BufferData")
	if d.FailBufferData {
		return fmt.Errorf("buffer data: %w", ErrInjected)
	}
	b, err := d.boundBuffer(target)
	if err != nil {
		return err
	}
	b.data = make([]byte, size)
	if data != nil {
		copy(b.data, data[:size])
	}
	b.usage = usage
	return nil
}

func (d *Device) BufferSubData(target metadata.BufferTarget, offset int, data []byte) {
	d.record("BufferSubData")
	b, err := d.boundBuffer(target)
	if err != nil {
		core.LogError("headless: %s", err)
		return
	}
	if offset < 0 || offset+len(data) > len(b.data) {
		core.LogError("headless: sub data [%d, %d) outside buffer of %d bytes", offset, offset+len(data), len(b.data))
		return
	}
	copy(b.data[offset:], data)
}

func (d *Device) boundBuffer(target metadata.BufferTarget) (*buffer, error) {
	id := d.Bound(target)
	b, ok := d.buffers[id]
	if id == 0 || !ok {
		return nil, fmt.Errorf("no buffer bound to %s target", target)
	}
	return b, nil
}

// Like GL, indexed binds also replace the generic binding of target.
func (d *Device) BindBufferBase(target metadata.BufferTarget, index uint32, id uint32) {
	d.record("BindBufferBase")
	d.targets[target] = id
	if id == 0 {
		delete(d.uniformSlot, index)
		return
	}
	size := 0
	if b, ok := d.buffers[id]; ok {
		size = len(b.data)
	}
	d.uniformSlot[index] = Slot{Buffer: id, Offset: 0, Size: size}
}

func (d *Device) BindBufferRange(target metadata.BufferTarget, index uint32, id uint32, offset, size int) {
	d.record("BindBufferRange")
	d.targets[target] = id
	if id == 0 {
		delete(d.uniformSlot, index)
		return
	}
	if offset%int(max(d.limits.UniformBufferOffsetAlignment, 1)) != 0 {
		core.LogError("headless: range offset %d is not aligned to %d", offset, d.limits.UniformBufferOffsetAlignment)
	}
	d.uniformSlot[index] = Slot{Buffer: id, Offset: offset, Size: size}
}

/** @brief The range attached to uniform slot index, if any. */
func (d *Device) UniformSlot(index uint32) (Slot, bool) {
	s, ok := d.uniformSlot[index]
	return s, ok
}

func (d *Device) attrib(location uint32) *AttribState {
	va := d.arrays[d.boundArray]
	a, ok := va.attribs[location]
	if !ok {
		a = &AttribState{}
		va.attribs[location] = a
	}
	return a
}

func (d *Device) EnableVertexAttribArray(location uint32) {
	d.record("EnableVertexAttribArray")
	d.attrib(location).Enabled = true
}

func (d *Device) DisableVertexAttribArray(location uint32) {
	d.record("DisableVertexAttribArray")
	d.attrib(location).Enabled = false
}

func (d *Device) VertexAttribPointer(location uint32, size int32, xtype metadata.ComponentType, normalized bool, stride int32, offset int) {
	d.record("VertexAttribPointer")
	a := d.attrib(location)
	a.Buffer = d.targets[metadata.BufferTargetArray]
	a.Size = size
	a.Type = xtype
	a.Normalized = normalized
	a.Stride = stride
	a.Offset = offset
}

/** @brief The attribute state stored at location of the given vertex array. */
func (d *Device) Attrib(array uint32, location uint32) (AttribState, bool) {
	va, ok := d.arrays[array]
	if !ok {
		return AttribState{}, false
	}
	a, ok := va.attribs[location]
	if !ok {
		return AttribState{}, false
	}
	return *a, true
}

func (d *Device) DrawElements(mode metadata.DrawMode, count int32, xtype metadata.IndexType, offset int) {
	d.record("DrawElements")
	d.draw(mode, count, xtype, offset, 1)
}

func (d *Device) DrawElementsInstanced(mode metadata.DrawMode, count int32, xtype metadata.IndexType, offset int, instances int32) {
	d.record("DrawElementsInstanced")
	d.draw(mode, count, xtype, offset, instances)
}

func (d *Device) draw(mode metadata.DrawMode, count int32, xtype metadata.IndexType, offset int, instances int32) {
	d.draws = append(d.draws, DrawCall{
		Mode:          mode,
		Count:         count,
		IndexType:     xtype,
		Offset:        offset,
		Instances:     instances,
		VertexArray:   d.boundArray,
		ElementBuffer: d.arrays[d.boundArray].elementBuffer,
	})
}

/** @brief A copy of the device memory of the given buffer. */
func (d *Device) Contents(id uint32) []byte {
	b, ok := d.buffers[id]
	if !ok {
		return nil
	}
	return slices.Clone(b.data)
}

/** @brief The usage hint of the last allocation of the given buffer. */
func (d *Device) Usage(id uint32) metadata.BufferUsage {
	if b, ok := d.buffers[id]; ok {
		return b.usage
	}
	return metadata.BufferUsageUnknown
}

/** @brief Whether the given buffer handle is live. */
func (d *Device) IsBuffer(id uint32) bool {
	_, ok := d.buffers[id]
	return ok
}

/** @brief Whether the given vertex array handle is live. */
func (d *Device) IsVertexArray(id uint32) bool {
	_, ok := d.arrays[id]
	return ok && id != 0
}

/** @brief The number of live buffers and vertex arrays. */
func (d *Device) Live() (buffers, arrays int) {
	return len(d.buffers), len(d.arrays) - 1
}
