// Package opengl implements the renderer device on top of an OpenGL 4.1 core
// context. A context must be current on the calling thread before Init.
package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
)

type Device struct {
	alignment uint32
	maxBlock  uint32
}

/**
 * @brief Loads the OpenGL function pointers and queries the device limits
 * the buffers depend on.
 */
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		core.LogError("failed to initialize OpenGL: %s", err)
		return nil, err
	}
	core.LogInfo("OpenGL %s (%s)", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	var value int32
	d := &Device{}
	gl.GetIntegerv(gl.UNIFORM_BUFFER_OFFSET_ALIGNMENT, &value)
	d.alignment = uint32(value)
	gl.GetIntegerv(gl.MAX_UNIFORM_BLOCK_SIZE, &value)
	d.maxBlock = uint32(value)
	return d, nil
}

func (d *Device) UniformBufferOffsetAlignment() uint32 { return d.alignment }

func (d *Device) MaxUniformBlockSize() uint32 { return d.maxBlock }

func (d *Device) GenBuffer() (uint32, error) {
	var id uint32
	gl.GenBuffers(1, &id)
	if id == 0 {
		return 0, lastError("glGenBuffers")
	}
	return id, nil
}

func (d *Device) DeleteBuffer(id uint32) {
	gl.DeleteBuffers(1, &id)
}

func (d *Device) GenVertexArray() (uint32, error) {
	var id uint32
	gl.GenVertexArrays(1, &id)
	if id == 0 {
		return 0, lastError("glGenVertexArrays")
	}
	return id, nil
}

func (d *Device) DeleteVertexArray(id uint32) {
	gl.DeleteVertexArrays(1, &id)
}

func (d *Device) BindBuffer(target metadata.BufferTarget, id uint32) {
	gl.BindBuffer(glTarget(target), id)
}

func (d *Device) BindVertexArray(id uint32) {
	gl.BindVertexArray(id)
}

func (d *Device) BufferData(target metadata.BufferTarget, size int, data []byte, usage metadata.BufferUsage) error {
	if data == nil || size == 0 {
		gl.BufferData(glTarget(target), size, nil, glUsage(usage))
	} else {
		gl.BufferData(glTarget(target), size, gl.Ptr(&data[0]), glUsage(usage))
	}
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("glBufferData: %s", errorName(code))
	}
	return nil
}

func (d *Device) BufferSubData(target metadata.BufferTarget, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BufferSubData(glTarget(target), offset, len(data), gl.Ptr(&data[0]))
}

func (d *Device) BindBufferBase(target metadata.BufferTarget, index uint32, id uint32) {
	gl.BindBufferBase(glTarget(target), index, id)
}

func (d *Device) BindBufferRange(target metadata.BufferTarget, index uint32, id uint32, offset, size int) {
	gl.BindBufferRange(glTarget(target), index, id, offset, size)
}

func (d *Device) EnableVertexAttribArray(location uint32) {
	gl.EnableVertexAttribArray(location)
}

func (d *Device) DisableVertexAttribArray(location uint32) {
	gl.DisableVertexAttribArray(location)
}

func (d *Device) VertexAttribPointer(location uint32, size int32, xtype metadata.ComponentType, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(location, size, glComponentType(xtype), normalized, stride, uintptr(offset))
}

func (d *Device) DrawElements(mode metadata.DrawMode, count int32, xtype metadata.IndexType, offset int) {
	gl.DrawElementsWithOffset(glDrawMode(mode), count, glIndexType(xtype), uintptr(offset))
}

func (d *Device) DrawElementsInstanced(mode metadata.DrawMode, count int32, xtype metadata.IndexType, offset int, instances int32) {
	gl.DrawElementsInstanced(glDrawMode(mode), count, glIndexType(xtype), gl.PtrOffset(offset), instances)
}

// Clear clears the color buffer of the default framebuffer.
func (d *Device) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *Device) Viewport(width, height uint32) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func lastError(call string) error {
	return fmt.Errorf("%s: %s", call, errorName(gl.GetError()))
}

func errorName(code uint32) string {
	switch code {
	case gl.NO_ERROR:
		return "GL_NO_ERROR"
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	}
	return fmt.Sprintf("GL error 0x%x", code)
}

func glTarget(t metadata.BufferTarget) uint32 {
	switch t {
	case metadata.BufferTargetArray:
		return gl.ARRAY_BUFFER
	case metadata.BufferTargetElementArray:
		return gl.ELEMENT_ARRAY_BUFFER
	case metadata.BufferTargetUniform:
		return gl.UNIFORM_BUFFER
	}
	core.Assert(false, "unexpected buffer target %d", t)
	return 0
}

func glUsage(u metadata.BufferUsage) uint32 {
	switch u {
	case metadata.BufferUsageStaticDraw:
		return gl.STATIC_DRAW
	case metadata.BufferUsageDynamicDraw:
		return gl.DYNAMIC_DRAW
	}
	return gl.STREAM_DRAW
}

func glComponentType(c metadata.ComponentType) uint32 {
	switch c {
	case metadata.ComponentTypeByte:
		return gl.BYTE
	case metadata.ComponentTypeUnsignedByte:
		return gl.UNSIGNED_BYTE
	case metadata.ComponentTypeShort:
		return gl.SHORT
	case metadata.ComponentTypeUnsignedShort:
		return gl.UNSIGNED_SHORT
	case metadata.ComponentTypeInt:
		return gl.INT
	case metadata.ComponentTypeUnsignedInt:
		return gl.UNSIGNED_INT
	case metadata.ComponentTypeHalfFloat:
		return gl.HALF_FLOAT
	}
	return gl.FLOAT
}

func glDrawMode(m metadata.DrawMode) uint32 {
	switch m {
	case metadata.DrawModePoints:
		return gl.POINTS
	case metadata.DrawModeLines:
		return gl.LINES
	case metadata.DrawModeLineLoop:
		return gl.LINE_LOOP
	case metadata.DrawModeLineStrip:
		return gl.LINE_STRIP
	case metadata.DrawModeTriangleStrip:
		return gl.TRIANGLE_STRIP
	case metadata.DrawModeTriangleFan:
		return gl.TRIANGLE_FAN
	}
	return gl.TRIANGLES
}

func glIndexType(t metadata.IndexType) uint32 {
	if t == metadata.IndexTypeUnsignedInt {
		return gl.UNSIGNED_INT
	}
	return gl.UNSIGNED_SHORT
}
