package headless

import (
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func TestDeviceBufferData(t *testing.T) {
	d := NewDevice(DefaultLimits)
	id, err := d.GenBuffer()
	require.NoError(t, err)
	assert.True(t, d.IsBuffer(id))

	// Nothing bound.
	assert.Error(t, d.BufferData(metadata.BufferTargetArray, 4, nil, metadata.BufferUsageStaticDraw))

	d.BindBuffer(metadata.BufferTargetArray, id)
	require.NoError(t, d.BufferData(metadata.BufferTargetArray, 4, []byte{1, 2, 3, 4, 5}, metadata.BufferUsageStaticDraw))
	assert.Equal(t, []byte{1, 2, 3, 4}, d.Contents(id))
	assert.Equal(t, metadata.BufferUsageStaticDraw, d.Usage(id))

	d.BufferSubData(metadata.BufferTargetArray, 2, []byte{9, 9})
	assert.Equal(t, []byte{1, 2, 9, 9}, d.Contents(id))

	// Out of range writes are rejected whole.
	d.BufferSubData(metadata.BufferTargetArray, 3, []byte{7, 7})
	assert.Equal(t, []byte{1, 2, 9, 9}, d.Contents(id))

	require.NoError(t, d.BufferData(metadata.BufferTargetArray, 8, nil, metadata.BufferUsageStreamDraw))
	assert.Equal(t, make([]byte, 8), d.Contents(id))
}

func TestDeviceElementBindingIsVertexArrayState(t *testing.T) {
	d := NewDevice(DefaultLimits)
	vao, err := d.GenVertexArray()
	require.NoError(t, err)
	ibo, err := d.GenBuffer()
	require.NoError(t, err)

	d.BindVertexArray(vao)
	d.BindBuffer(metadata.BufferTargetElementArray, ibo)
	assert.Equal(t, ibo, d.Bound(metadata.BufferTargetElementArray))

	d.BindVertexArray(0)
	assert.Equal(t, uint32(0), d.Bound(metadata.BufferTargetElementArray))

	d.BindVertexArray(vao)
	assert.Equal(t, ibo, d.Bound(metadata.BufferTargetElementArray))
}

func TestDeviceDeleteClearsBindings(t *testing.T) {
	d := NewDevice(DefaultLimits)
	id, _ := d.GenBuffer()
	d.BindBuffer(metadata.BufferTargetUniform, id)
	require.NoError(t, d.BufferData(metadata.BufferTargetUniform, 512, nil, metadata.BufferUsageStreamDraw))
	d.BindBufferRange(metadata.BufferTargetUniform, 2, id, 256, 64)

	slot, ok := d.UniformSlot(2)
	require.True(t, ok)
	assert.Equal(t, Slot{Buffer: id, Offset: 256, Size: 64}, slot)

	d.DeleteBuffer(id)
	assert.False(t, d.IsBuffer(id))
	assert.Equal(t, uint32(0), d.Bound(metadata.BufferTargetUniform))
	_, ok = d.UniformSlot(2)
	assert.False(t, ok)
}

func TestDeviceBindBufferBase(t *testing.T) {
	d := NewDevice(DefaultLimits)
	id, _ := d.GenBuffer()
	d.BindBuffer(metadata.BufferTargetUniform, id)
	require.NoError(t, d.BufferData(metadata.BufferTargetUniform, 128, nil, metadata.BufferUsageStreamDraw))

	d.BindBufferBase(metadata.BufferTargetUniform, 1, id)
	slot, ok := d.UniformSlot(1)
	require.True(t, ok)
	assert.Equal(t, Slot{Buffer: id, Offset: 0, Size: 128}, slot)

	d.BindBufferBase(metadata.BufferTargetUniform, 1, 0)
	_, ok = d.UniformSlot(1)
	assert.False(t, ok)
}

func TestDeviceFaultInjection(t *testing.T) {
	d := NewDevice(DefaultLimits)
	d.FailGenBuffer = 2
	d.FailGenVertexArray = 1

	_, err := d.GenBuffer()
	assert.NoError(t, err)
	_, err = d.GenBuffer()
	assert.ErrorIs(t, err, ErrInjected)
	_, err = d.GenBuffer()
	assert.NoError(t, err)

	_, err = d.GenVertexArray()
	assert.ErrorIs(t, err, ErrInjected)

	buffers, arrays := d.Live()
	assert.Equal(t, 2, buffers)
	assert.Zero(t, arrays)
}

func TestDeviceCallCounts(t *testing.T) {
	d := NewDevice(Limits{UniformBufferOffsetAlignment: 64, MaxUniformBlockSize: 1024})
	assert.Equal(t, uint32(64), d.UniformBufferOffsetAlignment())
	assert.Equal(t, uint32(1024), d.MaxUniformBlockSize())
	assert.Equal(t, 2, d.TotalCalls())

	vao, _ := d.GenVertexArray()
	d.BindVertexArray(vao)
	d.VertexAttribPointer(3, 4, metadata.ComponentTypeFloat, false, 16, 0)
	d.EnableVertexAttribArray(3)
	d.DrawElementsInstanced(metadata.DrawModeTriangles, 6, metadata.IndexTypeUnsignedShort, 0, 2)

	assert.Equal(t, 1, d.Calls("VertexAttribPointer"))
	attrib, ok := d.Attrib(vao, 3)
	require.True(t, ok)
	assert.True(t, attrib.Enabled)
	assert.Equal(t, int32(16), attrib.Stride)
	require.Len(t, d.Draws(), 1)
	assert.Equal(t, int32(2), d.Draws()[0].Instances)
	assert.Equal(t, vao, d.Draws()[0].VertexArray)

	d.ResetCalls()
	assert.Zero(t, d.TotalCalls())
	assert.Empty(t, d.Draws())
	_, ok = d.Attrib(vao, 3)
	assert.True(t, ok, "resetting counters keeps device state")
}

func TestShaderLocations(t *testing.T) {
	s := NewShader("sprite", map[string]int32{"position": 0})
	s.Uniforms["tint"] = 4

	assert.Equal(t, int32(0), s.AttributeLocation("position"))
	assert.Equal(t, metadata.InvalidLocation, s.AttributeLocation("color"))
	assert.Equal(t, int32(4), s.UniformLocation("tint"))
	assert.Equal(t, metadata.InvalidLocation, s.UniformLocation("time"))
	assert.Equal(t, 2, s.Lookups())

	s.Bind()
	assert.Equal(t, 1, s.Binds())
}

func TestDeviceIndexedBindsReplaceGenericBinding(t *testing.T) {
	d := NewDevice(DefaultLimits)
	first, _ := d.GenBuffer()
	second, _ := d.GenBuffer()

	d.BindBuffer(metadata.BufferTargetUniform, first)
	d.BindBufferRange(metadata.BufferTargetUniform, 0, second, 0, 16)
	assert.Equal(t, second, d.Bound(metadata.BufferTargetUniform))

	d.BindBuffer(metadata.BufferTargetUniform, first)
	d.BindBufferBase(metadata.BufferTargetUniform, 1, 0)
	assert.Equal(t, uint32(0), d.Bound(metadata.BufferTargetUniform))
	_, ok := d.UniformSlot(0)
	assert.True(t, ok, "clearing one slot leaves the others")
}
