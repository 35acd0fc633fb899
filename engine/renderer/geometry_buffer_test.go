package renderer

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/headless"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeometryBuffer(t *testing.T, device *headless.Device, stride, maxVertices, maxIndices uint32) *GeometryBuffer {
	t.Helper()
	gb, err := CreateGeometryBuffer(device, stride, maxVertices, maxIndices)
	require.NoError(t, err)
	return gb
}

// declareSprite declares a position and a normalized color attribute on a
// 20 byte vertex.
func declareSprite(gb *GeometryBuffer) {
	gb.DeclareAttribute("position", 2, metadata.ComponentTypeFloat, false, 0)
	gb.DeclareAttribute("color", 4, metadata.ComponentTypeUnsignedByte, true, 8)
}

func TestGeometryBufferInitialize(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)

	assert.Equal(t, uint32(20), gb.Stride())
	assert.Equal(t, uint32(4), gb.MaxVertices())
	assert.Equal(t, uint32(6), gb.MaxIndices())
	assert.True(t, device.IsVertexArray(gb.VertexArray()))
	assert.True(t, device.IsBuffer(gb.VertexBuffer()))
	assert.True(t, device.IsBuffer(gb.IndexBuffer()))
	assert.False(t, gb.IsBound())
	assert.Nil(t, gb.Shader())

	buffers, arrays := device.Live()
	assert.Equal(t, 2, buffers)
	assert.Equal(t, 1, arrays)
}

func TestGeometryBufferInitializeFailure(t *testing.T) {
	tests := []struct {
		name   string
		inject func(d *headless.Device)
		// Deletes issued while tearing down the partial buffer.
		deleteBuffers, deleteArrays int
	}{
		{"vertex array", func(d *headless.Device) { d.FailGenVertexArray = 1 }, 0, 0},
		{"vertex buffer", func(d *headless.Device) { d.FailGenBuffer = 1 }, 0, 1},
		{"index buffer", func(d *headless.Device) { d.FailGenBuffer = 2 }, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := newDevice()
			tt.inject(device)

			gb, err := CreateGeometryBuffer(device, 20, 4, 6)
			require.ErrorIs(t, err, core.ErrDeviceAllocation)
			assert.Nil(t, gb)

			assert.Equal(t, tt.deleteBuffers, device.Calls("DeleteBuffer"))
			assert.Equal(t, tt.deleteArrays, device.Calls("DeleteVertexArray"))
			buffers, arrays := device.Live()
			assert.Zero(t, buffers)
			assert.Zero(t, arrays)
		})
	}
}

func TestGeometryBufferEndToEnd(t *testing.T) {
	logs := captureLog(t)
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	declareSprite(gb)

	shader := headless.NewShader("position-only", map[string]int32{"position": 0})
	gb.Attach(shader)

	assert.True(t, gb.IsBound())
	assert.Equal(t, gb.VertexArray(), device.BoundVertexArray())
	assert.Equal(t, 1, strings.Count(logs.String(), "active shader has no attribute color"))

	position, ok := device.Attrib(gb.VertexArray(), 0)
	require.True(t, ok)
	want := headless.AttribState{
		Enabled:    true,
		Buffer:     gb.VertexBuffer(),
		Size:       2,
		Type:       metadata.ComponentTypeFloat,
		Normalized: false,
		Stride:     20,
		Offset:     0,
	}
	if diff := cmp.Diff(want, position); diff != "" {
		t.Errorf("position attribute mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, device.Calls("VertexAttribPointer"))

	vertices := make([]byte, 4*20)
	for i := range vertices {
		vertices[i] = byte(i)
	}
	gb.LoadVertexData(vertices, 4, metadata.BufferUsageStreamDraw)
	gb.LoadIndexData([]uint16{0, 1, 2, 2, 3, 0}, metadata.BufferUsageStreamDraw)
	assert.Equal(t, uint32(4), gb.VertexCount())
	assert.Equal(t, uint32(6), gb.IndexCount())
	assert.Equal(t, vertices, device.Contents(gb.VertexBuffer()))
	assert.Equal(t, uint16Bytes([]uint16{0, 1, 2, 2, 3, 0}), device.Contents(gb.IndexBuffer()))
	assert.Equal(t, metadata.BufferUsageStreamDraw, device.Usage(gb.VertexBuffer()))

	gb.Draw(metadata.DrawModeTriangles, 6, 0)
	wantDraws := []headless.DrawCall{{
		Mode:          metadata.DrawModeTriangles,
		Count:         6,
		IndexType:     metadata.IndexTypeUnsignedShort,
		Offset:        0,
		Instances:     1,
		VertexArray:   gb.VertexArray(),
		ElementBuffer: gb.IndexBuffer(),
	}}
	if diff := cmp.Diff(wantDraws, device.Draws()); diff != "" {
		t.Errorf("draw mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, strings.Count(logs.String(), "active shader has no attribute color"))
}

func TestGeometryBufferDrawOffsets(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 8, 16, 24)
	gb.Bind()

	gb.Draw(metadata.DrawModeTriangles, 6, 6)
	gb.DrawInstanced(metadata.DrawModeTriangleStrip, 4, 10, 3)

	draws := device.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, 12, draws[0].Offset)
	assert.Equal(t, int32(1), draws[0].Instances)
	assert.Equal(t, metadata.DrawModeTriangleStrip, draws[1].Mode)
	assert.Equal(t, int32(4), draws[1].Count)
	assert.Equal(t, 6, draws[1].Offset)
	assert.Equal(t, int32(10), draws[1].Instances)
	assert.Equal(t, metadata.IndexTypeUnsignedShort, draws[1].IndexType)
}

func TestGeometryBufferReattachSkipsRelink(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	declareSprite(gb)
	a := headless.NewShader("a", map[string]int32{"position": 0, "color": 1})
	b := headless.NewShader("b", map[string]int32{"position": 3, "color": 4})

	gb.Attach(a)
	assert.Equal(t, 2, device.Calls("VertexAttribPointer"))

	device.ResetCalls()
	assert.Same(t, a, gb.Detach())
	gb.Attach(a)
	assert.Zero(t, device.Calls("VertexAttribPointer"))
	assert.True(t, gb.IsBound())

	// Attaching the shader that is already attached only binds.
	gb.Attach(a)
	assert.Zero(t, device.Calls("VertexAttribPointer"))

	gb.Attach(b)
	assert.Equal(t, 2, device.Calls("VertexAttribPointer"))
	state, ok := device.Attrib(gb.VertexArray(), 4)
	require.True(t, ok)
	assert.Equal(t, uint32(8), uint32(state.Offset))

	device.ResetCalls()
	gb.Attach(a)
	assert.Equal(t, 2, device.Calls("VertexAttribPointer"), "a different shader was linked in between")
}

func TestGeometryBufferReattachAfterDeclarationRelinks(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 32, 4, 6)
	declareSprite(gb)
	shader := headless.NewShader("sprite", map[string]int32{"position": 0, "color": 1, "texcoord": 2})

	gb.Attach(shader)
	gb.Detach()
	gb.DeclareAttribute("texcoord", 2, metadata.ComponentTypeFloat, false, 12)

	device.ResetCalls()
	gb.Attach(shader)
	assert.Equal(t, 3, device.Calls("VertexAttribPointer"))
}

func TestGeometryBufferDeclareWithShaderAttached(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	shader := headless.NewShader("sprite", map[string]int32{"position": 0, "color": 1})
	gb.Attach(shader)
	gb.Unbind()

	gb.DeclareAttribute("color", 4, metadata.ComponentTypeUnsignedByte, true, 8)
	assert.True(t, gb.IsBound(), "declaring with a shader attached binds the buffer")
	assert.Equal(t, 1, device.Calls("VertexAttribPointer"))
	color, ok := device.Attrib(gb.VertexArray(), 1)
	require.True(t, ok)
	assert.True(t, color.Enabled)
	assert.True(t, color.Normalized)
	assert.Equal(t, metadata.ComponentTypeUnsignedByte, color.Type)

	// Already in sync: detaching and reattaching does not relink.
	gb.Detach()
	device.ResetCalls()
	gb.Attach(shader)
	assert.Zero(t, device.Calls("VertexAttribPointer"))
}

func TestGeometryBufferAttributePastStride(t *testing.T) {
	logs := captureLog(t)
	device := newDevice()
	gb := newGeometryBuffer(t, device, 8, 4, 6)
	shader := headless.NewShader("s", map[string]int32{"normal": 0})
	gb.Attach(shader)

	assert.NotPanics(t, func() {
		gb.DeclareAttribute("normal", 4, metadata.ComponentTypeFloat, false, 4)
	})
	attribute, err := gb.Attribute("normal")
	require.NoError(t, err)
	assert.Equal(t, uint32(16), attribute.Size())
	assert.Contains(t, logs.String(), "past the vertex stride")

	state, ok := device.Attrib(gb.VertexArray(), 0)
	require.True(t, ok)
	assert.Equal(t, 4, state.Offset)
	assert.Equal(t, int32(8), state.Stride)
}

func TestGeometryBufferEnableDisable(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	declareSprite(gb)
	gb.Attach(headless.NewShader("sprite", map[string]int32{"position": 0, "color": 1}))
	device.ResetCalls()

	gb.DisableAttribute("color")
	assert.False(t, gb.IsEnabled("color"))
	assert.Equal(t, 1, device.Calls("DisableVertexAttribArray"))
	color, _ := device.Attrib(gb.VertexArray(), 1)
	assert.False(t, color.Enabled)

	gb.DisableAttribute("color")
	assert.Equal(t, 1, device.Calls("DisableVertexAttribArray"), "disabling twice is a no-op")

	gb.EnableAttribute("color")
	assert.True(t, gb.IsEnabled("color"))
	assert.Equal(t, 1, device.Calls("EnableVertexAttribArray"))
	color, _ = device.Attrib(gb.VertexArray(), 1)
	assert.True(t, color.Enabled)
	assert.Zero(t, device.Calls("VertexAttribPointer"))
}

func TestGeometryBufferDisabledBeforeAttach(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	declareSprite(gb)
	gb.Bind()
	gb.DisableAttribute("color")
	// No shader: nothing reaches the device.
	assert.Zero(t, device.Calls("DisableVertexAttribArray"))

	gb.Attach(headless.NewShader("sprite", map[string]int32{"position": 0, "color": 1}))
	color, ok := device.Attrib(gb.VertexArray(), 1)
	require.True(t, ok)
	assert.False(t, color.Enabled)
	assert.Equal(t, 4, int(color.Size))
	position, _ := device.Attrib(gb.VertexArray(), 0)
	assert.True(t, position.Enabled)
}

func TestGeometryBufferEnableMissingLocation(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	declareSprite(gb)
	gb.Attach(headless.NewShader("position-only", map[string]int32{"position": 0}))
	device.ResetCalls()

	gb.DisableAttribute("color")
	gb.EnableAttribute("color")
	assert.Zero(t, device.TotalCalls())
	assert.True(t, gb.IsEnabled("color"))
}

func TestGeometryBufferPreconditions(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	declareSprite(gb)

	requirePrecondition(t, func() { gb.DisableAttribute("color") })
	requirePrecondition(t, func() { gb.LoadIndexData([]uint16{0}, metadata.BufferUsageStaticDraw) })
	requirePrecondition(t, func() { gb.Draw(metadata.DrawModeTriangles, 3, 0) })

	gb.Bind()
	requirePrecondition(t, func() { gb.EnableAttribute("normal") })
	requirePrecondition(t, func() { gb.LoadVertexData(make([]byte, 100), 5, metadata.BufferUsageStaticDraw) })
	requirePrecondition(t, func() { gb.LoadVertexData(make([]byte, 10), 1, metadata.BufferUsageStaticDraw) })
	requirePrecondition(t, func() { gb.LoadIndexData(make([]uint16, 7), metadata.BufferUsageStaticDraw) })
	requirePrecondition(t, func() { gb.Attach(nil) })

	uninitialized := NewGeometryBuffer(device)
	requirePrecondition(t, func() { uninitialized.Bind() })
}

func TestGeometryBufferDetach(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	assert.Nil(t, gb.Detach())

	shader := headless.NewShader("s", nil)
	gb.Attach(shader)
	assert.Equal(t, 1, shader.Binds())

	assert.Same(t, shader, gb.Detach())
	assert.Nil(t, gb.Shader())
	assert.False(t, gb.IsBound())
	assert.Equal(t, uint32(0), device.BoundVertexArray())
}

func TestGeometryBufferUnbindKeepsShader(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	shader := headless.NewShader("s", nil)
	gb.Attach(shader)

	gb.Unbind()
	assert.False(t, gb.IsBound())
	assert.Same(t, shader, gb.Shader())
	assert.Equal(t, uint32(0), device.BoundVertexArray())
	assert.Equal(t, uint32(0), device.Bound(metadata.BufferTargetArray))

	gb.Bind()
	assert.Equal(t, 2, shader.Binds(), "binding rebinds the attached shader")
	assert.Equal(t, gb.IndexBuffer(), device.Bound(metadata.BufferTargetElementArray))
}

func TestGeometryBufferAttributes(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	declareSprite(gb)

	assert.Equal(t, []string{"color", "position"}, gb.Attributes())
	assert.True(t, gb.IsEnabled("position"))
	assert.False(t, gb.IsEnabled("normal"))

	color, err := gb.Attribute("color")
	require.NoError(t, err)
	assert.Equal(t, metadata.VertexAttribute{
		Name:           "color",
		ComponentCount: 4,
		ComponentType:  metadata.ComponentTypeUnsignedByte,
		Normalized:     true,
		Offset:         8,
	}, color)

	_, err = gb.Attribute("normal")
	assert.ErrorIs(t, err, core.ErrUnknownAttribute)
}

func TestGeometryBufferDeclareLayout(t *testing.T) {
	type vertex struct {
		Position mgl32.Vec3 `attr:"position"`
		Normal   mgl32.Vec3 `attr:"normal"`
		Color    [4]uint8   `attr:"color,normalized"`
	}
	layout, err := VertexLayoutOf[vertex]()
	require.NoError(t, err)

	device := newDevice()
	gb := newGeometryBuffer(t, device, layout.Stride, 16, 16)
	gb.DeclareAttributes(layout)
	gb.Attach(headless.NewShader("lit", map[string]int32{"position": 0, "normal": 1, "color": 2}))

	normal, ok := device.Attrib(gb.VertexArray(), 1)
	require.True(t, ok)
	assert.Equal(t, 12, normal.Offset)
	assert.Equal(t, int32(28), normal.Stride)
	color, _ := device.Attrib(gb.VertexArray(), 2)
	assert.True(t, color.Normalized)
	assert.Equal(t, metadata.ComponentTypeUnsignedByte, color.Type)
}

func TestGeometryBufferLoadFloats(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 8, 3, 3)
	gb.Bind()

	gb.LoadVertexFloats([]float32{0, 0, 1, 0, 0, 1}, 3, metadata.BufferUsageStaticDraw)
	assert.Equal(t, float32Bytes([]float32{0, 0, 1, 0, 0, 1}), device.Contents(gb.VertexBuffer()))
	assert.Equal(t, metadata.BufferUsageStaticDraw, device.Usage(gb.VertexBuffer()))

	// Reloading fewer vertices shrinks the device allocation to match.
	gb.LoadVertexFloats([]float32{1, 1}, 1, metadata.BufferUsageStaticDraw)
	assert.Len(t, device.Contents(gb.VertexBuffer()), 8)
	assert.Equal(t, uint32(1), gb.VertexCount())
}

func TestGeometryBufferDestroy(t *testing.T) {
	device := newDevice()
	gb := newGeometryBuffer(t, device, 20, 4, 6)
	declareSprite(gb)
	shader := headless.NewShader("s", map[string]int32{"position": 0, "color": 1})
	gb.Attach(shader)

	gb.Destroy()
	buffers, arrays := device.Live()
	assert.Zero(t, buffers)
	assert.Zero(t, arrays)
	assert.Zero(t, gb.VertexArray())
	assert.Nil(t, gb.Shader())
	assert.Empty(t, gb.Attributes())
	assert.False(t, gb.IsBound())

	// Destroying twice is harmless.
	gb.Destroy()
	assert.Equal(t, 1, device.Calls("DeleteVertexArray"))
}

func TestGeometryBufferBindReplacesOtherBuffer(t *testing.T) {
	device := newDevice()
	quads := newGeometryBuffer(t, device, 20, 4, 6)
	lines := newGeometryBuffer(t, device, 20, 4, 6)

	quads.Bind()
	lines.Bind()
	assert.False(t, quads.IsBound())
	assert.True(t, lines.IsBound())
	requirePrecondition(t, func() { quads.LoadVertexData(make([]byte, 20), 1, metadata.BufferUsageStreamDraw) })
	assert.Empty(t, device.Contents(lines.VertexBuffer()))

	// Unbinding the replaced buffer leaves the current one alone.
	quads.Unbind()
	assert.True(t, lines.IsBound())
	assert.Equal(t, lines.VertexArray(), device.BoundVertexArray())

	lines.Unbind()
	quads.Bind()
	assert.True(t, quads.IsBound())
}
