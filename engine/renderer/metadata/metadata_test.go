package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferUsageRoundTrip(t *testing.T) {
	for _, u := range []BufferUsage{BufferUsageStaticDraw, BufferUsageDynamicDraw, BufferUsageStreamDraw} {
		got, err := BufferUsageFromString(u.String())
		assert.NoError(t, err)
		assert.Equal(t, u, got)
	}

	got, err := BufferUsageFromString("sometimes")
	assert.Error(t, err)
	assert.Equal(t, BufferUsageUnknown, got)
	assert.Equal(t, "unknown", BufferUsageUnknown.String())
}

func TestVertexAttributeSize(t *testing.T) {
	tests := []struct {
		attribute VertexAttribute
		want      uint32
	}{
		{VertexAttribute{ComponentCount: 2, ComponentType: ComponentTypeFloat}, 8},
		{VertexAttribute{ComponentCount: 4, ComponentType: ComponentTypeUnsignedByte}, 4},
		{VertexAttribute{ComponentCount: 3, ComponentType: ComponentTypeHalfFloat}, 6},
		{VertexAttribute{ComponentCount: 1, ComponentType: ComponentTypeUnsignedInt}, 4},
		{VertexAttribute{ComponentCount: 4, ComponentType: ComponentTypeUnknown}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.attribute.Size(), "%d x %s", tt.attribute.ComponentCount, tt.attribute.ComponentType)
	}
}

func TestIndexTypeSize(t *testing.T) {
	assert.Equal(t, uint32(2), IndexTypeUnsignedShort.Size())
	assert.Equal(t, uint32(4), IndexTypeUnsignedInt.Size())
}

func TestMemoryRangeFits(t *testing.T) {
	assert.True(t, MemoryRange{Offset: 0, Size: 16}.Fits(16))
	assert.True(t, MemoryRange{Offset: 12, Size: 4}.Fits(16))
	assert.False(t, MemoryRange{Offset: 12, Size: 8}.Fits(16))
	assert.True(t, MemoryRange{Offset: 16, Size: 0}.Fits(16))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "uniform", BufferTargetUniform.String())
	assert.Equal(t, "element_array", BufferTargetElementArray.String())
	assert.Equal(t, "triangle_strip", DrawModeTriangleStrip.String())
	assert.Equal(t, "ubyte", ComponentTypeUnsignedByte.String())
}
