package renderer

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
)

/**
 * @brief A vertex array object with its vertex and index buffers.
 *
 * Attributes may be declared before a shader is attached. They are cached
 * and linked as soon as a shader is attached, which lets the buffer swap
 * between compatible shaders with little additional code.
 *
 * The buffer observes its shader but never owns it.
 */
type GeometryBuffer struct {
	device Device

	/** @brief The data stride of this buffer (0 if there is only one attribute). */
	stride uint32
	/** @brief Maximum number of vertices. */
	maxVertices uint32
	/** @brief Maximum number of indices. */
	maxIndices uint32

	vertArray  uint32
	vertBuffer uint32
	indxBuffer uint32

	vertData []byte
	indxData []byte

	/** @brief The number of vertices and indices of the last load. */
	vertexCount uint32
	indexCount  uint32

	bound bool

	/** @brief The shader currently attached to this buffer. */
	shader Shader

	/** @brief The settings for each attribute. */
	attributes map[string]metadata.VertexAttribute
	/** @brief The enabled attributes. */
	enabled map[string]bool

	/** @brief Incremented every time a declaration or enabled flag changes. */
	generation uint64
	/** @brief The shader whose attribute pointers are stored in the vertex array. */
	linked Shader
	/** @brief The generation the vertex array was last reconciled at. */
	linkedGeneration uint64
	/** @brief Attribute locations resolved against the linked shader. */
	locations map[string]int32
}

/**
 * @brief Creates an uninitialized geometry buffer. It holds no device
 * resources until Initialize succeeds.
 */
func NewGeometryBuffer(device Device) *GeometryBuffer {
	return &GeometryBuffer{
		device:     device,
		attributes: make(map[string]metadata.VertexAttribute),
		enabled:    make(map[string]bool),
		locations:  make(map[string]int32),
	}
}

/**
 * @brief Creates and initializes a geometry buffer. Returns nil and the
 * error on failure.
 */
func CreateGeometryBuffer(device Device, stride, maxVertices, maxIndices uint32) (*GeometryBuffer, error) {
	gb := NewGeometryBuffer(device)
	if err := gb.Initialize(stride, maxVertices, maxIndices); err != nil {
		return nil, err
	}
	return gb, nil
}

/**
 * @brief Creates the vertex array and its buffers and allocates the host
 * mirrors.
 *
 * @param stride The number of bytes between two vertex records.
 * @param maxVertices The maximum number of vertices in the buffer.
 * @param maxIndices The maximum number of indices in the buffer.
 */
func (gb *GeometryBuffer) Initialize(stride, maxVertices, maxIndices uint32) error {
	core.Assert(gb.vertArray == 0, "geometry buffer is already initialized")

	vao, err := gb.device.GenVertexArray()
	if err != nil || vao == 0 {
		err = fmt.Errorf("could not create vertex array: %v: %w", err, core.ErrDeviceAllocation)
		core.LogError(err.Error())
		return err
	}

	vbo, err := gb.device.GenBuffer()
	if err != nil || vbo == 0 {
		gb.device.DeleteVertexArray(vao)
		err = fmt.Errorf("could not create vertex buffer: %v: %w", err, core.ErrDeviceAllocation)
		core.LogError(err.Error())
		return err
	}

	ibo, err := gb.device.GenBuffer()
	if err != nil || ibo == 0 {
		gb.device.DeleteVertexArray(vao)
		gb.device.DeleteBuffer(vbo)
		err = fmt.Errorf("could not create index buffer: %v: %w", err, core.ErrDeviceAllocation)
		core.LogError(err.Error())
		return err
	}

	gb.vertArray = vao
	gb.vertBuffer = vbo
	gb.indxBuffer = ibo
	gb.stride = stride
	gb.maxVertices = maxVertices
	gb.maxIndices = maxIndices
	gb.vertData = make([]byte, int(stride)*int(maxVertices))
	gb.indxData = make([]byte, 2*int(maxIndices))
	core.LogDebug("geometry buffer created: stride %d, %d vertices, %d indices", stride, maxVertices, maxIndices)
	return nil
}

/**
 * @brief Releases the device objects and host mirrors. The shader is
 * forgotten, not destroyed.
 */
func (gb *GeometryBuffer) Destroy() {
	if gb.vertArray == 0 {
		return
	}
	gb.Unbind()
	gb.device.DeleteBuffer(gb.indxBuffer)
	gb.device.DeleteBuffer(gb.vertBuffer)
	gb.device.DeleteVertexArray(gb.vertArray)
	gb.indxBuffer = 0
	gb.vertBuffer = 0
	gb.vertArray = 0
	gb.vertData = nil
	gb.indxData = nil
	gb.vertexCount = 0
	gb.indexCount = 0
	gb.stride = 0
	gb.maxVertices = 0
	gb.maxIndices = 0
	gb.shader = nil
	gb.linked = nil
	clear(gb.attributes)
	clear(gb.enabled)
	clear(gb.locations)
}

func (gb *GeometryBuffer) Stride() uint32 { return gb.stride }

func (gb *GeometryBuffer) MaxVertices() uint32 { return gb.maxVertices }

func (gb *GeometryBuffer) MaxIndices() uint32 { return gb.maxIndices }

/** @brief The number of vertices pushed by the last LoadVertexData. */
func (gb *GeometryBuffer) VertexCount() uint32 { return gb.vertexCount }

/** @brief The number of indices pushed by the last LoadIndexData. */
func (gb *GeometryBuffer) IndexCount() uint32 { return gb.indexCount }

func (gb *GeometryBuffer) VertexArray() uint32 { return gb.vertArray }

func (gb *GeometryBuffer) VertexBuffer() uint32 { return gb.vertBuffer }

func (gb *GeometryBuffer) IndexBuffer() uint32 { return gb.indxBuffer }

/** @brief The attached shader, or nil. */
func (gb *GeometryBuffer) Shader() Shader { return gb.shader }

/**
 * @brief True while this buffer's vertex array is bound. Binding another
 * geometry buffer on the same device clears it.
 */
func (gb *GeometryBuffer) IsBound() bool { return gb.bound }

/**
 * @brief Binds the vertex array and its buffers, making them the target of
 * loads and draws. An attached shader is bound as well.
 */
func (gb *GeometryBuffer) Bind() {
	core.Assert(gb.vertArray != 0, "geometry buffer has not been initialized")
	bindingsOf(gb.device).claimGeometry(gb)
	gb.device.BindVertexArray(gb.vertArray)
	gb.device.BindBuffer(metadata.BufferTargetArray, gb.vertBuffer)
	gb.device.BindBuffer(metadata.BufferTargetElementArray, gb.indxBuffer)
	gb.bound = true
	if gb.shader != nil {
		gb.shader.Bind()
	}
}

/**
 * @brief Unbinds the vertex array and its buffers. The attached shader stays
 * attached and bound, which allows fast switching between buffers sharing a
 * shader.
 */
func (gb *GeometryBuffer) Unbind() {
	if !gb.bound {
		return
	}
	gb.device.BindBuffer(metadata.BufferTargetElementArray, 0)
	gb.device.BindBuffer(metadata.BufferTargetArray, 0)
	gb.device.BindVertexArray(0)
	gb.bound = false
	if b := bindingsOf(gb.device); b.geometry == gb {
		b.geometry = nil
	}
	release(gb.device)
}

/**
 * @brief Attaches the given shader and binds both.
 *
 * Every declared attribute is linked to the shader, with a warning for
 * each attribute the shader does not have. Linking is skipped when the
 * vertex array already holds this shader's pointers for the current
 * declarations.
 */
func (gb *GeometryBuffer) Attach(shader Shader) {
	core.Assert(shader != nil, "attempting to attach a nil shader")
	if gb.shader == shader {
		gb.Bind()
		return
	}

	gb.shader = shader
	gb.Bind()
	if gb.linked == shader && gb.linkedGeneration == gb.generation {
		return
	}

	clear(gb.locations)
	for _, name := range gb.Attributes() {
		gb.link(name)
	}
	gb.linked = shader
	gb.linkedGeneration = gb.generation
}

/**
 * @brief Detaches the shader after unbinding this buffer. The shader itself
 * is not unbound.
 *
 * @return The previously attached shader, or nil.
 */
func (gb *GeometryBuffer) Detach() Shader {
	result := gb.shader
	gb.Unbind()
	gb.shader = nil
	return result
}

// link points the named attribute at the attached shader. The vertex array
// must be bound.
func (gb *GeometryBuffer) link(name string) {
	attribute := gb.attributes[name]
	location := gb.shader.AttributeLocation(name)
	gb.locations[name] = location
	if location < 0 {
		core.LogWarn("active shader has no attribute %s", name)
		return
	}

	loc := uint32(location)
	gb.device.VertexAttribPointer(loc, attribute.ComponentCount, attribute.ComponentType,
		attribute.Normalized, int32(gb.stride), int(attribute.Offset))
	if gb.enabled[name] {
		gb.device.EnableVertexAttribArray(loc)
	} else {
		gb.device.DisableVertexAttribArray(loc)
	}
}

/**
 * @brief Defines the (periodic) position of an attribute in the vertex
 * records.
 *
 * This may be called with or without an attached shader. The layout is
 * cached and linked whenever a shader is attached; with a shader already
 * attached, it is linked immediately. New attributes start enabled.
 *
 * @param name The name of the attribute.
 * @param componentCount The number of components per vertex.
 * @param componentType The data type per component.
 * @param normalized Whether integer values are normalized.
 * @param offset The offset of the first component in the vertex record.
 */
func (gb *GeometryBuffer) DeclareAttribute(name string, componentCount int32, componentType metadata.ComponentType, normalized bool, offset uint32) {
	attribute := metadata.VertexAttribute{
		Name:           name,
		ComponentCount: componentCount,
		ComponentType:  componentType,
		Normalized:     normalized,
		Offset:         offset,
	}
	if end := offset + attribute.Size(); gb.stride > 0 && end > gb.stride {
		core.LogDebug("attribute %s ends at byte %d, past the vertex stride %d", name, end, gb.stride)
	}
	gb.attributes[name] = attribute
	gb.enabled[name] = true
	gb.generation++

	if gb.shader != nil {
		gb.Bind()
		gb.link(name)
		gb.linkedGeneration = gb.generation
	}
}

/** @brief Declares every attribute of the given vertex layout. */
func (gb *GeometryBuffer) DeclareAttributes(layout *VertexLayout) {
	for _, a := range layout.Attributes {
		gb.DeclareAttribute(a.Name, a.ComponentCount, a.ComponentType, a.Normalized, a.Offset)
	}
}

/** @brief The names of every declared attribute, sorted. */
func (gb *GeometryBuffer) Attributes() []string {
	return slices.Sorted(maps.Keys(gb.attributes))
}

/** @brief The declared layout for name. */
func (gb *GeometryBuffer) Attribute(name string) (metadata.VertexAttribute, error) {
	attribute, ok := gb.attributes[name]
	if !ok {
		return metadata.VertexAttribute{}, fmt.Errorf("%w: %s", core.ErrUnknownAttribute, name)
	}
	return attribute, nil
}

/** @brief Whether the named attribute is enabled. Unknown names are disabled. */
func (gb *GeometryBuffer) IsEnabled(name string) bool {
	return gb.enabled[name]
}

/**
 * @brief Enables a previously disabled attribute. The buffer must be bound.
 * It has no device effect if the attached shader lacks the attribute.
 */
func (gb *GeometryBuffer) EnableAttribute(name string) {
	gb.setEnabled(name, true)
}

/**
 * @brief Temporarily turns off an attribute. The buffer must be bound. A
 * shader requiring it falls back to the default value for its type.
 */
func (gb *GeometryBuffer) DisableAttribute(name string) {
	gb.setEnabled(name, false)
}

func (gb *GeometryBuffer) setEnabled(name string, enable bool) {
	current, ok := gb.enabled[name]
	core.Assert(ok, "geometry buffer has no attribute %s", name)
	core.Assert(gb.bound, "geometry buffer is not bound")
	if current == enable {
		return
	}

	gb.enabled[name] = enable
	gb.generation++
	if gb.shader == nil {
		return
	}
	if location := gb.locations[name]; location >= 0 {
		if enable {
			gb.device.EnableVertexAttribArray(uint32(location))
		} else {
			gb.device.DisableVertexAttribArray(uint32(location))
		}
	}
	gb.linkedGeneration = gb.generation
}

/**
 * @brief Loads count vertex records and pushes them to the device.
 *
 * data must hold at least stride*count bytes laid out as declared. Loading
 * always starts at the first vertex; use the draw offset to select ranges.
 * For quads and other small meshes that change every frame,
 * metadata.BufferUsageStreamDraw is the expected usage.
 *
 * The buffer must be bound.
 */
func (gb *GeometryBuffer) LoadVertexData(data []byte, count uint32, usage metadata.BufferUsage) {
	core.Assert(gb.bound, "geometry buffer is not bound")
	core.Assert(count <= gb.maxVertices, "%d vertices exceed the capacity of %d", count, gb.maxVertices)
	size := int(gb.stride) * int(count)
	core.Assert(len(data) >= size, "vertex data holds %d bytes, need %d", len(data), size)

	copy(gb.vertData, data[:size])
	if err := gb.device.BufferData(metadata.BufferTargetArray, size, gb.vertData, usage); err != nil {
		core.LogError("geometry buffer: vertex upload failed: %s", err)
		return
	}
	gb.vertexCount = count
}

/** @brief Loads count vertex records given as packed floats. See LoadVertexData. */
func (gb *GeometryBuffer) LoadVertexFloats(data []float32, count uint32, usage metadata.BufferUsage) {
	gb.LoadVertexData(float32Bytes(data), count, usage)
}

/**
 * @brief Loads indices and pushes them to the device. Indices must refer to
 * loaded vertices.
 *
 * The buffer must be bound.
 */
func (gb *GeometryBuffer) LoadIndexData(indices []uint16, usage metadata.BufferUsage) {
	core.Assert(gb.bound, "geometry buffer is not bound")
	count := uint32(len(indices))
	core.Assert(count <= gb.maxIndices, "%d indices exceed the capacity of %d", count, gb.maxIndices)

	size := 2 * len(indices)
	copy(gb.indxData, uint16Bytes(indices))
	if err := gb.device.BufferData(metadata.BufferTargetElementArray, size, gb.indxData, usage); err != nil {
		core.LogError("geometry buffer: index upload failed: %s", err)
		return
	}
	gb.indexCount = count
}

/**
 * @brief Draws count indices starting at index offset, with whatever
 * textures and uniforms are currently active.
 *
 * The buffer must be bound.
 */
func (gb *GeometryBuffer) Draw(mode metadata.DrawMode, count uint32, offset uint32) {
	core.Assert(gb.bound, "geometry buffer is not bound")
	gb.device.DrawElements(mode, int32(count), metadata.IndexTypeUnsignedShort,
		int(offset*metadata.IndexTypeUnsignedShort.Size()))
}

/**
 * @brief Draws instances copies of count indices starting at index offset.
 *
 * The buffer must be bound.
 */
func (gb *GeometryBuffer) DrawInstanced(mode metadata.DrawMode, count uint32, instances uint32, offset uint32) {
	core.Assert(gb.bound, "geometry buffer is not bound")
	gb.device.DrawElementsInstanced(mode, int32(count), metadata.IndexTypeUnsignedShort,
		int(offset*metadata.IndexTypeUnsignedShort.Size()), int32(instances))
}
