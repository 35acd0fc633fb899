package renderer

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
)

// std140Type describes how a Go type is laid out in a std140 uniform block.
type std140Type struct {
	// Name of the GLSL type.
	Name string
	// Alignment in bytes.
	AlignOf uint32
	// Size in bytes.
	SizeOf uint32
}

var std140Types = map[reflect.Type]std140Type{
	reflect.TypeOf(float32(0)):   {Name: "float", AlignOf: 4, SizeOf: 4},
	reflect.TypeOf(int32(0)):     {Name: "int", AlignOf: 4, SizeOf: 4},
	reflect.TypeOf(uint32(0)):    {Name: "uint", AlignOf: 4, SizeOf: 4},
	reflect.TypeOf(mgl32.Vec2{}): {Name: "vec2", AlignOf: 8, SizeOf: 8},
	reflect.TypeOf(mgl32.Vec3{}): {Name: "vec3", AlignOf: 16, SizeOf: 12},
	reflect.TypeOf(mgl32.Vec4{}): {Name: "vec4", AlignOf: 16, SizeOf: 16},
	// Matrices are arrays of column vectors, each padded to a vec4.
	reflect.TypeOf(mgl32.Mat3{}): {Name: "mat3", AlignOf: 16, SizeOf: 48},
	reflect.TypeOf(mgl32.Mat4{}): {Name: "mat4", AlignOf: 16, SizeOf: 64},
}

// A Std140Field is a single member of a uniform block.
type Std140Field struct {
	// Name is the member name used for offset lookups.
	Name string
	// Type is the GLSL type name, with an array suffix if needed.
	Type string
	// Offset is the std140 byte offset of the member inside the block.
	Offset uint32
	// Size is the number of bytes the member occupies, array padding included.
	Size uint32
}

// A Std140Layout is the std140 layout of a Go struct.
type Std140Layout struct {
	// Name of the uniform block.
	Name string
	// Size of the block in bytes, rounded up to 16.
	Size uint32
	// Fields in declaration order.
	Fields []Std140Field
}

// MustStd140Of is like Std140Of but panics on error.
func MustStd140Of[T any](name string) *Std140Layout {
	l, err := Std140Of[T](name)
	if err != nil {
		panic(fmt.Sprintf("laying out %q: %v", name, err))
	}
	return l
}

// Std140Of computes the std140 layout of the struct T. Members take their
// name from a `std140:"name"` tag, or from the Go field name. Supported
// members are float32, int32, uint32, the mgl32 vectors, Mat3, Mat4 and
// fixed size arrays of those.
func Std140Of[T any](name string) (*Std140Layout, error) {
	var t T
	structType := reflect.TypeOf(t)
	if structType == nil || structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("provided type is not a struct")
	}

	layout := &Std140Layout{Name: name}
	offset := uint32(0)
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldName := field.Name
		if tag := field.Tag.Get("std140"); tag != "" {
			if tag == "-" {
				continue
			}
			fieldName = tag
		}

		align, size, typeName, err := std140Member(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		offset = AlignUp(offset, align)
		layout.Fields = append(layout.Fields, Std140Field{
			Name:   fieldName,
			Type:   typeName,
			Offset: offset,
			Size:   size,
		})
		offset += size
	}
	layout.Size = AlignUp(offset, 16)
	return layout, nil
}

func std140Member(t reflect.Type) (align, size uint32, name string, err error) {
	if st, ok := std140Types[t]; ok {
		return st.AlignOf, st.SizeOf, st.Name, nil
	}
	if t.Kind() == reflect.Array {
		elem, ok := std140Types[t.Elem()]
		if !ok {
			return 0, 0, "", fmt.Errorf("unhandled array element type %s", t.Elem())
		}
		// Array elements are aligned and strided like vec4.
		stride := AlignUp(elem.SizeOf, 16)
		return 16, stride * uint32(t.Len()), fmt.Sprintf("%s[%d]", elem.Name, t.Len()), nil
	}
	return 0, 0, "", fmt.Errorf("unhandled Go type %s", t)
}

// Offset returns the offset of the named member.
func (l *Std140Layout) Offset(name string) (uint32, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f.Offset, true
		}
	}
	return 0, false
}

// GLSL returns the layout as a GLSL uniform block declaration.
func (l *Std140Layout) GLSL() string {
	var output strings.Builder
	output.WriteString(fmt.Sprintf("layout(std140) uniform %s {\n", l.Name))
	for _, f := range l.Fields {
		decl, suffix := f.Type, ""
		if i := strings.IndexByte(decl, '['); i >= 0 {
			decl, suffix = decl[:i], decl[i:]
		}
		output.WriteString(fmt.Sprintf("  %s %s%s;\n", decl, f.Name, suffix))
	}
	output.WriteString("};\n")
	return output.String()
}

var vertexComponents = map[reflect.Type]struct {
	count int32
	xtype metadata.ComponentType
}{
	reflect.TypeOf(float32(0)):   {1, metadata.ComponentTypeFloat},
	reflect.TypeOf(int32(0)):     {1, metadata.ComponentTypeInt},
	reflect.TypeOf(uint32(0)):    {1, metadata.ComponentTypeUnsignedInt},
	reflect.TypeOf(mgl32.Vec2{}): {2, metadata.ComponentTypeFloat},
	reflect.TypeOf(mgl32.Vec3{}): {3, metadata.ComponentTypeFloat},
	reflect.TypeOf(mgl32.Vec4{}): {4, metadata.ComponentTypeFloat},
	reflect.TypeOf([4]uint8{}):   {4, metadata.ComponentTypeUnsignedByte},
	reflect.TypeOf([2]uint16{}):  {2, metadata.ComponentTypeUnsignedShort},
}

// A VertexLayout is the interleaved layout of a Go vertex struct.
type VertexLayout struct {
	// Stride is the size of one vertex record.
	Stride uint32
	// Attributes in declaration order.
	Attributes []metadata.VertexAttribute
}

// VertexLayoutOf reflects the vertex struct V into attribute declarations.
// Fields take their attribute name from an `attr:"name[,normalized]"` tag,
// or from the Go field name. Fields tagged `attr:"-"` are padding.
func VertexLayoutOf[V any]() (*VertexLayout, error) {
	var v V
	structType := reflect.TypeOf(v)
	if structType == nil || structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("provided type is not a struct")
	}

	layout := &VertexLayout{Stride: uint32(structType.Size())}
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		name, normalized := field.Name, false
		if tag := field.Tag.Get("attr"); tag != "" {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, p := range parts[1:] {
				normalized = normalized || p == "normalized"
			}
		}
		comp, ok := vertexComponents[field.Type]
		if !ok {
			return nil, fmt.Errorf("field %s: unhandled Go type %s", field.Name, field.Type)
		}
		layout.Attributes = append(layout.Attributes, metadata.VertexAttribute{
			Name:           name,
			ComponentCount: comp.count,
			ComponentType:  comp.xtype,
			Normalized:     normalized,
			Offset:         uint32(field.Offset),
		})
	}
	return layout, nil
}
