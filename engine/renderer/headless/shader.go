package headless

import "github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"

/**
 * @brief A shader with fixed attribute and uniform locations. Names missing
 * from the maps report metadata.InvalidLocation.
 */
type Shader struct {
	Name       string
	Attributes map[string]int32
	Uniforms   map[string]int32

	binds   int
	lookups int
}

func NewShader(name string, attributes map[string]int32) *Shader {
	return &Shader{
		Name:       name,
		Attributes: attributes,
		Uniforms:   make(map[string]int32),
	}
}

func (s *Shader) Bind() {
	s.binds++
}

func (s *Shader) AttributeLocation(name string) int32 {
	s.lookups++
	if loc, ok := s.Attributes[name]; ok {
		return loc
	}
	return metadata.InvalidLocation
}

func (s *Shader) UniformLocation(name string) int32 {
	if loc, ok := s.Uniforms[name]; ok {
		return loc
	}
	return metadata.InvalidLocation
}

/** @brief The number of times the shader was bound. */
func (s *Shader) Binds() int { return s.binds }

/** @brief The number of attribute location queries answered. */
func (s *Shader) Lookups() int { return s.lookups }
