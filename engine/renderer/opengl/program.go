package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/anima-buffers/engine/core"
)

/**
 * @brief A linked vertex + fragment program. Attribute and uniform locations
 * are cached to avoid repeated driver queries.
 */
type Program struct {
	Name   string
	handle uint32

	attributes map[string]int32
	uniforms   map[string]int32
}

func NewProgram(name, vertexSource, fragmentSource string) (*Program, error) {
	vs, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("program %s: vertex stage: %w", name, err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("program %s: fragment stage: %w", name, err)
	}
	defer gl.DeleteShader(fs)

	handle := gl.CreateProgram()
	gl.AttachShader(handle, vs)
	gl.AttachShader(handle, fs)
	gl.LinkProgram(handle)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(handle, logLength, nil, gl.Str(log))
		gl.DeleteProgram(handle)
		return nil, fmt.Errorf("program %s: failed to link: %s", name, log)
	}

	core.LogDebug("program %s linked", name)
	return &Program{
		Name:       name,
		handle:     handle,
		attributes: make(map[string]int32),
		uniforms:   make(map[string]int32),
	}, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile: %s", log)
	}
	return shader, nil
}

func (p *Program) Handle() uint32 { return p.handle }

func (p *Program) Bind() {
	gl.UseProgram(p.handle)
}

func (p *Program) AttributeLocation(name string) int32 {
	if loc, ok := p.attributes[name]; ok {
		return loc
	}
	loc := gl.GetAttribLocation(p.handle, gl.Str(name+"\x00"))
	p.attributes[name] = loc
	return loc
}

func (p *Program) UniformLocation(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.handle, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

/**
 * @brief Connects the named uniform block of this program to a bind point.
 * This is the shader half of the bind point table; buffers attach
 * themselves to the other half.
 */
func (p *Program) BindUniformBlock(block string, bindPoint uint32) error {
	index := gl.GetUniformBlockIndex(p.handle, gl.Str(block+"\x00"))
	if index == gl.INVALID_INDEX {
		return fmt.Errorf("program %s has no uniform block %s", p.Name, block)
	}
	gl.UniformBlockBinding(p.handle, index, bindPoint)
	return nil
}

func (p *Program) Destroy() {
	if p.handle != 0 {
		gl.DeleteProgram(p.handle)
		p.handle = 0
	}
	clear(p.attributes)
	clear(p.uniforms)
}
