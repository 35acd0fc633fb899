// Package config loads the engine configuration from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
)

type Backend string

const (
	BackendOpenGL   Backend = "opengl"
	BackendHeadless Backend = "headless"
)

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Logging     LoggingConfig     `toml:"logging"`
	Renderer    RendererConfig    `toml:"renderer"`
	Assets      AssetsConfig      `toml:"assets"`
}

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting size, if applicable.
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`
	// Number of frames to render before quitting; 0 runs until closed.
	MaxFrames uint64 `toml:"max_frames"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type RendererConfig struct {
	Backend  Backend        `toml:"backend"`
	Uniform  UniformConfig  `toml:"uniform"`
	Geometry GeometryConfig `toml:"geometry"`
	Headless HeadlessConfig `toml:"headless"`
}

type UniformConfig struct {
	AutoFlush bool   `toml:"auto_flush"`
	Usage     string `toml:"usage"`
}

type GeometryConfig struct {
	Usage       string `toml:"usage"`
	MaxVertices uint32 `toml:"max_vertices"`
	MaxIndices  uint32 `toml:"max_indices"`
}

type AssetsConfig struct {
	// Directory holding the testbed .vert and .frag sources.
	ShaderDir string `toml:"shader_dir"`
	// Reload the configuration and shaders when they change on disk.
	Watch bool `toml:"watch"`
}

// HeadlessConfig holds the limits a headless device reports.
type HeadlessConfig struct {
	UniformBufferOffsetAlignment uint32 `toml:"uniform_buffer_offset_alignment"`
	MaxUniformBlockSize          uint32 `toml:"max_uniform_block_size"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:        "Anima Buffers Testbed",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Logging: LoggingConfig{Level: "info"},
		Renderer: RendererConfig{
			Backend: BackendOpenGL,
			Uniform: UniformConfig{
				AutoFlush: true,
				Usage:     "stream",
			},
			Geometry: GeometryConfig{
				Usage:       "stream",
				MaxVertices: 4096,
				MaxIndices:  6144,
			},
			Headless: HeadlessConfig{
				UniformBufferOffsetAlignment: 256,
				MaxUniformBlockSize:          16384,
			},
		},
		Assets: AssetsConfig{
			ShaderDir: "testbed/shaders",
			Watch:     false,
		},
	}
}

// Load reads the TOML file at path on top of Default. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		core.LogInfo("no configuration at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", core.ErrInvalidConfig, err)
	}
	switch c.Renderer.Backend {
	case BackendOpenGL, BackendHeadless:
	default:
		return fmt.Errorf("%w: renderer.backend %q", core.ErrInvalidConfig, c.Renderer.Backend)
	}
	if _, err := metadata.BufferUsageFromString(c.Renderer.Uniform.Usage); err != nil {
		return fmt.Errorf("%w: renderer.uniform.usage: %v", core.ErrInvalidConfig, err)
	}
	if _, err := metadata.BufferUsageFromString(c.Renderer.Geometry.Usage); err != nil {
		return fmt.Errorf("%w: renderer.geometry.usage: %v", core.ErrInvalidConfig, err)
	}
	if c.Renderer.Geometry.MaxVertices > 1<<16 {
		// Indices are 16 bits wide; more vertices are never addressable.
		return fmt.Errorf("%w: renderer.geometry.max_vertices %d", core.ErrInvalidConfig, c.Renderer.Geometry.MaxVertices)
	}
	if c.Renderer.Headless.MaxUniformBlockSize == 0 {
		return fmt.Errorf("%w: renderer.headless.max_uniform_block_size must be > 0", core.ErrInvalidConfig)
	}
	return nil
}

// UniformUsage is the parsed renderer.uniform.usage. Call Validate first.
func (c *Config) UniformUsage() metadata.BufferUsage {
	u, _ := metadata.BufferUsageFromString(c.Renderer.Uniform.Usage)
	return u
}

// GeometryUsage is the parsed renderer.geometry.usage. Call Validate first.
func (c *Config) GeometryUsage() metadata.BufferUsage {
	u, _ := metadata.BufferUsageFromString(c.Renderer.Geometry.Usage)
	return u
}

// Apply pushes the settings that can change at runtime to their owners.
func (c *Config) Apply() error {
	return core.SetLogLevel(c.Logging.Level)
}
