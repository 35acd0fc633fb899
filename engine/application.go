package engine

import (
	"path/filepath"

	"github.com/spaghettifunk/anima-buffers/engine/config"
	"github.com/spaghettifunk/anima-buffers/engine/renderer"
)

// Application is what the engine hands to a game once the device exists.
type Application struct {
	Config  *config.Config
	Backend config.Backend
	Device  renderer.Device

	width  uint32
	height uint32
}

// ShaderPath returns the path of a shader source file.
func (a *Application) ShaderPath(name string) string {
	return filepath.Join(a.Config.Assets.ShaderDir, name)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (a *Application) GetFramebufferSize() (uint32, uint32) {
	return a.width, a.height
}
