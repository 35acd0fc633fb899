package engine

import (
	"github.com/spaghettifunk/anima-buffers/engine/assets"
)

type Game struct {
	Name         string
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnOnAsset    OnAsset
	FnShutdown   Shutdown
}

type Initialize func(app *Application) error
type Update func(deltaTime float64) error
type Render func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type OnAsset func(asset assets.AssetInfo) error
type Shutdown func() error
