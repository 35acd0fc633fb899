package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/anima-buffers/engine/assets"
	"github.com/spaghettifunk/anima-buffers/engine/config"
	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/platform"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/headless"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/opengl"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	configPath   string
	app          *Application
	platform     *platform.Platform
	watcher      *assets.Watcher
	clock        *core.Clock
	metrics      *core.FrameMetrics
	lastTime     float64
	frameCount   uint64
}

/**
 * @brief Creates an engine for the given game. configPath is the file cfg was
 * loaded from; it is watched for changes when assets.watch is set and may be
 * empty.
 */
func New(g *Game, cfg *config.Config, configPath string) (*Engine, error) {
	if g == nil || cfg == nil {
		return nil, errors.New("engine requires a game and a configuration")
	}
	if err := cfg.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		configPath:   configPath,
		app: &Application{
			Config:  cfg,
			Backend: cfg.Renderer.Backend,
			width:   cfg.Application.StartWidth,
			height:  cfg.Application.StartHeight,
		},
		clock:   core.NewClock(),
		metrics: core.NewFrameMetrics(),
	}, nil
}

func (e *Engine) Stage() Stage { return e.currentStage }

// Frames returns the number of frames rendered so far.
func (e *Engine) Frames() uint64 { return e.frameCount }

func (e *Engine) Application() *Application { return e.app }

func (e *Engine) Metrics() *core.FrameMetrics { return e.metrics }

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine cannot initialize while %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing
	cfg := e.app.Config
	core.LogInfo("initializing %s", e.gameInstance.Name)

	if err := cfg.Apply(); err != nil {
		return err
	}

	switch cfg.Renderer.Backend {
	case config.BackendOpenGL:
		e.platform = platform.New()
		if err := e.platform.Startup(cfg.Application.Name,
			cfg.Application.StartPosX,
			cfg.Application.StartPosY,
			cfg.Application.StartWidth,
			cfg.Application.StartHeight); err != nil {
			return err
		}
		device, err := opengl.NewDevice()
		if err != nil {
			return err
		}
		e.app.Device = device
		e.app.width, e.app.height = e.platform.FramebufferSize()
	case config.BackendHeadless:
		e.app.Device = headless.NewDevice(headless.Limits{
			UniformBufferOffsetAlignment: cfg.Renderer.Headless.UniformBufferOffsetAlignment,
			MaxUniformBlockSize:          cfg.Renderer.Headless.MaxUniformBlockSize,
		})
	}
	core.LogInfo("renderer backend: %s", cfg.Renderer.Backend)

	if cfg.Assets.Watch {
		if err := e.startWatcher(); err != nil {
			return err
		}
	}

	if err := e.gameInstance.FnInitialize(e.app); err != nil {
		return err
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.app.width, e.app.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) startWatcher() error {
	w, err := assets.NewWatcher()
	if err != nil {
		core.LogError("failed to start the asset watcher: %s", err)
		return err
	}
	if e.configPath != "" {
		if err := w.Add(e.configPath); err != nil {
			core.LogWarn("cannot watch %s: %s", e.configPath, err)
		}
	}
	if dir := e.app.Config.Assets.ShaderDir; dir != "" {
		if err := w.Add(dir); err != nil {
			core.LogWarn("cannot watch %s: %s", dir, err)
		}
	}
	e.watcher = w
	return nil
}

/**
 * @brief Runs the frame loop until the window closes, ctx is cancelled, or
 * application.max_frames frames have been rendered.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run while %s: %w", e.currentStage, core.ErrNotInitialized)
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	maxFrames := e.app.Config.Application.MaxFrames
	for {
		if err := ctx.Err(); err != nil {
			core.LogInfo("stopping: %s", err)
			break
		}
		if e.platform != nil && !e.platform.PumpMessages() {
			break
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		e.processAssets()
		e.checkResize()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				return err
			}
		}
		if err := e.gameInstance.FnRender(delta); err != nil {
			core.LogError("game render failed, shutting down: %s", err)
			return err
		}
		if e.platform != nil {
			e.platform.SwapBuffers()
		}

		e.frameCount++
		e.lastTime = currentTime
		if e.metrics.Update(delta) {
			core.LogDebug("%.0f fps, %.2f ms/frame", e.metrics.FPS(), e.metrics.FrameTime())
		}
		if maxFrames > 0 && e.frameCount >= maxFrames {
			core.LogInfo("rendered %d frames", e.frameCount)
			break
		}
	}
	return nil
}

func (e *Engine) processAssets() {
	if e.watcher == nil {
		return
	}
	for _, asset := range e.watcher.Poll() {
		if asset.Type == assets.AssetTypeConfig && e.isConfigFile(asset.Path) {
			e.reloadConfig()
		}
		if e.gameInstance.FnOnAsset == nil {
			continue
		}
		if err := e.gameInstance.FnOnAsset(asset); err != nil {
			core.LogError("reload of %s failed: %s", asset.Path, err)
		}
	}
}

func (e *Engine) isConfigFile(path string) bool {
	if e.configPath == "" {
		return false
	}
	a, err1 := filepath.Abs(path)
	b, err2 := filepath.Abs(e.configPath)
	return err1 == nil && err2 == nil && a == b
}

// reloadConfig keeps the running configuration when the new one is invalid.
// The backend and device limits only take effect on restart.
func (e *Engine) reloadConfig() {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		core.LogError("configuration reload failed: %s", err)
		return
	}
	if cfg.Renderer.Backend != e.app.Backend {
		core.LogWarn("renderer.backend changed to %s; restart to apply", cfg.Renderer.Backend)
	}
	*e.app.Config = *cfg
	if err := e.app.Config.Apply(); err != nil {
		core.LogError(err.Error())
		return
	}
	core.LogInfo("configuration reloaded from %s", e.configPath)
}

func (e *Engine) checkResize() {
	if e.platform == nil {
		return
	}
	width, height := e.platform.FramebufferSize()
	if width == e.app.width && height == e.app.height {
		return
	}
	e.app.width, e.app.height = width, height
	if width == 0 || height == 0 || e.gameInstance.FnOnResize == nil {
		return
	}
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageUninitialized {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.watcher != nil {
		errs = append(errs, e.watcher.Close())
		e.watcher = nil
	}
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
		e.platform = nil
	}
	e.clock.Stop()
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}
