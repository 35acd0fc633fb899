/*
This is an example of application that will use the
engine package to stream a batch of quads through the
geometry and uniform block buffers
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-buffers/engine"
	"github.com/spaghettifunk/anima-buffers/engine/config"
	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/testbed"
)

func main() {
	defaultPath := "anima.toml"
	if p := os.Getenv("ANIMA_CONFIG"); p != "" {
		defaultPath = p
	}
	configPath := flag.String("config", defaultPath, "path of the TOML configuration")
	backend := flag.String("backend", "", "renderer backend override (opengl or headless)")
	frames := flag.Uint64("frames", 0, "number of frames to render, overriding application.max_frames")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("failed to load the configuration: %s", err)
	}
	if *backend != "" {
		cfg.Renderer.Backend = config.Backend(*backend)
	}
	if *frames > 0 {
		cfg.Application.MaxFrames = *frames
	}
	if level := os.Getenv("ANIMA_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	// capture sigterm and other system calls here
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	tb := testbed.NewTestGame()
	e, err := engine.New(tb.Game, cfg, *configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize the engine: %s", err)
	}

	// run engine
	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
