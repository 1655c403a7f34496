package pilot

import (
	"github.com/colonyops/dmctl/internal/backend"
	"github.com/colonyops/dmctl/internal/core/config"
	"github.com/colonyops/dmctl/internal/core/logging"
	"github.com/colonyops/dmctl/internal/core/logstream"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// App is the central entry point for all dmctl operations.
// Commands and TUI consume App instead of cherry-picking raw dependencies.
type App struct {
	Config  *config.Config
	Backend *backend.Client
	Build   BuildInfo
}

// NewApp constructs an App from explicit dependencies.
func NewApp(cfg *config.Config, build BuildInfo) *App {
	return &App{
		Config:  cfg,
		Backend: backend.New(cfg.Backend, logging.Component("backend")),
		Build:   build,
	}
}

// NewController creates a controller bound to v.
func (a *App) NewController(v View) *Controller {
	return NewController(a.Backend, v, logging.Component("pilot"))
}

// NewLogConsumer creates a single-use consumer for the backend log stream.
// It shares the backend's cookie jar.
func (a *App) NewLogConsumer() *logstream.Consumer {
	return logstream.NewConsumer(a.Backend.HTTPClient(), a.Backend.LogsURL(), logging.Component("logstream"))
}
