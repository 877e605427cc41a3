package app

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/ifgrid/internal/metrics"
	"github.com/vk/ifgrid/internal/registry"
)

// Version is stamped into the execution block of result manifests.
var Version = "dev"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger    *slog.Logger
	config    *Config
	factories registry.Factories
	gatherer  *prometheus.Registry
	recorder  metrics.Recorder
	now       func() time.Time
}

// NewApp is the constructor for the main application. Logs go to logW. The
// returned App owns an isolated logger, plugin factory set and metrics
// registry. When no modules are given the builtin plugins are used.
func NewApp(logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	factories := registry.NewFactories(modules...)
	logger.Debug("Plugin modules registered.", "count", len(modules), "methods", len(factories))

	gatherer := prometheus.NewRegistry()
	return &App{
		logger:    logger,
		config:    cfg,
		factories: factories,
		gatherer:  gatherer,
		recorder:  metrics.NewPrometheus(gatherer),
		now:       time.Now,
	}
}

// Metrics returns the registry holding this App's plugin execution metrics.
func (a *App) Metrics() prometheus.Gatherer {
	return a.gatherer
}
