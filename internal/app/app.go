package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/vk/evalgraph/internal/config"
	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/statusfeed"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	ctx      context.Context
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	model    *config.Model

	httpServer *http.Server
	// status is the event of the most recent pass.
	status atomic.Pointer[statusfeed.Event]
}

// NewApp loads every graph file with loaders and registers modules, or
// the core modules when none are given. Load and validation problems are
// returned; nothing is evaluated until Run.
func NewApp(outW io.Writer, cfg *Config, loaders []config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(loaders) == 0 {
		return nil, errors.New("no graph loaders configured")
	}
	model := &config.Model{}
	for _, l := range loaders {
		m, err := l.Load(ctx, cfg.GraphPaths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load graph: %w", err)
		}
		model.Merge(m)
	}
	if len(model.Nodes) == 0 {
		return nil, fmt.Errorf("no nodes found in %v", cfg.GraphPaths)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Graph files loaded into unified model.", "nodes", len(model.Nodes))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	reg.RegisterAll(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		ctx:      ctx,
		logger:   logger,
		config:   cfg,
		registry: reg,
		model:    model,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded graph model.
func (a *App) Model() *config.Model {
	return a.model
}

// Status returns the event of the most recent pass, or nil before the
// first pass.
func (a *App) Status() *statusfeed.Event {
	return a.status.Load()
}
