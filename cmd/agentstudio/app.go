package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentstudio"
	"github.com/hupe1980/agentstudio/config"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/metrics"
	"github.com/hupe1980/agentstudio/model"
	"github.com/hupe1980/agentstudio/model/provider"
	"github.com/hupe1980/agentstudio/store/postgres"
	"github.com/hupe1980/agentstudio/tool/mcpbridge"
)

// app bundles the long-lived components built from a configuration.
type app struct {
	cfg     config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	studio  *agentstudio.Studio

	closers []func() error
}

type appOptions struct {
	// Model replaces the configured provider.
	Model model.Model
	// Templates are merged over the configured template catalog.
	Templates map[string]core.AgentConfig
	// SkipMCP leaves configured MCP servers unconnected.
	SkipMCP bool
}

func newApp(ctx context.Context, cfg config.Config, optFns ...func(o *appOptions)) (*app, error) {
	var opts appOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &app{cfg: cfg, logger: cfg.Logger(), metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	m := opts.Model
	if m == nil {
		var err error
		if m, err = provider.New(cfg.Model); err != nil {
			return nil, err
		}
	}

	templates := map[string]core.AgentConfig{}
	if cfg.Agent.Templates != "" {
		loaded, err := config.LoadTemplates(cfg.Agent.Templates)
		if err != nil {
			return nil, err
		}
		templates = loaded
	}
	for id, t := range opts.Templates {
		templates[id] = t
	}

	studioOpts := func(o *agentstudio.Options) {
		o.Templates = templates
		o.MaxIterations = cfg.Agent.MaxIterations
		o.MaxParallelTools = cfg.Agent.MaxParallelTools
		o.ToolTimeout = cfg.Agent.ToolTimeout
		o.ToolObserver = a.metrics
		o.ModelObserver = a.metrics
		o.ExecutionObserver = a.metrics
		o.Logger = a.logger
	}

	var storeOpts func(o *agentstudio.Options)
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Store.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		storeOpts = func(o *agentstudio.Options) {
			o.Agents = store
			o.Workflows = store
			o.Executions = store
			o.Conversations = store
		}
		a.logger.Info("store.ready", "driver", config.DriverPostgres)
	default:
		storeOpts = func(*agentstudio.Options) {}
		a.logger.Info("store.ready", "driver", config.DriverMemory)
	}

	studio, err := agentstudio.New(m, studioOpts, storeOpts)
	if err != nil {
		return nil, err
	}
	a.studio = studio

	if !opts.SkipMCP {
		if err := a.connectMCP(ctx); err != nil {
			return nil, err
		}
	}

	ok = true
	return a, nil
}

// connectMCP starts every enabled MCP server and registers its tools. A
// server that fails to start is logged and skipped.
func (a *app) connectMCP(ctx context.Context) error {
	var servers []mcpbridge.ServerConfig
	for _, s := range a.cfg.MCPServers {
		if !s.Disabled {
			servers = append(servers, s)
		}
	}
	if len(servers) == 0 {
		return nil
	}

	bridge := mcpbridge.New(func(o *mcpbridge.Options) {
		o.Logger = a.logger
		o.ClientVersion = version
		o.CallTimeout = a.cfg.Agent.ToolTimeout
	})
	a.closers = append(a.closers, bridge.Close)

	for _, s := range servers {
		if err := bridge.Connect(ctx, s); err != nil {
			a.logger.Warn("mcp.server.failed", "server", s.Name, "error", err.Error())
		}
	}
	if err := bridge.Register(ctx, a.studio.Registry()); err != nil {
		return fmt.Errorf("register mcp tools: %w", err)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
