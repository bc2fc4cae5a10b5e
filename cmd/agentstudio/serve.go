package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agentstudio/config"
	"github.com/hupe1980/agentstudio/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath, flags.envFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides http.addr")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn("app.close_failed", "error", err.Error())
		}
	}()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(a.studio, func(o *server.Options) {
		o.Logger = a.logger
		o.Metrics = a.metrics.Handler()
		o.ShutdownTimeout = cfg.HTTP.ShutdownTimeout
	})

	stats := a.studio.ToolStats()
	a.logger.Info("studio.ready",
		"version", version,
		"provider", cfg.Model.Provider,
		"model", cfg.Model.Model,
		"tools", stats.Total,
	)
	return srv.Run(ctx, cfg.HTTP.Addr)
}
