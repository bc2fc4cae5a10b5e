// Package server exposes a Studio over a gin REST API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentstudio"
	"github.com/hupe1980/agentstudio/logging"
)

// Options configure a Server.
type Options struct {
	Logger logging.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end of a Studio.
type Server struct {
	studio *agentstudio.Studio
	router *gin.Engine
	opts   Options
}

// New builds the router. Call gin.SetMode before New to change the gin mode.
func New(studio *agentstudio.Studio, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		ShutdownTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Logger))

	s := &Server{studio: studio, router: router, opts: opts}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
	})
	if s.opts.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.opts.Metrics))
	}

	agents := s.router.Group("/api/v1/agents")
	{
		agents.POST("", createAgentHandler(s.studio))
		agents.GET("", listAgentsHandler(s.studio))
		agents.GET("/:agent_id", getAgentHandler(s.studio))
		agents.PUT("/:agent_id", updateAgentHandler(s.studio))
		agents.DELETE("/:agent_id", deleteAgentHandler(s.studio))
		agents.POST("/:agent_id/deploy", deployAgentHandler(s.studio))
		agents.POST("/:agent_id/execute", executeAgentHandler(s.studio))
		agents.GET("/:agent_id/executions", listAgentExecutionsHandler(s.studio))
	}

	// Single-agent executions under their historical paths.
	runs := s.router.Group("/api/workflows")
	{
		runs.GET("", listAgentRunsHandler(s.studio))
		runs.GET("/agent/:agent_id", listAgentExecutionsHandler(s.studio))
		runs.GET("/workflow/:execution_id", getExecutionHandler(s.studio))
		runs.POST("/agent/:agent_id/execute", executeAgentHandler(s.studio))
		runs.GET("/tools", listToolsHandler(s.studio))
		runs.POST("/execute/:tool_id", executeToolByPathHandler(s.studio))
	}

	workflows := s.router.Group("/api/multi-agent-workflows")
	{
		workflows.POST("", createWorkflowHandler(s.studio))
		workflows.GET("", listWorkflowsHandler(s.studio))
		workflows.GET("/executions/:execution_id", getExecutionHandler(s.studio))
		workflows.GET("/:workflow_id", getWorkflowHandler(s.studio))
		workflows.PUT("/:workflow_id", updateWorkflowHandler(s.studio))
		workflows.DELETE("/:workflow_id", deleteWorkflowHandler(s.studio))
		workflows.POST("/:workflow_id/execute", executeWorkflowHandler(s.studio))
		workflows.GET("/:workflow_id/executions", listWorkflowExecutionsHandler(s.studio))
		workflows.POST("/:workflow_id/executions/:execution_id/cancel", cancelExecutionHandler(s.studio))
	}

	tools := s.router.Group("/api/v1/tools")
	{
		tools.GET("", listToolsHandler(s.studio))
		tools.GET("/openai/format", toolDefinitionsHandler(s.studio))
		tools.GET("/registry/stats", toolStatsHandler(s.studio))
		tools.POST("/execute", executeToolHandler(s.studio))
		tools.GET("/:tool_id", getToolHandler(s.studio))
	}
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("server.listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	s.opts.Logger.Info("server.shutdown")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http.request", args...)
		case status >= http.StatusBadRequest:
			logger.Warn("http.request", args...)
		default:
			logger.Debug("http.request", args...)
		}
	}
}
