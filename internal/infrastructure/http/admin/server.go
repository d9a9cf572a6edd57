// Package admin serves the operational endpoints: health, liveness,
// readiness and Prometheus metrics. It listens on its own port so the
// public API never exposes them.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/infrastructure/config"
	"github.com/nutriplan/engine/internal/infrastructure/http/middleware"
	"github.com/nutriplan/engine/pkg/healthcheck"
)

// Server is the admin HTTP server
type Server struct {
	config config.AdminConfig
	logger *zap.Logger
	engine *gin.Engine
	server *http.Server
}

// NewServer wires the health endpoints from monitoring config and serves
// metrics from the given handler. A nil metrics handler disables /metrics.
func NewServer(
	cfg config.AdminConfig,
	monitoring config.MonitoringConfig,
	health *healthcheck.HealthCheck,
	metrics http.Handler,
	mw *middleware.Middleware,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(mw.GinLogger())

	engine.GET(pathOr(monitoring.HealthPath, "/health"), health.Handler())
	engine.GET("/live", health.LivenessHandler())
	engine.GET(pathOr(monitoring.ReadinessPath, "/ready"), health.ReadinessHandler())
	if metrics != nil && monitoring.EnableMetrics {
		engine.GET(pathOr(monitoring.MetricsPath, "/metrics"), gin.WrapH(metrics))
	}

	return &Server{
		config: cfg,
		logger: logger.Named("admin-server"),
		engine: engine,
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}

// Handler returns the gin engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and blocks until shutdown
func (s *Server) Start() error {
	s.logger.Info("Starting admin server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve serves on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down admin server")
	return s.server.Shutdown(ctx)
}
