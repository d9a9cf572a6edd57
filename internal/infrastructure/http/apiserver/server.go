// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/nutriplan/engine/internal/infrastructure/config"
	"github.com/nutriplan/engine/internal/infrastructure/http/handlers"
	"github.com/nutriplan/engine/internal/infrastructure/http/middleware"
)

const compressionLevel = 5

// APIServer serves the REST API and the realtime websocket endpoint
type APIServer struct {
	config   config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	router   *chi.Mux
	handlers *handlers.APIHandlers
	realtime http.Handler
	mw       *middleware.Middleware
	openAPI  *OpenAPIHandler
}

// NewAPIServer creates a new API server instance. realtime may be nil to
// disable the websocket endpoint.
func NewAPIServer(
	cfg config.ServerConfig,
	h *handlers.APIHandlers,
	realtime http.Handler,
	mw *middleware.Middleware,
	log *zap.Logger,
) *APIServer {
	s := &APIServer{
		config:   cfg,
		logger:   log.Named("api-server"),
		handlers: h,
		realtime: realtime,
		mw:       mw,
		openAPI:  NewOpenAPIHandler(log),
	}

	s.router = s.setupRoutes()

	var handler http.Handler = otelhttp.NewHandler(s.router, "nutriplan-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	if cfg.EnableHTTP2 {
		handler = h2c.NewHandler(handler, &http2.Server{
			MaxConcurrentStreams: 250,
			IdleTimeout:          cfg.IdleTimeout,
		})
	}

	s.server = &http.Server{
		Addr:           cfg.Addr(),
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	return s
}

// setupRoutes configures the router
func (s *APIServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.mw.Logger())
	r.Use(s.mw.Recovery())
	r.Use(s.mw.Security())
	r.Use(s.mw.CORS())
	r.Use(s.mw.RateLimit())

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(s.config.RequestTimeout))
		}
		if s.config.EnableCompression {
			r.Use(newCompressor().Handler)
		}
		r.Get("/openapi.yaml", s.openAPI.ServeOpenAPISpec)

		r.Group(func(r chi.Router) {
			r.Use(s.mw.Identity())
			s.handlers.Routes(r)
		})
	})

	if s.realtime != nil {
		r.With(s.mw.Identity()).Get("/ws", s.realtime.ServeHTTP)
	}

	return r
}

// newCompressor prefers brotli and falls back to gzip and deflate
func newCompressor() *chimiddleware.Compressor {
	c := chimiddleware.NewCompressor(compressionLevel, "application/json", "application/x-yaml")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

// Start starts the HTTP server and blocks until it stops
func (s *APIServer) Start() error {
	s.logger.Info("Starting API server",
		zap.String("address", s.server.Addr),
		zap.Bool("http2", s.config.EnableHTTP2),
		zap.Bool("compression", s.config.EnableCompression),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve serves on an existing listener
func (s *APIServer) Serve(ln net.Listener) error {
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the fully wrapped handler
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

// Server returns the underlying HTTP server instance
func (s *APIServer) Server() *http.Server {
	return s.server
}

// Shutdown gracefully shuts down the server
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}
