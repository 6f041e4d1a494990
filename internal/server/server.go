// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/kwisatz/internal/engine"
	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxUploadBytes    = 32 << 20
)

// Server routes HTTP requests to an engine.
type Server struct {
	engine  *engine.Engine
	router  *gin.Engine
	tls     *tls.Config
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by the banner route.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithTLS serves HTTPS using cert.
func WithTLS(cert tls.Certificate) Option {
	return func(s *Server) {
		s.tls = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}
}

// New builds the router for e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:  e,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes
	router.Use(requestLogger(), gin.Recovery())
	router.NoRoute(func(c *gin.Context) {
		NotFound(c, fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})

	router.GET("/", s.bannerHandler)
	router.GET("/healthz", s.healthHandler)
	router.POST("/predict", s.predictHandler)
	router.POST("/predict_batch", s.predictBatchHandler)
	router.GET("/taxonomy", s.taxonomyHandler)
	router.POST("/upload_taxonomy", s.uploadTaxonomyHandler)
	router.POST("/corrections", s.correctionHandler)
	router.GET("/config", s.configHandler)
	router.POST("/evaluation", s.evaluationHandler)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		TLSConfig:         s.tls,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.tls != nil {
			slog.Info("https server listening", "address", addr)
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		slog.Info("http server listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to run http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
