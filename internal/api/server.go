// Package api exposes the estimation service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/middleware"
	"github.com/pediatric-gfr-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthChecker is a dependency probed by /health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// StageCounter reports how many stored evaluations fall in each CKD stage.
type StageCounter interface {
	StageCounts(ctx context.Context) (map[domain.CKDStage]int64, error)
}

// Server represents the HTTP server
type Server struct {
	cfg      domain.ServerConfig
	service  *service.EstimationService
	parser   domain.InputParser
	logger   *logrus.Logger
	checks   map[string]HealthChecker
	stages   StageCounter
	upgrader websocket.Upgrader
	router   *gin.Engine
	server   *http.Server
}

// ServerOption configures optional dependencies.
type ServerOption func(*Server)

// WithHealthCheck adds a named dependency to /health.
func WithHealthCheck(name string, checker HealthChecker) ServerOption {
	return func(s *Server) { s.checks[name] = checker }
}

// WithStageCounter enables GET /api/v1/evaluations/stages.
func WithStageCounter(counter StageCounter) ServerOption {
	return func(s *Server) { s.stages = counter }
}

// NewServer creates a new HTTP server instance
func NewServer(cfg domain.ServerConfig, svc *service.EstimationService, parser domain.InputParser, logger *logrus.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	if parser == nil {
		parser = service.NewInputParserService()
	}

	origins := middleware.NewOriginPolicy(cfg.AllowedOrigins)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(origins.CORS())
	if cfg.RateLimit > 0 {
		router.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware())
	}

	s := &Server{
		cfg:     cfg,
		service: svc,
		parser:  parser,
		logger:  logger,
		checks:  make(map[string]HealthChecker),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     origins.CheckOrigin,
		},
		router: router,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.WithFields(logrus.Fields{
		"addr": addr,
		"tls":  s.cfg.TLSEnabled,
	}).Info("HTTP server listening")

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/profiles", s.handleProfiles)
		v1.GET("/ws", s.handleWebSocket)

		timed := v1.Group("")
		timed.Use(middleware.RequestTimeout(s.cfg.RequestTimeout))
		timed.POST("/evaluate", s.handleEvaluate)
		timed.POST("/evaluate/form", s.handleEvaluateForm)
		timed.POST("/evaluate/batch", s.handleEvaluateBatch)
		timed.GET("/evaluations", s.handleListEvaluations)
		timed.GET("/evaluations/stages", s.handleStageCounts)
		timed.GET("/evaluations/:id", s.handleGetEvaluation)
		timed.GET("/evaluations/:id/charts", s.handleGetCharts)
		timed.GET("/evaluations/:id/report", s.handleGetReport)
	}
}

// handleHealth reports the status of every registered dependency.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, checker := range s.checks {
		if err := checker.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"checks":    checks,
	})
}
