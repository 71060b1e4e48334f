// Package mcp provides the MCP server implementation.
// This file contains the lightweight server that requires no external databases.
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pediatric-gfr-server/internal/cache"
	litecfg "github.com/pediatric-gfr-server/internal/config"
	"github.com/pediatric-gfr-server/internal/history"
	"github.com/pediatric-gfr-server/internal/service"
)

const (
	serverName    = "pediatric-gfr-server-lite"
	serverVersion = "v1.0.0"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching and SQLite for the evaluation history.
type LiteServer struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	service   *service.EstimationService
	store     history.Store
	cache     *cache.MemoryCache
	logger    *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithHistoryStore sets a custom evaluation history store.
func WithHistoryStore(store history.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: litecfg.NewLogger(cfg.LogLevel, cfg.LogFormat),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	memCache, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	server.cache = memCache

	if server.store == nil {
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.store = store
	}

	server.service = service.NewEstimationService(server.logger, nil, cfg.EngineConfig(),
		service.WithCache(cache.NewTieredCache(memCache, nil, server.logger)),
		service.WithHistory(server.store),
		service.WithSource(serverName),
	)

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	server.registerTools()

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

// registerTools registers the evaluation tools with the MCP SDK.
func (s *LiteServer) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "estimate_gfr",
		Description: "Estimate the current GFR of a pediatric patient and project it over the requested number of years, with CKD staging, risk scores and treatment effects.",
	}, s.handleEstimateGFR)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_profiles",
		Description: "List the selectable decline models, GFR formulas, Schwartz and scoring profiles, staging modes and the server defaults.",
	}, s.handleListProfiles)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_evaluation",
		Description: "Fetch a stored evaluation by ID as JSON or as a text report.",
	}, s.handleGetEvaluation)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_evaluations",
		Description: "List stored evaluations, newest first.",
	}, s.handleListEvaluations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_evaluations",
		Description: "Export the evaluation history to a JSON file in the data directory.",
	}, s.handleExportEvaluations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "import_evaluations",
		Description: "Import evaluations from a JSON export. Existing IDs are skipped.",
	}, s.handleImportEvaluations)

	s.logger.WithField("tool_count", 6).Info("Successfully registered all tools")
}

// Start runs the server on the configured transport until ctx is cancelled.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.WithField("transport_type", s.config.Transport).Info("Starting pediatric GFR MCP server (lite)")

	switch s.config.Transport {
	case "http":
		return s.serveHTTP(ctx)
	case "stdio", "":
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported transport: %s", s.config.Transport)
	}
}

func (s *LiteServer) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.WithField("port", s.config.HTTPPort).Info("MCP HTTP transport listening")

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP transport failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
			return err
		}
	}
	return nil
}

// GetHistoryStore returns the history store for external access.
func (s *LiteServer) GetHistoryStore() history.Store {
	return s.store
}

// GetCache returns the memory cache for external access.
func (s *LiteServer) GetCache() *cache.MemoryCache {
	return s.cache
}
