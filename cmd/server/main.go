package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pediatric-gfr-server/internal/api"
	"github.com/pediatric-gfr-server/internal/cache"
	"github.com/pediatric-gfr-server/internal/config"
	"github.com/pediatric-gfr-server/internal/database"
	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/engine"
	"github.com/pediatric-gfr-server/internal/events"
	"github.com/pediatric-gfr-server/internal/history"
	"github.com/pediatric-gfr-server/internal/service"
)

const source = "pediatric-gfr-server"

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	configManager, err := config.NewManagerFromFile(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.LoggerFromConfig(cfg.Logging)

	defaults, err := engine.ValidateConfig(configManager.GetEngineConfig())
	if err != nil {
		logger.WithError(err).Fatal("Invalid engine defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var serverOpts []api.ServerOption

	store, db, err := openHistory(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open evaluation history")
	}
	defer store.Close()
	if db != nil {
		defer db.Close()
		serverOpts = append(serverOpts, api.WithHealthCheck("database", db), api.WithStageCounter(db))
	}

	svcOpts := []service.Option{
		service.WithHistory(store),
		service.WithBatchLimits(cfg.Engine.BatchConcurrency, cfg.Engine.MaxBatchSize),
		service.WithSource(source),
	}

	if cfg.Cache.Enabled {
		reportCache, redisCache, err := openCache(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create report cache")
		}
		if redisCache != nil {
			defer redisCache.Close()
			serverOpts = append(serverOpts, api.WithHealthCheck("redis", redisCache))
		}
		svcOpts = append(svcOpts, service.WithCache(reportCache))
	}

	if cfg.Events.Enabled {
		publisher, err := events.NewKafkaPublisher(cfg.Events, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create event publisher")
		}
		defer publisher.Close()
		svcOpts = append(svcOpts, service.WithPublisher(publisher))
	}

	svc := service.NewEstimationService(logger, nil, defaults, svcOpts...)
	server := api.NewServer(cfg.Server, svc, service.NewInputParserService(), logger, serverOpts...)

	logger.WithFields(logrus.Fields{
		"host":          cfg.Server.Host,
		"port":          cfg.Server.Port,
		"database":      cfg.Database.Driver,
		"decline_model": defaults.DeclineModel,
		"gfr_formula":   defaults.GFRFormula,
	}).Info("Starting pediatric GFR server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

// openHistory opens the configured store. For postgres it also runs the
// migrations and returns the pgx pool used for health and statistics.
func openHistory(ctx context.Context, m *config.Manager, logger *logrus.Logger) (history.Store, *database.DB, error) {
	dbCfg := *m.GetDatabaseConfig()

	if dbCfg.Driver != "postgres" {
		store, err := history.NewSQLiteStore(dbCfg.Path)
		return store, nil, err
	}

	url := m.GetDatabaseURL()
	runner, err := database.NewMigrationRunner(url, dbCfg.MigrationsPath, logger)
	if err != nil {
		return nil, nil, err
	}
	err = runner.Up(ctx)
	runner.Close()
	if err != nil {
		return nil, nil, err
	}

	store, err := history.NewPostgresStoreFromURL(url, dbCfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewConnection(ctx, database.ConfigFrom(dbCfg), logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// openCache builds the memory tier and, when configured, the Redis tier.
// An unreachable Redis at startup is logged and skipped.
func openCache(cfg domain.CacheConfig, logger *logrus.Logger) (*cache.TieredCache, *cache.RedisCache, error) {
	memory, err := cache.NewMemoryCache(cfg.MaxItems, cfg.DefaultTTL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RedisURL == "" {
		return cache.NewTieredCache(memory, nil, logger), nil, nil
	}

	redisCache, err := cache.NewRedisCache(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, using memory cache only")
		return cache.NewTieredCache(memory, nil, logger), nil, nil
	}
	return cache.NewTieredCache(memory, redisCache, logger), redisCache, nil
}
