package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/history"
)

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(domain.DatabaseConfig{
		Host:            "db",
		Port:            5433,
		Database:        "gfr",
		Username:        "u",
		MaxOpenConns:    4,
		MaxIdleConns:    9,
		ConnMaxLifetime: time.Minute,
		SSLMode:         "disable",
	})

	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(4), cfg.MinConns, "min conns is capped at max conns")
	assert.Equal(t, time.Minute, cfg.MaxConnLife)

	assert.Equal(t, int32(10), ConfigFrom(domain.DatabaseConfig{}).MaxConns)
}

func TestDatabaseConnectionAndMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	url := fmt.Sprintf("postgres://testuser:testpass@%s:%d/testdb?sslmode=disable", host, port.Int())
	runner, err := NewMigrationRunner(url, "../../migrations", logger)
	require.NoError(t, err)
	defer runner.Close()

	require.NoError(t, runner.Up(ctx))
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// running again is a no-op
	require.NoError(t, runner.Up(ctx))

	db, err := NewConnection(ctx, Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    "testpass",
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: 30 * time.Minute,
		SSLMode:     "disable",
	}, logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Health(ctx))
	assert.NotZero(t, db.Stats().TotalConns())

	store, err := history.NewPostgresStoreFromURL(url, domain.DatabaseConfig{})
	require.NoError(t, err)
	defer store.Close()

	report := &domain.EstimationReport{
		Config:     domain.DefaultEngineConfig(),
		InitialGFR: 56.18,
		YearlyGFR:  []float64{56.18, 55.78},
		CKDStage:   domain.CKDStage3,
	}
	rec := history.NewRecord("chart-1", domain.PatientInput{Age: 8}, report)
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, report.YearlyGFR, got.Report.YearlyGFR)

	counts, err := db.StageCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.CKDStage3])
}
