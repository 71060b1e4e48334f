package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pediatric-gfr-server/internal/domain"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, domain.LinearDecline, cfg.DeclineModel)
	assert.Equal(t, domain.HeightOverFixedScr, cfg.GFRFormula)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "stdio", cfg.Transport)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("GFR_DATA_DIR", "/tmp/test-gfr")
	t.Setenv("GFR_CACHE_MAX_ITEMS", "500")
	t.Setenv("GFR_CACHE_TTL", "12h")
	t.Setenv("GFR_TRANSPORT", "http")
	t.Setenv("GFR_HTTP_PORT", "9090")
	t.Setenv("GFR_LOG_LEVEL", "debug")
	t.Setenv("GFR_DECLINE_MODEL", "exponential-aggressive")
	t.Setenv("GFR_FORMULA", "height-over-creatinine")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-gfr", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)

	engineCfg := cfg.EngineConfig()
	assert.Equal(t, domain.ExponentialAggressive, engineCfg.DeclineModel)
	assert.Equal(t, domain.HeightOverCreatinine, engineCfg.GFRFormula)
	assert.Nil(t, engineCfg.ProjectionYears)
}

func TestLoadLiteConfig_InvalidValuesIgnored(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("GFR_CACHE_MAX_ITEMS", "-5")
	t.Setenv("GFR_HTTP_PORT", "not-a-port")
	t.Setenv("GFR_DECLINE_MODEL", "quadratic")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, domain.LinearDecline, cfg.DeclineModel)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.pediatric-gfr"}

	assert.Equal(t, "/home/user/.pediatric-gfr/evaluations.db", cfg.HistoryDBPath())
	assert.Equal(t, "/home/user/.pediatric-gfr/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "gfr")}

	err := cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"GFR_DATA_DIR",
		"GFR_CACHE_MAX_ITEMS",
		"GFR_CACHE_TTL",
		"GFR_TRANSPORT",
		"GFR_HTTP_PORT",
		"GFR_LOG_LEVEL",
		"GFR_LOG_FORMAT",
		"GFR_DECLINE_MODEL",
		"GFR_FORMULA",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
