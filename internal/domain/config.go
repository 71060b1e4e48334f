package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Engine   EngineSettings `mapstructure:"engine"`
	Events   EventsConfig   `mapstructure:"events"`
	MCP      MCPConfig      `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second per client
	RateBurst      int           `mapstructure:"rate_burst"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
	// AllowedOrigins are the browser origins admitted by CORS and the
	// websocket endpoint. "*" admits any origin.
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "sqlite", "postgres"
	Path            string        `mapstructure:"path"`   // sqlite file
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents report cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxItems    int           `mapstructure:"max_items"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// EngineSettings holds the default engine configuration and batch limits.
type EngineSettings struct {
	DeclineModel       string  `mapstructure:"decline_model"`
	GFRFormula         string  `mapstructure:"gfr_formula"`
	SchwartzProfile    string  `mapstructure:"schwartz_profile"`
	ScoringProfile     string  `mapstructure:"scoring_profile"`
	StagingMode        string  `mapstructure:"staging_mode"`
	// ProjectionYears < 0 leaves the horizon to the patient record.
	ProjectionYears    int     `mapstructure:"projection_years"`
	MaxAge             float64 `mapstructure:"max_age"`
	MaxProjectionYears int     `mapstructure:"max_projection_years"`
	BatchConcurrency   int     `mapstructure:"batch_concurrency"`
	MaxBatchSize       int     `mapstructure:"max_batch_size"`
}

// EngineConfig converts the settings into an engine configuration.
func (s EngineSettings) EngineConfig() EngineConfig {
	var years *int
	if s.ProjectionYears >= 0 {
		years = Years(s.ProjectionYears)
	}
	return EngineConfig{
		DeclineModel:       DeclineModel(s.DeclineModel),
		GFRFormula:         GFRFormula(s.GFRFormula),
		SchwartzProfile:    SchwartzProfile(s.SchwartzProfile),
		ScoringProfile:     ScoringProfile(s.ScoringProfile),
		StagingMode:        StagingMode(s.StagingMode),
		ProjectionYears:    years,
		MaxAge:             s.MaxAge,
		MaxProjectionYears: s.MaxProjectionYears,
	}
}

// EventsConfig configures the evaluation-completed event publisher.
type EventsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName     string        `mapstructure:"server_name"`
	ServerVersion  string        `mapstructure:"server_version"`
	TransportType  string        `mapstructure:"transport_type"` // "stdio", "http"
	HTTPPort       int           `mapstructure:"http_port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}
