package domain

import (
	"context"
)

// Evaluator turns a patient record into an estimation report
type Evaluator interface {
	Evaluate(patient PatientInput, cfg EngineConfig) (*EstimationReport, error)
}

// InputParser builds a PatientInput from untrusted form values
type InputParser interface {
	ParseForm(values map[string]string) (PatientInput, error)
}

// ReportCache stores reports keyed by a digest of input and configuration
type ReportCache interface {
	Get(ctx context.Context, key string) (*EstimationReport, bool)
	Set(ctx context.Context, key string, report *EstimationReport) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetEngineConfig() EngineConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
