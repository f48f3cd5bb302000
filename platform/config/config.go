// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides connection settings for the external relational stores.
type DatabaseConfig interface {
	GetSourceDatabaseURL() string
	GetTargetDatabaseURL() string
	GetSecondaryDatabaseURL() string
	IsSecondaryConfigured() bool
}

// LedgerConfig provides the location of the local conversion ledger.
type LedgerConfig interface {
	GetLedgerPath() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SchedulerConfig provides settings for the asynq conversion queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// ConversionConfig provides tuning for the conversion engine.
type ConversionConfig interface {
	GetExternalCallTimeout() time.Duration
	// GetAutoStartPoller gates the poller in the api process.
	GetAutoStartPoller() bool
	// GetSchedulerStartPoller gates the poller in the scheduler process.
	GetSchedulerStartPoller() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	SourceDatabaseURL    string
	TargetDatabaseURL    string
	SecondaryDatabaseURL string
	LedgerPath           string
	CORSAllowAll         bool
	CORSOrigins          []string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	ExternalCallTimeout  time.Duration
	AutoStartPoller      bool
	SchedulerStartPoller bool
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetSourceDatabaseURL() string    { return c.SourceDatabaseURL }
func (c *Config) GetTargetDatabaseURL() string    { return c.TargetDatabaseURL }
func (c *Config) GetSecondaryDatabaseURL() string { return c.SecondaryDatabaseURL }
func (c *Config) IsSecondaryConfigured() bool     { return c.SecondaryDatabaseURL != "" }

// LedgerConfig implementation
func (c *Config) GetLedgerPath() string { return c.LedgerPath }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// ConversionConfig implementation
func (c *Config) GetExternalCallTimeout() time.Duration { return c.ExternalCallTimeout }
func (c *Config) GetAutoStartPoller() bool              { return c.AutoStartPoller }
func (c *Config) GetSchedulerStartPoller() bool         { return c.SchedulerStartPoller }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":5000"),
		SourceDatabaseURL:    getEnv("SOURCE_DATABASE_URL", ""),
		TargetDatabaseURL:    getEnv("TARGET_DATABASE_URL", ""),
		SecondaryDatabaseURL: getEnv("SECONDARY_DATABASE_URL", ""),
		LedgerPath:           getEnv("LEDGER_PATH", "data/ledger.db"),
		CORSAllowAll:         containsWildcard(corsOrigins),
		CORSOrigins:          corsOrigins,
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "conversions"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "1")),
		ExternalCallTimeout:  mustDuration(getEnv("EXTERNAL_CALL_TIMEOUT", "30s")),
		AutoStartPoller:      strings.EqualFold(getEnv("AUTO_START_POLLER", "false"), "true"),
		SchedulerStartPoller: strings.EqualFold(getEnv("SCHEDULER_START_POLLER", "false"), "true"),
	}

	if cfg.SourceDatabaseURL == "" {
		return nil, fmt.Errorf("SOURCE_DATABASE_URL is required")
	}
	if cfg.TargetDatabaseURL == "" {
		return nil, fmt.Errorf("TARGET_DATABASE_URL is required")
	}
	if strings.TrimSpace(cfg.LedgerPath) == "" {
		return nil, fmt.Errorf("LEDGER_PATH must not be empty")
	}
	if cfg.ExternalCallTimeout <= 0 {
		return nil, fmt.Errorf("EXTERNAL_CALL_TIMEOUT must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
