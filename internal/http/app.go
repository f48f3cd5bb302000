// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"picklist_converter/platform/config"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health maps a store name to its readiness check.
	Health map[string]HealthChecker
	// Metrics is served on /metrics when set.
	Metrics *metrics.Registry
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
