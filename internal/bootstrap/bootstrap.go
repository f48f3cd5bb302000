// Package bootstrap is the shared composition root for the api, scheduler and
// picklistctl binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"picklist_converter/internal/catalog"
	"picklist_converter/internal/catalog/secondary"
	catalogsvc "picklist_converter/internal/catalog/service"
	convsvc "picklist_converter/internal/conversion/service"
	apphttp "picklist_converter/internal/http"
	ledger "picklist_converter/internal/ledger/repository"
	picklists "picklist_converter/internal/picklists/repository"
	quotesrepo "picklist_converter/internal/quotes/repository"
	quotesvc "picklist_converter/internal/quotes/service"
	"picklist_converter/internal/settings"
	"picklist_converter/platform/config"
	"picklist_converter/platform/db"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"
	"picklist_converter/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectAttempts  = 5
	connectBaseDelay = 2 * time.Second
)

// Config combines the config interfaces the runtime needs.
type Config interface {
	config.DatabaseConfig
	config.LedgerConfig
	config.ConversionConfig
}

// Runtime holds every store connection and the services built on them.
type Runtime struct {
	SourcePool *pgxpool.Pool
	TargetPool *pgxpool.Pool
	Inventory  *secondary.Source
	Ledger     *ledger.Store
	Metrics    *metrics.Registry
	Validator  *validator.Validator

	Settings   *settings.Module
	Catalog    *catalog.Module
	Conversion *convsvc.Service
}

// Build connects to all stores and wires the conversion engine. The returned
// runtime must be closed by the caller.
func Build(ctx context.Context, cfg Config, log *logger.Logger) (*Runtime, error) {
	rt := &Runtime{
		Metrics:   metrics.NewRegistry(),
		Validator: validator.New(),
	}

	var err error
	if rt.SourcePool, err = connect(ctx, log, "source database", cfg.GetSourceDatabaseURL()); err != nil {
		rt.Close()
		return nil, err
	}
	if rt.TargetPool, err = connect(ctx, log, "target database", cfg.GetTargetDatabaseURL()); err != nil {
		rt.Close()
		return nil, err
	}

	if rt.Ledger, err = ledger.Open(ctx, cfg.GetLedgerPath()); err != nil {
		rt.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	log.Info("ledger opened", "path", cfg.GetLedgerPath())

	// Keep the interface nil when no inventory database is configured.
	var inventory catalogsvc.SecondarySource
	if cfg.IsSecondaryConfigured() {
		src, err := secondary.Open(cfg.GetSecondaryDatabaseURL())
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Inventory = src
		inventory = src
		log.Info("inventory database configured")
	} else {
		log.Warn("SECONDARY_DATABASE_URL not configured; copying from inventory disabled")
	}

	rt.Settings = settings.NewModule(rt.Ledger.DB(), rt.Validator, cfg.IsSecondaryConfigured(), log)
	rt.Catalog = catalog.NewModule(rt.TargetPool, inventory, rt.Metrics, log)

	rt.Conversion = convsvc.New(convsvc.Deps{
		Source:   picklists.New(rt.SourcePool),
		Matcher:  rt.Catalog.Matcher(),
		Writer:   quotesvc.New(quotesrepo.New(rt.TargetPool), log),
		Settings: rt.Settings.Service(),
		Ledger:   rt.Ledger,
		Metrics:  rt.Metrics,
		Log:      log,
	}, cfg.GetExternalCallTimeout())

	return rt, nil
}

// HealthChecks lists the readiness checks by store name.
func (rt *Runtime) HealthChecks() map[string]apphttp.HealthChecker {
	checks := map[string]apphttp.HealthChecker{
		"source": db.NewPoolAdapter(rt.SourcePool),
		"target": db.NewPoolAdapter(rt.TargetPool),
		"ledger": rt.Ledger,
	}
	if rt.Inventory != nil {
		checks["inventory"] = rt.Inventory
	}
	return checks
}

// Close releases every connection that was opened.
func (rt *Runtime) Close() {
	if rt.Ledger != nil {
		_ = rt.Ledger.Close()
	}
	if rt.Inventory != nil {
		_ = rt.Inventory.Close()
	}
	if rt.TargetPool != nil {
		rt.TargetPool.Close()
	}
	if rt.SourcePool != nil {
		rt.SourcePool.Close()
	}
}

func connect(ctx context.Context, log *logger.Logger, name, url string) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := WithRetry(ctx, log, name+" connection", connectAttempts, connectBaseDelay, func() error {
		p, err := db.NewPool(ctx, url)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("database connection established", "store", name)
	return pool, nil
}

// WithRetry runs fn until it succeeds, backing off quadratically.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
