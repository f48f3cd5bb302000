package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picklist_converter/internal/bootstrap"
	"picklist_converter/internal/conversion"
	apphttp "picklist_converter/internal/http"
	"picklist_converter/internal/http/router"
	"picklist_converter/internal/scheduler"
	"picklist_converter/platform/config"
	"picklist_converter/platform/logger"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	rt, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize stores", "error", err)
		panic("failed to initialize stores: " + err.Error())
	}
	defer rt.Close()

	queue, closeQueue := initConversionQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	poller := scheduler.NewPoller(rt.Conversion, rt.Settings.Service(), rt.Metrics, log)
	conversionModule := conversion.NewModule(rt.Conversion, poller, queue, rt.Validator)

	if cfg.GetAutoStartPoller() {
		if _, err := poller.Start(ctx); err != nil {
			log.Warn("poller auto-start failed", "error", err)
		}
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  rt.HealthChecks(),
		Metrics: rt.Metrics,
		Modules: []apphttp.Module{
			rt.Settings,
			conversionModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown incomplete", "error", err)
		}
		if err := poller.Shutdown(shutdownCtx); err != nil {
			log.Warn("poller batch still running at shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

// initConversionQueue returns a nil interface when Redis is not configured.
func initConversionQueue(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ConversionQueue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; queued conversions disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize conversion queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}
