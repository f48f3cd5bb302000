package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picklist_converter/internal/bootstrap"
	"picklist_converter/internal/scheduler"
	"picklist_converter/platform/config"
	"picklist_converter/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize stores", "error", err)
		panic("failed to initialize stores: " + err.Error())
	}
	defer rt.Close()

	worker, err := scheduler.NewWorker(cfg, rt.Conversion, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	// SCHEDULER_START_POLLER is separate from the api's AUTO_START_POLLER so
	// a deployment runs exactly one poller. Ledger leases keep overlapping
	// conversions safe either way.
	if cfg.GetSchedulerStartPoller() {
		poller := scheduler.NewPoller(rt.Conversion, rt.Settings.Service(), rt.Metrics, log)
		if _, err := poller.Start(gctx); err != nil {
			log.Warn("poller start failed", "error", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return poller.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn("scheduler stopped with error", "error", err)
	}
}
