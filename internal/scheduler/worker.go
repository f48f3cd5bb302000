package scheduler

import (
	"context"
	"fmt"

	convsvc "picklist_converter/internal/conversion/service"
	"picklist_converter/platform/apperr"
	"picklist_converter/platform/config"
	"picklist_converter/platform/logger"

	"github.com/hibiken/asynq"
)

// BatchConverter runs one conversion batch.
type BatchConverter interface {
	ConvertBatch(ctx context.Context, ids []int64) (convsvc.BatchResult, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	converter BatchConverter
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, converter BatchConverter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		converter: converter,
		log:       log,
	}

	mux.HandleFunc(TaskConvertPicklists, w.handleConvertPicklists)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleConvertPicklists(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseConvertPicklistsPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if len(payload.PicklistIDs) == 0 {
		return nil
	}

	result, err := w.converter.ConvertBatch(ctx, payload.PicklistIDs)
	if err != nil {
		// Missing settings will not fix themselves on retry.
		if apperr.Is(err, apperr.KindNotConfigured) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	w.log.Info("queued conversion batch processed",
		"requestedBy", payload.RequestedBy,
		"requested", len(payload.PicklistIDs),
		"converted", result.Converted,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return nil
}
