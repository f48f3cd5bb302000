package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	convsvc "picklist_converter/internal/conversion/service"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"
)

const (
	msgPollerStarted        = "poller started"
	msgPollerStopped        = "poller stopped"
	msgPollerAlreadyRunning = "poller already running"
	msgPollerAlreadyStopped = "poller already stopped"
)

// PendingConverter converts every picklist that is still pending.
type PendingConverter interface {
	ConvertPending(ctx context.Context) (convsvc.BatchResult, error)
}

// IntervalSource yields the poll interval currently stored in settings.
type IntervalSource interface {
	PollInterval(ctx context.Context) (time.Duration, error)
}

// StatusResult is returned by Start and Stop.
type StatusResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Status reports whether the poller runs and at which interval.
type Status struct {
	Running         bool `json:"running"`
	IntervalSeconds int  `json:"intervalSeconds"`
}

// Poller periodically runs ConvertPending. Ticks that fire while a
// batch is still in flight are skipped, and Stop never interrupts a batch.
type Poller struct {
	converter PendingConverter
	intervals IntervalSource
	metrics   *metrics.Registry
	log       *logger.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	interval time.Duration

	busy  atomic.Bool
	loops sync.WaitGroup
}

// NewPoller creates a stopped poller.
func NewPoller(converter PendingConverter, intervals IntervalSource, reg *metrics.Registry, log *logger.Logger) *Poller {
	return &Poller{
		converter: converter,
		intervals: intervals,
		metrics:   reg,
		log:       log,
	}
}

// Start launches the loop with the interval stored in settings. The first
// batch runs immediately.
func (p *Poller) Start(ctx context.Context) (StatusResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return StatusResult{OK: false, Message: msgPollerAlreadyRunning}, nil
	}

	interval, err := p.intervals.PollInterval(ctx)
	if err != nil {
		return StatusResult{}, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	p.interval = interval
	p.setRunningGauge(1)

	p.loops.Add(1)
	go p.run(loopCtx, interval)

	p.log.Info("poller started", "intervalSeconds", int(interval/time.Second))
	return StatusResult{OK: true, Message: msgPollerStarted}, nil
}

// Stop ends the loop. A batch already in flight runs to completion, and no
// further batch starts once Stop has returned.
func (p *Poller) Stop() StatusResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return StatusResult{OK: false, Message: msgPollerAlreadyStopped}
	}

	p.cancel()
	p.running = false
	p.cancel = nil
	p.setRunningGauge(0)

	p.log.Info("poller stopped")
	return StatusResult{OK: true, Message: msgPollerStopped}
}

// Status reports the running flag and the effective interval.
func (p *Poller) Status(ctx context.Context) Status {
	p.mu.Lock()
	running, interval := p.running, p.interval
	p.mu.Unlock()

	if !running {
		if d, err := p.intervals.PollInterval(ctx); err == nil {
			interval = d
		}
	}
	return Status{Running: running, IntervalSeconds: int(interval / time.Second)}
}

// Shutdown stops the poller and waits for the loop and any in-flight batch.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.Stop()

	done := make(chan struct{})
	go func() {
		p.loops.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run(ctx context.Context, interval time.Duration) {
	defer p.loops.Done()

	p.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A fire buffered during a long batch may be selected over Done.
			if ctx.Err() != nil {
				return
			}
			p.tick(ctx)
			if next := p.refreshInterval(ctx, interval); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (p *Poller) refreshInterval(ctx context.Context, current time.Duration) time.Duration {
	next, err := p.intervals.PollInterval(ctx)
	if err != nil || next <= 0 {
		return current
	}
	if next != current {
		p.mu.Lock()
		if p.running {
			p.interval = next
		}
		p.mu.Unlock()
		p.log.Info("poller interval changed", "intervalSeconds", int(next/time.Second))
	}
	return next
}

// tick runs one batch unless the loop was stopped or a batch is in flight.
// The stop check shares p.mu with Stop, so a batch never starts after Stop
// has returned.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	if ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.PollerSkipped.Inc()
		}
		p.log.Debug("poller tick skipped, previous batch still running")
		return
	}
	p.mu.Unlock()
	defer p.busy.Store(false)

	if p.metrics != nil {
		p.metrics.PollerTicks.Inc()
	}

	// The batch runs detached from the loop so Stop cannot cut it short.
	result, err := p.converter.ConvertPending(context.Background())
	if err != nil {
		p.log.Warn("poller batch failed", "error", err)
		return
	}
	if result.Converted > 0 || result.Failed > 0 {
		p.log.Info("poller batch finished",
			"converted", result.Converted,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)
	}
}

func (p *Poller) setRunningGauge(v float64) {
	if p.metrics != nil {
		p.metrics.PollerRunning.Set(v)
	}
}
