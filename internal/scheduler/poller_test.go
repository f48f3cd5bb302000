package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	convsvc "picklist_converter/internal/conversion/service"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntervals struct {
	mu       sync.Mutex
	interval time.Duration
	err      error
}

func (f *fakeIntervals) PollInterval(context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interval, f.err
}

type blockingConverter struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	ctxErrs chan error
}

func newBlockingConverter() *blockingConverter {
	return &blockingConverter{
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
		ctxErrs: make(chan error, 16),
	}
}

func (c *blockingConverter) ConvertPending(ctx context.Context) (convsvc.BatchResult, error) {
	c.calls.Add(1)
	c.started <- struct{}{}
	<-c.release
	c.ctxErrs <- ctx.Err()
	return convsvc.BatchResult{}, nil
}

type countingConverter struct {
	calls atomic.Int32
}

func (c *countingConverter) ConvertPending(context.Context) (convsvc.BatchResult, error) {
	c.calls.Add(1)
	return convsvc.BatchResult{Converted: 1}, nil
}

func TestPollerStartStopMessages(t *testing.T) {
	p := NewPoller(&countingConverter{}, &fakeIntervals{interval: time.Hour}, nil, logger.Nop())

	res, err := p.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "poller started", res.Message)

	res, err = p.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "poller already running", res.Message)

	status := p.Status(context.Background())
	assert.True(t, status.Running)
	assert.Equal(t, 3600, status.IntervalSeconds)

	res = p.Stop()
	assert.True(t, res.OK)
	assert.Equal(t, "poller stopped", res.Message)

	res = p.Stop()
	assert.False(t, res.OK)
	assert.Equal(t, "poller already stopped", res.Message)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.Status(context.Background()).Running)
}

func TestPollerStartPropagatesIntervalError(t *testing.T) {
	p := NewPoller(&countingConverter{}, &fakeIntervals{err: errors.New("ledger closed")}, nil, logger.Nop())

	_, err := p.Start(context.Background())
	require.Error(t, err)
	assert.False(t, p.Status(context.Background()).Running)
}

func TestPollerFirstTickIsImmediate(t *testing.T) {
	conv := &countingConverter{}
	p := NewPoller(conv, &fakeIntervals{interval: time.Hour}, nil, logger.Nop())

	_, err := p.Start(context.Background())
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	require.Eventually(t, func() bool { return conv.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPollerKeepsTicking(t *testing.T) {
	conv := &countingConverter{}
	reg := metrics.NewRegistry()
	p := NewPoller(conv, &fakeIntervals{interval: 10 * time.Millisecond}, reg, logger.Nop())

	_, err := p.Start(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return conv.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.PollerRunning))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, float64(0), testutil.ToFloat64(reg.PollerRunning))
	assert.GreaterOrEqual(t, testutil.ToFloat64(reg.PollerTicks), float64(3))
}

func TestPollerSkipsTickWhileBatchInFlight(t *testing.T) {
	conv := newBlockingConverter()
	reg := metrics.NewRegistry()
	p := NewPoller(conv, &fakeIntervals{interval: 10 * time.Millisecond}, reg, logger.Nop())

	_, err := p.Start(context.Background())
	require.NoError(t, err)
	<-conv.started

	// Restarting while the first batch is still running spawns a new loop
	// whose immediate tick must be skipped.
	p.Stop()
	_, err = p.Start(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(reg.PollerSkipped) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), conv.calls.Load())

	p.Stop()
	close(conv.release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPollerStopDoesNotCancelInFlightBatch(t *testing.T) {
	conv := newBlockingConverter()
	p := NewPoller(conv, &fakeIntervals{interval: time.Hour}, nil, logger.Nop())

	_, err := p.Start(context.Background())
	require.NoError(t, err)
	<-conv.started

	res := p.Stop()
	require.True(t, res.OK)

	close(conv.release)
	assert.NoError(t, <-conv.ctxErrs)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, int32(1), conv.calls.Load())
}

func TestPollerNoBatchAfterStop(t *testing.T) {
	// A batch that outlasts several intervals leaves a buffered tick behind;
	// once Stop has returned, that tick must not start another batch.
	for trial := 0; trial < 50; trial++ {
		conv := newBlockingConverter()
		p := NewPoller(conv, &fakeIntervals{interval: 5 * time.Millisecond}, nil, logger.Nop())

		_, err := p.Start(context.Background())
		require.NoError(t, err)
		<-conv.started

		time.Sleep(20 * time.Millisecond)
		p.Stop()
		close(conv.release)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, p.Shutdown(ctx))
		cancel()

		require.Equal(t, int32(1), conv.calls.Load(), "trial %d: batch started after Stop", trial)
	}
}
