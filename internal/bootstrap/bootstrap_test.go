package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"picklist_converter/platform/logger"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), logger.Nop(), "op", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryReturnsLastError(t *testing.T) {
	err := WithRetry(context.Background(), logger.Nop(), "connect", 2, time.Millisecond, func() error {
		return errors.New("refused")
	})
	if err == nil || err.Error() != "connect: refused" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, logger.Nop(), "op", 5, time.Millisecond, func() error {
		calls++
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Fatalf("expected immediate cancel, got %v after %d calls", err, calls)
	}
}
