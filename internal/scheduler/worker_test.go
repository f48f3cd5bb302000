package scheduler

import (
	"context"
	"errors"
	"testing"

	convsvc "picklist_converter/internal/conversion/service"
	"picklist_converter/platform/apperr"
	"picklist_converter/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchConverter struct {
	got []int64
	err error
}

func (f *fakeBatchConverter) ConvertBatch(_ context.Context, ids []int64) (convsvc.BatchResult, error) {
	f.got = append(f.got, ids...)
	return convsvc.BatchResult{Converted: len(ids)}, f.err
}

func TestConvertTaskRoundTrip(t *testing.T) {
	task, err := NewConvertPicklistsTask(ConvertPicklistsPayload{PicklistIDs: []int64{1, 2}, RequestedBy: "ops"})
	require.NoError(t, err)
	assert.Equal(t, TaskConvertPicklists, task.Type())

	payload, err := ParseConvertPicklistsPayload(task)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, payload.PicklistIDs)
	assert.Equal(t, "ops", payload.RequestedBy)
}

func TestHandleConvertPicklists(t *testing.T) {
	conv := &fakeBatchConverter{}
	w := &Worker{converter: conv, log: logger.Nop()}

	task, err := NewConvertPicklistsTask(ConvertPicklistsPayload{PicklistIDs: []int64{7, 8}})
	require.NoError(t, err)

	require.NoError(t, w.handleConvertPicklists(context.Background(), task))
	assert.Equal(t, []int64{7, 8}, conv.got)
}

func TestHandleConvertPicklistsErrors(t *testing.T) {
	t.Run("malformed payload is not retried", func(t *testing.T) {
		w := &Worker{converter: &fakeBatchConverter{}, log: logger.Nop()}
		err := w.handleConvertPicklists(context.Background(), asynq.NewTask(TaskConvertPicklists, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("missing settings are not retried", func(t *testing.T) {
		conv := &fakeBatchConverter{err: apperr.NotConfigured("quotation defaults not configured")}
		w := &Worker{converter: conv, log: logger.Nop()}
		task, _ := NewConvertPicklistsTask(ConvertPicklistsPayload{PicklistIDs: []int64{1}})
		err := w.handleConvertPicklists(context.Background(), task)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("unavailable stores are retried", func(t *testing.T) {
		conv := &fakeBatchConverter{err: apperr.Unavailable("target store unreachable", errors.New("dial tcp"))}
		w := &Worker{converter: conv, log: logger.Nop()}
		task, _ := NewConvertPicklistsTask(ConvertPicklistsPayload{PicklistIDs: []int64{1}})
		err := w.handleConvertPicklists(context.Background(), task)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	})
}
