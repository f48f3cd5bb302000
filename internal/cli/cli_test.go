package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogsvc "picklist_converter/internal/catalog/service"
	convsvc "picklist_converter/internal/conversion/service"
	"picklist_converter/internal/conversion/transport"
	ledger "picklist_converter/internal/ledger/repository"
	settingstransport "picklist_converter/internal/settings/transport"
	"picklist_converter/platform/apperr"
)

type fakeEngine struct {
	batchIDs   []int64
	pending    bool
	result     convsvc.BatchResult
	err        error
	archivedBy string
	filter     ledger.Filter
	purged     string
}

func (f *fakeEngine) ConvertBatch(_ context.Context, ids []int64) (convsvc.BatchResult, error) {
	f.batchIDs = ids
	return f.result, f.err
}

func (f *fakeEngine) ConvertPending(context.Context) (convsvc.BatchResult, error) {
	f.pending = true
	return f.result, f.err
}

func (f *fakeEngine) CheckProducts(context.Context, []int64) (convsvc.ProductCheck, error) {
	return convsvc.ProductCheck{
		TotalProducts: 2, MissingCount: 1, CanCopyCount: 1,
		Missing: []convsvc.MissingProduct{{PicklistID: 1, Barcode: "B2", Name: "Bolt", Quantity: 2, Status: catalogsvc.StatusFoundInSecondary, Reason: "found in secondary source"}},
	}, nil
}

func (f *fakeEngine) CopyFromSecondary(_ context.Context, barcodes []string) (catalogsvc.CopyResult, error) {
	return catalogsvc.CopyResult{Copied: barcodes}, nil
}

func (f *fakeEngine) History(_ context.Context, filter ledger.Filter, _, _ int) ([]ledger.Record, int, error) {
	f.filter = filter
	msg := "missing_products: B2"
	return []ledger.Record{{ID: 1, PicklistID: 7, ErrorMessage: &msg}}, 1, nil
}

func (f *fakeEngine) DeleteRecords(_ context.Context, ids []int64) (int64, error) {
	f.purged = "ids"
	return int64(len(ids)), nil
}

func (f *fakeEngine) DeleteAllFailed(context.Context) (int64, error) {
	f.purged = "failed"
	return 4, nil
}

func (f *fakeEngine) Overview(context.Context) (convsvc.Overview, error) {
	return convsvc.Overview{
		Stats:        ledger.Stats{TotalConverted: 3, TotalFailed: 1, TotalAttempts: 4},
		PendingCount: 2,
	}, nil
}

func (f *fakeEngine) Archive(_ context.Context, ids []int64, by string) (int, error) {
	f.archivedBy = by
	return len(ids), nil
}

func (f *fakeEngine) Unarchive(_ context.Context, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

func (f *fakeEngine) ListArchived(context.Context, int, int) ([]ledger.ArchivedPicklist, error) {
	return nil, nil
}

type fakeSettings struct {
	saved settingstransport.UpdateQuotationDefaultsRequest
}

func (f *fakeSettings) Describe(context.Context) (settingstransport.QuotationDefaultsResponse, error) {
	return settingstransport.QuotationDefaultsResponse{}, apperr.NotConfigured("quotation defaults not configured")
}

func (f *fakeSettings) Update(_ context.Context, req settingstransport.UpdateQuotationDefaultsRequest) (settingstransport.QuotationDefaultsResponse, error) {
	f.saved = req
	return settingstransport.QuotationDefaultsResponse{CustomerID: req.CustomerID, TitlePrefix: req.TitlePrefix, PollIntervalSeconds: 60}, nil
}

func run(t *testing.T, engine *fakeEngine, settings *fakeSettings, args ...string) (string, error) {
	t.Helper()
	closed := false
	open := func(context.Context) (*Session, error) {
		return &Session{Engine: engine, Settings: settings, Close: func() { closed = true }}, nil
	}

	cmd := NewRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		assert.True(t, closed, "session should be closed")
	}
	return out.String(), err
}

func TestConvertSelected(t *testing.T) {
	engine := &fakeEngine{result: convsvc.BatchResult{Converted: 2}}

	out, err := run(t, engine, &fakeSettings{}, "convert", "10", "11")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, engine.batchIDs)
	assert.Contains(t, out, "converted: 2")
}

func TestConvertAllJSON(t *testing.T) {
	engine := &fakeEngine{result: convsvc.BatchResult{Skipped: 3}}

	out, err := run(t, engine, &fakeSettings{}, "convert", "--all", "--format", "json")
	require.NoError(t, err)
	assert.True(t, engine.pending)

	var resp transport.BatchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.Skipped)
}

func TestConvertFailuresExitOne(t *testing.T) {
	engine := &fakeEngine{result: convsvc.BatchResult{
		Failed: 1,
		Errors: []convsvc.BatchError{{PicklistID: 5, Reason: convsvc.ReasonMissingProducts, Message: "missing_products: B2"}},
	}}

	out, err := run(t, engine, &fakeSettings{}, "convert", "5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "picklist 5: missing_products: B2")
}

func TestConvertArgumentErrors(t *testing.T) {
	cases := [][]string{
		{"convert"},
		{"convert", "--all", "1"},
		{"convert", "abc"},
		{"convert", "1", "--format", "yaml"},
	}
	for _, args := range cases {
		_, err := run(t, &fakeEngine{}, &fakeSettings{}, args...)
		require.Error(t, err, strings.Join(args, " "))
		assert.Equal(t, ExitCommandError, GetExitCode(err), strings.Join(args, " "))
	}
}

func TestConvertTopLevelError(t *testing.T) {
	engine := &fakeEngine{err: apperr.Unavailable("source store unreachable", errors.New("dial tcp"))}

	_, err := run(t, engine, &fakeSettings{}, "convert", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "conversion did not start")
}

func TestOpenFailure(t *testing.T) {
	cmd := NewRootCommand(func(context.Context) (*Session, error) {
		return nil, errors.New("SOURCE_DATABASE_URL is required")
	})
	cmd.SetArgs([]string{"stats"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckAndCopy(t *testing.T) {
	out, err := run(t, &fakeEngine{}, &fakeSettings{}, "check", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "can copy: 1")
	assert.Contains(t, out, "B2")

	out, err = run(t, &fakeEngine{}, &fakeSettings{}, "copy", "B2", "--format", "json")
	require.NoError(t, err)
	var resp transport.CopyProductsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"B2"}, resp.Copied)
}

func TestHistoryStatsPurge(t *testing.T) {
	engine := &fakeEngine{}

	out, err := run(t, engine, &fakeSettings{}, "history", "--status", "failed", "--picklist", "7")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusFailed, engine.filter.Status)
	assert.Equal(t, int64(7), engine.filter.PicklistID)
	assert.Contains(t, out, "missing_products: B2")

	out, err = run(t, engine, &fakeSettings{}, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "attempts: 4")
	assert.Contains(t, out, "pending: 2")
	assert.Contains(t, out, "not configured")

	out, err = run(t, engine, &fakeSettings{}, "stats", "--format", "json")
	require.NoError(t, err)
	var stats transport.StatsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.PendingCount)
	assert.False(t, stats.Configured)

	_, err = run(t, engine, &fakeSettings{}, "purge", "--failed")
	require.NoError(t, err)
	assert.Equal(t, "failed", engine.purged)

	_, err = run(t, engine, &fakeSettings{}, "purge", "3", "4")
	require.NoError(t, err)
	assert.Equal(t, "ids", engine.purged)
}

func TestArchive(t *testing.T) {
	engine := &fakeEngine{}

	out, err := run(t, engine, &fakeSettings{}, "archive", "1", "2", "--by", "dana")
	require.NoError(t, err)
	assert.Equal(t, "dana", engine.archivedBy)
	assert.Contains(t, out, "archived 2 picklist(s)")

	out, err = run(t, engine, &fakeSettings{}, "unarchive", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "unarchived 1 picklist(s)")
}

func TestSettings(t *testing.T) {
	settings := &fakeSettings{}

	_, err := run(t, &fakeEngine{}, settings, "settings", "show")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotConfigured))

	out, err := run(t, &fakeEngine{}, settings, "settings", "set", "--customer", "42", "--prefix", "PL", "--secondary")
	require.NoError(t, err)
	assert.Equal(t, int64(42), settings.saved.CustomerID)
	assert.True(t, settings.saved.SecondaryEnabled)
	assert.Contains(t, out, "prefix:    PL")
}
