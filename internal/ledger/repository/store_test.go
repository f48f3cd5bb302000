package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh ledger in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func success(picklistID, quotationID int64, number string) NewRecord {
	return NewRecord{PicklistID: picklistID, Success: true, QuotationID: &quotationID, QuotationNumber: &number}
}

func failure(picklistID int64, message string) NewRecord {
	return NewRecord{PicklistID: picklistID, Success: false, ErrorMessage: &message}
}

func TestOpen_CreatesDirectoryAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	for _, table := range []string{"conversion_records", "archived_picklists", "quotation_settings", "conversion_claims"} {
		var name string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s1.Record(ctx, success(7, 70, "PL-7"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	converted, err := s2.IsConverted(ctx, 7)
	require.NoError(t, err)
	assert.True(t, converted)
}

func TestRecord_SecondSuccessIsRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, success(1, 10, "PL-1-a"))
	require.NoError(t, err)

	_, err = s.Record(ctx, success(1, 11, "PL-1-b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyConverted))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalConverted)
}

func TestRecord_FailuresNeverBlock(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, failure(2, "missing_products: B2"))
	require.NoError(t, err)
	_, err = s.Record(ctx, failure(2, "missing_products: B2"))
	require.NoError(t, err)

	converted, err := s.IsConverted(ctx, 2)
	require.NoError(t, err)
	assert.False(t, converted)

	_, err = s.Record(ctx, success(2, 20, "PL-2"))
	require.NoError(t, err)

	converted, err = s.IsConverted(ctx, 2)
	require.NoError(t, err)
	assert.True(t, converted)
}

func TestDelete_MakesPicklistEligibleAgain(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec, err := s.Record(ctx, success(3, 30, "PL-3"))
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, []int64{rec.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	ids, err := s.ConvertedPicklistIDs(ctx)
	require.NoError(t, err)
	assert.False(t, ids[3])

	_, err = s.Record(ctx, success(3, 31, "PL-3-again"))
	require.NoError(t, err)
}

func TestDeleteAllFailed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, failure(4, "write_failed: boom"))
	require.NoError(t, err)
	_, err = s.Record(ctx, failure(5, "source_unreadable: timeout"))
	require.NoError(t, err)
	_, err = s.Record(ctx, success(6, 60, "PL-6"))
	require.NoError(t, err)

	deleted, err := s.DeleteAllFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalConverted: 1, TotalFailed: 0, TotalAttempts: 1}, stats)
}

func TestQuery_FiltersAndOrdersNewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, failure(1, "missing_products: B2"))
	require.NoError(t, err)
	_, err = s.Record(ctx, success(1, 10, "PL-1"))
	require.NoError(t, err)
	_, err = s.Record(ctx, failure(2, "empty_picklist: no lines"))
	require.NoError(t, err)

	all, total, err := s.Query(ctx, Filter{Status: StatusAll}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3, total)
	assert.Equal(t, int64(2), all[0].PicklistID)
	assert.Equal(t, int64(1), all[2].PicklistID)
	assert.False(t, all[2].Success)

	failed, total, err := s.Query(ctx, Filter{Status: StatusFailed}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, rec := range failed {
		assert.False(t, rec.Success)
		require.NotNil(t, rec.ErrorMessage)
		assert.Nil(t, rec.QuotationID)
	}

	succeeded, _, err := s.Query(ctx, Filter{Status: StatusSuccess}, 10, 0)
	require.NoError(t, err)
	require.Len(t, succeeded, 1)
	require.NotNil(t, succeeded[0].QuotationNumber)
	assert.Equal(t, "PL-1", *succeeded[0].QuotationNumber)

	page, total, err := s.Query(ctx, Filter{Status: StatusAll, PicklistID: 1}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.False(t, page[0].Success)
}

func TestArchive_TogglesVisibilityOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, success(9, 90, "PL-9"))
	require.NoError(t, err)

	n, err := s.Archive(ctx, []int64{9, 10}, "operator")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Archiving twice is an upsert.
	_, err = s.Archive(ctx, []int64{9}, "operator")
	require.NoError(t, err)

	archived, err := s.IsArchived(ctx, 10)
	require.NoError(t, err)
	assert.True(t, archived)

	records, _, err := s.Query(ctx, Filter{Status: StatusAll, PicklistID: 9}, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Archived)

	list, err := s.ListArchived(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	removed, err := s.Unarchive(ctx, []int64{9, 10, 11})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	ids, err := s.ArchivedPicklistIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	converted, err := s.IsConverted(ctx, 9)
	require.NoError(t, err)
	assert.True(t, converted, "archive must not touch conversion records")
}

func TestClaimConversion_ExclusiveUntilReleased(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	claim, err := s.ClaimConversion(ctx, 5, "api", time.Minute)
	require.NoError(t, err)
	assert.True(t, claim.Acquired)

	claim, err = s.ClaimConversion(ctx, 5, "scheduler", time.Minute)
	require.NoError(t, err)
	assert.False(t, claim.Acquired)
	assert.Nil(t, claim.Unrecorded)

	require.NoError(t, s.ReleaseConversion(ctx, 5, "scheduler"))
	claim, err = s.ClaimConversion(ctx, 5, "scheduler", time.Minute)
	require.NoError(t, err)
	assert.False(t, claim.Acquired, "only the owner may release")

	require.NoError(t, s.ReleaseConversion(ctx, 5, "api"))
	claim, err = s.ClaimConversion(ctx, 5, "scheduler", time.Minute)
	require.NoError(t, err)
	assert.True(t, claim.Acquired)
}

func TestClaimConversion_ExpiredLeaseIsTakenOver(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	claim, err := s.ClaimConversion(ctx, 6, "crashed", -time.Second)
	require.NoError(t, err)
	require.True(t, claim.Acquired)

	claim, err = s.ClaimConversion(ctx, 6, "api", time.Minute)
	require.NoError(t, err)
	assert.True(t, claim.Acquired)
}

func TestPinConversion_NeverExpires(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ClaimConversion(ctx, 7, "api", -time.Second)
	require.NoError(t, err)
	require.NoError(t, s.PinConversion(ctx, 7, "api", UnrecordedQuotation{QuotationID: 70, QuotationNumber: "PL-7"}))
	require.NoError(t, s.ReleaseConversion(ctx, 7, "api"))

	claim, err := s.ClaimConversion(ctx, 7, "scheduler", time.Minute)
	require.NoError(t, err)
	assert.False(t, claim.Acquired)
	require.NotNil(t, claim.Unrecorded)
	assert.Equal(t, int64(70), claim.Unrecorded.QuotationID)
	assert.Equal(t, "PL-7", claim.Unrecorded.QuotationNumber)

	require.NoError(t, s.ClearConversion(ctx, 7))
	claim, err = s.ClaimConversion(ctx, 7, "scheduler", time.Minute)
	require.NoError(t, err)
	assert.True(t, claim.Acquired)
}

func TestPinConversion_RequiresOwnership(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ClaimConversion(ctx, 8, "api", time.Minute)
	require.NoError(t, err)
	assert.Error(t, s.PinConversion(ctx, 8, "scheduler", UnrecordedQuotation{QuotationID: 80, QuotationNumber: "PL-8"}))
}
