package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledger "picklist_converter/internal/ledger/repository"
	"picklist_converter/internal/settings/repository"
	"picklist_converter/platform/apperr"
)

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store, err := ledger.Open(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo := repository.New(store.DB())

	_, err = repo.Get(ctx)
	assert.True(t, apperr.Is(err, apperr.KindNotConfigured))

	_, err = repo.Save(ctx, repository.QuotationDefaults{
		CustomerID: 42, DefaultStatus: 1, TitlePrefix: "PL", PollIntervalSeconds: 30,
	})
	require.NoError(t, err)

	_, err = repo.Save(ctx, repository.QuotationDefaults{
		CustomerID: 43, DefaultStatus: 2, TitlePrefix: "PICK", PollIntervalSeconds: 45, SecondaryEnabled: true,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(43), got.CustomerID)
	assert.Equal(t, 2, got.DefaultStatus)
	assert.Equal(t, "PICK", got.TitlePrefix)
	assert.Equal(t, 45, got.PollIntervalSeconds)
	assert.True(t, got.SecondaryEnabled)
	assert.False(t, got.UpdatedAt.IsZero())
}
