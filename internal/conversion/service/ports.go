package service

import (
	"context"
	"time"

	catalogsvc "picklist_converter/internal/catalog/service"
	ledger "picklist_converter/internal/ledger/repository"
	picklists "picklist_converter/internal/picklists/repository"
	quotesvc "picklist_converter/internal/quotes/service"
	settings "picklist_converter/internal/settings/repository"
)

// SourceReader reads picklists from the fulfillment database.
type SourceReader interface {
	Ping(ctx context.Context) error
	ListHeaders(ctx context.Context) ([]picklists.Header, error)
	GetHeader(ctx context.Context, id int64) (picklists.Header, error)
	GetLines(ctx context.Context, picklistID int64) ([]picklists.Line, error)
}

// CatalogMatcher resolves barcodes and copies products from the secondary source.
type CatalogMatcher interface {
	Match(ctx context.Context, barcodes []string, withSecondary bool) ([]catalogsvc.LineMatch, error)
	CopyFromSecondary(ctx context.Context, barcodes []string, enabled bool) (catalogsvc.CopyResult, error)
	SecondaryConfigured() bool
}

// QuotationWriter writes quotations to the target database.
type QuotationWriter interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, draft quotesvc.Draft) (quotesvc.Created, error)
}

// SettingsProvider supplies the quotation defaults.
type SettingsProvider interface {
	Get(ctx context.Context) (settings.QuotationDefaults, error)
}

// Ledger is the durable conversion record store. Its leases guard a picklist
// across every process sharing the ledger file.
type Ledger interface {
	ClaimConversion(ctx context.Context, picklistID int64, owner string, ttl time.Duration) (ledger.Claim, error)
	ReleaseConversion(ctx context.Context, picklistID int64, owner string) error
	PinConversion(ctx context.Context, picklistID int64, owner string, q ledger.UnrecordedQuotation) error
	ClearConversion(ctx context.Context, picklistID int64) error

	IsConverted(ctx context.Context, picklistID int64) (bool, error)
	IsArchived(ctx context.Context, picklistID int64) (bool, error)
	ConvertedPicklistIDs(ctx context.Context) (map[int64]bool, error)
	ArchivedPicklistIDs(ctx context.Context) (map[int64]bool, error)
	Record(ctx context.Context, rec ledger.NewRecord) (ledger.Record, error)
	Archive(ctx context.Context, picklistIDs []int64, archivedBy string) (int, error)
	Unarchive(ctx context.Context, picklistIDs []int64) (int64, error)
	Delete(ctx context.Context, recordIDs []int64) (int64, error)
	DeleteAllFailed(ctx context.Context) (int64, error)
	Query(ctx context.Context, filter ledger.Filter, limit, offset int) ([]ledger.Record, int, error)
	ListArchived(ctx context.Context, limit, offset int) ([]ledger.ArchivedPicklist, error)
	Stats(ctx context.Context) (ledger.Stats, error)
}
