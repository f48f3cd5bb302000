// Package service is the conversion engine: it turns source picklists into
// target quotations at most once per picklist, whether triggered by the
// poller, the queue worker, the CLI or an HTTP request.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"picklist_converter/platform/apperr"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"
)

// DefaultCallTimeout bounds each call to an external store.
const DefaultCallTimeout = 30 * time.Second

const (
	// leaseCalls is how many call timeouts a ledger lease covers: header,
	// lines, match and write, plus slack for the record retries.
	leaseCalls = 6

	recordRetries = 4
	recordBackoff = 50 * time.Millisecond
)

// Reason codes stored with failed attempts.
const (
	ReasonSourceUnreadable  = "source_unreadable"
	ReasonEmptyPicklist     = "empty_picklist"
	ReasonCatalogUnreadable = "catalog_unreadable"
	ReasonMissingProducts   = "missing_products"
	ReasonWriteFailed       = "write_failed"
	ReasonAlreadyConverted  = "already_converted"
	ReasonLedgerUnavailable = "ledger_unavailable"
)

// Skip kinds. Skips are counted but never reported as errors.
const (
	SkipArchived         = "archived"
	SkipAlreadyClaimed   = "already_claimed"
	SkipAlreadyConverted = "already_converted"
	SkipLocked           = "locked"
)

// Service orchestrates conversions.
type Service struct {
	source   SourceReader
	matcher  CatalogMatcher
	writer   QuotationWriter
	settings SettingsProvider
	ledger   Ledger
	claims   *claimSet
	owner    string
	timeout  time.Duration
	leaseTTL time.Duration
	backoff  time.Duration
	metrics  *metrics.Registry
	log      *logger.Logger
}

// Deps groups the collaborators of the engine.
type Deps struct {
	Source   SourceReader
	Matcher  CatalogMatcher
	Writer   QuotationWriter
	Settings SettingsProvider
	Ledger   Ledger
	Metrics  *metrics.Registry
	Log      *logger.Logger
}

// New creates the conversion engine. A non-positive timeout selects DefaultCallTimeout.
func New(deps Deps, callTimeout time.Duration) *Service {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		source:   deps.Source,
		matcher:  deps.Matcher,
		writer:   deps.Writer,
		settings: deps.Settings,
		ledger:   deps.Ledger,
		claims:   newClaimSet(),
		owner:    uuid.NewString(),
		timeout:  callTimeout,
		leaseTTL: leaseCalls * callTimeout,
		backoff:  recordBackoff,
		metrics:  deps.Metrics,
		log:      log,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) countOutcome(outcome, reason string) {
	if s.metrics != nil {
		s.metrics.Conversions.WithLabelValues(outcome, reason).Inc()
	}
}

func ledgerErr(op string, err error) error {
	return apperr.Unavailable("ledger unavailable", err).WithOp(op)
}
