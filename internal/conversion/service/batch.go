package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	catalogsvc "picklist_converter/internal/catalog/service"
	ledger "picklist_converter/internal/ledger/repository"
	picklists "picklist_converter/internal/picklists/repository"
	quotesvc "picklist_converter/internal/quotes/service"
	settings "picklist_converter/internal/settings/repository"
	"picklist_converter/platform/apperr"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"
)

// BatchError describes one failed picklist.
type BatchError struct {
	PicklistID int64
	Reason     string
	Message    string
}

// BatchResult summarizes a ConvertBatch call.
type BatchResult struct {
	Converted int
	Failed    int
	Skipped   int
	Errors    []BatchError
}

// failure is a per-picklist error carrying its reason code.
type failure struct {
	reason string
	detail string
}

func (f *failure) message() string {
	return f.reason + ": " + f.detail
}

// ConvertBatch converts the given picklists in order. Per-picklist failures are
// recorded and reported in the result; only missing settings or an unreachable
// store at batch start produce an error, and then nothing is written.
func (s *Service) ConvertBatch(ctx context.Context, ids []int64) (BatchResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log := s.log.WithContext(ctx)

	defaults, err := s.settings.Get(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	if err := s.pingStores(ctx); err != nil {
		log.Warn("conversion batch aborted", "error", err)
		return BatchResult{}, err
	}

	result := BatchResult{Errors: make([]BatchError, 0)}
	for _, id := range dedupe(ids) {
		s.convert(ctx, log, id, defaults, &result)
	}

	if s.metrics != nil {
		s.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}
	log.Info("conversion batch complete",
		"requested", len(ids),
		"converted", result.Converted,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"durationMs", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// ConvertOne converts a single picklist.
func (s *Service) ConvertOne(ctx context.Context, id int64) (BatchResult, error) {
	return s.ConvertBatch(ctx, []int64{id})
}

// ConvertPending converts every pending picklist.
func (s *Service) ConvertPending(ctx context.Context) (BatchResult, error) {
	ids, err := s.PendingIDs(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	if len(ids) == 0 {
		return BatchResult{Errors: make([]BatchError, 0)}, nil
	}
	return s.ConvertBatch(ctx, ids)
}

func (s *Service) pingStores(ctx context.Context) error {
	pingCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.source.Ping(pingCtx); err != nil {
		return apperr.Unavailable("source database unreachable", err)
	}
	if err := s.writer.Ping(pingCtx); err != nil {
		return apperr.Unavailable("target database unreachable", err)
	}
	return nil
}

func (s *Service) convert(ctx context.Context, log *logger.Logger, id int64, defaults settings.QuotationDefaults, result *BatchResult) {
	skip := func(kind string) {
		s.skip(log, id, kind, result)
	}

	archived, err := s.ledger.IsArchived(ctx, id)
	if err != nil {
		s.ledgerFailure(ctx, log, id, "check archived", err, result)
		return
	}
	if archived {
		skip(SkipArchived)
		return
	}

	if created, ok := s.claims.pinned(id); ok {
		s.record(ctx, log, id, created, true, result)
		return
	}

	release, ok := s.claims.tryClaim(id)
	if !ok {
		skip(SkipAlreadyClaimed)
		return
	}
	defer release()

	lease, err := s.ledger.ClaimConversion(ctx, id, s.owner, s.leaseTTL)
	if err != nil {
		s.ledgerFailure(ctx, log, id, "claim conversion", err, result)
		return
	}
	if lease.Unrecorded != nil {
		s.record(ctx, log, id, quotesvc.Created{
			QuotationID: lease.Unrecorded.QuotationID,
			Number:      lease.Unrecorded.QuotationNumber,
		}, true, result)
		return
	}
	if !lease.Acquired {
		skip(SkipAlreadyClaimed)
		return
	}
	defer s.releaseLease(ctx, log, id)

	converted, err := s.ledger.IsConverted(ctx, id)
	if err != nil {
		s.ledgerFailure(ctx, log, id, "check converted", err, result)
		return
	}
	if converted {
		skip(SkipAlreadyConverted)
		return
	}

	draft, locked, f := s.prepare(ctx, id, defaults)
	if locked {
		skip(SkipLocked)
		return
	}
	if f != nil {
		s.fail(ctx, log, id, f, result, true)
		return
	}

	writeCtx, cancel := s.withTimeout(ctx)
	created, err := s.writer.Create(writeCtx, draft)
	cancel()
	if err != nil {
		s.fail(ctx, log, id, &failure{reason: ReasonWriteFailed, detail: err.Error()}, result, true)
		return
	}

	s.record(ctx, log, id, created, false, result)
}

// record appends the success record for a committed quotation. Transient
// ledger errors are retried; if the record still cannot be written, the
// picklist stays pinned so no second quotation is written for it. recovering
// marks a quotation written by an earlier attempt.
func (s *Service) record(ctx context.Context, log *logger.Logger, id int64, created quotesvc.Created, recovering bool, result *BatchResult) {
	// The quotation is committed, so the record outlives a cancelled caller.
	ctx = context.WithoutCancel(ctx)
	rec := ledger.NewRecord{
		PicklistID:      id,
		Success:         true,
		QuotationID:     &created.QuotationID,
		QuotationNumber: &created.Number,
	}

	backoff := retry.WithMaxRetries(recordRetries, retry.NewExponential(s.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := s.ledger.Record(ctx, rec)
		if err == nil || errors.Is(err, ledger.ErrAlreadyConverted) {
			return err
		}
		return retry.RetryableError(err)
	})

	switch {
	case err == nil:
		if recovering {
			s.unpin(ctx, log, id)
			log.Info("unrecorded quotation recorded", "picklistId", id, "quotationNumber", created.Number)
		}
		result.Converted++
		s.countOutcome(metrics.OutcomeConverted, "")
		log.ConversionEvent(id, true, "", "")

	case errors.Is(err, ledger.ErrAlreadyConverted) && recovering:
		s.unpin(ctx, log, id)
		s.skip(log, id, SkipAlreadyConverted, result)

	case errors.Is(err, ledger.ErrAlreadyConverted):
		log.Error("quotation written for a picklist that is already converted",
			"picklistId", id, "quotationId", created.QuotationID, "quotationNumber", created.Number)
		result.Failed++
		result.Errors = append(result.Errors, BatchError{
			PicklistID: id,
			Reason:     ReasonAlreadyConverted,
			Message:    fmt.Sprintf("%s: quotation %s duplicates an existing conversion", ReasonAlreadyConverted, created.Number),
		})
		s.countOutcome(metrics.OutcomeFailed, ReasonAlreadyConverted)

	default:
		log.DatabaseError("record conversion", err)
		s.claims.pin(id, created)
		if !recovering {
			if perr := s.ledger.PinConversion(ctx, id, s.owner, ledger.UnrecordedQuotation{
				QuotationID:     created.QuotationID,
				QuotationNumber: created.Number,
			}); perr != nil {
				log.DatabaseError("pin conversion", perr)
			}
		}
		message := fmt.Sprintf("%s: quotation %s written but not recorded: %v", ReasonLedgerUnavailable, created.Number, err)
		result.Failed++
		result.Errors = append(result.Errors, BatchError{PicklistID: id, Reason: ReasonLedgerUnavailable, Message: message})
		s.countOutcome(metrics.OutcomeFailed, ReasonLedgerUnavailable)
		log.ConversionEvent(id, false, ReasonLedgerUnavailable, message)
	}
}

func (s *Service) unpin(ctx context.Context, log *logger.Logger, id int64) {
	s.claims.unpin(id)
	if err := s.ledger.ClearConversion(ctx, id); err != nil {
		log.DatabaseError("clear conversion claim", err)
	}
}

func (s *Service) releaseLease(ctx context.Context, log *logger.Logger, id int64) {
	if err := s.ledger.ReleaseConversion(context.WithoutCancel(ctx), id, s.owner); err != nil {
		log.DatabaseError("release conversion claim", err)
	}
}

func (s *Service) skip(log *logger.Logger, id int64, kind string, result *BatchResult) {
	result.Skipped++
	s.countOutcome(metrics.OutcomeSkipped, kind)
	log.Debug("picklist skipped", "picklistId", id, "reason", kind)
}

// ledgerFailure reports a ledger read that blocked the picklist. Nothing is
// recorded since the ledger itself failed.
func (s *Service) ledgerFailure(ctx context.Context, log *logger.Logger, id int64, op string, err error, result *BatchResult) {
	log.DatabaseError(op, err)
	s.fail(ctx, log, id, &failure{reason: ReasonLedgerUnavailable, detail: err.Error()}, result, false)
}

// prepare reads the picklist and matches its lines. It returns locked=true for
// picklists that must be skipped, or a failure when conversion cannot proceed.
func (s *Service) prepare(ctx context.Context, id int64, defaults settings.QuotationDefaults) (quotesvc.Draft, bool, *failure) {
	readCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	header, err := s.source.GetHeader(readCtx, id)
	if err != nil {
		return quotesvc.Draft{}, false, &failure{reason: ReasonSourceUnreadable, detail: err.Error()}
	}
	if header.Locked {
		return quotesvc.Draft{}, true, nil
	}

	lines, err := s.source.GetLines(readCtx, id)
	if err != nil {
		return quotesvc.Draft{}, false, &failure{reason: ReasonSourceUnreadable, detail: err.Error()}
	}
	if len(lines) == 0 {
		return quotesvc.Draft{}, false, &failure{reason: ReasonEmptyPicklist, detail: "no products found in picklist"}
	}

	matchCtx, cancelMatch := s.withTimeout(ctx)
	defer cancelMatch()

	matches, err := s.matcher.Match(matchCtx, barcodesOf(lines), defaults.SecondaryEnabled)
	if err != nil {
		return quotesvc.Draft{}, false, &failure{reason: ReasonCatalogUnreadable, detail: err.Error()}
	}
	if !catalogsvc.Summarize(matches).Convertible() {
		return quotesvc.Draft{}, false, &failure{reason: ReasonMissingProducts, detail: describeMissing(lines, matches)}
	}

	items := make([]quotesvc.Item, len(lines))
	for i, line := range lines {
		items[i] = quotesvc.Item{Quantity: line.Quantity, Product: *matches[i].Product}
	}

	return quotesvc.Draft{
		PicklistID:  id,
		CustomerID:  defaults.CustomerID,
		Status:      defaults.DefaultStatus,
		TitlePrefix: defaults.TitlePrefix,
		Items:       items,
	}, false, nil
}

// fail reports a per-picklist failure and, when record is set, appends a
// failure record to the ledger.
func (s *Service) fail(ctx context.Context, log *logger.Logger, id int64, f *failure, result *BatchResult, record bool) {
	message := f.message()
	result.Failed++
	result.Errors = append(result.Errors, BatchError{PicklistID: id, Reason: f.reason, Message: message})
	s.countOutcome(metrics.OutcomeFailed, f.reason)
	log.ConversionEvent(id, false, f.reason, message)

	if !record {
		return
	}
	if _, err := s.ledger.Record(ctx, ledger.NewRecord{PicklistID: id, Success: false, ErrorMessage: &message}); err != nil {
		log.DatabaseError("record conversion failure", err)
	}
}

func describeMissing(lines []picklists.Line, matches []catalogsvc.LineMatch) string {
	parts := make([]string, 0)
	for i, m := range matches {
		if m.Status == catalogsvc.StatusMatched {
			continue
		}
		barcode := m.Barcode
		if barcode == "" {
			barcode = "(none)"
		}
		parts = append(parts, fmt.Sprintf("%s [%s] %s", barcode, lines[i].Name, m.Reason))
	}
	return strings.Join(parts, "; ")
}

func barcodesOf(lines []picklists.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Barcode
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
