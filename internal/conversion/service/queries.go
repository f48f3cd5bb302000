package service

import (
	"context"
	"time"

	catalogsvc "picklist_converter/internal/catalog/service"
	ledger "picklist_converter/internal/ledger/repository"
	picklists "picklist_converter/internal/picklists/repository"
	"picklist_converter/platform/apperr"
	"picklist_converter/platform/sanitize"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// PicklistView is a non-archived picklist with its derived conversion state.
type PicklistView struct {
	ID          int64
	CreatedAt   time.Time
	Locked      bool
	IsConverted bool
	InProgress  bool
}

// MissingProduct is one unmatched picklist line.
type MissingProduct struct {
	PicklistID int64
	Barcode    string
	Name       string
	Quantity   int
	Status     catalogsvc.MatchStatus
	Reason     string
}

// ProductCheck is the read-only pre-check of a set of picklists.
type ProductCheck struct {
	TotalProducts     int
	MissingCount      int
	CanCopyCount      int
	TrulyMissingCount int
	Missing           []MissingProduct
}

// PendingIDs lists picklists eligible for conversion, in source order.
func (s *Service) PendingIDs(ctx context.Context) ([]int64, error) {
	headers, converted, archived, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0)
	for _, h := range headers {
		if h.Locked || converted[h.ID] || archived[h.ID] {
			continue
		}
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// ListPicklists returns every non-archived picklist with its conversion flag.
func (s *Service) ListPicklists(ctx context.Context) ([]PicklistView, error) {
	headers, converted, archived, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]PicklistView, 0, len(headers))
	for _, h := range headers {
		if archived[h.ID] {
			continue
		}
		views = append(views, PicklistView{
			ID:          h.ID,
			CreatedAt:   h.CreatedAt,
			Locked:      h.Locked,
			IsConverted: converted[h.ID],
			InProgress:  s.claims.isHeld(h.ID),
		})
	}
	return views, nil
}

func (s *Service) snapshot(ctx context.Context) ([]picklists.Header, map[int64]bool, map[int64]bool, error) {
	readCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	headers, err := s.source.ListHeaders(readCtx)
	if err != nil {
		return nil, nil, nil, apperr.Unavailable("source database unreachable", err)
	}
	converted, err := s.ledger.ConvertedPicklistIDs(ctx)
	if err != nil {
		return nil, nil, nil, ledgerErr("list converted", err)
	}
	archived, err := s.ledger.ArchivedPicklistIDs(ctx)
	if err != nil {
		return nil, nil, nil, ledgerErr("list archived", err)
	}
	return headers, converted, archived, nil
}

// CheckProducts reports which lines of the given picklists would block
// conversion. It writes nothing.
func (s *Service) CheckProducts(ctx context.Context, ids []int64) (ProductCheck, error) {
	withSecondary := false
	if defaults, err := s.settings.Get(ctx); err == nil {
		withSecondary = defaults.SecondaryEnabled
	} else if !apperr.Is(err, apperr.KindNotConfigured) {
		return ProductCheck{}, err
	}

	all := make([]picklists.Line, 0)
	for _, id := range dedupe(ids) {
		readCtx, cancel := s.withTimeout(ctx)
		lines, err := s.source.GetLines(readCtx, id)
		cancel()
		if err != nil {
			return ProductCheck{}, apperr.Unavailable("source database unreachable", err)
		}
		all = append(all, lines...)
	}

	check := ProductCheck{TotalProducts: len(all), Missing: make([]MissingProduct, 0)}
	if len(all) == 0 {
		return check, nil
	}

	matchCtx, cancelMatch := s.withTimeout(ctx)
	defer cancelMatch()

	matches, err := s.matcher.Match(matchCtx, barcodesOf(all), withSecondary)
	if err != nil {
		return ProductCheck{}, apperr.Unavailable("catalog unreachable", err)
	}

	for i, m := range matches {
		if m.Status == catalogsvc.StatusMatched {
			continue
		}
		check.Missing = append(check.Missing, MissingProduct{
			PicklistID: all[i].PicklistID,
			Barcode:    m.Barcode,
			Name:       all[i].Name,
			Quantity:   all[i].Quantity,
			Status:     m.Status,
			Reason:     m.Reason,
		})
		if m.Status == catalogsvc.StatusFoundInSecondary {
			check.CanCopyCount++
		}
	}
	check.MissingCount = len(check.Missing)
	check.TrulyMissingCount = check.MissingCount - check.CanCopyCount
	return check, nil
}

// CopyFromSecondary copies products into the catalog when the secondary
// source is configured and enabled in settings.
func (s *Service) CopyFromSecondary(ctx context.Context, barcodes []string) (catalogsvc.CopyResult, error) {
	enabled := false
	if defaults, err := s.settings.Get(ctx); err == nil {
		enabled = defaults.SecondaryEnabled
	} else if !apperr.Is(err, apperr.KindNotConfigured) {
		return catalogsvc.CopyResult{}, err
	}

	copyCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.matcher.CopyFromSecondary(copyCtx, barcodes, enabled)
}

// History lists conversion records newest first.
func (s *Service) History(ctx context.Context, filter ledger.Filter, limit, offset int) ([]ledger.Record, int, error) {
	if filter.Status == "" {
		filter.Status = ledger.StatusAll
	}
	if !filter.Status.Valid() {
		return nil, 0, apperr.Validation("status must be one of all, success, failed")
	}
	limit, offset = NormalizePage(limit, offset)
	records, total, err := s.ledger.Query(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, ledgerErr("query history", err)
	}
	return records, total, nil
}

// DeleteRecords purges conversion records by record id.
func (s *Service) DeleteRecords(ctx context.Context, recordIDs []int64) (int64, error) {
	if len(recordIDs) == 0 {
		return 0, apperr.Validation("no record ids supplied")
	}
	deleted, err := s.ledger.Delete(ctx, recordIDs)
	if err != nil {
		return 0, ledgerErr("delete records", err)
	}
	s.log.Info("conversion records deleted", "requested", len(recordIDs), "deleted", deleted)
	return deleted, nil
}

// DeleteAllFailed purges every failure record.
func (s *Service) DeleteAllFailed(ctx context.Context) (int64, error) {
	deleted, err := s.ledger.DeleteAllFailed(ctx)
	if err != nil {
		return 0, ledgerErr("delete failed records", err)
	}
	s.log.Info("failed conversion records deleted", "deleted", deleted)
	return deleted, nil
}

// Overview is the dashboard summary.
type Overview struct {
	Stats        ledger.Stats
	PendingCount int
	Configured   bool
}

// Overview summarizes the ledger together with the pending count and
// whether quotation defaults exist. An unreachable source reports zero
// pending rather than failing the summary.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return Overview{}, ledgerErr("stats", err)
	}
	out := Overview{Stats: stats}

	switch _, err := s.settings.Get(ctx); {
	case err == nil:
		out.Configured = true
	case !apperr.Is(err, apperr.KindNotConfigured):
		return Overview{}, err
	}

	pending, err := s.PendingIDs(ctx)
	if err != nil {
		s.log.Warn("pending count unavailable", "error", err)
		return out, nil
	}
	out.PendingCount = len(pending)
	return out, nil
}

// Archive hides picklists from conversion and from the pending list.
func (s *Service) Archive(ctx context.Context, ids []int64, archivedBy string) (int, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, apperr.Validation("no picklist ids supplied")
	}
	archivedBy = sanitize.Text(archivedBy)
	n, err := s.ledger.Archive(ctx, ids, archivedBy)
	if err != nil {
		return 0, ledgerErr("archive", err)
	}
	s.log.Info("picklists archived", "count", n, "archivedBy", archivedBy)
	return n, nil
}

// Unarchive makes picklists eligible again.
func (s *Service) Unarchive(ctx context.Context, ids []int64) (int64, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, apperr.Validation("no picklist ids supplied")
	}
	n, err := s.ledger.Unarchive(ctx, ids)
	if err != nil {
		return 0, ledgerErr("unarchive", err)
	}
	s.log.Info("picklists unarchived", "count", n)
	return n, nil
}

// ListArchived lists archived picklists.
func (s *Service) ListArchived(ctx context.Context, limit, offset int) ([]ledger.ArchivedPicklist, error) {
	limit, offset = NormalizePage(limit, offset)
	items, err := s.ledger.ListArchived(ctx, limit, offset)
	if err != nil {
		return nil, ledgerErr("list archived", err)
	}
	return items, nil
}

// NormalizePage applies the default and maximum page size.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// InProgress lists the picklist ids currently held by a running batch.
func (s *Service) InProgress() []int64 {
	return s.claims.snapshot()
}
