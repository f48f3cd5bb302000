// Package service matches picklist barcodes against the product catalogs and
// copies missing products from the secondary source on request.
package service

import (
	"context"
	"errors"
	"strings"

	"picklist_converter/internal/catalog/repository"
	"picklist_converter/internal/catalog/secondary"
	"picklist_converter/platform/apperr"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"
)

// MatchStatus classifies one barcode lookup.
type MatchStatus string

const (
	StatusMatched          MatchStatus = "matched"
	StatusFoundInSecondary MatchStatus = "found_in_secondary"
	StatusNotFound         MatchStatus = "not_found"
)

const (
	reasonNoBarcode        = "no barcode"
	reasonFoundInSecondary = "found in secondary source"
	reasonNotInCatalog     = "not found in catalog"
	reasonNotAnywhere      = "not found in catalog or secondary source"
	reasonNotInSecondary   = "not found in secondary source"
)

// PrimaryCatalog is the writable catalog in the target database.
type PrimaryCatalog interface {
	FindByBarcodes(ctx context.Context, barcodes []string) (map[string]repository.Product, error)
	Insert(ctx context.Context, p repository.NewProduct) (int64, error)
}

// SecondarySource is the read-only inventory catalog.
type SecondarySource interface {
	FindByBarcodes(ctx context.Context, barcodes []string) (map[string]secondary.Product, error)
}

// LineMatch is the result for one requested barcode.
type LineMatch struct {
	Barcode   string
	Status    MatchStatus
	Reason    string
	Product   *repository.Product
	Secondary *secondary.Product
}

// Summary counts match outcomes.
type Summary struct {
	Total        int
	Matched      int
	CanCopy      int
	TrulyMissing int
}

// Convertible reports whether every line matched the primary catalog.
func (s Summary) Convertible() bool {
	return s.CanCopy == 0 && s.TrulyMissing == 0
}

// CopyFailure explains why one barcode was not copied.
type CopyFailure struct {
	Barcode string
	Reason  string
}

// CopyResult reports a CopyFromSecondary call.
type CopyResult struct {
	Copied   []string
	Existing []string
	Failed   []CopyFailure
}

// Matcher resolves barcodes to catalog products.
type Matcher struct {
	primary   PrimaryCatalog
	secondary SecondarySource
	metrics   *metrics.Registry
	log       *logger.Logger
}

// New creates a matcher. secondarySource may be nil when no inventory
// database is configured.
func New(primary PrimaryCatalog, secondarySource SecondarySource, reg *metrics.Registry, log *logger.Logger) *Matcher {
	return &Matcher{primary: primary, secondary: secondarySource, metrics: reg, log: log}
}

// SecondaryConfigured reports whether an inventory database is wired in.
func (m *Matcher) SecondaryConfigured() bool {
	return m.secondary != nil
}

// Match looks up each barcode by exact equality. Results align with the
// input by index. The secondary source is consulted for primary misses only
// when withSecondary is set and a source is configured.
func (m *Matcher) Match(ctx context.Context, barcodes []string, withSecondary bool) ([]LineMatch, error) {
	trimmed := make([]string, len(barcodes))
	for i, b := range barcodes {
		trimmed[i] = strings.TrimSpace(b)
	}

	lookup := uniqueNonEmpty(trimmed)
	found, err := m.primary.FindByBarcodes(ctx, lookup)
	if err != nil {
		return nil, err
	}

	useSecondary := withSecondary && m.secondary != nil
	var inSecondary map[string]secondary.Product
	if useSecondary {
		misses := make([]string, 0)
		for _, b := range lookup {
			if _, ok := found[b]; !ok {
				misses = append(misses, b)
			}
		}
		if len(misses) > 0 {
			inSecondary, err = m.secondary.FindByBarcodes(ctx, misses)
			if err != nil {
				return nil, err
			}
		}
	}

	matches := make([]LineMatch, len(trimmed))
	for i, b := range trimmed {
		match := LineMatch{Barcode: b}
		switch {
		case b == "":
			match.Status = StatusNotFound
			match.Reason = reasonNoBarcode
		default:
			if p, ok := found[b]; ok {
				match.Status = StatusMatched
				match.Product = &p
			} else if sp, ok := inSecondary[b]; ok {
				match.Status = StatusFoundInSecondary
				match.Reason = reasonFoundInSecondary
				match.Secondary = &sp
			} else {
				match.Status = StatusNotFound
				match.Reason = reasonNotInCatalog
				if useSecondary {
					match.Reason = reasonNotAnywhere
				}
			}
		}
		matches[i] = match
	}
	return matches, nil
}

// Summarize counts outcomes of Match.
func Summarize(matches []LineMatch) Summary {
	s := Summary{Total: len(matches)}
	for _, m := range matches {
		switch m.Status {
		case StatusMatched:
			s.Matched++
		case StatusFoundInSecondary:
			s.CanCopy++
		default:
			s.TrulyMissing++
		}
	}
	return s
}

// CopyFromSecondary inserts secondary products into the primary catalog.
// Barcodes already in the catalog are reported as existing and never duplicated.
func (m *Matcher) CopyFromSecondary(ctx context.Context, barcodes []string, enabled bool) (CopyResult, error) {
	if m.secondary == nil || !enabled {
		return CopyResult{}, apperr.Validation("secondary product source is not enabled")
	}

	trimmed := make([]string, len(barcodes))
	for i, b := range barcodes {
		trimmed[i] = strings.TrimSpace(b)
	}
	wanted := uniqueNonEmpty(trimmed)
	if len(wanted) == 0 {
		return CopyResult{}, apperr.Validation("no barcodes supplied")
	}

	products, err := m.secondary.FindByBarcodes(ctx, wanted)
	if err != nil {
		return CopyResult{}, apperr.Unavailable("secondary product source unreachable", err)
	}

	result := CopyResult{
		Copied:   make([]string, 0),
		Existing: make([]string, 0),
		Failed:   make([]CopyFailure, 0),
	}
	for _, barcode := range wanted {
		sp, ok := products[barcode]
		if !ok {
			result.Failed = append(result.Failed, CopyFailure{Barcode: barcode, Reason: reasonNotInSecondary})
			m.countCopy("failed")
			continue
		}

		_, err := m.primary.Insert(ctx, toNewProduct(barcode, sp))
		switch {
		case err == nil:
			result.Copied = append(result.Copied, barcode)
			m.countCopy("copied")
		case errors.Is(err, repository.ErrProductExists):
			result.Existing = append(result.Existing, barcode)
			m.countCopy("existing")
		default:
			result.Failed = append(result.Failed, CopyFailure{Barcode: barcode, Reason: err.Error()})
			m.countCopy("failed")
			m.log.Error("copy product failed", "barcode", barcode, "error", err)
		}
	}

	m.log.Info("products copied from secondary",
		"copied", len(result.Copied),
		"existing", len(result.Existing),
		"failed", len(result.Failed),
	)
	return result, nil
}

func (m *Matcher) countCopy(result string) {
	if m.metrics != nil {
		m.metrics.ProductCopies.WithLabelValues(result).Inc()
	}
}

func toNewProduct(barcode string, sp secondary.Product) repository.NewProduct {
	p := repository.NewProduct{
		Barcode:       barcode,
		Description:   sp.Name,
		CategoryID:    sp.CategoryID,
		SubCategoryID: sp.SubCategoryID,
		UnitID:        sp.UnitID,
		ItemWeight:    sp.ItemWeight,
	}
	if sp.SKU != nil {
		p.SKU = *sp.SKU
	}
	if sp.UnitPriceCents != nil {
		p.UnitPriceCents = *sp.UnitPriceCents
	}
	if sp.UnitCostCents != nil {
		p.UnitCostCents = *sp.UnitCostCents
	}
	if sp.ItemSize != nil {
		p.ItemSize = *sp.ItemSize
	}
	return p
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
