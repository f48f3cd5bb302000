// Package repository persists quotation defaults in the local ledger database.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"picklist_converter/platform/apperr"
)

const (
	// MinPollIntervalSeconds is the lowest poll interval accepted.
	MinPollIntervalSeconds = 10
	// DefaultPollIntervalSeconds applies until defaults are saved.
	DefaultPollIntervalSeconds = 60

	notConfiguredMessage = "quotation defaults are not configured"
)

// QuotationDefaults are the header values stamped on every generated quotation,
// plus the poller interval and the secondary lookup toggle.
type QuotationDefaults struct {
	CustomerID          int64
	DefaultStatus       int
	TitlePrefix         string
	PollIntervalSeconds int
	SecondaryEnabled    bool
	UpdatedAt           time.Time
}

// Repo reads and writes the single settings row.
type Repo struct {
	db *sql.DB
}

// New creates a settings repository on the ledger handle.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Get returns the saved defaults or a NotConfigured error.
func (r *Repo) Get(ctx context.Context) (QuotationDefaults, error) {
	var d QuotationDefaults
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, default_status, title_prefix, poll_interval_seconds, secondary_enabled, updated_at
		FROM quotation_settings
		WHERE id = 1`,
	).Scan(&d.CustomerID, &d.DefaultStatus, &d.TitlePrefix, &d.PollIntervalSeconds, &d.SecondaryEnabled, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuotationDefaults{}, apperr.NotConfigured(notConfiguredMessage)
		}
		return QuotationDefaults{}, fmt.Errorf("get quotation defaults: %w", err)
	}
	return d, nil
}

// Save replaces the defaults.
func (r *Repo) Save(ctx context.Context, d QuotationDefaults) (QuotationDefaults, error) {
	d.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quotation_settings
			(id, customer_id, default_status, title_prefix, poll_interval_seconds, secondary_enabled, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			default_status = excluded.default_status,
			title_prefix = excluded.title_prefix,
			poll_interval_seconds = excluded.poll_interval_seconds,
			secondary_enabled = excluded.secondary_enabled,
			updated_at = excluded.updated_at`,
		d.CustomerID, d.DefaultStatus, d.TitlePrefix, d.PollIntervalSeconds, d.SecondaryEnabled, d.UpdatedAt,
	)
	if err != nil {
		return QuotationDefaults{}, fmt.Errorf("save quotation defaults: %w", err)
	}
	return d, nil
}
