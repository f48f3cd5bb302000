// Package repository reads picklists from the source fulfillment database.
// The source is read-only to this service.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"picklist_converter/platform/apperr"
)

const picklistNotFoundMessage = "picklist not found"

// Header is a picklist as stored upstream.
type Header struct {
	ID        int64
	CreatedAt time.Time
	Locked    bool
}

// Line is one product row of a picklist. Barcode is trimmed on read.
type Line struct {
	ID         int64
	PicklistID int64
	Barcode    string
	Name       string
	Quantity   int
}

// Repo implements the source reader.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new source reader.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Ping checks the source database is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// ListHeaders returns every picklist in id order.
func (r *Repo) ListHeaders(ctx context.Context) ([]Header, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, created_at, COALESCE(locked, false)
		FROM pick_lists
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list picklists: %w", err)
	}
	defer rows.Close()

	headers := make([]Header, 0)
	for rows.Next() {
		var h Header
		if err := rows.Scan(&h.ID, &h.CreatedAt, &h.Locked); err != nil {
			return nil, fmt.Errorf("scan picklist: %w", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate picklists: %w", err)
	}
	return headers, nil
}

// GetHeader returns one picklist header.
func (r *Repo) GetHeader(ctx context.Context, id int64) (Header, error) {
	var h Header
	err := r.pool.QueryRow(ctx, `
		SELECT id, created_at, COALESCE(locked, false)
		FROM pick_lists
		WHERE id = $1`, id,
	).Scan(&h.ID, &h.CreatedAt, &h.Locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Header{}, apperr.NotFound(picklistNotFoundMessage)
		}
		return Header{}, fmt.Errorf("get picklist: %w", err)
	}
	return h, nil
}

// GetLines returns the product rows of a picklist in source order.
func (r *Repo) GetLines(ctx context.Context, picklistID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, id_pick_list, COALESCE(barcode, ''), COALESCE(name, ''), COALESCE(amount, 0)
		FROM pick_list_products
		WHERE id_pick_list = $1
		ORDER BY id`, picklistID)
	if err != nil {
		return nil, fmt.Errorf("list picklist lines: %w", err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.PicklistID, &l.Barcode, &l.Name, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan picklist line: %w", err)
		}
		l.Barcode = strings.TrimSpace(l.Barcode)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate picklist lines: %w", err)
	}
	return lines, nil
}
