// Package repository is the primary product catalog in the target database.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"picklist_converter/platform/apperr"
)

const uniqueViolation = "23505"

// ErrProductExists is returned by Insert when the barcode is already in the catalog.
var ErrProductExists = apperr.Conflict("product already exists")

// Repo implements the catalog repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// FindByBarcodes looks up every barcode in one query.
func (r *Repo) FindByBarcodes(ctx context.Context, barcodes []string) (map[string]Product, error) {
	result := make(map[string]Product, len(barcodes))
	if len(barcodes) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT i.product_id, COALESCE(i.product_sku, ''), i.product_upc, COALESCE(i.product_description, ''),
			COALESCE(i.unit_price_cents, 0), COALESCE(i.unit_cost_cents, 0),
			i.cate_id, i.sub_cate_id, i.unit_id, COALESCE(u.unit_desc, ''),
			COALESCE(i.item_size, ''), i.item_weight
		FROM items i
		LEFT JOIN units u ON u.unit_id = i.unit_id
		WHERE i.product_upc = ANY($1)`, barcodes)
	if err != nil {
		return nil, fmt.Errorf("find products by barcode: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.SKU, &p.Barcode, &p.Description,
			&p.UnitPriceCents, &p.UnitCostCents,
			&p.CategoryID, &p.SubCategoryID, &p.UnitID, &p.UnitDesc,
			&p.ItemSize, &p.ItemWeight,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if _, seen := result[p.Barcode]; !seen {
			result[p.Barcode] = p
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return result, nil
}

// Insert adds a product inside a transaction after checking the barcode is free.
func (r *Repo) Insert(ctx context.Context, p NewProduct) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert product: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existing int64
	err = tx.QueryRow(ctx, `SELECT product_id FROM items WHERE product_upc = $1 LIMIT 1 FOR UPDATE`, p.Barcode).Scan(&existing)
	switch {
	case err == nil:
		return existing, ErrProductExists
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, fmt.Errorf("check product: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO items (
			product_sku, product_upc, product_description,
			unit_price_cents, unit_cost_cents,
			cate_id, sub_cate_id, unit_id, item_size, item_weight
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING product_id`,
		p.SKU, p.Barcode, p.Description,
		p.UnitPriceCents, p.UnitCostCents,
		p.CategoryID, p.SubCategoryID, p.UnitID, p.ItemSize, p.ItemWeight,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrProductExists
		}
		return 0, fmt.Errorf("insert product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrProductExists
		}
		return 0, fmt.Errorf("commit product: %w", err)
	}
	return id, nil
}
