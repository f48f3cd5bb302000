// Package repository writes quotations into the target database.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"picklist_converter/platform/apperr"
)

const customerNotFoundMsg = "customer not found"

// Customer carries the ship-to fields copied onto a quotation header.
type Customer struct {
	ID           int64
	BusinessName string
	AccountNo    string
	ShipTo       string
	ShipAddress1 string
	ShipAddress2 string
	ShipContact  string
	ShipCity     string
	ShipState    string
	ShipZipCode  string
	ShipPhone    string
}

// Quotation is a quotation header.
type Quotation struct {
	Number         string
	Title          string
	CustomerID     int64
	Status         int
	QuotationDate  time.Time
	ExpirationDate time.Time
	Customer       Customer
	TotalCents     int64
}

// QuotationLine is one quotation detail row.
type QuotationLine struct {
	ProductID          int64
	SKU                string
	Barcode            string
	Description        string
	CategoryID         *int64
	SubCategoryID      *int64
	UnitDesc           string
	ItemSize           string
	ItemWeight         *float64
	Quantity           int
	UnitPriceCents     int64
	UnitCostCents      int64
	ExtendedPriceCents int64
	ExtendedCostCents  int64
	ExpirationDate     time.Time
}

// Repository handles quotation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks the target database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// GetCustomer loads the ship-to fields for a customer.
func (r *Repository) GetCustomer(ctx context.Context, customerID int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `
		SELECT customer_id,
			COALESCE(business_name, ''), COALESCE(account_no, ''), COALESCE(ship_to, ''),
			COALESCE(ship_address1, ''), COALESCE(ship_address2, ''), COALESCE(ship_contact, ''),
			COALESCE(ship_city, ''), COALESCE(ship_state, ''), COALESCE(ship_zip_code, ''),
			COALESCE(ship_phone_number, '')
		FROM customers
		WHERE customer_id = $1`, customerID,
	).Scan(
		&c.ID, &c.BusinessName, &c.AccountNo, &c.ShipTo,
		&c.ShipAddress1, &c.ShipAddress2, &c.ShipContact,
		&c.ShipCity, &c.ShipState, &c.ShipZipCode, &c.ShipPhone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, apperr.NotFound(fmt.Sprintf("%s: %d", customerNotFoundMsg, customerID))
		}
		return Customer{}, fmt.Errorf("failed to load customer: %w", err)
	}
	return c, nil
}

// CreateWithLines inserts the header, its lines and the computed total in one
// transaction and returns the generated quotation id. Nothing is committed on error.
func (r *Repository) CreateWithLines(ctx context.Context, q Quotation, lines []QuotationLine) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var quotationID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO quotations (
			quotation_number, quotation_date, quotation_title, customer_id, status,
			po_number, expiration_date,
			business_name, account_no, ship_to, ship_address1, ship_address2,
			ship_contact, ship_city, ship_state, ship_zip_code, ship_phone_no,
			quotation_total_cents
		) VALUES ($1, $2, $3, $4, $5, '', $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 0)
		RETURNING quotation_id`,
		q.Number, q.QuotationDate, q.Title, q.CustomerID, q.Status, q.ExpirationDate,
		q.Customer.BusinessName, q.Customer.AccountNo, q.Customer.ShipTo,
		q.Customer.ShipAddress1, q.Customer.ShipAddress2, q.Customer.ShipContact,
		q.Customer.ShipCity, q.Customer.ShipState, q.Customer.ShipZipCode, q.Customer.ShipPhone,
	).Scan(&quotationID); err != nil {
		return 0, fmt.Errorf("failed to insert quotation: %w", err)
	}

	if err := r.insertLines(ctx, tx, quotationID, lines); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE quotations
		SET quotation_total_cents = (
			SELECT COALESCE(SUM(extended_price_cents), 0)
			FROM quotation_details
			WHERE quotation_id = $1
		)
		WHERE quotation_id = $1`, quotationID); err != nil {
		return 0, fmt.Errorf("failed to update quotation total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit quotation: %w", err)
	}
	return quotationID, nil
}

func (r *Repository) insertLines(ctx context.Context, tx pgx.Tx, quotationID int64, lines []QuotationLine) error {
	lineQuery := `
		INSERT INTO quotation_details (
			quotation_id, cate_id, sub_cate_id, unit_desc, unit_qty,
			product_id, product_sku, product_upc, product_description, item_size,
			exp_date, unit_price_cents, original_price_cents, unit_cost_cents,
			qty, item_weight, extended_price_cents, extended_cost_cents, act_extended_price_cents
		) VALUES ($1, $2, $3, $4, 1, $5, $6, $7, $8, $9, $10, $11, $11, $12, $13, $14, $15, $16, $15)`

	for i, line := range lines {
		if _, err := tx.Exec(ctx, lineQuery,
			quotationID, line.CategoryID, line.SubCategoryID, line.UnitDesc,
			line.ProductID, line.SKU, line.Barcode, line.Description, line.ItemSize,
			line.ExpirationDate, line.UnitPriceCents, line.UnitCostCents,
			line.Quantity, line.ItemWeight, line.ExtendedPriceCents, line.ExtendedCostCents,
		); err != nil {
			return fmt.Errorf("failed to insert quotation line %d: %w", i+1, err)
		}
	}
	return nil
}
