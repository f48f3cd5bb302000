package repository

import "context"

// Product is a row of the primary catalog in the target database.
// Classification attributes are copied verbatim onto quotation lines.
type Product struct {
	ID             int64
	SKU            string
	Barcode        string
	Description    string
	UnitPriceCents int64
	UnitCostCents  int64
	CategoryID     *int64
	SubCategoryID  *int64
	UnitID         *int64
	UnitDesc       string
	ItemSize       string
	ItemWeight     *float64
}

// NewProduct contains data for inserting a catalog product.
type NewProduct struct {
	SKU            string
	Barcode        string
	Description    string
	UnitPriceCents int64
	UnitCostCents  int64
	CategoryID     *int64
	SubCategoryID  *int64
	UnitID         *int64
	ItemSize       string
	ItemWeight     *float64
}

// Repository defines the primary catalog operations.
type Repository interface {
	// FindByBarcodes returns products keyed by exact barcode.
	FindByBarcodes(ctx context.Context, barcodes []string) (map[string]Product, error)
	// Insert adds a product unless its barcode already exists, in which
	// case ErrProductExists is returned.
	Insert(ctx context.Context, p NewProduct) (int64, error)
}
