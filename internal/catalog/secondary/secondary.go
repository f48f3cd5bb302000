// Package secondary reads the optional inventory database, a second product
// catalog consulted when a barcode is missing from the primary catalog.
// It is never written to.
package secondary

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Product is an inventory item.
type Product struct {
	ID             int64    `gorm:"column:product_id;primaryKey"`
	Barcode        string   `gorm:"column:product_upc;type:varchar(20);index"`
	Name           string   `gorm:"column:product_description;type:varchar(50)"`
	SKU            *string  `gorm:"column:product_sku;type:varchar(20)"`
	UnitPriceCents *int64   `gorm:"column:unit_price_cents"`
	UnitCostCents  *int64   `gorm:"column:unit_cost_cents"`
	CategoryID     *int64   `gorm:"column:cate_id"`
	SubCategoryID  *int64   `gorm:"column:sub_cate_id"`
	UnitID         *int64   `gorm:"column:unit_id"`
	ItemSize       *string  `gorm:"column:item_size;type:varchar(10)"`
	ItemWeight     *float64 `gorm:"column:item_weight"`
}

// TableName maps Product onto the inventory items table.
func (Product) TableName() string { return "items" }

// Source wraps the inventory connection.
type Source struct {
	db *gorm.DB
}

// Open connects to the inventory database.
func Open(dsn string) (*Source, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open inventory database: %w", err)
	}
	return &Source{db: db}, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) *Source {
	return &Source{db: db}
}

// Ping checks the inventory database is reachable.
func (s *Source) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Source) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindByBarcodes looks up every barcode in one query. The first row wins
// when the inventory holds duplicates.
func (s *Source) FindByBarcodes(ctx context.Context, barcodes []string) (map[string]Product, error) {
	result := make(map[string]Product, len(barcodes))
	if len(barcodes) == 0 {
		return result, nil
	}

	var rows []Product
	if err := s.db.WithContext(ctx).
		Where("product_upc IN ?", barcodes).
		Order("product_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find inventory products: %w", err)
	}

	for _, row := range rows {
		if _, seen := result[row.Barcode]; !seen {
			result[row.Barcode] = row
		}
	}
	return result, nil
}
