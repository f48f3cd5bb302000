package service

import (
	"fmt"
	"time"

	catalog "picklist_converter/internal/catalog/repository"
	"picklist_converter/internal/quotes/repository"
)

// Column widths of the target quotation tables.
const (
	maxTitle        = 50
	maxBusinessName = 50
	maxAccountNo    = 13
	maxShipField    = 50
	maxShipCity     = 20
	maxShipState    = 3
	maxShipZip      = 10
	maxShipPhone    = 13
	maxUnitDesc     = 50
	maxSKU          = 20
	maxBarcode      = 20
	maxDescription  = 50
	maxItemSize     = 10

	validity     = 365 * 24 * time.Hour
	numberLayout = "20060102150405"
)

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// quotationNumber is {prefix}-{picklistId}-{YYYYMMDDHHMMSS}.
func quotationNumber(prefix string, picklistID int64, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, picklistID, at.Format(numberLayout))
}

// quotationTitle is {prefix} {picklistId}.
func quotationTitle(prefix string, picklistID int64) string {
	return truncate(fmt.Sprintf("%s %d", prefix, picklistID), maxTitle)
}

func shipTo(c repository.Customer) repository.Customer {
	return repository.Customer{
		ID:           c.ID,
		BusinessName: truncate(c.BusinessName, maxBusinessName),
		AccountNo:    truncate(c.AccountNo, maxAccountNo),
		ShipTo:       truncate(c.ShipTo, maxShipField),
		ShipAddress1: truncate(c.ShipAddress1, maxShipField),
		ShipAddress2: truncate(c.ShipAddress2, maxShipField),
		ShipContact:  truncate(c.ShipContact, maxShipField),
		ShipCity:     truncate(c.ShipCity, maxShipCity),
		ShipState:    truncate(c.ShipState, maxShipState),
		ShipZipCode:  truncate(c.ShipZipCode, maxShipZip),
		ShipPhone:    truncate(c.ShipPhone, maxShipPhone),
	}
}

// buildLine derives one detail row; extended amounts are quantity × unit.
func buildLine(item Item, expires time.Time) repository.QuotationLine {
	p := item.Product
	qty := int64(item.Quantity)
	return repository.QuotationLine{
		ProductID:          p.ID,
		SKU:                truncate(p.SKU, maxSKU),
		Barcode:            truncate(p.Barcode, maxBarcode),
		Description:        truncate(p.Description, maxDescription),
		CategoryID:         p.CategoryID,
		SubCategoryID:      p.SubCategoryID,
		UnitDesc:           truncate(p.UnitDesc, maxUnitDesc),
		ItemSize:           truncate(p.ItemSize, maxItemSize),
		ItemWeight:         p.ItemWeight,
		Quantity:           item.Quantity,
		UnitPriceCents:     p.UnitPriceCents,
		UnitCostCents:      p.UnitCostCents,
		ExtendedPriceCents: qty * p.UnitPriceCents,
		ExtendedCostCents:  qty * p.UnitCostCents,
		ExpirationDate:     expires,
	}
}

// Build assembles a quotation header and lines for a fully matched picklist.
func Build(draft Draft, customer repository.Customer, now time.Time) (repository.Quotation, []repository.QuotationLine) {
	expires := now.Add(validity)

	lines := make([]repository.QuotationLine, 0, len(draft.Items))
	var total int64
	for _, item := range draft.Items {
		line := buildLine(item, expires)
		total += line.ExtendedPriceCents
		lines = append(lines, line)
	}

	q := repository.Quotation{
		Number:         quotationNumber(draft.TitlePrefix, draft.PicklistID, now),
		Title:          quotationTitle(draft.TitlePrefix, draft.PicklistID),
		CustomerID:     draft.CustomerID,
		Status:         draft.Status,
		QuotationDate:  now,
		ExpirationDate: expires,
		Customer:       shipTo(customer),
		TotalCents:     total,
	}
	return q, lines
}

// Item pairs a picklist quantity with its matched catalog product.
type Item struct {
	Quantity int
	Product  catalog.Product
}
