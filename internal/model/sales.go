// Package model defines the sales records and analysis results shared across shopkeep.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by sales data.
const DateLayout = "2006-01-02"

// SalesRecord is one row of transactional sales input.
type SalesRecord struct {
	Date           time.Time       // Zero when the row carries no date
	UnitPrice      decimal.Decimal // Price charged per unit
	UnitCost       decimal.Decimal // Cost of goods per unit
	ProductName    string
	Category       string
	QuantitySold   int
	StockRemaining int
	HasStock       bool // False when the stock cell was blank or the column absent
}

// Revenue returns price × quantity.
func (r SalesRecord) Revenue() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.QuantitySold)))
}

// Profit returns (price − cost) × quantity.
func (r SalesRecord) Profit() decimal.Decimal {
	return r.UnitPrice.Sub(r.UnitCost).Mul(decimal.NewFromInt(int64(r.QuantitySold)))
}

// Margin returns the per-record profit margin as a percentage. A zero unit
// price has no defined margin and contributes 0.
func (r SalesRecord) Margin() float64 {
	if r.UnitPrice.IsZero() {
		return 0
	}
	margin, _ := r.UnitPrice.Sub(r.UnitCost).Div(r.UnitPrice).Mul(decimal.NewFromInt(100)).Float64()
	return margin
}

// HasDate reports whether the record carries a sale date.
func (r SalesRecord) HasDate() bool {
	return !r.Date.IsZero()
}

// Columns records which optional columns were present in the input. Presence
// is a property of the whole dataset, never of a single row.
type Columns struct {
	Date     bool
	Category bool
	Stock    bool
}

// Dataset is a validated-on-demand collection of sales records.
type Dataset struct {
	Records []SalesRecord
	Columns Columns
}

// ProductNames returns the distinct product names in first-seen order.
func (d Dataset) ProductNames() []string {
	seen := make(map[string]bool, len(d.Records))
	names := make([]string, 0, len(d.Records))
	for _, r := range d.Records {
		if !seen[r.ProductName] {
			seen[r.ProductName] = true
			names = append(names, r.ProductName)
		}
	}
	return names
}

// ByProduct groups records by product name, preserving input order within a
// product.
func (d Dataset) ByProduct() map[string][]SalesRecord {
	groups := make(map[string][]SalesRecord)
	for _, r := range d.Records {
		groups[r.ProductName] = append(groups[r.ProductName], r)
	}
	return groups
}
