package model

import (
	"strings"

	"github.com/Veraticus/shopkeep/internal/common"
)

// Validate checks the record's required fields. row is the 1-based data row
// used in the error message.
func (r SalesRecord) Validate(row int) error {
	if strings.TrimSpace(r.ProductName) == "" {
		return common.NewValidationError(row, "product_name", "must not be empty")
	}
	if r.QuantitySold < 0 {
		return common.NewValidationError(row, "quantity_sold", "must not be negative")
	}
	if r.UnitPrice.IsNegative() {
		return common.NewValidationError(row, "unit_price", "must not be negative")
	}
	if r.UnitCost.IsNegative() {
		return common.NewValidationError(row, "unit_cost", "must not be negative")
	}
	if r.StockRemaining < 0 {
		return common.NewValidationError(row, "stock_remaining", "must not be negative")
	}
	return nil
}

// Validate checks every record. The first failing row is reported.
func (d Dataset) Validate() error {
	if len(d.Records) == 0 {
		return &common.ValidationError{Reason: common.ErrEmptyInput.Error()}
	}
	for i, r := range d.Records {
		if err := r.Validate(i + 1); err != nil {
			return err
		}
	}
	return nil
}
