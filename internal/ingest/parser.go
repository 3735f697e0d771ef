// Package ingest reads sales CSV exports into a model.Dataset.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/model"
)

// Column names recognised in the header row.
const (
	ColProductName    = "product_name"
	ColQuantitySold   = "quantity_sold"
	ColUnitPrice      = "unit_price"
	ColUnitCost       = "unit_cost"
	ColCategory       = "category"
	ColDate           = "date"
	ColStockRemaining = "stock_remaining"
)

// RequiredColumns must all be present for a dataset to load.
var RequiredColumns = []string{ColProductName, ColQuantitySold, ColUnitPrice, ColUnitCost}

// Parser implements sales CSV parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new CSV parser. A nil logger uses the default.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: common.OrDefault(logger)}
}

// NormalizeHeader maps a raw header cell to its column key.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(ctx context.Context, path string) (model.Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to open sales file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			p.logger.Debug("failed to close sales file", "path", path, "error", cerr)
		}
	}()

	return p.Parse(ctx, f)
}

// Parse reads a CSV stream. The header row decides which optional columns the
// dataset carries; every data row is parsed and validated.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (model.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return model.Dataset{}, &common.ValidationError{Reason: common.ErrEmptyInput.Error()}
	}
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return model.Dataset{}, common.NewValidationError(0, strings.Join(missing, ", "), "required column missing")
	}

	ds := model.Dataset{Columns: model.Columns{
		Date:     hasColumn(index, ColDate),
		Category: hasColumn(index, ColCategory),
		Stock:    hasColumn(index, ColStockRemaining),
	}}

	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return model.Dataset{}, err
		}

		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return model.Dataset{}, common.NewValidationError(row, "", fmt.Sprintf("malformed CSV: %v", err))
		}
		if blankRow(fields) {
			row--
			continue
		}

		rec, err := parseRow(row, fields, index)
		if err != nil {
			return model.Dataset{}, err
		}
		if err := rec.Validate(row); err != nil {
			return model.Dataset{}, err
		}
		ds.Records = append(ds.Records, rec)
	}

	if len(ds.Records) == 0 {
		return model.Dataset{}, &common.ValidationError{Reason: common.ErrEmptyInput.Error()}
	}

	p.logger.Debug("parsed sales data",
		"records", len(ds.Records),
		"has_date", ds.Columns.Date,
		"has_category", ds.Columns.Category,
		"has_stock", ds.Columns.Stock)

	return ds, nil
}

func parseRow(row int, fields []string, index map[string]int) (model.SalesRecord, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	var rec model.SalesRecord
	var err error

	rec.ProductName = cell(ColProductName)
	rec.Category = cell(ColCategory)

	if rec.QuantitySold, err = parseInt(row, ColQuantitySold, cell(ColQuantitySold), true); err != nil {
		return rec, err
	}
	if rec.UnitPrice, err = parseMoney(row, ColUnitPrice, cell(ColUnitPrice)); err != nil {
		return rec, err
	}
	if rec.UnitCost, err = parseMoney(row, ColUnitCost, cell(ColUnitCost)); err != nil {
		return rec, err
	}
	if stock := cell(ColStockRemaining); stock != "" {
		if rec.StockRemaining, err = parseInt(row, ColStockRemaining, stock, false); err != nil {
			return rec, err
		}
		rec.HasStock = true
	}
	if rec.Date, err = parseDate(row, cell(ColDate)); err != nil {
		return rec, err
	}

	return rec, nil
}

func parseInt(row int, col, raw string, required bool) (int, error) {
	if raw == "" {
		if required {
			return 0, common.NewValidationError(row, col, "value is required")
		}
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// Spreadsheet exports often write whole numbers as "12.0".
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, common.NewValidationError(row, col, fmt.Sprintf("invalid integer %q", raw))
		}
		n = int(f)
	}
	return n, nil
}

func parseMoney(row int, col, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, common.NewValidationError(row, col, "value is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, common.NewValidationError(row, col, fmt.Sprintf("invalid number %q", raw))
	}
	return d, nil
}

func parseDate(row int, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(model.DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, common.NewValidationError(row, ColDate, fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", raw))
}

func hasColumn(index map[string]int, col string) bool {
	_, ok := index[col]
	return ok
}

func blankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
