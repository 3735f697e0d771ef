package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// TrendDirection classifies a product's demand over time.
type TrendDirection string

const (
	// TrendRising indicates the later half of sales outpaces the earlier half by more than 10%.
	TrendRising TrendDirection = "Rising"
	// TrendDeclining indicates the later half trails the earlier half by more than 10%.
	TrendDeclining TrendDirection = "Declining"
	// TrendStable indicates neither threshold was crossed.
	TrendStable TrendDirection = "Stable"
)

// Urgency is the restock tier for a product.
type Urgency string

const (
	// UrgencyCritical means less than one period of stock remains.
	UrgencyCritical Urgency = "Critical"
	// UrgencyHigh means less than two periods of stock remain.
	UrgencyHigh Urgency = "High"
	// UrgencyMedium means less than four periods of stock remain.
	UrgencyMedium Urgency = "Medium"
)

// Order returns the sort rank of an urgency (lower is more urgent).
func (u Urgency) Order() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	default:
		return 3
	}
}

// ProductProfitSummary aggregates sales for one product.
type ProductProfitSummary struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalProfit     decimal.Decimal `json:"total_profit"`
	FirstUnitPrice  decimal.Decimal `json:"unit_price"`
	FirstUnitCost   decimal.Decimal `json:"unit_cost"`
	ProductName     string          `json:"product_name"`
	TotalQuantity   int             `json:"total_qty_sold"`
	AvgProfitMargin float64         `json:"avg_profit_margin"`
}

// RoundedMargin returns the average margin rounded to 2 places for display.
func (p ProductProfitSummary) RoundedMargin() float64 {
	return Round(p.AvgProfitMargin, 2)
}

// TrendEntry describes demand movement for a product with at least two dated records.
type TrendEntry struct {
	Direction      TrendDirection `json:"trend"`
	ChangePct      float64        `json:"change_pct"`
	AvgPeriodSales float64        `json:"avg_period_sales"`
	LatestSales    int            `json:"latest_sales"`
}

// TrendReport is the result of trend analysis. Available is false when the
// dataset has no date column.
type TrendReport struct {
	Entries     map[string]TrendEntry `json:"entries"`
	Unavailable string                `json:"unavailable,omitempty"`
	Available   bool                  `json:"available"`
}

// Lookup returns the trend entry for product, if any.
func (t TrendReport) Lookup(product string) (TrendEntry, bool) {
	if !t.Available {
		return TrendEntry{}, false
	}
	entry, ok := t.Entries[product]
	return entry, ok
}

// Count returns how many products have the given direction.
func (t TrendReport) Count(direction TrendDirection) int {
	n := 0
	for _, e := range t.Entries {
		if e.Direction == direction {
			n++
		}
	}
	return n
}

// WeakProductEntry is a product accumulating one or more negative signals.
type WeakProductEntry struct {
	TotalProfit  decimal.Decimal `json:"total_profit"`
	Product      string          `json:"product"`
	Issues       []string        `json:"issues"`
	Severity     int             `json:"severity"`
	ProfitMargin float64         `json:"profit_margin"`
}

// RestockSuggestion is an inventory recommendation for one product.
type RestockSuggestion struct {
	Product        string         `json:"product"`
	Urgency        Urgency        `json:"urgency"`
	Action         string         `json:"action"`
	Trend          TrendDirection `json:"trend"`
	CurrentStock   int            `json:"current_stock"`
	AvgPeriodSales float64        `json:"avg_period_sales"`
	WeeksOfStock   float64        `json:"weeks_of_stock"`
}

// CategorySummary aggregates sales for one category.
type CategorySummary struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	AvgProfitPerUnit decimal.Decimal `json:"avg_profit_per_item"`
	Category         string          `json:"category"`
	TotalQuantity    int             `json:"total_qty_sold"`
	DistinctProducts int             `json:"num_products"`
}

// Totals are the dataset-wide aggregates of an analysis.
type Totals struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	AvgProfitMargin   float64         `json:"avg_profit_margin"`
	TotalProducts     int             `json:"total_products"`
	RisingProducts    int             `json:"rising_products"`
	DecliningProducts int             `json:"declining_products"`
	RestockAlerts     int             `json:"products_needing_restock"`
}

// AnalysisResult bundles every derived view of a dataset.
type AnalysisResult struct {
	Trends     TrendReport            `json:"demand_trends"`
	Digest     string                 `json:"-"`
	Profits    []ProductProfitSummary `json:"profit_by_product"`
	Weak       []WeakProductEntry     `json:"weak_products"`
	Restock    []RestockSuggestion    `json:"restock_suggestions"`
	Categories []CategorySummary      `json:"category_analysis"`
	Totals     Totals                 `json:"summary"`
}

// Round rounds v half away from zero to the given number of places.
func Round(v float64, places int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
