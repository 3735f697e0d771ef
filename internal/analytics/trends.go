package analytics

import (
	"sort"

	"github.com/Veraticus/shopkeep/internal/model"
)

// Trend thresholds in percent.
const (
	RisingThreshold    = 10.0
	DecliningThreshold = -10.0
)

// NoDateReason is the reason recorded when trends cannot be computed.
const NoDateReason = "Date column required for trend analysis"

// ComputeTrends classifies demand for every product with at least two dated
// records. Row order in the input does not affect the result.
func ComputeTrends(ds model.Dataset) model.TrendReport {
	if !ds.Columns.Date {
		return model.TrendReport{Available: false, Unavailable: NoDateReason}
	}

	report := model.TrendReport{Available: true, Entries: make(map[string]model.TrendEntry)}

	for name, records := range datedByProduct(ds) {
		if len(records) < 2 {
			continue
		}
		report.Entries[name] = trendFor(records)
	}

	return report
}

func trendFor(records []model.SalesRecord) model.TrendEntry {
	n := len(records)
	half := n / 2

	first := meanQty(records[:half])
	second := meanQty(records[half:])

	pct := 0.0
	if first > 0 {
		pct = (second - first) / first * 100
	}

	return model.TrendEntry{
		Direction:      classify(pct),
		ChangePct:      pct,
		AvgPeriodSales: meanQty(records),
		LatestSales:    records[n-1].QuantitySold,
	}
}

func classify(pct float64) model.TrendDirection {
	switch {
	case pct > RisingThreshold:
		return model.TrendRising
	case pct < DecliningThreshold:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func meanQty(records []model.SalesRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0
	for _, r := range records {
		sum += r.QuantitySold
	}
	return float64(sum) / float64(len(records))
}

// datedByProduct groups dated records per product, each group sorted by date.
// Same-day records are ordered by their values so the sequence never depends
// on input order.
func datedByProduct(ds model.Dataset) map[string][]model.SalesRecord {
	groups := make(map[string][]model.SalesRecord)
	for name, records := range ds.ByProduct() {
		var dated []model.SalesRecord
		for _, r := range records {
			if r.HasDate() {
				dated = append(dated, r)
			}
		}
		if len(dated) == 0 {
			continue
		}
		sort.SliceStable(dated, func(i, j int) bool {
			return recordLess(dated[i], dated[j])
		})
		groups[name] = dated
	}
	return groups
}

func recordLess(a, b model.SalesRecord) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.QuantitySold != b.QuantitySold {
		return a.QuantitySold < b.QuantitySold
	}
	if c := a.UnitPrice.Cmp(b.UnitPrice); c != 0 {
		return c < 0
	}
	if c := a.UnitCost.Cmp(b.UnitCost); c != 0 {
		return c < 0
	}
	if a.HasStock != b.HasStock {
		return !a.HasStock
	}
	if a.StockRemaining != b.StockRemaining {
		return a.StockRemaining < b.StockRemaining
	}
	return a.Category < b.Category
}
