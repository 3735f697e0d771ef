// Package analytics derives profit, demand, inventory and category views from
// a sales dataset. Every function is pure: no I/O and no shared state.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/shopkeep/internal/model"
)

// ComputeProfitSummary aggregates records per product, ordered by descending
// total profit with ties broken by product name.
func ComputeProfitSummary(ds model.Dataset) ([]model.ProductProfitSummary, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	groups := ds.ByProduct()
	names := ds.ProductNames()

	out := make([]model.ProductProfitSummary, 0, len(names))
	for _, name := range names {
		records := groups[name]
		summary := model.ProductProfitSummary{
			ProductName:    name,
			FirstUnitPrice: records[0].UnitPrice,
			FirstUnitCost:  records[0].UnitCost,
			TotalRevenue:   decimal.Zero,
			TotalProfit:    decimal.Zero,
		}

		marginSum := 0.0
		for _, r := range records {
			summary.TotalQuantity += r.QuantitySold
			summary.TotalRevenue = summary.TotalRevenue.Add(r.Revenue())
			summary.TotalProfit = summary.TotalProfit.Add(r.Profit())
			marginSum += r.Margin()
		}
		summary.AvgProfitMargin = marginSum / float64(len(records))
		out = append(out, summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].TotalProfit.Cmp(out[j].TotalProfit); c != 0 {
			return c > 0
		}
		return out[i].ProductName < out[j].ProductName
	})

	return out, nil
}

// TotalProfit sums the total profit of every summary.
func TotalProfit(profits []model.ProductProfitSummary) decimal.Decimal {
	total := decimal.Zero
	for _, p := range profits {
		total = total.Add(p.TotalProfit)
	}
	return total
}

// TotalRevenue sums the total revenue of every summary.
func TotalRevenue(profits []model.ProductProfitSummary) decimal.Decimal {
	total := decimal.Zero
	for _, p := range profits {
		total = total.Add(p.TotalRevenue)
	}
	return total
}
