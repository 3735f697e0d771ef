package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/shopkeep/internal/model"
)

// ComputeCategorySummary aggregates records per category, ordered by
// descending profit with ties broken by name. Records with an empty category
// cell are skipped; datasets without the column yield nothing.
func ComputeCategorySummary(ds model.Dataset) []model.CategorySummary {
	if !ds.Columns.Category {
		return nil
	}

	byName := make(map[string]*model.CategorySummary)
	products := make(map[string]map[string]bool)

	for _, r := range ds.Records {
		if r.Category == "" {
			continue
		}
		c, ok := byName[r.Category]
		if !ok {
			c = &model.CategorySummary{
				Category:     r.Category,
				TotalRevenue: decimal.Zero,
				TotalProfit:  decimal.Zero,
			}
			byName[r.Category] = c
			products[r.Category] = make(map[string]bool)
		}
		c.TotalQuantity += r.QuantitySold
		c.TotalRevenue = c.TotalRevenue.Add(r.Revenue())
		c.TotalProfit = c.TotalProfit.Add(r.Profit())
		products[r.Category][r.ProductName] = true
	}

	out := make([]model.CategorySummary, 0, len(byName))
	for name, c := range byName {
		c.DistinctProducts = len(products[name])
		c.AvgProfitPerUnit = decimal.Zero
		if c.TotalQuantity > 0 {
			c.AvgProfitPerUnit = c.TotalProfit.Div(decimal.NewFromInt(int64(c.TotalQuantity)))
		}
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].TotalProfit.Cmp(out[j].TotalProfit); cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})

	return out
}
