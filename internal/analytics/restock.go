package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/Veraticus/shopkeep/internal/model"
)

// Restock tier boundaries in periods of stock remaining.
const (
	CriticalWeeks   = 1.0
	HighWeeks       = 2.0
	MediumWeeks     = 4.0
	RisingBoostWeek = 3.0
)

// ComputeRestockSuggestions projects stock run-out for every product that has
// a trend entry, using the product's latest-dated record. Datasets without a
// stock column yield no suggestions, and neither does a product whose latest
// record has a blank stock cell.
func ComputeRestockSuggestions(ds model.Dataset, trends model.TrendReport) []model.RestockSuggestion {
	if !ds.Columns.Stock || !trends.Available {
		return nil
	}

	groups := datedByProduct(ds)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []model.RestockSuggestion
	for _, name := range names {
		trend, ok := trends.Lookup(name)
		if !ok {
			continue
		}
		records := groups[name]
		latest := records[len(records)-1]
		if !latest.HasStock {
			continue
		}

		if s, ok := suggest(name, latest.StockRemaining, trend); ok {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Urgency.Order() < out[j].Urgency.Order()
	})

	return out
}

// WeeksOfStock returns stock divided by average period sales, or +Inf when
// nothing sells.
func WeeksOfStock(stock int, avg float64) float64 {
	if avg <= 0 {
		return math.Inf(1)
	}
	return float64(stock) / avg
}

// Tier returns the restock urgency for a weeks-of-stock projection.
func Tier(weeks float64) (model.Urgency, bool) {
	switch {
	case weeks < CriticalWeeks:
		return model.UrgencyCritical, true
	case weeks < HighWeeks:
		return model.UrgencyHigh, true
	case weeks < MediumWeeks:
		return model.UrgencyMedium, true
	default:
		return "", false
	}
}

func suggest(product string, stock int, trend model.TrendEntry) (model.RestockSuggestion, bool) {
	weeks := WeeksOfStock(stock, trend.AvgPeriodSales)

	urgency, ok := Tier(weeks)
	if !ok {
		return model.RestockSuggestion{}, false
	}

	var action string
	switch urgency {
	case model.UrgencyCritical:
		action = fmt.Sprintf("Restock immediately! Only %d units left (~%.1f weeks)", stock, weeks)
	case model.UrgencyHigh:
		action = fmt.Sprintf("Restock soon. ~%.1f weeks of stock remaining", weeks)
	default:
		action = fmt.Sprintf("Plan restock. ~%.1f weeks of stock", weeks)
	}

	if trend.Direction == model.TrendRising && weeks < RisingBoostWeek {
		if urgency == model.UrgencyMedium {
			urgency = model.UrgencyHigh
		}
		action += " (Demand is rising!)"
	}

	return model.RestockSuggestion{
		Product:        product,
		Urgency:        urgency,
		Action:         action,
		Trend:          trend.Direction,
		CurrentStock:   stock,
		AvgPeriodSales: trend.AvgPeriodSales,
		WeeksOfStock:   weeks,
	}, true
}
