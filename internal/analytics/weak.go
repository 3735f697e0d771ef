package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/shopkeep/internal/model"
)

// Weak product thresholds and their severity weights.
const (
	LowMarginThreshold       = 15.0
	SteepDeclineThreshold    = -15.0
	SlightDeclineThreshold   = -5.0
	LowContributionThreshold = 2.0

	lowMarginWeight       = 2
	steepDeclineWeight    = 3
	slightDeclineWeight   = 1
	lowContributionWeight = 1
)

// ComputeWeakProducts flags products accumulating negative signals. Results
// are ordered by descending severity, keeping the order of profits for ties.
func ComputeWeakProducts(profits []model.ProductProfitSummary, trends model.TrendReport) []model.WeakProductEntry {
	total := TotalProfit(profits)
	hundred := decimal.NewFromInt(100)

	var weak []model.WeakProductEntry
	for _, p := range profits {
		var issues []string
		severity := 0

		if p.AvgProfitMargin < LowMarginThreshold {
			issues = append(issues, fmt.Sprintf("Low profit margin (%.1f%%)", p.AvgProfitMargin))
			severity += lowMarginWeight
		}

		if trend, ok := trends.Lookup(p.ProductName); ok {
			switch {
			case trend.ChangePct < SteepDeclineThreshold:
				issues = append(issues, fmt.Sprintf("Declining demand (%.1f%%)", trend.ChangePct))
				severity += steepDeclineWeight
			case trend.ChangePct < SlightDeclineThreshold:
				issues = append(issues, fmt.Sprintf("Slightly declining (%.1f%%)", trend.ChangePct))
				severity += slightDeclineWeight
			}
		}

		if total.IsPositive() {
			share, _ := p.TotalProfit.Div(total).Mul(hundred).Float64()
			if share < LowContributionThreshold {
				issues = append(issues, fmt.Sprintf("Low profit contribution (%.1f%%)", share))
				severity += lowContributionWeight
			}
		}

		if len(issues) == 0 {
			continue
		}
		weak = append(weak, model.WeakProductEntry{
			Product:      p.ProductName,
			Issues:       issues,
			Severity:     severity,
			TotalProfit:  p.TotalProfit,
			ProfitMargin: p.AvgProfitMargin,
		})
	}

	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].Severity > weak[j].Severity
	})

	return weak
}
