package analytics

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/model"
)

var week0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// series builds one dated record per quantity, a week apart. The last record
// carries stock; earlier ones carry stock+100 so the latest row is observable.
func series(name, category string, price, cost string, stock int, qty ...int) []model.SalesRecord {
	out := make([]model.SalesRecord, 0, len(qty))
	for i, q := range qty {
		s := stock + 100
		if i == len(qty)-1 {
			s = stock
		}
		out = append(out, model.SalesRecord{
			Date:           week0.AddDate(0, 0, 7*i),
			ProductName:    name,
			Category:       category,
			QuantitySold:   q,
			UnitPrice:      decimal.RequireFromString(price),
			UnitCost:       decimal.RequireFromString(cost),
			StockRemaining: s,
			HasStock:       true,
		})
	}
	return out
}

func fullColumns() model.Columns {
	return model.Columns{Date: true, Category: true, Stock: true}
}

// scenarioDataset holds a rising product A and a declining product B.
func scenarioDataset() model.Dataset {
	var records []model.SalesRecord
	records = append(records, series("A", "Grains", "100", "60", 40, 10, 10, 20, 20)...)
	records = append(records, series("B", "Pulses", "100", "70", 3, 20, 20, 5, 5)...)
	return model.Dataset{Records: records, Columns: fullColumns()}
}

func TestComputeProfitSummary(t *testing.T) {
	profits, err := ComputeProfitSummary(scenarioDataset())
	require.NoError(t, err)
	require.Len(t, profits, 2)

	assert.Equal(t, "A", profits[0].ProductName)
	assert.Equal(t, 60, profits[0].TotalQuantity)
	assert.True(t, decimal.NewFromInt(6000).Equal(profits[0].TotalRevenue))
	assert.True(t, decimal.NewFromInt(2400).Equal(profits[0].TotalProfit))
	assert.InDelta(t, 40.0, profits[0].AvgProfitMargin, 1e-9)
	assert.Equal(t, "100", profits[0].FirstUnitPrice.String())

	assert.Equal(t, "B", profits[1].ProductName)
	assert.True(t, decimal.NewFromInt(1500).Equal(profits[1].TotalProfit))
}

func TestComputeProfitSummaryExactTotals(t *testing.T) {
	ds := model.Dataset{Records: []model.SalesRecord{
		{ProductName: "Gum", QuantitySold: 3, UnitPrice: decimal.RequireFromString("0.10"), UnitCost: decimal.RequireFromString("0.07")},
		{ProductName: "Gum", QuantitySold: 7, UnitPrice: decimal.RequireFromString("0.20"), UnitCost: decimal.RequireFromString("0.01")},
		{ProductName: "Mint", QuantitySold: 11, UnitPrice: decimal.RequireFromString("1.33"), UnitCost: decimal.RequireFromString("0.99")},
		{ProductName: "Mint", QuantitySold: 1, UnitPrice: decimal.RequireFromString("0.30"), UnitCost: decimal.RequireFromString("0.30")},
	}}

	want := decimal.Zero
	for _, r := range ds.Records {
		want = want.Add(r.UnitPrice.Sub(r.UnitCost).Mul(decimal.NewFromInt(int64(r.QuantitySold))))
	}

	profits, err := ComputeProfitSummary(ds)
	require.NoError(t, err)
	assert.True(t, want.Equal(TotalProfit(profits)), "want %s got %s", want, TotalProfit(profits))
	assert.Equal(t, "5.16", TotalProfit(profits).String())
}

func TestComputeProfitSummaryTiesSortByName(t *testing.T) {
	ds := model.Dataset{Records: []model.SalesRecord{
		{ProductName: "Zeta", QuantitySold: 1, UnitPrice: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5)},
		{ProductName: "Alpha", QuantitySold: 1, UnitPrice: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5)},
	}}

	profits, err := ComputeProfitSummary(ds)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", profits[0].ProductName)
	assert.Equal(t, "Zeta", profits[1].ProductName)
}

func TestComputeProfitSummaryZeroPrice(t *testing.T) {
	ds := model.Dataset{Records: []model.SalesRecord{
		{ProductName: "Sample", QuantitySold: 4, UnitPrice: decimal.Zero, UnitCost: decimal.NewFromInt(2)},
		{ProductName: "Sample", QuantitySold: 1, UnitPrice: decimal.NewFromInt(100), UnitCost: decimal.NewFromInt(50)},
	}}

	var profits []model.ProductProfitSummary
	require.NotPanics(t, func() {
		var err error
		profits, err = ComputeProfitSummary(ds)
		require.NoError(t, err)
	})

	require.Len(t, profits, 1)
	assert.InDelta(t, 25.0, profits[0].AvgProfitMargin, 1e-9, "zero price contributes margin 0 to the mean")
	assert.True(t, decimal.NewFromInt(42).Equal(profits[0].TotalProfit))
}

func TestComputeProfitSummaryRejectsInvalid(t *testing.T) {
	_, err := ComputeProfitSummary(model.Dataset{})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = ComputeProfitSummary(model.Dataset{Records: []model.SalesRecord{
		{ProductName: "Pen", QuantitySold: -1, UnitPrice: decimal.NewFromInt(1)},
	}})
	var vErr *common.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "quantity_sold", vErr.Field)
}

func TestComputeTrendsScenario(t *testing.T) {
	trends := ComputeTrends(scenarioDataset())
	require.True(t, trends.Available)

	a, ok := trends.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, model.TrendRising, a.Direction)
	assert.InDelta(t, 100.0, a.ChangePct, 1e-9)
	assert.InDelta(t, 15.0, a.AvgPeriodSales, 1e-9)
	assert.Equal(t, 20, a.LatestSales)

	b, ok := trends.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, model.TrendDeclining, b.Direction)
	assert.InDelta(t, -75.0, b.ChangePct, 1e-9)
}

func TestComputeTrendsClassification(t *testing.T) {
	tests := []struct {
		name      string
		qty       []int
		direction model.TrendDirection
		pct       float64
	}{
		{name: "zero first half", qty: []int{0, 0, 5, 5}, direction: model.TrendStable, pct: 0},
		{name: "exactly plus ten", qty: []int{10, 11}, direction: model.TrendStable, pct: 10},
		{name: "just over ten", qty: []int{100, 111}, direction: model.TrendRising, pct: 11},
		{name: "exactly minus ten", qty: []int{10, 9}, direction: model.TrendStable, pct: -10},
		{name: "odd length puts middle in second half", qty: []int{10, 20, 20}, direction: model.TrendRising, pct: 100},
		{name: "flat", qty: []int{7, 7, 7, 7}, direction: model.TrendStable, pct: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := model.Dataset{Records: series("P", "", "10", "5", 1, tt.qty...), Columns: fullColumns()}
			entry, ok := ComputeTrends(ds).Lookup("P")
			require.True(t, ok)
			assert.Equal(t, tt.direction, entry.Direction)
			assert.InDelta(t, tt.pct, entry.ChangePct, 1e-9)
		})
	}
}

func TestComputeTrendsZeroFirstHalfIsExactlyZero(t *testing.T) {
	ds := model.Dataset{Records: series("P", "", "10", "5", 1, 0, 0, 9, 9), Columns: fullColumns()}
	entry, _ := ComputeTrends(ds).Lookup("P")
	assert.Equal(t, 0.0, entry.ChangePct)
}

func TestComputeTrendsOrderIndependent(t *testing.T) {
	base := scenarioDataset()
	// Same-day duplicates exercise the tie-break.
	dup := base.Records[0]
	dup.QuantitySold = 3
	base.Records = append(base.Records, dup)

	want := ComputeTrends(base)

	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic shuffle
	for i := 0; i < 20; i++ {
		shuffled := model.Dataset{Records: append([]model.SalesRecord(nil), base.Records...), Columns: base.Columns}
		rng.Shuffle(len(shuffled.Records), func(a, b int) {
			shuffled.Records[a], shuffled.Records[b] = shuffled.Records[b], shuffled.Records[a]
		})
		assert.Equal(t, want, ComputeTrends(shuffled))
	}
}

func TestComputeTrendsUnavailable(t *testing.T) {
	ds := scenarioDataset()
	ds.Columns.Date = false

	trends := ComputeTrends(ds)
	assert.False(t, trends.Available)
	assert.Equal(t, NoDateReason, trends.Unavailable)
	_, ok := trends.Lookup("A")
	assert.False(t, ok)
}

func TestComputeTrendsSkipsSparseProducts(t *testing.T) {
	records := series("Solo", "", "10", "5", 1, 4)
	records = append(records, model.SalesRecord{ProductName: "Solo", QuantitySold: 9,
		UnitPrice: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5)})
	ds := model.Dataset{Records: records, Columns: fullColumns()}

	trends := ComputeTrends(ds)
	assert.True(t, trends.Available)
	assert.Empty(t, trends.Entries, "undated rows never count toward a trend")
}

func TestComputeWeakProductsScenario(t *testing.T) {
	ds := scenarioDataset()
	profits, err := ComputeProfitSummary(ds)
	require.NoError(t, err)

	weak := ComputeWeakProducts(profits, ComputeTrends(ds))
	require.Len(t, weak, 1)
	assert.Equal(t, "B", weak[0].Product)
	assert.Equal(t, []string{"Declining demand (-75.0%)"}, weak[0].Issues)
	assert.Equal(t, 3, weak[0].Severity)
}

func TestComputeWeakProductsSeverity(t *testing.T) {
	trends := model.TrendReport{Available: true, Entries: map[string]model.TrendEntry{
		"Steep":  {ChangePct: -20},
		"Slight": {ChangePct: -6},
		"Edge":   {ChangePct: -15},
		"Fine":   {ChangePct: -5},
	}}
	profits := []model.ProductProfitSummary{
		{ProductName: "Big", TotalProfit: decimal.NewFromInt(1000), AvgProfitMargin: 30},
		{ProductName: "Fine", TotalProfit: decimal.NewFromInt(100), AvgProfitMargin: 30},
		{ProductName: "Slight", TotalProfit: decimal.NewFromInt(100), AvgProfitMargin: 30},
		{ProductName: "Edge", TotalProfit: decimal.NewFromInt(100), AvgProfitMargin: 30},
		{ProductName: "Steep", TotalProfit: decimal.NewFromInt(1), AvgProfitMargin: 10},
	}

	weak := ComputeWeakProducts(profits, trends)
	require.Len(t, weak, 3)

	assert.Equal(t, "Steep", weak[0].Product)
	assert.Equal(t, 6, weak[0].Severity)
	assert.Equal(t, []string{
		"Low profit margin (10.0%)",
		"Declining demand (-20.0%)",
		"Low profit contribution (0.1%)",
	}, weak[0].Issues)

	// Equal severities keep profit order.
	assert.Equal(t, "Slight", weak[1].Product)
	assert.Equal(t, []string{"Slightly declining (-6.0%)"}, weak[1].Issues)
	assert.Equal(t, "Edge", weak[2].Product)
	assert.Equal(t, 1, weak[2].Severity)

	for i := 1; i < len(weak); i++ {
		assert.GreaterOrEqual(t, weak[i-1].Severity, weak[i].Severity)
	}
}

func TestComputeWeakProductsSeverityIsMonotonic(t *testing.T) {
	// Each step adds one signal to X.
	steps := []struct {
		margin float64
		trend  float64
		profit int64
	}{
		{margin: 30, trend: 0, profit: 500},
		{margin: 10, trend: 0, profit: 500},
		{margin: 10, trend: -20, profit: 500},
		{margin: 10, trend: -20, profit: 1},
	}

	var severities []int
	for _, s := range steps {
		profits := []model.ProductProfitSummary{
			{ProductName: "Anchor", TotalProfit: decimal.NewFromInt(1000), AvgProfitMargin: 50},
			{ProductName: "X", TotalProfit: decimal.NewFromInt(s.profit), AvgProfitMargin: s.margin},
		}
		trends := model.TrendReport{Available: true, Entries: map[string]model.TrendEntry{"X": {ChangePct: s.trend}}}

		severity := 0
		for _, w := range ComputeWeakProducts(profits, trends) {
			if w.Product == "X" {
				severity = w.Severity
			}
		}
		severities = append(severities, severity)
	}

	assert.Equal(t, []int{0, 2, 5, 6}, severities)
}

func TestComputeWeakProductsSkipsShareWhenNoProfit(t *testing.T) {
	profits := []model.ProductProfitSummary{
		{ProductName: "Loss", TotalProfit: decimal.NewFromInt(-50), AvgProfitMargin: 20},
		{ProductName: "Even", TotalProfit: decimal.Zero, AvgProfitMargin: 20},
	}

	weak := ComputeWeakProducts(profits, model.TrendReport{})
	assert.Empty(t, weak)
}

func TestTier(t *testing.T) {
	tests := []struct {
		weeks float64
		want  model.Urgency
		ok    bool
	}{
		{weeks: 0, want: model.UrgencyCritical, ok: true},
		{weeks: 0.99, want: model.UrgencyCritical, ok: true},
		{weeks: 1, want: model.UrgencyHigh, ok: true},
		{weeks: 1.99, want: model.UrgencyHigh, ok: true},
		{weeks: 2, want: model.UrgencyMedium, ok: true},
		{weeks: 3.99, want: model.UrgencyMedium, ok: true},
		{weeks: 4, ok: false},
		{weeks: math.Inf(1), ok: false},
	}

	for _, tt := range tests {
		got, ok := Tier(tt.weeks)
		assert.Equal(t, tt.ok, ok, "weeks=%v", tt.weeks)
		assert.Equal(t, tt.want, got, "weeks=%v", tt.weeks)
	}
}

func TestWeeksOfStock(t *testing.T) {
	assert.InDelta(t, 2.5, WeeksOfStock(25, 10), 1e-9)
	assert.True(t, math.IsInf(WeeksOfStock(25, 0), 1))
}

func TestComputeRestockSuggestionsScenario(t *testing.T) {
	ds := scenarioDataset()
	suggestions := ComputeRestockSuggestions(ds, ComputeTrends(ds))
	require.Len(t, suggestions, 2)

	b := suggestions[0]
	assert.Equal(t, "B", b.Product)
	assert.Equal(t, model.UrgencyCritical, b.Urgency)
	assert.Equal(t, 3, b.CurrentStock)
	assert.InDelta(t, 0.24, b.WeeksOfStock, 1e-9)
	assert.Equal(t, "Restock immediately! Only 3 units left (~0.2 weeks)", b.Action)

	a := suggestions[1]
	assert.Equal(t, "A", a.Product)
	assert.Equal(t, model.UrgencyHigh, a.Urgency, "rising demand promotes medium to high")
	assert.Equal(t, "Plan restock. ~2.7 weeks of stock (Demand is rising!)", a.Action)
	assert.Equal(t, model.TrendRising, a.Trend)
}

func TestComputeRestockSuggestionsTiers(t *testing.T) {
	// Stable demand of 10 per period; stock decides the tier.
	tests := []struct {
		stock  int
		want   model.Urgency
		action string
	}{
		{stock: 9, want: model.UrgencyCritical, action: "Restock immediately! Only 9 units left (~0.9 weeks)"},
		{stock: 10, want: model.UrgencyHigh, action: "Restock soon. ~1.0 weeks of stock remaining"},
		{stock: 25, want: model.UrgencyMedium, action: "Plan restock. ~2.5 weeks of stock"},
		{stock: 40},
	}

	for _, tt := range tests {
		ds := model.Dataset{Records: series("P", "", "10", "5", tt.stock, 10, 10), Columns: fullColumns()}
		got := ComputeRestockSuggestions(ds, ComputeTrends(ds))
		if tt.want == "" {
			assert.Empty(t, got, "stock=%d", tt.stock)
			continue
		}
		require.Len(t, got, 1, "stock=%d", tt.stock)
		assert.Equal(t, tt.want, got[0].Urgency)
		assert.Equal(t, tt.action, got[0].Action)
	}
}

func TestComputeRestockSuggestionsOrdering(t *testing.T) {
	var records []model.SalesRecord
	records = append(records, series("Medium B", "", "10", "5", 30, 10, 10)...)
	records = append(records, series("Critical", "", "10", "5", 1, 10, 10)...)
	records = append(records, series("Medium A", "", "10", "5", 30, 10, 10)...)
	records = append(records, series("High", "", "10", "5", 15, 10, 10)...)
	ds := model.Dataset{Records: records, Columns: fullColumns()}

	got := ComputeRestockSuggestions(ds, ComputeTrends(ds))
	require.Len(t, got, 4)

	names := []string{got[0].Product, got[1].Product, got[2].Product, got[3].Product}
	assert.Equal(t, []string{"Critical", "High", "Medium A", "Medium B"}, names)
}

func TestComputeRestockSuggestionsNeedsStockColumn(t *testing.T) {
	ds := scenarioDataset()
	ds.Columns.Stock = false

	assert.Empty(t, ComputeRestockSuggestions(ds, ComputeTrends(ds)))
}

func TestComputeRestockSuggestionsSkipsBlankLatestStock(t *testing.T) {
	ds := scenarioDataset()
	// B's latest row has no stock figure; its earlier rows still do.
	for i := len(ds.Records) - 1; i >= 0; i-- {
		if ds.Records[i].ProductName == "B" {
			ds.Records[i].StockRemaining = 0
			ds.Records[i].HasStock = false
			break
		}
	}

	got := ComputeRestockSuggestions(ds, ComputeTrends(ds))
	for _, s := range got {
		assert.NotEqual(t, "B", s.Product)
	}
}

func TestComputeRestockSuggestionsNoSales(t *testing.T) {
	ds := model.Dataset{Records: series("Idle", "", "10", "5", 0, 0, 0), Columns: fullColumns()}
	assert.Empty(t, ComputeRestockSuggestions(ds, ComputeTrends(ds)), "zero demand never runs out")
}

func TestComputeCategorySummary(t *testing.T) {
	ds := scenarioDataset()
	ds.Records = append(ds.Records, model.SalesRecord{
		ProductName: "C", Category: "Pulses", QuantitySold: 10,
		UnitPrice: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5), Date: week0,
	})

	cats := ComputeCategorySummary(ds)
	require.Len(t, cats, 2)

	assert.Equal(t, "Grains", cats[0].Category)
	assert.Equal(t, 1, cats[0].DistinctProducts)
	assert.Equal(t, 60, cats[0].TotalQuantity)
	assert.True(t, decimal.NewFromInt(40).Equal(cats[0].AvgProfitPerUnit))

	assert.Equal(t, "Pulses", cats[1].Category)
	assert.Equal(t, 2, cats[1].DistinctProducts)
	assert.True(t, decimal.NewFromInt(1550).Equal(cats[1].TotalProfit))
	assert.True(t, decimal.NewFromInt(5100).Equal(cats[1].TotalRevenue))
}

func TestComputeCategorySummaryWithoutColumn(t *testing.T) {
	ds := scenarioDataset()
	ds.Columns.Category = false
	assert.Empty(t, ComputeCategorySummary(ds))
}
