// Package report renders analysis results and pipeline runs for the terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/shopkeep/internal/cli"
	"github.com/Veraticus/shopkeep/internal/model"
	"github.com/Veraticus/shopkeep/internal/pipeline"
)

const (
	defaultCurrency = "₹"
	maxTableRows    = 10
)

// Formatter renders results with lipgloss styles.
type Formatter struct {
	currency string
}

// NewFormatter creates a formatter using currency as the money prefix.
func NewFormatter(currency string) *Formatter {
	if currency == "" {
		currency = defaultCurrency
	}
	return &Formatter{currency: currency}
}

// FormatAnalysis renders an analysis summary as a set of boxes and tables.
func (f *Formatter) FormatAnalysis(result model.AnalysisResult) string {
	sections := []string{
		cli.FormatTitle("Sales Analysis"),
		f.formatTotals(result.Totals, result.Trends),
	}

	if len(result.Profits) > 0 {
		sections = append(sections, f.formatProfits(result.Profits))
	}
	if len(result.Categories) > 0 {
		sections = append(sections, f.formatCategories(result.Categories))
	}
	sections = append(sections, f.formatWeak(result.Weak))
	if len(result.Restock) > 0 {
		sections = append(sections, f.formatRestock(result.Restock))
	}

	return strings.Join(sections, "\n\n")
}

func (f *Formatter) formatTotals(t model.Totals, trends model.TrendReport) string {
	lines := []string{
		f.metric("Total revenue", f.money(t.TotalRevenue)),
		f.metric("Total profit", f.money(t.TotalProfit)),
		f.metric("Average margin", percent(t.AvgProfitMargin, 1)),
		f.metric("Products", strconv.Itoa(t.TotalProducts)),
	}
	if trends.Available {
		lines = append(lines,
			f.metric("Rising demand", strconv.Itoa(t.RisingProducts)),
			f.metric("Declining demand", strconv.Itoa(t.DecliningProducts)),
		)
	} else {
		lines = append(lines, f.metric("Trends", cli.SubtleStyle.Render(trends.Unavailable)))
	}
	lines = append(lines, f.metric("Restock alerts", strconv.Itoa(t.RestockAlerts)))

	return cli.RenderBox("Overall Performance", strings.Join(lines, "\n"))
}

func (f *Formatter) metric(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(20).Render(label+":"),
		cli.BoldStyle.Render(value),
	)
}

func (f *Formatter) formatProfits(profits []model.ProductProfitSummary) string {
	rows := make([][]string, 0, min(len(profits), maxTableRows))
	for _, p := range head(profits, maxTableRows) {
		rows = append(rows, []string{
			p.ProductName,
			humanize.Comma(int64(p.TotalQuantity)),
			f.money(p.TotalRevenue),
			f.money(p.TotalProfit),
			percent(p.RoundedMargin(), 2),
		})
	}
	table := cli.RenderTable([]string{"Product", "Qty", "Revenue", "Profit", "Margin"}, rows)
	return cli.RenderBox("Top Products by Profit", table)
}

func (f *Formatter) formatCategories(categories []model.CategorySummary) string {
	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []string{
			c.Category,
			strconv.Itoa(c.DistinctProducts),
			humanize.Comma(int64(c.TotalQuantity)),
			f.money(c.TotalRevenue),
			f.money(c.TotalProfit),
		})
	}
	table := cli.RenderTable([]string{"Category", "Products", "Qty", "Revenue", "Profit"}, rows)
	return cli.RenderBox("Categories", table)
}

func (f *Formatter) formatWeak(weak []model.WeakProductEntry) string {
	if len(weak) == 0 {
		return cli.RenderBox("Weak Products", cli.FormatSuccess("No weak products found"))
	}

	lines := make([]string, 0, len(weak))
	for _, w := range weak {
		lines = append(lines, fmt.Sprintf("%s %s",
			cli.FormatWarning(w.Product),
			cli.SubtleStyle.Render(strings.Join(w.Issues, ", "))))
	}
	return cli.RenderBox("Weak Products", strings.Join(lines, "\n"))
}

func (f *Formatter) formatRestock(restock []model.RestockSuggestion) string {
	rows := make([][]string, 0, len(restock))
	for _, r := range restock {
		rows = append(rows, []string{
			r.Product,
			urgencyStyle(r.Urgency).Render(string(r.Urgency)),
			strconv.Itoa(r.CurrentStock),
			strconv.FormatFloat(r.WeeksOfStock, 'f', 1, 64),
			r.Action,
		})
	}
	table := cli.RenderTable([]string{"Product", "Urgency", "Stock", "Weeks", "Action"}, rows)
	return cli.RenderBox("Restock Alerts", table)
}

// FormatRunSummary renders the stage outcomes of a run. Failed runs list the
// stages that completed before the failure.
func (f *Formatter) FormatRunSummary(run *pipeline.Run) string {
	var lines []string
	for _, phase := range run.Completed() {
		line := cli.FormatSuccess(phase.String())
		if outcome, ok := run.Outcomes[phase]; ok && outcome.Kind != "ok" {
			line += " " + cli.SubtleStyle.Render(fmt.Sprintf("(%s: %s)", outcome.Kind, outcome.Reason))
		}
		lines = append(lines, line)
	}

	if !run.Success {
		lines = append(lines, cli.FormatError(fmt.Sprintf("Run %s: %s", run.FailureSummary(), run.Error)))
		return cli.RenderBox("Run Incomplete", strings.Join(lines, "\n"))
	}

	lines = append(lines, "", cli.FormatInfo(fmt.Sprintf("%d sources consulted in %s",
		len(run.Sources), run.FinishedAt.Sub(run.StartedAt).Round(100*time.Millisecond))))
	return cli.RenderBox("Run Complete", strings.Join(lines, "\n"))
}

// FormatSources renders deduplicated sources as a numbered list.
func (f *Formatter) FormatSources(run *pipeline.Run) string {
	if len(run.Sources) == 0 {
		return ""
	}
	lines := make([]string, 0, len(run.Sources))
	for i, s := range run.Sources {
		lines = append(lines, fmt.Sprintf("%d. %s\n   %s\n   %s",
			i+1, cli.BoldStyle.Render(s.Title), cli.InfoStyle.Render(s.URL), cli.SubtleStyle.Render(s.Snippet)))
	}
	return cli.RenderBox("Research Sources", strings.Join(lines, "\n"))
}

func (f *Formatter) money(d decimal.Decimal) string {
	return f.currency + humanize.CommafWithDigits(d.Round(2).InexactFloat64(), 2)
}

func percent(v float64, places int) string {
	return strconv.FormatFloat(model.Round(v, places), 'f', places, 64) + "%"
}

func urgencyStyle(u model.Urgency) lipgloss.Style {
	switch u {
	case model.UrgencyCritical:
		return cli.ErrorStyle
	case model.UrgencyHigh:
		return cli.WarningStyle
	default:
		return cli.InfoStyle
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
