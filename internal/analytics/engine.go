package analytics

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultCurrency prefixes money values in the digest.
const DefaultCurrency = "₹"

// Digest list limits.
const (
	digestWeakLimit    = 5
	digestRestockLimit = 5
	digestRisingLimit  = 3
)

// Engine runs the full analysis and renders its digest.
type Engine struct {
	logger   *slog.Logger
	digest   *template.Template
	currency string
}

// Option configures an Engine.
type Option func(*Engine)

// WithCurrency sets the currency symbol used in the digest.
func WithCurrency(symbol string) Option {
	return func(e *Engine) {
		if symbol != "" {
			e.currency = symbol
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an analysis engine.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{currency: DefaultCurrency}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = common.OrDefault(e.logger)

	funcMap := template.FuncMap{
		"money":  e.formatMoney,
		"pct":    formatPct,
		"signed": formatSigned,
		"join":   strings.Join,
	}

	tmpl, err := template.New("digest.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/digest.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse digest template: %w", err)
	}
	e.digest = tmpl

	return e, nil
}

// Summarize runs every analysis over ds and renders the digest text.
func (e *Engine) Summarize(ds model.Dataset) (model.AnalysisResult, error) {
	profits, err := ComputeProfitSummary(ds)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	trends := ComputeTrends(ds)
	result := model.AnalysisResult{
		Profits:    profits,
		Trends:     trends,
		Weak:       ComputeWeakProducts(profits, trends),
		Restock:    ComputeRestockSuggestions(ds, trends),
		Categories: ComputeCategorySummary(ds),
	}
	result.Totals = computeTotals(result)

	digest, err := e.RenderDigest(result)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	result.Digest = digest

	e.logger.Debug("analysis complete",
		"products", result.Totals.TotalProducts,
		"weak", len(result.Weak),
		"restock_alerts", result.Totals.RestockAlerts,
		"trends_available", trends.Available)

	return result, nil
}

// Summarize runs the analysis with a default engine.
func Summarize(ds model.Dataset) (model.AnalysisResult, error) {
	e, err := NewEngine()
	if err != nil {
		return model.AnalysisResult{}, err
	}
	return e.Summarize(ds)
}

func computeTotals(r model.AnalysisResult) model.Totals {
	t := model.Totals{
		TotalRevenue:      TotalRevenue(r.Profits),
		TotalProfit:       TotalProfit(r.Profits),
		TotalProducts:     len(r.Profits),
		RisingProducts:    r.Trends.Count(model.TrendRising),
		DecliningProducts: r.Trends.Count(model.TrendDeclining),
		RestockAlerts:     len(r.Restock),
	}
	if len(r.Profits) > 0 {
		sum := 0.0
		for _, p := range r.Profits {
			sum += p.AvgProfitMargin
		}
		t.AvgProfitMargin = sum / float64(len(r.Profits))
	}
	return t
}

type risingProduct struct {
	Name      string
	ChangePct float64
}

type digestData struct {
	Totals             model.Totals
	TrendsUnavailable  string
	Weak               []model.WeakProductEntry
	Restock            []model.RestockSuggestion
	Rising             []risingProduct
	RestockAlertsTotal int
}

// RenderDigest renders the fixed-template text summary of result.
func (e *Engine) RenderDigest(result model.AnalysisResult) (string, error) {
	data := digestData{
		Totals:             result.Totals,
		Weak:               head(result.Weak, digestWeakLimit),
		Restock:            head(result.Restock, digestRestockLimit),
		Rising:             topRising(result.Trends, digestRisingLimit),
		RestockAlertsTotal: len(result.Restock),
	}
	if !result.Trends.Available {
		data.TrendsUnavailable = result.Trends.Unavailable
	}

	var buf bytes.Buffer
	if err := e.digest.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return buf.String(), nil
}

func topRising(trends model.TrendReport, limit int) []risingProduct {
	var rising []risingProduct
	for name, entry := range trends.Entries {
		if entry.Direction == model.TrendRising {
			rising = append(rising, risingProduct{Name: name, ChangePct: entry.ChangePct})
		}
	}
	sort.Slice(rising, func(i, j int) bool {
		if rising[i].ChangePct != rising[j].ChangePct {
			return rising[i].ChangePct > rising[j].ChangePct
		}
		return rising[i].Name < rising[j].Name
	})
	return head(rising, limit)
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func (e *Engine) formatMoney(d decimal.Decimal) string {
	return e.currency + humanize.Comma(d.Round(0).IntPart())
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func formatSigned(v float64) string {
	return fmt.Sprintf("%+.1f", v)
}
