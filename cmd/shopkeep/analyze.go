package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/shopkeep/internal/analytics"
	"github.com/Veraticus/shopkeep/internal/config"
	"github.com/Veraticus/shopkeep/internal/ingest"
	"github.com/Veraticus/shopkeep/internal/model"
	"github.com/Veraticus/shopkeep/internal/report"
)

// Output formats for analyze.
const (
	formatSummary = "summary"
	formatJSON    = "json"
	formatDigest  = "digest"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <sales.csv>",
		Short: "Analyze a sales CSV without web research",
		Long: `Analyze a sales CSV for profit, demand trends, weak products and restock needs.

The file needs product_name, quantity_sold, unit_price and unit_cost columns.
Optional columns unlock more: date for demand trends, stock_remaining for
restock suggestions and category for the category breakdown.

Examples:
  # Styled summary
  shopkeep analyze sales.csv

  # Machine-readable result
  shopkeep analyze sales.csv --format json

  # The digest handed to the advisory stages
  shopkeep analyze sales.csv --format digest`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().String("format", formatSummary, "Output format (summary, json, digest)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case formatSummary, formatJSON, formatDigest:
	default:
		return fmt.Errorf("invalid format: %s", format)
	}

	dataset, err := loadDataset(cmd, args[0])
	if err != nil {
		return err
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}

	result, err := engine.Summarize(dataset)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case formatDigest:
		fmt.Fprintln(out, result.Digest)
	default:
		fmt.Fprintln(out, report.NewFormatter(viper.GetString("report.currency")).FormatAnalysis(result))
	}

	return nil
}

func loadDataset(cmd *cobra.Command, path string) (model.Dataset, error) {
	path = config.ExpandPath(path)
	dataset, err := ingest.NewParser(slog.Default()).ParseFile(cmd.Context(), path)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	slog.Debug("loaded sales data", "path", path, "records", len(dataset.Records))
	return dataset, nil
}

func newEngine() (*analytics.Engine, error) {
	engine, err := analytics.NewEngine(
		analytics.WithCurrency(viper.GetString("report.currency")),
		analytics.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics engine: %w", err)
	}
	return engine, nil
}
