package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/shopkeep/internal/cli"
	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/config"
	"github.com/Veraticus/shopkeep/internal/model"
	"github.com/Veraticus/shopkeep/internal/pipeline"
	"github.com/Veraticus/shopkeep/internal/report"
)

// Output modes for run.
const (
	outputTerminal = "terminal"
	outputMarkdown = "markdown"
	outputJSON     = "json"
)

const reportWordWrap = 100

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <sales.csv>",
		Short: "Analyze sales and build a researched growth strategy",
		Long: `Run the full pipeline: sales analysis, research planning, web research,
verification of the findings and strategy synthesis.

Progress is shown on stderr. The first Ctrl+C stops the run after the current
stage and prints what was completed.

Examples:
  # Grocery store with the default goal
  shopkeep run sales.csv

  # Custom business and goal, saving the markdown report
  shopkeep run sales.csv --business-type "Pharmacy" --goal "Grow repeat customers" --report-file strategy.md

  # Use the built-in plan and strategy instead of the LLM
  shopkeep run sales.csv --offline

  # Full run result as JSON
  shopkeep run sales.csv --output json`,
		Args: cobra.ExactArgs(1),
		RunE: runPipeline,
	}

	cmd.Flags().String("business-type", "", "Business type (see business-types; default from business.type)")
	cmd.Flags().String("goal", "", "Business goal the strategy should serve")
	cmd.Flags().Bool("offline", false, "Use the built-in plan, verification and strategy instead of the LLM")
	cmd.Flags().String("output", outputTerminal, "Output format (terminal, markdown, json)")
	cmd.Flags().String("report-file", "", "Write the markdown strategy report to this file")

	return cmd
}

func runPipeline(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	switch output {
	case outputTerminal, outputMarkdown, outputJSON:
	default:
		return fmt.Errorf("invalid output: %s", output)
	}

	businessType, _ := cmd.Flags().GetString("business-type")
	if businessType == "" {
		businessType = viper.GetString("business.type")
	}
	if !model.IsKnownBusinessType(businessType) {
		common.LogDebug("using custom business type", common.Fields{"business_type": businessType})
	}
	goal, _ := cmd.Flags().GetString("goal")
	offline, _ := cmd.Flags().GetBool("offline")
	reportFile, _ := cmd.Flags().GetString("report-file")

	dataset, err := loadDataset(cmd, args[0])
	if err != nil {
		return err
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}

	logger := slog.Default()
	stages, err := buildAdvisors(cmd.Context(), offline, logger)
	if err != nil {
		if errors.Is(err, common.ErrMissingConfig) {
			return common.NewUserError("shopkeep is not configured for a full run", err)
		}
		return err
	}
	defer stages.Close()

	orchestrator, err := pipeline.New(pipeline.Config{
		Analyzer:    engine,
		Planner:     stages.planner,
		Researcher:  stages.researcher,
		Verifier:    stages.verifier,
		Synthesizer: stages.synthesizer,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	interruptHandler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := interruptHandler.HandleInterrupts(cmd.Context())
	defer stop()

	sink := cli.NewProgressSink(cmd.ErrOrStderr())
	run := orchestrator.Run(ctx, pipeline.Input{
		Progress:     sink.Update,
		BusinessType: businessType,
		Goal:         goal,
		Dataset:      dataset,
	})
	sink.Close()

	if reportFile != "" && run.Report != "" {
		path := config.ExpandPath(reportFile)
		if err := os.WriteFile(path, []byte(run.Report), 0o600); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("Report saved to "+path))
	}

	if err := writeRun(cmd.OutOrStdout(), run, output); err != nil {
		return err
	}

	if !run.Success {
		fields := common.Fields{"run_id": run.ID, "stage": run.FailedStage.String()}
		if interruptHandler.WasInterrupted() {
			common.LogInfo("run interrupted", fields)
		} else {
			common.LogError(run.Err, "run failed", fields)
		}
		if output != outputTerminal {
			fmt.Fprintln(cmd.ErrOrStderr(), report.NewFormatter(viper.GetString("report.currency")).FormatRunSummary(run))
		}
		return fmt.Errorf("run %s: %w", run.FailureSummary(), run.Err)
	}
	return nil
}

func writeRun(w io.Writer, run *pipeline.Run, output string) error {
	switch output {
	case outputJSON:
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode run: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case outputMarkdown:
		if run.Report != "" {
			fmt.Fprintln(w, run.Report)
		}
	default:
		return writeTerminal(w, run)
	}
	return nil
}

func writeTerminal(w io.Writer, run *pipeline.Run) error {
	formatter := report.NewFormatter(viper.GetString("report.currency"))

	var sections []string
	if run.State.AnalysisComplete {
		sections = append(sections, formatter.FormatAnalysis(run.Analysis))
	}
	if run.State.VerificationComplete {
		insights := run.Verification.KeyInsights
		high := run.Verification.HighConfidence()
		sections = append(sections, cli.RenderBox("Verification",
			fmt.Sprintf("Confidence: %s\nHigh-confidence recommendations: %d of %d\nKey insights: %s",
				run.Verification.OverallConfidence, len(high), len(run.Verification.Recommendations),
				strings.Join(insights, "; "))))
	}
	if run.Report != "" {
		rendered, err := renderMarkdown(run.Report)
		if err != nil {
			return err
		}
		sections = append(sections, rendered)
	}
	if sources := formatter.FormatSources(run); sources != "" {
		sections = append(sections, sources)
	}
	sections = append(sections, formatter.FormatRunSummary(run))

	fmt.Fprintln(w, strings.Join(sections, "\n\n"))
	return nil
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(reportWordWrap),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}
