package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/shopkeep/internal/advisory"
	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/model"
)

// Contract violations reported as stage failures.
var (
	ErrNoTasks   = errors.New("planner returned no research tasks")
	ErrNoSources = errors.New("research found no sources")
)

// Progress checkpoints per stage.
const (
	analysisStart     = 0.05
	analysisDone      = 0.20
	planningStart     = 0.25
	planningDone      = 0.35
	researchStart     = 0.40
	researchBand      = 0.25
	researchDone      = 0.65
	verificationStart = 0.70
	verificationDone  = 0.80
	synthesisStart    = 0.85
	synthesisDone     = 1.0
)

// ProgressFunc receives stage, progress in [0, 1] and a status message. It is
// called synchronously on the run goroutine.
type ProgressFunc func(stage string, progress float64, status string)

// Analyzer produces the analysis result and digest for a dataset.
type Analyzer interface {
	Summarize(ds model.Dataset) (model.AnalysisResult, error)
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Analyzer    Analyzer
	Planner     advisory.Planner
	Researcher  advisory.Researcher
	Verifier    advisory.Verifier
	Synthesizer advisory.Synthesizer
	Logger      *slog.Logger
	Now         func() time.Time
}

// Orchestrator runs the analysis and advisory stages in order.
type Orchestrator struct {
	analyzer    Analyzer
	planner     advisory.Planner
	researcher  advisory.Researcher
	verifier    advisory.Verifier
	synthesizer advisory.Synthesizer
	logger      *slog.Logger
	now         func() time.Time
}

// New creates an orchestrator. Every collaborator is required.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Analyzer == nil:
		return nil, fmt.Errorf("%w: analyzer", common.ErrMissingConfig)
	case cfg.Planner == nil:
		return nil, fmt.Errorf("%w: planner", common.ErrMissingConfig)
	case cfg.Researcher == nil:
		return nil, fmt.Errorf("%w: researcher", common.ErrMissingConfig)
	case cfg.Verifier == nil:
		return nil, fmt.Errorf("%w: verifier", common.ErrMissingConfig)
	case cfg.Synthesizer == nil:
		return nil, fmt.Errorf("%w: synthesizer", common.ErrMissingConfig)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		analyzer:    cfg.Analyzer,
		planner:     cfg.Planner,
		researcher:  cfg.Researcher,
		verifier:    cfg.Verifier,
		synthesizer: cfg.Synthesizer,
		logger:      common.OrDefault(cfg.Logger),
		now:         now,
	}, nil
}

// Input is what a run consumes.
type Input struct {
	Progress     ProgressFunc
	BusinessType string
	Goal         string
	Dataset      model.Dataset
}

// Run executes every stage. It always returns a run; on failure the run
// holds the results of the stages that completed and Err describes the
// failure.
func (o *Orchestrator) Run(ctx context.Context, in Input) *Run {
	r := &runner{
		orch: o,
		sink: in.Progress,
		run: &Run{
			ID:           uuid.NewString(),
			BusinessType: in.BusinessType,
			Goal:         in.Goal,
			StartedAt:    o.now(),
			Outcomes:     make(map[Phase]StageOutcome),
		},
	}
	r.logger = o.logger.With("run_id", r.run.ID)

	r.logger.Info("pipeline started", "business_type", in.BusinessType, "records", len(in.Dataset.Records))

	err := r.execute(ctx, in)
	r.run.FinishedAt = o.now()
	if err != nil {
		r.fail(err)
	} else {
		r.run.Success = true
		r.logger.Info("pipeline finished", "duration", r.run.FinishedAt.Sub(r.run.StartedAt))
	}
	r.run.State = r.state

	return r.run
}

// runner holds the mutable state of one run.
type runner struct {
	orch   *Orchestrator
	sink   ProgressFunc
	run    *Run
	logger *slog.Logger
	state  State
}

func (r *runner) execute(ctx context.Context, in Input) error {
	o := r.orch

	// Analysis.
	if err := r.enter(ctx, PhaseAnalyzing, analysisStart, "Analyzing sales data..."); err != nil {
		return err
	}
	analysis, err := o.analyzer.Summarize(in.Dataset)
	if err != nil {
		return err
	}
	r.run.Analysis = analysis
	r.run.AnalysisDigest = analysis.Digest
	r.finish(PhaseAnalyzing, analysisDone, "Sales analysis complete")

	// Planning.
	if err := r.enter(ctx, PhasePlanning, planningStart, "Creating research plan..."); err != nil {
		return err
	}
	planOutcome := o.planner.Plan(ctx, analysis.Digest, in.BusinessType, in.Goal)
	plan, err := planOutcome.Unwrap()
	if err != nil {
		return common.NewCollaboratorError(PhasePlanning.String(), err)
	}
	if len(plan.Tasks) == 0 {
		return common.NewCollaboratorError(PhasePlanning.String(), ErrNoTasks)
	}
	r.record(PhasePlanning, planOutcome.Kind, planOutcome.Reason)
	r.run.Plan = plan
	r.run.PlanDigest = o.planner.Digest(plan)
	r.finish(PhasePlanning, planningDone, fmt.Sprintf("Created %d research tasks", len(plan.Tasks)))

	// Research.
	if err := r.enter(ctx, PhaseResearching, researchStart, "Researching market intelligence..."); err != nil {
		return err
	}
	researchOutcome := o.researcher.ResearchAll(ctx, plan.Tasks, func(done, total int, query string) {
		if total <= 0 {
			return
		}
		r.notify(PhaseResearching, researchStart+float64(done)/float64(total)*researchBand,
			fmt.Sprintf("Searching: %s...", clip(query, 50)))
	})
	research, err := researchOutcome.Unwrap()
	if err != nil {
		return common.NewCollaboratorError(PhaseResearching.String(), err)
	}
	sources := research.Sources()
	if len(sources) == 0 {
		return common.NewCollaboratorError(PhaseResearching.String(), ErrNoSources)
	}
	r.record(PhaseResearching, researchOutcome.Kind, researchOutcome.Reason)
	r.run.Research = research
	r.run.ResearchDigest = o.researcher.Digest(research)
	r.run.Sources = advisory.DedupSources(sources)
	r.finish(PhaseResearching, researchDone, fmt.Sprintf("Found %d sources", len(sources)))

	// Verification.
	if err := r.enter(ctx, PhaseVerifying, verificationStart, "Verifying research quality..."); err != nil {
		return err
	}
	verifyOutcome := o.verifier.Verify(ctx, r.run.AnalysisDigest, r.run.ResearchDigest, in.BusinessType)
	verification, err := verifyOutcome.Unwrap()
	if err != nil {
		return common.NewCollaboratorError(PhaseVerifying.String(), err)
	}
	r.record(PhaseVerifying, verifyOutcome.Kind, verifyOutcome.Reason)
	r.run.Verification = verification
	r.run.VerificationDigest = o.verifier.Digest(verification)
	r.finish(PhaseVerifying, verificationDone,
		fmt.Sprintf("Verified %d recommendations", len(verification.Recommendations)))

	// Synthesis.
	if err := r.enter(ctx, PhaseSynthesizing, synthesisStart, "Generating final strategy..."); err != nil {
		return err
	}
	strategyOutcome := o.synthesizer.Synthesize(ctx, r.run.AnalysisDigest, r.run.ResearchDigest,
		r.run.VerificationDigest, in.BusinessType, in.Goal)
	strategy, err := strategyOutcome.Unwrap()
	if err != nil {
		return common.NewCollaboratorError(PhaseSynthesizing.String(), err)
	}
	r.record(PhaseSynthesizing, strategyOutcome.Kind, strategyOutcome.Reason)
	r.run.Strategy = strategy
	r.run.Report = o.synthesizer.Digest(strategy)
	r.finish(PhaseSynthesizing, synthesisDone, "Strategy generation complete")

	return r.state.transition(PhaseDone)
}

// enter checks for cancellation, moves to phase and sends the start
// notification.
func (r *runner) enter(ctx context.Context, phase Phase, progress float64, status string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("canceled before %s: %w", phase, err)
	}
	if err := r.state.transition(phase); err != nil {
		return err
	}
	r.logger.Debug("stage started", "stage", phase.String())
	r.notify(phase, progress, status)
	return nil
}

// finish marks phase complete and sends the success notification.
func (r *runner) finish(phase Phase, progress float64, status string) {
	r.state.complete(phase)
	r.logger.Info("stage complete", "stage", phase.String(), "status", status)
	r.notify(phase, progress, status)
}

func (r *runner) record(phase Phase, kind advisory.OutcomeKind, reason string) {
	r.run.Outcomes[phase] = StageOutcome{Kind: kind.String(), Reason: reason}
	if kind == advisory.KindFallback {
		r.logger.Warn("stage used fallback", "stage", phase.String(), "reason", reason)
	}
}

func (r *runner) notify(phase Phase, progress float64, status string) {
	r.state.Progress.Advance(progress)
	r.state.Status = status
	if r.sink != nil {
		r.sink(phase.String(), r.state.Progress.Value(), status)
	}
}

// fail records err and sends the single failure notification at the last
// reached stage and progress.
func (r *runner) fail(err error) {
	failed := r.state.Phase
	if failed == PhaseIdle {
		failed = PhaseAnalyzing
	}

	r.run.Err = err
	r.run.Error = err.Error()
	r.run.FailedStage = failed
	r.state.Status = "Error: " + err.Error()
	if terr := r.state.transition(PhaseFailed); terr != nil {
		r.logger.Error("unexpected transition", "error", terr)
	}

	r.logger.Error("pipeline failed", "stage", failed.String(), "error", err)
	if r.sink != nil {
		r.sink(failed.String(), r.state.Progress.Value(), r.state.Status)
	}
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
