package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shopkeep/internal/advisory"
	"github.com/Veraticus/shopkeep/internal/analytics"
	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/model"
)

type fakePlanner struct {
	outcome advisory.Outcome[advisory.Plan]
	hook    func()
	digest  string
}

func (f *fakePlanner) Plan(context.Context, string, string, string) advisory.Outcome[advisory.Plan] {
	if f.hook != nil {
		f.hook()
	}
	return f.outcome
}

func (f *fakePlanner) Digest(advisory.Plan) string { return f.digest }

type fakeResearcher struct {
	outcome  advisory.Outcome[advisory.Research]
	gotTasks []advisory.ResearchTask
}

func (f *fakeResearcher) ResearchAll(_ context.Context, tasks []advisory.ResearchTask, onSub advisory.SubProgressFunc) advisory.Outcome[advisory.Research] {
	f.gotTasks = tasks
	for i, task := range tasks {
		onSub(i+1, len(tasks), task.Query)
	}
	return f.outcome
}

func (f *fakeResearcher) Digest(advisory.Research) string { return "RESEARCH DIGEST" }

type fakeVerifier struct {
	outcome      advisory.Outcome[advisory.Verification]
	gotAnalysis  string
	gotResearch  string
	gotBusiness  string
	verifyCalled bool
}

func (f *fakeVerifier) Verify(_ context.Context, analysis, research, business string) advisory.Outcome[advisory.Verification] {
	f.verifyCalled = true
	f.gotAnalysis, f.gotResearch, f.gotBusiness = analysis, research, business
	return f.outcome
}

func (f *fakeVerifier) Digest(advisory.Verification) string { return "VERIFICATION DIGEST" }

type fakeSynthesizer struct {
	outcome         advisory.Outcome[advisory.Strategy]
	gotVerification string
	called          bool
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _, _, verification, _, _ string) advisory.Outcome[advisory.Strategy] {
	f.called = true
	f.gotVerification = verification
	return f.outcome
}

func (f *fakeSynthesizer) Digest(s advisory.Strategy) string { return "# Report\n" + s.ExecutiveSummary }

type stages struct {
	planner     *fakePlanner
	researcher  *fakeResearcher
	verifier    *fakeVerifier
	synthesizer *fakeSynthesizer
}

func happyStages() stages {
	tasks := []advisory.ResearchTask{
		{ID: 1, Priority: advisory.PriorityHigh, Query: "rice prices"},
		{ID: 2, Priority: advisory.PriorityLow, Query: "lentil suppliers"},
	}
	research := advisory.Research{Results: []advisory.TaskResult{
		{TaskID: 1, Status: advisory.StatusSuccess, Sources: []advisory.Source{
			{URL: "https://a.example", Snippet: "rice"},
			{URL: "https://b.example", Snippet: "more rice"},
		}},
		{TaskID: 2, Status: advisory.StatusSuccess, Sources: []advisory.Source{
			{URL: "https://a.example", Snippet: "duplicate"},
		}},
	}}

	return stages{
		planner:    &fakePlanner{outcome: advisory.OK(advisory.NewPlan(tasks)), digest: "PLAN DIGEST"},
		researcher: &fakeResearcher{outcome: advisory.OK(research)},
		verifier: &fakeVerifier{outcome: advisory.Fallback(advisory.Verification{
			Recommendations: []advisory.Recommendation{{Text: "raise prices", Confidence: "high"}},
		}, "quota exceeded")},
		synthesizer: &fakeSynthesizer{outcome: advisory.OK(advisory.Strategy{ExecutiveSummary: "Grow."})},
	}
}

func newOrchestrator(t *testing.T, s stages) *Orchestrator {
	t.Helper()
	engine, err := analytics.NewEngine()
	require.NoError(t, err)

	o, err := New(Config{
		Analyzer:    engine,
		Planner:     s.planner,
		Researcher:  s.researcher,
		Verifier:    s.verifier,
		Synthesizer: s.synthesizer,
		Now:         func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return o
}

func dataset() model.Dataset {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []model.SalesRecord
	for i, qty := range []int{10, 10, 20, 20} {
		records = append(records, model.SalesRecord{
			Date:           start.AddDate(0, 0, 7*i),
			ProductName:    "Rice",
			Category:       "Grains",
			QuantitySold:   qty,
			UnitPrice:      decimal.NewFromInt(100),
			UnitCost:       decimal.NewFromInt(60),
			StockRemaining: 40,
			HasStock:       true,
		})
	}
	return model.Dataset{Records: records, Columns: model.Columns{Date: true, Category: true, Stock: true}}
}

type notification struct {
	stage    string
	status   string
	progress float64
}

func recorder(out *[]notification) ProgressFunc {
	return func(stage string, progress float64, status string) {
		*out = append(*out, notification{stage: stage, progress: progress, status: status})
	}
}

func progressValues(ns []notification) []float64 {
	out := make([]float64, len(ns))
	for i, n := range ns {
		out[i] = n.progress
	}
	return out
}

func TestOrchestrator_SuccessfulRun(t *testing.T) {
	s := happyStages()
	o := newOrchestrator(t, s)

	var notes []notification
	run := o.Run(context.Background(), Input{
		Dataset:      dataset(),
		BusinessType: "Grocery Store",
		Goal:         "grow",
		Progress:     recorder(&notes),
	})

	require.True(t, run.Success, run.Error)
	require.NoError(t, run.Err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, PhaseDone, run.State.Phase)
	assert.Equal(t, []Phase{PhaseAnalyzing, PhasePlanning, PhaseResearching, PhaseVerifying, PhaseSynthesizing}, run.Completed())

	want := []float64{0.05, 0.20, 0.25, 0.35, 0.40, 0.525, 0.65, 0.65, 0.70, 0.80, 0.85, 1.0}
	got := progressValues(notes)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "notification %d", i)
	}
	for i := 1; i < len(notes); i++ {
		assert.GreaterOrEqual(t, notes[i].progress, notes[i-1].progress)
	}
	last := notes[len(notes)-1]
	assert.Equal(t, 1.0, last.progress)
	assert.Equal(t, "synthesis", last.stage)
	assert.Equal(t, "Searching: rice prices...", notes[5].status)
	assert.Equal(t, "Created 2 research tasks", notes[3].status)
	assert.Equal(t, "Found 3 sources", notes[7].status)

	assert.Contains(t, run.AnalysisDigest, "=== BUSINESS ANALYSIS SUMMARY ===")
	assert.Equal(t, "PLAN DIGEST", run.PlanDigest)
	assert.Equal(t, run.AnalysisDigest, s.verifier.gotAnalysis)
	assert.Equal(t, "RESEARCH DIGEST", s.verifier.gotResearch)
	assert.Equal(t, "Grocery Store", s.verifier.gotBusiness)
	assert.Equal(t, "VERIFICATION DIGEST", s.synthesizer.gotVerification)
	assert.Equal(t, "# Report\nGrow.", run.Report)
	assert.Len(t, s.researcher.gotTasks, 2)
	assert.Len(t, run.Sources, 2)

	assert.Equal(t, StageOutcome{Kind: "ok"}, run.Outcomes[PhasePlanning])
	assert.Equal(t, StageOutcome{Kind: "fallback", Reason: "quota exceeded"}, run.Outcomes[PhaseVerifying])

	data, err := json.Marshal(run)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"verification":{"kind":"fallback","reason":"quota exceeded"}`)
	assert.NotContains(t, string(data), "failed_stage")
}

func TestOrchestrator_VerifierFailureKeepsPartialResults(t *testing.T) {
	s := happyStages()
	s.verifier.outcome = advisory.Failed[advisory.Verification](errors.New("model overloaded"))
	o := newOrchestrator(t, s)

	var notes []notification
	run := o.Run(context.Background(), Input{Dataset: dataset(), BusinessType: "Pharmacy", Progress: recorder(&notes)})

	require.False(t, run.Success)
	assert.True(t, run.State.AnalysisComplete)
	assert.True(t, run.State.PlanningComplete)
	assert.True(t, run.State.ResearchComplete)
	assert.False(t, run.State.VerificationComplete)
	assert.False(t, run.State.StrategyComplete)
	assert.Equal(t, PhaseFailed, run.State.Phase)
	assert.Equal(t, PhaseVerifying, run.FailedStage)

	assert.Len(t, run.Plan.Tasks, 2)
	assert.Len(t, run.Research.Results, 2)
	assert.Empty(t, run.Report)
	assert.False(t, s.synthesizer.called)

	assert.ErrorIs(t, run.Err, common.ErrCollaborator)
	var collabErr *common.CollaboratorError
	require.ErrorAs(t, run.Err, &collabErr)
	assert.Equal(t, "verification", collabErr.Stage)
	assert.Contains(t, run.Error, "model overloaded")

	failure := notes[len(notes)-1]
	assert.Equal(t, "verification", failure.stage)
	assert.InDelta(t, 0.70, failure.progress, 1e-12)
	assert.Equal(t, "Error: "+run.Err.Error(), failure.status)
	assert.Equal(t, failure.status, run.State.Status)

	failures := 0
	for _, n := range notes {
		if len(n.status) >= 6 && n.status[:6] == "Error:" {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestOrchestrator_ContractViolations(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*stages)
		wantStage Phase
		wantErr   error
	}{
		{
			name: "zero tasks",
			mutate: func(s *stages) {
				s.planner.outcome = advisory.OK(advisory.Plan{})
			},
			wantStage: PhasePlanning,
			wantErr:   ErrNoTasks,
		},
		{
			name: "zero sources",
			mutate: func(s *stages) {
				s.researcher.outcome = advisory.OK(advisory.Research{Results: []advisory.TaskResult{
					{TaskID: 1, Status: advisory.StatusError, Sources: []advisory.Source{}},
				}})
			},
			wantStage: PhaseResearching,
			wantErr:   ErrNoSources,
		},
		{
			name: "planner failed",
			mutate: func(s *stages) {
				s.planner.outcome = advisory.Failed[advisory.Plan](errors.New("no key"))
			},
			wantStage: PhasePlanning,
			wantErr:   common.ErrCollaborator,
		},
		{
			name: "synthesizer failed",
			mutate: func(s *stages) {
				s.synthesizer.outcome = advisory.Failed[advisory.Strategy](errors.New("bad json"))
			},
			wantStage: PhaseSynthesizing,
			wantErr:   common.ErrCollaborator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := happyStages()
			tt.mutate(&s)

			run := newOrchestrator(t, s).Run(context.Background(), Input{Dataset: dataset(), BusinessType: "Other"})
			require.False(t, run.Success)
			assert.ErrorIs(t, run.Err, tt.wantErr)
			assert.Equal(t, tt.wantStage, run.FailedStage)
			assert.Less(t, run.State.Progress.Value(), 1.0)
		})
	}
}

func TestOrchestrator_ValidationErrorIsVerbatim(t *testing.T) {
	s := happyStages()
	o := newOrchestrator(t, s)

	bad := dataset()
	bad.Records[1].QuantitySold = -3

	var notes []notification
	run := o.Run(context.Background(), Input{Dataset: bad, Progress: recorder(&notes)})
	require.False(t, run.Success)
	assert.ErrorIs(t, run.Err, common.ErrValidation)
	assert.NotErrorIs(t, run.Err, common.ErrCollaborator)
	assert.Equal(t, PhaseAnalyzing, run.FailedStage)
	assert.Empty(t, run.Completed())

	require.Len(t, notes, 2)
	assert.Equal(t, "Error: "+run.Err.Error(), notes[1].status)
	assert.InDelta(t, 0.05, notes[1].progress, 1e-12)
}

func TestOrchestrator_Cancellation(t *testing.T) {
	t.Run("before the first stage", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		run := newOrchestrator(t, happyStages()).Run(ctx, Input{Dataset: dataset()})
		require.False(t, run.Success)
		assert.ErrorIs(t, run.Err, context.Canceled)
		assert.Equal(t, PhaseAnalyzing, run.FailedStage)
		assert.False(t, run.StoppedAfterStage())
		assert.Equal(t, "failed during analysis", run.FailureSummary())
		assert.Zero(t, run.State.Progress.Value())
	})

	t.Run("at a stage boundary", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := happyStages()
		s.planner.hook = cancel

		run := newOrchestrator(t, s).Run(ctx, Input{Dataset: dataset()})
		require.False(t, run.Success)
		assert.ErrorIs(t, run.Err, context.Canceled)
		assert.True(t, run.State.PlanningComplete)
		assert.False(t, run.State.ResearchComplete)
		assert.Equal(t, PhasePlanning, run.FailedStage)
		assert.True(t, run.StoppedAfterStage())
		assert.Equal(t, "interrupted after planning", run.FailureSummary())
		assert.Nil(t, s.researcher.gotTasks)
	})
}

func TestOrchestrator_IndependentRuns(t *testing.T) {
	o := newOrchestrator(t, happyStages())

	first := o.Run(context.Background(), Input{Dataset: dataset()})
	second := o.Run(context.Background(), Input{Dataset: dataset()})

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	s := happyStages()
	engine, err := analytics.NewEngine()
	require.NoError(t, err)

	_, err = New(Config{Analyzer: engine, Planner: s.planner, Researcher: s.researcher, Verifier: s.verifier})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = New(Config{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
