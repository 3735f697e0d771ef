package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/llm"
)

// DefaultCurrency is the currency named in the strategy prompt.
const DefaultCurrency = "Indian Rupees"

// Option configures an LLM-backed stage.
type Option func(*llmStage)

// WithFallback enables degraded mode: client or parse failures return the
// payload as a Fallback outcome instead of failing.
func WithFallback(payload *Payload) Option {
	return func(s *llmStage) {
		s.fallback = payload
	}
}

// WithLogger sets the stage logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *llmStage) {
		s.logger = logger
	}
}

// WithCurrency sets the currency the strategy prompt asks for.
func WithCurrency(currency string) Option {
	return func(s *llmStage) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithClock sets the clock used to date the report.
func WithClock(now Clock) Option {
	return func(s *llmStage) {
		s.now = now
	}
}

// llmStage holds what every LLM-backed stage shares.
type llmStage struct {
	client   llm.Client
	prompts  *promptBuilder
	fallback *Payload
	logger   *slog.Logger
	now      Clock
	currency string
	stage    string
}

func newLLMStage(stage string, client llm.Client, opts []Option) (llmStage, error) {
	if client == nil {
		return llmStage{}, fmt.Errorf("%w: %s requires an LLM client", common.ErrMissingConfig, stage)
	}

	prompts, err := newPromptBuilder()
	if err != nil {
		return llmStage{}, err
	}

	s := llmStage{
		client:   client,
		prompts:  prompts,
		currency: DefaultCurrency,
		stage:    stage,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = common.OrDefault(s.logger).With("stage", stage)

	return s, nil
}

// complete renders the named prompt, sends it and decodes the JSON reply into v.
func (s *llmStage) complete(ctx context.Context, system, prompt string, data promptData, v any) error {
	text, err := s.prompts.build(prompt, data)
	if err != nil {
		return err
	}

	resp, err := s.client.Complete(ctx, llm.Request{System: system, Prompt: text})
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}

	s.logger.Debug("received completion", "model", resp.Model, "length", len(resp.Content))

	if err := llm.DecodeJSON(resp.Content, v); err != nil {
		return fmt.Errorf("invalid %s reply: %w", s.stage, err)
	}
	return nil
}

// degrade decides between a fallback and a failure after err.
func degrade[T any](ctx context.Context, s *llmStage, err error, fallback func(*Payload) (T, error)) Outcome[T] {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Failed[T](err)
	}
	if s.fallback == nil {
		return Failed[T](err)
	}

	v, ferr := fallback(s.fallback)
	if ferr != nil {
		return Failed[T](fmt.Errorf("%w (fallback also failed: %w)", err, ferr))
	}

	s.logger.Warn("using degraded payload", "error", err)
	return Fallback(v, err.Error())
}

// LLMPlanner asks an LLM for research tasks.
type LLMPlanner struct {
	planDigest
	llmStage
}

// NewLLMPlanner creates a planner backed by client.
func NewLLMPlanner(client llm.Client, opts ...Option) (*LLMPlanner, error) {
	s, err := newLLMStage("planning", client, opts)
	if err != nil {
		return nil, err
	}
	return &LLMPlanner{llmStage: s}, nil
}

// Plan implements Planner.
func (p *LLMPlanner) Plan(ctx context.Context, analysisDigest, businessType, goal string) Outcome[Plan] {
	var tasks []ResearchTask
	err := p.complete(ctx, plannerSystem, "plan", promptData{
		BusinessType:   businessType,
		Goal:           goalOrDefault(goal),
		AnalysisDigest: analysisDigest,
	}, &tasks)
	if err == nil && len(tasks) == 0 {
		err = errors.New("planner returned no tasks")
	}
	if err != nil {
		return degrade(ctx, &p.llmStage, err, func(payload *Payload) (Plan, error) {
			return payload.PlanFor(businessType)
		})
	}

	for i := range tasks {
		if tasks[i].ID == 0 {
			tasks[i].ID = i + 1
		}
	}

	plan := NewPlan(tasks)
	p.logger.Info("research plan created", "tasks", len(plan.Tasks), "high", plan.HighPriority)
	return OK(plan)
}

// LLMVerifier asks an LLM to critique the research.
type LLMVerifier struct {
	verificationDigest
	llmStage
}

// NewLLMVerifier creates a verifier backed by client.
func NewLLMVerifier(client llm.Client, opts ...Option) (*LLMVerifier, error) {
	s, err := newLLMStage("verification", client, opts)
	if err != nil {
		return nil, err
	}
	return &LLMVerifier{llmStage: s}, nil
}

// Verify implements Verifier.
func (v *LLMVerifier) Verify(ctx context.Context, analysisDigest, researchDigest, businessType string) Outcome[Verification] {
	var out Verification
	err := v.complete(ctx, verifierSystem, "verify", promptData{
		BusinessType:   businessType,
		AnalysisDigest: analysisDigest,
		ResearchDigest: researchDigest,
	}, &out)
	if err == nil && len(out.Recommendations) == 0 {
		err = errors.New("verifier returned no recommendations")
	}
	if err != nil {
		return degrade(ctx, &v.llmStage, err, func(payload *Payload) (Verification, error) {
			return payload.Verification, nil
		})
	}

	out.normalize()
	v.logger.Info("research verified",
		"recommendations", len(out.Recommendations),
		"high_confidence", len(out.HighConfidence()),
		"conflicts", len(out.Conflicts))
	return OK(out)
}

// LLMSynthesizer asks an LLM for the final strategy.
type LLMSynthesizer struct {
	llmStage
}

// NewLLMSynthesizer creates a synthesizer backed by client.
func NewLLMSynthesizer(client llm.Client, opts ...Option) (*LLMSynthesizer, error) {
	s, err := newLLMStage("synthesis", client, opts)
	if err != nil {
		return nil, err
	}
	return &LLMSynthesizer{llmStage: s}, nil
}

// Synthesize implements Synthesizer.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, analysisDigest, researchDigest, verificationDigest, businessType, goal string) Outcome[Strategy] {
	var out Strategy
	err := s.complete(ctx, synthesizerSystem, "strategy", promptData{
		BusinessType:       businessType,
		Goal:               goalOrDefault(goal),
		AnalysisDigest:     analysisDigest,
		ResearchDigest:     researchDigest,
		VerificationDigest: verificationDigest,
		Currency:           s.currency,
		MaxWeeks:           MaxPlanWeeks,
	}, &out)
	if err == nil && out.ExecutiveSummary == "" {
		err = errors.New("synthesizer returned no executive summary")
	}
	if err != nil {
		return degrade(ctx, &s.llmStage, err, func(payload *Payload) (Strategy, error) {
			return payload.Strategy, nil
		})
	}

	if len(out.WeeklyPlan) > MaxPlanWeeks {
		s.logger.Debug("truncating weekly plan", "weeks", len(out.WeeklyPlan))
	}
	out.normalize()
	return OK(out)
}

// Digest renders the markdown report.
func (s *LLMSynthesizer) Digest(strategy Strategy) string {
	return reportDigest{now: s.now}.Digest(strategy)
}
