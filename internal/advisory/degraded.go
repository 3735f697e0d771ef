package advisory

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/shopkeep/internal/common"
)

//go:embed degraded.yaml
var defaultPayloadYAML []byte

// OfflineReason is the fallback reason reported by the degraded adapters.
const OfflineReason = "offline mode: using built-in advisory payload"

// Payload is the canned advisory content used when a live collaborator is
// unavailable.
type Payload struct {
	Tasks        []ResearchTask `yaml:"tasks"`
	Verification Verification   `yaml:"verification"`
	Strategy     Strategy       `yaml:"strategy"`
}

// DefaultPayload returns the embedded payload.
func DefaultPayload() (*Payload, error) {
	return parsePayload(defaultPayloadYAML)
}

// LoadPayload reads a payload from a YAML file. An empty path returns the
// embedded payload.
func LoadPayload(path string) (*Payload, error) {
	if path == "" {
		return DefaultPayload()
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, fmt.Errorf("failed to read degraded payload: %w", err)
	}

	payload, err := parsePayload(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return payload, nil
}

func parsePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: degraded payload: %w", common.ErrInvalidConfig, err)
	}
	if len(p.Tasks) == 0 {
		return nil, fmt.Errorf("%w: degraded payload has no tasks", common.ErrInvalidConfig)
	}
	for _, task := range p.Tasks {
		if _, err := substitute(task.Query, ""); err != nil {
			return nil, fmt.Errorf("%w: task %d query: %w", common.ErrInvalidConfig, task.ID, err)
		}
		if _, err := substitute(task.ExpectedInsight, ""); err != nil {
			return nil, fmt.Errorf("%w: task %d insight: %w", common.ErrInvalidConfig, task.ID, err)
		}
	}
	p.Verification.normalize()
	p.Strategy.normalize()
	return &p, nil
}

// PlanFor returns the payload's tasks for businessType, prioritised.
func (p *Payload) PlanFor(businessType string) (Plan, error) {
	tasks := make([]ResearchTask, len(p.Tasks))
	for i, task := range p.Tasks {
		query, err := substitute(task.Query, businessType)
		if err != nil {
			return Plan{}, err
		}
		insight, err := substitute(task.ExpectedInsight, businessType)
		if err != nil {
			return Plan{}, err
		}
		task.Query = query
		task.ExpectedInsight = insight
		tasks[i] = task
	}
	return NewPlan(tasks), nil
}

func substitute(text, businessType string) (string, error) {
	tmpl, err := template.New("payload").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ BusinessType string }{businessType}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NewPlan sorts tasks by priority, keeping the given order within a
// priority, and counts them.
func NewPlan(tasks []ResearchTask) Plan {
	sorted := make([]ResearchTask, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority.Rank() < sorted[j].Priority.Rank()
	})

	plan := Plan{Tasks: sorted}
	for _, task := range sorted {
		switch task.Priority.Rank() {
		case 0:
			plan.HighPriority++
		case 1:
			plan.MediumPriority++
		default:
			plan.LowPriority++
		}
	}
	return plan
}

type planDigest struct{}

func (planDigest) Digest(plan Plan) string { return PlanDigest(plan) }

type verificationDigest struct{}

func (verificationDigest) Digest(v Verification) string { return VerificationDigest(v) }

type reportDigest struct {
	now Clock
}

func (r reportDigest) Digest(s Strategy) string {
	now := r.now
	if now == nil {
		now = time.Now
	}
	return RenderReport(s, now())
}

// DegradedPlanner returns the payload's tasks.
type DegradedPlanner struct {
	planDigest
	payload *Payload
}

// Plan implements Planner.
func (d *DegradedPlanner) Plan(_ context.Context, _, businessType, _ string) Outcome[Plan] {
	plan, err := d.payload.PlanFor(businessType)
	if err != nil {
		return Failed[Plan](err)
	}
	return Fallback(plan, OfflineReason)
}

// DegradedVerifier returns the payload's verification.
type DegradedVerifier struct {
	verificationDigest
	payload *Payload
}

// Verify implements Verifier.
func (d *DegradedVerifier) Verify(_ context.Context, _, _, _ string) Outcome[Verification] {
	return Fallback(d.payload.Verification, OfflineReason)
}

// DegradedSynthesizer returns the payload's strategy.
type DegradedSynthesizer struct {
	reportDigest
	payload *Payload
}

// Synthesize implements Synthesizer.
func (d *DegradedSynthesizer) Synthesize(_ context.Context, _, _, _, _, _ string) Outcome[Strategy] {
	return Fallback(d.payload.Strategy, OfflineReason)
}

// DegradedAdvisor bundles the offline planner, verifier and synthesizer.
type DegradedAdvisor struct {
	Planner     *DegradedPlanner
	Verifier    *DegradedVerifier
	Synthesizer *DegradedSynthesizer
}

// NewDegradedAdvisor creates offline adapters over payload. A nil clock uses
// time.Now.
func NewDegradedAdvisor(payload *Payload, now Clock) *DegradedAdvisor {
	return &DegradedAdvisor{
		Planner:     &DegradedPlanner{payload: payload},
		Verifier:    &DegradedVerifier{payload: payload},
		Synthesizer: &DegradedSynthesizer{payload: payload, reportDigest: reportDigest{now: now}},
	}
}
