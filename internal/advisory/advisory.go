package advisory

import (
	"context"
	"time"
)

// SubProgressFunc is called before each research task with the 1-based task
// number, the task count and the task's query.
type SubProgressFunc func(done, total int, query string)

// Planner turns the analysis digest into research tasks.
type Planner interface {
	Plan(ctx context.Context, analysisDigest, businessType, goal string) Outcome[Plan]
	Digest(plan Plan) string
}

// Researcher executes research tasks.
type Researcher interface {
	ResearchAll(ctx context.Context, tasks []ResearchTask, onSubProgress SubProgressFunc) Outcome[Research]
	Digest(research Research) string
}

// Verifier checks research against the analysis.
type Verifier interface {
	Verify(ctx context.Context, analysisDigest, researchDigest, businessType string) Outcome[Verification]
	Digest(verification Verification) string
}

// Synthesizer produces the final strategy. Its digest is the markdown report.
type Synthesizer interface {
	Synthesize(ctx context.Context, analysisDigest, researchDigest, verificationDigest, businessType, goal string) Outcome[Strategy]
	Digest(strategy Strategy) string
}

// DefaultGoal is used when no goal is given.
const DefaultGoal = "Maximize profit and growth while reducing losses"

func goalOrDefault(goal string) string {
	if goal == "" {
		return DefaultGoal
	}
	return goal
}

// Clock returns the current time. Report rendering takes one so output is
// reproducible in tests.
type Clock func() time.Time
