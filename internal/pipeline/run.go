package pipeline

import (
	"fmt"
	"time"

	"github.com/Veraticus/shopkeep/internal/advisory"
	"github.com/Veraticus/shopkeep/internal/model"
)

// StageOutcome records how an advisory stage produced its result.
type StageOutcome struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason,omitempty"`
}

// Run is the result of one pipeline execution. Callers must treat it as
// read-only.
type Run struct {
	StartedAt          time.Time              `json:"started_at"`
	FinishedAt         time.Time              `json:"finished_at"`
	Err                error                  `json:"-"`
	Outcomes           map[Phase]StageOutcome `json:"outcomes"`
	ID                 string                 `json:"id"`
	BusinessType       string                 `json:"business_type"`
	Goal               string                 `json:"goal,omitempty"`
	Error              string                 `json:"error,omitempty"`
	AnalysisDigest     string                 `json:"analysis_digest,omitempty"`
	PlanDigest         string                 `json:"plan_digest,omitempty"`
	ResearchDigest     string                 `json:"research_digest,omitempty"`
	VerificationDigest string                 `json:"verification_digest,omitempty"`
	Report             string                 `json:"report,omitempty"`
	Sources            []advisory.Source      `json:"sources"`
	Plan               advisory.Plan          `json:"plan"`
	Research           advisory.Research      `json:"research"`
	Verification       advisory.Verification  `json:"verification"`
	Strategy           advisory.Strategy      `json:"strategy"`
	Analysis           model.AnalysisResult   `json:"analysis"`
	State              State                  `json:"state"`
	FailedStage        Phase                  `json:"failed_stage,omitempty"`
	Success            bool                   `json:"success"`
}

// Completed lists the stages that finished, in order.
func (r *Run) Completed() []Phase {
	return r.State.Completed()
}

// StoppedAfterStage reports whether the run halted at a stage boundary, with
// FailedStage already complete.
func (r *Run) StoppedAfterStage() bool {
	if r.Success {
		return false
	}
	for _, phase := range r.Completed() {
		if phase == r.FailedStage {
			return true
		}
	}
	return false
}

// FailureSummary describes where a failed run stopped.
func (r *Run) FailureSummary() string {
	if r.Success {
		return ""
	}
	if r.StoppedAfterStage() {
		return fmt.Sprintf("interrupted after %s", r.FailedStage)
	}
	return fmt.Sprintf("failed during %s", r.FailedStage)
}
