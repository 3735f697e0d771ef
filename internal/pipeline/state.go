// Package pipeline sequences sales analysis and the advisory stages into a
// single run.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for a phase change the state machine
// does not allow.
var ErrInvalidTransition = errors.New("invalid pipeline transition")

// Phase is a pipeline state machine position.
type Phase int

// Phases in run order. Failed is reachable from any non-terminal phase.
const (
	PhaseIdle Phase = iota
	PhaseAnalyzing
	PhasePlanning
	PhaseResearching
	PhaseVerifying
	PhaseSynthesizing
	PhaseDone
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:         "idle",
	PhaseAnalyzing:    "analysis",
	PhasePlanning:     "planning",
	PhaseResearching:  "research",
	PhaseVerifying:    "verification",
	PhaseSynthesizing: "synthesis",
	PhaseDone:         "done",
	PhaseFailed:       "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Progress is a completion fraction in [0, 1] that never decreases.
type Progress struct {
	value float64
}

// Value returns the current fraction.
func (p Progress) Value() float64 {
	return p.value
}

// Advance moves progress to v, clamped to [0, 1]. Values below the current
// one are ignored; the result reports whether progress moved.
func (p *Progress) Advance(v float64) bool {
	switch {
	case v > 1:
		v = 1
	case v < 0:
		v = 0
	}
	if v <= p.value {
		return false
	}
	p.value = v
	return true
}

// MarshalJSON encodes progress as a number.
func (p Progress) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// State is the observable status of a run.
type State struct {
	Status               string   `json:"status"`
	Progress             Progress `json:"progress"`
	Phase                Phase    `json:"phase"`
	AnalysisComplete     bool     `json:"analysis_complete"`
	PlanningComplete     bool     `json:"planning_complete"`
	ResearchComplete     bool     `json:"research_complete"`
	VerificationComplete bool     `json:"verification_complete"`
	StrategyComplete     bool     `json:"strategy_complete"`
}

// Completed lists the phases whose completion flag is set, in run order.
func (s State) Completed() []Phase {
	flags := []struct {
		phase Phase
		done  bool
	}{
		{PhaseAnalyzing, s.AnalysisComplete},
		{PhasePlanning, s.PlanningComplete},
		{PhaseResearching, s.ResearchComplete},
		{PhaseVerifying, s.VerificationComplete},
		{PhaseSynthesizing, s.StrategyComplete},
	}

	var out []Phase
	for _, f := range flags {
		if f.done {
			out = append(out, f.phase)
		}
	}
	return out
}

// transition moves to the next phase or to Failed.
func (s *State) transition(to Phase) error {
	if s.Phase.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s.Phase)
	}
	if to != PhaseFailed && to != s.Phase+1 {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, s.Phase, to)
	}
	s.Phase = to
	return nil
}

// complete sets the completion flag for phase.
func (s *State) complete(phase Phase) {
	switch phase {
	case PhaseAnalyzing:
		s.AnalysisComplete = true
	case PhasePlanning:
		s.PlanningComplete = true
	case PhaseResearching:
		s.ResearchComplete = true
	case PhaseVerifying:
		s.VerificationComplete = true
	case PhaseSynthesizing:
		s.StrategyComplete = true
	}
}
