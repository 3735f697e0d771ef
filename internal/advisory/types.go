package advisory

import "strings"

// Priority ranks a research task.
type Priority string

// Task priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high first. Unknown values rank with low.
func (p Priority) Rank() int {
	switch Priority(strings.ToLower(string(p))) {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Task types the planner is asked to produce.
const (
	TaskCompetitorPricing = "competitor_pricing"
	TaskMarketTrend       = "market_trend"
	TaskSeasonalDemand    = "seasonal_demand"
	TaskBestPractices     = "best_practices"
	TaskSupplierResearch  = "supplier_research"
)

// ResearchTask is one web research query proposed by the planner.
type ResearchTask struct {
	Type            string   `json:"task_type" yaml:"task_type"`
	Priority        Priority `json:"priority" yaml:"priority"`
	Query           string   `json:"search_query" yaml:"search_query"`
	TargetProduct   string   `json:"target_product" yaml:"target_product"`
	ExpectedInsight string   `json:"expected_insight" yaml:"expected_insight"`
	ID              int      `json:"task_id" yaml:"task_id"`
}

// Plan is the prioritised task list with per-priority counts.
type Plan struct {
	Tasks          []ResearchTask `json:"tasks"`
	HighPriority   int            `json:"high_priority"`
	MediumPriority int            `json:"medium_priority"`
	LowPriority    int            `json:"low_priority"`
}

// Task statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Source is a web page collected for a task.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Query   string  `json:"query"`
	Score   float64 `json:"score"`
	TaskID  int     `json:"task_id"`
}

// TaskResult is the outcome of researching one task.
type TaskResult struct {
	Err     error    `json:"-"`
	Type    string   `json:"task_type,omitempty"`
	Query   string   `json:"query"`
	Status  string   `json:"status"`
	Answer  string   `json:"answer,omitempty"`
	Error   string   `json:"error,omitempty"`
	Sources []Source `json:"sources"`
	TaskID  int      `json:"task_id"`
}

// Research collects every task result.
type Research struct {
	Results []TaskResult `json:"results"`
}

// Sources returns all sources across tasks in task order.
func (r Research) Sources() []Source {
	var out []Source
	for _, res := range r.Results {
		out = append(out, res.Sources...)
	}
	return out
}

// Successful counts tasks with status success.
func (r Research) Successful() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// Failed counts tasks with status error.
func (r Research) Failed() int {
	return len(r.Results) - r.Successful()
}

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Recommendation is a verified, evidence-backed suggestion.
type Recommendation struct {
	Text         string `json:"recommendation" yaml:"recommendation"`
	Confidence   string `json:"confidence" yaml:"confidence"`
	Evidence     string `json:"evidence" yaml:"evidence"`
	Impact       string `json:"potential_impact" yaml:"potential_impact"`
	SourcesCount int    `json:"sources_count" yaml:"sources_count"`
}

// Conflict is contradicting information found in research.
type Conflict struct {
	Issue      string   `json:"issue" yaml:"issue"`
	Resolution string   `json:"resolution" yaml:"resolution"`
	Sources    []string `json:"sources_involved" yaml:"sources_involved"`
}

// Uncertainty is an area the evidence does not settle.
type Uncertainty struct {
	Topic           string `json:"topic" yaml:"topic"`
	Reason          string `json:"reason" yaml:"reason"`
	SuggestedAction string `json:"suggested_action" yaml:"suggested_action"`
}

// Verification is the critic's assessment of the research.
type Verification struct {
	OverallConfidence string           `json:"overall_confidence" yaml:"overall_confidence"`
	Recommendations   []Recommendation `json:"verified_recommendations" yaml:"verified_recommendations"`
	Conflicts         []Conflict       `json:"conflicts_found" yaml:"conflicts_found"`
	Uncertainties     []Uncertainty    `json:"uncertainties" yaml:"uncertainties"`
	KeyInsights       []string         `json:"key_insights" yaml:"key_insights"`
	DataQualityScore  int              `json:"data_quality_score" yaml:"data_quality_score"`
}

// HighConfidence returns the recommendations with high confidence.
func (v Verification) HighConfidence() []Recommendation {
	var out []Recommendation
	for _, rec := range v.Recommendations {
		if strings.EqualFold(rec.Confidence, ConfidenceHigh) {
			out = append(out, rec)
		}
	}
	return out
}

// normalize clamps the quality score to 1-10 and defaults the confidence.
func (v *Verification) normalize() {
	switch {
	case v.DataQualityScore < 1:
		v.DataQualityScore = 1
	case v.DataQualityScore > 10:
		v.DataQualityScore = 10
	}
	if v.OverallConfidence == "" {
		v.OverallConfidence = ConfidenceMedium
	}
}

// Opportunity is a growth lever in the strategy.
type Opportunity struct {
	Description   string `json:"opportunity" yaml:"opportunity"`
	PotentialGain string `json:"potential_gain" yaml:"potential_gain"`
	Priority      string `json:"priority" yaml:"priority"`
}

// Action is an immediate step in the strategy.
type Action struct {
	Description     string `json:"action" yaml:"action"`
	Timeline        string `json:"timeline" yaml:"timeline"`
	ExpectedOutcome string `json:"expected_outcome" yaml:"expected_outcome"`
	Resources       string `json:"resources_needed" yaml:"resources_needed"`
}

// WeekPlan is one week of the action plan.
type WeekPlan struct {
	FocusArea      string   `json:"focus_area" yaml:"focus_area"`
	SuccessMetrics string   `json:"success_metrics" yaml:"success_metrics"`
	Tasks          []string `json:"tasks" yaml:"tasks"`
	Week           int      `json:"week" yaml:"week"`
}

// Risk is a risk with its mitigation.
type Risk struct {
	Description string `json:"risk" yaml:"risk"`
	Likelihood  string `json:"likelihood" yaml:"likelihood"`
	Impact      string `json:"impact" yaml:"impact"`
	Mitigation  string `json:"mitigation" yaml:"mitigation"`
}

// SuccessMetrics lists short and long term targets.
type SuccessMetrics struct {
	ShortTerm []string `json:"short_term" yaml:"short_term"`
	LongTerm  []string `json:"long_term" yaml:"long_term"`
}

// MaxPlanWeeks bounds the weekly plan.
const MaxPlanWeeks = 4

// Strategy is the final business strategy.
type Strategy struct {
	ExecutiveSummary string         `json:"executive_summary" yaml:"executive_summary"`
	EstimatedROI     string         `json:"estimated_roi" yaml:"estimated_roi"`
	Opportunities    []Opportunity  `json:"key_opportunities" yaml:"key_opportunities"`
	Actions          []Action       `json:"immediate_actions" yaml:"immediate_actions"`
	WeeklyPlan       []WeekPlan     `json:"weekly_plan" yaml:"weekly_plan"`
	Risks            []Risk         `json:"risks_and_mitigations" yaml:"risks_and_mitigations"`
	Assumptions      []string       `json:"assumptions" yaml:"assumptions"`
	SuccessMetrics   SuccessMetrics `json:"success_metrics" yaml:"success_metrics"`
}

// normalize drops weeks beyond MaxPlanWeeks.
func (s *Strategy) normalize() {
	if len(s.WeeklyPlan) > MaxPlanWeeks {
		s.WeeklyPlan = s.WeeklyPlan[:MaxPlanWeeks]
	}
}
