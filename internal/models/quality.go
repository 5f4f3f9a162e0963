package models

import "time"

// RuleCategory groups validation rules by the concern they cover.
type RuleCategory string

const (
	RuleCategoryContent  RuleCategory = "content"
	RuleCategoryLength   RuleCategory = "length"
	RuleCategoryCultural RuleCategory = "cultural"
)

// RuleSeverity ranks how serious a rule failure is. A failing CRITICAL
// rule invalidates the draft regardless of aggregate score.
type RuleSeverity string

const (
	RuleSeverityCritical RuleSeverity = "critical"
	RuleSeverityMajor    RuleSeverity = "major"
	RuleSeverityMinor    RuleSeverity = "minor"
)

// RuleResult is the outcome of evaluating one validation rule.
type RuleResult struct {
	RuleID   string       `json:"rule_id"`
	Category RuleCategory `json:"category"`
	Severity RuleSeverity `json:"severity"`
	Passed   bool         `json:"passed"`
	Score    float64      `json:"score"` // [0,1] contribution before weighting
	Detail   string       `json:"detail,omitempty"`
}

// ValidationResult aggregates all rule evaluations for a draft response.
type ValidationResult struct {
	IsValid        bool         `json:"is_valid"`
	QualityScore   float64      `json:"quality_score"` // weighted aggregate [0,1]
	FailedCritical bool         `json:"failed_critical"`
	Rules          []RuleResult `json:"rules"`
}

// DeviationLevel buckets how far a draft strays from the allowed topic.
type DeviationLevel string

const (
	DeviationNone     DeviationLevel = "none"
	DeviationMinor    DeviationLevel = "minor"
	DeviationModerate DeviationLevel = "moderate"
	DeviationMajor    DeviationLevel = "major"
	DeviationComplete DeviationLevel = "complete"
)

// RelevanceAction is the corrective action recommended for a deviation.
type RelevanceAction string

const (
	RelevanceContinue         RelevanceAction = "continue"
	RelevanceGentleRedirect   RelevanceAction = "gentle_redirect"
	RelevanceExplicitRedirect RelevanceAction = "explicit_redirect"
	RelevanceResetTopic       RelevanceAction = "reset_topic"
)

// RelevanceResult scores a draft against the active topic and the
// remaining interview objectives.
type RelevanceResult struct {
	Score          float64         `json:"score"`           // combined 60/40 topic/objective score
	TopicScore     float64         `json:"topic_score"`     // keyword/entity-type overlap
	ObjectiveScore float64         `json:"objective_score"` // overlap with remaining objective descriptions
	Deviation      DeviationLevel  `json:"deviation"`
	Action         RelevanceAction `json:"action"`
	Block          bool            `json:"block"` // hard block only on COMPLETE deviation
}

// RiskLevel grades the interview's time-budget risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// TimeAction is the recommended response to the assessed time risk.
type TimeAction string

const (
	TimeActionContinue             TimeAction = "continue_normally"
	TimeActionAccelerate           TimeAction = "accelerate_pace"
	TimeActionExtend               TimeAction = "extend_time"
	TimeActionPrioritizeObjectives TimeAction = "prioritize_objectives"
	TimeActionWrapUpEarly          TimeAction = "wrap_up_early"
)

// PhaseAllocation is the recommended time share for one remaining phase.
type PhaseAllocation struct {
	Phase     Phase         `json:"phase"`
	Allocated time.Duration `json:"allocated"`
}

// DurationAssessment is the duration manager's per-turn output.
type DurationAssessment struct {
	Utilization      float64           `json:"utilization"`       // elapsed / total budget
	PhaseEfficiency  float64           `json:"phase_efficiency"`  // expected vs actual for current phase
	CompletionRate   float64           `json:"completion_rate"`   // objectives completed / total
	ProjectedOverrun time.Duration     `json:"projected_overrun"` // <= 0 means on track
	Remaining        time.Duration     `json:"remaining"`
	Risk             RiskLevel         `json:"risk"`
	Action           TimeAction        `json:"action"`
	DemotedIDs       []string          `json:"demoted_ids,omitempty"` // objectives demoted under time pressure
	Allocations      []PhaseAllocation `json:"allocations,omitempty"` // recomputed remaining-phase allocation
}
