package models

import "time"

// FlowDecisionType classifies a decision taken by the flow state machine.
type FlowDecisionType string

const (
	DecisionAdvancePhase   FlowDecisionType = "advance_phase"
	DecisionStayInPhase    FlowDecisionType = "stay_in_phase"
	DecisionChangeTopic    FlowDecisionType = "change_topic"
	DecisionAdaptStyle     FlowDecisionType = "adapt_style"
	DecisionReallocateTime FlowDecisionType = "reallocate_time"
)

// FlowDecision is an append-only audit record of a choice made by the flow
// state machine, kept for explainability and selector branching.
type FlowDecision struct {
	ID                string           `json:"id"`
	Type              FlowDecisionType `json:"type"`
	TriggeringSignals []string         `json:"triggering_signals,omitempty"`
	Action            string           `json:"action"`
	Confidence        float64          `json:"confidence"`
	Timestamp         time.Time        `json:"timestamp"`
}

// TransitionQuality rates how smooth a phase transition was.
type TransitionQuality string

const (
	TransitionSmooth     TransitionQuality = "smooth"
	TransitionAcceptable TransitionQuality = "acceptable"
	TransitionAbrupt     TransitionQuality = "abrupt"
	TransitionPoor       TransitionQuality = "poor"
)

// PhaseTransition is an append-only audit record of a phase change.
type PhaseTransition struct {
	ID             string            `json:"id"`
	From           Phase             `json:"from"`
	To             Phase             `json:"to"`
	Reason         string            `json:"reason"`
	Quality        TransitionQuality `json:"quality"`
	CompletionRate float64           `json:"completion_rate"` // outgoing phase completion at transition time
	Timestamp      time.Time         `json:"timestamp"`
}

// CueType names a contextual cue derived from the conversation.
type CueType string

const (
	CueEngagementDrop  CueType = "engagement_drop"
	CueConfusion       CueType = "confusion"
	CueExpertiseSignal CueType = "expertise_signal"
	CueTopicSaturation CueType = "topic_saturation"
	CueTimePressure    CueType = "time_pressure"
)

// ContextualCue is a derived, confidence-scored signal suggesting a
// corrective action. Cues feed both transition logic and the selector.
type ContextualCue struct {
	Type            CueType   `json:"type"`
	Confidence      float64   `json:"confidence"`
	SuggestedAction string    `json:"suggested_action"`
	Detail          string    `json:"detail,omitempty"`
	RaisedAt        time.Time `json:"raised_at"`
}

// QuestionType is the fixed taxonomy the adaptive question selector
// chooses from. Content phrasing is delegated to the external renderer.
type QuestionType string

const (
	QuestionOpenEnded     QuestionType = "open_ended"
	QuestionClarification QuestionType = "clarification"
	QuestionDeepDive      QuestionType = "deep_dive"
	QuestionTechnical     QuestionType = "technical"
	QuestionBehavioral    QuestionType = "behavioral"
	QuestionSituational   QuestionType = "situational"
	QuestionTransition    QuestionType = "transition"
	QuestionClosing       QuestionType = "closing"
)

// IsValidQuestionType checks if the given question type is supported.
func IsValidQuestionType(qt QuestionType) bool {
	switch qt {
	case QuestionOpenEnded, QuestionClarification, QuestionDeepDive, QuestionTechnical,
		QuestionBehavioral, QuestionSituational, QuestionTransition, QuestionClosing:
		return true
	default:
		return false
	}
}

// FollowUpType is one entry in the fixed follow-up rotation.
type FollowUpType string

const (
	FollowUpQuantitativeDetail FollowUpType = "quantitative_detail"
	FollowUpChallengesFaced    FollowUpType = "challenges_faced"
	FollowUpLessonsLearned     FollowUpType = "lessons_learned"
	FollowUpTeamDynamics       FollowUpType = "team_dynamics"
	FollowUpTechnicalDecisions FollowUpType = "technical_decisions"
)

// Difficulty calibrates how hard the next question should be.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// BranchingRule is one (condition, action, priority) tuple produced by the
// selector, ranked by priority descending (1 is highest).
type BranchingRule struct {
	Condition string `json:"condition"`
	Action    string `json:"action"`
	Priority  int    `json:"priority"`
}

// Branching rule conditions and actions shared between templates and selector.
const (
	ConditionIncompleteAnswer = "incomplete_answer"
	ConditionTechnicalDetail  = "technical_detail"
	ConditionEnthusiasmLow    = "enthusiasm_low"
	ConditionTimeShort        = "time_short"

	ActionSeekClarification = "seek_clarification"
	ActionDeepDive          = "deep_dive"
	ActionEncourage         = "encourage"
	ActionWrapUpTopic       = "wrap_up_topic"
)

// TopicSuggestion proposes moving the conversation to a different topic.
type TopicSuggestion struct {
	FromTopic  string  `json:"from_topic,omitempty"`
	ToTopic    string  `json:"to_topic"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// QuestionDecision is the structured decision handed to the external
// renderer; the selector never renders prose.
type QuestionDecision struct {
	Type             QuestionType      `json:"type"`
	Difficulty       Difficulty        `json:"difficulty"`
	Intent           string            `json:"intent"` // what the question should accomplish
	TargetTopic      string            `json:"target_topic,omitempty"`
	FollowUps        []FollowUpType    `json:"follow_ups,omitempty"` // 2-3 candidate follow-up types
	Branching        []BranchingRule   `json:"branching,omitempty"`  // ranked by priority descending
	TopicSuggestions []TopicSuggestion `json:"topic_suggestions,omitempty"`
	Confidence       float64           `json:"confidence"`
}

// RecommendationKind classifies a per-turn recommendation to the caller.
type RecommendationKind string

const (
	RecommendationFlow       RecommendationKind = "flow"
	RecommendationQuality    RecommendationKind = "quality"
	RecommendationAdaptation RecommendationKind = "adaptation"
	RecommendationTiming     RecommendationKind = "timing"
)

// Recommendation is one advisory item emitted to the calling application.
type Recommendation struct {
	Kind           RecommendationKind `json:"kind"`
	Message        string             `json:"message"`
	Priority       int                `json:"priority"` // 1 is highest
	ActionRequired bool               `json:"action_required"`
}
