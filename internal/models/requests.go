package models

import (
	"errors"
	"fmt"
	"time"
)

// SessionCreateRequest is the payload for starting a new interview session.
type SessionCreateRequest struct {
	Objectives    []ObjectiveSpec   `json:"objectives"`
	Profile       *CandidateProfile `json:"profile,omitempty"`
	BudgetMinutes int               `json:"budget_minutes"`
}

// ObjectiveSpec describes one interview objective supplied at session start.
type ObjectiveSpec struct {
	Description string            `json:"description"`
	Priority    ObjectivePriority `json:"priority,omitempty"` // defaults to medium
	Phase       Phase             `json:"phase,omitempty"`    // defaults to technical
	Required    bool              `json:"required"`
}

// Validate validates a SessionCreateRequest.
func (r *SessionCreateRequest) Validate() error {
	if len(r.Objectives) == 0 {
		return ErrNoObjectives
	}
	if len(r.Objectives) > MaxObjectivesPerSession {
		return ErrTooManyObjectives
	}
	budget := time.Duration(r.BudgetMinutes) * time.Minute
	if budget < MinSessionBudget || budget > MaxSessionBudget {
		return ErrInvalidBudget
	}
	for i, spec := range r.Objectives {
		if spec.Description == "" {
			return fmt.Errorf("objective %d: %w", i, errors.New("description is required"))
		}
		if len(spec.Description) > MaxObjectiveDescriptionLength {
			return fmt.Errorf("objective %d: %w", i, ErrObjectiveDescTooLong)
		}
		if spec.Priority != "" && !IsValidObjectivePriority(spec.Priority) {
			return fmt.Errorf("objective %d: %w", i, ErrInvalidObjectivePriority)
		}
		if spec.Phase != "" && !IsValidPhase(spec.Phase) {
			return fmt.Errorf("objective %d: %w", i, ErrInvalidObjectivePhase)
		}
	}
	return nil
}

// TurnRequest is the payload for submitting one candidate utterance.
type TurnRequest struct {
	Text      string           `json:"text"`
	Sentiment *SentimentBundle `json:"sentiment,omitempty"` // optional upstream sentiment annotation
	Entities  []Entity         `json:"entities,omitempty"`  // optional upstream entity annotation
}

// Validate validates a TurnRequest.
func (r *TurnRequest) Validate() error {
	if r.Text == "" {
		return ErrEmptyUtterance
	}
	if len(r.Text) > MaxUtteranceLength {
		return ErrUtteranceTooLong
	}
	return nil
}

// TurnOutcome is the per-turn result emitted to the calling application.
type TurnOutcome struct {
	Session         *Session            `json:"session"` // updated snapshot
	Reply           string              `json:"reply"`   // utterance to send to the candidate
	FromFallback    bool                `json:"from_fallback"`
	Question        QuestionDecision    `json:"question"`
	Signals         SignalBundle        `json:"signals"`
	Cues            []ContextualCue     `json:"cues,omitempty"`      // newly raised this turn
	Decisions       []FlowDecision      `json:"decisions,omitempty"` // taken this turn
	Recommendations []Recommendation    `json:"recommendations,omitempty"`
	Validation      *ValidationResult   `json:"validation,omitempty"`
	Relevance       *RelevanceResult    `json:"relevance,omitempty"`
	Duration        *DurationAssessment `json:"duration,omitempty"`
	ErrorContext    *ErrorContext       `json:"error_context,omitempty"` // present when the turn was recovered
}

// InterviewResult is the persisted outcome of a completed interview:
// a per-phase transcript of questions and answers plus closing metrics.
type InterviewResult struct {
	SessionID   string                `json:"session_id"`
	CompletedAt time.Time             `json:"completed_at"`
	Phases      []PhaseResult         `json:"phases"`
	Metrics     FlowMetrics           `json:"metrics"`
	Objectives  []*InterviewObjective `json:"objectives"`
}

// PhaseResult is the transcript of one interview phase.
type PhaseResult struct {
	Phase               Phase `json:"phase"`
	QuestionsAndAnswers []QA  `json:"questions_and_answers"`
}

// QA is one question/answer pair in a phase transcript.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
