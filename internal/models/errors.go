package models

import "time"

// ErrorType classifies a failure detected during turn processing.
type ErrorType string

const (
	// ErrorSignalExtraction covers missing sentiment/entity data; recovered
	// locally with neutral defaults and never surfaced.
	ErrorSignalExtraction ErrorType = "signal_extraction"
	// ErrorValidationFailure marks a draft that violated a CRITICAL rule.
	ErrorValidationFailure ErrorType = "validation_failure"
	// ErrorRelevanceFailure marks a topically off-target draft.
	ErrorRelevanceFailure ErrorType = "relevance_failure"
	// ErrorTimeRisk marks an assessed time-budget risk.
	ErrorTimeRisk ErrorType = "time_risk"
	// ErrorSystemFailure covers renderer unavailability or exceptions in
	// any pipeline stage.
	ErrorSystemFailure ErrorType = "system_failure"
	// ErrorConversationalBreakdown covers a conversation that has gone off
	// the rails (repeated confusion, unusable exchanges).
	ErrorConversationalBreakdown ErrorType = "conversational_breakdown"
	// ErrorInappropriateContent marks generated content that must not be
	// sent without human approval.
	ErrorInappropriateContent ErrorType = "inappropriate_content"
)

// ErrorSeverity grades how serious a detected failure is.
type ErrorSeverity string

const (
	SeverityMinor    ErrorSeverity = "minor"
	SeverityModerate ErrorSeverity = "moderate"
	SeverityMajor    ErrorSeverity = "major"
	SeverityCritical ErrorSeverity = "critical"
)

// severityRank orders severities for comparisons.
var severityRank = map[ErrorSeverity]int{
	SeverityMinor:    0,
	SeverityModerate: 1,
	SeverityMajor:    2,
	SeverityCritical: 3,
}

// Rank returns the ordinal position of the severity, or -1 if unknown.
func (s ErrorSeverity) Rank() int {
	r, ok := severityRank[s]
	if !ok {
		return -1
	}
	return r
}

// ErrorContext is the structured failure record emitted to the caller on
// unrecoverable failures, and the input to recovery strategy selection.
type ErrorContext struct {
	Type             ErrorType     `json:"type"`
	Severity         ErrorSeverity `json:"severity"`
	Stage            string        `json:"stage"` // pipeline stage that failed
	Message          string        `json:"message"`
	Timestamp        time.Time     `json:"timestamp"`
	LastGoodExchange []Utterance   `json:"last_good_exchange,omitempty"`
}
