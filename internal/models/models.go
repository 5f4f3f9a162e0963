// Package models defines the core data structures for InterviewPipe.
//
// It includes the interview session record, utterances, topic nodes,
// objectives, audit records, and the signal/decision types exchanged
// between the pipeline stages.
package models

import (
	"errors"
	"time"
)

// Validation constants for input validation
const (
	// MaxUtteranceLength defines the maximum allowed length for a candidate utterance
	MaxUtteranceLength = 8192
	// MaxObjectiveDescriptionLength defines the maximum allowed length for an objective description
	MaxObjectiveDescriptionLength = 500
	// MaxObjectivesPerSession defines the maximum number of objectives accepted at session start
	MaxObjectivesPerSession = 50
	// MinSessionBudget is the minimum total time budget for an interview
	MinSessionBudget = 5 * time.Minute
	// MaxSessionBudget is the maximum total time budget for an interview
	MaxSessionBudget = 4 * time.Hour
)

// Error variables for better error handling and testability
var (
	ErrEmptyUtterance           = errors.New("utterance text cannot be empty")
	ErrUtteranceTooLong         = errors.New("utterance exceeds maximum length")
	ErrSessionNotFound          = errors.New("session not found")
	ErrResultNotFound           = errors.New("interview result not found")
	ErrSessionConcluded         = errors.New("session has reached the conclusion phase")
	ErrInvalidPhase             = errors.New("invalid interview phase")
	ErrBackwardTransition       = errors.New("phase transitions cannot move backward")
	ErrInvalidBudget            = errors.New("session time budget out of range")
	ErrNoObjectives             = errors.New("at least one interview objective is required")
	ErrTooManyObjectives        = errors.New("too many interview objectives")
	ErrObjectiveDescTooLong     = errors.New("objective description exceeds maximum length")
	ErrInvalidObjectivePhase    = errors.New("objective targets an unknown phase")
	ErrRendererUnavailable      = errors.New("utterance renderer unavailable")
	ErrDraftRejected            = errors.New("draft response rejected by validation")
	ErrUnknownQuestionType      = errors.New("unknown question type")
	ErrMissingDecision          = errors.New("question decision is required for rendering")
	ErrTemplateConfigInvalid    = errors.New("template configuration invalid")
	ErrStoreUnavailable         = errors.New("store unavailable")
	ErrTurnAlreadyInProgress    = errors.New("a turn is already being processed for this session")
	ErrInvalidObjectivePriority = errors.New("invalid objective priority")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecovered indicates a request completed via a recovery path.
	APIStatusRecovered APIStatus = "recovered"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Recovered creates an API response for a turn that completed via a recovery path.
func Recovered(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusRecovered), Message: message, Result: result}
}
