// Package recovery provides tiered error recovery for the interview
// engine. Failures are classified by type and severity, mapped to a
// recovery strategy, and paired with a restoration plan so the
// conversation can resume from the last good exchange.
package recovery

import (
	"log/slog"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// RecoveryTier enumerates how much intervention a failure requires.
type RecoveryTier string

const (
	// TierAutomatic handles the failure without the candidate noticing.
	TierAutomatic RecoveryTier = "automatic"
	// TierGuided steers the conversation back with an explicit message.
	TierGuided RecoveryTier = "guided"
	// TierManual flags the turn for reviewer approval before continuing.
	TierManual RecoveryTier = "manual"
)

// RestorationPlan enumerates how much conversation state is rebuilt.
type RestorationPlan string

const (
	RestorationFull       RestorationPlan = "full"
	RestorationPartial    RestorationPlan = "partial"
	RestorationRebuild    RestorationPlan = "rebuild"
	RestorationFreshStart RestorationPlan = "fresh_start"
)

// AlternativeAction is a fallback move ranked by its cost and impact.
type AlternativeAction struct {
	Action     string        `json:"action"`
	Impact     string        `json:"impact"`
	Difficulty string        `json:"difficulty"`
	TimeCost   time.Duration `json:"time_cost"`
}

// RecoveryStrategy is the engine's full response to one failure.
type RecoveryStrategy struct {
	Tier            RecoveryTier        `json:"tier"`
	PrimaryAction   string              `json:"primary_action"`
	Alternatives    []AlternativeAction `json:"alternatives,omitempty"`
	Restoration     RestorationPlan     `json:"restoration"`
	UserMessage     string              `json:"user_message,omitempty"`
	EscalateToHuman bool                `json:"escalate_to_human"`
}

// Manager selects recovery strategies from error context. It is
// stateless and safe for concurrent sessions.
type Manager struct{}

// NewManager creates a recovery manager.
func NewManager() *Manager {
	return &Manager{}
}

// Plan maps one classified failure to its strategy. Severity drives the
// restoration plan; only critical failures escalate to a human.
func (m *Manager) Plan(ec models.ErrorContext) RecoveryStrategy {
	strategy := RecoveryStrategy{
		Restoration:     restorationFor(ec.Severity),
		EscalateToHuman: ec.Severity == models.SeverityCritical,
	}

	switch ec.Type {
	case models.ErrorInappropriateContent:
		strategy.Tier = TierManual
		strategy.PrimaryAction = "flag_and_regenerate"
		strategy.UserMessage = "Let me rephrase that question."
		strategy.Alternatives = []AlternativeAction{
			{Action: "use_fallback_template", Impact: "generic but safe question", Difficulty: string(models.DifficultyEasy), TimeCost: 0},
			{Action: "skip_to_next_objective", Impact: "loses one line of questioning", Difficulty: string(models.DifficultyMedium), TimeCost: time.Minute},
		}
	case models.ErrorConversationalBreakdown:
		strategy.Tier = TierGuided
		strategy.PrimaryAction = "clarify_then_resume"
		strategy.UserMessage = "I want to make sure we're on the same page. Let's go back to what you were describing a moment ago."
		strategy.Alternatives = []AlternativeAction{
			{Action: "restate_last_question", Impact: "repeats context for the candidate", Difficulty: string(models.DifficultyEasy), TimeCost: 30 * time.Second},
			{Action: "change_topic", Impact: "abandons the stuck thread", Difficulty: string(models.DifficultyMedium), TimeCost: time.Minute},
		}
	case models.ErrorTimeRisk:
		strategy.Tier = TierAutomatic
		strategy.PrimaryAction = "prioritize_objectives"
		strategy.Alternatives = []AlternativeAction{
			{Action: "shorten_questions", Impact: "less depth per topic", Difficulty: string(models.DifficultyEasy), TimeCost: 0},
			{Action: "wrap_up_early", Impact: "some objectives left incomplete", Difficulty: string(models.DifficultyHard), TimeCost: 0},
		}
	case models.ErrorValidationFailure, models.ErrorRelevanceFailure, models.ErrorSignalExtraction, models.ErrorSystemFailure:
		strategy.Tier = TierAutomatic
		strategy.PrimaryAction = "retry_with_fallback_template"
		strategy.Alternatives = []AlternativeAction{
			{Action: "reuse_phase_default_question", Impact: "less adaptive phrasing", Difficulty: string(models.DifficultyEasy), TimeCost: 0},
		}
	default:
		strategy.Tier = TierAutomatic
		strategy.PrimaryAction = "retry_with_fallback_template"
	}

	if ec.Severity.Rank() >= models.SeverityMajor.Rank() && strategy.Tier == TierAutomatic {
		strategy.Tier = TierGuided
		if strategy.UserMessage == "" {
			strategy.UserMessage = "Thanks for bearing with me. Let's pick up from your last answer."
		}
	}

	slog.Info("Manager.Plan: recovery strategy selected",
		"type", ec.Type, "severity", ec.Severity, "tier", strategy.Tier,
		"action", strategy.PrimaryAction, "restoration", strategy.Restoration,
		"escalate", strategy.EscalateToHuman)
	return strategy
}

// Classify builds the error context for a failure at the given pipeline
// stage, preserving the last good exchange for restoration.
func (m *Manager) Classify(errType models.ErrorType, severity models.ErrorSeverity, stage, message string, s *models.Session, now time.Time) models.ErrorContext {
	return models.ErrorContext{
		Type:             errType,
		Severity:         severity,
		Stage:            stage,
		Message:          message,
		Timestamp:        now,
		LastGoodExchange: s.LastExchange(),
	}
}

// restorationFor maps failure severity to the restoration depth.
func restorationFor(sev models.ErrorSeverity) RestorationPlan {
	switch sev {
	case models.SeverityMinor:
		return RestorationFull
	case models.SeverityModerate:
		return RestorationPartial
	case models.SeverityMajor:
		return RestorationRebuild
	default:
		return RestorationFreshStart
	}
}
