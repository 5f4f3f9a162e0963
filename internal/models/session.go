// Package models defines session state for the interview dialogue engine.
package models

import (
	"time"
)

// Phase identifies one of the eight ordered interview stages.
type Phase string

const (
	// PhaseIntroduction is the opening phase of the interview.
	PhaseIntroduction Phase = "introduction"
	// PhaseBackground covers the candidate's history and experience.
	PhaseBackground Phase = "background"
	// PhaseTechnical probes technical ability.
	PhaseTechnical Phase = "technical"
	// PhaseBehavioral probes past behavior and collaboration.
	PhaseBehavioral Phase = "behavioral"
	// PhaseSituational poses hypothetical scenarios.
	PhaseSituational Phase = "situational"
	// PhaseCompanyFit assesses alignment with the company.
	PhaseCompanyFit Phase = "company_fit"
	// PhaseClosingQuestions invites candidate questions.
	PhaseClosingQuestions Phase = "closing_questions"
	// PhaseConclusion is the terminal, absorbing phase.
	PhaseConclusion Phase = "conclusion"
)

// PhaseOrder is the fixed forward ordering of interview phases.
var PhaseOrder = []Phase{
	PhaseIntroduction,
	PhaseBackground,
	PhaseTechnical,
	PhaseBehavioral,
	PhaseSituational,
	PhaseCompanyFit,
	PhaseClosingQuestions,
	PhaseConclusion,
}

// Index returns the position of the phase in PhaseOrder, or -1 if unknown.
func (p Phase) Index() int {
	for i, ph := range PhaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// IsValidPhase checks if the given phase is one of the eight interview phases.
func IsValidPhase(p Phase) bool {
	return p.Index() >= 0
}

// IsTerminal reports whether the phase is the absorbing conclusion state.
func (p Phase) IsTerminal() bool {
	return p == PhaseConclusion
}

// NextPhase returns the phase following p in the fixed ordering.
// The second return value is false when p is terminal or unknown.
func NextPhase(p Phase) (Phase, bool) {
	idx := p.Index()
	if idx < 0 || idx >= len(PhaseOrder)-1 {
		return p, false
	}
	return PhaseOrder[idx+1], true
}

// PhaseProgress tracks bookkeeping for the currently active phase.
type PhaseProgress struct {
	Phase               Phase         `json:"phase"`
	StartedAt           time.Time     `json:"started_at"`
	ExpectedDuration    time.Duration `json:"expected_duration"`
	ObjectivesCompleted []string      `json:"objectives_completed"` // objective IDs completed during this phase
	ObjectivesRemaining []string      `json:"objectives_remaining"` // objective IDs still open for this phase
	QualityScore        float64       `json:"quality_score"`        // running quality of the phase's exchanges
}

// CompletionRatio returns the fraction of this phase's objectives completed so far.
func (pp PhaseProgress) CompletionRatio() float64 {
	total := len(pp.ObjectivesCompleted) + len(pp.ObjectivesRemaining)
	if total == 0 {
		return 1.0
	}
	return float64(len(pp.ObjectivesCompleted)) / float64(total)
}

// FlowMetrics aggregates conversation-level metrics blended turn by turn.
type FlowMetrics struct {
	ConversationQuality float64 `json:"conversation_quality"` // EMA of per-turn response quality
	EngagementLevel     float64 `json:"engagement_level"`     // EMA of per-turn engagement
	TechnicalDepthAvg   float64 `json:"technical_depth_avg"`  // EMA of technical depth signals
	TurnCount           int     `json:"turn_count"`           // candidate turns processed
	ClarificationCount  int     `json:"clarification_count"`  // clarification questions issued
}

// Session is the durable record of one interview's progress. It is owned
// exclusively by the flow state machine and mutated only through its
// public operations.
type Session struct {
	ID          string                `json:"id"`
	Phase       Phase                 `json:"phase"`
	Progress    PhaseProgress         `json:"progress"`
	Utterances  []Utterance           `json:"utterances"`
	Topics      map[string]*TopicNode `json:"topics"`
	ActiveTopic string                `json:"active_topic,omitempty"`
	Objectives  []*InterviewObjective `json:"objectives"`
	Decisions   []FlowDecision        `json:"decisions"`
	Transitions []PhaseTransition     `json:"transitions"`
	Metrics     FlowMetrics           `json:"metrics"`
	TotalBudget time.Duration         `json:"total_budget"`
	StartedAt   time.Time             `json:"started_at"`
	Concluded   bool                  `json:"concluded"`
	Profile     *CandidateProfile     `json:"profile,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Elapsed returns the time spent in the interview relative to now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// Remaining returns the unspent portion of the total time budget.
// It never returns a negative duration.
func (s *Session) Remaining(now time.Time) time.Duration {
	rem := s.TotalBudget - s.Elapsed(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// PhaseElapsed returns the time spent in the current phase relative to now.
func (s *Session) PhaseElapsed(now time.Time) time.Duration {
	if s.Progress.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.Progress.StartedAt)
}

// LastExchange returns the most recent candidate/system utterance pair,
// used as the last-known-good exchange when building error contexts.
func (s *Session) LastExchange() []Utterance {
	if len(s.Utterances) == 0 {
		return nil
	}
	start := len(s.Utterances) - 2
	if start < 0 {
		start = 0
	}
	out := make([]Utterance, len(s.Utterances)-start)
	copy(out, s.Utterances[start:])
	return out
}

// ObjectiveByID finds an objective by ID. Returns nil when absent.
func (s *Session) ObjectiveByID(id string) *InterviewObjective {
	for _, o := range s.Objectives {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// RemainingObjectives returns the objectives not yet completed.
func (s *Session) RemainingObjectives() []*InterviewObjective {
	var out []*InterviewObjective
	for _, o := range s.Objectives {
		if !o.Completed {
			out = append(out, o)
		}
	}
	return out
}

// Snapshot returns a deep copy of the session safe to hand to callers.
// The flow state machine retains exclusive ownership of the original.
func (s *Session) Snapshot() *Session {
	cp := *s
	cp.Utterances = make([]Utterance, len(s.Utterances))
	copy(cp.Utterances, s.Utterances)
	cp.Topics = make(map[string]*TopicNode, len(s.Topics))
	for k, v := range s.Topics {
		tn := *v
		tn.UtteranceIDs = append([]string(nil), v.UtteranceIDs...)
		tn.Insights = append([]string(nil), v.Insights...)
		cp.Topics[k] = &tn
	}
	cp.Objectives = make([]*InterviewObjective, len(s.Objectives))
	for i, o := range s.Objectives {
		oc := *o
		oc.Evidence = append([]string(nil), o.Evidence...)
		cp.Objectives[i] = &oc
	}
	cp.Decisions = append([]FlowDecision(nil), s.Decisions...)
	cp.Transitions = append([]PhaseTransition(nil), s.Transitions...)
	if s.Profile != nil {
		pf := *s.Profile
		pf.Skills = append([]SkillEntry(nil), s.Profile.Skills...)
		pf.Experience = append([]ExperienceEntry(nil), s.Profile.Experience...)
		cp.Profile = &pf
	}
	return &cp
}

// CandidateProfile is the structured profile snapshot consumed from the
// candidate-profile builder at session start, used for personalization.
type CandidateProfile struct {
	Name       string            `json:"name,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Skills     []SkillEntry      `json:"skills,omitempty"`
	Experience []ExperienceEntry `json:"experience,omitempty"`
}

// SkillEntry is one declared skill in a candidate profile.
type SkillEntry struct {
	Name  string  `json:"name"`
	Level string  `json:"level,omitempty"` // e.g., "junior", "senior", "expert"
	Years float64 `json:"years,omitempty"`
}

// ExperienceEntry is one position in a candidate's experience timeline.
type ExperienceEntry struct {
	Company    string   `json:"company"`
	Role       string   `json:"role"`
	Start      string   `json:"start,omitempty"` // YYYY-MM
	End        string   `json:"end,omitempty"`   // YYYY-MM or empty for current
	Highlights []string `json:"highlights,omitempty"`
}
