// Package selector implements the adaptive question selector: it maps
// the current signal bundle, contextual cues, and phase template to a
// question decision for the renderer.
package selector

import (
	"log/slog"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/flow"
	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
)

// Selection thresholds. Precedence runs top to bottom: incomplete
// answers always win, then demonstrated technical depth, then
// behavioral keywords, then revealed skills, then the phase default.
const (
	// clarificationCompleteness triggers a clarification question.
	clarificationCompleteness = 0.5
	// deepDiveDepth triggers a deep-dive follow-up.
	deepDiveDepth = 0.7
	// hardDifficultyDepth and mediumDifficultyDepth band difficulty.
	hardDifficultyDepth   = 0.8
	mediumDifficultyDepth = 0.5
	// lowEnthusiasmEngagement gates the encourage branching rule.
	lowEnthusiasmEngagement = 0.4
	// shortTimeRemaining gates the wrap-up branching rule.
	shortTimeRemaining = 10 * time.Minute
	// maxFollowUps caps the suggested follow-up list per decision.
	maxFollowUps = 3
)

// behavioralKeywords route the selection toward behavioral questions.
var behavioralKeywords = map[string]bool{
	"team": true, "teamwork": true, "leadership": true, "conflict": true,
	"mentoring": true, "collaboration": true, "communication": true,
	"disagreement": true, "feedback": true,
}

// followUpRotation is the fixed follow-up ordering. The starting index
// rotates with the utterance count so repeated answers on one topic
// receive varied probing.
var followUpRotation = []models.FollowUpType{
	models.FollowUpQuantitativeDetail,
	models.FollowUpChallengesFaced,
	models.FollowUpLessonsLearned,
	models.FollowUpTeamDynamics,
	models.FollowUpTechnicalDecisions,
}

// Selector decides the next question's type, difficulty, and intent. It
// is stateless; a single instance serves concurrent sessions.
type Selector struct {
	cfg *templates.Config
}

// New creates an adaptive question selector over the template config.
func New(cfg *templates.Config) *Selector {
	return &Selector{cfg: cfg}
}

// Select produces the question decision for the next turn.
func (sel *Selector) Select(s *models.Session, sig models.SignalBundle, cues []models.ContextualCue, machine *flow.Machine, now time.Time) models.QuestionDecision {
	decision := models.QuestionDecision{
		TargetTopic: sel.targetTopic(s, sig),
	}

	switch {
	case sig.Completeness < clarificationCompleteness:
		decision.Type = models.QuestionClarification
		decision.Intent = "recover detail from an incomplete answer"
	case sig.TechnicalDepth > deepDiveDepth:
		decision.Type = models.QuestionDeepDive
		decision.Intent = "probe demonstrated technical depth"
	case containsBehavioralKeyword(sig.KeyTopics):
		decision.Type = models.QuestionBehavioral
		decision.Intent = "explore the interpersonal situation just raised"
	case len(sig.SkillsRevealed) > 0:
		decision.Type = models.QuestionTechnical
		decision.Intent = "validate a newly revealed skill"
	default:
		decision.Type = sel.phaseDefault(s.Phase)
		decision.Intent = "advance the standard agenda for the phase"
	}

	decision.Difficulty = difficultyFor(sig.TechnicalDepth)
	if decision.Type == models.QuestionClarification {
		// Clarifications stay easy regardless of prior depth.
		decision.Difficulty = models.DifficultyEasy
	}

	decision.FollowUps = sel.followUps(s, sig)
	decision.Branching = sel.branching(s, sig, now)
	if wantsTopicShift(cues) {
		decision.TopicSuggestions = machine.SuggestTopics(s)
	}
	decision.Confidence = sel.confidence(sig, decision)

	slog.Debug("Selector.Select: question decision",
		"sessionID", s.ID, "type", decision.Type, "difficulty", decision.Difficulty,
		"topic", decision.TargetTopic, "confidence", decision.Confidence)
	return decision
}

// wantsTopicShift reports whether the current cues give a reason to
// steer toward a new topic: flagging engagement, a saturated active
// topic, or a shrinking time budget. Without one of those the
// conversation stays where it is.
func wantsTopicShift(cues []models.ContextualCue) bool {
	for _, c := range cues {
		switch c.Type {
		case models.CueEngagementDrop, models.CueTopicSaturation, models.CueTimePressure:
			return true
		}
	}
	return false
}

// targetTopic picks the subject of the next question: the freshest key
// topic when one exists, otherwise the active topic.
func (sel *Selector) targetTopic(s *models.Session, sig models.SignalBundle) string {
	if len(sig.KeyTopics) > 0 {
		return sig.KeyTopics[0]
	}
	if s.ActiveTopic != "" {
		return s.ActiveTopic
	}
	if pt, ok := sel.cfg.PhaseTemplate(s.Phase); ok && len(pt.KeyTopics) > 0 {
		return pt.KeyTopics[0]
	}
	return string(s.Phase)
}

// phaseDefault returns the phase template's default question type.
func (sel *Selector) phaseDefault(p models.Phase) models.QuestionType {
	if pt, ok := sel.cfg.PhaseTemplate(p); ok {
		return pt.DefaultQuestionType
	}
	return models.QuestionOpenEnded
}

// followUps rotates through the follow-up types so consecutive answers
// on one topic are not probed the same way, then prepends gap-driven
// follow-ups when the answer left information holes.
func (sel *Selector) followUps(s *models.Session, sig models.SignalBundle) []models.FollowUpType {
	var out []models.FollowUpType
	seen := make(map[models.FollowUpType]bool)
	add := func(f models.FollowUpType) {
		if !seen[f] && len(out) < maxFollowUps {
			seen[f] = true
			out = append(out, f)
		}
	}

	if sig.HasGap(models.GapQuantitativeData) {
		add(models.FollowUpQuantitativeDetail)
	}
	if sig.HasGap(models.GapChallengeDetail) {
		add(models.FollowUpChallengesFaced)
	}
	if sig.HasGap(models.GapTeamContext) {
		add(models.FollowUpTeamDynamics)
	}
	if sig.HasGap(models.GapTechnicalStack) {
		add(models.FollowUpTechnicalDecisions)
	}

	start := len(s.Utterances) % len(followUpRotation)
	for i := 0; i < len(followUpRotation) && len(out) < maxFollowUps; i++ {
		add(followUpRotation[(start+i)%len(followUpRotation)])
	}
	return out
}

// branching evaluates the configured branching rules against the current
// turn, returning the applicable rules sorted by priority.
func (sel *Selector) branching(s *models.Session, sig models.SignalBundle, now time.Time) []models.BranchingRule {
	var rules []models.BranchingRule
	for _, bt := range sel.cfg.Branching {
		applies := false
		switch bt.Condition {
		case models.ConditionIncompleteAnswer:
			applies = sig.Completeness < clarificationCompleteness
		case models.ConditionTechnicalDetail:
			applies = sig.TechnicalDepth > deepDiveDepth
		case models.ConditionEnthusiasmLow:
			applies = sig.EngagementScore() < lowEnthusiasmEngagement
		case models.ConditionTimeShort:
			applies = s.TotalBudget > 0 && s.Remaining(now) < shortTimeRemaining
		}
		if applies {
			rules = append(rules, models.BranchingRule{
				Condition: bt.Condition,
				Action:    bt.Action,
				Priority:  bt.Priority,
			})
		}
	}
	// Stable insertion sort keeps template order among equal priorities.
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && rules[j].Priority < rules[j-1].Priority; j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
	return rules
}

// confidence scores the decision from analysis confidence, engagement,
// and whether the chosen type matched a strong signal.
func (sel *Selector) confidence(sig models.SignalBundle, d models.QuestionDecision) float64 {
	score := 0.5*sig.Confidence + 0.3*sig.EngagementScore()
	switch d.Type {
	case models.QuestionClarification, models.QuestionDeepDive:
		score += 0.2
	case models.QuestionTechnical, models.QuestionBehavioral:
		score += 0.1
	}
	return clamp01(score)
}

// difficultyFor bands difficulty on demonstrated technical depth.
func difficultyFor(depth float64) models.Difficulty {
	switch {
	case depth > hardDifficultyDepth:
		return models.DifficultyHard
	case depth > mediumDifficultyDepth:
		return models.DifficultyMedium
	default:
		return models.DifficultyEasy
	}
}

func containsBehavioralKeyword(topics []string) bool {
	for _, t := range topics {
		if behavioralKeywords[t] {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
