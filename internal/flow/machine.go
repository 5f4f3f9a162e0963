// Package flow implements the interview flow state machine. It owns the
// session: sessions are created, advanced, and concluded only through the
// machine's public operations.
//
// The machine advances phase/topic state from signal bundles, raises
// contextual cues, and issues flow decisions. Phases move strictly
// forward through the fixed ordering; conclusion is absorbing.
package flow

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
	"github.com/google/uuid"
)

// Metric blending and transition tuning constants.
const (
	// metricAlpha is the EMA blending factor for running conversation metrics.
	metricAlpha = 0.3
	// topicSaturationPotential is the transition-potential threshold for
	// the topic-saturation trigger.
	topicSaturationPotential = 0.7
	// topicSaturationUtterances is the minimum attached utterances for
	// the topic-saturation trigger.
	topicSaturationUtterances = 5
	// timePressureRatio is the remaining-time ratio below which the
	// hard time-pressure trigger fires.
	timePressureRatio = 0.15
	// objectiveMatchQuality is the per-turn quality above which a
	// phase-targeted objective accrues evidence.
	objectiveMatchQuality = 0.6
)

// TurnUpdate is the machine's output for one applied signal bundle.
type TurnUpdate struct {
	Cues       []models.ContextualCue
	Decisions  []models.FlowDecision
	Transition *models.PhaseTransition
}

// Machine is the flow state machine. The template configuration it holds
// is immutable and shared read-only across concurrent sessions.
type Machine struct {
	cfg *templates.Config
}

// NewMachine creates a flow state machine over the given template config.
func NewMachine(cfg *templates.Config) *Machine {
	slog.Debug("flow.NewMachine: creating flow state machine")
	return &Machine{cfg: cfg}
}

// NewSession constructs a session in the introduction phase, seeding phase
// objectives from the template and attaching the caller's objectives.
func (m *Machine) NewSession(req models.SessionCreateRequest, now time.Time) (*models.Session, error) {
	if err := req.Validate(); err != nil {
		slog.Error("Machine.NewSession: invalid request", "error", err)
		return nil, err
	}

	s := &models.Session{
		ID:          uuid.NewString(),
		Phase:       models.PhaseIntroduction,
		Topics:      make(map[string]*models.TopicNode),
		TotalBudget: time.Duration(req.BudgetMinutes) * time.Minute,
		StartedAt:   now,
		Profile:     req.Profile,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, spec := range req.Objectives {
		priority := spec.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		phase := spec.Phase
		if phase == "" {
			phase = models.PhaseTechnical
		}
		s.Objectives = append(s.Objectives, &models.InterviewObjective{
			ID:          uuid.NewString(),
			Description: spec.Description,
			Priority:    priority,
			Phase:       phase,
			Required:    spec.Required,
		})
	}

	m.seedPhase(s, models.PhaseIntroduction, now)
	slog.Info("Machine.NewSession: session created", "sessionID", s.ID, "objectives", len(s.Objectives), "budget", s.TotalBudget)
	return s, nil
}

// seedPhase resets phase-progress bookkeeping and re-seeds expected
// objectives for the new phase from the per-phase template.
func (m *Machine) seedPhase(s *models.Session, phase models.Phase, now time.Time) {
	pt, ok := m.cfg.PhaseTemplate(phase)
	if !ok {
		slog.Error("Machine.seedPhase: no template for phase", "sessionID", s.ID, "phase", phase)
		return
	}

	for _, ot := range pt.Objectives {
		s.Objectives = append(s.Objectives, &models.InterviewObjective{
			ID:          fmt.Sprintf("%s_%s", phase, ot.ID),
			Description: ot.Description,
			Priority:    ot.Priority,
			Phase:       phase,
			Required:    ot.Required,
		})
	}

	var remaining []string
	for _, o := range s.Objectives {
		if o.Phase == phase && !o.Completed {
			remaining = append(remaining, o.ID)
		}
	}

	s.Phase = phase
	s.Progress = models.PhaseProgress{
		Phase:               phase,
		StartedAt:           now,
		ExpectedDuration:    time.Duration(pt.ExpectedMinutes) * time.Minute,
		ObjectivesRemaining: remaining,
	}
	s.UpdatedAt = now
}

// RecordCandidate appends a validated candidate utterance to the log and
// returns it with identity and quality metadata attached.
func (m *Machine) RecordCandidate(s *models.Session, text string, sentiment *models.SentimentBundle, entities []models.Entity, now time.Time) (models.Utterance, error) {
	if s.Phase.IsTerminal() && s.Concluded {
		return models.Utterance{}, models.ErrSessionConcluded
	}
	u := models.Utterance{
		ID:        uuid.NewString(),
		Role:      models.RoleCandidate,
		Text:      text,
		Timestamp: now,
		Sentiment: sentiment,
		Entities:  entities,
	}
	if err := u.Validate(); err != nil {
		return models.Utterance{}, err
	}
	s.Utterances = append(s.Utterances, u)
	s.UpdatedAt = now
	return u, nil
}

// RecordSystem appends the engine's outgoing utterance to the log.
func (m *Machine) RecordSystem(s *models.Session, text string, questionType models.QuestionType, now time.Time) {
	s.Utterances = append(s.Utterances, models.Utterance{
		ID:        uuid.NewString(),
		Role:      models.RoleSystem,
		Text:      text,
		Timestamp: now,
		Metadata:  models.TurnMetadata{QuestionType: questionType},
	})
	if questionType == models.QuestionClarification {
		s.Metrics.ClarificationCount++
	}
	s.UpdatedAt = now
}

// Apply advances the session state from one signal bundle: it updates the
// active topic node, blends running metrics, accrues objective evidence,
// derives contextual cues, and evaluates phase-transition triggers.
func (m *Machine) Apply(s *models.Session, u models.Utterance, sig models.SignalBundle, now time.Time) TurnUpdate {
	slog.Debug("Machine.Apply: applying signals", "sessionID", s.ID, "phase", s.Phase, "completeness", sig.Completeness)

	quality := turnQuality(sig)
	m.annotateUtterance(s, u.ID, quality)
	m.updateTopic(s, u.ID, sig)
	m.blendMetrics(s, sig, quality)
	m.accrueObjectives(s, sig, quality)

	update := TurnUpdate{Cues: m.deriveCues(s, sig, now)}

	if transition := m.evaluateTransition(s, update.Cues, now); transition != nil {
		update.Transition = transition
		update.Decisions = append(update.Decisions, m.recordDecision(s,
			models.DecisionAdvancePhase,
			transition.Reason,
			[]string{transition.Reason},
			0.9, now))
	} else if cueOfType(update.Cues, models.CueTopicSaturation) != nil && !s.Phase.IsTerminal() {
		update.Decisions = append(update.Decisions, m.recordDecision(s,
			models.DecisionChangeTopic,
			"rotate to an unexplored topic within the phase",
			[]string{string(models.CueTopicSaturation)},
			0.7, now))
	}

	if cue := cueOfType(update.Cues, models.CueEngagementDrop); cue != nil {
		update.Decisions = append(update.Decisions, m.recordDecision(s,
			models.DecisionAdaptStyle,
			cue.SuggestedAction,
			[]string{string(models.CueEngagementDrop)},
			cue.Confidence, now))
	}

	s.UpdatedAt = now
	return update
}

// annotateUtterance sets derived turn metadata on the just-recorded
// candidate utterance. Utterance text and identity stay immutable.
func (m *Machine) annotateUtterance(s *models.Session, utteranceID string, quality float64) {
	for i := len(s.Utterances) - 1; i >= 0; i-- {
		if s.Utterances[i].ID == utteranceID {
			s.Utterances[i].Metadata.QualityScore = quality
			s.Utterances[i].Metadata.FollowUpNeeded = quality < objectiveMatchQuality
			return
		}
	}
}

// updateTopic attaches the utterance to the active topic node, creating a
// node when a new subject is introduced. Depth never decreases.
func (m *Machine) updateTopic(s *models.Session, utteranceID string, sig models.SignalBundle) {
	label := s.ActiveTopic
	if len(sig.KeyTopics) > 0 {
		label = sig.KeyTopics[0]
	}
	if label == "" {
		if pt, ok := m.cfg.PhaseTemplate(s.Phase); ok && len(pt.KeyTopics) > 0 {
			label = pt.KeyTopics[0]
		} else {
			label = string(s.Phase)
		}
	}

	node, ok := s.Topics[label]
	if !ok {
		node = &models.TopicNode{Label: label, Phase: s.Phase, Depth: models.DepthSurface}
		s.Topics[label] = node
		slog.Debug("Machine.updateTopic: new topic opened", "sessionID", s.ID, "topic", label, "phase", s.Phase)
	}
	s.ActiveTopic = label

	node.UtteranceIDs = append(node.UtteranceIDs, utteranceID)
	switch n := len(node.UtteranceIDs); {
	case n >= 8:
		node.Deepen(models.DepthExhaustive)
	case n >= 5:
		node.Deepen(models.DepthDeep)
	case n >= 3:
		node.Deepen(models.DepthModerate)
	}
	node.TransitionPotential = clamp01(0.12*float64(len(node.UtteranceIDs)) + 0.08*float64(node.Depth.Rank()))

	if sig.TechnicalDepth > 0.7 && len(sig.SkillsRevealed) > 0 {
		node.Insights = append(node.Insights, fmt.Sprintf("strong technical signal: %s", strings.Join(sig.SkillsRevealed, ", ")))
	}
}

// blendMetrics updates running conversation metrics with EMA blending.
func (m *Machine) blendMetrics(s *models.Session, sig models.SignalBundle, quality float64) {
	engagement := sig.EngagementScore()
	if s.Metrics.TurnCount == 0 {
		s.Metrics.ConversationQuality = quality
		s.Metrics.EngagementLevel = engagement
		s.Metrics.TechnicalDepthAvg = sig.TechnicalDepth
	} else {
		s.Metrics.ConversationQuality = (1-metricAlpha)*s.Metrics.ConversationQuality + metricAlpha*quality
		s.Metrics.EngagementLevel = (1-metricAlpha)*s.Metrics.EngagementLevel + metricAlpha*engagement
		s.Metrics.TechnicalDepthAvg = (1-metricAlpha)*s.Metrics.TechnicalDepthAvg + metricAlpha*sig.TechnicalDepth
	}
	s.Metrics.TurnCount++
	s.Progress.QualityScore = s.Metrics.ConversationQuality
}

// accrueObjectives adds evidence to objectives touched by this turn.
// Completion latches: a completed objective is never reopened.
func (m *Machine) accrueObjectives(s *models.Session, sig models.SignalBundle, quality float64) {
	mentions := make(map[string]bool, len(sig.KeyTopics)+len(sig.SkillsRevealed))
	for _, t := range sig.KeyTopics {
		mentions[t] = true
	}
	for _, sk := range sig.SkillsRevealed {
		mentions[sk] = true
	}

	for _, o := range s.Objectives {
		if o.Completed {
			continue
		}
		matched := false
		desc := strings.ToLower(o.Description)
		for mention := range mentions {
			if strings.Contains(desc, mention) {
				matched = true
				break
			}
		}
		if !matched && o.Phase == s.Phase && quality > objectiveMatchQuality {
			matched = true
		}
		if !matched {
			continue
		}

		evidence := fmt.Sprintf("turn %d (%s phase) quality %.2f", s.Metrics.TurnCount, s.Phase, quality)
		o.AddEvidence(evidence, 0.5*quality+0.4*sig.Confidence+0.1)
		if o.Completed {
			m.markObjectiveComplete(s, o.ID)
		}
	}
}

// markObjectiveComplete moves an objective from remaining to completed in
// the phase-progress bookkeeping.
func (m *Machine) markObjectiveComplete(s *models.Session, id string) {
	for i, rid := range s.Progress.ObjectivesRemaining {
		if rid == id {
			s.Progress.ObjectivesRemaining = append(s.Progress.ObjectivesRemaining[:i], s.Progress.ObjectivesRemaining[i+1:]...)
			s.Progress.ObjectivesCompleted = append(s.Progress.ObjectivesCompleted, id)
			slog.Debug("Machine.markObjectiveComplete: objective completed", "sessionID", s.ID, "objectiveID", id)
			return
		}
	}
}

// evaluateTransition checks the three transition triggers and, when one
// fires, advances to the next phase in the fixed ordering.
func (m *Machine) evaluateTransition(s *models.Session, cues []models.ContextualCue, now time.Time) *models.PhaseTransition {
	if s.Phase.IsTerminal() {
		return nil
	}
	pt, ok := m.cfg.PhaseTemplate(s.Phase)
	if !ok {
		return nil
	}

	var reason string
	completion := m.requiredCompletionRatio(s)
	switch {
	case completion >= pt.TransitionThreshold:
		reason = "required objectives completed"
	case m.topicSaturated(s):
		reason = "topic saturation"
	case cueOfType(cues, models.CueTimePressure) != nil && s.PhaseElapsed(now) >= time.Duration(pt.MinMinutes)*time.Minute:
		reason = "time pressure"
	default:
		return nil
	}

	next, ok := models.NextPhase(s.Phase)
	if !ok {
		return nil
	}

	transition := &models.PhaseTransition{
		ID:             uuid.NewString(),
		From:           s.Phase,
		To:             next,
		Reason:         reason,
		Quality:        rateTransition(completion, s.Metrics.ConversationQuality),
		CompletionRate: completion,
		Timestamp:      now,
	}
	s.Transitions = append(s.Transitions, *transition)

	slog.Info("Machine.evaluateTransition: phase transition",
		"sessionID", s.ID, "from", transition.From, "to", transition.To,
		"reason", reason, "quality", transition.Quality, "completion", completion)

	m.seedPhase(s, next, now)
	s.ActiveTopic = ""
	return transition
}

// requiredCompletionRatio returns the fraction of the current phase's
// required objectives that are complete.
func (m *Machine) requiredCompletionRatio(s *models.Session) float64 {
	var total, done int
	for _, o := range s.Objectives {
		if o.Phase != s.Phase || !o.Required {
			continue
		}
		total++
		if o.Completed {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// topicSaturated reports whether the active topic has both high
// transition potential and enough attached utterances.
func (m *Machine) topicSaturated(s *models.Session) bool {
	node, ok := s.Topics[s.ActiveTopic]
	if !ok {
		return false
	}
	return node.TransitionPotential > topicSaturationPotential &&
		len(node.UtteranceIDs) >= topicSaturationUtterances
}

// rateTransition rates transition smoothness from the outgoing phase's
// completion percentage and the recent conversation-quality metric.
func rateTransition(completion, quality float64) models.TransitionQuality {
	score := 0.6*completion + 0.4*quality
	switch {
	case score >= 0.8:
		return models.TransitionSmooth
	case score >= 0.6:
		return models.TransitionAcceptable
	case score >= 0.4:
		return models.TransitionAbrupt
	default:
		return models.TransitionPoor
	}
}

// recordDecision appends an audit record of a flow decision.
func (m *Machine) recordDecision(s *models.Session, dtype models.FlowDecisionType, action string, signals []string, confidence float64, now time.Time) models.FlowDecision {
	d := models.FlowDecision{
		ID:                uuid.NewString(),
		Type:              dtype,
		TriggeringSignals: signals,
		Action:            action,
		Confidence:        confidence,
		Timestamp:         now,
	}
	s.Decisions = append(s.Decisions, d)
	return d
}

// RecordReallocation audits a time reallocation issued by the duration
// manager so the decision trail stays complete.
func (m *Machine) RecordReallocation(s *models.Session, action models.TimeAction, now time.Time) models.FlowDecision {
	return m.recordDecision(s, models.DecisionReallocateTime, string(action),
		[]string{string(models.CueTimePressure)}, 0.8, now)
}

// Conclude forces the session into the terminal conclusion phase. Used
// when the caller ends the interview. Forward-only: conclusion is the
// last phase, so this never moves the session backward.
func (m *Machine) Conclude(s *models.Session, now time.Time) {
	if !s.Phase.IsTerminal() {
		transition := models.PhaseTransition{
			ID:             uuid.NewString(),
			From:           s.Phase,
			To:             models.PhaseConclusion,
			Reason:         "caller ended interview",
			Quality:        rateTransition(m.requiredCompletionRatio(s), s.Metrics.ConversationQuality),
			CompletionRate: m.requiredCompletionRatio(s),
			Timestamp:      now,
		}
		s.Transitions = append(s.Transitions, transition)
		m.seedPhase(s, models.PhaseConclusion, now)
	}
	s.Concluded = true
	s.UpdatedAt = now
	slog.Info("Machine.Conclude: session concluded", "sessionID", s.ID, "turns", s.Metrics.TurnCount)
}

// Result builds the persisted interview result: a per-phase transcript of
// question/answer pairs plus closing metrics and objective outcomes.
func (m *Machine) Result(s *models.Session, now time.Time) models.InterviewResult {
	byPhase := make(map[models.Phase][]models.QA)
	phaseAt := func(ts time.Time) models.Phase {
		phase := models.PhaseIntroduction
		for _, tr := range s.Transitions {
			if !tr.Timestamp.After(ts) {
				phase = tr.To
			}
		}
		return phase
	}

	var pendingQuestion string
	var pendingPhase models.Phase
	for _, u := range s.Utterances {
		switch u.Role {
		case models.RoleSystem:
			pendingQuestion = u.Text
			pendingPhase = phaseAt(u.Timestamp)
		case models.RoleCandidate:
			if pendingQuestion == "" {
				continue
			}
			byPhase[pendingPhase] = append(byPhase[pendingPhase], models.QA{Question: pendingQuestion, Answer: u.Text})
			pendingQuestion = ""
		}
	}

	result := models.InterviewResult{
		SessionID:   s.ID,
		CompletedAt: now,
		Metrics:     s.Metrics,
		Objectives:  s.Snapshot().Objectives,
	}
	for _, phase := range models.PhaseOrder {
		if qas, ok := byPhase[phase]; ok {
			result.Phases = append(result.Phases, models.PhaseResult{Phase: phase, QuestionsAndAnswers: qas})
		}
	}
	return result
}

// turnQuality scores one candidate turn from its signal bundle.
func turnQuality(sig models.SignalBundle) float64 {
	return clamp01(0.5*sig.Completeness + 0.3*sig.TechnicalDepth + 0.2*sig.EngagementScore())
}

// cueOfType returns the first cue of the given type, or nil.
func cueOfType(cues []models.ContextualCue, t models.CueType) *models.ContextualCue {
	for i := range cues {
		if cues[i].Type == t {
			return &cues[i]
		}
	}
	return nil
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
