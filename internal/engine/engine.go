// Package engine orchestrates the per-turn interview pipeline: analyze
// the candidate's answer, update flow state, select the next question,
// render it, gate it for quality, and wrap failures in tiered recovery.
//
// Sessions are single-threaded: at most one turn is processed per
// session at a time. Turns for different sessions run concurrently.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/analyzer"
	"github.com/BTreeMap/InterviewPipe/internal/flow"
	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/quality"
	"github.com/BTreeMap/InterviewPipe/internal/recovery"
	"github.com/BTreeMap/InterviewPipe/internal/renderer"
	"github.com/BTreeMap/InterviewPipe/internal/selector"
	"github.com/BTreeMap/InterviewPipe/internal/store"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
)

// Engine wires the pipeline stages together over a shared store.
type Engine struct {
	cfg       *templates.Config
	analyzer  *analyzer.Analyzer
	machine   *flow.Machine
	selector  *selector.Selector
	validator *quality.Validator
	relevance *quality.RelevanceScorer
	duration  *quality.DurationManager
	recovery  *recovery.Manager
	renderer  *renderer.Renderer
	store     store.Store

	// now is swappable for tests.
	now func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New assembles an engine from its stages.
func New(cfg *templates.Config, r *renderer.Renderer, st store.Store, opts ...Option) (*Engine, error) {
	validator, err := quality.NewValidator(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build validator: %w", err)
	}
	e := &Engine{
		cfg:       cfg,
		analyzer:  analyzer.New(),
		machine:   flow.NewMachine(cfg),
		selector:  selector.New(cfg),
		validator: validator,
		relevance: quality.NewRelevanceScorer(),
		duration:  quality.NewDurationManager(cfg),
		recovery:  recovery.NewManager(),
		renderer:  r,
		store:     st,
		now:       time.Now,
		inflight:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	slog.Info("engine.New: engine assembled", "phases", len(cfg.Phases))
	return e, nil
}

// CreateSession starts an interview: it builds the session, renders the
// opening question, and persists the result.
func (e *Engine) CreateSession(ctx context.Context, req models.SessionCreateRequest) (*models.Session, error) {
	now := e.now()
	s, err := e.machine.NewSession(req, now)
	if err != nil {
		return nil, err
	}

	decision := models.QuestionDecision{
		Type:       models.QuestionOpenEnded,
		Difficulty: models.DifficultyEasy,
		Intent:     "open the interview and establish rapport",
		Confidence: 0.9,
	}
	if pt, ok := e.cfg.PhaseTemplate(s.Phase); ok && len(pt.KeyTopics) > 0 {
		decision.TargetTopic = pt.KeyTopics[0]
	}
	result := e.render(ctx, s, decision)
	e.machine.RecordSystem(s, result.Text, decision.Type, e.now())

	if err := e.store.SaveSession(s); err != nil {
		slog.Error("Engine.CreateSession: failed to save session", "error", err, "sessionID", s.ID)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	slog.Info("Engine.CreateSession: session started", "sessionID", s.ID)
	return s, nil
}

// ProcessTurn runs the full pipeline for one candidate answer and
// returns the turn outcome. A second concurrent turn for the same
// session is rejected with models.ErrTurnAlreadyInProgress.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID string, req models.TurnRequest) (*models.TurnOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := e.acquire(sessionID); err != nil {
		return nil, err
	}
	defer e.release(sessionID)

	s, err := e.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Concluded {
		return nil, models.ErrSessionConcluded
	}

	now := e.now()
	utterance, err := e.machine.RecordCandidate(s, req.Text, req.Sentiment, req.Entities, now)
	if err != nil {
		return nil, err
	}

	outcome := &models.TurnOutcome{}
	signals := e.analyzer.Analyze(utterance, s)
	outcome.Signals = signals

	update := e.machine.Apply(s, utterance, signals, now)
	outcome.Cues = update.Cues
	outcome.Decisions = update.Decisions

	assessment := e.duration.Assess(s, now)
	outcome.Duration = &assessment
	if assessment.Action != models.TimeActionContinue {
		outcome.Decisions = append(outcome.Decisions, e.machine.RecordReallocation(s, assessment.Action, now))
	}

	decision := e.selector.Select(s, signals, update.Cues, e.machine, now)

	rel := e.relevance.Score(s, signals, req.Text)
	outcome.Relevance = &rel
	decision = e.applyRelevance(s, decision, rel)
	if assessment.Action == models.TimeActionWrapUpEarly {
		decision.Type = models.QuestionClosing
		decision.Intent = "wrap up under critical time pressure"
	}
	outcome.Question = decision

	reply, fromFallback, validation, errCtx := e.renderAndGate(ctx, s, decision)
	outcome.Reply = reply
	outcome.FromFallback = fromFallback
	outcome.Validation = validation
	outcome.ErrorContext = errCtx

	e.machine.RecordSystem(s, reply, decision.Type, e.now())

	if s.Phase == models.PhaseConclusion {
		e.machine.Conclude(s, e.now())
		if err := e.store.SaveResult(e.machine.Result(s, e.now())); err != nil {
			slog.Error("Engine.ProcessTurn: failed to save result", "error", err, "sessionID", s.ID)
		}
	}

	outcome.Recommendations = e.recommendations(outcome)
	outcome.Session = s.Snapshot()

	if err := e.store.SaveSession(s); err != nil {
		slog.Error("Engine.ProcessTurn: failed to save session", "error", err, "sessionID", s.ID)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("Engine.ProcessTurn: turn completed",
		"sessionID", s.ID, "phase", s.Phase, "questionType", decision.Type,
		"fromFallback", fromFallback, "cues", len(outcome.Cues))
	return outcome, nil
}

// applyRelevance adjusts the question decision for conversation drift.
// A blocking deviation resets the conversation onto a known phase topic.
func (e *Engine) applyRelevance(s *models.Session, decision models.QuestionDecision, rel models.RelevanceResult) models.QuestionDecision {
	switch rel.Action {
	case models.RelevanceGentleRedirect:
		decision.Intent = "gently steer the conversation back to " + decision.TargetTopic
	case models.RelevanceExplicitRedirect:
		decision.Type = models.QuestionTransition
		decision.Intent = "explicitly redirect the conversation to " + decision.TargetTopic
	case models.RelevanceResetTopic:
		decision.Type = models.QuestionTransition
		if pt, ok := e.cfg.PhaseTemplate(s.Phase); ok && len(pt.KeyTopics) > 0 {
			decision.TargetTopic = pt.KeyTopics[0]
		}
		decision.Intent = "reset the conversation onto the phase agenda"
	}
	return decision
}

// renderAndGate renders the question and runs the quality gate. A
// rejected draft is retried once via the template fallback; a fallback
// that still fails critically is reported as a recovery situation.
func (e *Engine) renderAndGate(ctx context.Context, s *models.Session, decision models.QuestionDecision) (string, bool, *models.ValidationResult, *models.ErrorContext) {
	result := e.render(ctx, s, decision)
	validation := e.validator.Validate(result.Text)
	if validation.IsValid {
		return result.Text, result.FromFallback, &validation, nil
	}

	errType := models.ErrorValidationFailure
	severity := models.SeverityModerate
	if validation.FailedCritical {
		errType = models.ErrorInappropriateContent
		severity = models.SeverityMajor
	}
	ec := e.recovery.Classify(errType, severity, "render", "question draft rejected by quality gate", s, e.now())
	strategy := e.recovery.Plan(ec)
	slog.Info("Engine.renderAndGate: draft rejected, recovering",
		"sessionID", s.ID, "tier", strategy.Tier, "action", strategy.PrimaryAction)

	fallback := e.renderer.Fallback(models.RenderRequest{Question: decision, Phase: s.Phase})
	fv := e.validator.Validate(fallback.Text)
	if !fv.IsValid {
		// Template drafts are static and pre-vetted; a failure here means
		// the rule config itself is inconsistent with the templates.
		slog.Error("Engine.renderAndGate: fallback draft rejected", "sessionID", s.ID)
	}
	return fallback.Text, true, &fv, &ec
}

// render builds the render request for the current session state.
func (e *Engine) render(ctx context.Context, s *models.Session, decision models.QuestionDecision) models.RenderResult {
	return e.renderer.Render(ctx, models.RenderRequest{
		History:     recentHistory(s),
		Question:    decision,
		Style:       e.style(s),
		Constraints: e.constraints(),
		Phase:       s.Phase,
		Profile:     s.Profile,
	})
}

// style derives the render style from the running engagement metric:
// low engagement warms the tone, high engagement stays neutral.
func (e *Engine) style(s *models.Session) models.RenderStyle {
	style := models.RenderStyle{Tone: "neutral", Formality: "formal", Enthusiasm: "moderate"}
	if s.Metrics.TurnCount == 0 {
		return style
	}
	if s.Metrics.EngagementLevel < 0.4 {
		style.Tone = "warm"
		style.Enthusiasm = "high"
	} else if s.Metrics.EngagementLevel > 0.7 {
		style.Enthusiasm = "low"
	}
	if s.Phase == models.PhaseIntroduction || s.Phase == models.PhaseConclusion {
		style.Formality = "conversational"
	}
	return style
}

// constraints derives render constraints from the validation rule set so
// the renderer and the gate enforce the same limits.
func (e *Engine) constraints() models.RenderConstraints {
	c := models.RenderConstraints{}
	for _, r := range e.cfg.Validation.Rules {
		if len(r.ForbiddenTerms) > 0 {
			c.ForbiddenTerms = append(c.ForbiddenTerms, r.ForbiddenTerms...)
		}
		if r.MaxLength > 0 {
			c.MaxLength = r.MaxLength
		}
	}
	return c
}

// recommendations summarizes the turn for the caller: timing risk, flow
// moves, quality drift, and adaptation hints.
func (e *Engine) recommendations(outcome *models.TurnOutcome) []models.Recommendation {
	var recs []models.Recommendation

	switch outcome.Duration.Risk {
	case models.RiskCritical:
		recs = append(recs, models.Recommendation{
			Kind: models.RecommendationTiming, Priority: 1, ActionRequired: true,
			Message: "time budget nearly exhausted; wrap up and cover only required objectives",
		})
	case models.RiskHigh:
		recs = append(recs, models.Recommendation{
			Kind: models.RecommendationTiming, Priority: 2, ActionRequired: true,
			Message: "projected overrun; low-priority objectives have been demoted",
		})
	}

	if outcome.Relevance.Block {
		recs = append(recs, models.Recommendation{
			Kind: models.RecommendationQuality, Priority: 1, ActionRequired: true,
			Message: "conversation fully off track; resetting to the phase agenda",
		})
	}

	for _, cue := range outcome.Cues {
		switch cue.Type {
		case models.CueEngagementDrop:
			recs = append(recs, models.Recommendation{
				Kind: models.RecommendationAdaptation, Priority: 2,
				Message: "engagement dropping; switching to a warmer style with easier questions",
			})
		case models.CueExpertiseSignal:
			recs = append(recs, models.Recommendation{
				Kind: models.RecommendationFlow, Priority: 3,
				Message: "strong expertise signal; difficulty raised for the next questions",
			})
		case models.CueTopicSaturation:
			recs = append(recs, models.Recommendation{
				Kind: models.RecommendationFlow, Priority: 3,
				Message: "active topic saturated; a topic change is suggested",
			})
		}
	}

	if outcome.FromFallback {
		recs = append(recs, models.Recommendation{
			Kind: models.RecommendationQuality, Priority: 3,
			Message: "question served from a fallback template",
		})
	}
	return recs
}

// GetSession loads a session by ID.
func (e *Engine) GetSession(id string) (*models.Session, error) {
	return e.store.GetSession(id)
}

// Decisions returns the session's flow-decision audit trail.
func (e *Engine) Decisions(id string) ([]models.FlowDecision, []models.PhaseTransition, error) {
	s, err := e.store.GetSession(id)
	if err != nil {
		return nil, nil, err
	}
	return s.Decisions, s.Transitions, nil
}

// EndSession concludes the interview, persists the final result, and
// returns it. Ending an already-concluded session returns the stored
// result unchanged.
func (e *Engine) EndSession(ctx context.Context, id string) (*models.InterviewResult, error) {
	if err := e.acquire(id); err != nil {
		return nil, err
	}
	defer e.release(id)

	s, err := e.store.GetSession(id)
	if err != nil {
		return nil, err
	}
	if s.Concluded {
		return e.store.GetResult(id)
	}

	now := e.now()
	e.machine.Conclude(s, now)
	result := e.machine.Result(s, now)
	if err := e.store.SaveResult(result); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	if err := e.store.SaveSession(s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	slog.Info("Engine.EndSession: interview ended", "sessionID", id)
	return &result, nil
}

// SweepExpiredSessions concludes every open session whose time budget
// has run out. Intended to be run periodically by the scheduler.
func (e *Engine) SweepExpiredSessions(ctx context.Context) {
	sessions, err := e.store.ListSessions()
	if err != nil {
		slog.Error("Engine.SweepExpiredSessions: failed to list sessions", "error", err)
		return
	}

	now := e.now()
	swept := 0
	for _, s := range sessions {
		if s.Concluded || s.Remaining(now) > 0 {
			continue
		}
		if _, err := e.EndSession(ctx, s.ID); err != nil {
			slog.Error("Engine.SweepExpiredSessions: failed to end session", "error", err, "sessionID", s.ID)
			continue
		}
		swept++
	}
	if swept > 0 {
		slog.Info("Engine.SweepExpiredSessions: expired sessions concluded", "count", swept)
	}
}

// acquire marks the session as having a turn in flight.
func (e *Engine) acquire(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[sessionID] {
		return models.ErrTurnAlreadyInProgress
	}
	e.inflight[sessionID] = true
	return nil
}

func (e *Engine) release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, sessionID)
}

// recentHistory returns the trailing utterances for prompt context.
func recentHistory(s *models.Session) []models.Utterance {
	const window = 10
	if len(s.Utterances) <= window {
		return s.Utterances
	}
	return s.Utterances[len(s.Utterances)-window:]
}
