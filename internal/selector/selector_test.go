package selector

import (
	"testing"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/flow"
	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestSelector(t *testing.T) (*Selector, *flow.Machine, *models.Session) {
	t.Helper()
	cfg, err := templates.Load()
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	machine := flow.NewMachine(cfg)
	s, err := machine.NewSession(models.SessionCreateRequest{
		Objectives:    []models.ObjectiveSpec{{Description: "core skills"}},
		BudgetMinutes: 60,
	}, testNow.Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return New(cfg), machine, s
}

func TestSelectPrecedence(t *testing.T) {
	sel, machine, s := newTestSelector(t)
	s.Phase = models.PhaseTechnical

	tests := []struct {
		name string
		sig  models.SignalBundle
		want models.QuestionType
	}{
		{"incomplete answer wins", models.SignalBundle{
			Completeness: 0.3, TechnicalDepth: 0.9, SkillsRevealed: []string{"Go"},
		}, models.QuestionClarification},
		{"deep answer triggers deep dive", models.SignalBundle{
			Completeness: 0.8, TechnicalDepth: 0.85,
		}, models.QuestionDeepDive},
		{"behavioral keyword routes to behavioral", models.SignalBundle{
			Completeness: 0.8, TechnicalDepth: 0.4, KeyTopics: []string{"conflict"},
		}, models.QuestionBehavioral},
		{"revealed skill routes to technical", models.SignalBundle{
			Completeness: 0.8, TechnicalDepth: 0.4, SkillsRevealed: []string{"Kafka"},
		}, models.QuestionTechnical},
		{"otherwise the phase default", models.SignalBundle{
			Completeness: 0.8, TechnicalDepth: 0.4,
		}, models.QuestionTechnical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sel.Select(s, tt.sig, nil, machine, testNow)
			if d.Type != tt.want {
				t.Errorf("selected %s, want %s", d.Type, tt.want)
			}
		})
	}
}

func TestSelectDifficultyBands(t *testing.T) {
	sel, machine, s := newTestSelector(t)
	s.Phase = models.PhaseTechnical

	tests := []struct {
		depth float64
		want  models.Difficulty
	}{
		{0.9, models.DifficultyHard},
		{0.6, models.DifficultyMedium},
		{0.3, models.DifficultyEasy},
	}
	for _, tt := range tests {
		d := sel.Select(s, models.SignalBundle{Completeness: 0.8, TechnicalDepth: tt.depth}, nil, machine, testNow)
		if d.Difficulty != tt.want {
			t.Errorf("depth %.1f selected difficulty %s, want %s", tt.depth, d.Difficulty, tt.want)
		}
	}
}

func TestSelectClarificationsStayEasy(t *testing.T) {
	sel, machine, s := newTestSelector(t)

	// Incomplete but technically deep: the clarification must stay easy.
	d := sel.Select(s, models.SignalBundle{Completeness: 0.2, TechnicalDepth: 0.95}, nil, machine, testNow)
	if d.Type != models.QuestionClarification {
		t.Fatalf("selected %s, want clarification", d.Type)
	}
	if d.Difficulty != models.DifficultyEasy {
		t.Errorf("clarification difficulty = %s, want easy", d.Difficulty)
	}
}

func TestFollowUpsPrioritizeGaps(t *testing.T) {
	sel, machine, s := newTestSelector(t)

	sig := models.SignalBundle{
		Completeness: 0.8,
		InformationGaps: []models.InformationGap{
			models.GapQuantitativeData,
			models.GapTeamContext,
		},
	}
	d := sel.Select(s, sig, nil, machine, testNow)
	if len(d.FollowUps) != 3 {
		t.Fatalf("follow-ups = %v, want 3 entries", d.FollowUps)
	}
	if d.FollowUps[0] != models.FollowUpQuantitativeDetail {
		t.Errorf("first follow-up = %s, want quantitative detail", d.FollowUps[0])
	}
	if d.FollowUps[1] != models.FollowUpTeamDynamics {
		t.Errorf("second follow-up = %s, want team dynamics", d.FollowUps[1])
	}
}

func TestFollowUpRotationVariesWithUtteranceCount(t *testing.T) {
	sel, machine, s := newTestSelector(t)
	sig := models.SignalBundle{Completeness: 0.8}

	first := sel.Select(s, sig, nil, machine, testNow).FollowUps
	s.Utterances = append(s.Utterances, models.Utterance{ID: "u1"}, models.Utterance{ID: "u2"})
	second := sel.Select(s, sig, nil, machine, testNow).FollowUps

	if len(first) == 0 || len(second) == 0 {
		t.Fatal("expected rotation follow-ups in both selections")
	}
	if first[0] == second[0] {
		t.Errorf("rotation did not advance: both start with %s", first[0])
	}
}

func TestBranchingRulesSortedByPriority(t *testing.T) {
	sel, machine, s := newTestSelector(t)
	s.Phase = models.PhaseTechnical
	s.TotalBudget = 60 * time.Minute
	s.StartedAt = testNow.Add(-55 * time.Minute)

	// Incomplete + deep + short-on-time: three rules apply.
	sig := models.SignalBundle{Completeness: 0.3, TechnicalDepth: 0.9, EmotionalState: models.StateNeutral}
	d := sel.Select(s, sig, nil, machine, testNow)

	if len(d.Branching) < 3 {
		t.Fatalf("expected at least 3 applicable branching rules, got %d", len(d.Branching))
	}
	for i := 1; i < len(d.Branching); i++ {
		if d.Branching[i].Priority < d.Branching[i-1].Priority {
			t.Errorf("branching rules out of priority order: %+v", d.Branching)
		}
	}
	if last := d.Branching[len(d.Branching)-1]; last.Condition != models.ConditionTechnicalDetail {
		t.Errorf("lowest-priority rule = %s, want technical_detail", last.Condition)
	}
}

func TestTargetTopicFallbackChain(t *testing.T) {
	sel, machine, s := newTestSelector(t)

	// Fresh key topic wins.
	d := sel.Select(s, models.SignalBundle{Completeness: 0.8, KeyTopics: []string{"observability"}}, nil, machine, testNow)
	if d.TargetTopic != "observability" {
		t.Errorf("target topic = %q, want observability", d.TargetTopic)
	}

	// Then the session's active topic.
	s.ActiveTopic = "databases"
	d = sel.Select(s, models.SignalBundle{Completeness: 0.8}, nil, machine, testNow)
	if d.TargetTopic != "databases" {
		t.Errorf("target topic = %q, want databases", d.TargetTopic)
	}

	// Then the phase template's first key topic.
	s.ActiveTopic = ""
	d = sel.Select(s, models.SignalBundle{Completeness: 0.8}, nil, machine, testNow)
	if d.TargetTopic != "welcome" {
		t.Errorf("target topic = %q, want welcome", d.TargetTopic)
	}
}

func TestTopicSuggestionsRequireAReasonToMove(t *testing.T) {
	sel, machine, s := newTestSelector(t)
	sig := models.SignalBundle{Completeness: 0.8}

	// A settled conversation gets no nudge toward other topics.
	d := sel.Select(s, sig, nil, machine, testNow)
	if len(d.TopicSuggestions) != 0 {
		t.Errorf("suggestions without any cue: %+v", d.TopicSuggestions)
	}

	tests := []struct {
		name string
		cue  models.CueType
	}{
		{"engagement drop", models.CueEngagementDrop},
		{"topic saturation", models.CueTopicSaturation},
		{"time pressure", models.CueTimePressure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cues := []models.ContextualCue{{Type: tt.cue, RaisedAt: testNow}}
			d := sel.Select(s, sig, cues, machine, testNow)
			if len(d.TopicSuggestions) == 0 {
				t.Errorf("expected topic suggestions under a %s cue", tt.cue)
			}
		})
	}

	// Cues that say nothing about topic fatigue do not trigger a move.
	cues := []models.ContextualCue{{Type: models.CueExpertiseSignal, RaisedAt: testNow}}
	d = sel.Select(s, sig, cues, machine, testNow)
	if len(d.TopicSuggestions) != 0 {
		t.Errorf("suggestions under an expertise cue alone: %+v", d.TopicSuggestions)
	}
}

func TestSelectConfidenceTracksSignalQuality(t *testing.T) {
	sel, machine, s := newTestSelector(t)

	strong := sel.Select(s, models.SignalBundle{
		Completeness: 0.3, Confidence: 0.9, EmotionalState: models.StateEnthusiastic,
	}, nil, machine, testNow)
	weak := sel.Select(s, models.SignalBundle{
		Completeness: 0.8, Confidence: 0.2, EmotionalState: models.StateNeutral,
	}, nil, machine, testNow)

	if strong.Confidence <= weak.Confidence {
		t.Errorf("strong-signal confidence %.2f should exceed weak-signal %.2f", strong.Confidence, weak.Confidence)
	}
	if strong.Confidence < 0 || strong.Confidence > 1 {
		t.Errorf("confidence %.2f outside [0,1]", strong.Confidence)
	}
}
