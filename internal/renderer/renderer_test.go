package renderer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockCompleter returns a canned completion or error and records the
// request it received.
type mockCompleter struct {
	content string
	err     error
	empty   bool

	gotParams openai.ChatCompletionNewParams
}

func (m *mockCompleter) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.gotParams = body
	if m.err != nil {
		return nil, m.err
	}
	if m.empty {
		return &openai.ChatCompletion{}, nil
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.content}},
		},
	}, nil
}

func renderRequest() models.RenderRequest {
	return models.RenderRequest{
		Phase: models.PhaseTechnical,
		Question: models.QuestionDecision{
			Type:        models.QuestionTechnical,
			Difficulty:  models.DifficultyMedium,
			TargetTopic: "caching",
			Intent:      "validate a newly revealed skill",
		},
		Style: models.RenderStyle{Tone: "neutral", Formality: "formal", Enthusiasm: "moderate"},
	}
}

func TestRenderParsesJSONCompletion(t *testing.T) {
	mock := &mockCompleter{content: `{"question": "How did you size the cache?", "confidence": 0.85, "scores": {"clarity": 0.9}}`}
	r := New("", WithChatCompleter(mock))

	result := r.Render(context.Background(), renderRequest())
	if result.Text != "How did you size the cache?" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Confidence != 0.85 {
		t.Errorf("confidence = %.2f, want 0.85", result.Confidence)
	}
	if result.FromFallback {
		t.Error("successful completion must not be marked as fallback")
	}
	if result.Scores.Clarity != 0.9 {
		t.Errorf("clarity sub-score = %.2f, want 0.9", result.Scores.Clarity)
	}
}

func TestRenderStripsCodeFences(t *testing.T) {
	mock := &mockCompleter{content: "```json\n{\"question\": \"What cache eviction policy did you pick?\", \"confidence\": 0.8}\n```"}
	r := New("", WithChatCompleter(mock))

	result := r.Render(context.Background(), renderRequest())
	if result.Text != "What cache eviction policy did you pick?" {
		t.Errorf("fenced JSON not parsed, got %q", result.Text)
	}
}

func TestRenderNonJSONUsesRawText(t *testing.T) {
	mock := &mockCompleter{content: "Tell me how you approached cache invalidation on that project."}
	r := New("", WithChatCompleter(mock))

	result := r.Render(context.Background(), renderRequest())
	if result.Text != mock.content {
		t.Errorf("raw text not preserved, got %q", result.Text)
	}
	if result.Confidence != 0.6 {
		t.Errorf("raw-text confidence = %.2f, want 0.6", result.Confidence)
	}
}

func TestRenderDefaultsZeroConfidence(t *testing.T) {
	mock := &mockCompleter{content: `{"question": "What did the rollout look like?"}`}
	r := New("", WithChatCompleter(mock))

	result := r.Render(context.Background(), renderRequest())
	if result.Confidence != 0.7 {
		t.Errorf("defaulted confidence = %.2f, want 0.7", result.Confidence)
	}
}

func TestRenderFallsBackOnError(t *testing.T) {
	tests := []struct {
		name string
		mock *mockCompleter
	}{
		{"completion error", &mockCompleter{err: errors.New("rate limited")}},
		{"no choices", &mockCompleter{empty: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("", WithChatCompleter(tt.mock))
			result := r.Render(context.Background(), renderRequest())
			if !result.FromFallback {
				t.Fatal("expected fallback result")
			}
			if result.Text == "" {
				t.Error("fallback must never be empty")
			}
			if !strings.Contains(result.Text, "caching") {
				t.Errorf("fallback should target the decision topic, got %q", result.Text)
			}
			if result.Confidence != fallbackConfidence {
				t.Errorf("fallback confidence = %.2f, want %.2f", result.Confidence, fallbackConfidence)
			}
		})
	}
}

func TestRenderTemplateOnlyWithoutClient(t *testing.T) {
	r := New("")
	result := r.Render(context.Background(), renderRequest())
	if !result.FromFallback {
		t.Error("template-only renderer must use the fallback")
	}
}

func TestRenderPromptCarriesConstraintsAndHistory(t *testing.T) {
	mock := &mockCompleter{content: `{"question": "ok?", "confidence": 0.9}`}
	r := New("", WithChatCompleter(mock))

	req := renderRequest()
	req.Constraints = models.RenderConstraints{
		MaxLength:      300,
		ForbiddenTerms: []string{"salary history"},
	}
	req.History = []models.Utterance{
		{Role: models.RoleSystem, Text: "What does your stack look like?"},
		{Role: models.RoleCandidate, Text: "Mostly Go services over Postgres."},
	}
	r.Render(context.Background(), req)

	sys := mock.gotParams.Messages[0].OfSystem.Content.OfString.Value
	if !strings.Contains(sys, "salary history") {
		t.Error("system prompt missing forbidden terms")
	}
	if !strings.Contains(sys, "300 characters") {
		t.Error("system prompt missing length constraint")
	}

	user := mock.gotParams.Messages[1].OfUser.Content.OfString.Value
	if !strings.Contains(user, "Mostly Go services over Postgres.") {
		t.Error("user prompt missing transcript history")
	}
	if !strings.Contains(user, `"caching"`) {
		t.Error("user prompt missing the target topic")
	}
}

func TestFallbackTruncatesToMaxLength(t *testing.T) {
	r := New("")
	req := renderRequest()
	req.Constraints.MaxLength = 20

	result := r.Fallback(req)
	if len(result.Text) > 20 {
		t.Errorf("fallback length %d exceeds the constraint", len(result.Text))
	}
}

func TestFallbackCoversEveryQuestionType(t *testing.T) {
	r := New("")
	types := []models.QuestionType{
		models.QuestionOpenEnded, models.QuestionClarification, models.QuestionDeepDive,
		models.QuestionTechnical, models.QuestionBehavioral, models.QuestionSituational,
		models.QuestionTransition, models.QuestionClosing,
	}
	for _, qt := range types {
		req := renderRequest()
		req.Question.Type = qt
		if r.Fallback(req).Text == "" {
			t.Errorf("no fallback template for question type %s", qt)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced object", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", `Sure! {"a":1} Hope that helps.`, `{"a":1}`},
		{"no object at all", "just text", "just text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildStyleGuideAxes(t *testing.T) {
	guide := BuildStyleGuide(models.RenderStyle{Tone: "warm", Formality: "conversational", Enthusiasm: "high"})
	for _, want := range []string{"warm", "conversational", "genuine interest", "exactly one question"} {
		if !strings.Contains(guide, want) {
			t.Errorf("style guide missing %q:\n%s", want, guide)
		}
	}

	// Unset axes contribute nothing beyond the fixed closing line.
	minimal := BuildStyleGuide(models.RenderStyle{})
	if strings.Count(minimal, "\n") != 1 {
		t.Errorf("empty style should produce one line, got:\n%q", minimal)
	}
}
