// Package renderer turns question decisions into natural-language
// interviewer utterances via the OpenAI chat-completions API.
//
// Rendering is the engine's sole suspension point: every call is bounded
// by a timeout, and any failure falls back to a deterministic template so
// a turn always produces a question.
package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultTimeout bounds one completion call.
const DefaultTimeout = 12 * time.Second

// historyWindow caps how many trailing utterances go into the prompt.
const historyWindow = 10

// ChatCompleter is the minimal chat-completion surface the renderer
// needs. *openai.ChatCompletionService satisfies it.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Renderer renders interviewer questions with an LLM, falling back to
// templates when the model is unavailable or times out.
type Renderer struct {
	chat    ChatCompleter
	model   openai.ChatModel
	timeout time.Duration
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithModel overrides the completion model.
func WithModel(model openai.ChatModel) Option {
	return func(r *Renderer) { r.model = model }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) { r.timeout = d }
}

// WithChatCompleter injects a chat-completion client, used by tests to
// substitute a mock.
func WithChatCompleter(c ChatCompleter) Option {
	return func(r *Renderer) { r.chat = c }
}

// New creates a renderer. When no client is injected, the API key is
// required; with an empty key the renderer runs in template-only mode.
func New(apiKey string, opts ...Option) *Renderer {
	r := &Renderer{
		model:   openai.ChatModelGPT4oMini,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.chat == nil && apiKey != "" {
		client := openai.NewClient(option.WithAPIKey(apiKey))
		r.chat = &client.Chat.Completions
	}
	if r.chat == nil {
		slog.Info("renderer.New: no API key configured, running template-only")
	}
	return r
}

// completionPayload is the JSON document the model is asked to return.
type completionPayload struct {
	Question   string                  `json:"question"`
	Confidence float64                 `json:"confidence"`
	Scores     models.QualitySubScores `json:"scores"`
}

// Render produces the interviewer's next utterance. Failures degrade to
// the fallback template for the decision's question type; Render never
// returns an empty utterance.
func (r *Renderer) Render(ctx context.Context, req models.RenderRequest) models.RenderResult {
	if r.chat == nil {
		return r.fallback(req)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(r.systemPrompt(req)),
			openai.UserMessage(r.userPrompt(req)),
		},
	})
	if err != nil {
		slog.Error("Renderer.Render: completion failed, using fallback", "error", err, "questionType", req.Question.Type)
		return r.fallback(req)
	}
	if len(resp.Choices) == 0 {
		slog.Error("Renderer.Render: completion returned no choices, using fallback", "questionType", req.Question.Type)
		return r.fallback(req)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var payload completionPayload
	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil || strings.TrimSpace(payload.Question) == "" {
		// Model ignored the JSON contract; treat the raw text as the question.
		slog.Debug("Renderer.Render: non-JSON completion, using raw text", "length", len(content))
		return models.RenderResult{Text: content, Confidence: 0.6}
	}

	if payload.Confidence <= 0 {
		payload.Confidence = 0.7
	}
	return models.RenderResult{
		Text:       strings.TrimSpace(payload.Question),
		Confidence: payload.Confidence,
		Scores:     payload.Scores,
	}
}

// systemPrompt assembles the interviewer persona, style guide, and hard
// constraints for the completion call.
func (r *Renderer) systemPrompt(req models.RenderRequest) string {
	var b strings.Builder
	b.WriteString("You are a professional job interviewer conducting the ")
	b.WriteString(string(req.Phase))
	b.WriteString(" phase of an interview.\n")
	b.WriteString(BuildStyleGuide(req.Style))
	if req.Constraints.MaxLength > 0 {
		fmt.Fprintf(&b, "Keep the question under %d characters.\n", req.Constraints.MaxLength)
	}
	if len(req.Constraints.ForbiddenTerms) > 0 {
		fmt.Fprintf(&b, "Never mention: %s.\n", strings.Join(req.Constraints.ForbiddenTerms, ", "))
	}
	for _, flag := range req.Constraints.CulturalFlags {
		fmt.Fprintf(&b, "Cultural note: %s.\n", flag)
	}
	b.WriteString(`Respond with a JSON object: {"question": string, "confidence": number 0-1, ` +
		`"scores": {"clarity": n, "relevance": n, "engagement": n, "appropriateness": n, "naturalness": n, "consistency": n}}.`)
	return b.String()
}

// userPrompt assembles the recent transcript and the question decision.
func (r *Renderer) userPrompt(req models.RenderRequest) string {
	var b strings.Builder

	if req.Profile != nil && req.Profile.Summary != "" {
		fmt.Fprintf(&b, "Candidate summary: %s\n\n", req.Profile.Summary)
	}

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("Recent exchange:\n")
		for _, u := range history {
			role := "Interviewer"
			if u.Role == models.RoleCandidate {
				role = "Candidate"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, u.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Ask one %s question (difficulty: %s) about %q.\n",
		req.Question.Type, req.Question.Difficulty, req.Question.TargetTopic)
	fmt.Fprintf(&b, "Intent: %s.\n", req.Question.Intent)
	if len(req.Question.FollowUps) > 0 {
		parts := make([]string, len(req.Question.FollowUps))
		for i, f := range req.Question.FollowUps {
			parts[i] = string(f)
		}
		fmt.Fprintf(&b, "If natural, angle toward: %s.\n", strings.Join(parts, ", "))
	}
	return b.String()
}

// extractJSON trims markdown code fences the model sometimes wraps
// around JSON output.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	if start := strings.IndexByte(content, '{'); start >= 0 {
		if end := strings.LastIndexByte(content, '}'); end > start {
			return content[start : end+1]
		}
	}
	return content
}
