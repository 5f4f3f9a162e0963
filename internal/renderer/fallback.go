package renderer

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// fallbackConfidence is reported for template-rendered questions.
const fallbackConfidence = 0.4

// fallbackTemplates provides one deterministic question per type; %s is
// the target topic.
var fallbackTemplates = map[models.QuestionType]string{
	models.QuestionOpenEnded:     "Could you tell me more about your experience with %s?",
	models.QuestionClarification: "I want to make sure I understood — could you expand on what you meant about %s?",
	models.QuestionDeepDive:      "Let's go deeper on %s. Can you walk me through the design decisions you made there?",
	models.QuestionTechnical:     "How have you applied %s in a recent project, and what trade-offs did you run into?",
	models.QuestionBehavioral:    "Tell me about a time %s played a role in how you worked with your team.",
	models.QuestionSituational:   "Imagine you joined a team facing problems with %s. How would you approach your first two weeks?",
	models.QuestionTransition:    "Thanks — that's helpful. Shifting gears a bit, I'd like to talk about %s.",
	models.QuestionClosing:       "Before we wrap up, is there anything about %s you'd like to ask me?",
}

// Fallback renders the deterministic template question without calling
// the model. The engine uses it when a rendered draft fails the gate.
func (r *Renderer) Fallback(req models.RenderRequest) models.RenderResult {
	return r.fallback(req)
}

// fallback renders the deterministic template for the decision's type.
func (r *Renderer) fallback(req models.RenderRequest) models.RenderResult {
	tpl, ok := fallbackTemplates[req.Question.Type]
	if !ok {
		tpl = fallbackTemplates[models.QuestionOpenEnded]
	}
	topic := req.Question.TargetTopic
	if topic == "" {
		topic = "your recent work"
	}
	text := fmt.Sprintf(tpl, topic)
	if req.Constraints.MaxLength > 0 && len(text) > req.Constraints.MaxLength {
		text = text[:req.Constraints.MaxLength]
	}
	return models.RenderResult{
		Text:         text,
		Confidence:   fallbackConfidence,
		FromFallback: true,
	}
}

// BuildStyleGuide turns the render style into prompt instructions. Each
// style axis contributes one line; unset axes contribute nothing.
func BuildStyleGuide(style models.RenderStyle) string {
	var lines []string
	switch style.Tone {
	case "warm":
		lines = append(lines, "Use a warm, encouraging tone.")
	case "neutral":
		lines = append(lines, "Keep a neutral, professional tone.")
	case "direct":
		lines = append(lines, "Be direct and to the point.")
	}
	switch style.Formality {
	case "formal":
		lines = append(lines, "Use formal language; no slang.")
	case "conversational":
		lines = append(lines, "Keep the language conversational and relaxed.")
	}
	switch style.Enthusiasm {
	case "high":
		lines = append(lines, "Show genuine interest in the candidate's answers.")
	case "low":
		lines = append(lines, "Stay measured; avoid exclamation.")
	}
	lines = append(lines, "Ask exactly one question per turn.")
	return strings.Join(lines, "\n") + "\n"
}
