package models

// RenderStyle is the target style passed to the utterance renderer.
type RenderStyle struct {
	Tone       string `json:"tone"`       // e.g., "warm", "neutral", "encouraging"
	Formality  string `json:"formality"`  // e.g., "formal", "conversational"
	Enthusiasm string `json:"enthusiasm"` // e.g., "low", "moderate", "high"
}

// RenderConstraints bound the renderer's output.
type RenderConstraints struct {
	MaxLength      int      `json:"max_length"`
	ForbiddenTerms []string `json:"forbidden_terms,omitempty"`
	CulturalFlags  []string `json:"cultural_flags,omitempty"`
}

// RenderRequest is the structured request sent to the utterance renderer.
type RenderRequest struct {
	History     []Utterance       `json:"history"`
	Question    QuestionDecision  `json:"question"`
	Style       RenderStyle       `json:"style"`
	Constraints RenderConstraints `json:"constraints"`
	Phase       Phase             `json:"phase"`
	Profile     *CandidateProfile `json:"profile,omitempty"`
}

// QualitySubScores are the renderer's self-reported quality dimensions.
type QualitySubScores struct {
	Clarity         float64 `json:"clarity"`
	Relevance       float64 `json:"relevance"`
	Engagement      float64 `json:"engagement"`
	Appropriateness float64 `json:"appropriateness"`
	Naturalness     float64 `json:"naturalness"`
	Consistency     float64 `json:"consistency"`
}

// RenderResult is the renderer's draft output before gatekeeping.
type RenderResult struct {
	Text         string           `json:"text"`
	Confidence   float64          `json:"confidence"`
	Scores       QualitySubScores `json:"scores"`
	FromFallback bool             `json:"from_fallback"` // true when a template fallback was used
}
