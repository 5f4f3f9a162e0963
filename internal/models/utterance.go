package models

import "time"

// Role identifies the speaker of an utterance.
type Role string

const (
	// RoleCandidate marks an utterance spoken by the candidate.
	RoleCandidate Role = "candidate"
	// RoleSystem marks an utterance produced by the interview engine.
	RoleSystem Role = "system"
)

// EntityType classifies an extracted mention in an utterance.
type EntityType string

const (
	EntityTypeSkill      EntityType = "skill"
	EntityTypeTechnology EntityType = "technology"
	EntityTypeCompany    EntityType = "company"
	EntityTypeRole       EntityType = "role"
	EntityTypeMetric     EntityType = "metric"
	EntityTypeTeam       EntityType = "team"
)

// Entity is an extracted mention attached to an utterance.
type Entity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"` // [0,1]
}

// Emotion names a tracked emotion intensity in a sentiment bundle.
type Emotion string

const (
	EmotionEnthusiasm  Emotion = "enthusiasm"
	EmotionConfidence  Emotion = "confidence"
	EmotionFrustration Emotion = "frustration"
	EmotionNervousness Emotion = "nervousness"
)

// SentimentBundle carries polarity and named emotion intensities for one
// utterance. It is optional; a missing bundle degrades to neutral defaults.
type SentimentBundle struct {
	Polarity   float64             `json:"polarity"`   // [-1,1]
	Confidence float64             `json:"confidence"` // [0,1]
	Emotions   map[Emotion]float64 `json:"emotions,omitempty"`
}

// TurnMetadata holds per-turn derived annotations on an utterance.
type TurnMetadata struct {
	QuestionType   QuestionType `json:"question_type,omitempty"` // inferred type of the question this answers
	QualityScore   float64      `json:"quality_score"`           // computed response-quality score [0,1]
	FollowUpNeeded bool         `json:"follow_up_needed"`
}

// Utterance is one exchange in the interview log. Immutable once recorded.
type Utterance struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Text      string           `json:"text"`
	Timestamp time.Time        `json:"timestamp"`
	Entities  []Entity         `json:"entities,omitempty"`
	Sentiment *SentimentBundle `json:"sentiment,omitempty"`
	Metadata  TurnMetadata     `json:"metadata"`
}

// Validate checks an incoming candidate utterance before processing.
func (u *Utterance) Validate() error {
	if u.Text == "" {
		return ErrEmptyUtterance
	}
	if len(u.Text) > MaxUtteranceLength {
		return ErrUtteranceTooLong
	}
	return nil
}
