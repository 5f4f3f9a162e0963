package models

// EmotionalState summarizes the candidate's emotional/engagement state for
// one utterance, chosen by thresholding sentiment and emotion scores.
type EmotionalState string

const (
	StateEnthusiastic EmotionalState = "enthusiastic"
	StateNervous      EmotionalState = "nervous"
	StateConfident    EmotionalState = "confident"
	StateFrustrated   EmotionalState = "frustrated"
	StatePositive     EmotionalState = "positive"
	StateNegative     EmotionalState = "negative"
	StateNeutral      EmotionalState = "neutral"
)

// InformationGap flags a heuristic hole in the candidate's answer.
type InformationGap string

const (
	GapTechnicalStack   InformationGap = "missing_technical_stack"
	GapQuantitativeData InformationGap = "missing_quantitative_metric"
	GapTeamContext      InformationGap = "missing_team_context"
	GapChallengeDetail  InformationGap = "missing_challenge_description"
)

// SignalBundle is the response analyzer's output for one candidate
// utterance: a pure function of the utterance and the session snapshot.
type SignalBundle struct {
	Completeness    float64          `json:"completeness"`    // [0,1]
	TechnicalDepth  float64          `json:"technical_depth"` // [0,1]
	EmotionalState  EmotionalState   `json:"emotional_state"`
	KeyTopics       []string         `json:"key_topics,omitempty"`
	SkillsRevealed  []string         `json:"skills_revealed,omitempty"`
	InformationGaps []InformationGap `json:"information_gaps,omitempty"`
	Confidence      float64          `json:"confidence"` // overall analysis confidence [0,1]
}

// HasGap reports whether the bundle flags the given information gap.
func (b SignalBundle) HasGap(g InformationGap) bool {
	for _, gap := range b.InformationGaps {
		if gap == g {
			return true
		}
	}
	return false
}

// EngagementScore maps the emotional state onto a coarse engagement level
// used for metric blending and cue derivation.
func (b SignalBundle) EngagementScore() float64 {
	switch b.EmotionalState {
	case StateEnthusiastic:
		return 0.9
	case StateConfident:
		return 0.8
	case StatePositive:
		return 0.7
	case StateNeutral:
		return 0.5
	case StateNervous:
		return 0.4
	case StateNegative:
		return 0.3
	case StateFrustrated:
		return 0.2
	default:
		return 0.5
	}
}
