package quality

import (
	"log/slog"
	"strings"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// Relevance score composition and deviation bucketing.
const (
	topicWeight     = 0.6
	objectiveWeight = 0.4

	deviationMinor    = 0.2
	deviationModerate = 0.4
	deviationMajor    = 0.6
	deviationComplete = 0.85
)

// RelevanceScorer measures how far a candidate answer drifted from the
// active topic and the phase objectives, and recommends a redirect
// action proportional to the drift.
type RelevanceScorer struct{}

// NewRelevanceScorer creates a relevance scorer.
func NewRelevanceScorer() *RelevanceScorer {
	return &RelevanceScorer{}
}

// Score computes topical and objective relevance for the latest answer.
// A completely off-track answer blocks topic progression until the
// conversation is reset onto a known topic.
func (r *RelevanceScorer) Score(s *models.Session, sig models.SignalBundle, answer string) models.RelevanceResult {
	result := models.RelevanceResult{
		TopicScore:     r.topicScore(s, sig, answer),
		ObjectiveScore: r.objectiveScore(s, sig),
	}
	result.Score = topicWeight*result.TopicScore + objectiveWeight*result.ObjectiveScore

	deviation := 1 - result.Score
	switch {
	case deviation < deviationMinor:
		result.Deviation = models.DeviationNone
		result.Action = models.RelevanceContinue
	case deviation < deviationModerate:
		result.Deviation = models.DeviationMinor
		result.Action = models.RelevanceGentleRedirect
	case deviation < deviationMajor:
		result.Deviation = models.DeviationModerate
		result.Action = models.RelevanceExplicitRedirect
	case deviation < deviationComplete:
		result.Deviation = models.DeviationMajor
		result.Action = models.RelevanceExplicitRedirect
	default:
		result.Deviation = models.DeviationComplete
		result.Action = models.RelevanceResetTopic
		result.Block = true
	}

	if result.Deviation != models.DeviationNone {
		slog.Debug("RelevanceScorer.Score: conversation drift detected",
			"sessionID", s.ID, "score", result.Score, "deviation", result.Deviation, "action", result.Action)
	}
	return result
}

// topicScore measures overlap between the answer and the active topic
// plus the phase's explored topics.
func (r *RelevanceScorer) topicScore(s *models.Session, sig models.SignalBundle, answer string) float64 {
	lower := strings.ToLower(answer)

	var score float64
	if s.ActiveTopic != "" && strings.Contains(lower, strings.ToLower(s.ActiveTopic)) {
		score += 0.5
	}
	for _, t := range sig.KeyTopics {
		if t == s.ActiveTopic {
			score += 0.3
			break
		}
	}
	for _, t := range sig.KeyTopics {
		if _, explored := s.Topics[t]; explored {
			score += 0.2
			break
		}
	}
	if s.ActiveTopic == "" && len(sig.KeyTopics) > 0 {
		// No established topic yet: any coherent subject counts.
		score = 0.7
	}
	return clamp01(score)
}

// objectiveScore measures how much the answer advanced the phase's
// remaining objectives, using key-topic overlap with their descriptions.
func (r *RelevanceScorer) objectiveScore(s *models.Session, sig models.SignalBundle) float64 {
	var remaining []*models.InterviewObjective
	for _, o := range s.RemainingObjectives() {
		if o.Phase == s.Phase {
			remaining = append(remaining, o)
		}
	}
	if len(remaining) == 0 {
		return 1
	}

	matched := 0
	for _, o := range remaining {
		desc := strings.ToLower(o.Description)
		for _, t := range sig.KeyTopics {
			if strings.Contains(desc, t) {
				matched++
				break
			}
		}
	}
	base := float64(matched) / float64(len(remaining))

	// A substantive answer keeps partial credit even without direct
	// keyword overlap, so early-phase small talk is not punished.
	if base < 0.4 && sig.Completeness > 0.5 {
		base = 0.4
	}
	return clamp01(base)
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
