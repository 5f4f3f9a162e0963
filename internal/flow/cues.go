package flow

import (
	"fmt"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// Cue detection thresholds.
const (
	engagementDropThreshold = 0.4
	confusionThreshold      = 0.3
	expertiseThreshold      = 0.75
)

// deriveCues inspects the current signals and session state for
// conditions that should influence the next question.
func (m *Machine) deriveCues(s *models.Session, sig models.SignalBundle, now time.Time) []models.ContextualCue {
	var cues []models.ContextualCue

	engagement := sig.EngagementScore()
	if engagement < engagementDropThreshold {
		cues = append(cues, models.ContextualCue{
			Type:            models.CueEngagementDrop,
			Confidence:      clamp01(1 - engagement/engagementDropThreshold),
			SuggestedAction: "switch to an easier, open-ended question and acknowledge the candidate's effort",
			Detail:          fmt.Sprintf("engagement %.2f below %.2f", engagement, engagementDropThreshold),
			RaisedAt:        now,
		})
	}

	if sig.Completeness < confusionThreshold {
		cues = append(cues, models.ContextualCue{
			Type:            models.CueConfusion,
			Confidence:      clamp01(1 - sig.Completeness/confusionThreshold),
			SuggestedAction: "rephrase the question in simpler terms",
			Detail:          fmt.Sprintf("completeness %.2f below %.2f", sig.Completeness, confusionThreshold),
			RaisedAt:        now,
		})
	}

	if sig.TechnicalDepth > expertiseThreshold {
		cues = append(cues, models.ContextualCue{
			Type:            models.CueExpertiseSignal,
			Confidence:      sig.TechnicalDepth,
			SuggestedAction: "increase question difficulty and probe design trade-offs",
			Detail:          fmt.Sprintf("technical depth %.2f above %.2f", sig.TechnicalDepth, expertiseThreshold),
			RaisedAt:        now,
		})
	}

	if m.topicSaturated(s) {
		node := s.Topics[s.ActiveTopic]
		cues = append(cues, models.ContextualCue{
			Type:            models.CueTopicSaturation,
			Confidence:      node.TransitionPotential,
			SuggestedAction: "move to a related unexplored topic",
			Detail:          fmt.Sprintf("topic %q at depth %s with %d utterances", node.Label, node.Depth, len(node.UtteranceIDs)),
			RaisedAt:        now,
		})
	}

	if s.TotalBudget > 0 {
		ratio := float64(s.Remaining(now)) / float64(s.TotalBudget)
		if ratio < timePressureRatio {
			cues = append(cues, models.ContextualCue{
				Type:            models.CueTimePressure,
				Confidence:      clamp01(1 - ratio/timePressureRatio),
				SuggestedAction: "prioritize remaining required objectives and shorten questions",
				Detail:          fmt.Sprintf("%.0f%% of the session budget remains", ratio*100),
				RaisedAt:        now,
			})
		}
	}

	return cues
}

// SuggestTopics proposes transitions away from the active topic toward
// phase key topics not yet explored, preferring the template ordering.
func (m *Machine) SuggestTopics(s *models.Session) []models.TopicSuggestion {
	pt, ok := m.cfg.PhaseTemplate(s.Phase)
	if !ok {
		return nil
	}

	active, haveActive := s.Topics[s.ActiveTopic]
	var suggestions []models.TopicSuggestion
	for _, candidate := range pt.KeyTopics {
		if candidate == s.ActiveTopic {
			continue
		}
		if node, explored := s.Topics[candidate]; explored && node.Depth.AtLeast(models.DepthDeep) {
			continue
		}
		sug := models.TopicSuggestion{
			FromTopic:  s.ActiveTopic,
			ToTopic:    candidate,
			Reason:     "phase key topic not yet explored in depth",
			Confidence: 0.6,
		}
		if haveActive && active.TransitionPotential > topicSaturationPotential {
			sug.Reason = "active topic saturated"
			sug.Confidence = active.TransitionPotential
		}
		suggestions = append(suggestions, sug)
		if len(suggestions) >= 3 {
			break
		}
	}
	return suggestions
}
