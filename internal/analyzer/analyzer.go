// Package analyzer implements the response analyzer: it turns one
// candidate utterance plus the session snapshot into a signal bundle for
// the flow state machine and the adaptive question selector.
//
// Analysis is a pure function of its inputs: no side effects, and missing
// sentiment or entity data degrades gracefully to neutral defaults.
package analyzer

import (
	"log/slog"
	"strings"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// Thresholds for emotional-state selection and signal scoring.
const (
	// emotionThreshold is the minimum named-emotion intensity considered dominant.
	emotionThreshold = 0.6
	// confidenceOverride is the sentiment confidence above which named
	// emotions override polarity.
	confidenceOverride = 0.7
	// polarityThreshold separates positive/negative from neutral polarity.
	polarityThreshold = 0.3
	// neutralConfidence is the default confidence when sentiment or
	// entity data is missing.
	neutralConfidence = 0.5
	// maxKeyTopics caps the deduplicated key-topic list.
	maxKeyTopics = 8
)

// Analyzer produces signal bundles from candidate utterances. It holds no
// mutable state; a single instance is safe for concurrent sessions.
type Analyzer struct{}

// New creates a response analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze derives the signal bundle for one candidate utterance given the
// current session snapshot. Calling it twice on the same inputs yields an
// identical bundle.
func (a *Analyzer) Analyze(u models.Utterance, s *models.Session) models.SignalBundle {
	text := strings.TrimSpace(u.Text)
	lower := strings.ToLower(text)

	bundle := models.SignalBundle{
		Completeness:   a.completeness(lower),
		TechnicalDepth: a.technicalDepth(lower, u.Entities),
		EmotionalState: a.emotionalState(u.Sentiment),
		KeyTopics:      a.keyTopics(text, u.Entities),
		SkillsRevealed: a.skillsRevealed(u.Entities),
		Confidence:     a.analysisConfidence(u.Sentiment, u.Entities),
	}
	bundle.InformationGaps = a.informationGaps(lower, u.Entities, s.Phase)

	slog.Debug("Analyzer.Analyze: signal bundle computed",
		"sessionID", s.ID,
		"completeness", bundle.Completeness,
		"technicalDepth", bundle.TechnicalDepth,
		"emotionalState", bundle.EmotionalState,
		"topics", len(bundle.KeyTopics),
		"gaps", len(bundle.InformationGaps),
		"confidence", bundle.Confidence)
	return bundle
}

// completeness scores answer completeness from word/sentence counts and
// the presence of concrete examples and quantitative claims.
func (a *Analyzer) completeness(lower string) float64 {
	words := len(strings.Fields(lower))
	sentences := countSentences(lower)

	wordScore := clamp01(float64(words) / 60.0)
	sentenceScore := clamp01(float64(sentences) / 3.0)

	var exampleScore float64
	for _, marker := range exampleMarkers {
		if strings.Contains(lower, marker) {
			exampleScore = 1
			break
		}
	}
	var quantScore float64
	if quantPattern.MatchString(lower) {
		quantScore = 1
	}

	return clamp01(0.45*wordScore + 0.20*sentenceScore + 0.20*exampleScore + 0.15*quantScore)
}

// technicalDepth scores the weighted count of technical entities plus
// technical vocabulary hits.
func (a *Analyzer) technicalDepth(lower string, entities []models.Entity) float64 {
	var depth float64
	for _, e := range entities {
		if w, ok := entityWeights[string(e.Type)]; ok {
			depth += w * e.Confidence
		}
	}
	for _, word := range strings.Fields(strings.Map(stripPunct, lower)) {
		if technicalVocabulary[word] {
			depth += 0.08
		}
	}
	return clamp01(depth)
}

// emotionalState thresholds the sentiment bundle into one of the seven
// emotional states. Missing sentiment degrades to neutral. When sentiment
// confidence exceeds confidenceOverride, named emotion intensities take
// precedence over polarity.
func (a *Analyzer) emotionalState(sent *models.SentimentBundle) models.EmotionalState {
	if sent == nil {
		return models.StateNeutral
	}

	if sent.Confidence > confidenceOverride && len(sent.Emotions) > 0 {
		var dominant models.Emotion
		var best float64
		for emo, intensity := range sent.Emotions {
			if intensity > best {
				dominant, best = emo, intensity
			}
		}
		if best >= emotionThreshold {
			switch dominant {
			case models.EmotionEnthusiasm:
				return models.StateEnthusiastic
			case models.EmotionNervousness:
				return models.StateNervous
			case models.EmotionConfidence:
				return models.StateConfident
			case models.EmotionFrustration:
				return models.StateFrustrated
			}
		}
	}

	switch {
	case sent.Polarity > polarityThreshold:
		return models.StatePositive
	case sent.Polarity < -polarityThreshold:
		return models.StateNegative
	default:
		return models.StateNeutral
	}
}

// keyTopics extracts a deduplicated short list of topics from entity tags
// and lexical patterns ("worked on X", "experience with X").
func (a *Analyzer) keyTopics(text string, entities []models.Entity) []string {
	seen := make(map[string]bool)
	var topics []string
	add := func(topic string) {
		topic = strings.ToLower(strings.TrimSpace(topic))
		topic = strings.Trim(topic, ".,;:!?")
		if topic == "" || seen[topic] || len(topics) >= maxKeyTopics {
			return
		}
		seen[topic] = true
		topics = append(topics, topic)
	}

	for _, e := range entities {
		switch e.Type {
		case models.EntityTypeSkill, models.EntityTypeTechnology, models.EntityTypeCompany:
			add(e.Value)
		}
	}
	for _, pat := range topicPatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			if len(m) > 1 {
				add(m[1])
			}
		}
	}
	return topics
}

// skillsRevealed collects entities tagged skill or technology.
func (a *Analyzer) skillsRevealed(entities []models.Entity) []string {
	seen := make(map[string]bool)
	var skills []string
	for _, e := range entities {
		if e.Type != models.EntityTypeSkill && e.Type != models.EntityTypeTechnology {
			continue
		}
		v := strings.ToLower(strings.TrimSpace(e.Value))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		skills = append(skills, v)
	}
	return skills
}

// informationGaps flags heuristic holes in the answer. Stack and metric
// gaps are suppressed during the opening and closing phases where they
// would only add noise.
func (a *Analyzer) informationGaps(lower string, entities []models.Entity, phase models.Phase) []models.InformationGap {
	var gaps []models.InformationGap

	substantive := phase != models.PhaseIntroduction &&
		phase != models.PhaseClosingQuestions && phase != models.PhaseConclusion

	if substantive {
		hasTech := false
		for _, e := range entities {
			if e.Type == models.EntityTypeTechnology {
				hasTech = true
				break
			}
		}
		if !hasTech {
			for _, word := range strings.Fields(strings.Map(stripPunct, lower)) {
				if technicalVocabulary[word] {
					hasTech = true
					break
				}
			}
		}
		if !hasTech {
			gaps = append(gaps, models.GapTechnicalStack)
		}
		if !quantPattern.MatchString(lower) {
			gaps = append(gaps, models.GapQuantitativeData)
		}
	}

	if !containsAny(lower, teamContextWords) {
		gaps = append(gaps, models.GapTeamContext)
	}
	if !containsAny(lower, challengeWords) {
		gaps = append(gaps, models.GapChallengeDetail)
	}
	return gaps
}

// analysisConfidence combines sentiment confidence with the average
// entity confidence. Missing data contributes the neutral default.
func (a *Analyzer) analysisConfidence(sent *models.SentimentBundle, entities []models.Entity) float64 {
	sentConf := neutralConfidence
	if sent != nil && sent.Confidence > 0 {
		sentConf = sent.Confidence
	}
	entConf := neutralConfidence
	if len(entities) > 0 {
		var sum float64
		for _, e := range entities {
			sum += e.Confidence
		}
		entConf = sum / float64(len(entities))
	}
	return clamp01((sentConf + entConf) / 2)
}

// countSentences counts terminal punctuation runs as sentence boundaries.
func countSentences(text string) int {
	count := 0
	inTerminal := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if !inTerminal {
				count++
				inTerminal = true
			}
		default:
			inTerminal = false
		}
	}
	if count == 0 && len(strings.TrimSpace(text)) > 0 {
		return 1
	}
	return count
}

// containsAny reports whether any word of the text appears in the set.
func containsAny(lower string, set map[string]bool) bool {
	for _, word := range strings.Fields(strings.Map(stripPunct, lower)) {
		if set[word] {
			return true
		}
	}
	return false
}

// stripPunct maps common punctuation to spaces for word matching.
func stripPunct(r rune) rune {
	switch r {
	case '.', ',', ';', ':', '!', '?', '(', ')', '"', '\'':
		return ' '
	}
	return r
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
