package models

// ObjectivePriority ranks the importance of an interview objective.
type ObjectivePriority string

const (
	PriorityLow      ObjectivePriority = "low"
	PriorityMedium   ObjectivePriority = "medium"
	PriorityHigh     ObjectivePriority = "high"
	PriorityCritical ObjectivePriority = "critical"
)

// priorityRank orders priorities for demotion decisions.
var priorityRank = map[ObjectivePriority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Rank returns the ordinal position of the priority, or -1 if unknown.
func (p ObjectivePriority) Rank() int {
	r, ok := priorityRank[p]
	if !ok {
		return -1
	}
	return r
}

// IsValidObjectivePriority checks if the given priority is supported.
func IsValidObjectivePriority(p ObjectivePriority) bool {
	return p.Rank() >= 0
}

// InterviewObjective is a required or optional assessment goal supplied at
// session start. Objectives are mutated only by the flow state machine as
// evidence accrues; the completion flag, once true, never reverts.
type InterviewObjective struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Priority    ObjectivePriority `json:"priority"`
	Phase       Phase             `json:"phase"`    // phase this objective targets
	Required    bool              `json:"required"` // counts toward phase transition criteria
	Completed   bool              `json:"completed"`
	Confidence  float64           `json:"confidence"` // accumulated confidence [0,1]
	Evidence    []string          `json:"evidence,omitempty"`
	Demoted     bool              `json:"demoted"` // set when time pressure deprioritizes it
}

// AddEvidence accumulates confidence toward the objective and latches the
// completion flag once confidence crosses the completion threshold.
// Completed never flips back to false.
func (o *InterviewObjective) AddEvidence(evidence string, confidence float64) {
	if evidence != "" {
		o.Evidence = append(o.Evidence, evidence)
	}
	if confidence > o.Confidence {
		o.Confidence = confidence
	}
	if o.Confidence >= ObjectiveCompletionConfidence {
		o.Completed = true
	}
}

// ObjectiveCompletionConfidence is the confidence level at which an
// objective is considered complete.
const ObjectiveCompletionConfidence = 0.75

// Validate checks an objective supplied at session start.
func (o *InterviewObjective) Validate() error {
	if o.Description == "" {
		return ErrNoObjectives
	}
	if len(o.Description) > MaxObjectiveDescriptionLength {
		return ErrObjectiveDescTooLong
	}
	if o.Phase != "" && !IsValidPhase(o.Phase) {
		return ErrInvalidObjectivePhase
	}
	if o.Priority != "" && !IsValidObjectivePriority(o.Priority) {
		return ErrInvalidObjectivePriority
	}
	return nil
}
