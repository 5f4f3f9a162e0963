package models

// ExplorationDepth describes how thoroughly a topic has been explored.
type ExplorationDepth string

const (
	DepthSurface    ExplorationDepth = "surface"
	DepthModerate   ExplorationDepth = "moderate"
	DepthDeep       ExplorationDepth = "deep"
	DepthExhaustive ExplorationDepth = "exhaustive"
)

// depthRank orders exploration depths for monotonicity checks.
var depthRank = map[ExplorationDepth]int{
	DepthSurface:    0,
	DepthModerate:   1,
	DepthDeep:       2,
	DepthExhaustive: 3,
}

// Rank returns the ordinal position of the depth, or -1 if unknown.
func (d ExplorationDepth) Rank() int {
	r, ok := depthRank[d]
	if !ok {
		return -1
	}
	return r
}

// AtLeast reports whether d is the same depth as other or deeper.
func (d ExplorationDepth) AtLeast(other ExplorationDepth) bool {
	return d.Rank() >= other.Rank()
}

// TopicNode tracks one distinct subject explored during the interview.
// Nodes are created on demand by the flow state machine and never deleted;
// exploration depth is monotonically non-decreasing.
type TopicNode struct {
	Label               string           `json:"label"`
	Phase               Phase            `json:"phase"` // phase in which the topic was opened
	Depth               ExplorationDepth `json:"depth"`
	UtteranceIDs        []string         `json:"utterance_ids"`
	Insights            []string         `json:"insights,omitempty"`
	TransitionPotential float64          `json:"transition_potential"` // [0,1] readiness to move on
}

// Deepen raises the exploration depth to target if target is deeper.
// Depth never decreases.
func (t *TopicNode) Deepen(target ExplorationDepth) {
	if target.Rank() > t.Depth.Rank() {
		t.Depth = target
	}
}
