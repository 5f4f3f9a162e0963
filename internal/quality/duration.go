package quality

import (
	"log/slog"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
)

// Risk banding thresholds for the duration manager.
const (
	criticalRemainingFloor = 2 * time.Minute
	criticalOverrunRatio   = 0.25
	highRemainingRatio     = 0.15
	highOverrunRatio       = 0.10
	mediumRemainingRatio   = 0.30

	// efficiency clamp bounds for reallocation weighting.
	minEfficiencyFactor = 0.5
	maxEfficiencyFactor = 1.5
)

// DurationManager tracks budget utilization, projects overrun, bands
// risk, and reallocates remaining time across the phases still ahead.
type DurationManager struct {
	cfg *templates.Config
}

// NewDurationManager creates a duration manager over the template config.
func NewDurationManager(cfg *templates.Config) *DurationManager {
	return &DurationManager{cfg: cfg}
}

// Assess evaluates the session's time position at now. Low-priority
// objectives are demoted (never silently dropped) when risk reaches
// high; at critical risk medium-priority objectives are demoted too.
func (d *DurationManager) Assess(s *models.Session, now time.Time) models.DurationAssessment {
	assessment := models.DurationAssessment{
		Remaining:       s.Remaining(now),
		CompletionRate:  d.objectiveCompletionRate(s),
		PhaseEfficiency: d.phaseEfficiency(s, now),
	}
	if s.TotalBudget > 0 {
		assessment.Utilization = clamp01(float64(s.Elapsed(now)) / float64(s.TotalBudget))
	}
	assessment.ProjectedOverrun = d.projectOverrun(s, now)

	assessment.Risk, assessment.Action = d.band(s, assessment)
	if assessment.Action == models.TimeActionPrioritizeObjectives || assessment.Action == models.TimeActionWrapUpEarly {
		assessment.DemotedIDs = d.demote(s, assessment.Risk)
	}
	assessment.Allocations = d.reallocate(s, assessment)

	slog.Debug("DurationManager.Assess: time position evaluated",
		"sessionID", s.ID, "utilization", assessment.Utilization,
		"remaining", assessment.Remaining, "overrun", assessment.ProjectedOverrun,
		"risk", assessment.Risk, "action", assessment.Action)
	return assessment
}

// objectiveCompletionRate is the completed fraction of all objectives.
func (d *DurationManager) objectiveCompletionRate(s *models.Session) float64 {
	if len(s.Objectives) == 0 {
		return 0
	}
	done := 0
	for _, o := range s.Objectives {
		if o.Completed {
			done++
		}
	}
	return float64(done) / float64(len(s.Objectives))
}

// phaseEfficiency compares the current phase's elapsed time against its
// template expectation. Above 1.0 means the phase is running long.
func (d *DurationManager) phaseEfficiency(s *models.Session, now time.Time) float64 {
	pt, ok := d.cfg.PhaseTemplate(s.Phase)
	if !ok || pt.ExpectedMinutes <= 0 {
		return 1
	}
	expected := time.Duration(pt.ExpectedMinutes) * time.Minute
	return float64(s.PhaseElapsed(now)) / float64(expected)
}

// projectOverrun estimates how far past the budget the interview will
// run if the remaining phases take their template-expected durations,
// scaled by the pace observed so far.
func (d *DurationManager) projectOverrun(s *models.Session, now time.Time) time.Duration {
	var aheadMinutes int
	past := true
	for _, pt := range d.cfg.Phases {
		if pt.Phase == s.Phase {
			past = false
			remainingInPhase := time.Duration(pt.ExpectedMinutes)*time.Minute - s.PhaseElapsed(now)
			if remainingInPhase > 0 {
				aheadMinutes += int(remainingInPhase / time.Minute)
			}
			continue
		}
		if !past {
			aheadMinutes += pt.ExpectedMinutes
		}
	}

	pace := clampRange(d.phaseEfficiency(s, now), minEfficiencyFactor, maxEfficiencyFactor)
	needed := time.Duration(float64(aheadMinutes)*pace) * time.Minute
	overrun := needed - s.Remaining(now)
	if overrun < 0 {
		return 0
	}
	return overrun
}

// band maps the assessment to a risk level and the matching action.
func (d *DurationManager) band(s *models.Session, a models.DurationAssessment) (models.RiskLevel, models.TimeAction) {
	var remainingRatio float64 = 1
	var overrunRatio float64
	if s.TotalBudget > 0 {
		remainingRatio = float64(a.Remaining) / float64(s.TotalBudget)
		overrunRatio = float64(a.ProjectedOverrun) / float64(s.TotalBudget)
	}

	switch {
	case a.Remaining < criticalRemainingFloor || overrunRatio > criticalOverrunRatio:
		return models.RiskCritical, models.TimeActionWrapUpEarly
	case remainingRatio < highRemainingRatio || overrunRatio > highOverrunRatio:
		return models.RiskHigh, models.TimeActionPrioritizeObjectives
	case remainingRatio < mediumRemainingRatio || a.ProjectedOverrun > 0:
		return models.RiskMedium, models.TimeActionAccelerate
	case a.PhaseEfficiency < 0.5 && a.CompletionRate > 0.7:
		// Running well ahead of schedule with objectives in hand.
		return models.RiskLow, models.TimeActionExtend
	default:
		return models.RiskLow, models.TimeActionContinue
	}
}

// demote marks low-priority (and at critical risk, medium-priority)
// incomplete objectives as demoted. Demotion is reversible bookkeeping:
// the objective stays on the session and can still complete.
func (d *DurationManager) demote(s *models.Session, risk models.RiskLevel) []string {
	var demoted []string
	for _, o := range s.Objectives {
		if o.Completed || o.Demoted || o.Required {
			continue
		}
		drop := o.Priority == models.PriorityLow
		if risk == models.RiskCritical && o.Priority == models.PriorityMedium {
			drop = true
		}
		if drop {
			o.Demoted = true
			demoted = append(demoted, o.ID)
		}
	}
	if len(demoted) > 0 {
		slog.Info("DurationManager.demote: objectives demoted under time pressure",
			"sessionID", s.ID, "count", len(demoted), "risk", risk)
	}
	return demoted
}

// reallocate splits the remaining budget across the phases not yet
// completed. The phase in progress is weighted by the observed pace,
// clamped to [0.5,1.5] of its template expectation; phases still ahead
// keep their template weight. Renormalizing then scales everything so
// the allocations sum to the remaining budget.
func (d *DurationManager) reallocate(s *models.Session, a models.DurationAssessment) []models.PhaseAllocation {
	if a.Remaining <= 0 {
		return nil
	}

	factor := clampRange(a.PhaseEfficiency, minEfficiencyFactor, maxEfficiencyFactor)
	type weighted struct {
		phase  models.Phase
		weight float64
	}
	var phases []weighted
	var total float64
	past := true
	for _, pt := range d.cfg.Phases {
		if pt.Phase == s.Phase {
			past = false
		}
		if past {
			continue
		}
		w := float64(pt.ExpectedMinutes)
		if pt.Phase == s.Phase {
			w *= factor
		}
		phases = append(phases, weighted{phase: pt.Phase, weight: w})
		total += w
	}
	if total == 0 {
		return nil
	}

	allocations := make([]models.PhaseAllocation, 0, len(phases))
	var assigned time.Duration
	for i, p := range phases {
		var alloc time.Duration
		if i == len(phases)-1 {
			alloc = a.Remaining - assigned
		} else {
			alloc = time.Duration(float64(a.Remaining) * p.weight / total)
			assigned += alloc
		}
		allocations = append(allocations, models.PhaseAllocation{Phase: p.phase, Allocated: alloc})
	}
	return allocations
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
