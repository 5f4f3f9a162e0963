package quality

import (
	"testing"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
)

var sessionStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestDurationManager(t *testing.T) *DurationManager {
	t.Helper()
	cfg, err := templates.Load()
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	return NewDurationManager(cfg)
}

func durationSession(phase models.Phase, phaseStarted time.Time) *models.Session {
	return &models.Session{
		ID:          "dur-test",
		Phase:       phase,
		TotalBudget: 60 * time.Minute,
		StartedAt:   sessionStart,
		Progress:    models.PhaseProgress{Phase: phase, StartedAt: phaseStarted},
		Objectives: []*models.InterviewObjective{
			{ID: "o_crit", Priority: models.PriorityCritical, Required: true},
			{ID: "o_high", Priority: models.PriorityHigh, Required: true},
			{ID: "o_med", Priority: models.PriorityMedium},
			{ID: "o_low", Priority: models.PriorityLow},
		},
	}
}

func TestAssessComfortablePositionContinues(t *testing.T) {
	d := newTestDurationManager(t)
	s := durationSession(models.PhaseIntroduction, sessionStart)

	a := d.Assess(s, sessionStart.Add(time.Minute))
	if a.Risk != models.RiskLow {
		t.Errorf("risk = %s one minute in, want low", a.Risk)
	}
	if a.Action != models.TimeActionContinue {
		t.Errorf("action = %s, want continue", a.Action)
	}
	if len(a.DemotedIDs) != 0 {
		t.Errorf("no objectives should be demoted, got %v", a.DemotedIDs)
	}
}

func TestAssessHighRiskPrioritizesAndDemotesLowPriority(t *testing.T) {
	d := newTestDurationManager(t)
	// 52 of 60 minutes consumed leaves an 8-minute tail, under the 15%
	// high-risk line but above the critical floor.
	now := sessionStart.Add(52 * time.Minute)
	s := durationSession(models.PhaseBehavioral, now.Add(-5*time.Minute))

	a := d.Assess(s, now)
	if a.Risk != models.RiskHigh {
		t.Fatalf("risk = %s, want high", a.Risk)
	}
	if a.Action != models.TimeActionPrioritizeObjectives {
		t.Errorf("action = %s, want prioritize_objectives", a.Action)
	}
	if len(a.DemotedIDs) != 1 || a.DemotedIDs[0] != "o_low" {
		t.Errorf("demoted = %v, want only o_low", a.DemotedIDs)
	}
	for _, o := range s.Objectives {
		if o.ID == "o_low" && !o.Demoted {
			t.Error("low-priority objective should carry the demoted flag")
		}
		if o.ID == "o_med" && o.Demoted {
			t.Error("medium-priority objective must survive high risk")
		}
	}
}

func TestAssessCriticalRiskWrapsUpAndDemotesMedium(t *testing.T) {
	d := newTestDurationManager(t)
	now := sessionStart.Add(59 * time.Minute)
	s := durationSession(models.PhaseClosingQuestions, now.Add(-time.Minute))

	a := d.Assess(s, now)
	if a.Risk != models.RiskCritical {
		t.Fatalf("risk = %s with under two minutes left, want critical", a.Risk)
	}
	if a.Action != models.TimeActionWrapUpEarly {
		t.Errorf("action = %s, want wrap_up_early", a.Action)
	}

	demoted := map[string]bool{}
	for _, id := range a.DemotedIDs {
		demoted[id] = true
	}
	if !demoted["o_low"] || !demoted["o_med"] {
		t.Errorf("demoted = %v, want o_low and o_med", a.DemotedIDs)
	}
	if demoted["o_crit"] || demoted["o_high"] {
		t.Error("required objectives must never be demoted")
	}
}

func TestAssessAheadOfScheduleExtends(t *testing.T) {
	d := newTestDurationManager(t)
	// Six minutes in, one minute into the 20-minute technical phase, with
	// most objectives already in hand.
	now := sessionStart.Add(6 * time.Minute)
	s := durationSession(models.PhaseTechnical, now.Add(-time.Minute))
	for _, o := range s.Objectives {
		if o.ID != "o_low" {
			o.Completed = true
		}
	}

	a := d.Assess(s, now)
	if a.Risk != models.RiskLow {
		t.Fatalf("risk = %s, want low", a.Risk)
	}
	if a.Action != models.TimeActionExtend {
		t.Errorf("action = %s, want extend", a.Action)
	}
}

func TestAssessProjectedOverrunAccelerates(t *testing.T) {
	d := newTestDurationManager(t)
	// 45 minutes in with four phases still ahead of the behavioral phase:
	// the projection overruns the budget without reaching high risk.
	now := sessionStart.Add(45 * time.Minute)
	s := durationSession(models.PhaseBehavioral, now.Add(-10*time.Minute))

	a := d.Assess(s, now)
	if a.ProjectedOverrun <= 0 {
		t.Fatalf("expected a positive projected overrun, got %v", a.ProjectedOverrun)
	}
	if a.Risk != models.RiskMedium {
		t.Errorf("risk = %s, want medium", a.Risk)
	}
	if a.Action != models.TimeActionAccelerate {
		t.Errorf("action = %s, want accelerate", a.Action)
	}
}

func TestReallocationsSumToRemainingBudget(t *testing.T) {
	d := newTestDurationManager(t)
	now := sessionStart.Add(30 * time.Minute)
	s := durationSession(models.PhaseTechnical, now.Add(-5*time.Minute))

	a := d.Assess(s, now)
	if len(a.Allocations) == 0 {
		t.Fatal("expected allocations for the phases still ahead")
	}
	if a.Allocations[0].Phase != models.PhaseTechnical {
		t.Errorf("first allocation is %s, want the current phase", a.Allocations[0].Phase)
	}
	var sum time.Duration
	for _, alloc := range a.Allocations {
		if alloc.Allocated < 0 {
			t.Errorf("negative allocation for %s: %v", alloc.Phase, alloc.Allocated)
		}
		sum += alloc.Allocated
	}
	if sum != a.Remaining {
		t.Errorf("allocations sum to %v, want the remaining %v", sum, a.Remaining)
	}
}

func TestReallocationFollowsObservedPace(t *testing.T) {
	d := newTestDurationManager(t)
	now := sessionStart.Add(30 * time.Minute)

	// Same clock position, opposite paces: one session just entered the
	// technical phase, the other has been stuck in it for half an hour.
	ahead := durationSession(models.PhaseTechnical, now.Add(-time.Minute))
	behind := durationSession(models.PhaseTechnical, sessionStart)

	aheadAssess := d.Assess(ahead, now)
	behindAssess := d.Assess(behind, now)

	aheadTech := aheadAssess.Allocations[0]
	behindTech := behindAssess.Allocations[0]
	if aheadTech.Phase != models.PhaseTechnical || behindTech.Phase != models.PhaseTechnical {
		t.Fatalf("first allocation should be the current phase, got %s and %s",
			aheadTech.Phase, behindTech.Phase)
	}

	// One minute into a twenty-minute phase clamps the pace factor to its
	// 0.5 floor: the technical weight halves from 20 to 10 against the
	// 50-minute weighted tail, so it gets a fifth of the 30 remaining.
	if aheadTech.Allocated != 6*time.Minute {
		t.Errorf("ahead-of-pace technical allocation = %v, want 6m", aheadTech.Allocated)
	}
	if behindTech.Allocated <= aheadTech.Allocated {
		t.Errorf("slow pace should widen the current phase's allocation: %v vs %v",
			behindTech.Allocated, aheadTech.Allocated)
	}

	for _, a := range []models.DurationAssessment{aheadAssess, behindAssess} {
		var sum time.Duration
		for _, alloc := range a.Allocations {
			sum += alloc.Allocated
		}
		if sum != a.Remaining {
			t.Errorf("allocations sum to %v, want the remaining %v", sum, a.Remaining)
		}
	}
}

func TestAssessExhaustedBudgetAllocatesNothing(t *testing.T) {
	d := newTestDurationManager(t)
	now := sessionStart.Add(2 * time.Hour)
	s := durationSession(models.PhaseConclusion, now.Add(-time.Minute))

	a := d.Assess(s, now)
	if a.Remaining != 0 {
		t.Fatalf("remaining = %v past the budget, want 0", a.Remaining)
	}
	if len(a.Allocations) != 0 {
		t.Errorf("expected no allocations, got %v", a.Allocations)
	}
	if a.Risk != models.RiskCritical {
		t.Errorf("risk = %s with nothing left, want critical", a.Risk)
	}
}
