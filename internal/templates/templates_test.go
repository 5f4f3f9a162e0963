package templates

import (
	"testing"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

func TestLoadEmbeddedConfiguration(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Phases) != len(models.PhaseOrder) {
		t.Fatalf("expected %d phase templates, got %d", len(models.PhaseOrder), len(cfg.Phases))
	}
	for i, pt := range cfg.Phases {
		if pt.Phase != models.PhaseOrder[i] {
			t.Errorf("phase %d is %s, want %s", i, pt.Phase, models.PhaseOrder[i])
		}
		if pt.MinMinutes > pt.ExpectedMinutes || pt.ExpectedMinutes > pt.MaxMinutes {
			t.Errorf("phase %s duration envelope invalid: %d/%d/%d", pt.Phase, pt.MinMinutes, pt.ExpectedMinutes, pt.MaxMinutes)
		}
	}

	if len(cfg.Validation.Rules) == 0 {
		t.Error("expected validation rules")
	}
	if len(cfg.Branching) == 0 {
		t.Error("expected branching rules")
	}
}

func TestPhaseTemplateLookup(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	pt, ok := cfg.PhaseTemplate(models.PhaseTechnical)
	if !ok {
		t.Fatal("technical phase template missing")
	}
	if pt.DefaultQuestionType != models.QuestionTechnical {
		t.Errorf("technical default question type = %s", pt.DefaultQuestionType)
	}

	if _, ok := cfg.PhaseTemplate(models.Phase("bogus")); ok {
		t.Error("lookup of unknown phase should fail")
	}
}

func TestTotalExpectedMinutesCoversStandardInterview(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	total := cfg.TotalExpectedMinutes()
	// The default phase plan should fit a standard 60-90 minute slot.
	if total < 60 || total > 90 {
		t.Errorf("total expected minutes %d outside the 60-90 envelope", total)
	}
}

func TestValidationRuleWeightsSumToOne(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var sum float64
	for _, r := range cfg.Validation.Rules {
		sum += r.Weight
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("rule weights sum to %.3f, want 1.0", sum)
	}
}
