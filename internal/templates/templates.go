// Package templates loads the immutable phase and rule configuration for
// the interview engine.
//
// Templates are embedded YAML documents parsed and validated once at
// startup. The resulting Config is shared read-only across concurrent
// sessions and never mutated after Load returns.
package templates

import (
	_ "embed"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed phases.yaml
var phasesYAML []byte

//go:embed rules.yaml
var rulesYAML []byte

// ObjectiveTemplate seeds one phase objective when a phase begins.
type ObjectiveTemplate struct {
	ID          string                   `yaml:"id"`
	Description string                   `yaml:"description"`
	Priority    models.ObjectivePriority `yaml:"priority"`
	Required    bool                     `yaml:"required"`
}

// PhaseTemplate is the fixed per-phase configuration: objectives,
// duration envelope, key topics, and transition criteria.
type PhaseTemplate struct {
	Phase               models.Phase        `yaml:"phase"`
	ExpectedMinutes     int                 `yaml:"expected_minutes"`
	MinMinutes          int                 `yaml:"min_minutes"`
	MaxMinutes          int                 `yaml:"max_minutes"`
	TransitionThreshold float64             `yaml:"transition_threshold"`
	DefaultQuestionType models.QuestionType `yaml:"default_question_type"`
	KeyTopics           []string            `yaml:"key_topics"`
	Objectives          []ObjectiveTemplate `yaml:"objectives"`
}

// RuleTemplate configures one validation rule for the quality gatekeeper.
type RuleTemplate struct {
	ID               string              `yaml:"id"`
	Category         models.RuleCategory `yaml:"category"`
	Severity         models.RuleSeverity `yaml:"severity"`
	Weight           float64             `yaml:"weight"`
	ForbiddenTerms   []string            `yaml:"forbidden_terms"`
	MinLength        int                 `yaml:"min_length"`
	MaxLength        int                 `yaml:"max_length"`
	OptimalMin       int                 `yaml:"optimal_min"`
	OptimalMax       int                 `yaml:"optimal_max"`
	Patterns         []string            `yaml:"patterns"`
	MaxQuestionMarks int                 `yaml:"max_question_marks"`
}

// BranchingTemplate is one (condition, action, priority) adaptation tuple.
type BranchingTemplate struct {
	Condition string `yaml:"condition"`
	Action    string `yaml:"action"`
	Priority  int    `yaml:"priority"`
}

// ValidationConfig groups the validation rule set and its pass threshold.
type ValidationConfig struct {
	PassThreshold float64        `yaml:"pass_threshold"`
	Rules         []RuleTemplate `yaml:"rules"`
}

// Config is the complete immutable template configuration.
type Config struct {
	Phases     []PhaseTemplate
	Validation ValidationConfig
	Branching  []BranchingTemplate

	byPhase map[models.Phase]*PhaseTemplate
}

type phasesDoc struct {
	Phases []PhaseTemplate `yaml:"phases"`
}

type rulesDoc struct {
	Validation ValidationConfig    `yaml:"validation"`
	Branching  []BranchingTemplate `yaml:"branching"`
}

// Load parses and validates the embedded template configuration.
func Load() (*Config, error) {
	slog.Debug("templates.Load: parsing embedded configuration")

	var pd phasesDoc
	if err := yaml.Unmarshal(phasesYAML, &pd); err != nil {
		return nil, fmt.Errorf("failed to parse phase templates: %w", err)
	}
	var rd rulesDoc
	if err := yaml.Unmarshal(rulesYAML, &rd); err != nil {
		return nil, fmt.Errorf("failed to parse rule templates: %w", err)
	}

	cfg := &Config{
		Phases:     pd.Phases,
		Validation: rd.Validation,
		Branching:  rd.Branching,
		byPhase:    make(map[models.Phase]*PhaseTemplate, len(pd.Phases)),
	}
	for i := range cfg.Phases {
		cfg.byPhase[cfg.Phases[i].Phase] = &cfg.Phases[i]
	}

	if err := cfg.validate(); err != nil {
		slog.Error("templates.Load: configuration invalid", "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrTemplateConfigInvalid, err)
	}

	slog.Info("templates.Load: configuration loaded", "phases", len(cfg.Phases), "rules", len(cfg.Validation.Rules), "branching", len(cfg.Branching))
	return cfg, nil
}

// validate statically checks the parsed configuration.
func (c *Config) validate() error {
	if len(c.Phases) != len(models.PhaseOrder) {
		return fmt.Errorf("expected %d phase templates, got %d", len(models.PhaseOrder), len(c.Phases))
	}
	for i, pt := range c.Phases {
		if pt.Phase != models.PhaseOrder[i] {
			return fmt.Errorf("phase template %d is %q, expected %q", i, pt.Phase, models.PhaseOrder[i])
		}
		if pt.MinMinutes <= 0 || pt.ExpectedMinutes < pt.MinMinutes || pt.MaxMinutes < pt.ExpectedMinutes {
			return fmt.Errorf("phase %q has an invalid duration envelope (min=%d expected=%d max=%d)", pt.Phase, pt.MinMinutes, pt.ExpectedMinutes, pt.MaxMinutes)
		}
		if pt.TransitionThreshold <= 0 || pt.TransitionThreshold > 1 {
			return fmt.Errorf("phase %q transition threshold %.2f out of range", pt.Phase, pt.TransitionThreshold)
		}
		if !models.IsValidQuestionType(pt.DefaultQuestionType) {
			return fmt.Errorf("phase %q default question type %q unknown", pt.Phase, pt.DefaultQuestionType)
		}
		for _, ot := range pt.Objectives {
			if ot.ID == "" || ot.Description == "" {
				return fmt.Errorf("phase %q has an objective without id or description", pt.Phase)
			}
			if !models.IsValidObjectivePriority(ot.Priority) {
				return fmt.Errorf("phase %q objective %q has invalid priority %q", pt.Phase, ot.ID, ot.Priority)
			}
		}
	}

	if c.Validation.PassThreshold <= 0 || c.Validation.PassThreshold > 1 {
		return fmt.Errorf("validation pass threshold %.2f out of range", c.Validation.PassThreshold)
	}
	var weightSum float64
	for _, r := range c.Validation.Rules {
		if r.ID == "" {
			return fmt.Errorf("validation rule without id")
		}
		if r.Weight <= 0 || r.Weight > 1 {
			return fmt.Errorf("validation rule %q weight %.2f out of range", r.ID, r.Weight)
		}
		switch r.Severity {
		case models.RuleSeverityCritical, models.RuleSeverityMajor, models.RuleSeverityMinor:
		default:
			return fmt.Errorf("validation rule %q has unknown severity %q", r.ID, r.Severity)
		}
		for _, p := range r.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("validation rule %q pattern %q does not compile: %v", r.ID, p, err)
			}
		}
		weightSum += r.Weight
	}
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("validation rule weights sum to %.2f, expected 1.0", weightSum)
	}

	for _, b := range c.Branching {
		if b.Condition == "" || b.Action == "" || b.Priority <= 0 {
			return fmt.Errorf("branching rule %q/%q invalid", b.Condition, b.Action)
		}
	}
	return nil
}

// PhaseTemplate returns the template for the given phase.
func (c *Config) PhaseTemplate(p models.Phase) (*PhaseTemplate, bool) {
	pt, ok := c.byPhase[p]
	return pt, ok
}

// TotalExpectedMinutes sums the expected durations of all phases.
func (c *Config) TotalExpectedMinutes() int {
	total := 0
	for _, pt := range c.Phases {
		total += pt.ExpectedMinutes
	}
	return total
}
