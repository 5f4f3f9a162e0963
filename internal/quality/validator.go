// Package quality implements the quality gatekeeper: question draft
// validation against configurable rules, conversation relevance scoring,
// and session duration management.
package quality

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/templates"
)

// compiledRule is a rule template with its patterns precompiled.
type compiledRule struct {
	tpl      templates.RuleTemplate
	patterns []*regexp.Regexp
}

// Validator checks rendered question drafts against the configured rule
// set before they reach the candidate. It is immutable after New.
type Validator struct {
	passThreshold float64
	rules         []compiledRule
}

// NewValidator compiles the validation rule set from the template config.
func NewValidator(cfg *templates.Config) (*Validator, error) {
	v := &Validator{passThreshold: cfg.Validation.PassThreshold}
	for _, rt := range cfg.Validation.Rules {
		cr := compiledRule{tpl: rt}
		for _, p := range rt.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q pattern %q: %v", models.ErrTemplateConfigInvalid, rt.ID, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		v.rules = append(v.rules, cr)
	}
	slog.Debug("quality.NewValidator: rule set compiled", "rules", len(v.rules), "passThreshold", v.passThreshold)
	return v, nil
}

// Validate runs every rule against the draft. Any failed critical rule
// rejects the draft regardless of the weighted aggregate score.
func (v *Validator) Validate(draft string) models.ValidationResult {
	result := models.ValidationResult{IsValid: true}
	var weighted float64

	for _, cr := range v.rules {
		rr := v.apply(cr, draft)
		result.Rules = append(result.Rules, rr)
		weighted += cr.tpl.Weight * rr.Score
		if !rr.Passed && rr.Severity == models.RuleSeverityCritical {
			result.FailedCritical = true
		}
	}

	result.QualityScore = weighted
	if result.FailedCritical || result.QualityScore < v.passThreshold {
		result.IsValid = false
	}

	if !result.IsValid {
		slog.Debug("Validator.Validate: draft rejected",
			"qualityScore", result.QualityScore, "failedCritical", result.FailedCritical)
	}
	return result
}

// apply evaluates one compiled rule against the draft text.
func (v *Validator) apply(cr compiledRule, draft string) models.RuleResult {
	rr := models.RuleResult{
		RuleID:   cr.tpl.ID,
		Category: cr.tpl.Category,
		Severity: cr.tpl.Severity,
		Passed:   true,
		Score:    1,
	}
	lower := strings.ToLower(draft)

	for _, term := range cr.tpl.ForbiddenTerms {
		if strings.Contains(lower, term) {
			rr.Passed = false
			rr.Score = 0
			rr.Detail = fmt.Sprintf("draft contains forbidden term %q", term)
			return rr
		}
	}

	for _, re := range cr.patterns {
		if re.MatchString(draft) {
			rr.Passed = false
			rr.Score = 0
			rr.Detail = fmt.Sprintf("draft matches disallowed pattern %q", re.String())
			return rr
		}
	}

	if cr.tpl.MinLength > 0 || cr.tpl.MaxLength > 0 {
		n := len([]rune(draft))
		switch {
		case cr.tpl.MinLength > 0 && n < cr.tpl.MinLength:
			rr.Passed = false
			rr.Score = 0
			rr.Detail = fmt.Sprintf("draft length %d below minimum %d", n, cr.tpl.MinLength)
		case cr.tpl.MaxLength > 0 && n > cr.tpl.MaxLength:
			rr.Passed = false
			rr.Score = 0
			rr.Detail = fmt.Sprintf("draft length %d above maximum %d", n, cr.tpl.MaxLength)
		case cr.tpl.OptimalMin > 0 && n < cr.tpl.OptimalMin:
			rr.Score = 0.7
			rr.Detail = fmt.Sprintf("draft length %d below optimal range start %d", n, cr.tpl.OptimalMin)
		case cr.tpl.OptimalMax > 0 && n > cr.tpl.OptimalMax:
			rr.Score = 0.7
			rr.Detail = fmt.Sprintf("draft length %d above optimal range end %d", n, cr.tpl.OptimalMax)
		}
	}

	if rr.Passed && cr.tpl.MaxQuestionMarks > 0 {
		if marks := strings.Count(draft, "?"); marks > cr.tpl.MaxQuestionMarks {
			rr.Passed = false
			rr.Score = 0.3
			rr.Detail = fmt.Sprintf("draft asks %d questions, at most %d allowed", marks, cr.tpl.MaxQuestionMarks)
		}
	}
	return rr
}
