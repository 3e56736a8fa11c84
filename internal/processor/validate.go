package processor

import (
	"strings"

	"github.com/hollis-dev/deskmate/pkg/models"
)

// Step defaults applied by the validation pass.
const (
	DefaultApplication    = "system"
	DefaultTimeoutSeconds = 30
	DefaultExpectedResult = "Step completed"
)

// baseDuration is the per-complexity base of the duration estimate.
var baseDuration = map[models.Complexity]int{
	models.ComplexitySimple:   30,
	models.ComplexityModerate: 120,
	models.ComplexityComplex:  300,
	models.ComplexityWorkflow: 600,
}

// highRiskActions is the action vocabulary that forces risk promotion.
var highRiskActions = []string{"delete", "remove", "purchase", "send_email", "install"}

// Validate normalizes a task in place. It is idempotent: validating an
// already-valid task changes nothing. Applied to the output of both
// strategies.
func Validate(t *models.Task) {
	if !t.Category.Valid() {
		t.Category = models.CategoryUniversal
	}
	if !t.Complexity.Valid() {
		t.Complexity = models.ComplexityModerate
	}
	if !t.RiskLevel.Valid() {
		t.RiskLevel = models.RiskLow
	}

	// The executor always needs work.
	if len(t.Steps) == 0 {
		t.Steps = []models.Step{{
			Action:         ActionAnalyzeCommand,
			Parameters:     map[string]string{"command": t.OriginalCommand},
			ExpectedResult: "Analysis produced",
		}}
	}

	weighted := 0
	for i := range t.Steps {
		s := &t.Steps[i]
		s.StepNumber = i + 1
		if s.Application == "" {
			s.Application = DefaultApplication
		}
		if !s.ErrorHandling.Valid() {
			s.ErrorHandling = models.ErrorHandlingRetry
		}
		if s.TimeoutSeconds <= 0 {
			s.TimeoutSeconds = DefaultTimeoutSeconds
		}
		if s.ExpectedResult == "" {
			s.ExpectedResult = DefaultExpectedResult
		}
		if isHighRiskAction(s.Action) {
			t.RiskLevel = models.RiskHigh
		}
		weighted += stepWeight(s.Action)
	}

	if t.RiskLevel == models.RiskHigh {
		t.RequiresUserConfirmation = true
	}
	// Confirmation on a low-risk task implies at least medium risk.
	if t.RequiresUserConfirmation && t.RiskLevel == models.RiskLow {
		t.RiskLevel = models.RiskMedium
	}

	t.EstimatedDurationSeconds = baseDuration[t.Complexity] + 15*weighted
}

// isHighRiskAction reports whether the action name contains a high-risk verb.
func isHighRiskAction(action string) bool {
	lower := strings.ToLower(action)
	for _, v := range highRiskActions {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

// stepWeight is the duration weight of a step. Composite steps stand in for
// the multi-step plan they replace and keep its estimate.
func stepWeight(action string) int {
	if strings.Contains(action, "create_file_write_article") {
		return 3
	}
	return 1
}
