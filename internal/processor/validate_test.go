package processor

import (
	"reflect"
	"testing"

	"github.com/hollis-dev/deskmate/pkg/models"
)

func sampleTask() *models.Task {
	return &models.Task{
		OriginalCommand: "open notepad and type hello",
		Category:        models.CategoryDesktop,
		Complexity:      models.ComplexityModerate,
		RiskLevel:       models.RiskLow,
		Steps: []models.Step{
			{Action: "open_notepad"},
			{Action: "type_text", Parameters: map[string]string{"text": "hello"}},
		},
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	task := sampleTask()
	Validate(task)

	for i, s := range task.Steps {
		if s.StepNumber != i+1 {
			t.Errorf("step %d: StepNumber = %d, want %d", i, s.StepNumber, i+1)
		}
		if s.Application != DefaultApplication {
			t.Errorf("step %d: Application = %q, want %q", i, s.Application, DefaultApplication)
		}
		if s.ErrorHandling != models.ErrorHandlingRetry {
			t.Errorf("step %d: ErrorHandling = %q, want retry", i, s.ErrorHandling)
		}
		if s.TimeoutSeconds != DefaultTimeoutSeconds {
			t.Errorf("step %d: TimeoutSeconds = %d, want %d", i, s.TimeoutSeconds, DefaultTimeoutSeconds)
		}
		if s.ExpectedResult != DefaultExpectedResult {
			t.Errorf("step %d: ExpectedResult = %q, want %q", i, s.ExpectedResult, DefaultExpectedResult)
		}
	}
}

func TestValidateIdempotent(t *testing.T) {
	task := sampleTask()
	Validate(task)
	snapshot := *task
	snapshotSteps := make([]models.Step, len(task.Steps))
	copy(snapshotSteps, task.Steps)

	Validate(task)
	if !reflect.DeepEqual(snapshot.EstimatedDurationSeconds, task.EstimatedDurationSeconds) ||
		snapshot.RiskLevel != task.RiskLevel ||
		snapshot.RequiresUserConfirmation != task.RequiresUserConfirmation ||
		!reflect.DeepEqual(snapshotSteps, task.Steps) {
		t.Errorf("Validate not idempotent:\nfirst  %+v\nsecond %+v", snapshot, *task)
	}
}

func TestValidateDurationFormula(t *testing.T) {
	tests := []struct {
		complexity models.Complexity
		steps      int
		want       int
	}{
		{models.ComplexitySimple, 1, 45},
		{models.ComplexityModerate, 3, 165},
		{models.ComplexityComplex, 2, 330},
		{models.ComplexityWorkflow, 5, 675},
	}
	for _, tt := range tests {
		task := &models.Task{
			Category:   models.CategorySystem,
			Complexity: tt.complexity,
			RiskLevel:  models.RiskLow,
		}
		for i := 0; i < tt.steps; i++ {
			task.Steps = append(task.Steps, models.Step{Action: "press_key"})
		}
		Validate(task)
		if task.EstimatedDurationSeconds != tt.want {
			t.Errorf("%s/%d steps: duration = %d, want %d",
				tt.complexity, tt.steps, task.EstimatedDurationSeconds, tt.want)
		}
	}
}

func TestValidateCompositeStepWeight(t *testing.T) {
	task := &models.Task{
		Category:   models.CategoryDocument,
		Complexity: models.ComplexityComplex,
		RiskLevel:  models.RiskLow,
		Steps:      []models.Step{{Action: ActionCompositeArticle}},
	}
	Validate(task)
	if task.EstimatedDurationSeconds != 345 {
		t.Errorf("composite duration = %d, want 345", task.EstimatedDurationSeconds)
	}
}

func TestValidateRiskEscalation(t *testing.T) {
	for _, action := range []string{"delete_files", "remove_directory", "purchase_item", "send_email", "install_package"} {
		task := &models.Task{
			Category:   models.CategoryFile,
			Complexity: models.ComplexitySimple,
			RiskLevel:  models.RiskLow,
			Steps:      []models.Step{{Action: action}},
		}
		Validate(task)
		if task.RiskLevel != models.RiskHigh {
			t.Errorf("action %q: risk = %v, want high", action, task.RiskLevel)
		}
		if !task.RequiresUserConfirmation {
			t.Errorf("action %q: RequiresUserConfirmation = false, want true", action)
		}
	}
}

func TestValidateEmptyStepsInsertsAnalyze(t *testing.T) {
	task := &models.Task{
		OriginalCommand: "puzzling request",
		Category:        models.CategoryUniversal,
		Complexity:      models.ComplexitySimple,
		RiskLevel:       models.RiskLow,
	}
	Validate(task)
	if len(task.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(task.Steps))
	}
	if task.Steps[0].Action != ActionAnalyzeCommand {
		t.Errorf("inserted action = %q, want %q", task.Steps[0].Action, ActionAnalyzeCommand)
	}
	if task.Steps[0].StepNumber != 1 {
		t.Errorf("inserted StepNumber = %d, want 1", task.Steps[0].StepNumber)
	}
}

func TestValidateConfirmationImpliesMediumRisk(t *testing.T) {
	task := &models.Task{
		Category:                 models.CategorySystem,
		Complexity:               models.ComplexitySimple,
		RiskLevel:                models.RiskLow,
		RequiresUserConfirmation: true,
		Steps:                    []models.Step{{Action: "press_key"}},
	}
	Validate(task)
	if task.RiskLevel != models.RiskMedium {
		t.Errorf("risk = %v, want medium when confirmation is preset", task.RiskLevel)
	}
}

func TestValidateRepairsUnknownEnums(t *testing.T) {
	task := &models.Task{
		Category:   "nonsense",
		Complexity: "ultra",
		RiskLevel:  "scary",
		Steps:      []models.Step{{Action: "press_key"}},
	}
	Validate(task)
	if task.Category != models.CategoryUniversal {
		t.Errorf("category = %v, want universal", task.Category)
	}
	if task.Complexity != models.ComplexityModerate {
		t.Errorf("complexity = %v, want moderate", task.Complexity)
	}
	if task.RiskLevel != models.RiskLow {
		t.Errorf("risk = %v, want low", task.RiskLevel)
	}
}
