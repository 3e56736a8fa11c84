// Package models defines the shared data model for deskmate: tasks, steps,
// execution results, and the records kept by the context store.
package models

import (
	"strings"
	"time"
)

// Category classifies what domain a task operates in.
type Category string

const (
	CategoryDesktop       Category = "desktop"
	CategoryDocument      Category = "document"
	CategoryWeb           Category = "web"
	CategoryEmail         Category = "email"
	CategoryFile          Category = "file"
	CategoryCommunication Category = "communication"
	CategoryEntertainment Category = "entertainment"
	CategoryProductivity  Category = "productivity"
	CategorySystem        Category = "system"
	CategoryAutomation    Category = "automation"
	CategoryCreative      Category = "creative"
	CategoryResearch      Category = "research"
	CategoryShopping      Category = "shopping"
	CategoryUniversal     Category = "universal"
)

// Valid returns true if the category is a known value.
func (c Category) Valid() bool {
	switch c {
	case CategoryDesktop, CategoryDocument, CategoryWeb, CategoryEmail,
		CategoryFile, CategoryCommunication, CategoryEntertainment,
		CategoryProductivity, CategorySystem, CategoryAutomation,
		CategoryCreative, CategoryResearch, CategoryShopping, CategoryUniversal:
		return true
	default:
		return false
	}
}

// Complexity describes how involved a task is. It drives the duration
// estimate and step planning.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityWorkflow Complexity = "workflow"
)

// Valid returns true if the complexity is a known value.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityWorkflow:
		return true
	default:
		return false
	}
}

// RiskLevel describes how dangerous executing a task could be.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid returns true if the risk level is a known value.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// ErrorHandling selects how the executor reacts when a step fails.
// Recognized forms: "retry", "skip", "abort", and "fallback:<action>".
type ErrorHandling string

const (
	ErrorHandlingRetry ErrorHandling = "retry"
	ErrorHandlingSkip  ErrorHandling = "skip"
	ErrorHandlingAbort ErrorHandling = "abort"

	fallbackPrefix = "fallback:"
)

// FallbackHandling builds a fallback error-handling value for the named action.
func FallbackHandling(action string) ErrorHandling {
	return ErrorHandling(fallbackPrefix + action)
}

// IsFallback reports whether the value names a fallback action.
func (e ErrorHandling) IsFallback() bool {
	return strings.HasPrefix(string(e), fallbackPrefix) && len(e) > len(fallbackPrefix)
}

// FallbackAction returns the action named by a fallback value, or "" when the
// value is not a fallback.
func (e ErrorHandling) FallbackAction() string {
	if !e.IsFallback() {
		return ""
	}
	return strings.TrimPrefix(string(e), fallbackPrefix)
}

// Valid returns true if the value is one of the recognized forms.
func (e ErrorHandling) Valid() bool {
	switch e {
	case ErrorHandlingRetry, ErrorHandlingSkip, ErrorHandlingAbort:
		return true
	default:
		return e.IsFallback()
	}
}

// Step is a single dispatchable unit of work within a task.
type Step struct {
	// StepNumber is the 1-based position of the step within its task.
	StepNumber int `json:"step_number"`
	// Action is the symbolic action name dispatched through the registry.
	Action string `json:"action"`
	// Application is the symbolic target (notepad, browser, system, ...).
	Application string `json:"application"`
	// Parameters are handler inputs. A value of the form "{{name}}" is
	// resolved against outputs produced by earlier steps.
	Parameters map[string]string `json:"parameters,omitempty"`
	// ExpectedResult describes what completing the step should achieve.
	ExpectedResult string `json:"expected_result"`
	// ErrorHandling selects the failure policy for this step.
	ErrorHandling ErrorHandling `json:"error_handling"`
	// TimeoutSeconds is the wall-clock budget for the step.
	TimeoutSeconds int `json:"timeout_seconds"`
	// RequiresConfirmation gates the step behind user approval.
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`
}

// Timeout returns the step timeout as a duration.
func (s Step) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Task is a validated, ordered plan of steps with metadata. Tasks are
// produced by the processor and consumed by the executor.
type Task struct {
	// TaskID is unique and monotonic within a session.
	TaskID string `json:"task_id"`
	// OriginalCommand is the raw user utterance.
	OriginalCommand string `json:"original_command"`
	// Category is the task domain.
	Category Category `json:"category"`
	// Complexity is the task complexity class.
	Complexity Complexity `json:"complexity"`
	// Description is a human-readable summary of the plan.
	Description string `json:"description"`
	// Steps is the ordered, non-empty plan.
	Steps []Step `json:"steps"`
	// EstimatedDurationSeconds is derived from complexity and step count.
	EstimatedDurationSeconds int `json:"estimated_duration_seconds"`
	// RiskLevel is the assessed risk of running the task.
	RiskLevel RiskLevel `json:"risk_level"`
	// RequiresUserConfirmation is always true when RiskLevel is high.
	RequiresUserConfirmation bool `json:"requires_user_confirmation"`
	// ContextRequirements lists capability tags the environment must satisfy.
	ContextRequirements []string `json:"context_requirements,omitempty"`
	// SuccessCriteria is the human-readable acceptance condition.
	SuccessCriteria string `json:"success_criteria,omitempty"`
	// RollbackPlan, when present, is logged if the task fails.
	RollbackPlan string `json:"rollback_plan,omitempty"`
}
