package models

// ErrorKind identifies one of the recognized failure classes. Handlers
// classify their own failures; the executor never re-interprets them.
type ErrorKind string

const (
	// ErrParse indicates the LLM reply did not match the task schema.
	ErrParse ErrorKind = "parse_error"
	// ErrNoHandler indicates the step action has no registered handler.
	ErrNoHandler ErrorKind = "no_handler"
	// ErrInvalidParameters indicates required handler parameters are missing.
	ErrInvalidParameters ErrorKind = "invalid_parameters"
	// ErrUnresolvedReference indicates a {{name}} template had no matching output.
	ErrUnresolvedReference ErrorKind = "unresolved_reference"
	// ErrTimeout indicates the step exceeded its timeout.
	ErrTimeout ErrorKind = "timeout"
	// ErrPreconditionUnmet indicates a context requirement was not satisfied.
	ErrPreconditionUnmet ErrorKind = "precondition_unmet"
	// ErrUserDeclined indicates confirmation was denied or timed out.
	ErrUserDeclined ErrorKind = "user_declined"
	// ErrCancelled indicates the host cancelled the task.
	ErrCancelled ErrorKind = "cancelled"
	// ErrBackend indicates the handler's backend reported a failure.
	ErrBackend ErrorKind = "backend_error"
	// ErrInternal indicates an unexpected failure inside the core.
	ErrInternal ErrorKind = "internal_error"
)

// Valid returns true if the kind is a known value.
func (k ErrorKind) Valid() bool {
	switch k {
	case ErrParse, ErrNoHandler, ErrInvalidParameters, ErrUnresolvedReference,
		ErrTimeout, ErrPreconditionUnmet, ErrUserDeclined, ErrCancelled,
		ErrBackend, ErrInternal:
		return true
	default:
		return false
	}
}

// Retryable reports whether a failure of this kind may be retried under the
// step's error-handling policy. Parameter and reference errors are
// deterministic, and gate/cancellation outcomes always abort.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTimeout, ErrBackend, ErrNoHandler:
		return true
	default:
		return false
	}
}

// StepResult records the outcome of one step attempt sequence.
type StepResult struct {
	// StepNumber matches the step's position in the task.
	StepNumber int `json:"step_number"`
	// Action is the action that ran (the fallback action if one was taken).
	Action string `json:"action"`
	// Success is true when the step succeeded or recovered.
	Success bool `json:"success"`
	// Output holds named outputs produced by the handler.
	Output map[string]string `json:"output,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
	// ErrorKind classifies the failure when Success is false.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	// Attempts is how many times the step was tried.
	Attempts int `json:"attempts"`
	// Skipped is true when the failure was recorded and execution moved on.
	Skipped bool `json:"skipped,omitempty"`
	// Cancelled is true when the step never ran because the task was cancelled.
	Cancelled bool `json:"cancelled,omitempty"`
}

// ExecutionResult is the terminal outcome of a task.
type ExecutionResult struct {
	// TaskID identifies the task this result belongs to.
	TaskID string `json:"task_id"`
	// Success is true iff every non-skipped step succeeded or recovered.
	Success bool `json:"success"`
	// ExecutionTimeSeconds is the wall-clock duration of the run.
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	// StepResults aligns with the task's steps once the task terminates.
	StepResults []StepResult `json:"step_results"`
	// Warnings collects non-fatal notes gathered during the run.
	Warnings []string `json:"warnings,omitempty"`
	// ErrorMessage is populated iff Success is false.
	ErrorMessage string `json:"error_message,omitempty"`
}
