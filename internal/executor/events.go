// Package executor drives validated tasks to completion: sequential step
// dispatch through the actuator registry, per-step timeout and retry,
// confirmation gating, parameter templating, and an event stream for
// observers.
package executor

import (
	"time"

	"github.com/hollis-dev/deskmate/pkg/models"
)

// EventType identifies an executor event.
type EventType string

const (
	// EventTaskStarted fires once before any step runs.
	EventTaskStarted EventType = "task_started"
	// EventStepStarted fires before each step attempt sequence.
	EventStepStarted EventType = "step_started"
	// EventStepSucceeded fires when a step succeeds or recovers.
	EventStepSucceeded EventType = "step_succeeded"
	// EventStepFailed fires when a step's attempts are exhausted.
	EventStepFailed EventType = "step_failed"
	// EventStepRetrying fires before each retry attempt.
	EventStepRetrying EventType = "step_retrying"
	// EventTaskCompleted is the terminal event for a task.
	EventTaskCompleted EventType = "task_completed"
)

// Event is one entry in the executor's event stream.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID identifies the task.
	TaskID string
	// StepNumber identifies the step for step-scoped events.
	StepNumber int
	// Action is the step action for step-scoped events.
	Action string
	// Attempt is the attempt number for retry events.
	Attempt int
	// Success mirrors the result for task_completed events.
	Success bool
	// Message carries additional context.
	Message string
	// ErrorKind classifies the failure for failure events.
	ErrorKind models.ErrorKind
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Observer receives events. Observers are best-effort: panics are recovered
// and logged, and a slow observer delays the executor, so keep them fast.
type Observer func(Event)
