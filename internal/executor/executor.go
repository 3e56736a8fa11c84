package executor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hollis-dev/deskmate/internal/actuator"
	"github.com/hollis-dev/deskmate/pkg/models"
)

// Retry policy for steps with error_handling=retry: two additional attempts
// with exponential backoff and ±20% jitter.
const (
	maxRetryAttempts   = 3
	defaultBackoffBase = 500 * time.Millisecond
	backoffJitter      = 0.2

	// DefaultConfirmTimeout bounds how long the confirmation gate waits.
	DefaultConfirmTimeout = 30 * time.Second
)

// ConfirmFunc is the host-supplied confirmation callback. It may block; the
// executor bounds it with the confirmation timeout.
type ConfirmFunc func(prompt string) bool

// Executor runs one task at a time, strictly sequentially.
type Executor struct {
	registry *actuator.Registry
	log      *zap.SugaredLogger

	confirm             ConfirmFunc
	confirmTimeout      time.Duration
	requireConfirmation bool
	backoffBase         time.Duration
	env                 map[string]bool

	mu        sync.RWMutex
	observers []Observer
}

// Option configures an Executor.
type Option func(*Executor)

// WithConfirm sets the confirmation callback. Without one, every gated task
// is declined.
func WithConfirm(fn ConfirmFunc) Option {
	return func(e *Executor) { e.confirm = fn }
}

// WithConfirmTimeout sets how long the gate waits for the callback.
func WithConfirmTimeout(d time.Duration) Option {
	return func(e *Executor) { e.confirmTimeout = d }
}

// WithConfirmationRequired toggles gating globally (config
// require_confirmation).
func WithConfirmationRequired(required bool) Option {
	return func(e *Executor) { e.requireConfirmation = required }
}

// WithCapabilities declares which context requirements the environment
// satisfies.
func WithCapabilities(caps ...string) Option {
	return func(e *Executor) {
		for _, c := range caps {
			e.env[c] = true
		}
	}
}

// WithBackoffBase overrides the retry backoff base. For tests.
func WithBackoffBase(d time.Duration) Option {
	return func(e *Executor) { e.backoffBase = d }
}

// New creates an executor over the given registry.
func New(registry *actuator.Registry, log *zap.SugaredLogger, opts ...Option) *Executor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e := &Executor{
		registry:            registry,
		log:                 log,
		confirmTimeout:      DefaultConfirmTimeout,
		requireConfirmation: true,
		backoffBase:         defaultBackoffBase,
		env:                 make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers an observer for the event stream. Observers run
// synchronously on the execution goroutine; panics are recovered and logged.
func (e *Executor) Subscribe(obs Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, obs)
}

// Execute drives the task to a terminal ExecutionResult. Cancellation is
// signalled through ctx: between steps it is immediate, during a handler it
// is bounded by the step timeout.
func (e *Executor) Execute(ctx context.Context, task *models.Task) *models.ExecutionResult {
	start := time.Now()
	res := &models.ExecutionResult{TaskID: task.TaskID}

	e.emit(Event{Type: EventTaskStarted, TaskID: task.TaskID, Message: task.Description})
	defer func() {
		res.ExecutionTimeSeconds = time.Since(start).Seconds()
		if !res.Success && task.RollbackPlan != "" {
			// Rollback stays manual: the plan is surfaced, not executed.
			e.log.Warnw("task failed, rollback plan available",
				"task_id", task.TaskID, "rollback_plan", task.RollbackPlan)
		}
		e.emit(Event{
			Type:    EventTaskCompleted,
			TaskID:  task.TaskID,
			Success: res.Success,
			Message: res.ErrorMessage,
		})
	}()

	// Environment preconditions run before step 1; nothing executes when
	// one is missing.
	for _, req := range task.ContextRequirements {
		if !e.env[req] {
			res.ErrorMessage = fmt.Sprintf("%s: capability %q not available",
				models.ErrPreconditionUnmet, req)
			return res
		}
	}

	if task.RequiresUserConfirmation && e.requireConfirmation {
		prompt := fmt.Sprintf("Run %q (risk: %s)?", task.Description, task.RiskLevel)
		switch e.confirmGate(ctx, prompt) {
		case gateCancelled:
			res.ErrorMessage = fmt.Sprintf("%s: task cancelled awaiting confirmation",
				models.ErrCancelled)
			return res
		case gateDeclined:
			res.ErrorMessage = fmt.Sprintf("%s: task confirmation denied or timed out",
				models.ErrUserDeclined)
			return res
		}
	}

	outputs := make(map[string]string)
	res.StepResults = make([]models.StepResult, 0, len(task.Steps))

	for i := range task.Steps {
		step := task.Steps[i]

		if ctx.Err() != nil {
			e.cancelRemaining(res, task, i, &step)
			return res
		}

		e.emit(Event{
			Type:       EventStepStarted,
			TaskID:     task.TaskID,
			StepNumber: step.StepNumber,
			Action:     step.Action,
		})

		if step.RequiresConfirmation && e.requireConfirmation {
			prompt := fmt.Sprintf("Step %d: %s. Proceed?", step.StepNumber, step.ExpectedResult)
			switch e.confirmGate(ctx, prompt) {
			case gateCancelled:
				e.cancelRemaining(res, task, i, &step)
				return res
			case gateDeclined:
				sr := models.StepResult{
					StepNumber: step.StepNumber,
					Action:     step.Action,
					Error:      "confirmation denied or timed out",
					ErrorKind:  models.ErrUserDeclined,
				}
				res.StepResults = append(res.StepResults, sr)
				e.emitStepFailed(task, sr)
				e.fillCancelled(res, task, i+1)
				res.ErrorMessage = fmt.Sprintf("%s: step %d confirmation denied",
					models.ErrUserDeclined, step.StepNumber)
				return res
			}
		}

		sr := e.runStep(ctx, task, &step, outputs)
		res.StepResults = append(res.StepResults, sr)
		for k, v := range sr.Output {
			outputs[k] = v
		}

		if sr.Success {
			continue
		}

		if sr.ErrorKind == models.ErrCancelled {
			e.fillCancelled(res, task, i+1)
			res.ErrorMessage = fmt.Sprintf("%s: task cancelled at step %d",
				models.ErrCancelled, step.StepNumber)
			return res
		}

		if step.ErrorHandling == models.ErrorHandlingSkip {
			res.StepResults[len(res.StepResults)-1].Skipped = true
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("step %d (%s) failed and was skipped: %s",
					step.StepNumber, step.Action, sr.Error))
			continue
		}

		// abort, exhausted retries, or failed fallback.
		e.fillCancelled(res, task, i+1)
		res.ErrorMessage = fmt.Sprintf("%s: step %d (%s) failed: %s",
			sr.ErrorKind, step.StepNumber, step.Action, sr.Error)
		return res
	}

	res.Success = true
	return res
}

// runStep performs one step's attempt sequence: template resolution, the
// initial dispatch, retries under the retry policy, and the fallback action
// when one is configured.
func (e *Executor) runStep(ctx context.Context, task *models.Task, step *models.Step, outputs map[string]string) models.StepResult {
	sr := models.StepResult{StepNumber: step.StepNumber, Action: step.Action}

	params, err := resolveParams(step.Parameters, outputs)
	if err != nil {
		sr.Error = err.Error()
		sr.ErrorKind = actuator.KindOf(err)
		e.emitStepFailed(task, sr)
		return sr
	}

	maxAttempts := 1
	if step.ErrorHandling == models.ErrorHandlingRetry {
		maxAttempts = maxRetryAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sr.Attempts = attempt
		out, err := e.dispatchOnce(ctx, step.Action, step.Timeout(), params)
		if err == nil {
			sr.Success = true
			sr.Output = out
			sr.Error = ""
			sr.ErrorKind = ""
			e.emit(Event{
				Type:       EventStepSucceeded,
				TaskID:     task.TaskID,
				StepNumber: step.StepNumber,
				Action:     sr.Action,
				Attempt:    attempt,
			})
			return sr
		}

		sr.Error = err.Error()
		sr.ErrorKind = actuator.KindOf(err)
		if sr.ErrorKind == models.ErrCancelled {
			break
		}
		if attempt < maxAttempts && sr.ErrorKind.Retryable() {
			e.emit(Event{
				Type:       EventStepRetrying,
				TaskID:     task.TaskID,
				StepNumber: step.StepNumber,
				Action:     step.Action,
				Attempt:    attempt + 1,
				ErrorKind:  sr.ErrorKind,
				Message:    sr.Error,
			})
			if !e.sleepBackoff(ctx, attempt) {
				sr.Error = "task cancelled during backoff"
				sr.ErrorKind = models.ErrCancelled
				break
			}
			continue
		}
		break
	}

	if step.ErrorHandling.IsFallback() && sr.ErrorKind != models.ErrCancelled {
		fb := step.ErrorHandling.FallbackAction()
		e.log.Infow("running fallback action",
			"task_id", task.TaskID, "step", step.StepNumber, "fallback", fb)
		out, err := e.dispatchOnce(ctx, fb, step.Timeout(), params)
		sr.Attempts++
		if err == nil {
			sr.Success = true
			sr.Action = fb
			sr.Output = out
			sr.Error = ""
			sr.ErrorKind = ""
			e.emit(Event{
				Type:       EventStepSucceeded,
				TaskID:     task.TaskID,
				StepNumber: step.StepNumber,
				Action:     fb,
				Attempt:    sr.Attempts,
				Message:    "fallback succeeded",
			})
			return sr
		}
		sr.Error = err.Error()
		sr.ErrorKind = actuator.KindOf(err)
	}

	e.emitStepFailed(task, sr)
	return sr
}

// dispatchOnce runs one handler invocation under the step timeout. The
// handler runs on its own goroutine so a stuck backend cannot wedge the
// executor past the timeout.
func (e *Executor) dispatchOnce(ctx context.Context, action string, timeout time.Duration, params actuator.Params) (actuator.Outputs, error) {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		out actuator.Outputs
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: actuator.NewError(models.ErrInternal, "handler panic: %v", r)}
			}
		}()
		out, err := e.registry.Dispatch(stepCtx, action, params)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if ctx.Err() != nil {
				return nil, actuator.NewError(models.ErrCancelled, "task cancelled during %q", action)
			}
			if stepCtx.Err() == context.DeadlineExceeded {
				return nil, actuator.NewError(models.ErrTimeout, "step %q exceeded %s", action, timeout)
			}
		}
		return o.out, o.err
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return nil, actuator.NewError(models.ErrCancelled, "task cancelled during %q", action)
		}
		return nil, actuator.NewError(models.ErrTimeout, "step %q exceeded %s", action, timeout)
	}
}

// gateOutcome is the result of a confirmation gate.
type gateOutcome int

const (
	gateApproved gateOutcome = iota
	gateDeclined
	gateCancelled
)

// confirmGate asks the host for approval, bounded by the confirmation
// timeout. A missing callback or a timeout declines; task cancellation
// during the wait is reported separately so the terminal error kind
// matches the cause.
func (e *Executor) confirmGate(ctx context.Context, prompt string) gateOutcome {
	if e.confirm == nil {
		e.log.Warnw("confirmation required but no callback configured", "prompt", prompt)
		return gateDeclined
	}
	decision := make(chan bool, 1)
	go func() { decision <- e.confirm(prompt) }()

	select {
	case ok := <-decision:
		if ok {
			return gateApproved
		}
		return gateDeclined
	case <-time.After(e.confirmTimeout):
		return gateDeclined
	case <-ctx.Done():
		return gateCancelled
	}
}

// sleepBackoff sleeps the jittered exponential backoff for the attempt.
// Returns false if the context was cancelled during the sleep.
func (e *Executor) sleepBackoff(ctx context.Context, attempt int) bool {
	d := e.backoffBase << (attempt - 1)
	factor := 1 - backoffJitter + 2*backoffJitter*rand.Float64()
	d = time.Duration(float64(d) * factor)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// cancelRemaining handles cancellation observed between steps: the current
// and all later steps are marked cancelled without running.
func (e *Executor) cancelRemaining(res *models.ExecutionResult, task *models.Task, from int, step *models.Step) {
	e.fillCancelled(res, task, from)
	res.ErrorMessage = fmt.Sprintf("%s: task cancelled before step %d",
		models.ErrCancelled, step.StepNumber)
}

// fillCancelled pads step_results with cancelled entries so a terminated
// task's results align with its steps.
func (e *Executor) fillCancelled(res *models.ExecutionResult, task *models.Task, from int) {
	for j := from; j < len(task.Steps); j++ {
		res.StepResults = append(res.StepResults, models.StepResult{
			StepNumber: task.Steps[j].StepNumber,
			Action:     task.Steps[j].Action,
			ErrorKind:  models.ErrCancelled,
			Error:      "not run",
			Cancelled:  true,
		})
	}
}

func (e *Executor) emitStepFailed(task *models.Task, sr models.StepResult) {
	e.emit(Event{
		Type:       EventStepFailed,
		TaskID:     task.TaskID,
		StepNumber: sr.StepNumber,
		Action:     sr.Action,
		Attempt:    sr.Attempts,
		ErrorKind:  sr.ErrorKind,
		Message:    sr.Error,
	})
}

func (e *Executor) emit(ev Event) {
	ev.Timestamp = time.Now()
	e.mu.RLock()
	observers := make([]Observer, len(e.observers))
	copy(observers, e.observers)
	e.mu.RUnlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Errorw("observer panicked", "event", ev.Type, "panic", r)
				}
			}()
			obs(ev)
		}()
	}
}
