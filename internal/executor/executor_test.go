package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-dev/deskmate/internal/actuator"
	"github.com/hollis-dev/deskmate/pkg/models"
)

// scripted lets a test drive a handler's outcome per invocation.
type scripted struct {
	mu      sync.Mutex
	calls   int
	outcome func(call int) (actuator.Outputs, error)
}

func (s *scripted) fn(ctx context.Context, params actuator.Params) (actuator.Outputs, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()
	return s.outcome(call)
}

func (s *scripted) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func alwaysOK(out actuator.Outputs) *scripted {
	return &scripted{outcome: func(int) (actuator.Outputs, error) { return out, nil }}
}

func alwaysFail(kind models.ErrorKind) *scripted {
	return &scripted{outcome: func(int) (actuator.Outputs, error) {
		return nil, actuator.NewError(kind, "scripted failure")
	}}
}

func testRegistry(t *testing.T, handlers ...actuator.Handler) *actuator.Registry {
	t.Helper()
	reg := actuator.NewRegistry()
	for _, h := range handlers {
		require.NoError(t, reg.Register(h))
	}
	return reg
}

func step(n int, action string, handling models.ErrorHandling) models.Step {
	return models.Step{
		StepNumber:     n,
		Action:         action,
		Application:    "system",
		Parameters:     map[string]string{},
		ExpectedResult: "done",
		ErrorHandling:  handling,
		TimeoutSeconds: 5,
	}
}

func task(id string, steps ...models.Step) *models.Task {
	return &models.Task{
		TaskID:          id,
		OriginalCommand: "test command",
		Category:        models.CategorySystem,
		Complexity:      models.ComplexitySimple,
		Description:     "test task",
		Steps:           steps,
		RiskLevel:       models.RiskLow,
	}
}

func newTestExecutor(reg *actuator.Registry, opts ...Option) *Executor {
	base := []Option{
		WithConfirmationRequired(false),
		WithBackoffBase(time.Millisecond),
	}
	return New(reg, nil, append(base, opts...)...)
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	mk := func(name string) actuator.HandlerFunc {
		return func(ctx context.Context, params actuator.Params) (actuator.Outputs, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		}
	}
	reg := testRegistry(t,
		actuator.Handler{Action: "a", Fn: mk("a")},
		actuator.Handler{Action: "b", Fn: mk("b")},
		actuator.Handler{Action: "c", Fn: mk("c")},
	)
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t1", step(1, "a", models.ErrorHandlingAbort),
			step(2, "b", models.ErrorHandlingAbort),
			step(3, "c", models.ErrorHandlingAbort)))

	require.True(t, res.Success)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	require.Len(t, res.StepResults, 3)
	for i, sr := range res.StepResults {
		assert.Equal(t, i+1, sr.StepNumber)
		assert.True(t, sr.Success)
		assert.Equal(t, 1, sr.Attempts)
	}
	assert.Greater(t, res.ExecutionTimeSeconds, 0.0)
}

func TestExecuteRetryRecoversWithinThreeAttempts(t *testing.T) {
	s := &scripted{outcome: func(call int) (actuator.Outputs, error) {
		if call < 2 {
			return nil, actuator.NewError(models.ErrBackend, "flaky")
		}
		return actuator.Outputs{"result": "ok"}, nil
	}}
	reg := testRegistry(t, actuator.Handler{
		Action: "flaky", ProducedOutputs: []string{"result"}, Fn: s.fn,
	})
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t2", step(1, "flaky", models.ErrorHandlingRetry)))

	require.True(t, res.Success)
	assert.Equal(t, 3, res.StepResults[0].Attempts)
	assert.Equal(t, 3, s.callCount())
}

func TestExecuteRetryExhaustionAborts(t *testing.T) {
	s := alwaysFail(models.ErrBackend)
	reg := testRegistry(t, actuator.Handler{Action: "down", Fn: s.fn})
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t3", step(1, "down", models.ErrorHandlingRetry),
			step(2, "down", models.ErrorHandlingAbort)))

	require.False(t, res.Success)
	assert.Equal(t, 3, s.callCount(), "one initial attempt plus two retries")
	require.Len(t, res.StepResults, 2)
	assert.Equal(t, models.ErrBackend, res.StepResults[0].ErrorKind)
	assert.Equal(t, 3, res.StepResults[0].Attempts)
	assert.True(t, res.StepResults[1].Cancelled, "later steps never run after abort")
	assert.Contains(t, res.ErrorMessage, "backend_error")
}

func TestExecuteNoRetryForNonRetryableKind(t *testing.T) {
	s := alwaysFail(models.ErrInvalidParameters)
	reg := testRegistry(t, actuator.Handler{Action: "bad", Fn: s.fn})
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t4", step(1, "bad", models.ErrorHandlingRetry)))

	require.False(t, res.Success)
	assert.Equal(t, 1, s.callCount())
	assert.Equal(t, 1, res.StepResults[0].Attempts)
}

func TestExecuteSingleAttemptWithoutRetryPolicy(t *testing.T) {
	s := alwaysFail(models.ErrBackend)
	reg := testRegistry(t, actuator.Handler{Action: "down", Fn: s.fn})
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t5", step(1, "down", models.ErrorHandlingAbort)))

	require.False(t, res.Success)
	assert.Equal(t, 1, s.callCount())
}

func TestExecuteSkipContinuesAndWarns(t *testing.T) {
	fail := alwaysFail(models.ErrBackend)
	ok := alwaysOK(nil)
	reg := testRegistry(t,
		actuator.Handler{Action: "optional", Fn: fail.fn},
		actuator.Handler{Action: "main", Fn: ok.fn},
	)
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t6", step(1, "optional", models.ErrorHandlingSkip),
			step(2, "main", models.ErrorHandlingAbort)))

	require.True(t, res.Success, "skipped failures do not fail the task")
	assert.True(t, res.StepResults[0].Skipped)
	assert.False(t, res.StepResults[0].Success)
	assert.True(t, res.StepResults[1].Success)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "optional")
}

func TestExecuteFallbackAction(t *testing.T) {
	primary := alwaysFail(models.ErrBackend)
	fb := alwaysOK(actuator.Outputs{"note": "recovered"})
	reg := testRegistry(t,
		actuator.Handler{Action: "fancy", Fn: primary.fn},
		actuator.Handler{Action: "plain", ProducedOutputs: []string{"note"}, Fn: fb.fn},
	)
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t7", step(1, "fancy", models.FallbackHandling("plain"))))

	require.True(t, res.Success)
	sr := res.StepResults[0]
	assert.Equal(t, "plain", sr.Action, "result records the action that actually ran")
	assert.Equal(t, 2, sr.Attempts)
	assert.Equal(t, "recovered", sr.Output["note"])
}

func TestExecuteFallbackFailureAborts(t *testing.T) {
	primary := alwaysFail(models.ErrBackend)
	fb := alwaysFail(models.ErrBackend)
	reg := testRegistry(t,
		actuator.Handler{Action: "fancy", Fn: primary.fn},
		actuator.Handler{Action: "plain", Fn: fb.fn},
	)
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t8", step(1, "fancy", models.FallbackHandling("plain"))))

	require.False(t, res.Success)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fb.callCount())
}

func TestExecuteTemplateResolution(t *testing.T) {
	gen := alwaysOK(actuator.Outputs{"generated_content": "hello world"})
	var got string
	sink := func(ctx context.Context, params actuator.Params) (actuator.Outputs, error) {
		got = params["content"]
		return nil, nil
	}
	reg := testRegistry(t,
		actuator.Handler{Action: "generate", ProducedOutputs: []string{"generated_content"}, Fn: gen.fn},
		actuator.Handler{Action: "type_content", RequiredParams: []string{"content"}, Fn: sink},
	)
	e := newTestExecutor(reg)

	s2 := step(2, "type_content", models.ErrorHandlingAbort)
	s2.Parameters = map[string]string{"content": "{{generated_content}}"}
	res := e.Execute(context.Background(),
		task("t9", step(1, "generate", models.ErrorHandlingAbort), s2))

	require.True(t, res.Success)
	assert.Equal(t, "hello world", got)
}

func TestExecuteUnresolvedReferenceFailsWithoutRetry(t *testing.T) {
	s := alwaysOK(nil)
	reg := testRegistry(t, actuator.Handler{Action: "use", Fn: s.fn})
	e := newTestExecutor(reg)

	st := step(1, "use", models.ErrorHandlingRetry)
	st.Parameters = map[string]string{"content": "{{never_produced}}"}
	res := e.Execute(context.Background(), task("t10", st))

	require.False(t, res.Success)
	assert.Equal(t, models.ErrUnresolvedReference, res.StepResults[0].ErrorKind)
	assert.Equal(t, 0, s.callCount(), "handler never dispatched")
}

func TestExecutePreconditionUnmet(t *testing.T) {
	s := alwaysOK(nil)
	reg := testRegistry(t, actuator.Handler{Action: "a", Fn: s.fn})
	e := newTestExecutor(reg) // no capabilities declared

	tk := task("t11", step(1, "a", models.ErrorHandlingAbort))
	tk.ContextRequirements = []string{"browser"}
	res := e.Execute(context.Background(), tk)

	require.False(t, res.Success)
	assert.Empty(t, res.StepResults, "nothing runs when a precondition is missing")
	assert.Contains(t, res.ErrorMessage, "precondition_unmet")
	assert.Equal(t, 0, s.callCount())
}

func TestExecutePreconditionSatisfiedByCapability(t *testing.T) {
	s := alwaysOK(nil)
	reg := testRegistry(t, actuator.Handler{Action: "a", Fn: s.fn})
	e := newTestExecutor(reg, WithCapabilities("browser"))

	tk := task("t12", step(1, "a", models.ErrorHandlingAbort))
	tk.ContextRequirements = []string{"browser"}
	res := e.Execute(context.Background(), tk)

	require.True(t, res.Success)
}

func TestExecuteTaskConfirmationDeclined(t *testing.T) {
	s := alwaysOK(nil)
	reg := testRegistry(t, actuator.Handler{Action: "a", Fn: s.fn})
	e := newTestExecutor(reg,
		WithConfirmationRequired(true),
		WithConfirm(func(string) bool { return false }),
	)

	tk := task("t13", step(1, "a", models.ErrorHandlingAbort))
	tk.RequiresUserConfirmation = true
	res := e.Execute(context.Background(), tk)

	require.False(t, res.Success)
	assert.Empty(t, res.StepResults)
	assert.Contains(t, res.ErrorMessage, "user_declined")
	assert.Equal(t, 0, s.callCount())
}

func TestExecuteTaskConfirmationAccepted(t *testing.T) {
	s := alwaysOK(nil)
	reg := testRegistry(t, actuator.Handler{Action: "a", Fn: s.fn})
	var prompt string
	e := newTestExecutor(reg,
		WithConfirmationRequired(true),
		WithConfirm(func(p string) bool { prompt = p; return true }),
	)

	tk := task("t14", step(1, "a", models.ErrorHandlingAbort))
	tk.RequiresUserConfirmation = true
	tk.RiskLevel = models.RiskHigh
	res := e.Execute(context.Background(), tk)

	require.True(t, res.Success)
	assert.Contains(t, prompt, "high")
}

func TestExecuteConfirmationTimeoutDeclines(t *testing.T) {
	reg := testRegistry(t, actuator.Handler{Action: "a", Fn: alwaysOK(nil).fn})
	block := make(chan struct{})
	defer close(block)
	e := newTestExecutor(reg,
		WithConfirmationRequired(true),
		WithConfirm(func(string) bool { <-block; return true }),
		WithConfirmTimeout(20*time.Millisecond),
	)

	tk := task("t15", step(1, "a", models.ErrorHandlingAbort))
	tk.RequiresUserConfirmation = true
	res := e.Execute(context.Background(), tk)

	require.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "user_declined")
}

func TestExecuteCancelDuringTaskConfirmation(t *testing.T) {
	s := alwaysOK(nil)
	reg := testRegistry(t, actuator.Handler{Action: "a", Fn: s.fn})
	block := make(chan struct{})
	defer close(block)
	e := newTestExecutor(reg,
		WithConfirmationRequired(true),
		WithConfirm(func(string) bool { <-block; return true }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	tk := task("t23", step(1, "a", models.ErrorHandlingAbort))
	tk.RequiresUserConfirmation = true
	res := e.Execute(ctx, tk)

	require.False(t, res.Success)
	assert.Empty(t, res.StepResults)
	assert.Contains(t, res.ErrorMessage, "cancelled")
	assert.NotContains(t, res.ErrorMessage, "user_declined")
	assert.Equal(t, 0, s.callCount())
}

func TestExecuteCancelDuringStepConfirmation(t *testing.T) {
	first := alwaysOK(nil)
	second := alwaysOK(nil)
	reg := testRegistry(t,
		actuator.Handler{Action: "safe", Fn: first.fn},
		actuator.Handler{Action: "risky", Fn: second.fn},
	)
	block := make(chan struct{})
	defer close(block)
	e := newTestExecutor(reg,
		WithConfirmationRequired(true),
		WithConfirm(func(p string) bool {
			if strings.Contains(p, "risky") {
				<-block
			}
			return true
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	risky := step(2, "risky", models.ErrorHandlingAbort)
	risky.RequiresConfirmation = true
	risky.ExpectedResult = "risky thing done"
	res := e.Execute(ctx,
		task("t24", step(1, "safe", models.ErrorHandlingAbort), risky))

	require.False(t, res.Success)
	require.Len(t, res.StepResults, 2)
	assert.True(t, res.StepResults[0].Success)
	assert.Equal(t, models.ErrCancelled, res.StepResults[1].ErrorKind)
	assert.Contains(t, res.ErrorMessage, "cancelled")
	assert.Equal(t, 0, second.callCount())
}

func TestExecuteStepConfirmationDeclined(t *testing.T) {
	first := alwaysOK(nil)
	second := alwaysOK(nil)
	reg := testRegistry(t,
		actuator.Handler{Action: "safe", Fn: first.fn},
		actuator.Handler{Action: "risky", Fn: second.fn},
	)
	e := newTestExecutor(reg,
		WithConfirmationRequired(true),
		WithConfirm(func(p string) bool { return !strings.Contains(p, "risky") }),
	)

	risky := step(2, "risky", models.ErrorHandlingAbort)
	risky.RequiresConfirmation = true
	risky.ExpectedResult = "risky thing done"
	res := e.Execute(context.Background(),
		task("t16", step(1, "safe", models.ErrorHandlingAbort), risky))

	require.False(t, res.Success)
	require.Len(t, res.StepResults, 2)
	assert.True(t, res.StepResults[0].Success)
	assert.Equal(t, models.ErrUserDeclined, res.StepResults[1].ErrorKind)
	assert.Equal(t, 0, second.callCount())
}

func TestExecuteTimeoutKind(t *testing.T) {
	slow := func(ctx context.Context, params actuator.Params) (actuator.Outputs, error) {
		select {
		case <-time.After(2 * time.Second):
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	reg := testRegistry(t, actuator.Handler{Action: "slow", Fn: slow})
	e := newTestExecutor(reg)

	st := step(1, "slow", models.ErrorHandlingAbort)
	st.TimeoutSeconds = 1
	res := e.Execute(context.Background(), task("t17", st))

	require.False(t, res.Success)
	assert.Equal(t, models.ErrTimeout, res.StepResults[0].ErrorKind)
	assert.Contains(t, res.StepResults[0].Error, "exceeded")
}

func TestExecuteCancellationMarksRemainingSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &scripted{outcome: func(int) (actuator.Outputs, error) {
		cancel()
		return nil, nil
	}}
	later := alwaysOK(nil)
	reg := testRegistry(t,
		actuator.Handler{Action: "trip", Fn: first.fn},
		actuator.Handler{Action: "after", Fn: later.fn},
	)
	e := newTestExecutor(reg)

	res := e.Execute(ctx,
		task("t18", step(1, "trip", models.ErrorHandlingAbort),
			step(2, "after", models.ErrorHandlingAbort),
			step(3, "after", models.ErrorHandlingAbort)))

	require.False(t, res.Success)
	require.Len(t, res.StepResults, 3, "results still align with steps")
	assert.True(t, res.StepResults[0].Success)
	assert.True(t, res.StepResults[1].Cancelled)
	assert.True(t, res.StepResults[2].Cancelled)
	assert.Equal(t, 0, later.callCount())
	assert.Contains(t, res.ErrorMessage, "cancelled")
}

func TestExecuteNoHandlerKind(t *testing.T) {
	reg := actuator.NewRegistry()
	e := newTestExecutor(reg)

	res := e.Execute(context.Background(),
		task("t19", step(1, "does_not_exist", models.ErrorHandlingAbort)))

	require.False(t, res.Success)
	assert.Equal(t, models.ErrNoHandler, res.StepResults[0].ErrorKind)
}

func TestExecuteEventStream(t *testing.T) {
	s := &scripted{outcome: func(call int) (actuator.Outputs, error) {
		if call == 0 {
			return nil, actuator.NewError(models.ErrBackend, "first try fails")
		}
		return nil, nil
	}}
	reg := testRegistry(t, actuator.Handler{Action: "flaky", Fn: s.fn})
	e := newTestExecutor(reg)

	var types []EventType
	var mu sync.Mutex
	e.Subscribe(func(ev Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
	})

	res := e.Execute(context.Background(),
		task("t20", step(1, "flaky", models.ErrorHandlingRetry)))
	require.True(t, res.Success)

	assert.Equal(t, []EventType{
		EventTaskStarted,
		EventStepStarted,
		EventStepRetrying,
		EventStepSucceeded,
		EventTaskCompleted,
	}, types)
}

func TestExecuteObserverPanicIsContained(t *testing.T) {
	reg := testRegistry(t, actuator.Handler{Action: "a", Fn: alwaysOK(nil).fn})
	e := newTestExecutor(reg)
	e.Subscribe(func(Event) { panic("observer bug") })

	res := e.Execute(context.Background(),
		task("t21", step(1, "a", models.ErrorHandlingAbort)))
	require.True(t, res.Success)
}

func TestResolveParams(t *testing.T) {
	outputs := map[string]string{"generated_content": "body", "file_path": "/tmp/x.txt"}

	params, err := resolveParams(map[string]string{
		"content": "{{generated_content}}",
		"path":    "{{ file_path }}",
		"plain":   "literal",
	}, outputs)
	require.NoError(t, err)
	assert.Equal(t, "body", params["content"])
	assert.Equal(t, "/tmp/x.txt", params["path"])
	assert.Equal(t, "literal", params["plain"])

	_, err = resolveParams(map[string]string{"x": "{{missing}}"}, outputs)
	require.Error(t, err)
	var ae *actuator.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, models.ErrUnresolvedReference, ae.Kind)
}
