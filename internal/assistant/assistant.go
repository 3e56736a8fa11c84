// Package assistant wires the analyzer, processor, executor, and context
// store into the single-worker task pipeline that hosts submit utterances to.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hollis-dev/deskmate/internal/contextstore"
	"github.com/hollis-dev/deskmate/internal/executor"
	"github.com/hollis-dev/deskmate/internal/processor"
	"github.com/hollis-dev/deskmate/pkg/models"
)

const (
	// queueCapacity bounds how many tasks can wait behind the running one.
	queueCapacity = 32

	// eventBuffer sizes the emitter channel for UI consumers.
	eventBuffer = 256

	// formatConfidence is the confidence assigned to inferred document
	// format preferences. Inference never outranks explicit settings.
	formatConfidence = 0.6
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("assistant is closed")

// ErrQueueFull is returned by Submit when the task queue is at capacity.
var ErrQueueFull = errors.New("task queue is full")

// Assistant owns the FIFO task queue and the single execution worker. At
// most one task executes at a time; submission order equals execution order.
type Assistant struct {
	proc    *processor.Processor
	exec    *executor.Executor
	store   *contextstore.Store
	log     *zap.SugaredLogger
	session string

	queue   chan *pending
	emitter *executor.EventEmitter

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool

	done chan struct{}
}

type pending struct {
	task   *models.Task
	ctx    context.Context
	cancel context.CancelFunc
}

// New assembles an assistant and starts its worker. The store may be nil,
// which disables persistence and learning. Close must be called to stop the
// worker and close the session.
func New(proc *processor.Processor, exec *executor.Executor, store *contextstore.Store, sessionID string, log *zap.SugaredLogger) *Assistant {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	a := &Assistant{
		proc:    proc,
		exec:    exec,
		store:   store,
		log:     log,
		session: sessionID,
		queue:   make(chan *pending, queueCapacity),
		emitter: executor.NewEventEmitter(eventBuffer, log),
		cancels: make(map[string]context.CancelFunc),
		done:    make(chan struct{}),
	}
	exec.Subscribe(a.emitter.Emit)

	if a.store != nil {
		if err := a.store.StartSession(sessionID, "text"); err != nil {
			a.log.Warnw("failed to start session", "session_id", sessionID, "error", err)
		}
	}

	go a.worker()
	return a
}

// Submit processes the utterance into a task and queues it for execution.
// It returns the task ID without waiting for the task to run.
func (a *Assistant) Submit(ctx context.Context, utterance string, ambient map[string]string) (string, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return "", ErrClosed
	}
	a.mu.Unlock()

	res, err := a.proc.Process(ctx, utterance, ambient)
	if err != nil {
		return "", fmt.Errorf("process %q: %w", utterance, err)
	}
	task := res.Task
	a.log.Infow("task queued",
		"task_id", task.TaskID,
		"strategy", res.Strategy,
		"category", task.Category,
		"steps", len(task.Steps),
		"similar_hints", len(res.SimilarTasks))

	taskCtx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		cancel()
		return "", ErrClosed
	}
	a.cancels[task.TaskID] = cancel
	a.mu.Unlock()

	select {
	case a.queue <- &pending{task: task, ctx: taskCtx, cancel: cancel}:
		return task.TaskID, nil
	default:
		a.forget(task.TaskID)
		cancel()
		return "", ErrQueueFull
	}
}

// Cancel cancels the task if it is queued or running. It reports whether the
// task was known to the assistant.
func (a *Assistant) Cancel(taskID string) bool {
	a.mu.Lock()
	cancel, ok := a.cancels[taskID]
	a.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Subscribe attaches an observer to the executor's event stream.
func (a *Assistant) Subscribe(obs executor.Observer) {
	a.exec.Subscribe(obs)
}

// Events exposes the buffered event channel. Slow consumers drop events
// rather than stalling execution.
func (a *Assistant) Events() <-chan executor.Event {
	return a.emitter.Events()
}

// Close stops accepting tasks, drains the queue, ends the session, and shuts
// the event stream down.
func (a *Assistant) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.queue)
	<-a.done

	if a.store != nil {
		if err := a.store.EndSession(a.session); err != nil {
			a.log.Warnw("failed to end session", "session_id", a.session, "error", err)
		}
	}
	a.emitter.Close()
	return nil
}

// worker owns the execution loop. Tasks run strictly one at a time in
// submission order.
func (a *Assistant) worker() {
	defer close(a.done)
	for p := range a.queue {
		res := a.exec.Execute(p.ctx, p.task)
		a.forget(p.task.TaskID)
		p.cancel()
		a.afterTask(p.task, res)
	}
}

// afterTask persists the outcome and feeds the learning tables.
func (a *Assistant) afterTask(task *models.Task, res *models.ExecutionResult) {
	if !res.Success {
		a.log.Warnw("task failed",
			"task_id", task.TaskID, "error", res.ErrorMessage)
	}
	if a.store == nil {
		return
	}

	entry := models.TaskHistoryEntry{
		TaskID:               task.TaskID,
		Command:              task.OriginalCommand,
		Category:             task.Category,
		ExecutionTimeSeconds: res.ExecutionTimeSeconds,
		Success:              res.Success,
		Timestamp:            time.Now().UTC(),
	}
	if err := a.store.RecordTask(entry); err != nil {
		a.log.Warnw("failed to record task", "task_id", task.TaskID, "error", err)
	}
	if err := a.store.RecordUtterance(a.session, task.OriginalCommand, res.Success); err != nil {
		a.log.Warnw("failed to record utterance", "task_id", task.TaskID, "error", err)
	}

	a.reinforcePatterns(task)
	if res.Success {
		a.inferPreferences(task)
	}
}

// reinforcePatterns feeds the pattern table: the task category and the
// command's token bigrams.
func (a *Assistant) reinforcePatterns(task *models.Task) {
	if err := a.store.ReinforcePattern("category", string(task.Category)); err != nil {
		a.log.Warnw("failed to reinforce pattern", "error", err)
		return
	}
	tokens := strings.Fields(strings.ToLower(task.OriginalCommand))
	for i := 0; i+1 < len(tokens); i++ {
		bigram := tokens[i] + " " + tokens[i+1]
		if err := a.store.ReinforcePattern("command_bigram", bigram); err != nil {
			a.log.Warnw("failed to reinforce pattern", "error", err)
			return
		}
	}
}

// inferPreferences learns the preferred document format from filenames the
// user chose in successful document tasks.
func (a *Assistant) inferPreferences(task *models.Task) {
	if task.Category != models.CategoryDocument && task.Category != models.CategoryCreative {
		return
	}
	for _, step := range task.Steps {
		name := step.Parameters["filename"]
		if name == "" {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		if ext == "" {
			continue
		}
		if err := a.store.SetPreference("document", "format", ext, formatConfidence, false); err != nil {
			a.log.Warnw("failed to set preference", "error", err)
		}
		return
	}
}

func (a *Assistant) forget(taskID string) {
	a.mu.Lock()
	delete(a.cancels, taskID)
	a.mu.Unlock()
}
