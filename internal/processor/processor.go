// Package processor turns analyzed utterances into validated tasks. It runs
// one of two strategies: an AI strategy backed by an LLM provider, with a
// deterministic pattern strategy as the always-available fallback.
package processor

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hollis-dev/deskmate/internal/intent"
	"github.com/hollis-dev/deskmate/pkg/models"
)

// maxSimilarHints caps the task-history hints attached to a result.
const maxSimilarHints = 5

// Generator is the LLM collaborator contract the processor depends on.
// llm.Provider satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HistoryReader is the slice of the context store the processor reads.
type HistoryReader interface {
	SimilarTasks(command string, k int) ([]models.TaskHistoryEntry, error)
}

// Result is the outcome of processing one utterance.
type Result struct {
	// Task is the validated plan.
	Task *models.Task
	// Strategy names the strategy that produced the task (ai or pattern).
	Strategy string
	// SimilarTasks are historical hints for metrics and the UI. They are
	// advisory only.
	SimilarTasks []models.TaskHistoryEntry
}

// Processor builds tasks from utterances.
type Processor struct {
	gen     Generator
	history HistoryReader
	log     *zap.SugaredLogger
	seq     atomic.Int64
	session string
}

// New creates a processor. gen may be nil, which disables the AI strategy;
// history may be nil, which disables similarity hints.
func New(gen Generator, history HistoryReader, sessionID string, log *zap.SugaredLogger) *Processor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Processor{gen: gen, history: history, session: sessionID, log: log}
}

// Process parses an utterance into a validated task. The ambient map carries
// host-supplied context forwarded to the AI strategy verbatim.
func (p *Processor) Process(ctx context.Context, utterance string, ambient map[string]string) (*Result, error) {
	if utterance == "" {
		return nil, fmt.Errorf("empty utterance")
	}

	analysis := intent.Analyze(utterance)

	res := &Result{Strategy: "pattern"}
	if p.gen != nil {
		task, err := p.aiTask(ctx, utterance, analysis, ambient)
		if err != nil {
			p.log.Warnw("ai strategy failed, falling back to patterns",
				"error", err, "utterance", utterance)
		} else {
			res.Task = task
			res.Strategy = "ai"
		}
	}
	if res.Task == nil {
		res.Task = p.patternTask(utterance, analysis)
	}

	res.Task.TaskID = p.nextTaskID()
	res.Task.OriginalCommand = utterance
	Validate(res.Task)

	if p.history != nil {
		hints, err := p.history.SimilarTasks(utterance, maxSimilarHints)
		if err != nil {
			p.log.Warnw("similarity lookup failed", "error", err)
		} else {
			res.SimilarTasks = hints
		}
	}
	return res, nil
}

// nextTaskID returns a task ID monotonic within the session.
func (p *Processor) nextTaskID() string {
	return fmt.Sprintf("%s-task-%04d", p.session, p.seq.Add(1))
}
