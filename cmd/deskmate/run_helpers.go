package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/hollis-dev/deskmate/internal/assistant"
	"github.com/hollis-dev/deskmate/internal/config"
	"github.com/hollis-dev/deskmate/internal/executor"
	"github.com/hollis-dev/deskmate/internal/logging"
)

// stdin is shared between the command loop and the confirmation callback.
// They never read concurrently: the loop blocks on the event stream while a
// task runs.
var stdin = bufio.NewReader(os.Stdin)

// setup loads configuration and assembles the assistant pipeline.
func setup(ctx context.Context) (*assistant.Assistant, *config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logging: %w", err)
	}
	a, err := assistant.Build(ctx, cfg, log, stdinConfirm)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, cfg, log, nil
}

// stdinConfirm asks the user to approve a gated task or step.
func stdinConfirm(prompt string) bool {
	fmt.Printf("\n%s %s [y/N]: ", color.YellowString("⚠"), prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// printEvent renders one executor event to the terminal.
func printEvent(ev executor.Event) {
	switch ev.Type {
	case executor.EventTaskStarted:
		fmt.Printf("%s %s\n", color.CyanString("▸"), ev.Message)
	case executor.EventStepStarted:
		fmt.Printf("  %s step %d: %s\n", color.WhiteString("·"), ev.StepNumber, ev.Action)
	case executor.EventStepRetrying:
		fmt.Printf("  %s step %d: retrying %s (attempt %d)\n",
			color.YellowString("↻"), ev.StepNumber, ev.Action, ev.Attempt)
	case executor.EventStepSucceeded:
		fmt.Printf("  %s step %d: %s\n", color.GreenString("✓"), ev.StepNumber, ev.Action)
	case executor.EventStepFailed:
		fmt.Printf("  %s step %d: %s (%s)\n",
			color.RedString("✗"), ev.StepNumber, ev.Action, ev.ErrorKind)
	case executor.EventTaskCompleted:
		if ev.Success {
			fmt.Printf("%s done\n", color.GreenString("✓"))
		} else {
			fmt.Printf("%s failed: %s\n", color.RedString("✗"), ev.Message)
		}
	}
}

// runOne submits a single utterance and streams events until the task
// completes. It returns whether the task succeeded.
func runOne(a *assistant.Assistant, utterance string) (bool, error) {
	id, err := a.Submit(context.Background(), utterance, nil)
	if err != nil {
		return false, err
	}
	for ev := range a.Events() {
		printEvent(ev)
		if ev.Type == executor.EventTaskCompleted && ev.TaskID == id {
			return ev.Success, nil
		}
	}
	return false, fmt.Errorf("event stream closed before task %s completed", id)
}
