package assistant

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hollis-dev/deskmate/internal/actuator"
	"github.com/hollis-dev/deskmate/internal/backends"
	"github.com/hollis-dev/deskmate/internal/config"
	"github.com/hollis-dev/deskmate/internal/contextstore"
	"github.com/hollis-dev/deskmate/internal/executor"
	"github.com/hollis-dev/deskmate/internal/llm"
	"github.com/hollis-dev/deskmate/internal/processor"
)

// Build assembles the full pipeline from configuration: LLM provider,
// default backends, actuator registry, context store, processor, executor,
// and the assistant itself. The confirm callback may be nil when
// confirmation is disabled.
func Build(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, confirm executor.ConfirmFunc) (*Assistant, error) {
	provider, err := llm.New(ctx, llm.Options{
		Provider:      cfg.LLM.Provider,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		BaseURL:       cfg.LLM.BaseURL,
		UseAWSBedrock: cfg.LLM.UseAWSBedrock,
		AWSRegion:     cfg.LLM.AWSRegion,
	})
	if err != nil {
		// A broken provider disables the AI strategy but never the
		// assistant; the pattern strategy covers everything.
		log.Warnw("llm provider unavailable, using pattern strategy only",
			"provider", cfg.LLM.Provider, "error", err)
		provider = nil
	}

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath = contextstore.DefaultPath()
	}
	store, err := contextstore.Open(storePath)
	if err != nil {
		return nil, fmt.Errorf("open context store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate context store: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}

	var contentGen backends.Generator
	if provider != nil {
		contentGen = provider
	}
	registry := actuator.NewRegistry()
	actuator.RegisterDefaults(registry, actuator.Backends{
		Desktop: backends.NewSimDesktop(log),
		Screen:  backends.NewFileScreenshotter(workDir, log),
		Browser: backends.NewRodBrowser(log),
		Docs:    backends.NewTextDocumentWriter(workDir, cfg.Defaults.DocumentFormat, log),
		FS:      backends.NewLocalFS(),
		Content: backends.NewLLMContentGenerator(contentGen),
		Log:     log,
	})

	exec := executor.New(registry, log,
		executor.WithConfirm(confirm),
		executor.WithConfirmTimeout(cfg.Execution.ConfirmationTimeout),
		executor.WithConfirmationRequired(cfg.Execution.RequireConfirmation),
		executor.WithCapabilities(cfg.Execution.Capabilities...),
	)

	sessionID := uuid.New().String()
	var gen processor.Generator
	if provider != nil {
		gen = provider
	}
	proc := processor.New(gen, store, sessionID, log)

	return New(proc, exec, store, sessionID, log), nil
}
