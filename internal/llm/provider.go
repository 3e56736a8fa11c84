// Package llm provides the single collaborator contract the core needs from
// a language-model provider: Generate(prompt) -> reply text. Concrete
// providers translate their SDK errors into transient or permanent failures
// so the processor can decide whether a retry is worthwhile.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Provider is the LLM collaborator interface.
type Provider interface {
	// Generate sends a prompt and returns the raw reply text.
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider (gemini, anthropic, openai, ollama).
	Name() string
}

// Options configures provider construction.
type Options struct {
	// Provider selects the backend: gemini, anthropic, openai, ollama, none.
	Provider string
	// APIKey authenticates against hosted providers.
	APIKey string
	// Model overrides the provider's default model.
	Model string
	// BaseURL overrides the endpoint for openai/ollama style providers.
	BaseURL string
	// UseAWSBedrock routes anthropic calls through AWS Bedrock.
	UseAWSBedrock bool
	// AWSRegion is the Bedrock region.
	AWSRegion string
}

// New constructs the provider named in opts. It returns (nil, nil) for
// "none" or an empty provider, which disables the AI strategy upstream.
func New(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Provider {
	case "", "none":
		return nil, nil
	case "gemini":
		return NewGemini(ctx, opts)
	case "anthropic":
		return NewAnthropic(opts)
	case "openai":
		return NewOpenAI(opts)
	case "ollama":
		return NewOllama(opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

// transientError marks failures worth a single retry (network, timeout).
type transientError struct {
	err error
}

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

// markTransient wraps err as transient.
func markTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// retryableStatus reports whether an HTTP status from a provider is worth
// a single retry. Rate limits and server-side failures qualify; client
// errors like bad auth or malformed requests do not.
func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		(code >= 500 && code <= 599)
}

// IsTransient reports whether err represents a transient provider failure.
// Timeouts and network errors qualify; schema and auth failures do not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
