package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini generates text through the Google generative AI API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini provider. The API key is required.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: client.GenerativeModel(model)}, nil
}

// Name returns "gemini".
func (g *Gemini) Name() string { return "gemini" }

// Generate sends the prompt and returns the first text candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		wrapped := fmt.Errorf("gemini: generate: %w", err)
		if geminiTransient(err) || ctx.Err() != nil {
			return "", markTransient(wrapped)
		}
		return "", wrapped
	}
	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini: empty reply")
	}
	return text, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error { return g.client.Close() }

// geminiTransient reports whether an SDK error is worth a single retry:
// a rate-limit or server-side API status, or a network failure.
func geminiTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retryableStatus(gerr.Code)
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
