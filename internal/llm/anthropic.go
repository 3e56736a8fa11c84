package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Anthropic generates text through the Anthropic Messages API, either
// directly or via AWS Bedrock.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(opts Options) (*Anthropic, error) {
	var reqOpts []option.RequestOption

	if opts.UseAWSBedrock {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if opts.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(opts.AWSRegion))
		}
		reqOpts = append(reqOpts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		if opts.APIKey == "" {
			return nil, fmt.Errorf("anthropic: api key is required")
		}
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}

	model := anthropic.Model(opts.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &Anthropic{client: anthropic.NewClient(reqOpts...), model: model}, nil
}

// Name returns "anthropic".
func (a *Anthropic) Name() string { return "anthropic" }

// Generate sends a single user message and concatenates the text blocks of
// the reply.
func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		wrapped := fmt.Errorf("anthropic: generate: %w", err)
		if anthropicTransient(err) || ctx.Err() != nil {
			return "", markTransient(wrapped)
		}
		return "", wrapped
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("anthropic: empty reply")
	}
	return text, nil
}

// anthropicTransient reports whether an SDK error is worth a single retry:
// a rate-limit or server-side API status, or a network failure.
func anthropicTransient(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}
	var ne net.Error
	return errors.As(err, &ne)
}
