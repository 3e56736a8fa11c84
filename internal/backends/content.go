package backends

import (
	"context"
	"fmt"
	"strings"
)

// Generator is the narrow LLM surface the content backend needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMContentGenerator produces document text through an LLM provider. With
// no provider configured it falls back to deterministic templates, so
// pattern-only installs still complete document tasks.
type LLMContentGenerator struct {
	gen Generator
}

// NewLLMContentGenerator creates a content generator. gen may be nil.
func NewLLMContentGenerator(gen Generator) *LLMContentGenerator {
	return &LLMContentGenerator{gen: gen}
}

// GenerateArticle produces article text about the topic.
func (c *LLMContentGenerator) GenerateArticle(ctx context.Context, topic string) (string, error) {
	if c.gen != nil {
		text, err := c.gen.Generate(ctx, fmt.Sprintf(
			"Write a short, well-structured article about %s. Plain text only.", topic))
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return templateArticle(topic), nil
}

// GenerateDocument produces text for a typed document (letter, report,
// resume, ...).
func (c *LLMContentGenerator) GenerateDocument(ctx context.Context, docType, topic string) (string, error) {
	if c.gen != nil {
		text, err := c.gen.Generate(ctx, fmt.Sprintf(
			"Write a %s about %s. Plain text only.", docType, topic))
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return fmt.Sprintf("%s\n\n%s", strings.ToUpper(docType), templateArticle(topic)), nil
}

func templateArticle(topic string) string {
	if topic == "" {
		topic = "the requested subject"
	}
	return fmt.Sprintf(
		"About %[1]s\n\n"+
			"This document covers %[1]s. It introduces the subject, outlines the "+
			"key points a reader should know, and closes with a short summary.\n\n"+
			"Summary: %[1]s in brief.\n", topic)
}
