// Package ai generates personalised message text with hosted language models.
package ai

import (
	"context"
	"fmt"
)

// Provider names a supported model provider.
type Provider string

const (
	// ProviderAnthropic selects the Anthropic Messages API.
	ProviderAnthropic Provider = "anthropic"

	// ProviderNone disables generation.
	ProviderNone Provider = ""

	// ProviderOpenAI selects the OpenAI Chat Completions API.
	ProviderOpenAI Provider = "openai"
)

// Writer produces text for a prompt.
type Writer interface {
	// Write returns generated text for the prompt.
	Write(ctx context.Context, prompt string) (string, error)
}

// New returns the writer for provider, or nil when provider is ProviderNone.
func New(provider Provider, apiKey string, opts ...Option) (Writer, error) {
	switch provider {
	case ProviderNone:
		return nil, nil
	case ProviderAnthropic:
		w, err := NewAnthropic(apiKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating anthropic writer: %w", err)
		}
		return w, nil
	case ProviderOpenAI:
		w, err := NewOpenAI(apiKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating openai writer: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", provider)
	}
}
