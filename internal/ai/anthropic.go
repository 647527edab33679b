package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// Anthropic writes messages with the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	maxTokens int64
	model     anthropic.Model
}

// NewAnthropic creates an Anthropic-backed writer.
func NewAnthropic(apiKey string, opts ...Option) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}
	if o.maxRetries >= 0 {
		clientOpts = append(clientOpts, option.WithMaxRetries(o.maxRetries))
	}

	model := o.model
	if model == "" {
		model = defaultAnthropicModel
	}

	return &Anthropic{
		client:    anthropic.NewClient(clientOpts...),
		maxTokens: o.maxTokens,
		model:     anthropic.Model(model),
	}, nil
}

// Write returns the text of the model's reply to prompt.
func (a *Anthropic) Write(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic returned no text")
	}

	return sb.String(), nil
}
