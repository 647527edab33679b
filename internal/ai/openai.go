package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI writes messages with the OpenAI Chat Completions API.
type OpenAI struct {
	client    openai.Client
	maxTokens int64
	model     openai.ChatModel
}

// NewOpenAI creates an OpenAI-backed writer.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
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

	model := openai.ChatModelGPT4oMini
	if o.model != "" {
		model = openai.ChatModel(o.model)
	}

	return &OpenAI{
		client:    openai.NewClient(clientOpts...),
		maxTokens: o.maxTokens,
		model:     model,
	}, nil
}

// Write returns the content of the first completion choice for prompt.
func (w *OpenAI) Write(ctx context.Context, prompt string) (string, error) {
	resp, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               w.model,
		MaxCompletionTokens: openai.Int(w.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai returned no text")
	}

	return resp.Choices[0].Message.Content, nil
}
