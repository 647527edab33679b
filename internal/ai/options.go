package ai

import (
	"fmt"
	"net/http"
	"strings"
)

// Option configures optional Writer settings.
type Option func(*options) error

// options holds optional configuration for creating a Writer.
type options struct {
	// baseURL overrides the provider API endpoint.
	baseURL string

	// httpClient is a custom HTTP client.
	httpClient *http.Client

	// maxRetries is the number of SDK retries, or -1 for the SDK default.
	maxRetries int

	// maxTokens caps the generated length.
	maxTokens int64

	// model is the provider model name.
	model string
}

// WithBaseURL sets a custom base URL for the provider API.
func WithBaseURL(baseURL string) Option {
	return func(o *options) error {
		baseURL = strings.TrimSpace(baseURL)
		if baseURL == "" {
			return fmt.Errorf("base URL cannot be empty")
		}
		o.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) error {
		if httpClient == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		o.httpClient = httpClient
		return nil
	}
}

// WithMaxRetries sets how many times the SDK retries a failed request.
func WithMaxRetries(retries int) Option {
	return func(o *options) error {
		if retries < 0 {
			return fmt.Errorf("max retries must not be negative, got %d", retries)
		}
		o.maxRetries = retries
		return nil
	}
}

// WithMaxTokens caps the length of generated text.
func WithMaxTokens(maxTokens int64) Option {
	return func(o *options) error {
		if maxTokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", maxTokens)
		}
		o.maxTokens = maxTokens
		return nil
	}
}

// WithModel sets the provider model name.
func WithModel(model string) Option {
	return func(o *options) error {
		model = strings.TrimSpace(model)
		if model == "" {
			return fmt.Errorf("model cannot be empty")
		}
		o.model = model
		return nil
	}
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() *options {
	return &options{
		maxRetries: -1,
		maxTokens:  512,
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return o, nil
}
