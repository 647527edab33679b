// Package messaging provides a client for the email and SMS delivery gateway.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/peteski22/steward/internal/agent"
)

// Client is a messaging gateway client. It implements agent.Notifier.
type Client struct {
	// apiKey is the API key for authentication.
	apiKey string

	// baseURL is the base URL for API requests.
	baseURL string

	// fromEmail is the sender address for email.
	fromEmail string

	// fromNumber is the sender number for SMS.
	fromNumber string

	// httpClient is the HTTP client for making requests.
	httpClient *http.Client
}

// sendRequest is the gateway request body.
type sendRequest struct {
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	From     string            `json:"from,omitempty"`
	Subject  string            `json:"subject,omitempty"`
	Template string            `json:"template,omitempty"`
	To       string            `json:"to"`
}

// SendEmail sends an email through the gateway.
func (c *Client) SendEmail(ctx context.Context, msg agent.Message) (agent.SendResult, error) {
	return c.send(ctx, "/email", c.fromEmail, msg)
}

// SendSMS sends a text message through the gateway.
func (c *Client) SendSMS(ctx context.Context, msg agent.Message) (agent.SendResult, error) {
	return c.send(ctx, "/sms", c.fromNumber, msg)
}

// send posts msg to the gateway. A rejection reported in the response body is returned
// as an unsuccessful result, not an error.
func (c *Client) send(ctx context.Context, path, from string, msg agent.Message) (agent.SendResult, error) {
	body, err := json.Marshal(sendRequest{
		Body:     msg.Body,
		Data:     msg.Data,
		From:     from,
		Subject:  msg.Subject,
		Template: string(msg.Template),
		To:       msg.To,
	})
	if err != nil {
		return agent.SendResult{}, fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return agent.SendResult{}, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return agent.SendResult{}, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		respBody, _ := io.ReadAll(resp.Body)
		return agent.SendResult{Error: fmt.Sprintf("rejected with status %d: %s", resp.StatusCode, string(respBody))}, nil
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return agent.SendResult{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result agent.SendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return agent.SendResult{}, fmt.Errorf("decoding response: %w", err)
	}

	return result, nil
}

// NewClient creates a new messaging gateway client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    o.baseURL,
		fromEmail:  o.fromEmail,
		fromNumber: o.fromNumber,
		httpClient: httpClient,
	}, nil
}
