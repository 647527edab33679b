package churchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/peteski22/steward/internal/agent"
)

// Client is a church management platform API client.
type Client struct {
	// apiKey is the API key for authentication.
	apiKey string

	// baseURL is the base URL for API requests.
	baseURL string

	// httpClient is the HTTP client for making requests.
	httpClient *http.Client

	// pageSize is the number of items requested per page.
	pageSize int
}

// CreateTask creates a staff follow-up task. It implements agent.TaskSink.
func (c *Client) CreateTask(ctx context.Context, task agent.Task) error {
	body, err := json.Marshal(taskRequest{
		AssignedTo:  task.AssignedTo,
		Category:    task.Category,
		Description: task.Description,
		DueDate:     task.DueDate.Format(time.DateOnly),
		PersonID:    task.PersonID,
		Priority:    task.Priority,
		Title:       task.Title,
	})
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/tasks", bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Donations fetches donations recorded after the given time.
func (c *Client) Donations(ctx context.Context, since time.Time) ([]Donation, error) {
	params := url.Values{}
	params.Set("createdAfter", since.UTC().Format(time.RFC3339))
	return fetchAll[Donation](ctx, c, "/donations", params)
}

// GivingHistory fetches lifetime giving summaries for every donor.
func (c *Client) GivingHistory(ctx context.Context) ([]GivingSummary, error) {
	return fetchAll[GivingSummary](ctx, c, "/giving-history", url.Values{})
}

// KnownDonorIDs fetches the IDs of every person whose first gift was made before the given time.
func (c *Client) KnownDonorIDs(ctx context.Context, before time.Time) ([]string, error) {
	type donorRef struct {
		ID string `json:"id"`
	}

	params := url.Values{}
	params.Set("fields", "id")
	params.Set("firstGiftBefore", before.UTC().Format(time.RFC3339))
	refs, err := fetchAll[donorRef](ctx, c, "/donors", params)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// People fetches every person on the roster.
func (c *Client) People(ctx context.Context) ([]Person, error) {
	return fetchAll[Person](ctx, c, "/people", url.Values{})
}

// newRequest builds an authenticated JSON request.
func (c *Client) newRequest(ctx context.Context, method, reqURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// fetchAll follows the cursor until the last page and returns every item.
func fetchAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T
	var cursor string

	for {
		items, nextCursor, err := fetchPage[T](ctx, c, path, params, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return all, nil
}

// fetchPage fetches a single page of a list endpoint.
func fetchPage[T any](ctx context.Context, c *Client, path string, params url.Values, cursor string) ([]T, string, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode()), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result page[T]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Data, result.NextCursor, nil
}

// NewClient creates a new church platform API client.
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
		httpClient: httpClient,
		pageSize:   o.pageSize,
	}, nil
}
