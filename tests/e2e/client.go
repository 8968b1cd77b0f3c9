package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError surfaces non-2xx responses from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

type VisitorCount struct {
	Count   uint64  `json:"count"`
	Display *string `json:"display,omitempty"`
}

// Get reads the current count.
func (c *Client) Get(ctx context.Context) (VisitorCount, error) {
	return c.do(ctx, http.MethodGet, "/api/visitor-count")
}

// GetCompact reads the count together with its badge rendering.
func (c *Client) GetCompact(ctx context.Context) (VisitorCount, error) {
	return c.do(ctx, http.MethodGet, "/api/visitor-count?format=compact")
}

// Increment records one visit and returns the count after it.
func (c *Client) Increment(ctx context.Context) (VisitorCount, error) {
	return c.do(ctx, http.MethodPost, "/api/visitor-count")
}

func (c *Client) do(ctx context.Context, method, path string) (VisitorCount, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return VisitorCount{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return VisitorCount{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return VisitorCount{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return VisitorCount{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out VisitorCount
	if err := json.Unmarshal(body, &out); err != nil {
		return VisitorCount{}, fmt.Errorf("decode body %q: %w", body, err)
	}
	return out, nil
}
