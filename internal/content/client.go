package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"livepush-backend/config"
)

// ErrNotFound is returned when the CMS resolves an update id to zero
// records.
var ErrNotFound = errors.New("update not found")

// Update is a live update as returned by the CMS, together with the
// event it belongs to.
type Update struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Body   string `json:"body"`
	Event  struct {
		Slug  string `json:"slug"`
		Title string `json:"title"`
	} `json:"event"`
}

// Eligible reports whether the update warrants a notification run:
// it must be published and carry a non-empty body.
func (u *Update) Eligible() bool {
	return u.Status == "published" && strings.TrimSpace(u.Body) != ""
}

const updateQuery = `query LiveUpdate($id: ID!) {
  liveUpdate(id: $id) {
    id
    status
    body
    event {
      slug
      title
    }
  }
}`

// queryRequest is the typed query envelope the CMS accepts.
type queryRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// queryResponse models the top-level structure of the CMS response.
type queryResponse struct {
	Data struct {
		LiveUpdate *Update `json:"liveUpdate"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client queries the upstream CMS for live updates.
type Client struct {
	url    string
	token  string
	client *http.Client
}

// NewClient creates a CMS client from configuration.
func NewClient(cfg *config.ContentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:   cfg.URL,
		token: cfg.Token,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetUpdate fetches the current state of one live update by id.
// Returns ErrNotFound when the id resolves to nothing upstream.
func (c *Client) GetUpdate(ctx context.Context, id string) (*Update, error) {
	reqBody := queryRequest{
		Query:     updateQuery,
		Variables: map[string]any{"id": id},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var queryResp queryResponse
	if err := json.Unmarshal(body, &queryResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cms response: %w", err)
	}

	if len(queryResp.Errors) > 0 {
		return nil, fmt.Errorf("cms returned error: %s", queryResp.Errors[0].Message)
	}

	if queryResp.Data.LiveUpdate == nil {
		return nil, ErrNotFound
	}

	return queryResp.Data.LiveUpdate, nil
}
