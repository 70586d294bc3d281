// Package tracker is a client for the Pivotal Tracker REST API (v5). It maps
// tracker stories onto story.Story and is the story source for every command.
package tracker

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
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/story"
)

const (
	// DefaultBaseURL is the Pivotal Tracker API root.
	DefaultBaseURL = "https://www.pivotaltracker.com/services/v5"

	// TokenEnv is the environment variable holding the API token.
	TokenEnv = "PIVOTAL_API_TOKEN"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryMaxElapsed bounds the total time spent retrying one call.
	DefaultRetryMaxElapsed = 30 * time.Second

	tokenHeader = "X-TrackerToken"
)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRetryMaxElapsed bounds retries of transient failures. Zero disables
// retrying.
func WithRetryMaxElapsed(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryMaxElapsed = d
	}
}

// Client provides HTTP access to one Pivotal Tracker project.
type Client struct {
	token           string
	projectID       string
	baseURL         string
	httpClient      *http.Client
	retryMaxElapsed time.Duration
}

// NewClient creates a client for the given project.
func NewClient(token, projectID string, opts ...ClientOption) *Client {
	c := &Client{
		token:           token,
		projectID:       projectID,
		baseURL:         DefaultBaseURL,
		httpClient:      &http.Client{Timeout: DefaultTimeout},
		retryMaxElapsed: DefaultRetryMaxElapsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProjectID returns the configured project.
func (c *Client) ProjectID() string {
	return c.projectID
}

// APIError is a non-2xx response from the tracker.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Kind       string `json:"kind"`
	Message    string `json:"error"`
	Advice     string `json:"general_problem"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pivotal tracker API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pivotal tracker API error (status %d)", e.StatusCode)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFoundError reports a 404 response.
func IsNotFoundError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) newBackoff() backoff.BackOff {
	if c.retryMaxElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = c.retryMaxElapsed
	return bo
}

// doRequest sends one API call, retrying rate limits, server errors and
// transport failures, and decodes a JSON response into out when non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.token == "" {
		return fmt.Errorf("pivotal tracker API token not configured (set %s or pivotal.api-token)", TokenEnv)
	}
	if c.projectID == "" {
		return fmt.Errorf("pivotal tracker project id not configured")
	}

	apiURL := fmt.Sprintf("%s/projects/%s%s", c.baseURL, url.PathEscape(c.projectID), path)
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var respBody []byte
	attempt := 0
	op := func() error {
		attempt++
		var err error
		respBody, err = c.send(ctx, method, apiURL, payload)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		sflog.Debug("retrying tracker request", "method", method, "url", apiURL, "attempt", attempt, "error", err)
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackoff(), ctx)); err != nil {
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse tracker response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, apiURL string, payload []byte) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		apiErr.StatusCode = resp.StatusCode
		return nil, apiErr
	}

	return respBody, nil
}

// GetStory fetches one story. A missing story wraps story.ErrNotFound.
func (c *Client) GetStory(ctx context.Context, id int64) (story.Story, error) {
	var raw apiStory
	err := c.doRequest(ctx, http.MethodGet, "/stories/"+strconv.FormatInt(id, 10), nil, nil, &raw)
	if err != nil {
		if IsNotFoundError(err) {
			return story.Story{}, fmt.Errorf("%w: #%d: %w", story.ErrNotFound, id, err)
		}
		return story.Story{}, fmt.Errorf("get story %d: %w", id, err)
	}
	return raw.toStory()
}

// QueryStories runs a tracker search filter built from q.
func (c *Client) QueryStories(ctx context.Context, q story.Query) ([]story.Story, error) {
	params := url.Values{}
	if filter := FilterString(q); filter != "" {
		params.Set("filter", filter)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var raw []apiStory
	if err := c.doRequest(ctx, http.MethodGet, "/stories", params, nil, &raw); err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}

	stories := make([]story.Story, 0, len(raw))
	for _, r := range raw {
		s, err := r.toStory()
		if err != nil {
			sflog.Debug("skipping story", "id", r.ID, "error", err)
			continue
		}
		stories = append(stories, s)
	}
	return stories, nil
}

// ListNotes returns the comments of a story, oldest first.
func (c *Client) ListNotes(ctx context.Context, id int64) ([]story.Note, error) {
	var raw []apiComment
	if err := c.doRequest(ctx, http.MethodGet, "/stories/"+strconv.FormatInt(id, 10)+"/comments", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list notes of story %d: %w", id, err)
	}

	notes := make([]story.Note, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		notes = append(notes, story.Note{Text: r.Text, NotedAt: r.CreatedAt})
	}
	return notes, nil
}

// UpdateState moves a story to a new current_state.
func (c *Client) UpdateState(ctx context.Context, id int64, state string) (story.Story, error) {
	var raw apiStory
	body := map[string]string{"current_state": state}
	if err := c.doRequest(ctx, http.MethodPut, "/stories/"+strconv.FormatInt(id, 10), nil, body, &raw); err != nil {
		return story.Story{}, fmt.Errorf("update story %d to %s: %w", id, state, err)
	}
	return raw.toStory()
}

// FinishedState is the state a story moves to once its branch is merged.
// Features and bugs need acceptance; chores and releases have no acceptance step.
func FinishedState(c story.Category) string {
	switch c {
	case story.Feature, story.Bug:
		return "finished"
	default:
		return "accepted"
	}
}
