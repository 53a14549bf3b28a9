// Package api provides a typed client for the MIGR8 analysis server.
// Every endpoint wraps its payload as {success, data|error}; typed methods
// unwrap that envelope, while Do exposes the raw shape for callers that
// need it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxResponseSize limits response bodies to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// healthTimeout bounds the single pre-run health probe.
const healthTimeout = 5 * time.Second

// Client issues JSON requests against the MIGR8 API base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. http://localhost:3000/api).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 240 * time.Second, // the analyze trigger can be slow to acknowledge
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Response is the normalized outcome of a single API request. A body that
// parses as JSON lands in Data regardless of status code; a body that does
// not parse lands in Error as raw text.
type Response struct {
	Status int
	Data   json.RawMessage
	Error  string
}

// envelope is the uniform wrapper every MIGR8 endpoint responds with.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Do issues a single JSON request. Transport failures (connection refused,
// timeout, cancellation) are returned as errors; an HTTP error status alone
// never is. No retries.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	requestID := uuid.New().String()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("API request",
		"request_id", requestID,
		"method", method,
		"path", path)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	resp := &Response{Status: httpResp.StatusCode}
	if json.Valid(raw) {
		resp.Data = json.RawMessage(raw)
	} else {
		resp.Error = string(raw)
	}

	c.logger.Debug("API response",
		"request_id", requestID,
		"status", httpResp.StatusCode,
		"bytes", len(raw))

	return resp, nil
}

// call issues the request and unwraps the envelope into out. Pass a nil out
// when only success matters.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if resp.Data == nil {
		return &APIError{Status: resp.Status, Message: strings.TrimSpace(resp.Error)}
	}

	var env envelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return fmt.Errorf("unmarshal response: %w (body: %s)", err, string(resp.Data))
	}
	if !env.Success {
		return &APIError{Status: resp.Status, Message: env.Error}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("unmarshal %s %s data: %w", method, path, err)
		}
	}
	return nil
}

// Health probes the server carrying the API. The API base lives under /api;
// the probe hits the server root above it with a short deadline. Any 2xx
// response counts as alive.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	rootURL := strings.TrimSuffix(c.baseURL, "/api")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rootURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health probe %s: %w", rootURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health probe failed with status %d", resp.StatusCode)
	}
	return nil
}

// CreateProject registers a new project rooted at req.RootPath.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	var project Project
	if err := c.call(ctx, http.MethodPost, "/projects", req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects returns all projects known to the server.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.call(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches a single project, including stats once the server has
// computed them.
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var project Project
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/projects/%s", id), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// StartAnalysis kicks off the asynchronous analysis job for a project.
// Completion is observed by polling GetProject, not by this call.
func (c *Client) StartAnalysis(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/analyze", id), nil, nil)
}

// MigrationRules lists the transformation rules the server can apply.
func (c *Client) MigrationRules(ctx context.Context) ([]MigrationRule, error) {
	var rules []MigrationRule
	if err := c.call(ctx, http.MethodGet, "/migration/rules", nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
