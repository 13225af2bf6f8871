package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"topic2manim/internal/jobs"
)

// ErrJobNotFound is returned by Client.Progress for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// Client talks to a running server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for baseURL. A bare host:port is treated as http.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" && !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// BaseURL returns the server root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate submits a topic and returns the acknowledgement.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	var resp GenerateResponse
	err := c.do(ctx, http.MethodPost, "/api/generate", req, http.StatusAccepted, &resp)
	return resp, err
}

// Progress fetches one job record.
func (c *Client) Progress(ctx context.Context, id string) (jobs.Record, error) {
	var rec jobs.Record
	err := c.do(ctx, http.MethodGet, "/api/progress/"+url.PathEscape(id), nil, http.StatusOK, &rec)
	return rec, err
}

// Jobs lists retained jobs.
func (c *Client) Jobs(ctx context.Context) ([]jobs.Record, error) {
	var resp JobListResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs", nil, http.StatusOK, &resp)
	return resp.Jobs, err
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, http.StatusOK, &resp)
	return resp, err
}

// MediaURL resolves a record's video_url against the server root.
func (c *Client) MediaURL(videoURL string) string {
	if videoURL == "" || strings.Contains(videoURL, "://") {
		return videoURL
	}
	return c.baseURL + "/" + strings.TrimLeft(videoURL, "/")
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/api/progress/") {
			return ErrJobNotFound
		}
		message := strings.TrimSpace(apiErr.Error)
		if message == "" {
			message = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, message)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
