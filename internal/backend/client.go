// Package backend is the HTTP client for the external extraction/retrieval
// service. Every error it returns sends the caller down the local fallback
// path; nothing here is ever surfaced to the end user.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// RetrieveLimit caps the number of ranked results requested from the
// backend retrieval endpoint.
const RetrieveLimit = 5

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type extractRequest struct {
	Message platform.Turn `json:"message"`
}

type extractResponse struct {
	Success bool            `json:"success"`
	Facts   []platform.Fact `json:"facts"`
}

type retrieveRequest struct {
	Query    string `json:"query"`
	Platform string `json:"platform"`
	Limit    int    `json:"limit"`
}

type retrieveResponse struct {
	Context []string `json:"context"`
}

// Extract sends one conversation turn for AI-powered fact extraction.
func (c *Client) Extract(ctx context.Context, turn platform.Turn) ([]platform.Fact, error) {
	var resp extractResponse
	if err := c.post(ctx, "/api/extract", extractRequest{Message: turn}, &resp); err != nil {
		return nil, err
	}
	return resp.Facts, nil
}

// Retrieve asks the backend for context relevant to a query, excluding the
// origin platform's own facts (the backend applies that exclusion).
func (c *Client) Retrieve(ctx context.Context, query string, origin platform.Platform) ([]string, error) {
	req := retrieveRequest{Query: query, Platform: string(origin), Limit: RetrieveLimit}
	var resp retrieveResponse
	if err := c.post(ctx, "/api/retrieve", req, &resp); err != nil {
		return nil, err
	}
	return resp.Context, nil
}

// Health probes the backend liveness endpoint. Any non-2xx status is an
// error.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend call %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend %s: status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
