package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPClient talks to a sandbox provider over its JSON HTTP API:
//
//	POST   /v1/sandboxes            → {"id": "..."}
//	POST   /v1/sandboxes/{id}/exec  → {"stdout": "...", "stderr": "..."}
//	DELETE /v1/sandboxes/{id}
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewHTTPClient builds a provider client. Deadlines come from call
// contexts, so the underlying http.Client carries no timeout.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, apiKey: apiKey, httpc: &http.Client{}}
}

type createResponse struct {
	ID string `json:"id"`
}

type execRequest struct {
	Code string `json:"code"`
}

// Connect provisions a remote sandbox.
func (c *HTTPClient) Connect(ctx context.Context) (string, error) {
	var resp createResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sandboxes", nil, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("provider returned empty sandbox id")
	}
	return resp.ID, nil
}

// Execute runs code in the remote sandbox.
func (c *HTTPClient) Execute(ctx context.Context, remoteID, code string) (Output, error) {
	var out Output
	path := fmt.Sprintf("/v1/sandboxes/%s/exec", remoteID)
	if err := c.do(ctx, http.MethodPost, path, execRequest{Code: code}, &out); err != nil {
		return Output{}, err
	}
	return out, nil
}

// Close tears down the remote sandbox.
func (c *HTTPClient) Close(ctx context.Context, remoteID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sandboxes/"+remoteID, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sandbox provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sandbox provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
