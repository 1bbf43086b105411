// Package adguardhome implements the zonesync provider interface on top of
// AdGuardHome DNS rewrites.
package adguardhome

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

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// rewrite is one AdGuardHome DNS rewrite rule.
type rewrite struct {
	Domain string `json:"domain"`
	Answer string `json:"answer"`
}

type rewriteUpdate struct {
	Target rewrite `json:"target"`
	Update rewrite `json:"update"`
}

type statusResponse struct {
	Version string `json:"version"`
	Running bool   `json:"running"`
}

// Client is an AdGuardHome control API client.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new AdGuardHome API client.
func NewClient(baseURL, username, password string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	c.logger.Debug("making API request",
		slog.String("method", method),
		slog.String("path", path),
	)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.APIError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.APIError{Operation: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return provider.NewAPIError("", op, resp.StatusCode, msg)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}

// Status returns the server status.
func (c *Client) Status(ctx context.Context) (*statusResponse, error) {
	var status statusResponse
	if err := c.doRequest(ctx, "status", http.MethodGet, "/control/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListRewrites returns all DNS rewrites.
func (c *Client) ListRewrites(ctx context.Context) ([]rewrite, error) {
	var rewrites []rewrite
	if err := c.doRequest(ctx, "list rewrites", http.MethodGet, "/control/rewrite/list", nil, &rewrites); err != nil {
		return nil, err
	}
	return rewrites, nil
}

// AddRewrite adds a DNS rewrite.
func (c *Client) AddRewrite(ctx context.Context, rw rewrite) error {
	return c.doRequest(ctx, "add rewrite", http.MethodPost, "/control/rewrite/add", rw, nil)
}

// DeleteRewrite removes a DNS rewrite.
func (c *Client) DeleteRewrite(ctx context.Context, rw rewrite) error {
	return c.doRequest(ctx, "delete rewrite", http.MethodPost, "/control/rewrite/delete", rw, nil)
}

// UpdateRewrite replaces target with update.
func (c *Client) UpdateRewrite(ctx context.Context, target, update rewrite) error {
	return c.doRequest(ctx, "update rewrite", http.MethodPut, "/control/rewrite/update", rewriteUpdate{Target: target, Update: update}, nil)
}
