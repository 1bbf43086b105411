// Package hetzner implements the zonesync provider interface for the Hetzner DNS API.
package hetzner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// apiZone represents a zone from the Hetzner API.
type apiZone struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	TTL          int      `json:"ttl"`
	NS           []string `json:"ns,omitempty"`
	Status       string   `json:"status,omitempty"`
	RecordsCount int      `json:"records_count,omitempty"`
}

// apiRecord represents a record from the Hetzner API.
type apiRecord struct {
	ID     string `json:"id,omitempty"`
	ZoneID string `json:"zone_id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	TTL    *int   `json:"ttl,omitempty"`
}

type pagination struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	LastPage     int `json:"last_page"`
	TotalEntries int `json:"total_entries"`
}

type meta struct {
	Pagination pagination `json:"pagination"`
}

type zonesResponse struct {
	Zones []apiZone `json:"zones"`
	Meta  meta      `json:"meta"`
}

type zoneResponse struct {
	Zone apiZone `json:"zone"`
}

type recordsResponse struct {
	Records []apiRecord `json:"records"`
	Meta    meta        `json:"meta"`
}

type recordResponse struct {
	Record apiRecord `json:"record"`
}

type bulkRequest struct {
	Records []apiRecord `json:"records"`
}

type bulkCreateResponse struct {
	Records        []apiRecord `json:"records"`
	ValidRecords   []apiRecord `json:"valid_records"`
	InvalidRecords []apiRecord `json:"invalid_records"`
}

type bulkUpdateResponse struct {
	Records       []apiRecord `json:"records"`
	FailedRecords []apiRecord `json:"failed_records"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

// Client is a Hetzner DNS API client.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
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

// WithPageSize sets the page size used for listings.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a new Hetzner DNS API client.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		token:    token,
		pageSize: DefaultPageSize,
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

// doRequest performs an API call. Non-2xx responses become *provider.APIError.
func (c *Client) doRequest(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	c.logger.Debug("making API request",
		slog.String("method", method),
		slog.String("path", path),
	)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Auth-API-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.APIError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.APIError{Operation: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return provider.NewAPIError("", op, resp.StatusCode, errorMessage(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// Ping verifies that the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{"per_page": {"1"}}
	return c.doRequest(ctx, "ping", http.MethodGet, "/zones", query, nil, &zonesResponse{})
}

// ListZones returns all zones, or only the zone with the given name.
func (c *Client) ListZones(ctx context.Context, name string) ([]apiZone, error) {
	var zones []apiZone
	for page := 1; ; page++ {
		query := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(c.pageSize)},
		}
		if name != "" {
			query.Set("name", name)
		}

		var resp zonesResponse
		if err := c.doRequest(ctx, "list zones", http.MethodGet, "/zones", query, nil, &resp); err != nil {
			// A name filter without match is answered with 404.
			if name != "" && provider.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		zones = append(zones, resp.Zones...)

		if page >= resp.Meta.Pagination.LastPage || len(resp.Zones) == 0 {
			break
		}
	}
	return zones, nil
}

// GetZone returns a zone by ID.
func (c *Client) GetZone(ctx context.Context, id string) (*apiZone, error) {
	var resp zoneResponse
	if err := c.doRequest(ctx, "get zone", http.MethodGet, "/zones/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Zone, nil
}

// ListRecords returns all records of a zone.
func (c *Client) ListRecords(ctx context.Context, zoneID string) ([]apiRecord, error) {
	var records []apiRecord
	for page := 1; ; page++ {
		query := url.Values{
			"zone_id":  {zoneID},
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(c.pageSize)},
		}

		var resp recordsResponse
		if err := c.doRequest(ctx, "list records", http.MethodGet, "/records", query, nil, &resp); err != nil {
			return nil, err
		}
		records = append(records, resp.Records...)

		if page >= resp.Meta.Pagination.LastPage || len(resp.Records) == 0 {
			break
		}
	}

	c.logger.Debug("listed records",
		slog.String("zone_id", zoneID),
		slog.Int("count", len(records)),
	)
	return records, nil
}

// CreateRecord creates a record.
func (c *Client) CreateRecord(ctx context.Context, record apiRecord) (*apiRecord, error) {
	var resp recordResponse
	if err := c.doRequest(ctx, "create record", http.MethodPost, "/records", nil, record, &resp); err != nil {
		return nil, err
	}
	return &resp.Record, nil
}

// UpdateRecord replaces the record with the given ID.
func (c *Client) UpdateRecord(ctx context.Context, record apiRecord) (*apiRecord, error) {
	id := record.ID
	record.ID = ""
	var resp recordResponse
	if err := c.doRequest(ctx, "update record", http.MethodPut, "/records/"+url.PathEscape(id), nil, record, &resp); err != nil {
		return nil, err
	}
	return &resp.Record, nil
}

// DeleteRecord deletes the record with the given ID.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.doRequest(ctx, "delete record", http.MethodDelete, "/records/"+url.PathEscape(id), nil, nil, nil)
}

// BulkCreateRecords creates several records in one call.
func (c *Client) BulkCreateRecords(ctx context.Context, records []apiRecord) (*bulkCreateResponse, error) {
	var resp bulkCreateResponse
	if err := c.doRequest(ctx, "bulk create records", http.MethodPost, "/records/bulk", nil, bulkRequest{Records: records}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BulkUpdateRecords updates several records in one call. Each record must carry its ID.
func (c *Client) BulkUpdateRecords(ctx context.Context, records []apiRecord) (*bulkUpdateResponse, error) {
	var resp bulkUpdateResponse
	if err := c.doRequest(ctx, "bulk update records", http.MethodPut, "/records/bulk", nil, bulkRequest{Records: records}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
