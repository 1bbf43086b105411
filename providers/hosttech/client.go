// Package hosttech implements the zonesync provider interface for the Hosttech DNS API.
package hosttech

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

// apiZone represents a zone from the Hosttech API.
type apiZone struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	TTL        int         `json:"ttl,omitempty"`
	Nameserver string      `json:"nameserver,omitempty"`
	DNSSEC     bool        `json:"dnssec,omitempty"`
	Records    []apiRecord `json:"records,omitempty"`
}

// apiRecord is the union of all typed Hosttech record payloads. Which
// fields are used depends on Type.
type apiRecord struct {
	ID      int    `json:"id,omitempty"`
	Type    string `json:"type"`
	TTL     int    `json:"ttl,omitempty"`
	Comment string `json:"comment,omitempty"`

	Name       string `json:"name,omitempty"`       // A, AAAA, CAA, CNAME, TXT, TLSA owner; MX exchange; PTR target
	OwnerName  string `json:"ownername,omitempty"`  // MX, NS owner
	Origin     string `json:"origin,omitempty"`     // PTR owner
	Service    string `json:"service,omitempty"`    // SRV owner
	IPv4       string `json:"ipv4,omitempty"`       // A
	IPv6       string `json:"ipv6,omitempty"`       // AAAA
	CName      string `json:"cname,omitempty"`      // CNAME
	TargetName string `json:"targetname,omitempty"` // NS
	Target     string `json:"target,omitempty"`     // SRV
	Text       string `json:"text,omitempty"`       // TXT, TLSA
	Flag       string `json:"flag,omitempty"`       // CAA
	Tag        string `json:"tag,omitempty"`        // CAA
	Value      string `json:"value,omitempty"`      // CAA
	Pref       *int   `json:"pref,omitempty"`       // MX
	Priority   *int   `json:"priority,omitempty"`   // SRV
	Weight     *int   `json:"weight,omitempty"`     // SRV
	Port       *int   `json:"port,omitempty"`       // SRV
}

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Client is a Hosttech DNS API client.
type Client struct {
	baseURL    string
	token      string
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

// NewClient creates a new Hosttech API client.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
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

// doRequest performs an API call and decodes the "data" member of the
// response into out.
func (c *Client) doRequest(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

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

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

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
	var wrapper dataResponse
	if err := json.Unmarshal(respBody, &wrapper); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	if err := json.Unmarshal(wrapper.Data, out); err != nil {
		return fmt.Errorf("parsing response data: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		if len(e.Errors) == 0 {
			return e.Message
		}
		var details []string
		for field, msgs := range e.Errors {
			details = append(details, field+": "+strings.Join(msgs, ", "))
		}
		return e.Message + " (" + strings.Join(details, "; ") + ")"
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// ListZones returns all zones, optionally filtered by a search query.
func (c *Client) ListZones(ctx context.Context, query string) ([]apiZone, error) {
	var params url.Values
	if query != "" {
		params = url.Values{"query": {query}}
	}
	var zones []apiZone
	if err := c.doRequest(ctx, "list zones", http.MethodGet, "/zones", params, nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// GetZone returns a zone by ID, including its records.
func (c *Client) GetZone(ctx context.Context, id int) (*apiZone, error) {
	var zone apiZone
	if err := c.doRequest(ctx, "get zone", http.MethodGet, "/zones/"+strconv.Itoa(id), nil, nil, &zone); err != nil {
		return nil, err
	}
	return &zone, nil
}

// ListRecords returns the records of a zone.
func (c *Client) ListRecords(ctx context.Context, zoneID int) ([]apiRecord, error) {
	var records []apiRecord
	if err := c.doRequest(ctx, "list records", http.MethodGet, recordsPath(zoneID), nil, nil, &records); err != nil {
		return nil, err
	}
	c.logger.Debug("listed records",
		slog.Int("zone_id", zoneID),
		slog.Int("count", len(records)),
	)
	return records, nil
}

// CreateRecord creates a record in a zone.
func (c *Client) CreateRecord(ctx context.Context, zoneID int, record apiRecord) (*apiRecord, error) {
	var created apiRecord
	if err := c.doRequest(ctx, "create record", http.MethodPost, recordsPath(zoneID), nil, record, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateRecord replaces a record in a zone.
func (c *Client) UpdateRecord(ctx context.Context, zoneID int, record apiRecord) (*apiRecord, error) {
	path := recordsPath(zoneID) + "/" + strconv.Itoa(record.ID)
	record.ID = 0
	var updated apiRecord
	if err := c.doRequest(ctx, "update record", http.MethodPut, path, nil, record, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRecord deletes a record from a zone.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID int) error {
	path := recordsPath(zoneID) + "/" + strconv.Itoa(recordID)
	return c.doRequest(ctx, "delete record", http.MethodDelete, path, nil, nil, nil)
}

func recordsPath(zoneID int) string {
	return "/zones/" + strconv.Itoa(zoneID) + "/records"
}
