package dnsupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/miekg/dns"
)

// Sentinel errors for RFC 2136 operations.
var (
	// ErrUpdateFailed is returned when the server rejects an UPDATE.
	ErrUpdateFailed = errors.New("dns update failed")

	// ErrAuthenticationFailed is returned when TSIG verification fails.
	ErrAuthenticationFailed = errors.New("tsig authentication failed")

	// ErrConnectionFailed is returned when the server cannot be reached.
	ErrConnectionFailed = errors.New("connection to dns server failed")

	// ErrZoneMismatch is returned for names or zones outside the configured zone.
	ErrZoneMismatch = errors.New("name does not match configured zone")

	// ErrAXFRFailed is returned when a zone transfer is refused or fails.
	ErrAXFRFailed = errors.New("zone transfer (AXFR) failed")
)

// Client sends queries, updates and zone transfers to one primary server.
type Client struct {
	config    *Config
	tsig      *TSIG
	logger    *slog.Logger
	dnsClient *dns.Client
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new RFC 2136 client with the given configuration.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tsig, err := TSIGFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("invalid TSIG configuration: %w", err)
	}

	c := &Client{
		config: config,
		tsig:   tsig,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.dnsClient = &dns.Client{
		Net:        "udp",
		Timeout:    config.GetTimeout(),
		TsigSecret: tsig.Secrets(),
	}
	if config.UseTCP {
		c.dnsClient.Net = "tcp"
	}

	c.logger.Debug("RFC 2136 client initialized",
		slog.String("server", config.GetServer()),
		slog.String("zone", config.GetZone()),
		slog.Bool("tsig", tsig != nil),
		slog.Bool("tcp", config.UseTCP),
	)

	return c, nil
}

// Zone returns the configured zone as an FQDN.
func (c *Client) Zone() string {
	return c.config.GetZone()
}

// Server returns the configured server address.
func (c *Client) Server() string {
	return c.config.GetServer()
}

// Ping verifies that the server answers authoritatively for the zone.
func (c *Client) Ping(ctx context.Context) error {
	msg := new(dns.Msg)
	msg.SetQuestion(c.Zone(), dns.TypeSOA)
	msg.RecursionDesired = false

	resp, rtt, err := c.dnsClient.ExchangeContext(ctx, msg, c.Server())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return fmt.Errorf("%w: server returned %s", ErrConnectionFailed, dns.RcodeToString[resp.Rcode])
	}
	if !resp.Authoritative {
		return fmt.Errorf("%w: server is not authoritative for %s", ErrZoneMismatch, c.Zone())
	}

	c.logger.Debug("DNS server ping successful",
		slog.Duration("rtt", rtt),
		slog.Int("answers", len(resp.Answer)),
	)
	return nil
}

// Update is one atomic UPDATE message. RRsets are removed before records,
// and records are removed before inserts.
type Update struct {
	RemoveRRsets []dns.RR
	Remove       []dns.RR
	Insert       []dns.RR
}

// Empty reports whether the update carries no changes.
func (u Update) Empty() bool {
	return len(u.RemoveRRsets) == 0 && len(u.Remove) == 0 && len(u.Insert) == 0
}

// Apply sends u as a single signed UPDATE message.
func (c *Client) Apply(ctx context.Context, u Update) error {
	if u.Empty() {
		return nil
	}

	msg := new(dns.Msg)
	msg.SetUpdate(c.Zone())
	if len(u.RemoveRRsets) > 0 {
		msg.RemoveRRset(u.RemoveRRsets)
	}
	if len(u.Remove) > 0 {
		msg.Remove(u.Remove)
	}
	if len(u.Insert) > 0 {
		msg.Insert(u.Insert)
	}
	c.tsig.Sign(msg)

	c.logger.Debug("sending DNS update",
		slog.String("zone", c.Zone()),
		slog.Int("remove_rrsets", len(u.RemoveRRsets)),
		slog.Int("remove", len(u.Remove)),
		slog.Int("insert", len(u.Insert)),
	)

	resp, _, err := c.dnsClient.ExchangeContext(ctx, msg, c.Server())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	return checkResponse(resp)
}

// Transfer returns every record of the zone via AXFR.
func (c *Client) Transfer(ctx context.Context) ([]dns.RR, error) {
	transfer := &dns.Transfer{
		DialTimeout:  c.config.GetTimeout(),
		ReadTimeout:  c.config.GetTimeout(),
		WriteTimeout: c.config.GetTimeout(),
		TsigSecret:   c.tsig.Secrets(),
	}

	msg := new(dns.Msg)
	msg.SetAxfr(c.Zone())
	c.tsig.Sign(msg)

	c.logger.Debug("initiating AXFR zone transfer",
		slog.String("server", c.Server()),
		slog.String("zone", c.Zone()),
	)

	env, err := transfer.In(msg, c.Server())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAXFRFailed, err)
	}

	var records []dns.RR
	for e := range env {
		if e.Error != nil {
			// Drain the channel so the transfer goroutine can exit.
			for range env {
			}
			return nil, fmt.Errorf("%w: %w", ErrAXFRFailed, e.Error)
		}
		if err := ctx.Err(); err != nil {
			for range env {
			}
			return nil, err
		}
		records = append(records, e.RR...)
	}

	c.logger.Debug("AXFR zone transfer complete",
		slog.String("zone", c.Zone()),
		slog.Int("records", len(records)),
	)

	return records, nil
}

// checkResponse maps an UPDATE response code to an error.
func checkResponse(resp *dns.Msg) error {
	if resp == nil {
		return fmt.Errorf("%w: no response from server", ErrUpdateFailed)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return nil
	case dns.RcodeNotAuth:
		if resp.IsTsig() != nil {
			return fmt.Errorf("%w: %s", ErrAuthenticationFailed, dns.RcodeToString[resp.Rcode])
		}
		return fmt.Errorf("%w: server not authoritative for zone", ErrUpdateFailed)
	case dns.RcodeBadSig, dns.RcodeBadKey, dns.RcodeBadTime:
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, dns.RcodeToString[resp.Rcode])
	case dns.RcodeRefused:
		return fmt.Errorf("%w: update refused (check server policy or TSIG configuration)", ErrUpdateFailed)
	case dns.RcodeNotZone:
		return ErrZoneMismatch
	default:
		return fmt.Errorf("%w: %s", ErrUpdateFailed, dns.RcodeToString[resp.Rcode])
	}
}

// IsNetworkError checks if an error is a network-related error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}
