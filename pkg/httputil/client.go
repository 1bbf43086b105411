// Package httputil provides the shared HTTP client used by zonesync providers.
package httputil

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"gitlab.bluewillows.net/root/zonesync/internal/metrics"
)

// Default HTTP client configuration values.
const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is used when no custom user agent is specified.
	DefaultUserAgent = "zonesync/1.0"

	// DefaultRetryBaseDelay is the first backoff interval between attempts.
	DefaultRetryBaseDelay = 500 * time.Millisecond

	// DefaultRetryMaxDelay caps the backoff interval.
	DefaultRetryMaxDelay = 10 * time.Second
)

// ClientConfig contains configuration for creating an HTTP client.
type ClientConfig struct {
	// Timeout is the HTTP client timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// TLSSkipVerify controls whether to skip TLS certificate verification.
	// Only for servers with self-signed certificates.
	TLSSkipVerify bool

	// UserAgent is the User-Agent header to set on requests.
	// Defaults to "zonesync/1.0" if not specified.
	UserAgent string

	// RateLimit is the maximum number of requests per second. Zero disables
	// rate limiting.
	RateLimit float64

	// Burst is the number of requests allowed above RateLimit. Defaults to 1.
	Burst int

	// MaxRetries is the number of additional attempts for idempotent
	// requests that fail with a network error, 429 or 5xx. Zero disables
	// retries.
	MaxRetries int

	// RetryBaseDelay is the first backoff interval. Defaults to 500ms.
	RetryBaseDelay time.Duration

	// Logger enables debug logging for HTTP requests.
	// If nil, no debug logging is performed.
	Logger *slog.Logger
}

// userAgentTransport sets the User-Agent header and optionally logs
// requests at debug level.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	if t.logger != nil {
		t.logger.Debug("HTTP request",
			slog.String("method", req.Method),
			slog.String("url", req.URL.Redacted()),
		)
	}

	resp, err := t.base.RoundTrip(req)

	if t.logger != nil && resp != nil {
		t.logger.Debug("HTTP response",
			slog.String("method", req.Method),
			slog.String("url", req.URL.Redacted()),
			slog.Int("status", resp.StatusCode),
		)
	}

	return resp, err
}

// rateLimitTransport blocks until the limiter admits the request.
type rateLimitTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return t.base.RoundTrip(req)
}

// retryTransport retries idempotent requests with exponential backoff.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !isIdempotent(req.Method) || (req.Body != nil && req.Body != http.NoBody && req.GetBody == nil) {
		return t.base.RoundTrip(req)
	}

	backoff := retry.WithMaxRetries(uint64(t.maxRetries),
		retry.WithCappedDuration(DefaultRetryMaxDelay, retry.NewExponential(t.baseDelay)))

	attempt := 0
	var resp *http.Response
	err := retry.Do(req.Context(), backoff, func(ctx context.Context) error {
		attempt++
		r := req
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return err
			}
			r = req.Clone(ctx)
			r.Body = body
		}

		var err error
		resp, err = t.base.RoundTrip(r)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			t.logRetry(req, attempt, 0, err)
			return retry.RetryableError(err)
		}
		if isRetryableStatus(resp.StatusCode) {
			t.logRetry(req, attempt, resp.StatusCode, nil)
			// The last response is returned to the caller as-is.
			if attempt > t.maxRetries {
				return nil
			}
			drain(resp)
			return retry.RetryableError(&statusError{code: resp.StatusCode})
		}
		return nil
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}
		return nil, err
	}
	return resp, nil
}

func (t *retryTransport) logRetry(req *http.Request, attempt, status int, err error) {
	if t.logger == nil {
		return
	}
	attrs := []any{
		slog.String("method", req.Method),
		slog.String("url", req.URL.Redacted()),
		slog.Int("attempt", attempt),
	}
	if status != 0 {
		attrs = append(attrs, slog.Int("status", status))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	t.logger.Debug("retryable HTTP failure", attrs...)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// NewClient creates an HTTP client with the specified configuration.
// If cfg is nil, defaults are used (30s timeout, TLS verification enabled,
// no rate limit, no retries).
//
// Transports are layered outermost first: retries, rate limiting, user
// agent and logging, request metrics.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	baseTransport := http.DefaultTransport
	if cfg.TLSSkipVerify {
		baseTransport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, //nolint:gosec // Intentional: user explicitly requested skip
			},
		}
	}

	var transport http.RoundTripper = promhttp.InstrumentRoundTripperCounter(metrics.HTTPRequestsTotal, baseTransport)

	transport = &userAgentTransport{
		base:      transport,
		userAgent: userAgent,
		logger:    cfg.Logger,
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		transport = &rateLimitTransport{
			base:    transport,
			limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		}
	}

	if cfg.MaxRetries > 0 {
		delay := cfg.RetryBaseDelay
		if delay <= 0 {
			delay = DefaultRetryBaseDelay
		}
		transport = &retryTransport{
			base:       transport,
			maxRetries: cfg.MaxRetries,
			baseDelay:  delay,
			logger:     cfg.Logger,
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// DefaultClient returns a new HTTP client with default settings.
// Equivalent to NewClient(nil).
func DefaultClient() *http.Client {
	return NewClient(nil)
}
