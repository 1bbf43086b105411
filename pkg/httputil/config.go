package httputil

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ConfigFromMap builds a ClientConfig from the shared provider instance keys:
//
//   - TIMEOUT: seconds or a Go duration (e.g. "30", "1m")
//   - TLS_SKIP_VERIFY: boolean
//   - USER_AGENT: custom User-Agent
//   - RATE_LIMIT: requests per second (float)
//   - BURST: burst size for RATE_LIMIT
//   - MAX_RETRIES: retries for idempotent requests
//
// Missing keys keep the package defaults.
func ConfigFromMap(configMap map[string]string, logger *slog.Logger) (*ClientConfig, error) {
	cfg := &ClientConfig{
		UserAgent: configMap["USER_AGENT"],
		Logger:    logger,
	}

	if v := strings.TrimSpace(configMap["TIMEOUT"]); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEOUT value %q: %w", v, err)
		}
		cfg.Timeout = d
	}

	if v := strings.TrimSpace(configMap["TLS_SKIP_VERIFY"]); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TLS_SKIP_VERIFY value %q: %w", v, err)
		}
		cfg.TLSSkipVerify = b
	}

	if v := strings.TrimSpace(configMap["RATE_LIMIT"]); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT value %q: must be a non-negative number", v)
		}
		cfg.RateLimit = f
	}

	if v := strings.TrimSpace(configMap["BURST"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid BURST value %q: must be a non-negative integer", v)
		}
		cfg.Burst = n
	}

	if v := strings.TrimSpace(configMap["MAX_RETRIES"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid MAX_RETRIES value %q: must be a non-negative integer", v)
		}
		cfg.MaxRetries = n
	}

	return cfg, nil
}

// ParseTimeout accepts a plain number of seconds or a Go duration string.
func ParseTimeout(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("must be non-negative")
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must be non-negative")
	}
	return d, nil
}
