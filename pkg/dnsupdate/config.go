package dnsupdate

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Default configuration values.
const (
	// DefaultPort is the standard DNS port.
	DefaultPort = "53"

	// DefaultTimeout is the default timeout for DNS operations.
	DefaultTimeout = 10 * time.Second

	// DefaultTSIGAlgorithm is the default TSIG algorithm if none specified.
	DefaultTSIGAlgorithm = dns.HmacSHA256
)

// Algorithm name constants for user-facing configuration.
const (
	AlgNameSHA256 = "hmac-sha256"
	AlgNameSHA512 = "hmac-sha512"
	AlgNameMD5    = "hmac-md5"
)

// Config holds RFC 2136 client configuration.
type Config struct {
	// Server is the primary server in host[:port] form. The port defaults to 53.
	Server string

	// Zone is the zone to update. A trailing dot is added if missing.
	Zone string

	// TSIGKeyName is the TSIG key name. A trailing dot is added if missing.
	TSIGKeyName string

	// TSIGSecret is the base64-encoded TSIG shared secret.
	TSIGSecret string

	// TSIGAlgorithm is hmac-md5, hmac-sha256 (default) or hmac-sha512.
	TSIGAlgorithm string

	// Timeout applies to every query, update and transfer.
	Timeout time.Duration

	// UseTCP sends updates over TCP. Transfers always use TCP.
	UseTCP bool
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server == "" {
		errs = append(errs, "SERVER is required")
	}

	if c.Zone == "" {
		errs = append(errs, "ZONE is required")
	} else if _, ok := dns.IsDomainName(c.Zone); !ok {
		errs = append(errs, fmt.Sprintf("ZONE %q is not a valid domain name", c.Zone))
	}

	if c.TSIGKeyName != "" || c.TSIGSecret != "" || c.TSIGAlgorithm != "" {
		if c.TSIGKeyName == "" {
			errs = append(errs, "TSIG_KEY_NAME is required when using TSIG authentication")
		}
		if c.TSIGSecret == "" {
			errs = append(errs, "TSIG_SECRET is required when using TSIG authentication")
		}
		if !isValidAlgorithm(c.GetTSIGAlgorithm()) {
			errs = append(errs, fmt.Sprintf("unsupported TSIG_ALGORITHM %q (supported: hmac-md5, hmac-sha256, hmac-sha512)", c.TSIGAlgorithm))
		}
	}

	if c.Timeout < 0 {
		errs = append(errs, "TIMEOUT must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("rfc2136 config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetZone returns the zone as a lower-case FQDN.
func (c *Config) GetZone() string {
	return strings.ToLower(dns.Fqdn(c.Zone))
}

// GetServer returns the server address with port.
func (c *Config) GetServer() string {
	if c.Server == "" {
		return ""
	}
	if _, _, err := net.SplitHostPort(c.Server); err == nil {
		return c.Server
	}
	return net.JoinHostPort(strings.Trim(c.Server, "[]"), DefaultPort)
}

// GetTimeout returns the configured timeout or the default.
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// GetTSIGAlgorithm returns the TSIG algorithm in miekg/dns format.
func (c *Config) GetTSIGAlgorithm() string {
	return normalizeAlgorithm(c.TSIGAlgorithm)
}

// HasTSIG returns true if TSIG authentication is configured.
func (c *Config) HasTSIG() bool {
	return c.TSIGKeyName != "" && c.TSIGSecret != ""
}

// LoadConfigFromMap creates a Config from a provider instance map.
//
// Required keys: SERVER, ZONE
// Optional keys: TSIG_KEY_NAME, TSIG_SECRET, TSIG_ALGORITHM, TIMEOUT (seconds), USE_TCP
func LoadConfigFromMap(configMap map[string]string) (*Config, error) {
	config := &Config{
		Server:        strings.TrimSpace(configMap["SERVER"]),
		Zone:          strings.TrimSpace(configMap["ZONE"]),
		TSIGKeyName:   strings.TrimSpace(configMap["TSIG_KEY_NAME"]),
		TSIGSecret:    strings.TrimSpace(configMap["TSIG_SECRET"]),
		TSIGAlgorithm: configMap["TSIG_ALGORITHM"],
	}

	if timeoutStr := configMap["TIMEOUT"]; timeoutStr != "" {
		timeout, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEOUT value %q: %w", timeoutStr, err)
		}
		config.Timeout = time.Duration(timeout) * time.Second
	}

	if tcpStr := configMap["USE_TCP"]; tcpStr != "" {
		useTCP, err := strconv.ParseBool(tcpStr)
		if err != nil {
			return nil, fmt.Errorf("invalid USE_TCP value %q: %w", tcpStr, err)
		}
		config.UseTCP = useTCP
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
