package sshutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default SSH client configuration values.
const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultSSHTimeout is the default connection timeout.
	DefaultSSHTimeout = 30 * time.Second
)

// Config holds SSH connection configuration.
type Config struct {
	// Host is the SSH server hostname or IP address (required).
	Host string

	// Port is the SSH server port (default: 22).
	Port int

	// User is the SSH username (required).
	User string

	// KeyFile is the path to the SSH private key file.
	// Either KeyFile, KeyData, or Password must be provided.
	KeyFile string

	// KeyData is the SSH private key content directly.
	KeyData string

	// KeyPassphrase is the passphrase for encrypted SSH keys (optional).
	KeyPassphrase string

	// Password is the SSH password for password authentication.
	Password string

	// Timeout is the SSH connection timeout (default: 30s).
	Timeout time.Duration

	// KnownHostsFile is the known_hosts file used to verify the server key.
	KnownHostsFile string

	// InsecureIgnoreHostKey disables host key verification. It is only
	// honored when KnownHostsFile is empty.
	InsecureIgnoreHostKey bool
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Host == "" {
		errs = append(errs, "host is required")
	}

	if c.User == "" {
		errs = append(errs, "user is required")
	}

	if c.KeyFile == "" && c.KeyData == "" && c.Password == "" {
		errs = append(errs, "at least one authentication method required (key_file, key_data, or password)")
	}

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, "port must be between 0 and 65535")
	}

	if c.Timeout < 0 {
		errs = append(errs, "timeout must be non-negative")
	}

	if c.KnownHostsFile == "" && !c.InsecureIgnoreHostKey {
		errs = append(errs, "known_hosts file is required unless host key checking is disabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("ssh config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Address returns the SSH server address in host:port format.
func (c *Config) Address() string {
	port := c.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// GetTimeout returns the configured timeout or the default.
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultSSHTimeout
}

// ParseURL splits an sftp://[user@]host[:port]/path URL into the connection
// part and the remote path. Credentials other than the user name are never
// read from the URL; they come from the environment (see LoadConfig).
func ParseURL(raw string) (*Config, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %q: %w", raw, err)
	}
	if u.Scheme != "sftp" {
		return nil, "", fmt.Errorf("unsupported scheme %q, expected sftp", u.Scheme)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return nil, "", errors.New("passwords in sftp URLs are not supported")
	}
	if u.Hostname() == "" {
		return nil, "", fmt.Errorf("%q has no host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		return nil, "", fmt.Errorf("%q has no file path", raw)
	}

	cfg := &Config{Host: u.Hostname(), Port: DefaultSSHPort}
	if u.User != nil {
		cfg.User = u.User.Username()
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, "", fmt.Errorf("invalid port %q: %w", p, err)
		}
		cfg.Port = port
	}
	return cfg, u.Path, nil
}

// LoadConfig fills unset fields of cfg from environment variables named
// {prefix}{setting}:
//   - USER: SSH username, if the URL did not carry one
//   - KEY_FILE: path to the private key
//   - KEY_DATA: private key content (supports _FILE suffix)
//   - KEY_PASSPHRASE: passphrase for encrypted keys (supports _FILE suffix)
//   - PASSWORD: SSH password (supports _FILE suffix)
//   - KNOWN_HOSTS: path to a known_hosts file
//   - INSECURE_IGNORE_HOST_KEY: "true" to skip host key verification
//   - TIMEOUT: connection timeout in seconds
func LoadConfig(cfg *Config, prefix string) error {
	setIfEmpty(&cfg.User, os.Getenv(prefix+"USER"))
	setIfEmpty(&cfg.KeyFile, os.Getenv(prefix+"KEY_FILE"))
	setIfEmpty(&cfg.KeyData, getEnvOrFile(prefix+"KEY_DATA", prefix+"KEY_DATA_FILE"))
	setIfEmpty(&cfg.KeyPassphrase, getEnvOrFile(prefix+"KEY_PASSPHRASE", prefix+"KEY_PASSPHRASE_FILE"))
	setIfEmpty(&cfg.Password, getEnvOrFile(prefix+"PASSWORD", prefix+"PASSWORD_FILE"))
	setIfEmpty(&cfg.KnownHostsFile, os.Getenv(prefix+"KNOWN_HOSTS"))

	if v := os.Getenv(prefix + "INSECURE_IGNORE_HOST_KEY"); v != "" {
		cfg.InsecureIgnoreHostKey = strings.EqualFold(v, "true")
	}

	if v := os.Getenv(prefix + "TIMEOUT"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TIMEOUT value %q: %w", v, err)
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	return cfg.Validate()
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// getEnvOrFile retrieves a value from either a direct environment variable
// or a file path specified by the file key (Docker secrets pattern).
// The file takes precedence and its content is trimmed.
func getEnvOrFile(directKey, fileKey string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return os.Getenv(directKey)
}
