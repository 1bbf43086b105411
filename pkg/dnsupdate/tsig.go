package dnsupdate

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// tsigFudge is the permitted clock skew in seconds.
const tsigFudge = 300

// TSIG is a Transaction Signature key (RFC 8945).
type TSIG struct {
	// Name is the key name as an FQDN.
	Name string

	// Secret is the base64-encoded shared secret.
	Secret string

	// Algorithm is the miekg/dns algorithm name, e.g. dns.HmacSHA256.
	Algorithm string
}

// NewTSIG creates a TSIG key. The secret must be base64-encoded.
func NewTSIG(name, secret, algorithm string) (*TSIG, error) {
	if _, err := base64.StdEncoding.DecodeString(secret); err != nil {
		return nil, fmt.Errorf("tsig secret is not valid base64: %w", err)
	}

	alg := normalizeAlgorithm(algorithm)
	if !isValidAlgorithm(alg) {
		return nil, fmt.Errorf("unsupported tsig algorithm: %s", algorithm)
	}

	return &TSIG{
		Name:      strings.ToLower(dns.Fqdn(name)),
		Secret:    secret,
		Algorithm: alg,
	}, nil
}

// TSIGFromConfig returns the key described by config, or nil when TSIG is
// not configured.
func TSIGFromConfig(config *Config) (*TSIG, error) {
	if !config.HasTSIG() {
		return nil, nil //nolint:nilnil // no key means unsigned messages
	}
	return NewTSIG(config.TSIGKeyName, config.TSIGSecret, config.GetTSIGAlgorithm())
}

// Secrets returns the key in the form dns.Client and dns.Transfer expect.
func (t *TSIG) Secrets() map[string]string {
	if t == nil {
		return nil
	}
	return map[string]string{t.Name: t.Secret}
}

// Sign adds a TSIG record to msg. It must be the last change to msg.
func (t *TSIG) Sign(msg *dns.Msg) {
	if t == nil {
		return
	}
	msg.SetTsig(t.Name, t.Algorithm, tsigFudge, time.Now().Unix())
}

// normalizeAlgorithm maps user-facing names to miekg/dns format.
func normalizeAlgorithm(alg string) string {
	switch strings.ToLower(strings.TrimSpace(alg)) {
	case "":
		return DefaultTSIGAlgorithm
	case AlgNameMD5, "md5", dns.HmacMD5:
		return dns.HmacMD5
	case AlgNameSHA256, "sha256", dns.HmacSHA256:
		return dns.HmacSHA256
	case AlgNameSHA512, "sha512", dns.HmacSHA512:
		return dns.HmacSHA512
	default:
		return alg
	}
}

func isValidAlgorithm(alg string) bool {
	switch alg {
	case dns.HmacMD5, dns.HmacSHA256, dns.HmacSHA512:
		return true
	default:
		return false
	}
}

// AlgorithmName returns a human-readable name for an algorithm.
func AlgorithmName(alg string) string {
	switch alg {
	case dns.HmacMD5:
		return "HMAC-MD5"
	case dns.HmacSHA256:
		return "HMAC-SHA256"
	case dns.HmacSHA512:
		return "HMAC-SHA512"
	default:
		return alg
	}
}
