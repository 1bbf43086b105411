package dnsupdate

import (
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config without TSIG",
			config: Config{
				Server: "ns1.example.com",
				Zone:   "example.com.",
			},
		},
		{
			name: "zone without trailing dot",
			config: Config{
				Server: "ns1.example.com",
				Zone:   "example.com",
			},
		},
		{
			name: "valid config with TSIG",
			config: Config{
				Server:        "ns1.example.com:53",
				Zone:          "example.com.",
				TSIGKeyName:   "zonesync",
				TSIGSecret:    "c2VjcmV0", // base64 of "secret"
				TSIGAlgorithm: "hmac-sha512",
			},
		},
		{
			name:    "missing server",
			config:  Config{Zone: "example.com."},
			wantErr: true,
			errMsg:  "SERVER is required",
		},
		{
			name:    "missing zone",
			config:  Config{Server: "ns1.example.com"},
			wantErr: true,
			errMsg:  "ZONE is required",
		},
		{
			name: "TSIG secret without key name",
			config: Config{
				Server:     "ns1.example.com",
				Zone:       "example.com.",
				TSIGSecret: "c2VjcmV0",
			},
			wantErr: true,
			errMsg:  "TSIG_KEY_NAME is required",
		},
		{
			name: "TSIG key name without secret",
			config: Config{
				Server:      "ns1.example.com",
				Zone:        "example.com.",
				TSIGKeyName: "zonesync.",
			},
			wantErr: true,
			errMsg:  "TSIG_SECRET is required",
		},
		{
			name: "unsupported algorithm",
			config: Config{
				Server:        "ns1.example.com",
				Zone:          "example.com.",
				TSIGKeyName:   "zonesync.",
				TSIGSecret:    "c2VjcmV0",
				TSIGAlgorithm: "hmac-sha1024",
			},
			wantErr: true,
			errMsg:  "unsupported TSIG_ALGORITHM",
		},
		{
			name: "negative timeout",
			config: Config{
				Server:  "ns1.example.com",
				Zone:    "example.com.",
				Timeout: -time.Second,
			},
			wantErr: true,
			errMsg:  "TIMEOUT must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %q, want to contain %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigGetServer(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"ns1.example.com", "ns1.example.com:53"},
		{"ns1.example.com:5353", "ns1.example.com:5353"},
		{"192.0.2.1", "192.0.2.1:53"},
		{"2001:db8::1", "[2001:db8::1]:53"},
		{"[2001:db8::1]:5353", "[2001:db8::1]:5353"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			c := &Config{Server: tt.server}
			if got := c.GetServer(); got != tt.want {
				t.Errorf("GetServer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigGetZone(t *testing.T) {
	for _, zone := range []string{"Example.COM", "example.com."} {
		c := &Config{Zone: zone}
		if got := c.GetZone(); got != "example.com." {
			t.Errorf("GetZone(%q) = %q, want example.com.", zone, got)
		}
	}
}

func TestConfigGetTimeout(t *testing.T) {
	if got := (&Config{}).GetTimeout(); got != DefaultTimeout {
		t.Errorf("default timeout = %v, want %v", got, DefaultTimeout)
	}
	if got := (&Config{Timeout: 3 * time.Second}).GetTimeout(); got != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", got)
	}
}

func TestConfigGetTSIGAlgorithm(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", dns.HmacSHA256},
		{"hmac-sha256", dns.HmacSHA256},
		{"HMAC-SHA512", dns.HmacSHA512},
		{"md5", dns.HmacMD5},
		{"hmac-md5.sig-alg.reg.int.", dns.HmacMD5},
		{"hmac-sha256.", dns.HmacSHA256},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c := &Config{TSIGAlgorithm: tt.input}
			if got := c.GetTSIGAlgorithm(); got != tt.want {
				t.Errorf("GetTSIGAlgorithm() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfigFromMap(t *testing.T) {
	config, err := LoadConfigFromMap(map[string]string{
		"SERVER":         "ns1.example.com",
		"ZONE":           "example.com",
		"TSIG_KEY_NAME":  "zonesync.",
		"TSIG_SECRET":    " c2VjcmV0\n",
		"TSIG_ALGORITHM": "hmac-sha512",
		"TIMEOUT":        "5",
		"USE_TCP":        "true",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.TSIGSecret != "c2VjcmV0" {
		t.Errorf("TSIGSecret = %q", config.TSIGSecret)
	}
	if config.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", config.Timeout)
	}
	if !config.UseTCP {
		t.Error("UseTCP = false, want true")
	}
	if !config.HasTSIG() {
		t.Error("HasTSIG() = false, want true")
	}

	bad := []map[string]string{
		{"ZONE": "example.com"},
		{"SERVER": "ns1", "ZONE": "example.com", "TIMEOUT": "soon"},
		{"SERVER": "ns1", "ZONE": "example.com", "USE_TCP": "maybe"},
	}
	for _, m := range bad {
		if _, err := LoadConfigFromMap(m); err == nil {
			t.Errorf("LoadConfigFromMap(%v) expected error", m)
		}
	}
}
