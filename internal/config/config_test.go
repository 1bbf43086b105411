package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gitlab.bluewillows.net/root/zonesync/internal/reconciler"
	"gitlab.bluewillows.net/root/zonesync/internal/state"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
	"gitlab.bluewillows.net/root/zonesync/pkg/txtcodec"
)

// clearAllEnv unsets all ZONESYNC_ environment variables for the test.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, "ZONESYNC_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

const minimalConfig = `
providers:
  - name: hetzner
    type: hetzner
    config:
      token: abc
zones:
  - provider: hetzner
    zone: Example.COM.
    state: zones/example.com.yaml
`

func TestLoad_MinimalConfig(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load(writeConfig(t, "zonesync.yaml", minimalConfig))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.LogLevel() != DefaultLogLevel {
		t.Errorf("LogLevel() = %q, want %q", cfg.LogLevel(), DefaultLogLevel)
	}
	if cfg.LogFormat() != DefaultLogFormat {
		t.Errorf("LogFormat() = %q, want %q", cfg.LogFormat(), DefaultLogFormat)
	}
	if cfg.DryRun() != DefaultDryRun {
		t.Errorf("DryRun() = %v, want %v", cfg.DryRun(), DefaultDryRun)
	}
	if cfg.ReconcileInterval() != DefaultReconcileInterval {
		t.Errorf("ReconcileInterval() = %v, want %v", cfg.ReconcileInterval(), DefaultReconcileInterval)
	}
	if cfg.HealthPort() != DefaultHealthPort {
		t.Errorf("HealthPort() = %d, want %d", cfg.HealthPort(), DefaultHealthPort)
	}
	if cfg.Concurrency() != DefaultConcurrency {
		t.Errorf("Concurrency() = %d, want %d", cfg.Concurrency(), DefaultConcurrency)
	}

	p := cfg.Provider("hetzner")
	if p == nil {
		t.Fatal("Provider(hetzner) = nil")
	}
	if p.TypeName != "hetzner" || p.ProviderConfig["TOKEN"] != "abc" {
		t.Errorf("provider = %+v", p)
	}

	if len(cfg.Zones) != 1 {
		t.Fatalf("Zones = %d, want 1", len(cfg.Zones))
	}
	z := cfg.Zones[0]
	if z.Zone != (provider.ZoneRef{Name: "example.com"}) {
		t.Errorf("Zone = %+v, want normalized name", z.Zone)
	}
	if z.State != (state.Source{Location: "zones/example.com.yaml", Origin: "example.com"}) {
		t.Errorf("State = %+v", z.State)
	}
	if z.Policy != reconciler.DefaultPolicy() {
		t.Errorf("Policy = %+v, want default", z.Policy)
	}
	if z.TXTTransformation != provider.TXTTransformationUnquoted || z.TXTCharacterEncoding != txtcodec.EncodingDecimal {
		t.Errorf("TXT settings = %q/%q", z.TXTTransformation, z.TXTCharacterEncoding)
	}
	if z.Key() != "hetzner/example.com" {
		t.Errorf("Key() = %q", z.Key())
	}
}

func TestLoad_ZoneSettings(t *testing.T) {
	clearAllEnv(t)

	content := `
reconciler:
  dry_run: false
providers:
  - name: ns1
    type: rfc2136
zones:
  - provider: ns1
    zone_id: "42"
    state: sftp://deploy@files.example.net/zones/42.zone
    state_format: zone
    prune: true
    on_existing: keep_and_fail
    bulk_operation_threshold: 5
    txt_transformation: quoted
    txt_character_encoding: octal
    dry_run: true
`
	cfg, err := Load(writeConfig(t, "zonesync.yaml", content))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	z := cfg.Zones[0]
	if z.Zone != (provider.ZoneRef{ID: "42"}) {
		t.Errorf("Zone = %+v", z.Zone)
	}
	if z.State.Format != state.FormatZoneFile || z.State.Origin != "" {
		t.Errorf("State = %+v", z.State)
	}
	want := reconciler.Policy{Prune: true, OnExisting: reconciler.OnExistingKeepAndFail, BulkOperationThreshold: 5}
	if z.Policy != want {
		t.Errorf("Policy = %+v, want %+v", z.Policy, want)
	}
	if z.TXTTransformation != provider.TXTTransformationQuoted || z.TXTCharacterEncoding != txtcodec.EncodingOctal {
		t.Errorf("TXT settings = %q/%q", z.TXTTransformation, z.TXTCharacterEncoding)
	}
	if !z.DryRun {
		t.Error("zone dry_run should be set")
	}
}

func TestLoad_GlobalDryRunWins(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("ZONESYNC_DRY_RUN", "yes")

	content := minimalConfig + "    dry_run: false\n"
	cfg, err := Load(writeConfig(t, "zonesync.yaml", content))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if !cfg.DryRun() || !cfg.Zones[0].DryRun {
		t.Error("ZONESYNC_DRY_RUN should force dry-run on every zone")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("ZONESYNC_LOG_LEVEL", "DEBUG")
	t.Setenv("ZONESYNC_LOG_FORMAT", "text")
	t.Setenv("ZONESYNC_RECONCILE_INTERVAL", "90s")
	t.Setenv("ZONESYNC_HEALTH_PORT", "9999")
	t.Setenv("ZONESYNC_CONCURRENCY", "16")

	cfg, err := Load(writeConfig(t, "zonesync.yaml", "logging:\n  level: error\n"+minimalConfig))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.LogLevel() != "debug" || cfg.LogFormat() != "text" {
		t.Errorf("logging = %q/%q", cfg.LogLevel(), cfg.LogFormat())
	}
	if cfg.ReconcileInterval() != 90*time.Second || cfg.HealthPort() != 9999 || cfg.Concurrency() != 16 {
		t.Errorf("interval=%v port=%d concurrency=%d", cfg.ReconcileInterval(), cfg.HealthPort(), cfg.Concurrency())
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("ZONESYNC_CONFIG", writeConfig(t, "zonesync.yaml", minimalConfig))

	if _, err := Load(""); err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
}

func TestLoad_NoPath(t *testing.T) {
	clearAllEnv(t)

	_, err := Load("")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Load(\"\") error = %v, want *ValidationError", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    []string
	}{
		{
			name:    "empty file",
			content: "",
			want:    []string{"providers: required but not set", "zones: required but not set"},
		},
		{
			name: "missing fields",
			content: `
providers:
  - name: Bad_Name
zones:
  - state: a.yaml
`,
			want: []string{
				`providers[0].name: invalid name "Bad_Name"`,
				"providers[0].type: required but not set",
				"zones[0].provider: required but not set",
				"one of zone and zone_id is required",
			},
		},
		{
			name: "zone and zone_id",
			content: `
providers:
  - name: p
    type: hetzner
zones:
  - provider: p
    zone: example.com
    zone_id: "1"
    state: a.yaml
`,
			want: []string{"zone and zone_id are mutually exclusive"},
		},
		{
			name: "invalid enums",
			content: `
logging:
  level: verbose
reconciler:
  interval: soon
  concurrency: 0
providers:
  - name: p
    type: hetzner
zones:
  - provider: p
    zone: example.com
    state: a.yaml
    on_existing: overwrite
    txt_transformation: raw
    txt_character_encoding: hex
    bulk_operation_threshold: 0
`,
			want: []string{
				"logging.level: invalid value",
				"reconciler.interval: invalid duration",
				"reconciler.concurrency: must be at least 1",
				`zones[0].on_existing: invalid value "overwrite"`,
				`zones[0].txt_transformation: invalid value "raw"`,
				`zones[0].txt_character_encoding: invalid value "hex"`,
				"zones[0].bulk_operation_threshold: must be at least 1",
			},
		},
		{
			name: "references",
			content: `
providers:
  - name: p
    type: hetzner
  - name: p
    type: hosttech
zones:
  - provider: p
    zone: example.com
    state: a.yaml
  - provider: p
    zone: EXAMPLE.com
    state: b.yaml
  - provider: q
    zone: example.org
    state: c.yaml
`,
			want: []string{
				`duplicate provider instance name: "p"`,
				"zones[1]: duplicate of zones[0] (p/example.com)",
				`zones[2]: unknown provider "q"`,
			},
		},
		{
			name:    "invalid zone name",
			content: strings.Replace(minimalConfig, "Example.COM.", "-bad-.example.com", 1),
			want:    []string{"zones[0]: zone:"},
		},
		{
			name:    "env overrides",
			content: minimalConfig,
			env: map[string]string{
				"ZONESYNC_HEALTH_PORT":        "70000",
				"ZONESYNC_CONCURRENCY":        "-1",
				"ZONESYNC_RECONCILE_INTERVAL": "10ms",
				"ZONESYNC_LOG_FORMAT":         "xml",
			},
			want: []string{
				"ZONESYNC_HEALTH_PORT: invalid port number",
				"ZONESYNC_CONCURRENCY: must be a positive integer",
				"ZONESYNC_RECONCILE_INTERVAL: invalid duration",
				"ZONESYNC_LOG_FORMAT: invalid value",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(writeConfig(t, "zonesync.yaml", tt.content))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Load() error = %v, want *ValidationError", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error does not contain %q:\n%v", want, err)
				}
			}
		})
	}
}

func TestConfig_Setters(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load(writeConfig(t, "zonesync.yaml", minimalConfig))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if err := cfg.SetLogLevel("WARN"); err != nil || cfg.LogLevel() != "warn" {
		t.Errorf("SetLogLevel(WARN) = %v, level %q", err, cfg.LogLevel())
	}
	if err := cfg.SetLogLevel("trace"); err == nil {
		t.Error("SetLogLevel(trace) should fail")
	}
	if err := cfg.SetLogFormat("text"); err != nil || cfg.LogFormat() != "text" {
		t.Errorf("SetLogFormat(text) = %v, format %q", err, cfg.LogFormat())
	}
	if err := cfg.SetLogFormat("xml"); err == nil {
		t.Error("SetLogFormat(xml) should fail")
	}
	if err := cfg.SetConcurrency(3); err != nil || cfg.Concurrency() != 3 {
		t.Errorf("SetConcurrency(3) = %v, concurrency %d", err, cfg.Concurrency())
	}
	if err := cfg.SetConcurrency(0); err == nil {
		t.Error("SetConcurrency(0) should fail")
	}
}

func TestConfig_ValidateProviderTypes(t *testing.T) {
	cfg := &Config{Providers: []*ProviderInstanceConfig{
		{Name: "a", TypeName: "hetzner"},
		{Name: "b", TypeName: "route53"},
	}}

	err := cfg.ValidateProviderTypes([]string{"hetzner", "hosttech"})
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if !strings.Contains(err.Error(), `provider b: unknown provider type: "route53"`) {
		t.Errorf("error = %v", err)
	}
	if strings.Contains(err.Error(), "provider a") {
		t.Errorf("known type reported: %v", err)
	}
}

func TestLoad_ProviderSecrets(t *testing.T) {
	clearAllEnv(t)

	dir := t.TempDir()
	secretFile := filepath.Join(dir, "tsig")
	if err := os.WriteFile(secretFile, []byte("c2VjcmV0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tokenFile := filepath.Join(dir, "token")
	if err := os.WriteFile(tokenFile, []byte("from-env-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	content := `
providers:
  - name: internal-dns
    type: rfc2136
    config:
      server: ns1.example.com
      tsig_secret_file: ` + secretFile + `
zones:
  - provider: internal-dns
    zone: example.com
    state: a.yaml
`
	t.Setenv("ZONESYNC_INTERNAL_DNS_SERVER", "ns2.example.com")
	t.Setenv("ZONESYNC_INTERNAL_DNS_TOKEN_FILE", tokenFile)

	cfg, err := Load(writeConfig(t, "zonesync.yaml", content))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	pc := cfg.Provider("internal-dns").ProviderConfig
	if pc["TSIG_SECRET"] != "c2VjcmV0" {
		t.Errorf("TSIG_SECRET = %q, want file content", pc["TSIG_SECRET"])
	}
	if pc["SERVER"] != "ns2.example.com" {
		t.Errorf("SERVER = %q, want env override", pc["SERVER"])
	}
	if pc["TOKEN"] != "from-env-file" {
		t.Errorf("TOKEN = %q, want env file content", pc["TOKEN"])
	}
	if _, ok := pc["TSIG_SECRET_FILE"]; ok {
		t.Error("TSIG_SECRET_FILE should be resolved and removed")
	}

	missing := strings.Replace(content, secretFile, filepath.Join(dir, "missing"), 1)
	if _, err := Load(writeConfig(t, "zonesync.yaml", missing)); err == nil ||
		!strings.Contains(err.Error(), "provider internal-dns: TSIG_SECRET_FILE") {
		t.Errorf("Load() with missing secret file error = %v", err)
	}
}
