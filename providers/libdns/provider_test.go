package libdns

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/libdns/libdns"

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memBackend is an in-memory libdns provider for a single zone.
type memBackend struct {
	zone string

	mu      sync.Mutex
	records []libdns.RR
	calls   []string
	failOn  string
}

func (m *memBackend) record(call, zone string) error {
	m.calls = append(m.calls, call)
	if zone != m.zone {
		return errors.New("unknown zone " + zone)
	}
	if call == m.failOn {
		return errors.New(call + " failed")
	}
	return nil
}

func (m *memBackend) GetRecords(_ context.Context, zone string) ([]libdns.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("get", zone); err != nil {
		return nil, err
	}
	out := make([]libdns.Record, 0, len(m.records))
	for _, rr := range m.records {
		out = append(out, rr)
	}
	return out, nil
}

func (m *memBackend) AppendRecords(_ context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("append", zone); err != nil {
		return nil, err
	}
	for _, rec := range recs {
		m.records = append(m.records, rec.RR())
	}
	return recs, nil
}

func (m *memBackend) DeleteRecords(_ context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("delete", zone); err != nil {
		return nil, err
	}
	var deleted []libdns.Record
	for _, rec := range recs {
		want := rec.RR()
		m.records = slices.DeleteFunc(m.records, func(rr libdns.RR) bool {
			if rr.Name == want.Name && rr.Type == want.Type && rr.Data == want.Data {
				deleted = append(deleted, rr)
				return true
			}
			return false
		})
	}
	return deleted, nil
}

func (m *memBackend) snapshot() ([]libdns.RR, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records), slices.Clone(m.calls)
}

// atomicBackend adds ReplaceRecords and ListZones.
type atomicBackend struct {
	*memBackend
}

func (a atomicBackend) ReplaceRecords(ctx context.Context, zone string, oldRecs, newRecs []libdns.Record) error {
	if _, err := a.DeleteRecords(ctx, zone, oldRecs); err != nil {
		return err
	}
	_, err := a.AppendRecords(ctx, zone, newRecs)
	return err
}

func (a atomicBackend) ListZones(context.Context) ([]libdns.Zone, error) {
	return []libdns.Zone{{Name: "Example.com."}, {Name: "-bad-.example."}}, nil
}

func newMemBackend(records ...libdns.RR) *memBackend {
	return &memBackend{zone: "example.com.", records: records}
}

func newTestProvider(t *testing.T, backend Backend) *Provider {
	t.Helper()
	p, err := New("libdns-test", "memory", backend, Options{Zone: "example.com", DefaultTTL: 600}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestProvider_GetZoneWithRecords(t *testing.T) {
	backend := newMemBackend(
		libdns.RR{Name: "@", TTL: time.Hour, Type: "SOA", Data: "ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 300"},
		libdns.RR{Name: "@", TTL: time.Hour, Type: "MX", Data: "10 mail.example.com."},
		libdns.RR{Name: "WWW", TTL: 5 * time.Minute, Type: "A", Data: "192.0.2.1"},
		libdns.RR{Name: "txt", TTL: time.Minute, Type: "TXT", Data: "hello world"},
		libdns.RR{Name: "odd", TTL: time.Minute, Type: "NOTATYPE", Data: "x"},
	)
	p := newTestProvider(t, backend)

	zwr, err := p.GetZoneWithRecords(context.Background(), provider.ZoneRef{Name: "example.com."})
	if err != nil {
		t.Fatalf("GetZoneWithRecords() error = %v", err)
	}
	if zwr.Zone().ID != "example.com" {
		t.Errorf("zone = %+v", zwr.Zone())
	}

	records := zwr.Records()
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3: %+v", len(records), records)
	}

	mx := records[0]
	if mx.Prefix != "" || mx.Type != provider.RecordTypeMX || mx.Target != "10 mail.example.com." || *mx.TTL != 3600 {
		t.Errorf("MX = %+v", mx)
	}
	if mx.Priority == nil || *mx.Priority != 10 {
		t.Errorf("MX priority = %v", mx.Priority)
	}
	if mx.ID != "@ MX 10 mail.example.com." {
		t.Errorf("MX ID = %q", mx.ID)
	}
	if records[1].Prefix != "www" || records[1].ID != "WWW A 192.0.2.1" {
		t.Errorf("A = %+v", records[1])
	}
	if records[2].Target != "hello world" {
		t.Errorf("TXT = %+v", records[2])
	}

	if _, err := p.GetZoneWithRecords(context.Background(), provider.ZoneRef{Name: "example.org"}); !provider.IsZoneNotFound(err) {
		t.Errorf("other zone error = %v, want ErrZoneNotFound", err)
	}
}

func TestProvider_WriteOperations(t *testing.T) {
	backend := newMemBackend()
	p := newTestProvider(t, backend)
	ctx := context.Background()
	zone := provider.Zone{ID: "example.com", Name: "example.com"}

	created, err := p.CreateRecord(ctx, zone, provider.Record{Type: provider.RecordTypeA, Prefix: "www", Target: "192.0.2.1"})
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if created.ID != "www A 192.0.2.1" || created.TTL == nil || *created.TTL != 600 || created.ZoneID != "example.com" {
		t.Errorf("CreateRecord() = %+v", created)
	}

	created.Target = "192.0.2.2"
	created.TTL = provider.IntPtr(60)
	updated, err := p.UpdateRecord(ctx, zone, created)
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	if updated.ID != "www A 192.0.2.2" {
		t.Errorf("UpdateRecord() ID = %q", updated.ID)
	}

	records, calls := backend.snapshot()
	want := []libdns.RR{{Name: "www", TTL: time.Minute, Type: "A", Data: "192.0.2.2"}}
	if !slices.Equal(records, want) {
		t.Errorf("records = %+v, want %+v", records, want)
	}
	if !slices.Equal(calls, []string{"append", "delete", "append"}) {
		t.Errorf("calls = %v", calls)
	}

	if err := p.DeleteRecord(ctx, zone, updated); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	if records, _ := backend.snapshot(); len(records) != 0 {
		t.Errorf("records after delete = %+v", records)
	}

	if err := p.DeleteRecord(ctx, zone, provider.Record{ID: "www A"}); err == nil {
		t.Error("DeleteRecord() with a malformed ID should fail")
	}
}

func TestProvider_UpdateRecordUsesReplace(t *testing.T) {
	mem := newMemBackend(libdns.RR{Name: "www", TTL: time.Minute, Type: "A", Data: "192.0.2.1"})
	p := newTestProvider(t, atomicBackend{mem})
	zone := provider.Zone{ID: "example.com", Name: "example.com"}

	zones, err := p.ListZones(context.Background())
	if err != nil || len(zones) != 1 || zones[0].Name != "example.com" {
		t.Fatalf("ListZones() = %+v, %v", zones, err)
	}

	_, err = p.UpdateRecord(context.Background(), zone, provider.Record{
		ID: "www A 192.0.2.1", Type: provider.RecordTypeA, Prefix: "www", Target: "192.0.2.9",
	})
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	records, _ := mem.snapshot()
	if len(records) != 1 || records[0].Data != "192.0.2.9" {
		t.Errorf("records = %+v", records)
	}
}

func TestProvider_UpdateRecordReportsLostRecord(t *testing.T) {
	backend := newMemBackend(libdns.RR{Name: "www", TTL: time.Minute, Type: "A", Data: "192.0.2.1"})
	backend.failOn = "append"
	p := newTestProvider(t, backend)

	_, err := p.UpdateRecord(context.Background(), provider.Zone{ID: "example.com", Name: "example.com"}, provider.Record{
		ID: "www A 192.0.2.1", Type: provider.RecordTypeA, Prefix: "www", Target: "192.0.2.2",
	})
	var apiErr *provider.APIError
	if !errors.As(err, &apiErr) || apiErr.Provider != "libdns-test" || apiErr.Operation != "append records" {
		t.Fatalf("UpdateRecord() error = %v, want APIError for append", err)
	}
}

func TestProvider_Bulk(t *testing.T) {
	backend := newMemBackend()
	p := newTestProvider(t, backend)
	ctx := context.Background()
	zone := provider.Zone{ID: "example.com", Name: "example.com"}

	input := []provider.Record{
		{Type: provider.RecordTypeTXT, Prefix: "t", Target: "one"},
		{Type: provider.RecordTypeTXT, Prefix: "t", Target: "two", TTL: provider.IntPtr(30)},
	}
	results, err := p.BulkCreate(ctx, zone, input)
	if err != nil {
		t.Fatalf("BulkCreate() error = %v", err)
	}
	if len(results) != 2 || results[0].Record.ID != "t TXT one" || *results[1].Record.TTL != 30 {
		t.Errorf("BulkCreate() = %+v", results)
	}

	deleted, err := p.BulkDelete(ctx, zone, []provider.Record{results[0].Record, results[1].Record})
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("BulkDelete() = %+v", deleted)
	}

	records, calls := backend.snapshot()
	if len(records) != 0 || !slices.Equal(calls, []string{"append", "delete"}) {
		t.Errorf("records = %+v, calls = %v", records, calls)
	}

	if _, err := p.BulkUpdate(ctx, zone, input); !errors.Is(err, provider.ErrBulkUnsupported) {
		t.Errorf("BulkUpdate() error = %v, want ErrBulkUnsupported", err)
	}

	backend.failOn = "append"
	if _, err := p.BulkCreate(ctx, zone, input); err == nil {
		t.Error("BulkCreate() should fail when the backend fails")
	}
}

func TestProvider_Ping(t *testing.T) {
	backend := newMemBackend()
	p := newTestProvider(t, backend)
	if err := p.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	backend.failOn = "get"
	if err := p.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail when the backend fails")
	}
}

func TestOptionsFromMap(t *testing.T) {
	opts, err := OptionsFromMap("x", map[string]string{"DEFAULT_TTL": "120", "TYPES": "a, txt,,MX"})
	if err != nil {
		t.Fatalf("OptionsFromMap() error = %v", err)
	}
	if opts.DefaultTTL != 120 {
		t.Errorf("DefaultTTL = %d", opts.DefaultTTL)
	}
	wantTypes := []provider.RecordType{provider.RecordTypeA, provider.RecordTypeTXT, provider.RecordTypeMX}
	if !slices.Equal(opts.SupportedTypes, wantTypes) {
		t.Errorf("SupportedTypes = %v", opts.SupportedTypes)
	}

	defaults, err := OptionsFromMap("x", nil)
	if err != nil || defaults.DefaultTTL != DefaultTTL {
		t.Errorf("defaults = %+v, %v", defaults, err)
	}

	for _, m := range []map[string]string{
		{"DEFAULT_TTL": "soon"},
		{"DEFAULT_TTL": "-1"},
		{"TYPES": "A,BOGUS"},
		{"ZONE": "-bad-.example"},
	} {
		if _, err := OptionsFromMap("x", m); err == nil {
			t.Errorf("OptionsFromMap(%v) expected error", m)
		}
	}
}

func TestRFC2136Factory(t *testing.T) {
	registry := provider.NewRegistry()
	registry.RegisterFactory(TypeRFC2136, RFC2136Factory(testLogger()))

	err := registry.CreateInstance("bind", TypeRFC2136, map[string]string{
		"SERVER":        "127.0.0.1:5353",
		"ZONE":          "Example.com",
		"TSIG_KEY_NAME": "zonesync",
		"TSIG_SECRET":   "c2VjcmV0",
		"DEFAULT_TTL":   "300",
	})
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}

	p, ok := registry.Get("bind")
	if !ok {
		t.Fatal("instance not registered")
	}
	caps := p.Capabilities()
	if p.Type() != TypeRFC2136 || !caps.BulkCreate || !caps.BulkDelete || caps.BulkUpdate || *caps.DefaultTTL != 300 {
		t.Errorf("unexpected provider %s caps %+v", p.Type(), caps)
	}
	zones, err := p.ListZones(context.Background())
	if err != nil || len(zones) != 1 || zones[0].Name != "example.com" {
		t.Errorf("ListZones() = %+v, %v", zones, err)
	}

	bad := []map[string]string{
		{"ZONE": "example.com"},
		{"SERVER": "ns1", "ZONE": "example.com", "TSIG_KEY_NAME": "k", "TSIG_SECRET": "not base64!"},
		{"SERVER": "ns1", "ZONE": "example.com", "DEFAULT_TTL": "x"},
	}
	for i, m := range bad {
		if err := registry.CreateInstance("bad", TypeRFC2136, m); err == nil {
			t.Errorf("case %d: CreateInstance() should fail", i)
		}
	}
}
