package reconciler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// testMockProvider is an in-memory provider that tracks every call.
type testMockProvider struct {
	mu      sync.Mutex
	name    string
	caps    provider.Capabilities
	zone    provider.Zone
	records []provider.Record
	nextID  int
	fetches int
	calls   []string

	// failFn, when set, may fail a write before it is applied.
	failFn func(call string, r provider.Record) error
}

var _ provider.Provider = (*testMockProvider)(nil)

func newTestMockProvider(records ...provider.Record) *testMockProvider {
	m := &testMockProvider{
		name: "mock",
		caps: provider.Capabilities{SupportsTTL: true},
		zone: provider.Zone{ID: "zone-1", Name: "example.com"},
	}
	for _, r := range records {
		m.nextID++
		r.ID = fmt.Sprintf("rec-%d", m.nextID)
		r.ZoneID = m.zone.ID
		m.records = append(m.records, r)
	}
	return m
}

func (m *testMockProvider) Name() string                        { return m.name }
func (m *testMockProvider) Type() string                        { return "mock" }
func (m *testMockProvider) Capabilities() provider.Capabilities { return m.caps }
func (m *testMockProvider) Ping(context.Context) error          { return nil }

func (m *testMockProvider) ListZones(context.Context) ([]provider.Zone, error) {
	return []provider.Zone{m.zone}, nil
}

func (m *testMockProvider) GetZoneWithRecords(_ context.Context, ref provider.ZoneRef) (*provider.ZoneWithRecords, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if _, ok := provider.FindZone([]provider.Zone{m.zone}, ref); !ok {
		return nil, provider.ErrZoneNotFound
	}
	return provider.NewZoneWithRecords(m.zone, m.records), nil
}

func (m *testMockProvider) CreateRecord(_ context.Context, _ provider.Zone, r provider.Record) (provider.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create("create", r)
}

func (m *testMockProvider) UpdateRecord(_ context.Context, _ provider.Zone, r provider.Record) (provider.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update("update", r)
}

func (m *testMockProvider) DeleteRecord(_ context.Context, _ provider.Zone, r provider.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delete("delete", r)
}

func (m *testMockProvider) BulkCreate(_ context.Context, _ provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.caps.BulkCreate {
		return nil, provider.ErrBulkUnsupported
	}
	m.calls = append(m.calls, "bulk_create")
	results := make([]provider.BulkResult, 0, len(records))
	for _, r := range records {
		created, err := m.create("", r)
		results = append(results, provider.BulkResult{Record: created, Err: err})
	}
	return results, nil
}

func (m *testMockProvider) BulkUpdate(_ context.Context, _ provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.caps.BulkUpdate {
		return nil, provider.ErrBulkUnsupported
	}
	m.calls = append(m.calls, "bulk_update")
	results := make([]provider.BulkResult, 0, len(records))
	for _, r := range records {
		updated, err := m.update("", r)
		results = append(results, provider.BulkResult{Record: updated, Err: err})
	}
	return results, nil
}

func (m *testMockProvider) BulkDelete(_ context.Context, _ provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.caps.BulkDelete {
		return nil, provider.ErrBulkUnsupported
	}
	m.calls = append(m.calls, "bulk_delete")
	results := make([]provider.BulkResult, 0, len(records))
	for _, r := range records {
		results = append(results, provider.BulkResult{Record: r, Err: m.delete("", r)})
	}
	return results, nil
}

func (m *testMockProvider) check(call string, r provider.Record) error {
	if call != "" {
		m.calls = append(m.calls, call)
	}
	if m.failFn != nil {
		return m.failFn(call, r)
	}
	return nil
}

func (m *testMockProvider) create(call string, r provider.Record) (provider.Record, error) {
	if err := m.check(call, r); err != nil {
		return provider.Record{}, err
	}
	if r.ID != "" {
		return provider.Record{}, fmt.Errorf("create called with id %q", r.ID)
	}
	m.nextID++
	r.ID = fmt.Sprintf("rec-%d", m.nextID)
	r.ZoneID = m.zone.ID
	m.records = append(m.records, r.Clone())
	return r, nil
}

func (m *testMockProvider) update(call string, r provider.Record) (provider.Record, error) {
	if err := m.check(call, r); err != nil {
		return provider.Record{}, err
	}
	for i := range m.records {
		if m.records[i].ID == r.ID {
			m.records[i] = r.Clone()
			return r, nil
		}
	}
	return provider.Record{}, provider.NewAPIError(m.name, "update record", 404, "no record "+r.ID)
}

func (m *testMockProvider) delete(call string, r provider.Record) error {
	if err := m.check(call, r); err != nil {
		return err
	}
	for i := range m.records {
		if m.records[i].ID == r.ID {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return provider.NewAPIError(m.name, "delete record", 404, "no record "+r.ID)
}

// writeCalls returns all write calls made so far.
func (m *testMockProvider) writeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// state returns "prefix TYPE target" lines for the current records.
func (m *testMockProvider) state() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.records {
		out = append(out, strings.TrimSpace(r.Prefix+" "+string(r.Type)+" "+r.Target))
	}
	return out
}

func rec(prefix string, t provider.RecordType, target string, ttl int) provider.Record {
	r := provider.Record{Prefix: prefix, Type: t, Target: target}
	if ttl > 0 {
		r.TTL = provider.IntPtr(ttl)
	}
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestReconciler(p provider.Provider) *Reconciler {
	return New(p, WithLogger(testLogger()), WithRunIDFunc(func() string { return "run-1" }))
}
