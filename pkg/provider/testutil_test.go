package provider

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

// stubProvider implements Provider for registry and manager tests.
type stubProvider struct {
	NoBulk
	name      string
	typeName  string
	pingErr   error
	pingCount atomic.Int32
	failUntil int32 // ping fails while pingCount <= failUntil
}

func (s *stubProvider) Name() string               { return s.name }
func (s *stubProvider) Type() string               { return s.typeName }
func (s *stubProvider) Capabilities() Capabilities { return Capabilities{SupportsTTL: true} }
func (s *stubProvider) ListZones(context.Context) ([]Zone, error) {
	return nil, nil
}
func (s *stubProvider) GetZoneWithRecords(context.Context, ZoneRef) (*ZoneWithRecords, error) {
	return nil, ErrZoneNotFound
}
func (s *stubProvider) CreateRecord(_ context.Context, _ Zone, r Record) (Record, error) {
	return r, nil
}
func (s *stubProvider) UpdateRecord(_ context.Context, _ Zone, r Record) (Record, error) {
	return r, nil
}
func (s *stubProvider) DeleteRecord(context.Context, Zone, Record) error { return nil }
func (s *stubProvider) Ping(context.Context) error {
	n := s.pingCount.Add(1)
	if n <= s.failUntil {
		return ErrProviderUnavailable
	}
	return s.pingErr
}

var _ Provider = (*stubProvider)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
