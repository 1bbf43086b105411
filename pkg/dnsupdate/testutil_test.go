package dnsupdate

import (
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
)

const testSecret = "c2VjcmV0" // base64 of "secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("dns.NewRR(%q) error = %v", s, err)
	}
	return rr
}

// fakeServer is an in-memory authoritative server for one zone. It answers
// SOA queries, serves AXFR and applies UPDATE messages.
type fakeServer struct {
	zone string
	soa  dns.RR

	mu      sync.Mutex
	records []dns.RR
	updates int
}

func newFakeServer(t *testing.T, zone string, records ...string) *fakeServer {
	t.Helper()
	f := &fakeServer{
		zone: zone,
		soa:  mustRR(t, zone+" 3600 IN SOA ns1."+zone+" hostmaster."+zone+" 1 7200 3600 1209600 300"),
	}
	for _, s := range records {
		f.records = append(f.records, mustRR(t, s))
	}
	return f
}

// start serves f over TCP and returns the listen address.
func (f *fakeServer) start(t *testing.T, secrets map[string]string) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		Listener:   l,
		Handler:    f,
		TsigSecret: secrets,
		MsgAcceptFunc: func(dns.Header) dns.MsgAcceptAction {
			return dns.MsgAccept
		},
		NotifyStartedFunc: func() { close(started) },
	}
	go func() { _ = srv.ActivateAndServe() }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dns server did not start")
	}
	t.Cleanup(func() { _ = srv.Shutdown() })

	return l.Addr().String()
}

func (f *fakeServer) snapshot() []dns.RR {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dns.RR, len(f.records))
	copy(out, f.records)
	return out
}

func (f *fakeServer) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

// has reports whether the zone holds a record equal to s, ignoring TTL.
func (f *fakeServer) has(t *testing.T, s string) bool {
	t.Helper()
	want := mustRR(t, s)
	for _, rr := range f.snapshot() {
		if dns.IsDuplicate(rr, want) {
			return true
		}
	}
	return false
}

func (f *fakeServer) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	if ts := r.IsTsig(); ts != nil {
		if w.TsigStatus() != nil {
			m.Rcode = dns.RcodeNotAuth
			_ = w.WriteMsg(m)
			return
		}
		m.SetTsig(ts.Hdr.Name, ts.Algorithm, 300, time.Now().Unix())
	}

	if len(r.Question) == 0 || !strings.EqualFold(r.Question[0].Name, f.zone) {
		m.Rcode = dns.RcodeNotAuth
		_ = w.WriteMsg(m)
		return
	}

	switch {
	case r.Opcode == dns.OpcodeUpdate:
		f.apply(r.Ns)
	case r.Question[0].Qtype == dns.TypeSOA:
		m.Answer = []dns.RR{f.soa}
	case r.Question[0].Qtype == dns.TypeAXFR:
		f.transfer(w, r)
		return
	}

	_ = w.WriteMsg(m)
}

func (f *fakeServer) transfer(w dns.ResponseWriter, r *dns.Msg) {
	rrs := append([]dns.RR{f.soa}, f.snapshot()...)
	rrs = append(rrs, f.soa)

	ch := make(chan *dns.Envelope)
	tr := new(dns.Transfer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = tr.Out(w, r, ch)
	}()
	ch <- &dns.Envelope{RR: rrs}
	close(ch)
	wg.Wait()
	w.Hijack()
}

func (f *fakeServer) apply(changes []dns.RR) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++

	for _, change := range changes {
		hdr := change.Header()
		switch hdr.Class {
		case dns.ClassANY:
			f.records = filter(f.records, func(rr dns.RR) bool {
				h := rr.Header()
				return strings.EqualFold(h.Name, hdr.Name) && (hdr.Rrtype == dns.TypeANY || h.Rrtype == hdr.Rrtype)
			})
		case dns.ClassNONE:
			target := dns.Copy(change)
			target.Header().Class = dns.ClassINET
			f.records = filter(f.records, func(rr dns.RR) bool {
				return dns.IsDuplicate(rr, target)
			})
		default:
			duplicate := false
			for _, rr := range f.records {
				if dns.IsDuplicate(rr, change) {
					duplicate = true
				}
			}
			if !duplicate {
				f.records = append(f.records, change)
			}
		}
	}
}

// filter returns rrs without the records matching drop.
func filter(rrs []dns.RR, drop func(dns.RR) bool) []dns.RR {
	out := rrs[:0]
	for _, rr := range rrs {
		if !drop(rr) {
			out = append(out, rr)
		}
	}
	return out
}
