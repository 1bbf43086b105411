package dnsupdate

import (
	"fmt"
	"strings"
	"time"

	"github.com/libdns/libdns"
	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/txtcodec"
)

// hiddenTypes are never reported by GetRecords. They are maintained by the
// server itself.
var hiddenTypes = map[uint16]bool{
	dns.TypeSOA:        true,
	dns.TypeRRSIG:      true,
	dns.TypeNSEC:       true,
	dns.TypeNSEC3:      true,
	dns.TypeNSEC3PARAM: true,
	dns.TypeDNSKEY:     true,
	dns.TypeCDS:        true,
	dns.TypeCDNSKEY:    true,
}

// toRR converts a libdns record to a wire record in zone. TXT data is the
// logical text and is re-encoded as character-strings.
func toRR(rec libdns.RR, zone string) (dns.RR, error) {
	rrType, ok := dns.StringToType[strings.ToUpper(rec.Type)]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", rec.Type)
	}

	owner := libdns.AbsoluteName(rec.Name, zone)
	data := rec.Data
	if rrType == dns.TypeTXT || rrType == dns.TypeSPF {
		data = txtcodec.Encode(data, true, txtcodec.EncodingDecimal)
	}

	line := fmt.Sprintf("%s %d IN %s %s", owner, int64(rec.TTL/time.Second), dns.TypeToString[rrType], data)
	zp := dns.NewZoneParser(strings.NewReader(line), zone, "")
	rr, ok := zp.Next()
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("parsing %s record %q: %w", rec.Type, rec.Data, err)
	}
	if !ok || rr == nil {
		return nil, fmt.Errorf("parsing %s record %q: no record", rec.Type, rec.Data)
	}
	return rr, nil
}

// fromRR converts a wire record to a libdns record relative to zone.
func fromRR(rr dns.RR, zone string) (libdns.RR, error) {
	hdr := rr.Header()

	name := "@"
	prefix, err := dnsname.RelativePrefix(hdr.Name, zone)
	if err != nil {
		return libdns.RR{}, err
	}
	if prefix != "" {
		name = prefix
	}

	data := strings.TrimPrefix(rr.String(), hdr.String())
	if hdr.Rrtype == dns.TypeTXT || hdr.Rrtype == dns.TypeSPF {
		if data, err = txtcodec.Decode(data, txtcodec.EncodingDecimal); err != nil {
			return libdns.RR{}, err
		}
	}

	return libdns.RR{
		Name: name,
		TTL:  time.Duration(hdr.Ttl) * time.Second,
		Type: dns.TypeToString[hdr.Rrtype],
		Data: data,
	}, nil
}

// rrsetPlaceholder returns an RR that addresses the whole RRset of the given
// name and type in an UPDATE message.
func rrsetPlaceholder(rec libdns.RR, zone string) (dns.RR, error) {
	rrType, ok := dns.StringToType[strings.ToUpper(rec.Type)]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", rec.Type)
	}
	return &dns.ANY{Hdr: dns.RR_Header{
		Name:   libdns.AbsoluteName(rec.Name, zone),
		Rrtype: rrType,
		Class:  dns.ClassINET,
	}}, nil
}
