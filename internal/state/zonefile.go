package state

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
	"gitlab.bluewillows.net/root/zonesync/pkg/txtcodec"
)

// ParseZoneFile reads an RFC 1035 master file into a document. Records
// with the same owner and type form one record set whose TTL is the lowest
// TTL among them. The SOA record only names the zone. TXT and SPF values
// are decoded, so the document's TXT transformation is unquoted.
// $INCLUDE is not allowed.
func ParseZoneFile(data []byte, origin string) (*Document, error) {
	if origin != "" {
		origin = dns.Fqdn(origin)
	}

	type setKey struct {
		owner string
		rtype uint16
	}

	doc := &Document{TXTTransformation: string(provider.TXTTransformationUnquoted)}
	index := make(map[setKey]int)

	zp := dns.NewZoneParser(bytes.NewReader(data), origin, "")
	zp.SetIncludeAllowed(false)

	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		hdr := rr.Header()
		owner := strings.ToLower(hdr.Name)

		if hdr.Rrtype == dns.TypeSOA {
			doc.Zone = strings.TrimSuffix(owner, ".")
			continue
		}
		if hdr.Class != dns.ClassINET {
			return nil, fmt.Errorf("parsing zone file: %s: unsupported class %s", hdr.Name, dns.Class(hdr.Class).String())
		}

		value := strings.TrimPrefix(rr.String(), hdr.String())
		if hdr.Rrtype == dns.TypeTXT || hdr.Rrtype == dns.TypeSPF {
			decoded, err := txtcodec.Decode(value, txtcodec.EncodingDecimal)
			if err != nil {
				return nil, fmt.Errorf("parsing zone file: %s: %w", hdr.Name, err)
			}
			value = decoded
		}

		ttl := int(hdr.Ttl)
		key := setKey{owner: owner, rtype: hdr.Rrtype}
		if i, ok := index[key]; ok {
			rs := &doc.RecordSets[i]
			rs.Values = append(rs.Values, value)
			if ttl < *rs.TTL {
				*rs.TTL = ttl
			}
			continue
		}

		index[key] = len(doc.RecordSets)
		doc.RecordSets = append(doc.RecordSets, RecordSet{
			Record: recordName(owner),
			Type:   dns.Type(hdr.Rrtype).String(),
			TTL:    provider.IntPtr(ttl),
			Values: []string{value},
		})
	}
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("parsing zone file: %w", err)
	}

	return doc, nil
}

func recordName(owner string) string {
	if owner == "." {
		return owner
	}
	return strings.TrimSuffix(owner, ".")
}
