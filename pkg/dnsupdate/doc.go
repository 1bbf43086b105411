// Package dnsupdate implements the libdns record interfaces for a zone
// hosted on an RFC 2136 (Dynamic Updates in DNS) server such as BIND,
// Knot DNS or PowerDNS.
//
// Records are read with a zone transfer (AXFR) and written with UPDATE
// messages, optionally signed with TSIG (hmac-md5, hmac-sha256 or
// hmac-sha512). The server must allow both for the configured key.
//
// # Usage
//
//	cfg, err := dnsupdate.LoadConfigFromMap(map[string]string{
//	    "SERVER":        "ns1.example.com",
//	    "ZONE":          "example.com",
//	    "TSIG_KEY_NAME": "zonesync",
//	    "TSIG_SECRET":   secret,
//	})
//	if err != nil {
//	    return err
//	}
//	p, err := dnsupdate.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	records, err := p.GetRecords(ctx, "example.com.")
//
// # Configuration keys
//
//	SERVER          - primary server, host[:port] (port defaults to 53)
//	ZONE            - zone name
//	TSIG_KEY_NAME   - TSIG key name
//	TSIG_SECRET     - TSIG secret (base64)
//	TSIG_ALGORITHM  - hmac-sha256 (default), hmac-sha512 or hmac-md5
//	TIMEOUT         - timeout in seconds (default: 10)
//	USE_TCP         - send updates over TCP (default: false)
//
// Generate a key with BIND's tsig-keygen:
//
//	tsig-keygen -a hmac-sha256 zonesync > zonesync.key
package dnsupdate
