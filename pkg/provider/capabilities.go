package provider

import (
	"fmt"
	"slices"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/txtcodec"
)

// OperationKind is the kind of write operation.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// String returns the string representation of the kind.
func (k OperationKind) String() string {
	return string(k)
}

// TXTHandling describes how a provider API represents TXT values.
type TXTHandling string

const (
	// TXTDecoded means the API takes and returns the plain logical value.
	TXTDecoded TXTHandling = "decoded"

	// TXTEncoded means the API uses presentation format with numeric escapes.
	TXTEncoded TXTHandling = "encoded"

	// TXTEncodedNoCharEncoding means presentation format where bytes outside
	// printable ASCII are sent as-is.
	TXTEncodedNoCharEncoding TXTHandling = "encoded-no-char-encoding"
)

// ParseTXTHandling parses s. An empty string yields TXTDecoded.
func ParseTXTHandling(s string) (TXTHandling, error) {
	if s == "" {
		return TXTDecoded, nil
	}
	h := TXTHandling(strings.ToLower(strings.TrimSpace(s)))
	switch h {
	case TXTDecoded, TXTEncoded, TXTEncodedNoCharEncoding:
		return h, nil
	default:
		return "", fmt.Errorf("invalid TXT handling %q: must be one of decoded, encoded, encoded-no-char-encoding", s)
	}
}

// Capabilities is the static descriptor of what a provider instance supports.
type Capabilities struct {
	BulkCreate bool
	BulkUpdate bool
	BulkDelete bool

	// SupportedTypes lists the record types the backend accepts.
	// Empty means any type.
	SupportedTypes []RecordType

	// SupportsTTL is false for backends that ignore TTLs entirely.
	SupportsTTL bool

	// DefaultTTL is the TTL the backend applies when none is given.
	DefaultTTL *int

	TXTHandling          TXTHandling
	TXTAlwaysQuote       bool
	TXTCharacterEncoding txtcodec.CharacterEncoding
}

// SupportsBulk reports whether the provider has a bulk endpoint for kind.
func (c Capabilities) SupportsBulk(kind OperationKind) bool {
	switch kind {
	case OperationCreate:
		return c.BulkCreate
	case OperationUpdate:
		return c.BulkUpdate
	case OperationDelete:
		return c.BulkDelete
	default:
		return false
	}
}

// SupportsType reports whether records of type t can be managed.
func (c Capabilities) SupportsType(t RecordType) bool {
	return len(c.SupportedTypes) == 0 || slices.Contains(c.SupportedTypes, t)
}

// ResolveTTL returns the TTL a record will effectively carry at the provider.
// Nil means unknown, either because no TTL was given and the provider has
// no fixed default, or because the provider does not support TTLs.
func (c Capabilities) ResolveTTL(ttl *int) *int {
	if !c.SupportsTTL {
		return nil
	}
	if ttl != nil {
		return cloneInt(ttl)
	}
	return cloneInt(c.DefaultTTL)
}
