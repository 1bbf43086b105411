package provider

import (
	"fmt"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/txtcodec"
)

// TXTTransformation defines how users write TXT values.
type TXTTransformation string

const (
	// TXTTransformationAPI passes values through exactly as the provider API
	// represents them. No conversion happens in either direction.
	TXTTransformationAPI TXTTransformation = "api"

	// TXTTransformationQuoted means users write presentation format, e.g. "\"a b\"".
	TXTTransformationQuoted TXTTransformation = "quoted"

	// TXTTransformationUnquoted means users write the plain value.
	TXTTransformationUnquoted TXTTransformation = "unquoted"
)

// ParseTXTTransformation parses s. An empty string yields TXTTransformationUnquoted.
func ParseTXTTransformation(s string) (TXTTransformation, error) {
	if s == "" {
		return TXTTransformationUnquoted, nil
	}
	t := TXTTransformation(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TXTTransformationAPI, TXTTransformationQuoted, TXTTransformationUnquoted:
		return t, nil
	default:
		return "", fmt.Errorf("invalid TXT transformation %q: must be one of api, quoted, unquoted", s)
	}
}

// String returns the string representation of the transformation.
func (t TXTTransformation) String() string {
	return string(t)
}

// Converter moves record values between the provider API form, the
// internal form used for comparison, and the form users write. The
// internal form of a TXT value is its decoded logical string. Only TXT and
// SPF values are converted; every other type passes through unchanged.
type Converter struct {
	caps           Capabilities
	transformation TXTTransformation
	userEncoding   txtcodec.CharacterEncoding
}

// NewConverter creates a converter for a provider's capabilities and the
// user's TXT settings.
func NewConverter(caps Capabilities, transformation TXTTransformation, userEncoding txtcodec.CharacterEncoding) *Converter {
	if transformation == "" {
		transformation = TXTTransformationUnquoted
	}
	if userEncoding == "" {
		userEncoding = txtcodec.EncodingDecimal
	}
	return &Converter{
		caps:           caps,
		transformation: transformation,
		userEncoding:   userEncoding,
	}
}

func (c *Converter) passThrough(t RecordType) bool {
	return !t.IsTXT() || c.transformation == TXTTransformationAPI
}

func (c *Converter) apiEncoding() txtcodec.CharacterEncoding {
	if c.caps.TXTHandling == TXTEncodedNoCharEncoding {
		return txtcodec.EncodingNone
	}
	if c.caps.TXTCharacterEncoding == "" {
		return txtcodec.EncodingDecimal
	}
	return c.caps.TXTCharacterEncoding
}

// FromAPI converts a record returned by the provider into internal form.
func (c *Converter) FromAPI(r Record) (Record, error) {
	if c.passThrough(r.Type) || c.caps.TXTHandling == TXTDecoded || c.caps.TXTHandling == "" {
		return r, nil
	}
	value, err := txtcodec.Decode(r.Target, c.apiEncoding())
	if err != nil {
		return r, fmt.Errorf("decoding %s record %q: %w", r.Type, r.Prefix, err)
	}
	r.Target = value
	return r, nil
}

// ToAPI converts an internal record into the form the provider expects.
func (c *Converter) ToAPI(r Record) Record {
	if c.passThrough(r.Type) || c.caps.TXTHandling == TXTDecoded || c.caps.TXTHandling == "" {
		return r
	}
	r.Target = txtcodec.Encode(r.Target, c.caps.TXTAlwaysQuote, c.apiEncoding())
	return r
}

// FromUser converts a user supplied value into internal form.
func (c *Converter) FromUser(t RecordType, value string) (string, error) {
	if c.passThrough(t) || c.transformation == TXTTransformationUnquoted {
		return value, nil
	}
	decoded, err := txtcodec.Decode(value, c.userEncoding)
	if err != nil {
		return "", fmt.Errorf("decoding quoted %s value: %w", t, err)
	}
	return decoded, nil
}

// ToUser converts an internal value into the form the user writes.
func (c *Converter) ToUser(t RecordType, value string) string {
	if c.passThrough(t) || c.transformation == TXTTransformationUnquoted {
		return value
	}
	return txtcodec.Encode(value, true, c.userEncoding)
}
