// Package txtcodec converts TXT record values between their logical form
// (a plain UTF-8 string) and DNS presentation format (quoted, escaped,
// chunked character-strings).
package txtcodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxChunkLength is the maximum number of octets in one character-string.
const MaxChunkLength = 255

// CharacterEncoding selects how bytes outside printable ASCII are escaped.
type CharacterEncoding string

const (
	// EncodingDecimal escapes bytes as \DDD in base 10 (RFC 1035).
	EncodingDecimal CharacterEncoding = "decimal"

	// EncodingOctal escapes bytes as \OOO in base 8.
	EncodingOctal CharacterEncoding = "octal"

	// EncodingNone leaves non-printable bytes untouched when encoding.
	// Decoding treats numeric escapes as decimal.
	EncodingNone CharacterEncoding = "none"
)

// ErrInvalidTXT indicates a malformed presentation-format TXT value.
var ErrInvalidTXT = errors.New("invalid TXT value")

// DecodeError reports where decoding failed.
type DecodeError struct {
	Value    string
	Position int
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid TXT value %q at offset %d: %s", e.Value, e.Position, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrInvalidTXT
}

// ParseCharacterEncoding parses s. An empty string yields EncodingDecimal.
func ParseCharacterEncoding(s string) (CharacterEncoding, error) {
	if s == "" {
		return EncodingDecimal, nil
	}
	enc := CharacterEncoding(strings.ToLower(strings.TrimSpace(s)))
	if !enc.IsValid() {
		return "", fmt.Errorf("invalid character encoding %q: must be one of decimal, octal", s)
	}
	return enc, nil
}

// IsValid returns true for the known encodings.
func (e CharacterEncoding) IsValid() bool {
	switch e {
	case EncodingDecimal, EncodingOctal, EncodingNone:
		return true
	default:
		return false
	}
}

// String returns the string representation of the encoding.
func (e CharacterEncoding) String() string {
	return string(e)
}

func (e CharacterEncoding) base() int {
	if e == EncodingOctal {
		return 8
	}
	return 10
}

// Encode returns the presentation form of value. Chunks hold at most
// MaxChunkLength raw bytes and never split a UTF-8 sequence. A chunk is
// quoted when it contains whitespace, a quote or a backslash, when the value
// spans several chunks, or when alwaysQuote is set.
func Encode(value string, alwaysQuote bool, enc CharacterEncoding) string {
	chunks := splitChunks(value)
	if len(chunks) == 0 {
		if alwaysQuote {
			return `""`
		}
		return ""
	}

	quote := alwaysQuote || len(chunks) > 1
	encoded := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		encoded = append(encoded, encodeChunk(chunk, quote, enc))
	}
	return strings.Join(encoded, " ")
}

func splitChunks(value string) []string {
	var chunks []string
	start := 0
	for i := 0; i < len(value); {
		_, size := utf8.DecodeRuneInString(value[i:])
		if i+size-start > MaxChunkLength {
			chunks = append(chunks, value[start:i])
			start = i
		}
		i += size
	}
	if start < len(value) {
		chunks = append(chunks, value[start:])
	}
	return chunks
}

func encodeChunk(chunk string, quote bool, enc CharacterEncoding) string {
	var b strings.Builder
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		switch {
		case c == '"' || c == '\\':
			quote = true
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			quote = true
			writeByte(&b, c, enc)
		default:
			writeByte(&b, c, enc)
		}
	}
	if quote {
		return `"` + b.String() + `"`
	}
	return b.String()
}

func writeByte(b *strings.Builder, c byte, enc CharacterEncoding) {
	if (c >= 0x20 && c < 0x7f) || enc == EncodingNone {
		b.WriteByte(c)
		return
	}
	b.WriteByte('\\')
	if enc == EncodingOctal {
		fmt.Fprintf(b, "%03o", c)
	} else {
		fmt.Fprintf(b, "%03d", c)
	}
}

// Decode parses a presentation-format TXT value and returns the logical
// string. Whitespace outside quotes separates chunks and is dropped.
func Decode(wire string, enc CharacterEncoding) (string, error) {
	out := make([]byte, 0, len(wire))
	inQuotes := false
	quoteStart := 0

	for i := 0; i < len(wire); i++ {
		c := wire[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			quoteStart = i
		case c == '\\':
			if i+1 >= len(wire) {
				return "", &DecodeError{Value: wire, Position: i, Reason: "trailing backslash"}
			}
			next := wire[i+1]
			if next < '0' || next > '9' {
				out = append(out, next)
				i++
				continue
			}
			v, err := parseNumericEscape(wire, i+1, enc)
			if err != nil {
				return "", err
			}
			out = append(out, v)
			i += 3
		case !inQuotes && (c == ' ' || c == '\t'):
		default:
			out = append(out, c)
		}
	}

	if inQuotes {
		return "", &DecodeError{Value: wire, Position: quoteStart, Reason: "unterminated quote"}
	}
	if !utf8.Valid(out) {
		return "", &DecodeError{Value: wire, Position: len(wire), Reason: "result is not valid UTF-8"}
	}
	return string(out), nil
}

func parseNumericEscape(wire string, pos int, enc CharacterEncoding) (byte, error) {
	if pos+3 > len(wire) {
		return 0, &DecodeError{Value: wire, Position: pos - 1, Reason: "numeric escape needs three digits"}
	}
	v, err := strconv.ParseUint(wire[pos:pos+3], enc.base(), 16)
	if err != nil {
		return 0, &DecodeError{Value: wire, Position: pos - 1, Reason: fmt.Sprintf("bad numeric escape %q", wire[pos:pos+3])}
	}
	if v > 255 {
		return 0, &DecodeError{Value: wire, Position: pos - 1, Reason: fmt.Sprintf("numeric escape %q out of range", wire[pos:pos+3])}
	}
	return byte(v), nil
}
