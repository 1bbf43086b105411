package txtcodec

import (
	"errors"
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		alwaysQuote bool
		enc         CharacterEncoding
		want        string
	}{
		{name: "plain", value: "hello", enc: EncodingDecimal, want: "hello"},
		{name: "plain always quote", value: "hello", alwaysQuote: true, enc: EncodingDecimal, want: `"hello"`},
		{name: "space", value: "hello world", enc: EncodingDecimal, want: `"hello world"`},
		{name: "quote char", value: `say "hi"`, enc: EncodingDecimal, want: `"say \"hi\""`},
		{name: "backslash", value: `a\b`, enc: EncodingDecimal, want: `"a\\b"`},
		{name: "empty", value: "", enc: EncodingDecimal, want: ""},
		{name: "empty always quote", value: "", alwaysQuote: true, enc: EncodingDecimal, want: `""`},
		{name: "utf8 decimal", value: "ä", enc: EncodingDecimal, want: `\195\164`},
		{name: "utf8 octal", value: "ä", enc: EncodingOctal, want: `\303\244`},
		{name: "utf8 no encoding", value: "ä", enc: EncodingNone, want: "ä"},
		{name: "tab decimal", value: "a\tb", enc: EncodingDecimal, want: `"a\009b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.value, tt.alwaysQuote, tt.enc); got != tt.want {
				t.Errorf("Encode(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestEncode_Chunking(t *testing.T) {
	value := strings.Repeat("a", 300)
	got := Encode(value, false, EncodingDecimal)
	want := `"` + strings.Repeat("a", 255) + `" "` + strings.Repeat("a", 45) + `"`
	if got != want {
		t.Errorf("Encode(300 x a) = %q", got)
	}
}

func TestEncode_ChunkingKeepsUTF8Sequences(t *testing.T) {
	// 254 ASCII bytes followed by a two-byte rune must not be split.
	value := strings.Repeat("a", 254) + "ü" + "b"
	got := Encode(value, false, EncodingNone)
	want := `"` + strings.Repeat("a", 254) + `" "üb"`
	if got != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		wire string
		enc  CharacterEncoding
		want string
	}{
		{name: "unquoted", wire: "hello", enc: EncodingDecimal, want: "hello"},
		{name: "quoted", wire: `"hello world"`, enc: EncodingDecimal, want: "hello world"},
		{name: "chunks", wire: `"foo" "bar"`, enc: EncodingDecimal, want: "foobar"},
		{name: "spaces outside quotes", wire: "foo bar", enc: EncodingDecimal, want: "foobar"},
		{name: "escaped quote", wire: `"say \"hi\""`, enc: EncodingDecimal, want: `say "hi"`},
		{name: "decimal escape", wire: `\195\164`, enc: EncodingDecimal, want: "ä"},
		{name: "octal escape", wire: `\303\244`, enc: EncodingOctal, want: "ä"},
		{name: "escaped letter", wire: `\a`, enc: EncodingDecimal, want: "a"},
		{name: "empty quoted", wire: `""`, enc: EncodingDecimal, want: ""},
		{name: "empty", wire: "", enc: EncodingDecimal, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.wire, tt.enc)
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", tt.wire, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.wire, got, tt.want)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		wire string
		enc  CharacterEncoding
	}{
		{name: "unterminated quote", wire: `"abc`, enc: EncodingDecimal},
		{name: "trailing backslash", wire: `abc\`, enc: EncodingDecimal},
		{name: "short escape", wire: `\12`, enc: EncodingDecimal},
		{name: "decimal out of range", wire: `\300`, enc: EncodingDecimal},
		{name: "octal digit out of base", wire: `\389`, enc: EncodingOctal},
		{name: "invalid utf8", wire: `\255`, enc: EncodingDecimal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.wire, tt.enc)
			if err == nil {
				t.Fatalf("Decode(%q) expected error", tt.wire)
			}
			if !errors.Is(err, ErrInvalidTXT) {
				t.Errorf("error %v should match ErrInvalidTXT", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	values := []string{
		"",
		"v=spf1 include:_spf.example.com ~all",
		`quote " and backslash \`,
		"ünïcödé and emoji 🎉",
		"tab\tnewline\nnul\x00",
		strings.Repeat("x", 1000),
		strings.Repeat("ö", 200),
	}

	for _, enc := range []CharacterEncoding{EncodingDecimal, EncodingOctal, EncodingNone} {
		for _, alwaysQuote := range []bool{false, true} {
			for _, v := range values {
				wire := Encode(v, alwaysQuote, enc)
				got, err := Decode(wire, enc)
				if err != nil {
					t.Errorf("Decode(Encode(%q, %v, %s)) error: %v", v, alwaysQuote, enc, err)
					continue
				}
				if got != v {
					t.Errorf("round trip mismatch for %q (%v, %s): got %q via %q", v, alwaysQuote, enc, got, wire)
				}
			}
		}
	}
}

func TestParseCharacterEncoding(t *testing.T) {
	if enc, err := ParseCharacterEncoding(""); err != nil || enc != EncodingDecimal {
		t.Errorf("empty = %q, %v", enc, err)
	}
	if enc, err := ParseCharacterEncoding(" Octal "); err != nil || enc != EncodingOctal {
		t.Errorf("octal = %q, %v", enc, err)
	}
	if _, err := ParseCharacterEncoding("hex"); err == nil {
		t.Error("expected error for hex")
	}
}
