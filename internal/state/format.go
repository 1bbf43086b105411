package state

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a desired-state document.
type Format string

const (
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
	FormatZoneFile Format = "zone"
)

// ParseFormat parses an explicit format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	case "zone", "zonefile", "bind":
		return FormatZoneFile, nil
	default:
		return "", fmt.Errorf("unknown state format %q: must be one of yaml, toml, zone", s)
	}
}

// FormatFromPath picks the format by file extension. Unknown extensions
// are read as YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".zone", ".db":
		return FormatZoneFile
	default:
		return FormatYAML
	}
}

// Parse decodes data. origin is the zone the document belongs to; it is
// only used for zone files, where it is the initial $ORIGIN.
func Parse(data []byte, format Format, origin string) (*Document, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data)
	case FormatTOML:
		return parseTOML(data)
	case FormatZoneFile:
		return ParseZoneFile(data, origin)
	default:
		return nil, fmt.Errorf("unknown state format %q", format)
	}
}

func parseYAML(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &doc, nil
}

func parseTOML(data []byte) (*Document, error) {
	var doc Document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("parsing TOML: unknown keys %s", strings.Join(keys, ", "))
	}
	return &doc, nil
}
