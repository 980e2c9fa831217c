// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bending/bendboot/pkg/cueutil"
)

// FormatVersion is the only manifest format version understood by this package.
const FormatVersion = 1

// optionalMarker flags a non-required entry in the text encoding.
const optionalMarker = "optional"

//go:embed manifest_schema.cue
var manifestSchema []byte

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("manifest parse error")

type (
	// Manifest is an ordered, immutable set of entries with unique coordinates.
	Manifest struct {
		plugin  string
		entries []Entry
		index   map[Coordinate]int
	}

	// ParseError reports a malformed manifest resource. It always indicates a
	// packaging defect.
	ParseError struct {
		Source string
		Line   int // 0 when the position is unknown
		Reason error
	}

	cueManifest struct {
		Version int        `json:"version"`
		Plugin  string     `json:"plugin"`
		Entries []cueEntry `json:"entries"`
	}

	cueEntry struct {
		Coordinate string `json:"coordinate"`
		Version    string `json:"version"`
		SHA256     string `json:"sha256"`
		Required   bool   `json:"required"`
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("manifest %s:%d: %v", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("manifest %s: %v", e.Source, e.Reason)
}

// Unwrap exposes both ErrParse and the underlying reason.
func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Reason} }

// New builds a manifest, rejecting invalid entries and duplicate coordinates.
func New(plugin string, entries ...Entry) (*Manifest, error) {
	m := &Manifest{plugin: plugin, index: make(map[Coordinate]int, len(entries))}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if first, dup := m.index[e.Coordinate]; dup {
			return nil, fmt.Errorf("entry %d: duplicate coordinate %s (first declared at entry %d)", i, e.Coordinate, first)
		}
		m.index[e.Coordinate] = i
		m.entries = append(m.entries, e)
	}
	return m, nil
}

// Parse decodes data, choosing the CUE encoding for ".cue" sources and the text
// encoding otherwise.
func Parse(data []byte, source string) (*Manifest, error) {
	if filepath.Ext(source) == ".cue" {
		return ParseCUE(data, source)
	}
	return ParseText(data, source)
}

// ParseCUE decodes the CUE encoding validated against #Manifest.
func ParseCUE(data []byte, source string) (*Manifest, error) {
	doc, err := cueutil.Decode[cueManifest](manifestSchema, data, "#Manifest", cueutil.WithFilename(source))
	if err != nil {
		return nil, &ParseError{Source: source, Reason: err}
	}

	entries := make([]Entry, 0, len(doc.Entries))
	for _, ce := range doc.Entries {
		sum, err := ParseChecksum(ce.SHA256)
		if err != nil {
			return nil, &ParseError{Source: source, Reason: fmt.Errorf("%s: %w", ce.Coordinate, err)}
		}
		entries = append(entries, Entry{
			Coordinate: Coordinate(ce.Coordinate),
			Version:    ce.Version,
			Checksum:   sum,
			Required:   ce.Required,
		})
	}

	m, err := New(doc.Plugin, entries...)
	if err != nil {
		return nil, &ParseError{Source: source, Reason: err}
	}
	return m, nil
}

// ParseText decodes the line-oriented encoding. Blank lines and lines starting
// with "#" are ignored.
func ParseText(data []byte, source string) (*Manifest, error) {
	var entries []Entry
	seen := make(map[Coordinate]int)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 || len(fields) > 4 {
			return nil, &ParseError{Source: source, Line: lineNo, Reason: fmt.Errorf("expected \"coordinate version sha256 [optional]\", got %d fields", len(fields))}
		}

		e := Entry{Coordinate: Coordinate(fields[0]), Version: fields[1], Required: true}
		if len(fields) == 4 {
			if fields[3] != optionalMarker {
				return nil, &ParseError{Source: source, Line: lineNo, Reason: fmt.Errorf("unknown flag %q (only %q is allowed)", fields[3], optionalMarker)}
			}
			e.Required = false
		}

		sum, err := ParseChecksum(fields[2])
		if err != nil {
			return nil, &ParseError{Source: source, Line: lineNo, Reason: err}
		}
		e.Checksum = sum

		if err := e.Validate(); err != nil {
			return nil, &ParseError{Source: source, Line: lineNo, Reason: err}
		}
		if first, dup := seen[e.Coordinate]; dup {
			return nil, &ParseError{Source: source, Line: lineNo, Reason: fmt.Errorf("duplicate coordinate %s (first declared on line %d)", e.Coordinate, first)}
		}
		seen[e.Coordinate] = lineNo
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Source: source, Reason: err}
	}

	m, err := New("", entries...)
	if err != nil {
		return nil, &ParseError{Source: source, Reason: err}
	}
	return m, nil
}

// Plugin returns the owning plugin identifier, or "" when the manifest does not set one.
func (m *Manifest) Plugin() string { return m.plugin }

// Entries returns a copy of the entries in declaration order.
func (m *Manifest) Entries() []Entry { return slices.Clone(m.entries) }

// Len returns the number of entries.
func (m *Manifest) Len() int { return len(m.entries) }

// Lookup returns the entry declared for c.
func (m *Manifest) Lookup(c Coordinate) (Entry, bool) {
	i, ok := m.index[c]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Required returns the required entries in declaration order.
func (m *Manifest) Required() []Entry {
	var out []Entry
	for _, e := range m.entries {
		if e.Required {
			out = append(out, e)
		}
	}
	return out
}
