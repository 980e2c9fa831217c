// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/platform"
)

const (
	// SeverityWarning marks a diagnostic that did not prevent a match.
	SeverityWarning Severity = "warning"

	// CodeAmbiguousDescriptor is emitted when more than one descriptor matched
	// and the narrowest range was chosen.
	CodeAmbiguousDescriptor = "ambiguous_descriptor"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a non-fatal finding returned alongside a match so the caller
	// decides how to render it.
	Diagnostic struct {
		Severity   Severity
		Code       string
		Message    string
		Candidates []Descriptor
	}

	// Option configures a Registry.
	Option func(*Registry)

	// Registry is an immutable table of descriptors grouped by platform.
	Registry struct {
		byPlatform    map[platform.ID][]Descriptor
		allowOverlaps bool
	}
)

// AllowOverlaps permits descriptors of one platform with overlapping ranges.
// Matches inside an overlap resolve to the narrowest range and carry a
// CodeAmbiguousDescriptor diagnostic. Intended for operator-supplied tables.
func AllowOverlaps(allow bool) Option {
	return func(r *Registry) { r.allowOverlaps = allow }
}

// New validates descs and builds a Registry. Unless AllowOverlaps is set, two
// descriptors of the same platform with overlapping ranges are rejected with an
// *OverlapError.
func New(descs []Descriptor, opts ...Option) (*Registry, error) {
	r := &Registry{byPlatform: make(map[platform.ID][]Descriptor)}
	for _, opt := range opts {
		opt(r)
	}

	for i, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
		r.byPlatform[d.Platform] = append(r.byPlatform[d.Platform], d)
	}

	for _, p := range platform.All() {
		list := r.byPlatform[p]
		slices.SortStableFunc(list, compareDescriptors)
		if r.allowOverlaps {
			continue
		}
		// Sorted by Min, so any overlap shows up between neighbours.
		for i := 1; i < len(list); i++ {
			if list[i-1].Range.Overlaps(list[i].Range) {
				return nil, &OverlapError{First: list[i-1], Second: list[i]}
			}
		}
	}

	return r, nil
}

// Match returns the descriptor whose range contains v on platform p.
//
// An unknown platform yields an *platform.UnknownPlatformError, a zero version an
// *hostversion.InvalidVersionError, and an uncovered version an
// *UnsupportedHostError. Match never panics and is deterministic.
func (r *Registry) Match(p platform.ID, v hostversion.Version) (Descriptor, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return Descriptor{}, nil, err
	}
	if v.IsZero() {
		return Descriptor{}, nil, &hostversion.InvalidVersionError{Value: v.Original()}
	}

	var candidates []Descriptor
	for _, d := range r.byPlatform[p] {
		if d.Range.Contains(v) {
			candidates = append(candidates, d)
		}
	}

	switch len(candidates) {
	case 0:
		return Descriptor{}, nil, &UnsupportedHostError{Platform: p, Version: v, Supported: r.Supported(p)}
	case 1:
		return candidates[0], nil, nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Range.NarrowerThan(best.Range) {
			best = c
		}
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.String()
	}
	diag := Diagnostic{
		Severity:   SeverityWarning,
		Code:       CodeAmbiguousDescriptor,
		Message:    fmt.Sprintf("%s %s matched %d descriptors (%s); using narrowest %s", p, v, len(candidates), strings.Join(names, "; "), best.Range),
		Candidates: candidates,
	}
	return best, []Diagnostic{diag}, nil
}

// MatchStrings parses raw platform and version strings before calling Match.
func (r *Registry) MatchStrings(platformName, version string) (Descriptor, []Diagnostic, error) {
	p, err := platform.Parse(platformName)
	if err != nil {
		return Descriptor{}, nil, err
	}
	v, err := hostversion.Parse(version)
	if err != nil {
		return Descriptor{}, nil, err
	}
	return r.Match(p, v)
}

// Descriptors returns every descriptor sorted by platform, then range.
func (r *Registry) Descriptors() []Descriptor {
	var out []Descriptor
	for _, p := range r.Platforms() {
		out = append(out, r.byPlatform[p]...)
	}
	return out
}

// Platforms returns the platforms with at least one descriptor, in the order of
// platform.All().
func (r *Registry) Platforms() []platform.ID {
	var out []platform.ID
	for _, p := range platform.All() {
		if len(r.byPlatform[p]) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Supported returns the ranges registered for p in ascending order.
func (r *Registry) Supported(p platform.ID) []hostversion.Range {
	list := r.byPlatform[p]
	out := make([]hostversion.Range, len(list))
	for i, d := range list {
		out[i] = d.Range
	}
	return out
}

func compareDescriptors(a, b Descriptor) int {
	if c := a.Range.Min.Compare(b.Range.Min); c != 0 {
		return c
	}
	if c := a.Range.Max.Compare(b.Range.Max); c != 0 {
		return c
	}
	return cmp.Compare(a.Adapter, b.Adapter)
}
