// SPDX-License-Identifier: MPL-2.0

package hostversion

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRange is the sentinel error wrapped by InvalidRangeError.
var ErrInvalidRange = errors.New("invalid version range")

// rangeSeparator separates the bounds in the textual form "MIN..MAX".
const rangeSeparator = ".."

type (
	// Range is a closed interval [Min, Max] of versions. Both bounds are inclusive.
	Range struct {
		Min Version
		Max Version
	}

	// InvalidRangeError is returned when a range is malformed or Min > Max.
	InvalidRangeError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid version range %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidRange so callers can use errors.Is.
func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// NewRange builds a validated range from two version strings.
func NewRange(minVersion, maxVersion string) (Range, error) {
	lo, err := Parse(minVersion)
	if err != nil {
		return Range{}, err
	}
	hi, err := Parse(maxVersion)
	if err != nil {
		return Range{}, err
	}
	r := Range{Min: lo, Max: hi}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// MustRange is like NewRange but panics. Intended for compiled-in descriptor tables.
func MustRange(minVersion, maxVersion string) Range {
	r, err := NewRange(minVersion, maxVersion)
	if err != nil {
		panic(err)
	}
	return r
}

// Exact returns the single-version range [v, v].
func Exact(v Version) Range { return Range{Min: v, Max: v} }

// ParseRange accepts "MIN..MAX" or a single version meaning exactly that version.
func ParseRange(s string) (Range, error) {
	lo, hi, found := strings.Cut(s, rangeSeparator)
	if !found {
		v, err := Parse(s)
		if err != nil {
			return Range{}, err
		}
		return Exact(v), nil
	}
	if strings.TrimSpace(lo) == "" || strings.TrimSpace(hi) == "" {
		return Range{}, &InvalidRangeError{Value: s, Reason: "both bounds are required"}
	}
	return NewRange(lo, hi)
}

// Validate checks that both bounds are set and Min <= Max.
func (r Range) Validate() error {
	if r.Min.IsZero() || r.Max.IsZero() {
		return &InvalidRangeError{Value: r.String(), Reason: "both bounds are required"}
	}
	if r.Min.Compare(r.Max) > 0 {
		return &InvalidRangeError{Value: r.String(), Reason: "min is greater than max"}
	}
	return nil
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v Version) bool {
	return r.Min.Compare(v) <= 0 && v.Compare(r.Max) <= 0
}

// Overlaps reports whether the two closed ranges share at least one version.
func (r Range) Overlaps(other Range) bool {
	return r.Min.Compare(other.Max) <= 0 && other.Min.Compare(r.Max) <= 0
}

// Covers reports whether other lies entirely within r.
func (r Range) Covers(other Range) bool {
	return r.Min.Compare(other.Min) <= 0 && other.Max.Compare(r.Max) <= 0
}

// NarrowerThan reports whether r is strictly narrower than other. A range covered
// by the other is narrower; otherwise the component-wise span decides, with the
// lower Min breaking ties so the ordering is total and deterministic.
func (r Range) NarrowerThan(other Range) bool {
	if other.Covers(r) && !r.Covers(other) {
		return true
	}
	if r.Covers(other) && !other.Covers(r) {
		return false
	}
	rs, ot := r.span(), other.span()
	for i := range rs {
		if rs[i] != ot[i] {
			return rs[i] < ot[i]
		}
	}
	return r.Min.Compare(other.Min) < 0
}

func (r Range) span() [3]int {
	return [3]int{
		r.Max.Major() - r.Min.Major(),
		r.Max.Minor() - r.Min.Minor(),
		r.Max.Patch() - r.Min.Patch(),
	}
}

// String renders the range as "[MIN, MAX]".
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Min, r.Max)
}
