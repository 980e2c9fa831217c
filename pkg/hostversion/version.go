// SPDX-License-Identifier: MPL-2.0

package hostversion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version")

type (
	// Version is a validated semantic version. The zero value is invalid.
	Version struct {
		canonical string // "vMAJOR.MINOR.PATCH[-pre]" as produced by semver.Canonical
		original  string
	}

	// InvalidVersionError is returned when a string is not a semantic version.
	InvalidVersionError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q (expected MAJOR[.MINOR[.PATCH]][-PRERELEASE])", e.Value)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Parse validates s and returns its Version. Build metadata is dropped.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	norm := trimmed
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return Version{}, &InvalidVersionError{Value: s}
	}
	return Version{canonical: semver.Canonical(norm), original: trimmed}, nil
}

// MustParse is like Parse but panics on invalid input. Intended for compiled-in tables.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the zero (invalid) Version.
func (v Version) IsZero() bool { return v.canonical == "" }

// Compare returns -1, 0 or +1 comparing v with other.
func (v Version) Compare(other Version) int {
	return semver.Compare(v.canonical, other.canonical)
}

// Equal reports whether both versions have the same precedence.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// Canonical returns the normalized "vX.Y.Z" form.
func (v Version) Canonical() string { return v.canonical }

// String returns the version without the "v" prefix, fully expanded ("1.19" -> "1.19.0").
func (v Version) String() string { return strings.TrimPrefix(v.canonical, "v") }

// Original returns the text the version was parsed from.
func (v Version) Original() string { return v.original }

// Major returns the major component.
func (v Version) Major() int { return v.part(0) }

// Minor returns the minor component.
func (v Version) Minor() int { return v.part(1) }

// Patch returns the patch component.
func (v Version) Patch() int { return v.part(2) }

// Prerelease returns the prerelease suffix including the leading "-", or "".
func (v Version) Prerelease() string { return semver.Prerelease(v.canonical) }

func (v Version) part(i int) int {
	core := strings.TrimPrefix(v.canonical, "v")
	core = strings.TrimSuffix(core, semver.Build(v.canonical))
	core = strings.TrimSuffix(core, semver.Prerelease(v.canonical))
	parts := strings.Split(core, ".")
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return n
}

// Compatible reports whether have satisfies a requirement for want: same major
// version (same minor too while major is 0) and have >= want.
func Compatible(have, want Version) bool {
	if have.Major() != want.Major() {
		return false
	}
	if want.Major() == 0 && have.Minor() != want.Minor() {
		return false
	}
	return have.Compare(want) >= 0
}

// CompatibleStrings applies Compatible to raw version strings. Versions that are
// not semantic (e.g. "4.1.100.Final") only match by exact string equality.
func CompatibleStrings(have, want string) bool {
	hv, herr := Parse(have)
	wv, werr := Parse(want)
	if herr != nil || werr != nil {
		return strings.TrimSpace(have) == strings.TrimSpace(want)
	}
	return Compatible(hv, wv)
}
