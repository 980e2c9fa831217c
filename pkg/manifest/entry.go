// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bending/bendboot/pkg/platform"
)

// checksumPrefixLen is the number of hex characters of a checksum used in cache paths.
const checksumPrefixLen = 16

var (
	// ErrInvalidCoordinate is the sentinel wrapped by InvalidCoordinateError.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidChecksum is returned when a checksum is not 64 hex characters.
	ErrInvalidChecksum = errors.New("invalid checksum")

	coordinatePartPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

type (
	// Coordinate identifies a library as "group:name" (e.g. "com.zaxxer:HikariCP").
	Coordinate string

	// InvalidCoordinateError is returned when a Coordinate is not "group:name".
	InvalidCoordinateError struct {
		Value Coordinate
	}

	// Checksum is the SHA-256 digest of an artifact's bytes.
	Checksum [sha256.Size]byte

	// Entry is one required or optional runtime library.
	Entry struct {
		Coordinate Coordinate
		Version    string
		Checksum   Checksum
		// Required entries abort startup when they cannot be provisioned.
		Required bool
	}
)

// Error implements the error interface.
func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate %q (expected group:name)", e.Value)
}

// Unwrap returns ErrInvalidCoordinate for errors.Is() compatibility.
func (e *InvalidCoordinateError) Unwrap() error { return ErrInvalidCoordinate }

// Validate checks that c has a non-empty group and name of safe characters.
// Every group segment and the name become cache directories, so none may be
// empty or a name Windows reserves.
func (c Coordinate) Validate() error {
	group, name, found := strings.Cut(string(c), ":")
	if !found || !coordinatePartPattern.MatchString(group) || !coordinatePartPattern.MatchString(name) {
		return &InvalidCoordinateError{Value: c}
	}
	if strings.Contains(name, "..") || platform.IsWindowsReservedName(name) {
		return &InvalidCoordinateError{Value: c}
	}
	for _, segment := range strings.Split(group, ".") {
		if segment == "" || platform.IsWindowsReservedName(segment) {
			return &InvalidCoordinateError{Value: c}
		}
	}
	return nil
}

// Group returns the part before the colon.
func (c Coordinate) Group() string {
	group, _, _ := strings.Cut(string(c), ":")
	return group
}

// Name returns the part after the colon.
func (c Coordinate) Name() string {
	_, name, _ := strings.Cut(string(c), ":")
	return name
}

// GroupPath returns the group with dots replaced by slashes ("com/zaxxer").
func (c Coordinate) GroupPath() string {
	return strings.ReplaceAll(c.Group(), ".", "/")
}

// String returns the string representation of the Coordinate.
func (c Coordinate) String() string { return string(c) }

// ParseChecksum decodes a 64-character hex SHA-256 digest.
func ParseChecksum(s string) (Checksum, error) {
	var sum Checksum
	if len(s) != hex.EncodedLen(sha256.Size) {
		return sum, fmt.Errorf("%w: %q has %d characters, want 64", ErrInvalidChecksum, s, len(s))
	}
	if _, err := hex.Decode(sum[:], []byte(strings.ToLower(s))); err != nil {
		return sum, fmt.Errorf("%w: %q: %w", ErrInvalidChecksum, s, err)
	}
	return sum, nil
}

// Sum computes the Checksum of data.
func Sum(data []byte) Checksum { return sha256.Sum256(data) }

// Hex returns the lowercase hex encoding.
func (c Checksum) Hex() string { return hex.EncodeToString(c[:]) }

// Prefix returns the leading hex characters used in cache directory names.
func (c Checksum) Prefix() string { return c.Hex()[:checksumPrefixLen] }

// Equal compares digests byte for byte.
func (c Checksum) Equal(other Checksum) bool { return bytes.Equal(c[:], other[:]) }

// IsZero reports whether the checksum is unset.
func (c Checksum) IsZero() bool { return c == Checksum{} }

// String returns the lowercase hex encoding.
func (c Checksum) String() string { return c.Hex() }

// Validate checks coordinate, version and checksum.
func (e Entry) Validate() error {
	if err := e.Coordinate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Version) == "" || strings.ContainsAny(e.Version, `/\ `) || strings.Contains(e.Version, "..") {
		return fmt.Errorf("%s: invalid version %q", e.Coordinate, e.Version)
	}
	if e.Checksum.IsZero() {
		return fmt.Errorf("%s: %w: checksum is not set", e.Coordinate, ErrInvalidChecksum)
	}
	return nil
}

// String renders "group:name@version".
func (e Entry) String() string {
	return fmt.Sprintf("%s@%s", e.Coordinate, e.Version)
}

// ArtifactName returns the conventional file name "<name>-<version>.jar".
func (e Entry) ArtifactName() string {
	return fmt.Sprintf("%s-%s.jar", e.Coordinate.Name(), e.Version)
}
