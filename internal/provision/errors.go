// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"

	"github.com/bending/bendboot/pkg/manifest"
)

var (
	// ErrFetchFailure is wrapped by every *FetchError.
	ErrFetchFailure = errors.New("dependency fetch failed")
	// ErrTimeout is wrapped by a *FetchError whose fetch exceeded its deadline.
	ErrTimeout = errors.New("dependency fetch timed out")
	// ErrIntegrityFailure is wrapped by every *IntegrityError.
	ErrIntegrityFailure = errors.New("dependency integrity check failed")
	// ErrArtifactNotFound is returned by a Source that does not have the artifact.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrNoSources is returned when an entry must be fetched but no source is configured.
	ErrNoSources = errors.New("no dependency sources configured")
)

type (
	// FetchError reports an entry that could not be retrieved from any source.
	FetchError struct {
		Entry manifest.Entry
		// Source is the last source tried, empty if none was.
		Source  string
		Timeout bool
		Err     error
	}

	// IntegrityError reports fetched or cached bytes whose SHA-256 does not match
	// the manifest. The bytes are never attached.
	IntegrityError struct {
		Entry    manifest.Entry
		Source   string
		Expected manifest.Checksum
		Got      manifest.Checksum
	}
)

// Error implements the error interface.
func (e *FetchError) Error() string {
	what := "fetching"
	if e.Timeout {
		what = "timed out fetching"
	}
	if e.Source == "" {
		return fmt.Sprintf("%s %s: %v", what, e.Entry, e.Err)
	}
	return fmt.Sprintf("%s %s from %s: %v", what, e.Entry, e.Source, e.Err)
}

// Unwrap exposes ErrFetchFailure, ErrTimeout for timeouts, and the cause.
func (e *FetchError) Unwrap() []error {
	errs := []error{ErrFetchFailure}
	if e.Timeout {
		errs = append(errs, ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s from %s\nExpected: %s\nGot:      %s",
		e.Entry, e.Source, e.Expected.Hex(), e.Got.Hex())
}

// Unwrap returns ErrIntegrityFailure so callers can use errors.Is.
func (e *IntegrityError) Unwrap() error { return ErrIntegrityFailure }
