// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/platform"
)

var (
	// ErrNotFound is returned when no descriptor covers the host.
	ErrNotFound = errors.New("no adapter for host")
	// ErrOverlappingRanges is returned when two descriptors of one platform share a version.
	ErrOverlappingRanges = errors.New("overlapping descriptor ranges")
)

type (
	// UnsupportedHostError names the platform/version pair that no descriptor covers,
	// together with the ranges that are supported for that platform.
	UnsupportedHostError struct {
		Platform  platform.ID
		Version   hostversion.Version
		Supported []hostversion.Range
	}

	// OverlapError reports the first pair of overlapping descriptors found.
	OverlapError struct {
		First  Descriptor
		Second Descriptor
	}
)

// Error implements the error interface.
func (e *UnsupportedHostError) Error() string {
	msg := fmt.Sprintf("unsupported host: %s %s", e.Platform, e.Version)
	if len(e.Supported) == 0 {
		return msg + " (no adapters are built for this platform)"
	}
	ranges := make([]string, len(e.Supported))
	for i, r := range e.Supported {
		ranges[i] = r.String()
	}
	return fmt.Sprintf("%s (supported: %s)", msg, strings.Join(ranges, ", "))
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *UnsupportedHostError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *OverlapError) Error() string {
	return fmt.Sprintf("descriptor %s overlaps %s", e.Second, e.First)
}

// Unwrap returns ErrOverlappingRanges for errors.Is() compatibility.
func (e *OverlapError) Unwrap() error { return ErrOverlappingRanges }
