// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"errors"

	"github.com/bending/bendboot/internal/loader"
	"github.com/bending/bendboot/internal/provision"
	"github.com/bending/bendboot/internal/registry"
	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/manifest"
	"github.com/bending/bendboot/pkg/platform"
)

const (
	// KindNone is returned for a nil error.
	KindNone FailureKind = iota
	// KindUnsupportedHost means no adapter exists for the running host.
	KindUnsupportedHost
	// KindHostNotDetected means no probe recognized the host.
	KindHostNotDetected
	// KindManifestParse means the embedded manifest is malformed (a packaging defect).
	KindManifestParse
	// KindFetchFailure means a required dependency could not be retrieved.
	KindFetchFailure
	// KindTimeoutFailure is a fetch failure caused by a deadline.
	KindTimeoutFailure
	// KindIntegrityFailure means fetched bytes did not match the manifest checksum.
	KindIntegrityFailure
	// KindInternal covers everything else.
	KindInternal
)

// FailureKind is the startup error taxonomy.
type FailureKind int

// String returns the kind's name.
func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnsupportedHost:
		return "unsupported-host"
	case KindHostNotDetected:
		return "host-not-detected"
	case KindManifestParse:
		return "manifest-parse"
	case KindFetchFailure:
		return "fetch-failure"
	case KindTimeoutFailure:
		return "timeout-failure"
	case KindIntegrityFailure:
		return "integrity-failure"
	default:
		return "internal"
	}
}

// Classify maps err to its FailureKind. More specific kinds win: a timeout is
// reported as KindTimeoutFailure although it is also a fetch failure.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, provision.ErrIntegrityFailure):
		return KindIntegrityFailure
	case errors.Is(err, provision.ErrTimeout):
		return KindTimeoutFailure
	case errors.Is(err, provision.ErrFetchFailure):
		return KindFetchFailure
	case errors.Is(err, manifest.ErrParse):
		return KindManifestParse
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, platform.ErrUnknownPlatform),
		errors.Is(err, hostversion.ErrInvalidVersion):
		return KindUnsupportedHost
	case errors.Is(err, loader.ErrHostNotDetected):
		return KindHostNotDetected
	default:
		return KindInternal
	}
}
