// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bending/bendboot/internal/loader"
	"github.com/bending/bendboot/internal/provision"
	"github.com/bending/bendboot/internal/registry"
	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/manifest"
	"github.com/bending/bendboot/pkg/platform"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	entry := manifest.Entry{Coordinate: "a:b", Version: "1"}
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, KindNone},
		{"unsupported host", &registry.UnsupportedHostError{Platform: platform.Paper, Version: hostversion.MustParse("9.9.9")}, KindUnsupportedHost},
		{"unknown platform", &platform.UnknownPlatformError{Value: "forge"}, KindUnsupportedHost},
		{"host not detected", loader.ErrHostNotDetected, KindHostNotDetected},
		{"manifest", &manifest.ParseError{Source: "x", Reason: errors.New("bad")}, KindManifestParse},
		{"fetch", &provision.FetchError{Entry: entry, Err: provision.ErrArtifactNotFound}, KindFetchFailure},
		{"timeout", &provision.FetchError{Entry: entry, Timeout: true}, KindTimeoutFailure},
		{"integrity", &provision.IntegrityError{Entry: entry}, KindIntegrityFailure},
		{"wrapped", fmt.Errorf("startup: %w", &provision.IntegrityError{Entry: entry}), KindIntegrityFailure},
		{"other", errors.New("disk full"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}
