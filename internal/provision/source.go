// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bending/bendboot/pkg/manifest"
)

type (
	// Source retrieves artifact bytes by coordinate and version. Fetch returns
	// ErrArtifactNotFound (possibly wrapped) when the source does not carry the
	// artifact, which moves on to the next source without retrying.
	Source interface {
		Name() string
		Fetch(ctx context.Context, e manifest.Entry) (io.ReadCloser, error)
	}

	// DirSource serves artifacts from a local mirror using the Maven layout.
	DirSource struct {
		Root string
	}
)

// ArtifactPath returns the slash-separated Maven layout path of e:
// "<group/path>/<name>/<version>/<name>-<version>.jar".
func ArtifactPath(e manifest.Entry) string {
	return path.Join(e.Coordinate.GroupPath(), e.Coordinate.Name(), e.Version, e.ArtifactName())
}

// Name implements Source.
func (d DirSource) Name() string { return "dir:" + d.Root }

// Fetch implements Source.
func (d DirSource) Fetch(ctx context.Context, e manifest.Entry) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(ArtifactPath(e))))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, e, d.Root)
		}
		return nil, err
	}
	return f, nil
}
