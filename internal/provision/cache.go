// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bending/bendboot/pkg/manifest"
)

const (
	artifactFileName = "artifact"
	cacheSourceName  = "cache"
)

// Cache is the add-only, content-addressed artifact store:
// <root>/<group>/<name>/<version>/<checksum prefix>/artifact.
//
// A published artifact is never overwritten; concurrent writers of the same
// entry race on an atomic rename and readers never observe partial files.
type Cache struct {
	root string
}

// NewCache returns a cache rooted at root.
func NewCache(root string) (*Cache, error) {
	if root == "" {
		return nil, errors.New("cache root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving cache root: %w", err)
	}
	return &Cache{root: abs}, nil
}

// Root returns the absolute cache root.
func (c *Cache) Root() string { return c.root }

// Path returns where e's artifact lives once cached.
func (c *Cache) Path(e manifest.Entry) string {
	return filepath.Join(c.root, e.Coordinate.Group(), e.Coordinate.Name(), e.Version, e.Checksum.Prefix(), artifactFileName)
}

// Verified returns the cached path of e if present and intact. A cached
// artifact that fails verification is removed and reported as an
// *IntegrityError with hit == false so the caller can refetch it.
func (c *Cache) Verified(e manifest.Entry) (path string, hit bool, err error) {
	path = c.Path(e)
	verr := VerifyFile(path, e, cacheSourceName)
	switch {
	case verr == nil:
		return path, true, nil
	case errors.Is(verr, fs.ErrNotExist):
		return path, false, nil
	case errors.Is(verr, ErrIntegrityFailure):
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return path, false, fmt.Errorf("removing corrupted artifact %s: %w", path, rmErr)
		}
		return path, false, verr
	default:
		return path, false, verr
	}
}

// Store streams r into the cache as e's artifact, verifying the SHA-256 before
// publishing. Mismatching bytes are discarded and reported as *IntegrityError.
func (c *Cache) Store(e manifest.Entry, source string, r io.Reader) (_ string, err error) {
	final := c.Path(e)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	published := false
	defer func() {
		if !published {
			// Best-effort removal of the unpublished temp file.
			_ = os.Remove(tmpName)
		}
	}()

	h := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(tmp, h), r)
	closeErr := tmp.Close()
	if copyErr != nil {
		return "", fmt.Errorf("writing to temp file: %w", copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}

	var got manifest.Checksum
	copy(got[:], h.Sum(nil))
	if !got.Equal(e.Checksum) {
		return "", &IntegrityError{Entry: e, Source: source, Expected: e.Checksum, Got: got}
	}

	// Another worker may have published the same content first.
	if VerifyFile(final, e, cacheSourceName) == nil {
		return final, nil
	}

	if err := os.Rename(tmpName, final); err != nil {
		// Renaming over a file held open by a reader fails on Windows.
		if VerifyFile(final, e, cacheSourceName) == nil {
			return final, nil
		}
		return "", fmt.Errorf("publishing %s: %w", final, err)
	}
	published = true
	return final, nil
}
