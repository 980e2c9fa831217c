// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/bending/bendboot/pkg/manifest"
)

// ComputeFileHash streams the file at path through SHA-256.
func ComputeFileHash(path string) (manifest.Checksum, error) {
	var sum manifest.Checksum

	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer func() {
		// Read-only file handle; close errors are not actionable.
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, fmt.Errorf("hashing file %s: %w", path, err)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// VerifyFile compares the SHA-256 of the file at path with e's checksum and
// returns an *IntegrityError attributed to source on mismatch.
func VerifyFile(path string, e manifest.Entry, source string) error {
	got, err := ComputeFileHash(path)
	if err != nil {
		return err
	}
	if !got.Equal(e.Checksum) {
		return &IntegrityError{Entry: e, Source: source, Expected: e.Checksum, Got: got}
	}
	return nil
}
