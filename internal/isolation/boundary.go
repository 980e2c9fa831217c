// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/bending/bendboot/pkg/manifest"
)

var (
	// ErrSealed is returned when attaching to a sealed boundary.
	ErrSealed = errors.New("isolation boundary is sealed")
	// ErrClosed is returned by operations on a released boundary.
	ErrClosed = errors.New("isolation boundary is closed")
	// ErrConflict is returned when a coordinate is attached twice with different content.
	ErrConflict = errors.New("coordinate already attached")
	// ErrInvalidNamespace is returned by New for an empty or malformed namespace.
	ErrInvalidNamespace = errors.New("invalid isolation namespace")

	namespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)
)

type (
	// Library is an artifact attached to a boundary.
	Library struct {
		Entry manifest.Entry
		// Path is the verified artifact in the local cache.
		Path string
		// Qualified is the namespaced name the library is addressed by.
		Qualified string
	}

	// Boundary is one plugin's private library scope.
	Boundary struct {
		namespace string

		mu     sync.RWMutex
		libs   map[manifest.Coordinate]Library
		sealed bool
		closed bool
	}
)

// New creates a writable boundary for the plugin namespace.
func New(namespace string) (*Boundary, error) {
	if !namespacePattern.MatchString(namespace) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	return &Boundary{namespace: namespace, libs: make(map[manifest.Coordinate]Library)}, nil
}

// Namespace returns the plugin namespace.
func (b *Boundary) Namespace() string { return b.namespace }

// Qualify returns the namespaced name for c, e.g. "bending/com.zaxxer/HikariCP".
func (b *Boundary) Qualify(c manifest.Coordinate) string {
	return b.namespace + "/" + c.Group() + "/" + c.Name()
}

// Attach adds a verified artifact. Attaching the same entry and path again is a
// no-op; a different version or checksum for an attached coordinate is ErrConflict.
func (b *Boundary) Attach(e manifest.Entry, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.closed:
		return ErrClosed
	case b.sealed:
		return ErrSealed
	}

	if existing, ok := b.libs[e.Coordinate]; ok {
		if existing.Entry == e && existing.Path == path {
			return nil
		}
		return fmt.Errorf("%w: %s (attached %s, got %s)", ErrConflict, e.Coordinate, existing.Entry.Version, e.Version)
	}

	b.libs[e.Coordinate] = Library{Entry: e, Path: path, Qualified: b.Qualify(e.Coordinate)}
	return nil
}

// Seal makes the boundary read-only. Sealing twice is harmless.
func (b *Boundary) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
}

// Sealed reports whether Seal has been called.
func (b *Boundary) Sealed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sealed
}

// Lookup returns the library attached for c. Nothing resolves outside this
// boundary's own attachments.
func (b *Boundary) Lookup(c manifest.Coordinate) (Library, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return Library{}, false
	}
	lib, ok := b.libs[c]
	return lib, ok
}

// Libraries returns the attached libraries sorted by coordinate.
func (b *Boundary) Libraries() []Library {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Library, 0, len(b.libs))
	for _, lib := range b.libs {
		out = append(out, lib)
	}
	slices.SortFunc(out, func(x, y Library) int { return strings.Compare(string(x.Entry.Coordinate), string(y.Entry.Coordinate)) })
	return out
}

// Len returns the number of attached libraries.
func (b *Boundary) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.libs)
}

// ClassPath joins the artifact paths with the OS list separator, in Libraries order.
func (b *Boundary) ClassPath() string {
	libs := b.Libraries()
	paths := make([]string, len(libs))
	for i, lib := range libs {
		paths[i] = lib.Path
	}
	return strings.Join(paths, string(os.PathListSeparator))
}

// Close releases the boundary. Lookups fail afterwards. Closing twice is harmless.
func (b *Boundary) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.sealed = true
	clear(b.libs)
	return nil
}
