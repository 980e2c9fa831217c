// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"maps"
	"slices"

	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/manifest"
)

type (
	// Snapshot is the set of libraries the host has already loaded, keyed by
	// coordinate. A coordinate may be present at several versions.
	Snapshot struct {
		libs map[manifest.Coordinate][]string
	}

	// Library is one loaded (coordinate, version) pair.
	Library struct {
		Coordinate manifest.Coordinate
		Version    string
	}

	// Partition splits manifest entries by whether the host satisfies them.
	// Both slices keep manifest order.
	Partition struct {
		Satisfied []manifest.Entry
		Missing   []manifest.Entry
	}
)

// SnapshotOf builds a Snapshot from explicit libraries.
func SnapshotOf(libs ...Library) Snapshot {
	s := Snapshot{libs: make(map[manifest.Coordinate][]string, len(libs))}
	for _, l := range libs {
		if !slices.Contains(s.libs[l.Coordinate], l.Version) {
			s.libs[l.Coordinate] = append(s.libs[l.Coordinate], l.Version)
		}
	}
	return s
}

// Versions returns the loaded versions of c.
func (s Snapshot) Versions(c manifest.Coordinate) []string {
	return slices.Clone(s.libs[c])
}

// Libraries returns every loaded library sorted by coordinate then version.
func (s Snapshot) Libraries() []Library {
	var out []Library
	for _, c := range slices.Sorted(maps.Keys(s.libs)) {
		versions := slices.Clone(s.libs[c])
		slices.Sort(versions)
		for _, v := range versions {
			out = append(out, Library{Coordinate: c, Version: v})
		}
	}
	return out
}

// Len returns the number of distinct coordinates.
func (s Snapshot) Len() int { return len(s.libs) }

// Satisfies reports whether any loaded version of e's coordinate is compatible
// with e's version.
func (s Snapshot) Satisfies(e manifest.Entry) bool {
	for _, have := range s.libs[e.Coordinate] {
		if hostversion.CompatibleStrings(have, e.Version) {
			return true
		}
	}
	return false
}

// Resolve partitions m against the loaded snapshot. Optional entries that are
// not satisfied land in Missing too; the provisioner decides how to treat their
// failures.
func Resolve(m *manifest.Manifest, loaded Snapshot) Partition {
	var p Partition
	for _, e := range m.Entries() {
		if loaded.Satisfies(e) {
			p.Satisfied = append(p.Satisfied, e)
		} else {
			p.Missing = append(p.Missing, e)
		}
	}
	return p
}

// MissingRequired returns the required entries of Missing.
func (p Partition) MissingRequired() []manifest.Entry {
	var out []manifest.Entry
	for _, e := range p.Missing {
		if e.Required {
			out = append(out, e)
		}
	}
	return out
}
