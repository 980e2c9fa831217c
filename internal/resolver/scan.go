// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bending/bendboot/pkg/manifest"
)

// ScanLibraries walks a Maven-layout library directory
// (<group path>/<name>/<version>/<name>-<version>.jar) and records every
// artifact found. A missing directory yields an empty Snapshot.
func ScanLibraries(dir string) (Snapshot, error) {
	var libs []Library

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".jar" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if lib, ok := libraryFromPath(filepath.ToSlash(rel)); ok {
			libs = append(libs, lib)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, statErr := os.Stat(dir); errors.Is(statErr, fs.ErrNotExist) {
				return SnapshotOf(), nil
			}
		}
		return Snapshot{}, fmt.Errorf("scanning libraries in %s: %w", dir, err)
	}

	return SnapshotOf(libs...), nil
}

// libraryFromPath parses "com/zaxxer/HikariCP/5.0.1/HikariCP-5.0.1.jar".
// Paths that do not follow the layout are ignored.
func libraryFromPath(rel string) (Library, bool) {
	parts := strings.Split(rel, "/")
	if len(parts) < 4 {
		return Library{}, false
	}
	file := parts[len(parts)-1]
	version := parts[len(parts)-2]
	name := parts[len(parts)-3]
	group := strings.Join(parts[:len(parts)-3], ".")

	if file != name+"-"+version+".jar" {
		return Library{}, false
	}
	c := manifest.Coordinate(group + ":" + name)
	if c.Validate() != nil {
		return Library{}, false
	}
	return Library{Coordinate: c, Version: version}, true
}
