// SPDX-License-Identifier: MPL-2.0

package hostprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/bending/bendboot/pkg/platform"
)

type (
	// PinFile reads an operator pin file:
	//
	//	platform = "paper"
	//	version  = "1.19.2"
	//
	// A missing file is not detected.
	PinFile struct {
		Path string
	}

	// VersionJSON reads the version.json shipped inside the server jar and pairs
	// its "id" with a platform that must be known up front.
	VersionJSON struct {
		Path     string
		Platform platform.ID
	}

	pinFileContents struct {
		Platform string `toml:"platform"`
		Version  string `toml:"version"`
	}

	versionJSONContents struct {
		ID           string `json:"id"`
		WorldVersion int    `json:"world_version"`
	}
)

// Probe implements Probe.
func (p PinFile) Probe(context.Context) (Host, error) {
	data, err := readOptional(p.Path)
	if err != nil || data == nil {
		return Host{}, err
	}

	var pin pinFileContents
	if err := toml.Unmarshal(data, &pin); err != nil {
		return Host{}, fmt.Errorf("parsing pin file %s: %w", p.Path, err)
	}
	if pin.Platform == "" || pin.Version == "" {
		return Host{}, fmt.Errorf("pin file %s: both platform and version are required", p.Path)
	}
	return newHost("pin-file", pin.Platform, pin.Version)
}

// Probe implements Probe.
func (v VersionJSON) Probe(context.Context) (Host, error) {
	if v.Platform == "" {
		return Host{}, ErrNotDetected
	}
	data, err := readOptional(v.Path)
	if err != nil || data == nil {
		return Host{}, err
	}

	var info versionJSONContents
	if err := json.Unmarshal(data, &info); err != nil {
		return Host{}, fmt.Errorf("parsing %s: %w", v.Path, err)
	}
	if info.ID == "" {
		return Host{}, fmt.Errorf("%s: missing \"id\"", v.Path)
	}

	h, err := newHost("version-json", string(v.Platform), info.ID)
	if err != nil {
		return Host{}, err
	}
	h.DataVersion = info.WorldVersion
	return h, nil
}

// readOptional returns (nil, ErrNotDetected) for an unset or missing path.
func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrNotDetected
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotDetected
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
