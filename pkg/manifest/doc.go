// SPDX-License-Identifier: MPL-2.0

// Package manifest models the runtime dependency manifest generated at packaging
// time and embedded in the shipped artifact.
//
// Two encodings are accepted:
//   - CUE, validated against the embedded #Manifest schema (manifest_schema.cue)
//   - plain text, one entry per line: "group:name version sha256hex [optional]"
//
// A Manifest is immutable once parsed. Coordinates are unique within a manifest.
package manifest
