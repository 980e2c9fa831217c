// SPDX-License-Identifier: MPL-2.0

// Package provision fetches, verifies and attaches the runtime libraries the
// host does not already provide.
//
// Artifacts are looked up in a content-addressed local cache first. Cache misses
// are fetched from the configured sources in order, hashed while streaming to a
// temp file, compared with the manifest checksum and only then renamed into the
// cache and attached to a fresh isolation boundary:
//
//	p := provision.New(cache, "bending", provision.WithSources(src))
//	boundary, report, err := p.Provision(ctx, partition.Missing)
//
// A required entry that cannot be provisioned fails the whole call and the
// boundary is discarded; optional failures are reported and skipped.
package provision
