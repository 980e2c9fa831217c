// SPDX-License-Identifier: MPL-2.0

// Package loader selects and instantiates the platform adapter at startup.
//
// A Loader probes the host, matches it against the registry and builds the
// adapter from the compiled-in catalog. It runs at most once; the resulting
// Handle is passed explicitly to the subsystems that need it.
package loader
