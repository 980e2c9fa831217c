// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bendboot command-line interface: the startup sequence
// plus inspection commands for adapters, dependencies, the manifest, the cache and
// configuration.
package cmd
