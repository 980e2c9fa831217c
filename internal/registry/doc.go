// SPDX-License-Identifier: MPL-2.0

// Package registry maps a (platform, version) pair to the one adapter built for
// it. A Registry is built once from a fixed descriptor table and is immutable and
// safe for concurrent use afterwards.
package registry
