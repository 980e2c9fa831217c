// SPDX-License-Identifier: MPL-2.0

// Package resolver decides which manifest entries the host already provides.
// Resolve is pure: it never touches the network, the cache or the filesystem.
package resolver
