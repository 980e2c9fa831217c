// SPDX-License-Identifier: MPL-2.0

// Package adapters is the closed, statically linked catalog of platform
// adapters. Every entry pairs a registry descriptor with the constructor that
// instantiates it; there is no runtime code loading.
package adapters
