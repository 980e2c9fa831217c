// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles embedded CUE schemas, unifies user data with them and
// decodes the result into Go values. It is shared by the dependency manifest and
// the configuration loader so both report validation errors in the same
// "<file>: <path>: <message>" form.
package cueutil
