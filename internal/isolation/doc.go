// SPDX-License-Identifier: MPL-2.0

// Package isolation provides the private, per-plugin library scope that
// provisioned dependencies are attached to. Libraries attached to a Boundary are
// addressed through the plugin's namespace, so another plugin shipping the same
// library under the same coordinate never resolves to this copy.
//
// A Boundary is writable only until Seal; readers may use it concurrently.
package isolation
