// SPDX-License-Identifier: MPL-2.0

// Package hostprobe discovers which platform and version the plugin is running
// on. Probes are composed with Chain; the first probe that detects the host wins.
package hostprobe
