// SPDX-License-Identifier: MPL-2.0

// Package config handles bendboot configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/bendboot/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/bendboot/config.cue on macOS,
// %APPDATA%\bendboot\config.cue on Windows), falling back to ./config.cue. Every key can
// be overridden from the environment with the BENDBOOT_ prefix, nested keys joined by
// underscores (BENDBOOT_HOST_VERSION overrides host.version).
//
// Files are validated against the embedded CUE schema (config_schema.cue) before being
// merged into Viper.
package config
