// SPDX-License-Identifier: MPL-2.0

// Package platform identifies the host server implementations bendboot can run on
// (Paper, Bukkit/Spigot, Fabric, Sponge) and holds the OS name constants used by
// path lookups.
package platform
