// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Paper is the Paper server (a Bukkit derivative with its own internals).
	Paper ID = "paper"
	// Bukkit covers CraftBukkit and Spigot servers.
	Bukkit ID = "bukkit"
	// Fabric is the Fabric mod loader running a dedicated server.
	Fabric ID = "fabric"
	// Sponge is SpongeVanilla or SpongeForge.
	Sponge ID = "sponge"
)

// ErrUnknownPlatform is the sentinel wrapped by UnknownPlatformError.
var ErrUnknownPlatform = errors.New("unknown platform")

type (
	// ID identifies one host server implementation.
	ID string

	// UnknownPlatformError is returned when an ID is not one of the compiled-in platforms.
	UnknownPlatformError struct {
		Value ID
	}
)

// All returns every compiled-in platform in a stable order.
func All() []ID {
	return []ID{Paper, Bukkit, Fabric, Sponge}
}

// Parse normalizes s (case and surrounding whitespace) and validates it.
// "spigot" and "craftbukkit" are accepted as aliases of Bukkit.
func Parse(s string) (ID, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "spigot", "craftbukkit":
		norm = string(Bukkit)
	}
	id := ID(norm)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate returns nil if the ID is a compiled-in platform.
func (id ID) Validate() error {
	switch id {
	case Paper, Bukkit, Fabric, Sponge:
		return nil
	default:
		return &UnknownPlatformError{Value: id}
	}
}

// String returns the string representation of the ID.
func (id ID) String() string { return string(id) }

// Error implements the error interface.
func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("unknown platform %q (valid: paper, bukkit, fabric, sponge)", e.Value)
}

// Unwrap returns ErrUnknownPlatform for errors.Is() compatibility.
func (e *UnknownPlatformError) Unwrap() error { return ErrUnknownPlatform }
