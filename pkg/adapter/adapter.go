// SPDX-License-Identifier: MPL-2.0

// Package adapter defines the capability interface every platform adapter
// implements. Gameplay subsystems depend only on this package; they never see
// which concrete adapter was selected.
package adapter

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/bending/bendboot/pkg/platform"
)

const (
	// FeatureNativeBlocks sets blocks through the host's internal world API,
	// bypassing physics and lighting updates.
	FeatureNativeBlocks Feature = "native-blocks"
	// FeaturePacketEntities spawns client-side only entities via raw packets.
	FeaturePacketEntities Feature = "packet-entities"
	// FeatureFluidRaytrace ray traces against fluid collision shapes.
	FeatureFluidRaytrace Feature = "fluid-raytrace"
	// FeatureFakeBreak sends block-break animations without touching the world.
	FeatureFakeBreak Feature = "fake-break"
)

var (
	// ErrInvalidID is the sentinel error wrapped by InvalidIDError.
	ErrInvalidID = errors.New("invalid adapter id")

	idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)
)

type (
	// ID names a pre-built adapter (e.g. "paper-v1_19_R1").
	ID string

	// Feature is an optional capability an adapter may offer.
	Feature string

	// InvalidIDError is returned when an ID is empty or contains unsupported
	// characters.
	InvalidIDError struct {
		Value ID
	}

	// Capabilities is the contract between the core and gameplay code.
	// Implementations are safe for concurrent use once constructed.
	Capabilities interface {
		ID() ID
		Platform() platform.ID
		// DataVersion is the host's world data version the adapter was built against.
		DataVersion() int
		Features() []Feature
		Supports(f Feature) bool
		// Close releases any host hooks installed by the adapter.
		Close() error
	}
)

// Error implements the error interface.
func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid adapter id %q", e.Value)
}

// Unwrap returns ErrInvalidID for errors.Is() compatibility.
func (e *InvalidIDError) Unwrap() error { return ErrInvalidID }

// Validate returns an error if the ID is not a lowercase identifier.
func (id ID) Validate() error {
	if !idPattern.MatchString(string(id)) {
		return &InvalidIDError{Value: id}
	}
	return nil
}

// String returns the string representation of the ID.
func (id ID) String() string { return string(id) }

// String returns the string representation of the Feature.
func (f Feature) String() string { return string(f) }

// AllFeatures returns every known feature in a stable order.
func AllFeatures() []Feature {
	return []Feature{FeatureNativeBlocks, FeaturePacketEntities, FeatureFluidRaytrace, FeatureFakeBreak}
}
