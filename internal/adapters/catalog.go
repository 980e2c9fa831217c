// SPDX-License-Identifier: MPL-2.0

package adapters

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bending/bendboot/internal/registry"
	"github.com/bending/bendboot/pkg/adapter"
	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/platform"
)

// ErrUnknownAdapter is returned by New for an ID missing from the catalog.
var ErrUnknownAdapter = errors.New("adapter not in catalog")

type (
	// Entry is one compiled-in adapter.
	Entry struct {
		ID          adapter.ID
		Platform    platform.ID
		Range       hostversion.Range
		DataVersion int
		Features    []adapter.Feature
	}
)

var paperFeatures = []adapter.Feature{
	adapter.FeatureNativeBlocks,
	adapter.FeaturePacketEntities,
	adapter.FeatureFluidRaytrace,
	adapter.FeatureFakeBreak,
}

// CraftBukkit revisions lack the Paper-only packet and raytrace hooks.
var bukkitFeatures = []adapter.Feature{
	adapter.FeatureNativeBlocks,
	adapter.FeatureFakeBreak,
}

var catalog = []Entry{
	{ID: "paper-v1_18_r2", Platform: platform.Paper, Range: hostversion.MustRange("1.18.2", "1.18.2"), DataVersion: 2975, Features: paperFeatures},
	{ID: "paper-v1_19_r1", Platform: platform.Paper, Range: hostversion.MustRange("1.19.0", "1.19.2"), DataVersion: 3120, Features: paperFeatures},
	{ID: "paper-v1_19_r2", Platform: platform.Paper, Range: hostversion.MustRange("1.19.3", "1.19.3"), DataVersion: 3218, Features: paperFeatures},
	{ID: "paper-v1_19_r3", Platform: platform.Paper, Range: hostversion.MustRange("1.19.4", "1.19.4"), DataVersion: 3337, Features: paperFeatures},
	{ID: "paper-v1_20_r1", Platform: platform.Paper, Range: hostversion.MustRange("1.20.0", "1.20.1"), DataVersion: 3465, Features: paperFeatures},

	{ID: "bukkit-v1_18_r2", Platform: platform.Bukkit, Range: hostversion.MustRange("1.18.2", "1.18.2"), DataVersion: 2975, Features: bukkitFeatures},
	{ID: "bukkit-v1_19_r1", Platform: platform.Bukkit, Range: hostversion.MustRange("1.19.0", "1.19.2"), DataVersion: 3120, Features: bukkitFeatures},

	{
		ID: "fabric-1.20", Platform: platform.Fabric, Range: hostversion.MustRange("1.20.0", "1.20.6"), DataVersion: 3465,
		Features: []adapter.Feature{adapter.FeatureNativeBlocks, adapter.FeaturePacketEntities},
	},

	// Sponge versions follow the SpongeAPI, not the game.
	{
		ID: "sponge-api8", Platform: platform.Sponge, Range: hostversion.MustRange("8.0.0", "8.2.0"), DataVersion: 2586,
		Features: []adapter.Feature{adapter.FeatureNativeBlocks},
	},
}

// Entries returns a copy of the catalog.
func Entries() []Entry {
	out := make([]Entry, len(catalog))
	for i, e := range catalog {
		e.Features = slices.Clone(e.Features)
		out[i] = e
	}
	return out
}

// Descriptors returns the registry descriptors of every catalog entry.
func Descriptors() []registry.Descriptor {
	out := make([]registry.Descriptor, len(catalog))
	for i, e := range catalog {
		out[i] = e.Descriptor()
	}
	return out
}

// Registry builds the default registry from the catalog.
func Registry() (*registry.Registry, error) {
	return registry.New(Descriptors())
}

// Lookup returns the catalog entry for id.
func Lookup(id adapter.ID) (Entry, bool) {
	for _, e := range catalog {
		if e.ID == id {
			e.Features = slices.Clone(e.Features)
			return e, true
		}
	}
	return Entry{}, false
}

// New instantiates the adapter named by id.
func New(id adapter.ID) (adapter.Capabilities, error) {
	e, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, id)
	}
	return newNative(e), nil
}

// Descriptor converts the entry to its registry descriptor.
func (e Entry) Descriptor() registry.Descriptor {
	return registry.Descriptor{Platform: e.Platform, Range: e.Range, Adapter: e.ID}
}
