// SPDX-License-Identifier: MPL-2.0

package adapters

import (
	"errors"
	"slices"
	"sync/atomic"

	"github.com/bending/bendboot/pkg/adapter"
	"github.com/bending/bendboot/pkg/platform"
)

// ErrAdapterClosed is returned by Close on an adapter that was already closed.
var ErrAdapterClosed = errors.New("adapter already closed")

// native is the in-process representation of a compiled-in adapter.
type native struct {
	entry    Entry
	features map[adapter.Feature]struct{}
	closed   atomic.Bool
}

func newNative(e Entry) *native {
	n := &native{entry: e, features: make(map[adapter.Feature]struct{}, len(e.Features))}
	for _, f := range e.Features {
		n.features[f] = struct{}{}
	}
	return n
}

func (n *native) ID() adapter.ID { return n.entry.ID }

func (n *native) Platform() platform.ID { return n.entry.Platform }

func (n *native) DataVersion() int { return n.entry.DataVersion }

func (n *native) Features() []adapter.Feature { return slices.Clone(n.entry.Features) }

func (n *native) Supports(f adapter.Feature) bool {
	_, ok := n.features[f]
	return ok
}

func (n *native) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return ErrAdapterClosed
	}
	return nil
}
