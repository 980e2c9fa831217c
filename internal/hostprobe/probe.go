// SPDX-License-Identifier: MPL-2.0

package hostprobe

import (
	"context"
	"errors"
	"fmt"

	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/platform"
)

// ErrNotDetected is returned by a probe that has no opinion about the host.
var ErrNotDetected = errors.New("host not detected")

type (
	// Host is the detected platform and version.
	Host struct {
		Platform platform.ID
		Version  hostversion.Version
		// DataVersion is the world data version reported by the host, or 0 if unknown.
		DataVersion int
		// Source names the probe that produced the answer.
		Source string
	}

	// Probe inspects the environment for the running host.
	Probe interface {
		Probe(ctx context.Context) (Host, error)
	}

	// ProbeFunc adapts a function to the Probe interface.
	ProbeFunc func(ctx context.Context) (Host, error)

	// Chain tries each probe in order. ErrNotDetected moves on to the next probe;
	// any other error stops the chain.
	Chain []Probe

	// Static always reports the same host.
	Static Host
)

// Probe calls f(ctx).
func (f ProbeFunc) Probe(ctx context.Context) (Host, error) { return f(ctx) }

// Probe implements Probe.
func (c Chain) Probe(ctx context.Context) (Host, error) {
	for _, p := range c {
		if err := ctx.Err(); err != nil {
			return Host{}, err
		}
		h, err := p.Probe(ctx)
		if errors.Is(err, ErrNotDetected) {
			continue
		}
		return h, err
	}
	return Host{}, ErrNotDetected
}

// Probe implements Probe.
func (s Static) Probe(context.Context) (Host, error) {
	h := Host(s)
	if h.Source == "" {
		h.Source = "static"
	}
	return h, h.Validate()
}

// Validate checks that both platform and version are set and valid.
func (h Host) Validate() error {
	if err := h.Platform.Validate(); err != nil {
		return err
	}
	if h.Version.IsZero() {
		return &hostversion.InvalidVersionError{Value: h.Version.Original()}
	}
	return nil
}

// String renders "platform version".
func (h Host) String() string {
	return fmt.Sprintf("%s %s", h.Platform, h.Version)
}

func newHost(source, platformName, version string) (Host, error) {
	p, err := platform.Parse(platformName)
	if err != nil {
		return Host{}, fmt.Errorf("%s: %w", source, err)
	}
	v, err := hostversion.Parse(version)
	if err != nil {
		return Host{}, fmt.Errorf("%s: %w", source, err)
	}
	return Host{Platform: p, Version: v, Source: source}, nil
}
