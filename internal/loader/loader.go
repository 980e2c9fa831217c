// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/bending/bendboot/internal/adapters"
	"github.com/bending/bendboot/internal/hostprobe"
	"github.com/bending/bendboot/internal/registry"
	"github.com/bending/bendboot/pkg/adapter"
)

// CodeDataVersionMismatch flags a host whose reported data version differs from
// the one the selected adapter was built against.
const CodeDataVersionMismatch = "data_version_mismatch"

var (
	// ErrAlreadyLoaded is returned by every Load call after the first.
	ErrAlreadyLoaded = errors.New("adapter already loaded")
	// ErrHostNotDetected is returned when no probe recognized the host.
	ErrHostNotDetected = errors.New("could not detect host platform and version")
)

type (
	// Factory instantiates an adapter by id.
	Factory func(id adapter.ID) (adapter.Capabilities, error)

	// Option configures a Loader.
	Option func(*Loader)

	// Loader performs the one-time adapter selection.
	Loader struct {
		probe    hostprobe.Probe
		registry *registry.Registry
		factory  Factory
		logger   *log.Logger
		used     atomic.Bool
	}

	// Handle is the selected adapter together with what selected it. It is
	// never replaced once returned.
	Handle struct {
		adapter     adapter.Capabilities
		descriptor  registry.Descriptor
		host        hostprobe.Host
		diagnostics []registry.Diagnostic
	}
)

// WithFactory replaces adapters.New.
func WithFactory(f Factory) Option {
	return func(l *Loader) { l.factory = f }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader for the given probe and registry.
func New(probe hostprobe.Probe, reg *registry.Registry, opts ...Option) *Loader {
	l := &Loader{
		probe:    probe,
		registry: reg,
		factory:  adapters.New,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load probes the host and instantiates its adapter. Only the first call does
// any work; later calls return ErrAlreadyLoaded whatever the outcome of the first.
func (l *Loader) Load(ctx context.Context) (*Handle, error) {
	if !l.used.CompareAndSwap(false, true) {
		return nil, ErrAlreadyLoaded
	}

	host, err := l.probe.Probe(ctx)
	if err != nil {
		if errors.Is(err, hostprobe.ErrNotDetected) {
			return nil, ErrHostNotDetected
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("probing host: %w", err)
		}
		return nil, fmt.Errorf("probing host: %w: %w", ErrHostNotDetected, err)
	}
	l.logger.Debug("host detected", "platform", host.Platform, "version", host.Version, "source", host.Source)

	desc, diags, err := l.registry.Match(host.Platform, host.Version)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		l.logger.Warn(d.Message, "code", d.Code)
	}

	a, err := l.factory(desc.Adapter)
	if err != nil {
		return nil, fmt.Errorf("instantiating adapter %s for %s: %w", desc.Adapter, host, err)
	}

	if host.DataVersion != 0 && host.DataVersion != a.DataVersion() {
		d := registry.Diagnostic{
			Severity: registry.SeverityWarning,
			Code:     CodeDataVersionMismatch,
			Message: fmt.Sprintf("host reports data version %d but adapter %s targets %d",
				host.DataVersion, a.ID(), a.DataVersion()),
		}
		l.logger.Warn(d.Message, "code", d.Code)
		diags = append(diags, d)
	}

	l.logger.Info("adapter selected", "adapter", a.ID(), "platform", host.Platform, "version", host.Version, "range", desc.Range)
	return &Handle{adapter: a, descriptor: desc, host: host, diagnostics: diags}, nil
}

// Adapter returns the instantiated adapter.
func (h *Handle) Adapter() adapter.Capabilities { return h.adapter }

// Descriptor returns the descriptor that selected the adapter.
func (h *Handle) Descriptor() registry.Descriptor { return h.descriptor }

// Host returns the probed host.
func (h *Handle) Host() hostprobe.Host { return h.host }

// Diagnostics returns the non-fatal findings collected while loading.
func (h *Handle) Diagnostics() []registry.Diagnostic {
	out := make([]registry.Diagnostic, len(h.diagnostics))
	copy(out, h.diagnostics)
	return out
}

// Close closes the adapter.
func (h *Handle) Close() error { return h.adapter.Close() }
