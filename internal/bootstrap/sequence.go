// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/bending/bendboot/internal/isolation"
	"github.com/bending/bendboot/internal/loader"
	"github.com/bending/bendboot/internal/provision"
	"github.com/bending/bendboot/internal/resolver"
	"github.com/bending/bendboot/pkg/manifest"
)

// EmbeddedManifestName is the resource name of the embedded manifest.
const EmbeddedManifestName = "dependencies.cue"

// ErrForeignManifest is wrapped when the manifest names a different plugin.
var ErrForeignManifest = errors.New("manifest belongs to another plugin")

//go:embed dependencies.cue
var embeddedManifest []byte

type (
	// Dependencies are the collaborators a Sequence drives.
	Dependencies struct {
		Loader      *loader.Loader
		Provisioner *provision.Provisioner
		// Manifest is the raw manifest resource; defaults to the embedded one.
		Manifest     []byte
		ManifestName string
		// Libraries returns what the host has already loaded. Defaults to nothing.
		Libraries func() (resolver.Snapshot, error)
		Logger    *log.Logger
		// OnTransition observes every state change, after the built-in logging.
		OnTransition TransitionFunc
	}

	// Sequence runs startup exactly once.
	Sequence struct {
		deps    Dependencies
		machine *Machine
	}

	// Runtime is what gameplay subsystems receive once startup is Ready.
	Runtime struct {
		Handle    *loader.Handle
		Boundary  *isolation.Boundary
		Manifest  *manifest.Manifest
		Partition resolver.Partition
		Report    provision.Report
	}

	// StartupError is returned by Run when startup ends in StateFailed.
	StartupError struct {
		State State
		Kind  FailureKind
		Err   error
	}
)

// Error implements the error interface.
func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed while %s: %v", e.State, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StartupError) Unwrap() error { return e.Err }

// EmbeddedManifest returns a copy of the manifest resource compiled into the binary.
func EmbeddedManifest() []byte {
	out := make([]byte, len(embeddedManifest))
	copy(out, embeddedManifest)
	return out
}

// LoadManifest parses a manifest resource, falling back to the embedded one
// when data is nil.
func LoadManifest(data []byte, name string) (*manifest.Manifest, error) {
	if data == nil {
		data, name = embeddedManifest, EmbeddedManifestName
	}
	return manifest.Parse(data, name)
}

// NewSequence prepares a startup sequence.
func NewSequence(deps Dependencies) *Sequence {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	s := &Sequence{deps: deps}
	s.machine = NewMachine(s.transitioned)
	return s
}

// State returns the current startup state.
func (s *Sequence) State() State { return s.machine.State() }

// Err returns the failure cause once Failed.
func (s *Sequence) Err() error { return s.machine.Err() }

// WaitForReady blocks until startup reaches a terminal state or ctx is done.
func (s *Sequence) WaitForReady(ctx context.Context) error { return s.machine.WaitForReady(ctx) }

// Run drives startup to Ready and returns the Runtime. On any failure the
// machine moves to Failed, everything acquired so far is released and a
// *StartupError is returned. Run may be called only once.
func (s *Sequence) Run(ctx context.Context) (*Runtime, error) {
	if err := s.machine.Advance(StateProbingHost); err != nil {
		return nil, err
	}

	handle, err := s.deps.Loader.Load(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.machine.Advance(StateAdapterResolved); err != nil {
		return nil, s.abort(err, handle, nil)
	}

	m, err := LoadManifest(s.deps.Manifest, s.deps.ManifestName)
	if err == nil {
		err = checkOwner(m, s.deps.ManifestName, s.deps.Provisioner.Namespace())
	}
	if err != nil {
		return nil, s.abort(err, handle, nil)
	}
	if err := s.machine.Advance(StateManifestLoaded); err != nil {
		return nil, s.abort(err, handle, nil)
	}

	snapshot := resolver.SnapshotOf()
	if s.deps.Libraries != nil {
		if snapshot, err = s.deps.Libraries(); err != nil {
			return nil, s.abort(fmt.Errorf("reading host libraries: %w", err), handle, nil)
		}
	}
	partition := resolver.Resolve(m, snapshot)
	s.deps.Logger.Debug("dependencies resolved", "satisfied", len(partition.Satisfied), "missing", len(partition.Missing))

	if err := s.machine.Advance(StateProvisioning); err != nil {
		return nil, s.abort(err, handle, nil)
	}
	boundary, report, err := s.deps.Provisioner.Provision(ctx, partition.Missing)
	if err != nil {
		return nil, s.abort(err, handle, nil)
	}
	for _, o := range report.Skipped {
		s.deps.Logger.Warn("optional dependency unavailable", "coordinate", o.Entry.Coordinate, "err", o.Err)
	}

	if err := ctx.Err(); err != nil {
		return nil, s.abort(fmt.Errorf("startup interrupted: %w", err), handle, boundary)
	}
	if err := s.machine.Advance(StateReady); err != nil {
		return nil, s.abort(err, handle, boundary)
	}

	return &Runtime{
		Handle:    handle,
		Boundary:  boundary,
		Manifest:  m,
		Partition: partition,
		Report:    report,
	}, nil
}

// checkOwner rejects a manifest generated for another plugin. Manifests that do
// not name a plugin are accepted.
func checkOwner(m *manifest.Manifest, name, namespace string) error {
	if m.Plugin() == "" || m.Plugin() == namespace {
		return nil
	}
	if name == "" {
		name = EmbeddedManifestName
	}
	return &manifest.ParseError{
		Source: name,
		Reason: fmt.Errorf("%w: manifest belongs to %q, boundary namespace is %q", ErrForeignManifest, m.Plugin(), namespace),
	}
}

func (s *Sequence) abort(err error, handle *loader.Handle, boundary *isolation.Boundary) error {
	if boundary != nil {
		_ = boundary.Close()
	}
	if handle != nil {
		if closeErr := handle.Close(); closeErr != nil {
			s.deps.Logger.Debug("closing adapter after failure", "err", closeErr)
		}
	}
	return s.fail(err)
}

func (s *Sequence) fail(err error) error {
	state := s.machine.State()
	s.machine.Fail(err)
	return &StartupError{State: state, Kind: Classify(err), Err: err}
}

func (s *Sequence) transitioned(from, to State, err error) {
	if to == StateFailed {
		s.deps.Logger.Error("startup failed", "state", from, "kind", Classify(err), "err", err)
	} else {
		s.deps.Logger.Debug("startup state", "from", from, "to", to)
	}
	if s.deps.OnTransition != nil {
		s.deps.OnTransition(from, to, err)
	}
}

// Close releases the boundary, then the adapter.
func (r *Runtime) Close() error {
	return errors.Join(r.Boundary.Close(), r.Handle.Close())
}
