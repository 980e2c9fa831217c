// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"errors"
	"fmt"
)

const (
	// StateUninitialized is the state before Run is called.
	StateUninitialized State = iota
	// StateProbingHost indicates the loader is detecting the host and matching an adapter.
	StateProbingHost
	// StateAdapterResolved indicates the adapter handle has been published.
	StateAdapterResolved
	// StateManifestLoaded indicates the embedded manifest has been parsed.
	StateManifestLoaded
	// StateProvisioning indicates missing dependencies are being fetched.
	StateProvisioning
	// StateReady is terminal: every required dependency is attached.
	StateReady
	// StateFailed is terminal: startup aborted.
	StateFailed
)

var (
	// ErrInvalidState is returned when a State value is not one of the defined states.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidTransition is returned when a transition skips or repeats a state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

type (
	// State is a startup lifecycle state.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	InvalidStateError struct {
		Value State
	}

	// TransitionError reports a rejected transition.
	TransitionError struct {
		From State
		To   State
	}
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateProbingHost:
		return "probing-host"
	case StateAdapterResolved:
		return "adapter-resolved"
	case StateManifestLoaded:
		return "manifest-loaded"
	case StateProvisioning:
		return "provisioning"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d", e.Value)
}

// Unwrap returns ErrInvalidState for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// Unwrap returns ErrInvalidTransition for errors.Is() compatibility.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Validate returns nil if the State is one of the defined states.
func (s State) Validate() error {
	if s < StateUninitialized || s > StateFailed {
		return &InvalidStateError{Value: s}
	}
	return nil
}

// IsTerminal reports whether s is Ready or Failed.
func (s State) IsTerminal() bool {
	return s == StateReady || s == StateFailed
}

// previous returns the only state allowed to transition into s.
func (s State) previous() (State, bool) {
	if s <= StateUninitialized || s > StateReady {
		return 0, false
	}
	return s - 1, true
}
