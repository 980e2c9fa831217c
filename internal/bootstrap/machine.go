// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrStartupFailed is returned by WaitForReady when startup ended in Failed.
var ErrStartupFailed = errors.New("startup failed")

type (
	// TransitionFunc observes every state change.
	TransitionFunc func(from, to State, err error)

	// Machine holds the startup state. Reads are lock-free; transitions are
	// CAS-checked so a state can only be entered from its predecessor.
	Machine struct {
		state atomic.Int32

		mu      sync.Mutex
		lastErr error
		failed  State

		readyCh chan struct{}
		doneCh  chan struct{}
		done    sync.Once

		onTransition TransitionFunc
	}
)

// NewMachine returns a machine in StateUninitialized.
func NewMachine(onTransition TransitionFunc) *Machine {
	m := &Machine{
		readyCh:      make(chan struct{}),
		doneCh:       make(chan struct{}),
		onTransition: onTransition,
	}
	m.state.Store(int32(StateUninitialized))
	return m
}

// State returns the current state (atomic, lock-free read).
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Err returns the error that caused StateFailed, or nil.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// FailedIn returns the state that was active when startup failed.
func (m *Machine) FailedIn() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

// Advance moves to the next state. to must directly follow the current state.
func (m *Machine) Advance(to State) error {
	if err := to.Validate(); err != nil {
		return err
	}
	from, ok := to.previous()
	if !ok || !m.state.CompareAndSwap(int32(from), int32(to)) {
		return &TransitionError{From: m.State(), To: to}
	}

	m.notify(from, to, nil)
	if to == StateReady {
		close(m.readyCh)
		m.finish()
	}
	return nil
}

// Fail moves to StateFailed from any non-terminal state and records err.
// Failing a terminal machine is a no-op and returns false.
func (m *Machine) Fail(err error) bool {
	for {
		current := m.State()
		if current.IsTerminal() {
			return false
		}
		if !m.state.CompareAndSwap(int32(current), int32(StateFailed)) {
			continue // State changed, retry
		}

		m.mu.Lock()
		m.lastErr = err
		m.failed = current
		m.mu.Unlock()

		m.notify(current, StateFailed, err)
		m.finish()
		return true
	}
}

// WaitForReady blocks until Ready, Failed or ctx is done. It returns nil on
// Ready and an error wrapping ErrStartupFailed and the cause on Failed.
func (m *Machine) WaitForReady(ctx context.Context) error {
	select {
	case <-m.readyCh:
		return nil
	case <-m.doneCh:
		select {
		case <-m.readyCh:
			return nil
		default:
		}
		return fmt.Errorf("%w: %w", ErrStartupFailed, m.Err())
	case <-ctx.Done():
		return fmt.Errorf("waiting for startup: %w", ctx.Err())
	}
}

// Done is closed once a terminal state is reached.
func (m *Machine) Done() <-chan struct{} { return m.doneCh }

func (m *Machine) notify(from, to State, err error) {
	if m.onTransition != nil {
		m.onTransition(from, to, err)
	}
}

func (m *Machine) finish() {
	m.done.Do(func() { close(m.doneCh) })
}
