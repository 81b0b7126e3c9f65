// Package session manages recording sessions: lifecycle, transcript
// assembly wiring, and fan-out to presentation feed clients.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a recording session.
type State int

const (
	// StateIdle - No recognition channel is open. Audio is rejected.
	StateIdle State = iota
	// StateActive - A recognition channel is open and accepting audio.
	StateActive
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrAlreadyActive = errors.New("session is already active")
	ErrNotActive     = errors.New("session is not active")
)

// Lifecycle manages the state machine for a single session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → ACTIVE → IDLE → ACTIVE → ...
//
// Rules:
//   - IDLE: Activate() succeeds; audio and transcript events are rejected
//   - ACTIVE: Activate() fails; Deactivate() returns to IDLE
//   - Deactivate is idempotent: error, vendor session end, and an
//     explicit stop may all race to call it
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a new session lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsActive returns true if the session is accepting audio.
func (l *Lifecycle) IsActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateActive
}

// Activate transitions IDLE → ACTIVE.
// Returns ErrAlreadyActive if the session is already active.
func (l *Lifecycle) Activate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateActive {
		return ErrAlreadyActive
	}
	l.state = StateActive
	return nil
}

// Deactivate transitions ACTIVE → IDLE.
// Returns true if the session was active, false if it already was idle.
// Idempotent.
func (l *Lifecycle) Deactivate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateIdle {
		return false
	}
	l.state = StateIdle
	return true
}
