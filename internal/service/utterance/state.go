// Package utterance tracks the transcript loop's lifecycle and the
// produced/played utterance counters shared with the playback pipeline.
package utterance

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of the transcript loop.
type State int

const (
	// StateAwaiting - waiting for recognition results. Interim and final
	// results are accepted.
	StateAwaiting State = iota
	// StateTerminating - an exit command was heard. Terminal.
	StateTerminating
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "AWAITING_RESULT"
	case StateTerminating:
		return "TERMINATING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if no further results are processed.
func (s State) IsTerminal() bool {
	return s == StateTerminating
}

// Errors for invalid transitions.
var (
	ErrTerminating = errors.New("transcript loop is terminating")
)

// Lifecycle manages the transcript loop state machine.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	AWAITING_RESULT ──(interim)──→ AWAITING_RESULT
//	AWAITING_RESULT ──(final)────→ AWAITING_RESULT
//	AWAITING_RESULT ──(exit)─────→ TERMINATING
type Lifecycle struct {
	mu     sync.RWMutex
	state  State
	finals int
}

// NewLifecycle creates a lifecycle in AWAITING_RESULT state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateAwaiting}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Finals returns the number of final results accepted.
func (l *Lifecycle) Finals() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.finals
}

// AcceptInterim validates an interim result.
func (l *Lifecycle) AcceptInterim() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state.IsTerminal() {
		return ErrTerminating
	}
	return nil
}

// AcceptFinal validates and records a final result.
func (l *Lifecycle) AcceptFinal() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return ErrTerminating
	}
	l.finals++
	return nil
}

// Terminate transitions to TERMINATING. Returns false if already there.
func (l *Lifecycle) Terminate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateTerminating
	return true
}
