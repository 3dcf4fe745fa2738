// Package call hosts the per-call session: the state machine that ties one
// telephony stream to one conversation channel, the registry of live calls,
// and post-call analysis.
package call

import (
	"fmt"
	"sync"
)

// State represents the lifecycle state of a call session.
type State int

const (
	// StateInitializing - Session is connecting the AI leg; no audio relayed yet.
	StateInitializing State = iota
	// StateActive - Both legs are up, audio flows in both directions.
	StateActive
	// StateFinalizing - Teardown has begun; outcome is being computed and persisted.
	StateFinalizing
	// StateClosed - Session is fully torn down. Terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateActive:
		return "ACTIVE"
	case StateFinalizing:
		return "FINALIZING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// Lifecycle manages the state machine for a single call session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	INITIALIZING → ACTIVE → FINALIZING → CLOSED
//	      │                     ▲
//	      └── BeginFinalize() ──┘ (setup failure skips ACTIVE)
//
// Rules:
//   - INITIALIZING: No audio is relayed; frames arriving now are dropped.
//   - ACTIVE: Audio relays in both directions.
//   - FINALIZING: Entered exactly once, no matter how many teardown paths race.
//   - CLOSED: All operations are no-ops.
type Lifecycle struct {
	mu      sync.RWMutex
	callSid string
	state   State
}

// NewLifecycle creates a call lifecycle in INITIALIZING state.
func NewLifecycle(callSid string) *Lifecycle {
	return &Lifecycle{callSid: callSid, state: StateInitializing}
}

// CallSid returns the call identifier.
func (l *Lifecycle) CallSid() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.callSid
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsActive returns true if audio may be relayed.
func (l *Lifecycle) IsActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateActive
}

// IsClosed returns true if the session is fully torn down.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Activate transitions INITIALIZING → ACTIVE.
// Returns false if the session left INITIALIZING already.
func (l *Lifecycle) Activate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateInitializing {
		return false
	}
	l.state = StateActive
	return true
}

// BeginFinalize transitions to FINALIZING from any non-terminal, non-finalizing
// state. Returns true exactly once per session; every teardown path funnels
// through this so finalization work runs a single time.
func (l *Lifecycle) BeginFinalize() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateFinalizing || l.state.IsTerminal() {
		return false
	}
	l.state = StateFinalizing
	return true
}

// Close transitions the session to CLOSED state. Idempotent.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}
