package call

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"ai-call-relay-service/internal/observability/logging"
)

// ErrDuplicateCall is returned when a call SID is already registered.
var ErrDuplicateCall = errors.New("call already registered")

// Registry is the process-wide map from call SID to live session. It is the
// single source of truth for "is this call active"; removal happens only
// through finalization.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      logging.WithComponent("registry"),
	}
}

// Register inserts a session under its call SID.
// Returns ErrDuplicateCall if the SID is already present.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	callSid := s.CallSid()
	if _, exists := r.sessions[callSid]; exists {
		return ErrDuplicateCall
	}
	r.sessions[callSid] = s
	return nil
}

// Get returns the session for the call SID, or nil if not registered.
func (r *Registry) Get(callSid string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[callSid]
}

// Remove deletes the session for the call SID.
// Returns true if an entry was removed.
func (r *Registry) Remove(callSid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[callSid]; !exists {
		return false
	}
	delete(r.sessions, callSid)
	return true
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// FinalizeAll finalizes every live session. Called on process shutdown so
// in-flight calls persist their outcome before exit.
func (r *Registry) FinalizeAll(ctx context.Context) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	if len(sessions) == 0 {
		return
	}
	r.log.Info().Int("sessions", len(sessions)).Msg("Finalizing all live sessions")

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Finalize(ctx, "shutdown")
		}(s)
	}
	wg.Wait()
}
