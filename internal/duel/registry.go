package duel

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Registry is the concurrent home of every live session, from creation until
// eviction.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	clock    clockwork.Clock
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		clock:    clock,
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		log.Debug().Str("session_id", id.String()).Msg("session evicted")
	}
}

// All returns a snapshot of the live sessions.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ScheduleEviction removes the session after the grace period that lets late
// observers fetch the result.
func (r *Registry) ScheduleEviction(id uuid.UUID, after time.Duration) {
	r.clock.AfterFunc(after, func() {
		r.Remove(id)
	})
}
