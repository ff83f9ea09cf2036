package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

// Registry tracks the live session controller per client token. A client
// opening a second space replaces (and tears down) its previous session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*Session)}
}

func (r *Registry) Bind(sid core.SessionID, s *Session) {
	r.mu.Lock()
	prev := r.sessions[sid]
	r.sessions[sid] = s
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

func (r *Registry) Get(sid core.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// Unbind removes and closes the session if it is still the bound one.
func (r *Registry) Unbind(sid core.SessionID, s *Session) {
	r.mu.Lock()
	if r.sessions[sid] == s {
		delete(r.sessions, sid)
	}
	r.mu.Unlock()
	s.Close()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound session")
}

// SessionsForSpace lists tokens currently viewing the given space.
func (r *Registry) SessionsForSpace(id domain.SpaceID) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.sessions))
	for sid, s := range r.sessions {
		if s.deps.SpaceID == id {
			out = append(out, sid)
		}
	}
	return out
}
