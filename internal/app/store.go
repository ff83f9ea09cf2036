package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/domain"
)

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseScheduled Phase = "scheduled"
	PhaseJoinable  Phase = "joinable"
	PhaseInRoom    Phase = "in-room"
	PhaseEnded     Phase = "ended"
	PhaseBanned    Phase = "banned"
)

// Terminal phases suppress arbitration and moderation for the rest of
// the session.
func (p Phase) Terminal() bool {
	return p == PhaseEnded || p == PhaseBanned
}

// State is the authoritative in-process snapshot observed by every
// component. Space and Current are immutable once published.
type State struct {
	Space   *domain.Space
	Current *domain.ParticipantData
	Derived domain.DerivedState
	Phase   Phase

	CanSpeak    bool
	RoomVisible bool
	Connected   bool
	IsMuted     bool
	AudioLevel  float64
	Banned      bool
	Loading     bool

	Message      string
	LastAlert    string
	WarnedEnding bool
}

type Observer func(State)

// Store serializes every state transition through Apply. Writers are the
// poller, the telemetry router and the arbiter; everything else reads.
type Store struct {
	mu        sync.Mutex
	state     State
	derive    func(*State)
	observers []Observer
	closed    bool
}

func NewStore() *Store {
	return &Store{
		state: State{Phase: PhaseLoading, Loading: true, IsMuted: true},
	}
}

// SetDerive installs a selector re-evaluated after every mutation,
// before observers run.
func (s *Store) SetDerive(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.derive = fn
}

func (s *Store) OnChange(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Current returns the latest snapshot.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply merges a mutation under the store lock and notifies observers
// with the resulting snapshot. Apply on a closed store is a no-op, which
// turns in-flight completions after teardown into no-ops as well.
func (s *Store) Apply(action string, mutate func(*State)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	mutate(&s.state)
	if s.derive != nil {
		s.derive(&s.state)
	}
	snapshot := s.state
	observers := s.observers
	s.mu.Unlock()

	log.Debug().Str("module", "app.store").Str("action", action).Str("phase", string(snapshot.Phase)).Msg("applied")
	for _, fn := range observers {
		fn(snapshot)
	}
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
