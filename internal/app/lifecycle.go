package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

// phaseFor is the selector re-evaluated after every store mutation.
// Ended and banned are latched: once reached they stick for the session.
func phaseFor(s *State) {
	switch {
	case s.Banned:
		s.Phase = PhaseBanned
	case s.Phase == PhaseEnded || s.Derived.Ended:
		s.Phase = PhaseEnded
	case s.Space == nil || s.Loading:
		s.Phase = PhaseLoading
	case s.RoomVisible:
		s.Phase = PhaseInRoom
	case s.Derived.CanJoinNow:
		s.Phase = PhaseJoinable
	default:
		s.Phase = PhaseScheduled
	}
}

// Lifecycle applies the cross-cutting terminal transitions: expiry,
// backend-recorded end, and bans.
type Lifecycle struct {
	Repo   core.SpaceRepository
	Engine core.MediaEngine
	Store  *Store
	Nav    core.Navigator
	Clock  core.Clock

	NavDelay time.Duration
}

// HandleSnapshot runs after every accepted poll snapshot.
func (l *Lifecycle) HandleSnapshot(ctx context.Context, space *domain.Space, uid domain.UserID) {
	st := l.Store.Current()
	derived := domain.Derive(space, l.Clock())

	if space.Duration != 0 {
		switch {
		case derived.Remaining < 0 && !st.Phase.Terminal():
			l.expire(ctx, space)
		case derived.Remaining < domain.EndWarning && !st.WarnedEnding && !st.Phase.Terminal():
			l.Store.Apply("lifecycle.ending_soon", func(s *State) {
				s.Message = msgEndingSoon
				s.WarnedEnding = true
			})
		}
	}

	if space.EndedAt != 0 && st.Phase != PhaseEnded {
		l.Store.Apply("lifecycle.ended", func(s *State) {
			s.Phase = PhaseEnded
			s.Message = msgSpaceEnded
		})
		time.AfterFunc(l.NavDelay, l.Nav.Home)
	}

	if space.IsBanned(uid) && !st.Banned {
		l.banned(ctx, space, uid)
	}
}

// expire fires when computed remaining time goes negative before the
// backend has recorded the end.
func (l *Lifecycle) expire(ctx context.Context, space *domain.Space) {
	l.Store.Apply("lifecycle.expired", func(s *State) {
		s.Phase = PhaseEnded
		s.Message = msgSpaceEnded
	})
	if err := l.Repo.EndSpace(ctx, space.ID); err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Str("space", string(space.ID)).Msg("end expired space failed")
	}
	time.AfterFunc(l.NavDelay, l.Nav.Home)
}

func (l *Lifecycle) banned(ctx context.Context, space *domain.Space, uid domain.UserID) {
	log.Info().Str("module", "app.lifecycle").Str("space", string(space.ID)).Str("user", string(uid)).Msg("user banned")
	l.Store.Apply("lifecycle.banned", func(s *State) {
		s.Banned = true
		s.Message = msgBanned
	})
	if err := l.Repo.LeaveSpace(ctx, space.ID, uid); err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Msg("leave after ban failed")
	}
	if err := l.Engine.DisconnectSelf(ctx); err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Msg("disconnect after ban failed")
	}
	time.AfterFunc(l.NavDelay, l.Nav.Home)
}
