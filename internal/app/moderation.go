package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

// Moderation bridges host intents to the media engine and the backend.
// The two calls are deliberately not transactional: a failure on either
// side is logged and the next poll cycle reconciles the final state.
type Moderation struct {
	Engine  core.MediaEngine
	Repo    core.SpaceRepository
	Store   *Store
	Nav     core.Navigator
	Refresh func(ctx context.Context)

	// NavDelay postpones navigation after ending a space so the engine
	// teardown can settle first.
	NavDelay time.Duration
}

func (m *Moderation) guard(st State, target domain.UserID) (domain.ParticipantData, error) {
	if st.Space == nil || st.Current == nil {
		return domain.ParticipantData{}, core.ErrNoIdentity
	}
	if st.Current.ID != st.Space.Host {
		return domain.ParticipantData{}, core.ErrNotHost
	}
	p, ok := st.Space.Participant(target)
	if !ok {
		return domain.ParticipantData{}, core.ErrNoParticipant
	}
	return p, nil
}

// Mute restricts the target's audio on the engine and persists the muted
// flag on the backend.
func (m *Moderation) Mute(ctx context.Context, target domain.UserID) error {
	st := m.Store.Current()
	if st.Phase.Terminal() {
		return nil
	}
	p, err := m.guard(st, target)
	if err != nil {
		return err
	}
	if err := m.Engine.RestrictParticipantMedia(ctx, p.DisplayName, core.MediaAudio); err != nil {
		log.Error().Err(err).Str("module", "app.moderation").Str("target", string(target)).Msg("restrict media failed")
	}
	if err := m.Repo.MuteParticipant(ctx, st.Space.ID, target, true); err != nil {
		log.Error().Err(err).Str("module", "app.moderation").Str("target", string(target)).Msg("persist mute failed")
	}
	m.Refresh(ctx)
	return nil
}

// Remove force-disconnects the target from the room and bans them on
// the backend.
func (m *Moderation) Remove(ctx context.Context, target domain.UserID) error {
	st := m.Store.Current()
	if st.Phase.Terminal() {
		return nil
	}
	p, err := m.guard(st, target)
	if err != nil {
		return err
	}
	if err := m.Engine.ForceDisconnectParticipant(ctx, p.DisplayName); err != nil {
		log.Error().Err(err).Str("module", "app.moderation").Str("target", string(target)).Msg("force disconnect failed")
	}
	if err := m.Repo.BanParticipant(ctx, st.Space.ID, target); err != nil {
		log.Error().Err(err).Str("module", "app.moderation").Str("target", string(target)).Msg("persist ban failed")
	}
	m.Refresh(ctx)
	return nil
}

// EndSpace ends the space on the backend, tears the room down and
// navigates away after NavDelay.
func (m *Moderation) EndSpace(ctx context.Context) error {
	st := m.Store.Current()
	if st.Phase.Terminal() {
		return nil
	}
	if st.Space == nil || st.Current == nil {
		return core.ErrNoIdentity
	}
	if st.Current.ID != st.Space.Host {
		return core.ErrNotHost
	}
	if err := m.Repo.EndSpace(ctx, st.Space.ID); err != nil {
		log.Error().Err(err).Str("module", "app.moderation").Str("space", string(st.Space.ID)).Msg("end space failed")
	}
	if err := m.Engine.DisconnectSelf(ctx); err != nil {
		log.Error().Err(err).Str("module", "app.moderation").Msg("disconnect failed")
	}
	m.Store.Apply("moderation.ended", func(s *State) {
		s.Phase = PhaseEnded
		s.Message = msgSpaceEnded
	})
	time.AfterFunc(m.NavDelay, m.Nav.Home)
	return nil
}
