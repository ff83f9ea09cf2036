package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

// Telemetry consumes the parameter bag the media engine publishes and
// maps it onto store actions and backend writes.
type Telemetry struct {
	Engine     core.MediaEngine
	Repo       core.SpaceRepository
	Store      *Store
	Moderation *Moderation
	Leave      func(ctx context.Context)

	persistedRoom string
}

// Run consumes engine updates until ctx is canceled.
func (t *Telemetry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-t.Engine.Updates():
			if !ok {
				return
			}
			t.handle(ctx, upd)
		}
	}
}

func (t *Telemetry) handle(ctx context.Context, upd core.EngineUpdate) {
	st := t.Store.Current()
	if st.Space == nil {
		return
	}

	if upd.RoomName != "" {
		t.propagateRoomName(ctx, st, upd.RoomName)
		if !st.Connected {
			t.Store.Apply("telemetry.connected", func(s *State) { s.Connected = true })
		}
	}

	if upd.AudioLevel != st.AudioLevel {
		t.Store.Apply("telemetry.audio_level", func(s *State) { s.AudioLevel = upd.AudioLevel })
	}

	if upd.AudioOn == st.IsMuted {
		t.propagateMute(ctx, st, !upd.AudioOn)
	}

	t.handleAlert(ctx, st, upd.Alert)
}

// propagateRoomName persists a live room name observed from the engine
// while the space still carries the sentinel name. Guarded against
// redundant writes.
func (t *Telemetry) propagateRoomName(ctx context.Context, st State, roomName string) {
	if !st.Space.RoomPending() || roomName == st.Space.RemoteName || roomName == t.persistedRoom {
		return
	}
	name := roomName
	if err := t.Repo.UpdateSpace(ctx, st.Space.ID, core.SpacePatch{RemoteName: &name}); err != nil {
		log.Error().Err(err).Str("module", "app.telemetry").Str("room", roomName).Msg("persist room name failed")
		return
	}
	t.persistedRoom = roomName
	log.Info().Str("module", "app.telemetry").Str("room", roomName).Msg("room name propagated")
}

// propagateMute reconciles the engine's audio state into the persisted
// participant record when it disagrees with the local flag.
func (t *Telemetry) propagateMute(ctx context.Context, st State, muted bool) {
	t.Store.Apply("telemetry.muted", func(s *State) { s.IsMuted = muted })
	if st.Current == nil {
		return
	}

	participants := make([]domain.ParticipantData, len(st.Space.Participants))
	copy(participants, st.Space.Participants)
	for i := range participants {
		if participants[i].ID == st.Current.ID {
			participants[i].Muted = muted
		}
	}
	if err := t.Repo.UpdateSpace(ctx, st.Space.ID, core.SpacePatch{Participants: participants}); err != nil {
		log.Error().Err(err).Str("module", "app.telemetry").Msg("persist mute state failed")
	}
}

func (t *Telemetry) handleAlert(ctx context.Context, st State, alert string) {
	if alert == "" || alert == st.LastAlert {
		return
	}
	// Orientation hints from the engine are noise on this surface.
	if strings.Contains(alert, alertRotate) {
		return
	}

	t.Store.Apply("telemetry.alert", func(s *State) {
		s.LastAlert = alert
		s.Message = alert
	})

	if strings.Contains(alert, alertMeetingEnded) {
		isHost := st.Current != nil && st.Current.ID == st.Space.Host
		if isHost && st.Connected {
			if err := t.Moderation.EndSpace(ctx); err != nil {
				log.Error().Err(err).Str("module", "app.telemetry").Msg("end space on alert failed")
			}
		} else {
			t.Leave(ctx)
		}
	}
}
