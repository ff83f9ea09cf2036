package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/core"
)

// Arbiter decides on every state change whether this client must create
// the real-time room, join the existing one, or wait. At most one
// create/join operation is in flight at any time; the guard is released
// on every exit path.
type Arbiter struct {
	Engine core.MediaEngine
	Repo   core.SpaceRepository
	Store  *Store

	inFlight atomic.Bool
}

func (a *Arbiter) Evaluate(ctx context.Context, st State) {
	if st.Space == nil || st.Current == nil || st.Phase.Terminal() {
		return
	}
	if !st.Derived.CanJoinNow || st.RoomVisible {
		return
	}

	isHost := st.Current.ID == st.Space.Host
	switch {
	case st.Space.RoomPending() && isHost:
		a.launch(ctx, st, true)
	case !st.Space.RoomPending():
		a.launch(ctx, st, false)
	default:
		// Non-host sees the sentinel name: nothing to join yet.
		if st.Message != msgNoRoomYet {
			a.Store.Apply("arbiter.waiting", func(s *State) { s.Message = msgNoRoomYet })
		}
	}
}

func (a *Arbiter) launch(ctx context.Context, st State, create bool) {
	if !a.inFlight.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer a.inFlight.Store(false)
		if create {
			a.createRoom(ctx, st)
		} else {
			a.joinRoom(ctx, st)
		}
	}()
}

func (a *Arbiter) createRoom(ctx context.Context, st State) {
	cfg := core.RoomConfig{
		Name:     string(st.Current.ID),
		Duration: time.Duration(st.Space.Duration) * time.Millisecond,
		Capacity: st.Space.Capacity,
	}
	roomID, err := a.Engine.CreateRoom(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.arbiter").Str("space", string(st.Space.ID)).Msg("create room failed")
		return
	}
	a.Store.Apply("arbiter.room_created", func(s *State) { s.RoomVisible = true })

	// Persist the live room name unless it already matches.
	if roomID != "" && roomID != st.Space.RemoteName {
		name := roomID
		if err := a.Repo.UpdateSpace(ctx, st.Space.ID, core.SpacePatch{RemoteName: &name}); err != nil {
			log.Error().Err(err).Str("module", "app.arbiter").Str("room", roomID).Msg("persist room name failed")
		}
	}
}

func (a *Arbiter) joinRoom(ctx context.Context, st State) {
	cfg := core.RoomConfig{
		Name:   string(st.Current.ID),
		RoomID: st.Space.RemoteName,
	}
	if err := a.Engine.JoinRoom(ctx, cfg); err != nil {
		log.Error().Err(err).Str("module", "app.arbiter").Str("room", st.Space.RemoteName).Msg("join room failed")
		return
	}
	a.Store.Apply("arbiter.room_joined", func(s *State) { s.RoomVisible = true })
}
