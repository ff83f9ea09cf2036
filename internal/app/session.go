package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

const (
	DefaultPollPeriod = time.Second
	defaultNavDelay   = 500 * time.Millisecond
)

// SessionDeps are the collaborators a session controller is built from.
type SessionDeps struct {
	Repo     core.SpaceRepository
	Engine   core.MediaEngine
	Identity core.Identity
	Nav      core.Navigator
	Clock    core.Clock

	SpaceID    domain.SpaceID
	PollPeriod time.Duration
	NavDelay   time.Duration
}

// Session is the controller for one client viewing one space. It owns the
// store and the goroutines feeding it; Close tears everything down.
type Session struct {
	deps SessionDeps
	user core.UserInfo

	store      *Store
	poller     *Poller
	arbiter    *Arbiter
	moderation *Moderation
	telemetry  *Telemetry
	lifecycle  *Lifecycle

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(deps SessionDeps) *Session {
	if deps.PollPeriod <= 0 {
		deps.PollPeriod = DefaultPollPeriod
	}
	if deps.NavDelay <= 0 {
		deps.NavDelay = defaultNavDelay
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	s := &Session{deps: deps, store: NewStore()}
	s.store.SetDerive(phaseFor)

	s.poller = &Poller{
		Repo:      deps.Repo,
		SpaceID:   deps.SpaceID,
		Period:    deps.PollPeriod,
		OnFetch:   s.onFetch,
		OnMissing: deps.Nav.Home,
		OnError:   s.onFetchError,
	}
	s.arbiter = &Arbiter{Engine: deps.Engine, Repo: deps.Repo, Store: s.store}
	s.moderation = &Moderation{
		Engine:   deps.Engine,
		Repo:     deps.Repo,
		Store:    s.store,
		Nav:      deps.Nav,
		Refresh:  s.poller.RefreshNow,
		NavDelay: deps.NavDelay,
	}
	s.lifecycle = &Lifecycle{
		Repo:     deps.Repo,
		Engine:   deps.Engine,
		Store:    s.store,
		Nav:      deps.Nav,
		Clock:    deps.Clock,
		NavDelay: deps.NavDelay,
	}
	s.telemetry = &Telemetry{
		Engine:     deps.Engine,
		Repo:       deps.Repo,
		Store:      s.store,
		Moderation: s.moderation,
		Leave:      s.HandleLeave,
	}

	s.store.OnChange(s.react)
	return s
}

func (s *Session) Store() *Store           { return s.store }
func (s *Session) Moderation() *Moderation { return s.moderation }
func (s *Session) User() core.UserInfo     { return s.user }
func (s *Session) SpaceID() domain.SpaceID { return s.deps.SpaceID }

// Start resolves identity and launches the poller and telemetry router.
// Missing identity redirects to the welcome flow instead of crashing.
func (s *Session) Start(ctx context.Context) error {
	user, ok := s.deps.Identity.CurrentUser()
	if !ok {
		s.deps.Nav.Welcome()
		return core.ErrNoIdentity
	}
	s.user = user

	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.poller.Run(s.ctx)
	go s.telemetry.Run(s.ctx)
	log.Info().Str("module", "app.session").Str("space", string(s.deps.SpaceID)).Str("user", string(user.ID)).Msg("session started")
	return nil
}

// Close cancels the schedules and closes the store, turning any in-flight
// completions into no-ops.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.store.Close()
	s.deps.Engine.Close()
	log.Info().Str("module", "app.session").Str("space", string(s.deps.SpaceID)).Msg("session closed")
}

// react runs after every store mutation.
func (s *Session) react(st State) {
	s.arbiter.Evaluate(s.ctx, st)
}

func (s *Session) onFetch(ctx context.Context, space *domain.Space, changed bool) {
	now := s.deps.Clock()
	if changed {
		var current *domain.ParticipantData
		if p, ok := space.Participant(s.user.ID); ok {
			cp := p
			current = &cp
		}
		s.store.Apply("poller.snapshot", func(st *State) {
			st.Space = space
			st.Current = current
			st.Loading = false
			st.CanSpeak = domain.CanSpeak(space, current)
			st.Derived = domain.Derive(space, now)
		})
	} else {
		s.store.Apply("poller.derived", func(st *State) {
			st.Derived = domain.Derive(space, now)
		})
	}
	s.lifecycle.HandleSnapshot(ctx, space, s.user.ID)
}

func (s *Session) onFetchError(err error) {
	s.say(msgLoadFailed)
}

func (s *Session) say(msg string) {
	s.store.Apply("session.message", func(st *State) { st.Message = msg })
}

// HandleJoin joins the space, or files a join request when the space is
// ask-to-join and the user is neither host nor pre-approved.
func (s *Session) HandleJoin(ctx context.Context) {
	st := s.store.Current()
	if st.Space == nil || st.Phase.Terminal() {
		return
	}
	space := st.Space
	participant := domain.ParticipantData{
		ID:          s.user.ID,
		DisplayName: s.user.DisplayName,
		Role:        domain.RoleListener,
	}

	needsApproval := space.AskToJoin && space.Host != s.user.ID && !space.JoinApproved(s.user.ID)
	if needsApproval {
		if space.JoinPending(s.user.ID) {
			s.say(msgJoinPending)
			return
		}
		if space.JoinRejected(s.user.ID) {
			s.say(msgJoinRejected)
			return
		}
	}

	if err := s.deps.Repo.JoinSpace(ctx, space.ID, participant, !space.AskToSpeak); err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("space", string(space.ID)).Msg("join failed")
		return
	}
	if needsApproval {
		s.say(msgJoinSent)
	}
	s.poller.RefreshNow(ctx)
}

// HandleLeave disconnects from the room, leaves the space and navigates
// home.
func (s *Session) HandleLeave(ctx context.Context) {
	st := s.store.Current()
	if st.Space == nil {
		return
	}
	if err := s.deps.Engine.DisconnectSelf(ctx); err != nil {
		log.Error().Err(err).Str("module", "app.session").Msg("disconnect on leave failed")
	}
	if err := s.deps.Repo.LeaveSpace(ctx, st.Space.ID, s.user.ID); err != nil {
		log.Error().Err(err).Str("module", "app.session").Msg("leave failed")
	}
	s.deps.Nav.Home()
}

// HandleToggleMic toggles local audio for eligible speakers.
func (s *Session) HandleToggleMic(ctx context.Context) {
	st := s.store.Current()
	if st.Space == nil || st.Phase.Terminal() {
		return
	}
	if !domain.CanSpeak(st.Space, st.Current) {
		s.say(msgNoMicPermission)
		return
	}
	if err := s.deps.Engine.ToggleLocalAudio(ctx); err != nil {
		log.Error().Err(err).Str("module", "app.session").Msg("toggle audio failed")
	}
}

// HandleRequestToSpeak files a speak request unless one is already
// pending or was rejected.
func (s *Session) HandleRequestToSpeak(ctx context.Context) {
	st := s.store.Current()
	if st.Space == nil || st.Phase.Terminal() {
		return
	}
	space := st.Space
	if space.SpeakRejected(s.user.ID) {
		s.say(msgSpeakRejected)
		return
	}
	if space.SpeakPending(s.user.ID) {
		s.say(msgSpeakPending)
		return
	}
	if err := s.deps.Repo.RequestToSpeak(ctx, space.ID, s.user.ID); err != nil {
		log.Error().Err(err).Str("module", "app.session").Msg("request to speak failed")
		s.say(msgSpeakFailed)
		return
	}
	s.say(msgSpeakSent)
	s.poller.RefreshNow(ctx)
}

func (s *Session) HandleApproveJoin(ctx context.Context, userID domain.UserID) {
	st := s.store.Current()
	if st.Space == nil {
		return
	}
	if err := s.deps.Repo.ApproveJoinRequest(ctx, st.Space.ID, userID); err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("user", string(userID)).Msg("approve join failed")
		return
	}
	s.poller.RefreshNow(ctx)
}

func (s *Session) HandleRejectJoin(ctx context.Context, userID domain.UserID) {
	st := s.store.Current()
	if st.Space == nil {
		return
	}
	if err := s.deps.Repo.RejectJoinRequest(ctx, st.Space.ID, userID); err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("user", string(userID)).Msg("reject join failed")
		return
	}
	s.poller.RefreshNow(ctx)
}

func (s *Session) HandleApproveSpeak(ctx context.Context, userID domain.UserID) {
	st := s.store.Current()
	if st.Space == nil {
		return
	}
	if err := s.deps.Repo.ApproveRequest(ctx, st.Space.ID, userID, true); err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("user", string(userID)).Msg("approve speak failed")
		return
	}
	s.poller.RefreshNow(ctx)
}

func (s *Session) HandleRejectSpeak(ctx context.Context, userID domain.UserID) {
	st := s.store.Current()
	if st.Space == nil {
		return
	}
	if err := s.deps.Repo.RejectRequest(ctx, st.Space.ID, userID); err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("user", string(userID)).Msg("reject speak failed")
		return
	}
	s.poller.RefreshNow(ctx)
}
