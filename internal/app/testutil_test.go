package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

type fakeRepo struct {
	mu sync.Mutex

	space     *domain.Space
	fetchErr  error
	fetchGate chan struct{} // when set, Fetch blocks until it closes

	fetchCount   int
	patches      []core.SpacePatch
	updateErr    error
	mutes        []domain.UserID
	bans         []domain.UserID
	leaves       []domain.UserID
	joins        int
	speakReqs    []domain.UserID
	approveJoins []domain.UserID
	rejectJoins  []domain.UserID
	approves     []domain.UserID
	rejects      []domain.UserID
	ends         int
	endErr       error
}

func (f *fakeRepo) FetchSpaceByID(ctx context.Context, id domain.SpaceID) (*domain.Space, error) {
	f.mu.Lock()
	f.fetchCount++
	gate := f.fetchGate
	space, err := f.space, f.fetchErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	if err != nil {
		return nil, err
	}
	return space, nil
}

func (f *fakeRepo) UpdateSpace(ctx context.Context, id domain.SpaceID, patch core.SpacePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return f.updateErr
}

func (f *fakeRepo) JoinSpace(ctx context.Context, id domain.SpaceID, p domain.ParticipantData, autoApprove bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins++
	return nil
}

func (f *fakeRepo) LeaveSpace(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, userID)
	return nil
}

func (f *fakeRepo) MuteParticipant(ctx context.Context, id domain.SpaceID, target domain.UserID, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutes = append(f.mutes, target)
	return nil
}

func (f *fakeRepo) BanParticipant(ctx context.Context, id domain.SpaceID, target domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bans = append(f.bans, target)
	return nil
}

func (f *fakeRepo) RequestToSpeak(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speakReqs = append(f.speakReqs, userID)
	return nil
}

func (f *fakeRepo) ApproveJoinRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approveJoins = append(f.approveJoins, userID)
	return nil
}

func (f *fakeRepo) RejectJoinRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectJoins = append(f.rejectJoins, userID)
	return nil
}

func (f *fakeRepo) ApproveRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID, forSpeaking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approves = append(f.approves, userID)
	return nil
}

func (f *fakeRepo) RejectRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects = append(f.rejects, userID)
	return nil
}

func (f *fakeRepo) EndSpace(ctx context.Context, id domain.SpaceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	return f.endErr
}

func (f *fakeRepo) endCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ends
}

func (f *fakeRepo) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

type fakeEngine struct {
	mu sync.Mutex

	createRoom string
	createErr  error
	createGate chan struct{} // when set, CreateRoom blocks until it closes
	joinErr    error

	restrictErr error

	creates          int
	joins            int
	toggles          int
	restricted       []string
	forceDisconnects []string
	disconnects      int

	updates chan core.EngineUpdate
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		createRoom: "live_room_1",
		updates:    make(chan core.EngineUpdate, 16),
	}
}

func (f *fakeEngine) CreateRoom(ctx context.Context, cfg core.RoomConfig) (string, error) {
	f.mu.Lock()
	f.creates++
	gate := f.createGate
	room, err := f.createRoom, f.createErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return room, err
}

func (f *fakeEngine) JoinRoom(ctx context.Context, cfg core.RoomConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins++
	return f.joinErr
}

func (f *fakeEngine) ToggleLocalAudio(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return nil
}

func (f *fakeEngine) RestrictParticipantMedia(ctx context.Context, displayName string, kind core.MediaKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restricted = append(f.restricted, displayName)
	return f.restrictErr
}

func (f *fakeEngine) ForceDisconnectParticipant(ctx context.Context, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forceDisconnects = append(f.forceDisconnects, displayName)
	return nil
}

func (f *fakeEngine) DisconnectSelf(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeEngine) Updates() <-chan core.EngineUpdate { return f.updates }
func (f *fakeEngine) Close()                            {}

func (f *fakeEngine) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeEngine) joinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins
}

func (f *fakeEngine) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

type fakeNav struct {
	mu       sync.Mutex
	homes    int
	welcomes int
}

func (f *fakeNav) Home() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.homes++
}

func (f *fakeNav) Welcome() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes++
}

func (f *fakeNav) homeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.homes
}

type fakeIdentity struct {
	user core.UserInfo
	ok   bool
}

func (f fakeIdentity) CurrentUser() (core.UserInfo, bool) { return f.user, f.ok }

// testSpace is a live joinable space hosted by "host-1".
func testSpace(now time.Time) *domain.Space {
	return &domain.Space{
		ID:        "space-1",
		Title:     "Test Space",
		Host:      "host-1",
		StartedAt: now.Add(-10 * time.Minute).UnixMilli(),
		Duration:  (12 * time.Minute).Milliseconds(),
		Capacity:  20,
		Active:    true,
		Participants: []domain.ParticipantData{
			{ID: "host-1", DisplayName: "Helen", Role: domain.RoleHost},
			{ID: "user-2", DisplayName: "Lee", Role: domain.RoleListener},
		},
		Speakers:   []domain.UserID{},
		Listeners:  []domain.UserID{"user-2"},
		RemoteName: "remote_abc",
	}
}
