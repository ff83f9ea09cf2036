// Package core defines the contracts between the session controller and
// its external collaborators. Adapters implement them; app consumes them.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Spaces/internal/domain"
)

type SessionID string

var (
	ErrSpaceNotFound = errors.New("space not found")
	ErrNotHost       = errors.New("only the host can do this")
	ErrNoParticipant = errors.New("participant not found")
	ErrNoIdentity    = errors.New("no current user identity")
)

// Clock supplies wall-clock time; injected so derived state is testable.
type Clock func() time.Time

// SpacePatch is a partial update applied by the backend. Nil fields are
// left untouched.
type SpacePatch struct {
	RemoteName   *string                  `json:"remoteName,omitempty"`
	Participants []domain.ParticipantData `json:"participants,omitempty"`
}

// SpaceRepository is the backend façade. Every call may suspend and fail;
// the caller decides whether a failure is user-visible.
type SpaceRepository interface {
	FetchSpaceByID(ctx context.Context, id domain.SpaceID) (*domain.Space, error)
	UpdateSpace(ctx context.Context, id domain.SpaceID, patch SpacePatch) error
	JoinSpace(ctx context.Context, id domain.SpaceID, p domain.ParticipantData, autoApprove bool) error
	LeaveSpace(ctx context.Context, id domain.SpaceID, userID domain.UserID) error
	MuteParticipant(ctx context.Context, id domain.SpaceID, target domain.UserID, muted bool) error
	BanParticipant(ctx context.Context, id domain.SpaceID, target domain.UserID) error
	RequestToSpeak(ctx context.Context, id domain.SpaceID, userID domain.UserID) error
	ApproveJoinRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error
	RejectJoinRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error
	ApproveRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID, forSpeaking bool) error
	RejectRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error
	EndSpace(ctx context.Context, id domain.SpaceID) error
}

type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
	MediaAll   MediaKind = "all"
)

// RoomConfig describes the room to create or join on the media engine.
type RoomConfig struct {
	Name     string // display identity of the local participant
	RoomID   string // set when joining an existing room
	Duration time.Duration
	Capacity int
}

// EngineUpdate is the parameter bag the media engine publishes whenever
// anything about the live session changes.
type EngineUpdate struct {
	RoomName   string
	AudioLevel float64
	AudioOn    bool
	Alert      string
}

// MediaEngine is the external real-time engine. Control failures are
// logged by implementations and never propagated past the bridge.
type MediaEngine interface {
	CreateRoom(ctx context.Context, cfg RoomConfig) (string, error)
	JoinRoom(ctx context.Context, cfg RoomConfig) error
	ToggleLocalAudio(ctx context.Context) error
	RestrictParticipantMedia(ctx context.Context, displayName string, kind MediaKind) error
	ForceDisconnectParticipant(ctx context.Context, displayName string) error
	DisconnectSelf(ctx context.Context) error
	Updates() <-chan EngineUpdate
	Close()
}

// UserInfo is the durable identity resolved from persisted storage.
type UserInfo struct {
	ID          domain.UserID
	DisplayName string
}

type Identity interface {
	CurrentUser() (UserInfo, bool)
}

// Navigator abstracts the external navigation side effects (welcome flow,
// back to the index) a terminal transition triggers.
type Navigator interface {
	Home()
	Welcome()
}
