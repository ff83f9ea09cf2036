// Package domain contains entities and pure calculators, no I/O.
package domain

import "strings"

type (
	SpaceID string
	UserID  string
)

type Role string

const (
	RoleHost     Role = "host"
	RoleSpeaker  Role = "speaker"
	RoleListener Role = "listener"
)

// RemotePrefix marks a remoteName for which no live room exists yet.
const RemotePrefix = "remote_"

type ParticipantData struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Muted       bool   `json:"muted"`
}

// Space is the server-owned session record. The backend owns it; this
// process holds immutable snapshots replaced wholesale on each poll.
type Space struct {
	ID               SpaceID           `json:"id"`
	Title            string            `json:"title"`
	Host             UserID            `json:"host"`
	StartedAt        int64             `json:"startedAt"` // epoch ms
	EndedAt          int64             `json:"endedAt"`   // 0 while not ended
	Duration         int64             `json:"duration"`  // ms
	Capacity         int               `json:"capacity"`
	Active           bool              `json:"active"`
	AskToSpeak       bool              `json:"askToSpeak"`
	AskToJoin        bool              `json:"askToJoin"`
	ApprovedToJoin   []UserID          `json:"approvedToJoin"`
	AskToJoinQueue   []UserID          `json:"askToJoinQueue"`
	AskToJoinHistory []UserID          `json:"askToJoinHistory"`
	AskToSpeakQueue  []UserID          `json:"askToSpeakQueue"`
	RejectedSpeakers []UserID          `json:"rejectedSpeakers"`
	Banned           []UserID          `json:"banned"`
	Participants     []ParticipantData `json:"participants"`
	Speakers         []UserID          `json:"speakers"`
	Listeners        []UserID          `json:"listeners"`
	RemoteName       string            `json:"remoteName"`
}

// RoomPending reports whether no live room has been created yet.
func (s *Space) RoomPending() bool {
	return strings.HasPrefix(s.RemoteName, RemotePrefix)
}

// Ended reports the terminal condition recorded by the backend.
func (s *Space) Ended() bool {
	return s.EndedAt != 0 && !s.Active
}

func (s *Space) Participant(id UserID) (ParticipantData, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return ParticipantData{}, false
}

func (s *Space) IsBanned(id UserID) bool {
	return containsID(s.Banned, id)
}

func (s *Space) JoinApproved(id UserID) bool { return containsID(s.ApprovedToJoin, id) }
func (s *Space) JoinPending(id UserID) bool  { return containsID(s.AskToJoinQueue, id) }
func (s *Space) JoinRejected(id UserID) bool { return containsID(s.AskToJoinHistory, id) }

func (s *Space) SpeakPending(id UserID) bool  { return containsID(s.AskToSpeakQueue, id) }
func (s *Space) SpeakRejected(id UserID) bool { return containsID(s.RejectedSpeakers, id) }

// Counts returns speaker and listener counts. The host is counted as a
// speaker even when absent from the speakers list.
func (s *Space) Counts() (speakers, listeners int) {
	speakers = len(s.Speakers)
	listeners = len(s.Listeners)
	if s.Host != "" && !containsID(s.Speakers, s.Host) {
		speakers++
	}
	return speakers, listeners
}

func containsID(ids []UserID, id UserID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
