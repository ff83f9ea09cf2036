package domain

import "time"

const (
	// JoinWindow is how long before the scheduled end a client may join.
	JoinWindow = 5 * time.Minute
	// EndWarning is the remaining time below which a one-shot warning fires.
	EndWarning = time.Minute
)

// DerivedState is recomputed from a space snapshot and wall-clock time.
type DerivedState struct {
	Scheduled  bool
	Ended      bool
	Progress   float64
	Remaining  time.Duration
	CanJoinNow bool
}

// Derive maps (space, now) to scheduled/ended flags, progress and
// join eligibility. Pure; callers inject the clock.
func Derive(s *Space, now time.Time) DerivedState {
	nowMS := now.UnixMilli()
	remainingMS := s.StartedAt + s.Duration - nowMS

	total := s.Duration
	if total == 0 {
		total = 1
	}
	progress := (1 - float64(remainingMS)/float64(total)) * 100
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	ended := s.Ended()
	return DerivedState{
		Scheduled:  nowMS < s.StartedAt,
		Ended:      ended,
		Progress:   progress,
		Remaining:  time.Duration(remainingMS) * time.Millisecond,
		CanJoinNow: remainingMS <= JoinWindow.Milliseconds() && !ended,
	}
}

// CanSpeak reports speaking eligibility. A nil user is a visitor who has
// not joined yet; they may still speak in spaces without ask-to-speak.
func CanSpeak(s *Space, user *ParticipantData) bool {
	if user != nil && (user.Role == RoleSpeaker || user.Role == RoleHost) {
		return true
	}
	return !s.AskToSpeak
}
