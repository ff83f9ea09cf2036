package http

import (
	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/domain"
)

// stateView is the snapshot the UI renders from.
type stateView struct {
	Type string `json:"type"`

	Phase       string  `json:"phase"`
	Loading     bool    `json:"loading"`
	Message     string  `json:"message,omitempty"`
	Progress    float64 `json:"progress"`
	Scheduled   bool    `json:"scheduled"`
	Ended       bool    `json:"ended"`
	CanJoinNow  bool    `json:"canJoinNow"`
	CanSpeak    bool    `json:"canSpeak"`
	RoomVisible bool    `json:"roomVisible"`
	Connected   bool    `json:"connected"`
	IsMuted     bool    `json:"isMuted"`
	Banned      bool    `json:"banned"`
	AudioLevel  float64 `json:"audioLevel"`
	Speakers    int     `json:"speakers"`
	Listeners   int     `json:"listeners"`

	Space   *domain.Space           `json:"space,omitempty"`
	Current *domain.ParticipantData `json:"currentUser,omitempty"`
}

func viewOf(st app.State) stateView {
	v := stateView{
		Type:        "state",
		Phase:       string(st.Phase),
		Loading:     st.Loading,
		Message:     st.Message,
		Progress:    st.Derived.Progress,
		Scheduled:   st.Derived.Scheduled,
		Ended:       st.Derived.Ended,
		CanJoinNow:  st.Derived.CanJoinNow,
		CanSpeak:    st.CanSpeak,
		RoomVisible: st.RoomVisible,
		Connected:   st.Connected,
		IsMuted:     st.IsMuted,
		Banned:      st.Banned,
		AudioLevel:  st.AudioLevel,
		Space:       st.Space,
		Current:     st.Current,
	}
	if st.Space != nil {
		v.Speakers, v.Listeners = st.Space.Counts()
	}
	return v
}
