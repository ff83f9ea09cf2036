package app

// User-visible messages surfaced through State.Message.
const (
	msgLoadFailed      = "Failed to load space. Please try again later."
	msgNoRoomYet       = "Host has not created a room yet."
	msgSpaceEnded      = "Space has ended."
	msgEndingSoon      = "Space will end in less than a minute."
	msgBanned          = "You have been banned from this space."
	msgJoinPending     = "Your request to join is pending approval by the host."
	msgJoinRejected    = "Your request to join was rejected by the host."
	msgJoinSent        = "Your request to join has been sent and is pending approval."
	msgSpeakRejected   = "You have been rejected from speaking in this space."
	msgSpeakPending    = "Your request to speak is pending approval by the host."
	msgSpeakSent       = "Your request to speak has been sent and is pending approval."
	msgSpeakFailed     = "Error requesting to speak. Please try again."
	msgNoMicPermission = "You do not have permission to toggle your mic."
)

// Markers recognized in engine alert text.
const (
	alertMeetingEnded = "meeting has ended"
	alertRotate       = "rotate"
)
