package media

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type peerConnection struct {
	pc *webrtc.PeerConnection
}

func defaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// startPeer sets up the audio peer connection and begins SDP exchange
// over the control channel. Candidates trickle.
func (e *Engine) startPeer(ctx context.Context) error {
	pc, err := webrtc.NewPeerConnection(defaultWebRTCConfig())
	if err != nil {
		return err
	}
	p := &peerConnection{pc: pc}

	e.mu.Lock()
	e.peer = p
	e.mu.Unlock()

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "media").Str("ice_state", s.String()).Msg("ICE state")
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "media").Str("peer_state", s.String()).Msg("peer state")
	})
	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		if err := e.send(wsMessage{Type: "candidate", Candidate: cand.ToJSON().Candidate}); err != nil {
			log.Error().Err(err).Str("module", "media").Msg("send candidate")
		}
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "media").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Msg("OnTrack received")
		if track.Kind() == webrtc.RTPCodecTypeAudio {
			go meterLoop(ctx, track, e.reportLevel)
		}
	})

	local, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "spaces",
	)
	if err != nil {
		return err
	}
	if _, err := pc.AddTrack(local); err != nil {
		return err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return err
	}
	return e.send(wsMessage{Type: "offer", SDP: offer.SDP})
}

func (e *Engine) handleAnswer(m wsMessage) {
	e.mu.Lock()
	peer := e.peer
	e.mu.Unlock()
	if peer == nil {
		return
	}
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: m.SDP}
	if err := peer.pc.SetRemoteDescription(desc); err != nil {
		log.Error().Err(err).Str("module", "media").Msg("set answer")
	}
}

func (e *Engine) handleCandidate(m wsMessage) {
	e.mu.Lock()
	peer := e.peer
	e.mu.Unlock()
	if peer == nil {
		return
	}
	if err := peer.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: m.Candidate}); err != nil {
		log.Error().Err(err).Str("module", "media").Msg("add candidate")
	}
}

func (p *peerConnection) Close() {
	if p.pc != nil {
		if err := p.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "media").Msg("peer close error")
		}
	}
}
