package media

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// audioLevelExtID is the one-byte header extension id negotiated for
// urn:ietf:params:rtp-hdrext:ssrc-audio-level.
const audioLevelExtID = 1

const meterInterval = 200 * time.Millisecond

// packetLevel extracts the RFC 6464 audio level from a packet, scaled to
// [0,1] where 1 is loudest (0 dBov).
func packetLevel(pkt *rtp.Packet) (float64, bool) {
	ext := pkt.GetExtension(audioLevelExtID)
	if len(ext) == 0 {
		return 0, false
	}
	dBov := float64(ext[0] & 0x7F)
	return 1 - dBov/127, true
}

// meterLoop reads inbound RTP and reports a smoothed audio level at most
// once per meterInterval.
func meterLoop(ctx context.Context, track *webrtc.TrackRemote, report func(float64)) {
	var smoothed float64
	last := time.Now()
	for {
		if ctx.Err() != nil {
			return
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Str("module", "media").Msg("meter read stopped")
			}
			return
		}
		level, ok := packetLevel(pkt)
		if !ok {
			continue
		}
		smoothed = 0.7*smoothed + 0.3*level
		if now := time.Now(); now.Sub(last) >= meterInterval {
			last = now
			report(smoothed)
		}
	}
}
