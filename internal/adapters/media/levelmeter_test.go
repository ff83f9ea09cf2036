package media

import (
	"math"
	"testing"

	"github.com/pion/rtp"
)

func packetWithLevel(t *testing.T, ext byte) *rtp.Packet {
	t.Helper()
	pkt := &rtp.Packet{}
	if err := pkt.SetExtension(audioLevelExtID, []byte{ext}); err != nil {
		t.Fatalf("set extension: %v", err)
	}
	return pkt
}

func TestPacketLevel(t *testing.T) {
	tests := []struct {
		name string
		ext  byte
		want float64
	}{
		{"loudest", 0x00, 1},
		{"silence", 0x7F, 0},
		{"voice bit set is masked", 0x80, 1},
		{"mid level", 0x40, 1 - 64.0/127},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := packetLevel(packetWithLevel(t, tc.ext))
			if !ok {
				t.Fatal("expected a level")
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("level = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPacketLevelWithoutExtension(t *testing.T) {
	if _, ok := packetLevel(&rtp.Packet{}); ok {
		t.Fatal("packet without the audio-level extension has no level")
	}
}
