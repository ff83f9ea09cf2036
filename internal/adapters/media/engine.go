// Package media implements core.MediaEngine over a websocket control
// channel to the real-time engine plus a pion peer connection for the
// audio itself. Control failures are logged here and surfaced to the
// session only through the update bag, matching the engine SDK contract.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/core"
)

var (
	ErrNotConnected = errors.New("engine not connected")
	ErrEngineHost   = errors.New("only the host can control media")
	ErrNoRosterPeer = errors.New("participant not in engine roster")
)

const ackTimeout = 10 * time.Second

// hostLevel is the engine's role marker for a room host.
const hostLevel = "2"

type rosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Engine struct {
	signalURL string
	updates   chan core.EngineUpdate
	acks      chan wsMessage

	mu       sync.Mutex
	conn     *websocket.Conn
	peer     *peerConnection
	roomName string
	level    string
	audioOn  bool
	alert    string
	audioLvl float64
	roster   []rosterEntry
	closed   bool
	cancel   context.CancelFunc
}

func NewEngine(signalURL string) *Engine {
	return &Engine{
		signalURL: signalURL,
		updates:   make(chan core.EngineUpdate, 64),
		acks:      make(chan wsMessage, 4),
	}
}

func (e *Engine) Updates() <-chan core.EngineUpdate { return e.updates }

// connect dials the signal endpoint once and starts the read pump.
func (e *Engine) connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrNotConnected
	}
	if e.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, e.signalURL, nil)
	if err != nil {
		return fmt.Errorf("dial signal: %w", err)
	}
	e.conn = conn

	pumpCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.readPump(pumpCtx)
	log.Info().Str("module", "media").Str("url", e.signalURL).Msg("signal connected")
	return nil
}

// CreateRoom asks the engine for a new room and returns its identifier.
func (e *Engine) CreateRoom(ctx context.Context, cfg core.RoomConfig) (string, error) {
	if err := e.connect(ctx); err != nil {
		return "", err
	}
	req := wsMessage{
		Type:     "create",
		Request:  uuid.NewString(),
		Name:     cfg.Name,
		Duration: int(cfg.Duration / time.Minute),
		Capacity: cfg.Capacity,
	}
	ack, err := e.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	e.roomName = ack.Room
	e.level = hostLevel
	e.mu.Unlock()

	if err := e.startPeer(ctx); err != nil {
		log.Error().Err(err).Str("module", "media").Msg("peer setup failed")
	}
	e.publish()
	return ack.Room, nil
}

// JoinRoom attaches to an existing room.
func (e *Engine) JoinRoom(ctx context.Context, cfg core.RoomConfig) error {
	if err := e.connect(ctx); err != nil {
		return err
	}
	req := wsMessage{
		Type:    "join",
		Request: uuid.NewString(),
		Room:    cfg.RoomID,
		Name:    cfg.Name,
	}
	ack, err := e.roundTrip(ctx, req)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.roomName = ack.Room
	e.level = ack.Level
	e.mu.Unlock()

	if err := e.startPeer(ctx); err != nil {
		log.Error().Err(err).Str("module", "media").Msg("peer setup failed")
	}
	e.publish()
	return nil
}

func (e *Engine) ToggleLocalAudio(ctx context.Context) error {
	e.mu.Lock()
	e.audioOn = !e.audioOn
	on := e.audioOn
	e.mu.Unlock()

	if err := e.send(wsMessage{Type: "mic", On: &on}); err != nil {
		return err
	}
	e.publish()
	return nil
}

func (e *Engine) RestrictParticipantMedia(ctx context.Context, displayName string, kind core.MediaKind) error {
	target, err := e.resolveAsHost(displayName)
	if err != nil {
		log.Error().Err(err).Str("module", "media").Str("name", displayName).Msg("restrict media refused")
		return err
	}
	return e.send(wsMessage{Type: "control", Target: target, Media: string(kind)})
}

func (e *Engine) ForceDisconnectParticipant(ctx context.Context, displayName string) error {
	target, err := e.resolveAsHost(displayName)
	if err != nil {
		log.Error().Err(err).Str("module", "media").Str("name", displayName).Msg("force disconnect refused")
		return err
	}
	return e.send(wsMessage{Type: "remove", Target: target})
}

func (e *Engine) DisconnectSelf(ctx context.Context) error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := e.send(wsMessage{Type: "exit"})
	e.teardown()
	return err
}

func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.teardown()
}

func (e *Engine) teardown() {
	e.mu.Lock()
	conn := e.conn
	peer := e.peer
	cancel := e.cancel
	e.conn = nil
	e.peer = nil
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if peer != nil {
		peer.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// resolveAsHost maps a display identity onto the engine's live roster,
// refusing unless the local participant is the room host.
func (e *Engine) resolveAsHost(displayName string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return "", ErrNotConnected
	}
	if e.level != hostLevel {
		return "", ErrEngineHost
	}
	for _, p := range e.roster {
		if p.Name == displayName {
			return p.ID, nil
		}
	}
	return "", ErrNoRosterPeer
}

// publish emits the current parameter bag. Slow consumers drop updates
// rather than block the pump.
func (e *Engine) publish() {
	e.mu.Lock()
	upd := core.EngineUpdate{
		RoomName:   e.roomName,
		AudioLevel: e.audioLvl,
		AudioOn:    e.audioOn,
		Alert:      e.alert,
	}
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	select {
	case e.updates <- upd:
	default:
		log.Warn().Str("module", "media").Msg("update dropped, slow consumer")
	}
}

func (e *Engine) reportLevel(level float64) {
	e.mu.Lock()
	e.audioLvl = level
	e.mu.Unlock()
	e.publish()
}
