package media

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// wsMessage is the envelope for every control-channel frame, in both
// directions. Unused fields are omitted on the wire.
type wsMessage struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`

	Room     string `json:"room,omitempty"`
	Name     string `json:"name,omitempty"`
	Level    string `json:"level,omitempty"`
	Duration int    `json:"duration,omitempty"`
	Capacity int    `json:"capacity,omitempty"`

	Target string `json:"target,omitempty"`
	Media  string `json:"media,omitempty"`
	On     *bool  `json:"on,omitempty"`

	Message      string        `json:"message,omitempty"`
	Participants []rosterEntry `json:"participants,omitempty"`

	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (e *Engine) send(m wsMessage) error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return conn.WriteJSON(m)
}

// roundTrip sends a request and waits for its ack from the read pump.
func (e *Engine) roundTrip(ctx context.Context, req wsMessage) (wsMessage, error) {
	if err := e.send(req); err != nil {
		return wsMessage{}, err
	}
	timer := time.NewTimer(ackTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return wsMessage{}, ctx.Err()
		case <-timer.C:
			return wsMessage{}, context.DeadlineExceeded
		case ack := <-e.acks:
			if ack.Request != req.Request {
				continue
			}
			if ack.Error != "" {
				return wsMessage{}, errorf(ack.Error)
			}
			return ack, nil
		}
	}
}

func (e *Engine) readPump(ctx context.Context) {
	defer e.teardown()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "media").Msg("readPump ctx done")
			return
		default:
		}

		e.mu.Lock()
		conn := e.conn
		e.mu.Unlock()
		if conn == nil {
			return
		}

		var m wsMessage
		if err := conn.ReadJSON(&m); err != nil {
			log.Error().Err(err).Str("module", "media").Msg("readPump read error")
			return
		}
		e.handle(ctx, m)
	}
}

func (e *Engine) handle(ctx context.Context, m wsMessage) {
	switch m.Type {
	case "created", "joined":
		select {
		case e.acks <- m:
		default:
			log.Warn().Str("module", "media").Str("type", m.Type).Msg("ack dropped")
		}
	case "participants":
		e.mu.Lock()
		e.roster = m.Participants
		e.mu.Unlock()
	case "alert":
		e.mu.Lock()
		e.alert = m.Message
		e.mu.Unlock()
		e.publish()
	case "mic":
		if m.On != nil {
			e.mu.Lock()
			e.audioOn = *m.On
			e.mu.Unlock()
			e.publish()
		}
	case "answer":
		e.handleAnswer(m)
	case "candidate":
		e.handleCandidate(m)
	default:
		log.Warn().Str("module", "media").Str("type", m.Type).Msg("unknown signal")
	}
}

type engineError string

func (e engineError) Error() string { return string(e) }

func errorf(msg string) error { return engineError(msg) }
