package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

func (ctl *SpaceWSController) writePump(ctx context.Context, c *wsClient) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "adapters.ws").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "adapters.ws").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

// flush writes frames buffered before the write pump started. Used on
// the no-identity path, where the connection is torn down immediately
// after the welcome redirect.
func (ctl *SpaceWSController) flush(c *wsClient) {
	for {
		select {
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("flush write error")
				return
			}
		default:
			return
		}
	}
}

func (ctl *SpaceWSController) readPump(ctx context.Context, sid core.SessionID, c *wsClient, session *app.Session) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleAction(ctx, session, data)
		}
	}
}

type actionMessage struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId,omitempty"`
}

func (ctl *SpaceWSController) handleAction(ctx context.Context, session *app.Session, data []byte) {
	var msg actionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("bad json")
		return
	}

	switch msg.Type {
	case "join":
		session.HandleJoin(ctx)
	case "leave":
		session.HandleLeave(ctx)
	case "toggle_mic":
		session.HandleToggleMic(ctx)
	case "request_speak":
		session.HandleRequestToSpeak(ctx)
	case "approve_join":
		session.HandleApproveJoin(ctx, msg.UserID)
	case "reject_join":
		session.HandleRejectJoin(ctx, msg.UserID)
	case "approve_speak":
		session.HandleApproveSpeak(ctx, msg.UserID)
	case "reject_speak":
		session.HandleRejectSpeak(ctx, msg.UserID)
	case "mute":
		if err := session.Moderation().Mute(ctx, msg.UserID); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Str("target", string(msg.UserID)).Msg("mute refused")
		}
	case "remove":
		if err := session.Moderation().Remove(ctx, msg.UserID); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Str("target", string(msg.UserID)).Msg("remove refused")
		}
	case "end":
		if err := session.Moderation().EndSpace(ctx); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("end refused")
		}
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", msg.Type).Msg("unknown action")
	}
}

func sendJSON(c *wsClient, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
