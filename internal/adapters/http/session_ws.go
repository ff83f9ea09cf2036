package http

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SpaceWSController runs one session controller per websocket and
// streams store snapshots down to the UI.
type SpaceWSController struct {
	deps Deps
}

func NewSpaceWSController(deps Deps) *SpaceWSController {
	return &SpaceWSController{deps: deps}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsClient) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// sessionIdentity resolves the durable user id persisted in the cookie
// session. Zero values mean unauthenticated.
type sessionIdentity struct {
	id   string
	name string
}

func (i sessionIdentity) CurrentUser() (core.UserInfo, bool) {
	if i.id == "" {
		return core.UserInfo{}, false
	}
	return core.UserInfo{ID: domain.UserID(i.id), DisplayName: i.name}, true
}

// wsNavigator maps navigation side effects to events on the socket.
type wsNavigator struct {
	client *wsClient
}

func (n wsNavigator) Home()    { n.navigate("/") }
func (n wsNavigator) Welcome() { n.navigate("/welcome") }

func (n wsNavigator) navigate(to string) {
	sendJSON(n.client, gin.H{"type": "navigate", "to": to})
}

func (ctl *SpaceWSController) HandleSpace(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	spaceID := domain.SpaceID(c.Param("spaceId"))
	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Str("space", string(spaceID)).Msg("new WS connection")

	sess := sessions.Default(c)
	uid, _ := sess.Get("uid").(string)
	name, _ := sess.Get("displayName").(string)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	client := &wsClient{
		conn: ws,
		send: make(chan []byte, 32),
	}

	session := app.NewSession(app.SessionDeps{
		Repo:       ctl.deps.Repo,
		Engine:     ctl.deps.NewEngine(),
		Identity:   sessionIdentity{id: uid, name: name},
		Nav:        wsNavigator{client: client},
		Clock:      ctl.deps.Clock,
		SpaceID:    spaceID,
		PollPeriod: ctl.deps.Cfg.PollPeriod,
	})

	session.Store().OnChange(func(st app.State) {
		sendJSON(client, viewOf(st))
	})

	ctx, cancel := context.WithCancel(ctx)

	if err := session.Start(ctx); err != nil {
		// No pump is running yet: deliver the buffered welcome redirect
		// synchronously, then drop the socket.
		log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("session not started, no identity")
		ctl.flush(client)
		client.Close()
		session.Close()
		cancel()
		return
	}
	ctl.deps.Sessions.Bind(sid, session)

	go ctl.writePump(ctx, client)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, client, session)
		ctl.deps.Sessions.Unbind(sid, session)
	}()
}
