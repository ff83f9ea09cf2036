package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsPair upgrades a loopback connection and returns both ends.
func wsPair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conns <- c
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server = <-conns:
	case <-time.After(2 * time.Second):
		t.Fatal("server connection never arrived")
	}
	return server, client
}

func TestWelcomeRedirectDeliveredBeforeClose(t *testing.T) {
	serverConn, clientConn := wsPair(t)
	wc := &wsClient{conn: serverConn, send: make(chan []byte, 32)}

	// The unauthenticated path buffers a navigate event before any pump
	// runs; flush must deliver it and Close must drop the socket.
	wsNavigator{client: wc}.Welcome()

	ctl := &SpaceWSController{}
	ctl.flush(wc)
	wc.Close()

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := clientConn.ReadMessage()
	if err != nil {
		t.Fatalf("expected the redirect frame, got %v", err)
	}
	if !strings.Contains(string(data), `"navigate"`) || !strings.Contains(string(data), "/welcome") {
		t.Fatalf("unexpected frame %s", data)
	}
	if _, _, err := clientConn.ReadMessage(); err == nil {
		t.Fatal("connection must be closed after the redirect")
	}
}

func TestTrySendAfterClose(t *testing.T) {
	serverConn, _ := wsPair(t)
	wc := &wsClient{conn: serverConn, send: make(chan []byte, 1)}
	wc.Close()
	if err := wc.TrySend([]byte("late")); err == nil {
		t.Fatal("send on a closed client must fail")
	}
}
