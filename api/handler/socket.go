package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/movieverse/movieverse-gateway/preference"
	"github.com/movieverse/movieverse-gateway/session"
)

const (
	// wsKeepAliveInterval is how often the gateway sends KeepAlive messages.
	wsKeepAliveInterval = 10 * time.Second
	// wsReadDeadline is the maximum time to wait for a pong before considering
	// the connection dead.
	wsReadDeadline = 90 * time.Second
	// wsWriteTimeout bounds a single push write.
	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	// The session middleware already rejected callers without a live session.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHub tracks WebSocket connections by session so reconciled preference
// snapshots can be pushed to the browser tab that owns them, and so all
// connections can be closed during graceful shutdown. It implements
// preference.Notifier.
type WSHub struct {
	mu    sync.Mutex
	conns map[uuid.UUID]map[*websocket.Conn]struct{}
	done  chan struct{} // closed on shutdown
}

func NewWSHub() *WSHub {
	return &WSHub{
		conns: make(map[uuid.UUID]map[*websocket.Conn]struct{}),
		done:  make(chan struct{}),
	}
}

func (h *WSHub) add(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sessionID] == nil {
		h.conns[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[sessionID][conn] = struct{}{}
}

func (h *WSHub) remove(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[sessionID], conn)
	if len(h.conns[sessionID]) == 0 {
		delete(h.conns, sessionID)
	}
}

// PreferenceChanged pushes an authoritative membership snapshot to every
// connection the session holds. A write failure only logs; the browser also
// converges on the next full view fetch.
func (h *WSHub) PreferenceChanged(sess *session.Session, kind preference.Kind, members []preference.Target) {
	msg, err := json.Marshal(gin.H{
		"MessageType": "PreferenceChanged",
		"Kind":        kind,
		"Members":     members,
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns[sess.ID()]))
	for conn := range h.conns[sess.ID()] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Debug("ws: snapshot push failed", "session_id", sess.ID(), "error", err)
		}
	}
}

// Shutdown closes all active WebSocket connections and signals handlers to exit.
func (h *WSHub) Shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.conns {
		for conn := range conns {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
		}
	}
	h.conns = make(map[uuid.UUID]map[*websocket.Conn]struct{})
}

// WebSocketHandler returns a gin handler that manages WebSocket connections
// with lifecycle tracking via the hub.
func WebSocketHandler(hub *WSHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionFromCtx(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		hub.add(sess.ID(), conn)
		defer func() {
			hub.remove(sess.ID(), conn)
			_ = conn.Close()
		}()

		if err := sendKeepAlive(conn); err != nil {
			return
		}

		ticker := time.NewTicker(wsKeepAliveInterval)
		defer ticker.Stop()

		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
			return nil
		})

		readErr := make(chan error, 1)
		go func() {
			for {
				_, _, err := conn.ReadMessage()
				if err != nil {
					readErr <- err
					return
				}
			}
		}()

		for {
			select {
			case <-hub.done:
				return
			case <-ticker.C:
				if err := sendKeepAlive(conn); err != nil {
					slog.Debug("ws: keepalive write error", "error", err)
					return
				}
			case err := <-readErr:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
					websocket.CloseNoStatusReceived,
				) {
					slog.Debug("ws: unexpected close", "error", err)
				}
				return
			}
		}
	}
}

// sendKeepAlive writes the periodic liveness message.
// Format: {"MessageType":"KeepAlive"}.
func sendKeepAlive(conn *websocket.Conn) error {
	return conn.WriteMessage(
		websocket.TextMessage,
		[]byte(`{"MessageType":"KeepAlive"}`),
	)
}
