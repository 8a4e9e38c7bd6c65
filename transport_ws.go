package jrpc2

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps a WebSocket connection with a buffered outbound queue so
// slow clients cannot block request processing.
type wsConn struct {
	ws   *websocket.Conn
	send chan []byte
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:   ws,
		send: make(chan []byte, 256),
	}
}

func (c *wsConn) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		// Drop message if buffer full
	}
}

// readPump reads messages from the WebSocket and runs each one through the
// engine. Each text message is one payload: a request object or a batch.
func (c *wsConn) readPump(ctx context.Context, engine *Engine) {
	defer close(c.send)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		if out := engine.Process(ctx, data); len(out) > 0 {
			c.enqueue(out)
		}
	}
}

// writePump writes queued responses to the WebSocket.
func (c *wsConn) writePump() {
	defer c.ws.Close()

	for data := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// closeGracefully sends a close frame before the connection goes away.
func (c *wsConn) closeGracefully() {
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(5*time.Second),
	)
}

// wsHandler upgrades requests and tracks the live connections so the
// server can close them gracefully on shutdown.
type wsHandler struct {
	engine   *Engine
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

func newWSHandler(e *Engine) *wsHandler {
	return &wsHandler{
		engine: e,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins by default
			},
		},
		conns: make(map[*wsConn]struct{}),
	}
}

// WebSocket returns an http.Handler that upgrades requests to WebSocket
// and serves the engine over it. Caller credentials are decoded from the
// upgrade request and apply to every payload on the connection.
func (e *Engine) WebSocket() http.Handler {
	return newWSHandler(e)
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	creds := credentialsFromRequest(r)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	conn := newWSConn(ws)
	h.register(conn)
	defer h.unregister(conn)

	go conn.writePump()
	conn.readPump(WithCredentials(context.Background(), creds), h.engine)
}

func (h *wsHandler) register(c *wsConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *wsHandler) unregister(c *wsConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// closeAll sends a going-away close frame to every live connection.
func (h *wsHandler) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.closeGracefully()
	}
}
