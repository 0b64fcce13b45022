package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"childhood-friend/internal/media"
	"childhood-friend/internal/platform/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	// base64 video chunks are large
	maxMessageSize = 16 << 20
	sendBuffer     = 32
)

var errConnClosed = errors.New("connection closed")

type Handler struct {
	pipeline *media.Pipeline
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	draining bool
	active   sync.WaitGroup
}

func NewHandler(pipeline *media.Pipeline, log *logger.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 64 << 10,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log:   log.With("transport", "ws"),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Shutdown closes every live connection and waits until their sessions have
// finalized. Upgrades that arrive afterwards are refused.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
	}
	n := len(h.conns)
	h.mu.Unlock()

	h.log.Info("closing websocket connections", "count", n)
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.conns[conn] = struct{}{}
	h.active.Add(1)
	return true
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.active.Done()
}

// Serve upgrades the request and runs the media session until the peer
// goes away. Messages are handled one at a time in arrival order.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", c.ClientIP(), "error", err)
		return
	}
	if !h.track(conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer h.untrack(conn)

	log := h.log.With("remote", c.ClientIP())
	log.Info("client connected")

	client := newClient(conn, log)
	go client.writePump()

	session := h.pipeline.NewSession(c.Request.Context(), client)
	defer func() {
		session.Close()
		client.close()
		<-client.stopped
		_ = conn.Close()
		log.Info("client disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read from client failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if messageType != websocket.TextMessage {
			log.Warn("unsupported websocket frame", "message_type", messageType)
			continue
		}
		session.Handle(data)
	}
}

// client is the single writer of a connection.
type client struct {
	conn    *websocket.Conn
	out     chan []byte
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	log     *logger.Logger
}

func newClient(conn *websocket.Conn, log *logger.Logger) *client {
	return &client{
		conn:    conn,
		out:     make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		log:     log,
	}
}

func (c *client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return errConnClosed
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.stopped)
	}()

	for {
		select {
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Warn("write to client failed", "error", err)
				c.close()
				// unblocks the read loop
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
