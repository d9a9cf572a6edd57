// Package realtime pushes meal plan changes to connected websocket clients
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/infrastructure/http/middleware"
	"github.com/nutriplan/engine/internal/ports/outbound"
)

// ErrHubClosed is returned by Publish after Close
var ErrHubClosed = errors.New("realtime hub closed")

// Message is the frame sent to clients
type Message struct {
	Type       string             `json:"type"`
	OccurredAt time.Time          `json:"occurred_at"`
	Payload    shared.DomainEvent `json:"payload"`
}

// Options tunes client buffering and keepalive
type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	// CheckOrigin defaults to accepting every origin
	CheckOrigin func(r *http.Request) bool
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		SendBuffer:   16,
		WriteTimeout: 10 * time.Second,
		PingInterval: 25 * time.Second,
	}
}

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans events out to every connection of the affected user
type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	opts     Options
	logger   *zap.Logger
}

// NewHub creates a hub
func NewHub(opts Options, logger *zap.Logger) *Hub {
	defaults := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaults.PingInterval
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Hub{
		clients: make(map[uuid.UUID]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		opts:   opts,
		logger: logger.Named("realtime"),
	}
}

var _ outbound.EventPublisher = (*Hub)(nil)

// Publish delivers event to userID's connections without blocking. A client
// whose buffer is full is disconnected.
func (h *Hub) Publish(_ context.Context, userID uuid.UUID, event shared.DomainEvent) error {
	msg, err := json.Marshal(Message{Type: event.EventName(), OccurredAt: event.OccurredAt(), Payload: event})
	if err != nil {
		return err
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	var slow []*client
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow websocket client", zap.String("user_id", userID.String()))
		h.unregister(c)
	}
	return nil
}

// ServeHTTP upgrades the request. The caller identity must already be in the
// request context.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, h.opts.SendBuffer)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.opts.WriteTimeout))
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// Subscribers reports the open connections of userID
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close disconnects every client and rejects further publishes
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[uuid.UUID]map[*client]struct{})
	h.mu.Unlock()

	for _, set := range clients {
		for c := range set {
			c.close()
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set := h.clients[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// writePump owns all writes to the connection
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readPump discards client frames and ends on close or error
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
