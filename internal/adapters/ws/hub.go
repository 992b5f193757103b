// Package ws implements the websocket hub behind the live punch feed.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jornada/fichaje/pkg/logger"
	"github.com/jornada/fichaje/pkg/metrics"
)

// Connection keepalive constants.
const (
	writeDeadline = 7 * time.Second
	readDeadline  = 70 * time.Second
	pingInterval  = 25 * time.Second
	maxReadBytes  = 1 << 20
)

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals // shared upgrader configuration
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The feed is read-only derived data; origin checks belong to the
		// fronting proxy.
		return true
	},
}

// Envelope is the wire frame pushed to every client.
type Envelope struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// Hub fans status updates out to connected websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  logger.Logger
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewHub creates an empty hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.Get().Named("ws-hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Broadcast pushes an event to every connected client. Clients whose
// writes fail are dropped; delivery is best-effort.
func (h *Hub) Broadcast(ctx context.Context, event string, payload any) {
	raw, err := json.Marshal(Envelope{Type: event, At: time.Now(), Data: payload})
	if err != nil {
		h.logger.Error(ctx, "marshaling broadcast failed", logger.Error(err))
		return
	}
	metrics.RecordHubBroadcast(event)
	for _, c := range h.list() {
		if err := c.writeText(raw); err != nil {
			metrics.RecordHubSendError()
			h.remove(c)
			_ = c.close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection alive with
// ping/pong until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn}
	h.add(c)
	defer func() {
		h.remove(c)
		_ = c.close()
	}()

	conn.SetReadLimit(maxReadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	_ = c.writeJSON(Envelope{Type: "hello", At: time.Now()})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			// Inbound frames are ignored; reading drains control messages
			// and detects the close.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-readDone:
			return
		case <-ping.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	metrics.UpdateHubClients(len(h.clients))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	metrics.UpdateHubClients(len(h.clients))
}

func (h *Hub) list() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (c *client) writeText(raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *client) writeJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.writeText(raw)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeDeadline))
}

func (c *client) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
