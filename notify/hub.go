/*
Package notify delivers seating events to the people editing a project.

IMPLEMENTATIONS (all satisfy seating.Notifier):
  Hub:            websocket connections grouped by project
  RedisPublisher: Redis pub/sub, one channel per project, for other processes
  Fanout:         publishes to several notifiers

WIRE FORMAT:
  Every event is one JSON Message:
    {"type": "seating:assigned", "project_id": "p1", "payload": {...}, "sent_at": "..."}
*/
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/warp/seating-engine/seating"
)

// Message is the envelope written to every subscriber.
type Message struct {
	Type      string    `json:"type"`
	ProjectID string    `json:"project_id"`
	Payload   any       `json:"payload,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

func newMessage(projectID seating.ProjectID, event string, payload any) Message {
	return Message{
		Type:      event,
		ProjectID: string(projectID),
		Payload:   payload,
		SentAt:    time.Now().UTC(),
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// client serializes writes; gorilla allows one concurrent writer per conn.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// =============================================================================
// HUB
// =============================================================================

// Hub keeps the websocket connections of every project.
type Hub struct {
	mu       sync.RWMutex
	clients  map[seating.ProjectID]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHub accepts upgrades from the given origins. An empty list accepts
// requests without an Origin header only.
func NewHub(allowedOrigins []string, logger zerolog.Logger) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Hub{
		clients: make(map[seating.ProjectID]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		logger: logger,
	}
}

var _ seating.Notifier = (*Hub)(nil)

// Publish writes the event to every connection of the project. Connections
// that fail are dropped; a dead client is not a publish failure.
func (h *Hub) Publish(_ context.Context, projectID seating.ProjectID, event string, payload any) error {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[projectID]))
	for c := range h.clients[projectID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := newMessage(projectID, event, payload)
	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			h.logger.Debug().Err(err).
				Str("project_id", string(projectID)).
				Str("event", event).
				Msg("dropping websocket client after failed write")
			h.unregister(projectID, c)
		}
	}
	return nil
}

// ClientCount returns the number of live connections for a project.
func (h *Hub) ClientCount(projectID seating.ProjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[projectID])
}

func (h *Hub) register(projectID seating.ProjectID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[projectID] == nil {
		h.clients[projectID] = make(map[*client]struct{})
	}
	h.clients[projectID][c] = struct{}{}
}

func (h *Hub) unregister(projectID seating.ProjectID, c *client) {
	h.mu.Lock()
	if set, ok := h.clients[projectID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			c.conn.Close()
		}
		if len(set) == 0 {
			delete(h.clients, projectID)
		}
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and keeps the connection registered under
// projectID until the peer goes away. Incoming messages are ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, projectID seating.ProjectID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("project_id", string(projectID)).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.register(projectID, c)
	defer func() {
		h.unregister(projectID, c)
		h.logger.Debug().Str("project_id", string(projectID)).Msg("websocket connection closed")
	}()

	if err := c.writeJSON(newMessage(projectID, "connected", nil)); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Str("project_id", string(projectID)).Msg("websocket read error")
			}
			return
		}
	}
}
