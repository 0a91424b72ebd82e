// Package ws owns the socket transport: one hub per process, one client per
// authenticated connection. Higher layers emit through the hub and never
// touch connections directly.
package ws

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/telemetry"
)

// Hub routes framed events to connected clients, keyed by user ID. A user
// may hold several connections (multiple tabs); every one receives the
// user's events.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[string]map[*Client]bool // userID -> connections

	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// NewHub builds a hub. Run must be started before clients attach.
func NewHub(logger zerolog.Logger, metrics *telemetry.Metrics) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]bool),
		logger:     logger.With().Str("component", "hub").Logger(),
		metrics:    metrics,
	}
}

// Run processes attach/detach until ctx is cancelled, then closes every
// remaining connection. Once it returns, Register and Unregister stop
// blocking so per-connection teardown can still finish during shutdown.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.attach(client)
		case client := <-h.unregister:
			h.detach(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register attaches a client to the hub. A client arriving after shutdown is
// closed immediately instead of being attached.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
		_ = client.conn.Close()
	}
}

// Unregister detaches a client and closes its send queue. After shutdown
// this is a no-op: closeAll already released every connection.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToUser queues env on every connection the user holds. Users without a
// connection are skipped; a connection with a full queue is dropped, the
// same policy as a dead one.
func (h *Hub) SendToUser(userID string, env models.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(userID, env)
}

// SendToUsers queues env for each listed user.
func (h *Hub) SendToUsers(userIDs []string, env models.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range userIDs {
		h.sendLocked(id, env)
	}
}

// IsOnline reports whether the user holds at least one connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) sendLocked(userID string, env models.Envelope) {
	for client := range h.clients[userID] {
		select {
		case client.send <- env:
			h.metrics.EventsOut.WithLabelValues(env.Event).Inc()
		default:
			// Slow consumer: drop the connection rather than block the hub.
			h.logger.Warn().Str("user", userID).Msg("send queue full, dropping connection")
			h.detachLocked(client)
		}
	}
}

func (h *Hub) attach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.session.UserID] == nil {
		h.clients[client.session.UserID] = make(map[*Client]bool)
	}
	h.clients[client.session.UserID][client] = true
	h.metrics.ConnectedClients.Inc()
	h.logger.Debug().Str("user", client.session.UserID).Msg("client attached")
}

func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(client)
}

func (h *Hub) detachLocked(client *Client) {
	connections, ok := h.clients[client.session.UserID]
	if !ok || !connections[client] {
		return
	}
	delete(connections, client)
	if len(connections) == 0 {
		delete(h.clients, client.session.UserID)
	}
	close(client.send)
	h.metrics.ConnectedClients.Dec()
	h.logger.Debug().Str("user", client.session.UserID).Msg("client detached")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, connections := range h.clients {
		for client := range connections {
			close(client.send)
			_ = client.conn.Close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
