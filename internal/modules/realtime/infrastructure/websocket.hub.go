package infrastructure

import (
	"log/slog"
	"sync"

	"primeNotify/internal/modules/realtime/domain"
)

// Hub owns the userId→socket map. One live socket per user: a new connection
// for a user evicts the previous one. The map is mutated only from the
// connection and close paths, never from consumers.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register attaches the client, evicting any previous socket for the same
// user. The evicted socket receives an explicit close frame so the client
// knows it was replaced rather than dropped.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	existing := h.clients[c.userID]
	h.clients[c.userID] = c
	h.mu.Unlock()

	if existing != nil && existing != c {
		existing.closeEvicted()
		slog.Info("ws client evicted by newer connection", slog.String("userId", c.userID))
	}
	slog.Info("ws client registered", slog.String("userId", c.userID))
}

// Unregister removes the client if it is still the user's current socket. A
// client evicted by a newer connection must not remove its replacement.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.userID] == c {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()
	c.close()
	slog.Info("ws client detached", slog.String("userId", c.userID))
}

// SendToUser delivers a frame to the user's live socket, if any. Users
// without a socket are silently skipped: live delivery is best effort and the
// store remains the durable record.
func (h *Hub) SendToUser(userID string, msg *domain.ServerMessage) {
	h.mu.RLock()
	c := h.clients[userID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	c.Send(msg)
}

// Connected reports whether the user currently has a live socket.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[userID] != nil
}

// Close detaches every client; used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
