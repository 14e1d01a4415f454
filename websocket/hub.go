package websocket

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("hub is closed")

// Hub is the presence directory: which users have live connections in this
// process. A user may hold several connections at once.
type Hub struct {
	mu        sync.RWMutex
	userConns map[int64]map[*Client]struct{}
	closed    bool
	log       *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		userConns: make(map[int64]map[*Client]struct{}),
		log:       log,
	}
}

// Join registers client under its user id.
func (h *Hub) Join(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	conns := h.userConns[client.UserID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.userConns[client.UserID] = conns
	}
	conns[client] = struct{}{}
	return nil
}

// Leave removes client and stops its writer. Leaving twice is harmless.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	if conns, ok := h.userConns[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userConns, client.UserID)
		}
	}
	h.mu.Unlock()
	client.close()
}

func (h *Hub) IsPresent(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// ConnectionsFor returns a snapshot of userID's connections.
func (h *Hub) ConnectionsFor(userID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.userConns[userID]))
	for c := range h.userConns[userID] {
		out = append(out, c)
	}
	return out
}

// SendToUser queues msg on every connection of userID and reports how many
// accepted it.
func (h *Hub) SendToUser(userID int64, msg *Message) int {
	clients := h.ConnectionsFor(userID)
	if len(clients) == 0 {
		return 0
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode frame", zap.String("event", msg.Event), zap.Error(err))
		return 0
	}

	sent := 0
	for _, c := range clients {
		if c.Send(data) {
			sent++
		}
	}
	return sent
}

// Close disconnects every client and refuses further joins.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, conns := range h.userConns {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.userConns = make(map[int64]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}
