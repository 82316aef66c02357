package ws

import (
	"sync"
	"time"

	"voxelhunt/internal/match"
)

// StateSource answers get-game-state for one player.
type StateSource interface {
	GameState(gameID, address string) (match.State, error)
}

// Hub tracks feed clients per game and owns the push interval.
type Hub struct {
	source   StateSource
	interval time.Duration

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func NewHub(source StateSource, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = time.Second
	}
	return &Hub{
		source:   source,
		interval: interval,
		clients:  make(map[string]map[*Client]struct{}),
		done:     make(chan struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.GameID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.GameID] = set
	}
	set[c] = struct{}{}
	FeedClients.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.GameID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.GameID)
	}
	FeedClients.Dec()
}

// Count returns the open feeds watching gameID.
func (h *Hub) Count(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[gameID])
}

// Close tells every client to send a close frame and stop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
