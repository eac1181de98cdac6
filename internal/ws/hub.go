package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Khambazarov/realtime-chat-app/internal/metrics"
)

// Event is the wire envelope for server-to-client notifications.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub fans events out to broadcast groups. A connection is registered under
// one group per chatroom membership plus a group keyed by the user's own id,
// which carries out-of-band control events such as forced disconnection.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, g := range c.groups {
		clients := h.groups[g]
		if clients == nil {
			clients = make(map[*Client]struct{})
			h.groups[g] = clients
		}
		clients[c] = struct{}{}
	}
	metrics.WsConnections.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked detaches the client from every group and closes its send
// channel exactly once. Callers hold h.mu.
func (h *Hub) removeLocked(c *Client) {
	if c.removed {
		return
	}
	c.removed = true
	for _, g := range c.groups {
		if clients, ok := h.groups[g]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.groups, g)
			}
		}
	}
	close(c.send)
	metrics.WsConnections.Dec()
}

// Broadcast sends an event to every connection in the group. A client whose
// send buffer is full is dropped rather than allowed to stall the others.
func (h *Hub) Broadcast(group, event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal ws event")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.groups[group] {
		select {
		case c.send <- payload:
		default:
			h.removeLocked(c)
		}
	}
}

// DisconnectGroup forcibly closes every connection in the group. Used with a
// user-id group when the account is deleted.
func (h *Hub) DisconnectGroup(group string) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		clients = append(clients, c)
	}
	for _, c := range clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// Online reports the number of connections currently in the group.
func (h *Hub) Online(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
