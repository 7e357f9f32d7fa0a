// Package ws implements the broadcast gateway: room-scoped push
// delivery to connected clients over websockets. The core never calls
// into this package; the HTTP handlers do, after a successful mutation.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is the envelope delivered to every client attached to a room.
type Event struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Payload any    `json:"payload,omitempty"`
}

// Hub fans events out to the clients attached to each room name.
// Delivery is fire-and-forget: a client that cannot keep up has the
// frame dropped and, past that, is detached.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	bufFrames int
}

func NewHub(bufFrames int) *Hub {
	if bufFrames <= 0 {
		bufFrames = 32
	}
	return &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		bufFrames: bufFrames,
	}
}

func (h *Hub) attach(roomName string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomName]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[roomName] = clients
	}
	clients[c] = struct{}{}
	log.Info().Str("module", "adapters.ws").Str("room", roomName).Int("clients", len(clients)).Msg("client attached")
}

func (h *Hub) detach(roomName string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomName]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, roomName)
	}
	log.Info().Str("module", "adapters.ws").Str("room", roomName).Msg("client detached")
}

// BroadcastToRoom delivers one event to every client in the room.
// Slow clients get the frame dropped rather than blocking the caller.
func (h *Hub) BroadcastToRoom(roomName, eventName string, payload any) {
	data, err := json.Marshal(Event{Type: eventName, Room: roomName, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Str("event", eventName).Msg("marshal event")
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomName]))
	for c := range h.rooms[roomName] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent, dropped := 0, 0
	for _, c := range clients {
		if err := c.TrySend(data); err != nil {
			dropped++
			continue
		}
		sent++
	}
	if dropped > 0 {
		log.Warn().Str("module", "adapters.ws").Str("room", roomName).Int("sent", sent).Int("dropped", dropped).Msg("broadcast backpressure")
	}
}

// RoomClientCount reports attached socket clients, which can differ
// from room participants (one participant may hold several tabs).
func (h *Hub) RoomClientCount(roomName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomName])
}

// Shutdown closes every client connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, clients := range h.rooms {
		for c := range clients {
			c.Close()
		}
		delete(h.rooms, name)
	}
}
