package ws

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub fans booking events out to WebSocket clients, keyed by booking id.
// Every subscriber of a topic receives every event; a client whose send
// buffer is full is skipped rather than blocking the broadcast.
type Hub struct {
	log *logrus.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // booking id -> subscribers
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[string]map[*Client]struct{}),
	}
}

// Register subscribes a client to its booking topic
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.BookingID] == nil {
		h.clients[client.BookingID] = make(map[*Client]struct{})
	}
	h.clients[client.BookingID][client] = struct{}{}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.clients[client.BookingID]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}

	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(h.clients, client.BookingID)
	}
	close(client.send)
}

// Broadcast delivers a raw event payload to every subscriber of a booking
func (h *Hub) Broadcast(bookingID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[bookingID] {
		select {
		case client.send <- payload:
		default:
			// Slow client; drop rather than block the fan-out
		}
	}
}

// SubscriberCount reports how many clients follow a booking
func (h *Hub) SubscriberCount(bookingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[bookingID])
}
