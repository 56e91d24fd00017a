package websocket

import (
	"log"
	"sync"

	"reelview/internal/model"
)

// Hub maintains per-review rooms and broadcasts comment change events to the
// clients watching each review.
type Hub struct {
	// Connected clients grouped by review ID
	rooms map[string]map[*Client]bool

	// Outbound change events
	broadcast chan *roomEvent

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

type roomEvent struct {
	ReviewID string
	Event    model.FeedEvent
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *roomEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.ReviewID] == nil {
				h.rooms[client.ReviewID] = make(map[*Client]bool)
			}
			h.rooms[client.ReviewID][client] = true
			h.mu.Unlock()
			log.Printf("Feed client registered: review=%s, watchers=%d", client.ReviewID, h.RoomSize(client.ReviewID))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.ReviewID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.ReviewID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Feed client unregistered: review=%s", client.ReviewID)

		case ev := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[ev.ReviewID] {
				select {
				case client.send <- ev.Event:
				default:
					close(client.send)
					delete(h.rooms[ev.ReviewID], client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastEvent pushes one change-feed event to every watcher of a review.
func (h *Hub) BroadcastEvent(reviewID string, ev model.FeedEvent) {
	select {
	case h.broadcast <- &roomEvent{ReviewID: reviewID, Event: ev}:
	default:
		log.Printf("Broadcast channel full, dropping feed event for review: %s", reviewID)
	}
}

// RoomSize returns the number of clients watching a review
func (h *Hub) RoomSize(reviewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[reviewID])
}

// TotalClients returns the total number of connected clients
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, clients := range h.rooms {
		count += len(clients)
	}
	return count
}
