package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development, restrict in production
		return true
	},
}

// ServeFeed upgrades the request and attaches the client to a review's
// change-feed room. The feed is read-only public data, so no auth is
// required to watch it.
func ServeFeed(hub *Hub, reviewID string, w http.ResponseWriter, r *http.Request) {
	if reviewID == "" {
		http.Error(w, "Review ID required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := NewClient(hub, conn, reviewID)
	client.hub.register <- client

	go client.Start()
}
