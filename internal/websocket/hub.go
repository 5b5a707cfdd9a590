// internal/websocket/hub.go
package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/metrics"
	"github.com/retea-se/halo-3c-dashboard/internal/storage"
)

// Hub maintains the set of active clients and broadcasts event messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte  // Channel for messages to broadcast
	register   chan *Client // Channel for registering clients
	unregister chan *Client // Channel for unregistering clients
	history    *storage.EventBuffer
	mu         sync.RWMutex
}

// NewHub builds a hub. history may be nil; new clients then get no backlog.
func NewHub(history *storage.EventBuffer) *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		history:    history,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			metrics.WebsocketClients.Set(float64(len(h.clients)))
			log.Printf("WebSocket client registered: %s", client.Conn.RemoteAddr())
			h.mu.Unlock()
			h.sendInitialData(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				metrics.WebsocketClients.Set(float64(len(h.clients)))
				log.Printf("WebSocket client unregistered: %s", client.Conn.RemoteAddr())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Assume client is blocked or gone, unregister
					log.Printf("WebSocket client %s send buffer full or closed, removing.", client.Conn.RemoteAddr())
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// sendInitialData greets a new client and replays the recent event backlog.
func (h *Hub) sendInitialData(client *Client) {
	greeting, err := json.Marshal(map[string]any{
		"type":    "connected",
		"message": "Connected to event stream",
	})
	if err == nil {
		select {
		case client.Send <- greeting:
		default:
		}
	}

	if h.history == nil {
		return
	}
	for _, ev := range h.history.Recent(50) {
		msg, err := json.Marshal(map[string]any{"type": "new_event", "event": ev})
		if err != nil {
			continue
		}
		select {
		case client.Send <- msg:
		default:
			return
		}
	}
}

// RegisterClient safely registers a new client to the hub
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastNewEvent pushes one derived event to every connected client and
// records it in the replay history.
func (h *Hub) BroadcastNewEvent(ev events.Event) {
	if h.history != nil {
		h.history.Add(ev)
	}
	messageBytes, err := json.Marshal(map[string]any{"type": "new_event", "event": ev})
	if err != nil {
		log.Printf("Error marshalling event for broadcast: %v", err)
		return
	}
	h.broadcast <- messageBytes
}

// BroadcastStatus pushes a device status update (heartbeat, occupancy) to
// every connected client.
func (h *Hub) BroadcastStatus(kind string, payload any) {
	messageBytes, err := json.Marshal(map[string]any{"type": kind, "payload": payload})
	if err != nil {
		log.Printf("Error marshalling %s for broadcast: %v", kind, err)
		return
	}
	h.broadcast <- messageBytes
}
