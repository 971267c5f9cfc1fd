package sse

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is a Server-Sent Event: a named event type plus a JSON payload.
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// NewEvent marshals payload into an Event. Marshal failures degrade to an
// empty object rather than failing the caller; notifications are best-effort
// and must never propagate errors into the owning operation.
func NewEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[SSE] marshal failed for %s: %v", eventType, err)
		data = []byte("{}")
	}
	return Event{EventType: eventType, Data: string(data)}
}

// LocationTopic names the per-location topic inventory events are scoped to.
func LocationTopic(locationID string) string {
	return "warehouse-" + locationID
}

// Client is one connected SSE subscriber. Topics it has joined receive
// topic-scoped events in addition to global broadcasts.
type Client struct {
	ID     string
	UserID string
	Topics map[string]bool
	Events chan Event
}

// Hub manages all SSE client connections and fans events out to them.
// Sends are non-blocking: a client with a full buffer misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client.Topics == nil {
		client.Topics = make(map[string]bool)
	}
	h.clients[client.ID] = client
	log.Printf("[SSE] Client registered: id=%s user=%s (total: %d)", client.ID, client.UserID, len(h.clients))
}

// Unregister removes a client from the hub and closes its event channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		log.Printf("[SSE] Client unregistered: id=%s (total: %d)", clientID, len(h.clients))
	}
}

// Subscribe joins a client to a topic.
func (h *Hub) Subscribe(clientID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		client.Topics[topic] = true
	}
}

// Publish sends an event to every connected client.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.send(client, event)
	}
}

// PublishTopic sends an event only to clients subscribed to topic.
func (h *Hub) PublishTopic(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.Topics[topic] {
			h.send(client, event)
		}
	}
}

func (h *Hub) send(client *Client, event Event) {
	select {
	case client.Events <- event:
	default:
		log.Printf("[SSE] Client %s buffer full, skipping event", client.ID)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
