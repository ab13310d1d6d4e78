package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is one real-time event pushed to inbox clients.
type Event struct {
	Type   string      `json:"type"`
	Tenant string      `json:"tenant"`
	Data   interface{} `json:"data"`
}

// Hub maintains the set of active websocket clients and broadcasts events to
// the clients of one tenant. The single broadcast loop preserves per-tenant
// publish order.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if client.tenant != event.Tenant {
					continue
				}
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues an event for a tenant's clients. Non-blocking: when the
// hub buffer is full the event is dropped and logged, never propagated back
// to the publisher.
func (h *Hub) Broadcast(tenant, eventType string, payload interface{}) {
	event := &Event{
		Type:   eventType,
		Tenant: tenant,
		Data:   payload,
	}
	select {
	case h.broadcast <- event:
	default:
		if h.log != nil {
			h.log.Warn("ws broadcast buffer full, dropping event",
				slog.String("tenant", tenant),
				slog.String("type", eventType),
			)
		}
	}
}
