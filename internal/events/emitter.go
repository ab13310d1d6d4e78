package events

import (
	"OrderPulse/entity"
	"OrderPulse/internal/ws"
)

// Emitter decouples ingestion from the real-time transport. Delivery is
// fire-and-forget: implementations must never block the caller or surface
// transport errors back to it.
type Emitter interface {
	NewMessage(tenant string, payload entity.NewMessageEvent)
	OrderDetected(tenant string, payload entity.OrderDetectedEvent)
	ConversationUpdated(tenant string, payload entity.ConversationUpdatedEvent)
}

// HubEmitter publishes events to the websocket hub.
type HubEmitter struct {
	hub *ws.Hub
}

func NewHubEmitter(hub *ws.Hub) *HubEmitter {
	return &HubEmitter{hub: hub}
}

func (e *HubEmitter) NewMessage(tenant string, payload entity.NewMessageEvent) {
	e.hub.Broadcast(tenant, entity.EventNewMessage, payload)
}

func (e *HubEmitter) OrderDetected(tenant string, payload entity.OrderDetectedEvent) {
	e.hub.Broadcast(tenant, entity.EventOrderDetected, payload)
}

func (e *HubEmitter) ConversationUpdated(tenant string, payload entity.ConversationUpdatedEvent) {
	e.hub.Broadcast(tenant, entity.EventConversationUpdated, payload)
}

// Multi fans one event out to several emitters in order.
type Multi struct {
	emitters []Emitter
}

func NewMulti(emitters ...Emitter) *Multi {
	return &Multi{emitters: emitters}
}

func (m *Multi) NewMessage(tenant string, payload entity.NewMessageEvent) {
	for _, e := range m.emitters {
		e.NewMessage(tenant, payload)
	}
}

func (m *Multi) OrderDetected(tenant string, payload entity.OrderDetectedEvent) {
	for _, e := range m.emitters {
		e.OrderDetected(tenant, payload)
	}
}

func (m *Multi) ConversationUpdated(tenant string, payload entity.ConversationUpdatedEvent) {
	for _, e := range m.emitters {
		e.ConversationUpdated(tenant, payload)
	}
}

// Noop discards all events. Used when no transport is configured and in
// tests.
type Noop struct{}

func (Noop) NewMessage(string, entity.NewMessageEvent)                   {}
func (Noop) OrderDetected(string, entity.OrderDetectedEvent)             {}
func (Noop) ConversationUpdated(string, entity.ConversationUpdatedEvent) {}
