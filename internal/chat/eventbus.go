package chat

import (
	"sync"
	"time"
)

// EventType represents the type of chat event.
type EventType string

const (
	EventTurnStart          EventType = "turn_start"
	EventMemoriesInjected   EventType = "memories_injected"
	EventAttachmentIngested EventType = "attachment_ingested"
	EventProviderChunk      EventType = "provider_chunk"
	EventTurnComplete       EventType = "turn_complete"
	EventTurnError          EventType = "turn_error"
)

// Event represents a chat event with associated data.
type Event struct {
	Type      EventType
	Timestamp time.Time
	ChatID    string
	Data      map[string]any
}

// EventHandler is a function that handles events.
type EventHandler func(Event)

// EventBus manages event publication and subscription.
// Handlers run synchronously on the publishing goroutine.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type.
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types.
func (eb *EventBus) SubscribeAll(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allHandlers = append(eb.allHandlers, handler)
}

// Publish sends an event to all registered handlers.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, handler := range eb.handlers[event.Type] {
		handler(event)
	}
	for _, handler := range eb.allHandlers {
		handler(event)
	}
}

// PublishWithData publishes an event with associated data.
func (eb *EventBus) PublishWithData(eventType EventType, chatID string, data map[string]any) {
	eb.Publish(Event{
		Type:   eventType,
		ChatID: chatID,
		Data:   data,
	})
}
