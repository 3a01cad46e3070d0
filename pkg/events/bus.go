package events

import (
	"sync"

	gonanoid "github.com/matoous/go-nanoid"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/logger"
)

// EventType identifies a call lifecycle event.
type EventType string

const (
	EventCallStarted       EventType = "call.started"
	EventCallEnded         EventType = "call.ended"
	EventCallEscalated     EventType = "call.escalated"
	EventAIConnected       EventType = "ai.connected"
	EventAIDisconnected    EventType = "ai.disconnected"
	EventAIReconnectFailed EventType = "ai.reconnect_failed"
	EventResponseCompleted EventType = "response.completed"
)

// Event carries the payload published on the bus. ID is a short unique
// tag assigned at publish time so subscribers can correlate log lines.
type Event struct {
	ID      string
	Type    EventType
	CallID  string
	Payload map[string]any
}

// Handler receives published events. Handlers must not block.
type Handler func(Event)

// Bus is an in-process publish/subscribe hub for call lifecycle events.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers an event to all handlers registered for its type.
// Handler panics are recovered so one bad subscriber cannot take down
// the publishing goroutine.
func (b *Bus) Publish(ev Event) {
	if ev.ID == "" {
		if id, err := gonanoid.Nanoid(12); err == nil {
			ev.ID = id
		}
	}

	b.mu.RLock()
	hs := make([]Handler, len(b.handlers[ev.Type]))
	copy(hs, b.handlers[ev.Type])
	b.mu.RUnlock()

	for _, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event handler panic",
						zap.String("event", string(ev.Type)),
						zap.Any("panic", r))
				}
			}()
			h(ev)
		}()
	}
}
