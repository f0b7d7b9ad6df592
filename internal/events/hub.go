package events

import (
	"context"
	"log/slog"
	"sync"
)

const subscriberBuffer = 32

// Hub delivers events to live subscribers of the event's user.
// Slow subscribers lose events rather than block the publisher.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Event)}
}

// Subscribe returns a channel of the user's events and a function that ends the subscription.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan Event)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscriptions for a user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// LogEvent publishes the event to the user's subscribers.
func (h *Hub) LogEvent(_ context.Context, event Event) error {
	if err := event.fill(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[event.UserID] {
		select {
		case ch <- event:
		default:
			slog.Warn("dropping event for slow subscriber", "user_id", event.UserID, "type", event.Type)
		}
	}
	return nil
}
