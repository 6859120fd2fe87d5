package events

import (
	"log/slog"
	"sort"
	"sync"
)

// Handler receives a dispatched message.
type Handler func(Message)

// Subscriber is anything handlers can be registered with. Both *Registry
// and the connection manager satisfy it.
type Subscriber interface {
	On(eventType string, h Handler) Subscription
}

// Subscription identifies one registration. The zero value matches nothing.
type Subscription struct {
	eventType string
	id        uint64
}

// EventType returns the event type the subscription was registered under.
func (s Subscription) EventType() string {
	return s.eventType
}

type entry struct {
	id      uint64
	handler Handler
}

// Registry maps event types to ordered handler lists.
type Registry struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:   logger,
		handlers: make(map[string][]entry),
	}
}

// On appends h to the handler list for eventType.
func (r *Registry) On(eventType string, h Handler) Subscription {
	if h == nil {
		return Subscription{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.handlers[eventType] = append(r.handlers[eventType], entry{id: r.nextID, handler: h})

	return Subscription{eventType: eventType, id: r.nextID}
}

// Off removes the registration identified by sub.
// Returns false if it was already removed or never existed.
func (r *Registry) Off(sub Subscription) bool {
	if sub.id == 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.handlers[sub.eventType]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		// Copy so in-flight snapshots keep their view.
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(r.handlers, sub.eventType)
		} else {
			r.handlers[sub.eventType] = next
		}
		return true
	}

	return false
}

// Trigger invokes every handler registered for eventType, in order.
// Handlers run outside the lock, so they may call On or Off.
func (r *Registry) Trigger(eventType string, msg Message) (delivered, failed int) {
	r.mu.RLock()
	list := r.handlers[eventType]
	r.mu.RUnlock()

	for _, e := range list {
		if r.invoke(eventType, e.handler, msg) {
			delivered++
		} else {
			failed++
		}
	}

	return delivered, failed
}

// invoke runs one handler and reports whether it returned normally.
func (r *Registry) invoke(eventType string, h Handler, msg Message) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("event handler panicked",
				"event_type", eventType,
				"message_id", msg.ID,
				"panic", p,
			)
			ok = false
		}
	}()

	h(msg)
	return true
}

// Len returns the number of handlers registered for eventType.
func (r *Registry) Len(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[eventType])
}

// Types returns the event types that have at least one handler, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	r.mu.RUnlock()

	sort.Strings(types)
	return types
}
