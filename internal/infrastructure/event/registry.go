package event

import (
	"sync"

	"github.com/billing/backend/internal/domain/shared"
)

// HandlerRegistry tracks which handlers listen to which event types.
// Handlers registered without event types receive every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	catchAll []shared.EventHandler
}

// NewHandlerRegistry creates an empty handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		byType: make(map[string][]shared.EventHandler),
	}
}

// Register adds a handler for the given event types, or as a catch-all
// handler when no types are given.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.catchAll = append(r.catchAll, handler)
		return
	}
	for _, eventType := range eventTypes {
		r.byType[eventType] = append(r.byType[eventType], handler)
	}
}

// Unregister removes a handler from every subscription
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.catchAll = without(r.catchAll, handler)
	for eventType, handlers := range r.byType {
		r.byType[eventType] = without(handlers, handler)
		if len(r.byType[eventType]) == 0 {
			delete(r.byType, eventType)
		}
	}
}

// HandlersFor returns the handlers subscribed to an event type,
// catch-all handlers included.
func (r *HandlerRegistry) HandlersFor(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.byType[eventType]
	result := make([]shared.EventHandler, 0, len(typed)+len(r.catchAll))
	result = append(result, typed...)
	result = append(result, r.catchAll...)
	return result
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	result := make([]shared.EventHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != target {
			result = append(result, h)
		}
	}
	return result
}
