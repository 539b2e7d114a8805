package event

import (
	"sync"
)

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes the event
	Handle(event DomainEvent) error
	// HandledEvents returns the event names this handler handles
	HandledEvents() []string
}

// EventDispatcher dispatches domain events to registered handlers
type EventDispatcher interface {
	// Dispatch sends an event to all registered handlers
	Dispatch(event DomainEvent)
	// Subscribe registers a handler for events
	Subscribe(handler EventHandler)
	// Unsubscribe removes a handler
	Unsubscribe(handler EventHandler)
}

// InMemoryDispatcher delivers events synchronously, in subscription order.
// Handler errors are passed to the optional error hook and never stop delivery.
type InMemoryDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	onError  func(event DomainEvent, err error)
}

// NewInMemoryDispatcher creates a new InMemoryDispatcher
func NewInMemoryDispatcher() *InMemoryDispatcher {
	return &InMemoryDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// OnError sets a hook that receives handler failures
func (d *InMemoryDispatcher) OnError(fn func(event DomainEvent, err error)) {
	d.mu.Lock()
	d.onError = fn
	d.mu.Unlock()
}

// Dispatch sends an event to all registered handlers
func (d *InMemoryDispatcher) Dispatch(event DomainEvent) {
	d.mu.RLock()
	named := d.handlers[event.EventName()]
	all := d.handlers[NameAll]
	combined := make([]EventHandler, 0, len(named)+len(all))
	combined = append(combined, named...)
	combined = append(combined, all...)
	onError := d.onError
	d.mu.RUnlock()

	for _, handler := range combined {
		if err := handler.Handle(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// Subscribe registers a handler for events
func (d *InMemoryDispatcher) Subscribe(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, eventName := range handler.HandledEvents() {
		d.handlers[eventName] = append(d.handlers[eventName], handler)
	}
}

// Unsubscribe removes a handler
func (d *InMemoryDispatcher) Unsubscribe(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, eventName := range handler.HandledEvents() {
		handlers := d.handlers[eventName]
		for i, h := range handlers {
			if h == handler {
				kept := make([]EventHandler, 0, len(handlers)-1)
				kept = append(kept, handlers[:i]...)
				d.handlers[eventName] = append(kept, handlers[i+1:]...)
				break
			}
		}
	}
}

// NullDispatcher is a no-op dispatcher for when events are not needed
type NullDispatcher struct{}

// NewNullDispatcher creates a new NullDispatcher
func NewNullDispatcher() *NullDispatcher {
	return &NullDispatcher{}
}

// Dispatch does nothing
func (d *NullDispatcher) Dispatch(event DomainEvent) {}

// Subscribe does nothing
func (d *NullDispatcher) Subscribe(handler EventHandler) {}

// Unsubscribe does nothing
func (d *NullDispatcher) Unsubscribe(handler EventHandler) {}
