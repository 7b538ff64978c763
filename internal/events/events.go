// Package events implements the lifecycle event bus of the registry.
//
// Listeners are kept per event name in registration order. Dispatch is
// synchronous: every live listener runs on the dispatching goroutine, in
// order, with the same *Event, so later listeners observe changes made by
// earlier ones. There is no queuing.
package events

import "sync"

// Lifecycle event names.
const (
	Create       = "create"
	Include      = "include"
	IncludeError = "includeError"
	Provide      = "provide"
	Use          = "use"
)

// Names lists every lifecycle event in a stable order.
var Names = []string{Create, Include, IncludeError, Provide, Use}

// Event carries the properties of one dispatch. Name is stamped by Dispatch.
type Event struct {
	Name        string
	Identifier  string
	Identifiers []string // use events: the original argument
	URI         string
	Async       bool
	Status      int    // includeError only
	LoadID      string // include and includeError
	Values      map[string]any
}

// Set stores an arbitrary property for later listeners.
func (e *Event) Set(key string, value any) {
	if e.Values == nil {
		e.Values = make(map[string]any)
	}
	e.Values[key] = value
}

// Get reads a property stored with Set.
func (e *Event) Get(key string) (any, bool) {
	v, ok := e.Values[key]
	return v, ok
}

// ListenerFunc receives dispatched events.
type ListenerFunc func(*Event)

// Handle identifies one registration. Removal matches handles by pointer.
type Handle struct {
	fn ListenerFunc
}

// Bus holds one ordered listener table per event name.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]*Handle
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]*Handle)}
}

// Add appends fn to the channel called name, creating the channel on first use.
func (b *Bus) Add(name string, fn ListenerFunc) *Handle {
	h := &Handle{fn: fn}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], h)
	return h
}

// Remove clears the first slot of channel name holding h. The slot stays in
// place so positions of the remaining listeners never shift during dispatch.
func (b *Bus) Remove(name string, h *Handle) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, slot := range b.listeners[name] {
		if slot == h {
			b.listeners[name][i] = nil
			return
		}
	}
}

// Len returns the number of live listeners on channel name.
func (b *Bus) Len(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, h := range b.listeners[name] {
		if h != nil {
			n++
		}
	}
	return n
}

// Dispatch delivers e to every live listener of channel name. It is a no-op
// when the channel has never had a listener. Listeners added while a dispatch
// is running are reached by that dispatch; removed ones are skipped.
func (b *Bus) Dispatch(name string, e *Event) {
	b.mu.RLock()
	_, ok := b.listeners[name]
	b.mu.RUnlock()
	if !ok {
		return
	}

	e.Name = name
	for i := 0; ; i++ {
		b.mu.RLock()
		slots := b.listeners[name]
		if i >= len(slots) {
			b.mu.RUnlock()
			return
		}
		h := slots[i]
		b.mu.RUnlock()

		if h != nil {
			h.fn(e)
		}
	}
}
