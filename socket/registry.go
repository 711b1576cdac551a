package socket

import (
	"sort"
	"sync"
)

// Registry maps event names to a single handler each. The lock is held only
// for the map operation itself, never while a handler runs, so a handler may
// register further handlers on the same registry.
type Registry[H any] struct {
	mu       sync.Mutex
	handlers map[string]H
}

func NewRegistry[H any]() *Registry[H] {
	return &Registry[H]{
		handlers: make(map[string]H),
	}
}

// Register installs h for name, replacing any earlier handler.
func (r *Registry[H]) Register(name string, h H) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry[H]) Lookup(name string) (H, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry[H]) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

func (r *Registry[H]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// Names returns the registered event names in sorted order.
func (r *Registry[H]) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}
