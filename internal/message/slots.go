// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package message

import (
	"sort"
	"sync"
)

// Handler receives the data of an inbound message.
type Handler func(data any) error

// Slots maps a message name to at most one handler. Registering a handler
// for a name replaces the previous one; handlers never accumulate.
//
// Slots is safe for concurrent use.
type Slots struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewSlots creates an empty handler table.
func NewSlots() *Slots {
	return &Slots{handlers: make(map[string]Handler)}
}

// Set installs h for name and reports whether it replaced an earlier
// handler. A nil h clears the slot.
func (s *Slots) Set(name string, h Handler) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced = s.handlers[name]
	if h == nil {
		delete(s.handlers, name)
		return replaced
	}
	s.handlers[name] = h
	return replaced
}

// Get returns the handler for name.
func (s *Slots) Get(name string) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[name]
	return h, ok
}

// Dispatch calls the handler for name with data. It reports whether a
// handler was registered, along with the handler's error.
func (s *Slots) Dispatch(name string, data any) (bool, error) {
	h, ok := s.Get(name)
	if !ok {
		return false, nil
	}
	return true, h(data)
}

// Names returns the registered names in sorted order.
func (s *Slots) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every handler.
func (s *Slots) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = make(map[string]Handler)
}
