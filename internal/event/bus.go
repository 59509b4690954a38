// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package event implements the per-instance event bus that delivers named
// player lifecycle events to script subscribers.
package event

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/handle"
)

// Callback receives an event payload.
type Callback func(ctx context.Context, payload any) error

type subscription struct {
	id handle.ID
	cb Callback
}

// Bus maps event names to ordered subscriber lists.
//
// Emit invokes the subscribers registered when emission starts; callbacks
// added or removed during an emission take effect from the next one.
// Bus is safe for concurrent use, though in practice it is driven from
// its instance's script loop.
type Bus struct {
	source   string
	reporter fault.Reporter
	handles  *handle.Registry

	mu     sync.RWMutex
	subs   map[Name][]subscription
	closed bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithReporter sets where callback failures are reported.
func WithReporter(r fault.Reporter) Option {
	return func(b *Bus) {
		b.reporter = r
	}
}

// WithSource sets the source label used in failure reports.
func WithSource(source string) Option {
	return func(b *Bus) {
		b.source = source
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		source:   "event",
		reporter: fault.Discard,
		handles:  handle.NewRegistry("evt"),
		subs:     make(map[Name][]subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On subscribes cb to name and returns a handle for Off.
func (b *Bus) On(name Name, cb Callback) (handle.ID, error) {
	if name == "" {
		return "", fault.InvalidArgument("event name is empty")
	}
	if cb == nil {
		return "", fault.InvalidArgument("callback for %s is nil", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", oops.Code(fault.CodeResource).
			In("event").
			With("event", string(name)).
			Errorf("event bus is closed")
	}

	id := b.handles.Issue()
	b.subs[name] = append(b.subs[name], subscription{id: id, cb: cb})
	return id, nil
}

// Off removes the subscription id from name. Unknown ids, and ids
// registered under a different name, are ignored.
func (b *Bus) Off(name Name, id handle.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, name)
		} else {
			b.subs[name] = next
		}
		b.handles.Revoke(id)
		return true
	}
	return false
}

// Emit delivers payload to every subscriber of name in registration order
// and returns how many callbacks were invoked. A failing callback is
// reported and does not stop delivery to the rest.
func (b *Bus) Emit(ctx context.Context, name Name, payload any) (int, error) {
	payload, err := CheckPayload(name, payload)
	if err != nil {
		return 0, err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0, nil
	}
	// Off replaces the slice rather than mutating it, so this is a snapshot.
	snapshot := b.subs[name]
	b.mu.RUnlock()

	recordEmission(name)
	for _, s := range snapshot {
		b.invoke(ctx, name, s, payload)
	}
	return len(snapshot), nil
}

func (b *Bus) invoke(ctx context.Context, name Name, s subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			CallbackFailures.Inc()
			b.reporter.Report(b.source, fault.Callback(b.source, string(name),
				oops.With("subscription", string(s.id)).
					With("stack", string(debug.Stack())).
					Errorf("panic: %v", r)))
		}
	}()
	if err := s.cb(ctx, payload); err != nil {
		CallbackFailures.Inc()
		b.reporter.Report(b.source, fault.Callback(b.source, string(name),
			oops.With("subscription", string(s.id)).Wrap(err)))
	}
}

// Count returns the number of subscribers for name.
func (b *Bus) Count(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Names returns every name with at least one subscriber.
func (b *Bus) Names() []Name {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Name, 0, len(b.subs))
	for name := range b.subs {
		out = append(out, name)
	}
	return out
}

// Close revokes every subscription. Later calls to On fail and Emit
// delivers nothing.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[Name][]subscription)
	b.handles.RevokeAll()
}
