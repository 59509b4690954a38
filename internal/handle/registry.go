// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package handle issues and revokes opaque subscription identifiers.
package handle

import (
	"strconv"
	"sync"
)

// ID is an opaque subscription identifier.
type ID string

// Registry mints identifiers of the form "<prefix>-<n>". A counter backs
// the identifiers, so an ID is never issued twice by the same registry,
// even after it has been revoked.
//
// Registry is safe for concurrent use.
type Registry struct {
	prefix string
	mu     sync.Mutex
	next   uint64
	live   map[ID]struct{}
}

// NewRegistry creates a registry whose identifiers start with prefix.
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = "sub"
	}
	return &Registry{
		prefix: prefix,
		live:   make(map[ID]struct{}),
	}
}

// Issue mints a new live identifier.
func (r *Registry) Issue() ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := ID(r.prefix + "-" + strconv.FormatUint(r.next, 10))
	r.live[id] = struct{}{}
	return id
}

// Revoke retires id. It returns false if id was not live.
func (r *Registry) Revoke(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live[id]; !ok {
		return false
	}
	delete(r.live, id)
	return true
}

// Live reports whether id has been issued and not yet revoked.
func (r *Registry) Live(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.live[id]
	return ok
}

// Len returns the number of live identifiers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// RevokeAll retires every live identifier. The counter is kept, so
// identifiers issued afterwards still never collide with earlier ones.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = make(map[ID]struct{})
}
