// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package subtitle keeps the subtitle providers registered by plugins.
package subtitle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
)

// Description is how an item is shown in the subtitle chooser.
type Description struct {
	Name  string `json:"name"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Descriptor renders an item.
type Descriptor func(ctx context.Context, item Item) (Description, error)

// Item is one search result. Data is opaque to the host.
type Item struct {
	Data any
	Desc Descriptor
}

// Provider searches for and downloads subtitles.
type Provider interface {
	Search(ctx context.Context) ([]Item, error)
	// Download returns the local paths of the fetched subtitle files.
	Download(ctx context.Context, item Item) ([]string, error)
}

// Describer is implemented by providers with a default item descriptor.
type Describer interface {
	Describe(ctx context.Context, item Item) (Description, error)
}

// Registry maps provider ids to providers.
type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		providers: make(map[string]Provider),
	}
}

// Register adds p under id, replacing any provider already there.
func (r *Registry) Register(id string, p Provider) error {
	if id == "" {
		return fault.InvalidArgument("subtitle provider id is empty")
	}
	if p == nil {
		return fault.InvalidArgument("subtitle provider %q is nil", id)
	}
	r.mu.Lock()
	_, replaced := r.providers[id]
	r.providers[id] = p
	r.mu.Unlock()

	r.logger.Debug("subtitle provider registered", "provider", id, "replaced", replaced)
	return nil
}

// Unregister removes id and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.providers[id]
	delete(r.providers, id)
	return ok
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) lookup(id string) (Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fault.Addressing(id, "no subtitle provider %q", id)
	}
	return p, nil
}

// Search runs the search of provider id.
func (r *Registry) Search(ctx context.Context, id string) ([]Item, error) {
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	items, err := p.Search(ctx)
	if err != nil {
		return nil, fault.Callback("subtitle", id+".search", err)
	}
	return items, nil
}

// Download asks provider id to fetch item.
func (r *Registry) Download(ctx context.Context, id string, item Item) ([]string, error) {
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	paths, err := p.Download(ctx, item)
	if err != nil {
		return nil, fault.Callback("subtitle", id+".download", err)
	}
	if len(paths) == 0 {
		return nil, oops.Code(fault.CodeResource).
			In("subtitle").
			With("provider", id).
			Errorf("provider %q downloaded no files", id)
	}
	return paths, nil
}

// Describe renders item using its own descriptor, then the provider's,
// then a plain rendering of its data.
func (r *Registry) Describe(ctx context.Context, id string, item Item) (Description, error) {
	p, err := r.lookup(id)
	if err != nil {
		return Description{}, err
	}
	var desc Descriptor
	switch {
	case item.Desc != nil:
		desc = item.Desc
	default:
		if d, ok := p.(Describer); ok {
			desc = d.Describe
		}
	}
	if desc == nil {
		return Description{Name: fmt.Sprint(item.Data)}, nil
	}
	out, err := desc(ctx, item)
	if err != nil {
		return Description{}, fault.Callback("subtitle", id+".describe", err)
	}
	return out, nil
}
