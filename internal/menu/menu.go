// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package menu builds the plugin menu tree and runs item actions on the
// script loop.
package menu

import (
	"context"
	"strings"
	"sync"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/loop"
	"github.com/marquee-player/marquee/internal/player"
)

// Action runs when an item is chosen.
type Action func(ctx context.Context, item *Item) error

// PlaylistBuilder returns the context menu items for the selected
// playlist entries.
type PlaylistBuilder func(ctx context.Context, entries []player.PlaylistItem) ([]*Item, error)

// Options are the optional attributes of an item.
type Options struct {
	Enabled    *bool
	Selected   bool
	KeyBinding string
}

// Item is a menu entry. Separators have no title or action.
type Item struct {
	Title      string
	Enabled    bool
	Selected   bool
	Separator  bool
	KeyBinding *KeyBinding
	Action     Action
	Children   []*Item
}

// AddSubMenuItem appends child and returns the receiver for chaining.
func (i *Item) AddSubMenuItem(child *Item) *Item {
	i.Children = append(i.Children, child)
	return i
}

// Builder collects a plugin's top-level menu items.
type Builder struct {
	loop *loop.Loop

	mu       sync.Mutex
	items    []*Item
	playlist PlaylistBuilder
}

// NewBuilder creates a builder whose actions run on lp.
func NewBuilder(lp *loop.Loop) *Builder {
	return &Builder{loop: lp}
}

// Item creates an item. It is not shown until added with AddItem or
// AddSubMenuItem.
func (b *Builder) Item(title string, action Action, opts Options) (*Item, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fault.InvalidArgument("menu item title is empty")
	}
	item := &Item{
		Title:    title,
		Enabled:  true,
		Selected: opts.Selected,
		Action:   action,
	}
	if opts.Enabled != nil {
		item.Enabled = *opts.Enabled
	}
	if opts.KeyBinding != "" {
		kb, err := ParseKeyBinding(opts.KeyBinding)
		if err != nil {
			return nil, err
		}
		item.KeyBinding = kb
	}
	return item, nil
}

// Separator creates a separator item.
func (b *Builder) Separator() *Item {
	return &Item{Separator: true}
}

// AddItem appends item to the top level.
func (b *Builder) AddItem(item *Item) error {
	if item == nil {
		return fault.InvalidArgument("menu item is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, item)
	return nil
}

// RemoveAll clears the menu.
func (b *Builder) RemoveAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}

// Items returns the top-level items.
func (b *Builder) Items() []*Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Item, len(b.items))
	copy(out, b.items)
	return out
}

// Find returns the item reached by following titles from the top level.
func (b *Builder) Find(titles ...string) (*Item, bool) {
	items := b.Items()
	var found *Item
	for _, title := range titles {
		found = nil
		for _, it := range items {
			if !it.Separator && it.Title == title {
				found = it
				break
			}
		}
		if found == nil {
			return nil, false
		}
		items = found.Children
	}
	return found, found != nil
}

// Trigger queues the action of the item at the title path on the loop.
func (b *Builder) Trigger(titles ...string) error {
	item, ok := b.Find(titles...)
	if !ok {
		return fault.Addressing(strings.Join(titles, " > "), "no menu item %q", strings.Join(titles, " > "))
	}
	if !item.Enabled {
		return fault.InvalidArgument("menu item %q is disabled", item.Title)
	}
	if item.Action == nil {
		return nil
	}
	return b.loop.Go("menu "+item.Title, func(ctx context.Context) error {
		if err := item.Action(ctx, item); err != nil {
			return fault.Callback("menu", item.Title, err)
		}
		return nil
	})
}

// Bindings returns every key binding in the tree mapped to its item.
func (b *Builder) Bindings() map[string]*Item {
	out := make(map[string]*Item)
	var walk func([]*Item)
	walk = func(items []*Item) {
		for _, it := range items {
			if it.KeyBinding != nil {
				out[it.KeyBinding.String()] = it
			}
			walk(it.Children)
		}
	}
	walk(b.Items())
	return out
}

// SetPlaylistBuilder registers the playlist context menu builder; a later
// call replaces it and nil removes it.
func (b *Builder) SetPlaylistBuilder(fn PlaylistBuilder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playlist = fn
}

// BuildPlaylistMenu runs the playlist builder on the loop for entries and
// returns its items. Without a builder it returns nil.
func (b *Builder) BuildPlaylistMenu(ctx context.Context, entries []player.PlaylistItem) ([]*Item, error) {
	b.mu.Lock()
	fn := b.playlist
	b.mu.Unlock()
	if fn == nil {
		return nil, nil
	}

	var items []*Item
	err := b.loop.Call(ctx, "playlist menu", func(ctx context.Context) error {
		var err error
		items, err = fn(ctx, entries)
		return err
	})
	if err != nil {
		if fault.Is(err, fault.CodeLoopClosed) {
			return nil, err
		}
		return nil, fault.Callback("menu", "playlist", err)
	}
	return items, nil
}
