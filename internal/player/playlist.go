// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package player

import (
	"context"
	"net/url"
	"path"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/instance"
)

// entry is one playlist slot. The current entry is tracked by identity so
// it survives moves and removals of other entries.
type entry struct {
	url string
}

func (e *entry) title() string {
	u, err := url.Parse(e.url)
	if err != nil || u.Path == "" {
		return e.url
	}
	if base := path.Base(u.Path); base != "/" && base != "." {
		return base
	}
	return e.url
}

func (p *state) item(e *entry) PlaylistItem {
	current := e == p.current
	return PlaylistItem{
		Filename:  e.url,
		Title:     e.title(),
		IsCurrent: current,
		IsPlaying: current && !p.status.Idle && !p.status.Paused,
	}
}

func (p *state) index(n int) (*entry, error) {
	if n < 0 || n >= len(p.playlist) {
		return nil, fault.InvalidArgument("playlist index %d out of range [0, %d)", n, len(p.playlist))
	}
	return p.playlist[n], nil
}

func (p *state) position() int {
	for i, e := range p.playlist {
		if e == p.current {
			return i
		}
	}
	return -1
}

func insertEntry(list []*entry, at int, e *entry) []*entry {
	if at < 0 || at > len(list) {
		at = len(list)
	}
	list = append(list, nil)
	copy(list[at+1:], list[at:])
	list[at] = e
	return list
}

// Playlist returns the entries of id's playlist in order.
func (h *Headless) Playlist(id instance.ID) ([]PlaylistItem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.lookup(id)
	if err != nil {
		return nil, err
	}
	out := make([]PlaylistItem, len(p.playlist))
	for i, e := range p.playlist {
		out[i] = p.item(e)
	}
	return out, nil
}

// PlaylistAdd inserts url into id's playlist.
func (h *Headless) PlaylistAdd(id instance.ID, target string, at int) (PlaylistItem, error) {
	if target == "" {
		return PlaylistItem{}, fault.InvalidArgument("playlist add: url is empty")
	}
	var added PlaylistItem
	err := h.update(id, func(p *state) error {
		e := &entry{url: target}
		p.playlist = insertEntry(p.playlist, at, e)
		added = p.item(e)
		return nil
	})
	return added, err
}

// PlaylistRemove removes the entry at index. Removing the current entry
// leaves playback running with no current entry.
func (h *Headless) PlaylistRemove(id instance.ID, index int) (PlaylistItem, error) {
	var removed PlaylistItem
	err := h.update(id, func(p *state) error {
		e, err := p.index(index)
		if err != nil {
			return err
		}
		removed = p.item(e)
		p.playlist = append(p.playlist[:index], p.playlist[index+1:]...)
		if p.current == e {
			p.current = nil
		}
		return nil
	})
	return removed, err
}

// PlaylistMove moves the entry at index to position to. A too large to
// moves the entry to the end.
func (h *Headless) PlaylistMove(id instance.ID, index, to int) (PlaylistItem, error) {
	var moved PlaylistItem
	err := h.update(id, func(p *state) error {
		e, err := p.index(index)
		if err != nil {
			return err
		}
		if to < 0 {
			return fault.InvalidArgument("playlist move: target %d is negative", to)
		}
		p.playlist = append(p.playlist[:index], p.playlist[index+1:]...)
		p.playlist = insertEntry(p.playlist, to, e)
		moved = p.item(e)
		return nil
	})
	return moved, err
}

// PlaylistPlay starts playback of the entry at index.
func (h *Headless) PlaylistPlay(_ context.Context, id instance.ID, index int) error {
	h.mu.Lock()
	p, err := h.lookup(id)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	e, err := p.index(index)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	return h.open(id, e.url, e)
}

// playRelative plays the entry delta positions away from the current one.
func (h *Headless) playRelative(ctx context.Context, id instance.ID, delta int) error {
	h.mu.Lock()
	p, err := h.lookup(id)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	pos := p.position()
	h.mu.Unlock()
	if pos < 0 {
		return fault.InvalidArgument("playlist of %s has no current entry", id)
	}
	return h.PlaylistPlay(ctx, id, pos+delta)
}
