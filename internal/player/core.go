// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package player defines the player core collaborator that plugins drive
// through the core API, and an in-memory core used by the CLI and tests.
package player

import (
	"context"

	"github.com/marquee-player/marquee/internal/event"
	"github.com/marquee-player/marquee/internal/instance"
)

// Status is the playback state of one player.
type Status struct {
	Paused            bool    `json:"paused"`
	Idle              bool    `json:"idle"`
	Position          float64 `json:"position"`
	Duration          float64 `json:"duration"`
	Speed             float64 `json:"speed"`
	URL               string  `json:"url"`
	IsNetworkResource bool    `json:"isNetworkResource"`
}

// Window is the window state of one player.
type Window struct {
	Loaded     bool       `json:"loaded"`
	Visible    bool       `json:"visible"`
	Frame      event.Rect `json:"frame"`
	Fullscreen bool       `json:"fullscreen"`
	PIP        bool       `json:"pip"`
	OnTop      bool       `json:"ontop"`
}

// PlaylistItem is one entry of a player's playlist.
type PlaylistItem struct {
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	IsPlaying bool   `json:"isPlaying"`
	IsCurrent bool   `json:"isCurrent"`
}

// HookFunc runs for a named playback hook. The player waits until next is
// called before it continues; calling next more than once has no effect.
type HookFunc func(next func())

// Playback hooks run by the core.
const (
	HookOnLoad   = "on_load"
	HookOnUnload = "on_unload"
)

// Core is the native player facility behind each instance.
type Core interface {
	// Spawn brings up the player for a new instance. It has the shape of
	// instance.Spawner.
	Spawn(ctx context.Context, id instance.ID, opts instance.Options) error
	// Close closes the player window and destroys its instances.
	Close(ctx context.Context, id instance.ID) error
	Status(id instance.ID) (Status, error)
	Window(id instance.ID) (Window, error)
	Open(ctx context.Context, id instance.ID, url string) error
	Pause(id instance.ID) error
	Resume(id instance.ID) error
	Stop(id instance.ID) error
	Seek(id instance.ID, seconds float64, exact bool) error

	SetPIP(id instance.ID, on bool) error
	SetFullscreen(id instance.ID, on bool) error
	SetOnTop(id instance.ID, on bool) error
	SetFrame(id instance.ID, frame event.Rect) error

	Playlist(id instance.ID) ([]PlaylistItem, error)
	// PlaylistAdd inserts url before index at; a negative or too large
	// index appends.
	PlaylistAdd(id instance.ID, url string, at int) (PlaylistItem, error)
	PlaylistRemove(id instance.ID, index int) (PlaylistItem, error)
	// PlaylistMove moves the entry at index so that it ends up at to.
	PlaylistMove(id instance.ID, index, to int) (PlaylistItem, error)
	PlaylistPlay(ctx context.Context, id instance.ID, index int) error

	// Property reads a player property by its mpv name.
	Property(id instance.ID, name string) (any, error)
	SetProperty(ctx context.Context, id instance.ID, name string, value any) error
	// Command runs an mpv input command.
	Command(ctx context.Context, id instance.ID, name string, args []string) error
	// AddHook registers fn for the named hook. Hooks with a lower priority
	// run first; equal priorities run in registration order.
	AddHook(id instance.ID, name string, priority int, fn HookFunc) error
}
