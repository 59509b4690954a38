// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package player

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/event"
	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/instance"
	"github.com/marquee-player/marquee/internal/loop"
)

var defaultFrame = event.Rect{Width: 1280, Height: 720}

type state struct {
	opts   instance.Options
	status Status
	window Window

	playlist []*entry
	current  *entry
	props    map[string]any
	hooks    map[string][]hook
	hookSeq  int
}

// Headless is a Core that keeps player state in memory. Events for a
// player are delivered to the instance with the same ID in every attached
// router.
type Headless struct {
	logger *slog.Logger

	mu      sync.Mutex
	players map[instance.ID]*state
	routers []*instance.Router
}

// Option configures a Headless core.
type Option func(*Headless)

// WithLogger sets the core logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Headless) {
		h.logger = l
	}
}

// NewHeadless creates a core whose main player, ID 0, already exists.
func NewHeadless(opts ...Option) *Headless {
	h := &Headless{
		logger:  slog.Default(),
		players: make(map[instance.ID]*state),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.players[0] = newState(instance.Options{Label: "main", EnablePlugins: true})
	return h
}

func newState(opts instance.Options) *state {
	return &state{
		opts:   opts,
		status: Status{Idle: true, Paused: true, Speed: 1},
		window: Window{Frame: defaultFrame},
		props:  map[string]any{"volume": 100.0, "mute": false},
		hooks:  make(map[string][]hook),
	}
}

var _ Core = (*Headless)(nil)

// Attach adds r to the routers that receive player events.
func (h *Headless) Attach(r *instance.Router) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routers = append(h.routers, r)
}

// Detach stops delivering player events to r.
func (h *Headless) Detach(r *instance.Router) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, cur := range h.routers {
		if cur == r {
			h.routers = append(h.routers[:i], h.routers[i+1:]...)
			return
		}
	}
}

// Players returns the IDs of open players in ascending order.
func (h *Headless) Players() []instance.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]instance.ID, 0, len(h.players))
	for id := range h.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Spawn creates the player for id. Spawning an ID that is already open
// is a no-op, so several routers may share one player.
func (h *Headless) Spawn(_ context.Context, id instance.ID, opts instance.Options) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.players[id]; !ok {
		h.players[id] = newState(opts)
		h.logger.Debug("player spawned", "player", int(id), "label", opts.Label)
	}
	return nil
}

// Loaded is an instance create hook. It marks the player window as
// loaded and emits the startup events to the new instance.
func (h *Headless) Loaded(_ context.Context, inst *instance.Instance) error {
	h.mu.Lock()
	p, ok := h.players[inst.ID()]
	if ok {
		p.window.Loaded = true
		p.window.Visible = !p.opts.DisableUI
	}
	h.mu.Unlock()
	if !ok {
		return fault.Addressing(inst.ID().String(), "no player %s", inst.ID())
	}
	if err := inst.Notify(event.MPVInitialized, nil); err != nil {
		return err
	}
	return inst.Notify(event.WindowLoaded, nil)
}

// Close emits the window close events, waits for them to be handled and
// destroys the instance in every attached router. Called from a task on
// the instance's own loop, the destroy is queued after the events instead.
func (h *Headless) Close(ctx context.Context, id instance.ID) error {
	h.mu.Lock()
	_, ok := h.players[id]
	delete(h.players, id)
	routers := append([]*instance.Router(nil), h.routers...)
	h.mu.Unlock()
	if !ok {
		return fault.Addressing(id.String(), "no player %s", id)
	}

	for _, r := range routers {
		inst, ok := r.Get(id)
		if !ok {
			continue
		}
		if err := inst.Notify(event.WindowWillClose, nil); err != nil {
			h.logger.Warn("notify window close", "player", int(id), "error", err)
		}
		if err := inst.Notify(event.WindowDidClose, nil); err != nil {
			h.logger.Warn("notify window close", "player", int(id), "error", err)
		}
		if loop.Current(ctx) == inst.Loop() {
			// On the instance's own loop the close events are still queued
			// behind the running task; destroy after them.
			err := inst.Loop().Go("close", func(context.Context) error {
				return h.destroy(r, id)
			})
			if err == nil {
				continue
			}
			h.logger.Warn("queue close", "player", int(id), "error", err)
		} else if err := inst.Loop().Sync(ctx); err != nil {
			h.logger.Warn("drain before close", "player", int(id), "error", err)
		}
		if err := h.destroy(r, id); err != nil {
			return err
		}
	}
	h.logger.Debug("player closed", "player", int(id))
	return nil
}

func (h *Headless) destroy(r *instance.Router, id instance.ID) error {
	if err := r.Destroy(id); err != nil && !fault.Is(err, fault.CodeAddressing) {
		return err
	}
	return nil
}

// Status returns the playback state of id.
func (h *Headless) Status(id instance.ID) (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.lookup(id)
	if err != nil {
		return Status{}, err
	}
	return p.status, nil
}

// Window returns the window state of id.
func (h *Headless) Window(id instance.ID) (Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.lookup(id)
	if err != nil {
		return Window{}, err
	}
	return p.window, nil
}

// Open starts playback of target, a URL or local path, replacing the
// playlist with that single entry. file-loaded is emitted once every
// on_load hook has continued.
func (h *Headless) Open(_ context.Context, id instance.ID, target string) error {
	return h.open(id, target, nil)
}

// open plays target. A nil from replaces the playlist; otherwise from
// becomes the current entry.
func (h *Headless) open(id instance.ID, target string, from *entry) error {
	if target == "" {
		return fault.InvalidArgument("open: url is empty")
	}
	u, err := url.Parse(target)
	if err != nil {
		return oops.Code(fault.CodeInvalidArgument).With("url", target).Wrapf(err, "open")
	}

	err = h.update(id, func(p *state) error {
		if from == nil {
			from = &entry{url: target}
			p.playlist = []*entry{from}
		}
		p.current = from
		p.status = Status{
			URL:               target,
			Speed:             p.status.Speed,
			IsNetworkResource: u.Scheme == "http" || u.Scheme == "https",
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.notify(id, event.FileStarted, nil)
	h.runHooks(id, HookOnLoad, func() {
		h.notify(id, event.FileLoaded, target)
	})
	return nil
}

// Pause pauses playback.
func (h *Headless) Pause(id instance.ID) error {
	return h.update(id, func(p *state) error {
		p.status.Paused = true
		return nil
	})
}

// Resume resumes playback of the current file.
func (h *Headless) Resume(id instance.ID) error {
	return h.update(id, func(p *state) error {
		if p.status.Idle {
			return fault.InvalidArgument("resume: %s has no file", id)
		}
		p.status.Paused = false
		return nil
	})
}

// Stop stops playback and unloads the file after every on_unload hook
// has continued.
func (h *Headless) Stop(id instance.ID) error {
	if err := h.update(id, func(*state) error { return nil }); err != nil {
		return err
	}
	h.runHooks(id, HookOnUnload, func() {
		err := h.update(id, func(p *state) error {
			p.status = Status{Idle: true, Paused: true, Speed: p.status.Speed}
			return nil
		})
		if err != nil {
			h.logger.Debug("stop after close", "player", int(id), "error", err)
		}
	})
	return nil
}

// Seek moves to seconds. Negative positions clamp to zero; positions past
// a known duration clamp to the duration.
func (h *Headless) Seek(id instance.ID, seconds float64, _ bool) error {
	return h.update(id, func(p *state) error {
		if p.status.Idle {
			return fault.InvalidArgument("seek: %s has no file", id)
		}
		if seconds < 0 {
			seconds = 0
		}
		if p.status.Duration > 0 && seconds > p.status.Duration {
			seconds = p.status.Duration
		}
		p.status.Position = seconds
		return nil
	})
}

// SetDuration records the duration of the current file.
func (h *Headless) SetDuration(id instance.ID, seconds float64) error {
	return h.update(id, func(p *state) error {
		p.status.Duration = seconds
		return nil
	})
}

// SetPIP toggles picture-in-picture and emits pip.changed.
func (h *Headless) SetPIP(id instance.ID, on bool) error {
	if err := h.update(id, func(p *state) error {
		p.window.PIP = on
		return nil
	}); err != nil {
		return err
	}
	h.notify(id, event.PIPChanged, on)
	return nil
}

// SetFullscreen toggles fullscreen and emits window-fs.changed.
func (h *Headless) SetFullscreen(id instance.ID, on bool) error {
	if err := h.update(id, func(p *state) error {
		p.window.Fullscreen = on
		return nil
	}); err != nil {
		return err
	}
	h.notify(id, event.WindowFullscreen, on)
	return nil
}

// SetOnTop keeps the window above others.
func (h *Headless) SetOnTop(id instance.ID, on bool) error {
	return h.update(id, func(p *state) error {
		p.window.OnTop = on
		return nil
	})
}

// SetFrame resizes the window and emits window-resized.
func (h *Headless) SetFrame(id instance.ID, frame event.Rect) error {
	if frame.Width < 0 || frame.Height < 0 {
		return fault.InvalidArgument("frame size must not be negative")
	}
	if err := h.update(id, func(p *state) error {
		p.window.Frame = frame
		return nil
	}); err != nil {
		return err
	}
	h.notify(id, event.WindowResized, frame)
	return nil
}

func (h *Headless) lookup(id instance.ID) (*state, error) {
	p, ok := h.players[id]
	if !ok {
		return nil, fault.Addressing(id.String(), "no player %s", id)
	}
	return p, nil
}

func (h *Headless) update(id instance.ID, fn func(p *state) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.lookup(id)
	if err != nil {
		return err
	}
	return fn(p)
}

func (h *Headless) notify(id instance.ID, name event.Name, payload any) {
	h.mu.Lock()
	routers := append([]*instance.Router(nil), h.routers...)
	h.mu.Unlock()

	for _, r := range routers {
		if err := r.Notify(id, name, payload); err != nil && !fault.Is(err, fault.CodeAddressing) {
			h.logger.Warn("player event not delivered",
				"player", int(id),
				"event", string(name),
				"error", err)
		}
	}
}
