// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package player

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/instance"
)

type hook struct {
	priority int
	seq      int
	fn       HookFunc
}

var readOnlyProperties = map[string]bool{
	"idle-active":    true,
	"duration":       true,
	"path":           true,
	"playlist-count": true,
}

// Property reads a player property. Playback and window state map to their
// mpv names; any other property must have been set before.
func (h *Headless) Property(id instance.ID, name string) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.lookup(id)
	if err != nil {
		return nil, err
	}

	switch name {
	case "pause":
		return p.status.Paused, nil
	case "idle-active":
		return p.status.Idle, nil
	case "time-pos":
		return p.status.Position, nil
	case "duration":
		return p.status.Duration, nil
	case "speed":
		return p.status.Speed, nil
	case "path":
		return p.status.URL, nil
	case "fullscreen":
		return p.window.Fullscreen, nil
	case "ontop":
		return p.window.OnTop, nil
	case "playlist-count":
		return len(p.playlist), nil
	case "playlist-pos":
		return p.position(), nil
	}
	if v, ok := p.props[name]; ok {
		return v, nil
	}
	return nil, fault.InvalidArgument("unknown property %q", name)
}

// SetProperty writes a player property. Writes to playback and window
// properties go through the matching core operation.
func (h *Headless) SetProperty(ctx context.Context, id instance.ID, name string, value any) error {
	if name == "" {
		return fault.InvalidArgument("property name is empty")
	}
	if readOnlyProperties[name] {
		return fault.InvalidArgument("property %q is read-only", name)
	}

	switch name {
	case "pause":
		on, err := flagValue(name, value)
		if err != nil {
			return err
		}
		if on {
			return h.Pause(id)
		}
		return h.Resume(id)
	case "time-pos":
		pos, err := numberValue(name, value)
		if err != nil {
			return err
		}
		return h.Seek(id, pos, true)
	case "speed":
		speed, err := numberValue(name, value)
		if err != nil {
			return err
		}
		if speed <= 0 {
			return fault.InvalidArgument("speed must be positive, got %v", speed)
		}
		return h.update(id, func(p *state) error {
			p.status.Speed = speed
			return nil
		})
	case "fullscreen":
		on, err := flagValue(name, value)
		if err != nil {
			return err
		}
		return h.SetFullscreen(id, on)
	case "ontop":
		on, err := flagValue(name, value)
		if err != nil {
			return err
		}
		return h.SetOnTop(id, on)
	case "playlist-pos":
		pos, err := numberValue(name, value)
		if err != nil {
			return err
		}
		return h.PlaylistPlay(ctx, id, int(pos))
	case "volume":
		vol, err := numberValue(name, value)
		if err != nil {
			return err
		}
		if vol < 0 || vol > 100 {
			return fault.InvalidArgument("volume %v out of range [0, 100]", vol)
		}
		value = vol
	case "mute":
		on, err := flagValue(name, value)
		if err != nil {
			return err
		}
		value = on
	}
	return h.update(id, func(p *state) error {
		p.props[name] = value
		return nil
	})
}

// Command runs an input command. Supported: loadfile, stop, seek, set,
// cycle, playlist-next, playlist-prev, playlist-clear.
func (h *Headless) Command(ctx context.Context, id instance.ID, name string, args []string) error {
	arg := func(i int) (string, error) {
		if i >= len(args) {
			return "", fault.InvalidArgument("command %s: missing argument %d", name, i+1)
		}
		return args[i], nil
	}

	switch name {
	case "loadfile":
		target, err := arg(0)
		if err != nil {
			return err
		}
		if len(args) > 1 && args[1] == "append" {
			_, err := h.PlaylistAdd(id, target, -1)
			return err
		}
		return h.Open(ctx, id, target)
	case "stop":
		return h.Stop(id)
	case "seek":
		raw, err := arg(0)
		if err != nil {
			return err
		}
		offset, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return oops.Code(fault.CodeInvalidArgument).With("command", name).Wrapf(err, "seek target")
		}
		if len(args) > 1 && args[1] == "absolute" {
			return h.Seek(id, offset, true)
		}
		status, err := h.Status(id)
		if err != nil {
			return err
		}
		return h.Seek(id, status.Position+offset, false)
	case "set":
		prop, err := arg(0)
		if err != nil {
			return err
		}
		raw, err := arg(1)
		if err != nil {
			return err
		}
		return h.SetProperty(ctx, id, prop, parseCommandValue(raw))
	case "cycle":
		prop, err := arg(0)
		if err != nil {
			return err
		}
		cur, err := h.Property(id, prop)
		if err != nil {
			return err
		}
		on, ok := cur.(bool)
		if !ok {
			return fault.InvalidArgument("cycle: property %q is not a flag", prop)
		}
		return h.SetProperty(ctx, id, prop, !on)
	case "playlist-next":
		return h.playRelative(ctx, id, 1)
	case "playlist-prev":
		return h.playRelative(ctx, id, -1)
	case "playlist-clear":
		return h.update(id, func(p *state) error {
			if p.current != nil && p.position() >= 0 {
				p.playlist = []*entry{p.current}
			} else {
				p.playlist = nil
			}
			return nil
		})
	}
	return fault.InvalidArgument("unknown command %q", name)
}

// AddHook registers fn for hook name on player id.
func (h *Headless) AddHook(id instance.ID, name string, priority int, fn HookFunc) error {
	if name == "" {
		return fault.InvalidArgument("hook name is empty")
	}
	if fn == nil {
		return fault.InvalidArgument("hook %s has no function", name)
	}
	return h.update(id, func(p *state) error {
		p.hookSeq++
		p.hooks[name] = append(p.hooks[name], hook{priority: priority, seq: p.hookSeq, fn: fn})
		return nil
	})
}

// runHooks calls the hooks registered for name one after another, each
// once the previous one continued, then calls done. With no hooks done
// runs before runHooks returns.
func (h *Headless) runHooks(id instance.ID, name string, done func()) {
	h.mu.Lock()
	var hooks []hook
	if p, ok := h.players[id]; ok {
		hooks = append(hooks, p.hooks[name]...)
	}
	h.mu.Unlock()

	sort.SliceStable(hooks, func(a, b int) bool {
		if hooks[a].priority != hooks[b].priority {
			return hooks[a].priority < hooks[b].priority
		}
		return hooks[a].seq < hooks[b].seq
	})

	var step func(i int)
	step = func(i int) {
		if i == len(hooks) {
			done()
			return
		}
		var once sync.Once
		hooks[i].fn(func() {
			once.Do(func() { step(i + 1) })
		})
	}
	step(0)
}

func flagValue(name string, v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch val {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
	}
	return false, fault.InvalidArgument("property %q expects a flag, got %T", name, v)
}

func numberValue(name string, v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, nil
		}
	}
	return 0, fault.InvalidArgument("property %q expects a number, got %T", name, v)
}

// parseCommandValue types a value given as command text.
func parseCommandValue(raw string) any {
	switch raw {
	case "yes":
		return true
	case "no":
		return false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
