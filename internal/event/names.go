// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package event

import (
	"fmt"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
)

// Name identifies an event. Built-in player events use the "iina." prefix;
// plugins may emit custom names freely.
type Name string

// Built-in player lifecycle events.
const (
	WindowLoaded        Name = "iina.window-loaded"
	WindowSizeAdjusted  Name = "iina.window-size-adjusted"
	WindowMoved         Name = "iina.window-moved"
	WindowResized       Name = "iina.window-resized"
	WindowFullscreen    Name = "iina.window-fs.changed"
	WindowScreenChanged Name = "iina.window-screen.changed"
	WindowMiniaturized  Name = "iina.window-miniaturized"
	WindowRestored      Name = "iina.window-deminiaturized"
	WindowMainChanged   Name = "iina.window-main.changed"
	WindowWillClose     Name = "iina.window-will-close"
	WindowDidClose      Name = "iina.window-did-close"
	MusicModeChanged    Name = "iina.music-mode.changed"
	PIPChanged          Name = "iina.pip.changed"
	FileLoaded          Name = "iina.file-loaded"
	FileStarted         Name = "iina.file-started"
	// The misspelling matches the name plugins subscribe to.
	MPVInitialized  Name = "iina.mpv-inititalized"
	ThumbnailsReady Name = "iina.thumbnails-ready"
	OverlayLoaded   Name = "iina.plugin-overlay-loaded"
)

// PayloadKind is the payload shape a built-in event carries.
type PayloadKind int

// Payload kinds.
const (
	KindAny PayloadKind = iota
	KindNone
	KindBool
	KindString
	KindRect
)

func (k PayloadKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindRect:
		return "rect"
	default:
		return "any"
	}
}

// Rect is the frame carried by window geometry events.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var kinds = map[Name]PayloadKind{
	WindowLoaded:        KindNone,
	WindowSizeAdjusted:  KindRect,
	WindowMoved:         KindRect,
	WindowResized:       KindRect,
	WindowFullscreen:    KindBool,
	WindowScreenChanged: KindNone,
	WindowMiniaturized:  KindNone,
	WindowRestored:      KindNone,
	WindowMainChanged:   KindBool,
	WindowWillClose:     KindNone,
	WindowDidClose:      KindNone,
	MusicModeChanged:    KindBool,
	PIPChanged:          KindBool,
	FileLoaded:          KindString,
	FileStarted:         KindNone,
	MPVInitialized:      KindNone,
	ThumbnailsReady:     KindNone,
	OverlayLoaded:       KindNone,
}

// KindOf returns the payload kind for name. Custom names are KindAny.
func KindOf(name Name) PayloadKind {
	if k, ok := kinds[name]; ok {
		return k
	}
	return KindAny
}

// Builtin reports whether name is a built-in player event.
func Builtin(name Name) bool {
	_, ok := kinds[name]
	return ok
}

// Builtins returns every built-in event name.
func Builtins() []Name {
	out := make([]Name, 0, len(kinds))
	for name := range kinds {
		out = append(out, name)
	}
	return out
}

// CheckPayload verifies that payload matches the kind registered for name.
// A *Rect is accepted for rect events and normalized to a Rect value.
func CheckPayload(name Name, payload any) (any, error) {
	kind := KindOf(name)
	ok := true
	switch kind {
	case KindAny:
	case KindNone:
		ok = payload == nil
	case KindBool:
		_, ok = payload.(bool)
	case KindString:
		_, ok = payload.(string)
	case KindRect:
		switch r := payload.(type) {
		case Rect:
		case *Rect:
			if r == nil {
				ok = false
				break
			}
			payload = *r
		default:
			ok = false
		}
	}
	if !ok {
		return nil, oops.Code(fault.CodePayloadShape).
			In("event").
			With("event", string(name)).
			With("expected", kind.String()).
			With("actual", fmt.Sprintf("%T", payload)).
			Errorf("event %s expects a %s payload", name, kind)
	}
	return payload, nil
}
