// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package surface

import (
	"github.com/marquee-player/marquee/internal/fault"
)

// SimpleDocument is the built-in overlay document loaded by SimpleMode.
// Peers serve it without touching the filesystem.
const SimpleDocument = "builtin:simple-overlay"

// Configuration keys passed to Peer.Configure.
const (
	ConfigOpacity = "opacity"
	ConfigStyle   = "style"
	ConfigContent = "content"
	ConfigWindow  = "window"
)

// WindowProps are the standalone window properties a script may set.
type WindowProps struct {
	Title               string `json:"title,omitempty"`
	Resizable           *bool  `json:"resizable,omitempty"`
	FullSizeContentView *bool  `json:"fullSizeContentView,omitempty"`
}

func (c *Channel) requireKind(k Kind, op string) error {
	if c.kind != k {
		return fault.InvalidArgument("%s is only available on the %s surface, not %s", op, k, c.kind)
	}
	return nil
}

// SetOpacity sets overlay opacity in [0, 1].
func (c *Channel) SetOpacity(opacity float64) error {
	if err := c.requireKind(KindOverlay, "setOpacity"); err != nil {
		return err
	}
	if opacity < 0 || opacity > 1 {
		return fault.InvalidArgument("opacity %v is outside [0, 1]", opacity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state() == StateClosed {
		return c.closedError("set opacity")
	}
	c.opacity = opacity
	c.peer.Configure(ConfigOpacity, opacity)
	return nil
}

// Opacity returns the overlay opacity.
func (c *Channel) Opacity() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opacity
}

// SimpleMode switches the overlay to the built-in document, whose style
// and content are then set with SetStyle and SetContent.
func (c *Channel) SimpleMode() error {
	if err := c.requireKind(KindOverlay, "simpleMode"); err != nil {
		return err
	}
	c.mu.Lock()
	c.simple = true
	c.mu.Unlock()
	return c.load(SimpleDocument)
}

// SetStyle sets the stylesheet of a simple-mode overlay.
func (c *Channel) SetStyle(css string) error {
	return c.configureSimple(ConfigStyle, css, "setStyle")
}

// SetContent sets the markup of a simple-mode overlay.
func (c *Channel) SetContent(html string) error {
	return c.configureSimple(ConfigContent, html, "setContent")
}

func (c *Channel) configureSimple(key, value, op string) error {
	if err := c.requireKind(KindOverlay, op); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state() == StateClosed {
		return c.closedError(op)
	}
	if !c.simple {
		return fault.InvalidArgument("%s requires simple mode", op)
	}
	c.peer.Configure(key, value)
	return nil
}

// Open shows a standalone window.
func (c *Channel) Open() error {
	if err := c.requireKind(KindWindow, "open"); err != nil {
		return err
	}
	return c.Show()
}

// Close hides a standalone window. The window keeps its content and can
// be opened again; Dispose releases it.
func (c *Channel) Close() error {
	if err := c.requireKind(KindWindow, "close"); err != nil {
		return err
	}
	return c.Hide()
}

// SetProperty updates standalone window properties. Unset fields keep
// their current values.
func (c *Channel) SetProperty(p WindowProps) error {
	if err := c.requireKind(KindWindow, "setProperty"); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state() == StateClosed {
		return c.closedError("set property")
	}
	if p.Title != "" {
		c.props.Title = p.Title
	}
	if p.Resizable != nil {
		c.props.Resizable = p.Resizable
	}
	if p.FullSizeContentView != nil {
		c.props.FullSizeContentView = p.FullSizeContentView
	}
	c.peer.Configure(ConfigWindow, c.props)
	return nil
}

// Properties returns the current standalone window properties.
func (c *Channel) Properties() WindowProps {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.props
}
