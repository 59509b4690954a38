// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package surface implements the script side of an auxiliary UI surface:
// the overlay, the sidebar and standalone windows. A Channel tracks the
// surface's load state, buffers outbound messages until the content is
// ready and schedules inbound messages onto the script loop.
package surface

import (
	"context"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/statekit"
	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/loop"
	"github.com/marquee-player/marquee/internal/message"
)

// Kind identifies the surface type.
type Kind string

// Surface kinds.
const (
	KindOverlay Kind = "overlay"
	KindSidebar Kind = "sidebar"
	KindWindow  Kind = "standalone-window"
)

// Receiver accepts messages sent by surface content.
type Receiver interface {
	Receive(name string, data any) error
}

// Peer is the rendering side of a surface. Peers must not call back into
// the Channel synchronously from Deliver, SetVisible, Configure or Dispose.
type Peer interface {
	// Attach gives the peer the receiver for messages sent by its content.
	Attach(r Receiver)
	// Load starts loading path and calls done exactly once, from any
	// goroutine, when the content is ready or has failed.
	Load(path string, done func(err error))
	// Deliver hands a message to loaded content.
	Deliver(msg message.Message) error
	// SetVisible shows or hides the surface.
	SetVisible(visible bool)
	// Configure applies a presentation setting such as opacity or style.
	Configure(key string, value any)
	// Dispose releases the surface.
	Dispose()
}

// ReadyHook runs on the script loop each time the surface finishes loading.
type ReadyHook func(ctx context.Context, c *Channel)

// Channel is the script-side endpoint of one surface.
type Channel struct {
	kind     Kind
	source   string
	loop     *loop.Loop
	peer     Peer
	logger   *slog.Logger
	reporter fault.Reporter
	resolve  func(path string) (string, error)
	onReady  ReadyHook
	slots    *message.Slots

	mu         sync.Mutex
	lc         *lifecycle
	interp     *statekit.Interpreter[lifecycle]
	generation uint64
	closed     bool
	path       string
	pending    []message.Message
	visible    bool

	simple  bool
	opacity float64
	props   WindowProps
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = l
	}
}

// WithReporter sets where asynchronous failures are reported.
func WithReporter(r fault.Reporter) Option {
	return func(c *Channel) {
		c.reporter = r
	}
}

// WithSource sets the label used for failure reports and message senders.
func WithSource(source string) Option {
	return func(c *Channel) {
		c.source = source
	}
}

// WithResolver maps script-supplied paths to loadable locations.
func WithResolver(fn func(path string) (string, error)) Option {
	return func(c *Channel) {
		c.resolve = fn
	}
}

// WithReadyHook sets a hook that runs after every successful load.
func WithReadyHook(h ReadyHook) Option {
	return func(c *Channel) {
		c.onReady = h
	}
}

// New creates an unloaded channel for a surface of kind, scheduling
// inbound work on lp.
func New(kind Kind, lp *loop.Loop, peer Peer, opts ...Option) (*Channel, error) {
	if lp == nil || peer == nil {
		return nil, fault.InvalidArgument("surface %s needs a loop and a peer", kind)
	}
	c := &Channel{
		kind:     kind,
		source:   "surface:" + string(kind),
		loop:     lp,
		peer:     peer,
		logger:   slog.Default(),
		reporter: fault.Discard,
		resolve:  func(path string) (string, error) { return path, nil },
		slots:    message.NewSlots(),
		lc:       &lifecycle{},
		opacity:  1,
	}
	for _, opt := range opts {
		opt(c)
	}

	interp, err := buildLifecycle(c.source, c.lc)
	if err != nil {
		return nil, oops.In("surface").With("kind", string(kind)).Wrapf(err, "build lifecycle")
	}
	interp.Start()
	c.interp = interp
	peer.Attach(c)
	return c, nil
}

// Kind returns the surface kind.
func (c *Channel) Kind() Kind {
	return c.kind
}

// State returns the current load state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Channel) state() State {
	if c.closed {
		return StateClosed
	}
	return State(c.interp.State().Value)
}

// Path returns the path of the latest load request.
func (c *Channel) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Pending returns the number of buffered outbound messages.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Loads returns how many loads were started and how many completed.
func (c *Channel) Loads() (started, completed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lc.Loads, c.lc.Completions
}

// Visible reports whether the surface is shown.
func (c *Channel) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// LoadFile starts loading path into the surface. Loading again while a
// load is in flight supersedes it; the earlier completion is ignored.
func (c *Channel) LoadFile(path string) error {
	resolved, err := c.resolve(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.simple = false
	c.mu.Unlock()
	return c.load(resolved)
}

func (c *Channel) load(path string) error {
	c.mu.Lock()
	if c.state() == StateClosed {
		c.mu.Unlock()
		return c.closedError("load")
	}
	c.generation++
	gen := c.generation
	c.path = path
	c.interp.Send(statekit.Event{Type: eventLoad})
	c.mu.Unlock()

	c.logger.Debug("surface load started", "surface", c.source, "path", path, "generation", gen)
	c.peer.Load(path, func(loadErr error) {
		err := c.loop.Enqueue(loop.Task{
			Label: c.source + " load",
			Run: func(ctx context.Context) error {
				c.complete(ctx, gen, path, loadErr)
				return nil
			},
		})
		if err != nil {
			c.logger.Debug("surface load completion dropped", "surface", c.source, "error", err)
		}
	})
	return nil
}

func (c *Channel) complete(ctx context.Context, gen uint64, path string, loadErr error) {
	c.mu.Lock()
	if gen != c.generation || c.state() != StateLoading {
		c.mu.Unlock()
		c.logger.Debug("stale surface load ignored", "surface", c.source, "generation", gen)
		return
	}

	pending := c.pending
	c.pending = nil
	pendingDepth.WithLabelValues(string(c.kind)).Sub(float64(len(pending)))

	if loadErr != nil {
		c.interp.Send(statekit.Event{Type: eventFailed, Payload: loadErr})
		c.mu.Unlock()
		c.reporter.Report(c.source, oops.With("discarded", len(pending)).
			Wrap(fault.Load(c.source, path, loadErr)))
		return
	}

	c.interp.Send(statekit.Event{Type: eventLoaded})
	// Flush under the lock so a concurrent PostMessage cannot overtake
	// the buffered messages.
	for _, msg := range pending {
		c.deliver(msg)
	}
	hook := c.onReady
	c.mu.Unlock()

	c.logger.Debug("surface ready", "surface", c.source, "path", path, "flushed", len(pending))
	if hook != nil {
		hook(ctx, c)
	}
}

func (c *Channel) deliver(msg message.Message) {
	if err := c.peer.Deliver(msg); err != nil {
		c.reporter.Report(c.source, oops.Code(fault.CodeResource).
			In("surface").
			With("message", msg.Name).
			Wrapf(err, "deliver %q to %s", msg.Name, c.source))
		return
	}
	delivered.WithLabelValues(string(c.kind)).Inc()
}

// PostMessage sends a message to the surface content. Before the content
// is ready, messages are buffered and flushed in order once it loads.
func (c *Channel) PostMessage(name string, data any) error {
	msg, err := message.New(c.source, name, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state() {
	case StateReady:
		c.deliver(msg)
		return nil
	case StateUnloaded, StateLoading:
		c.pending = append(c.pending, msg)
		pendingDepth.WithLabelValues(string(c.kind)).Inc()
		return nil
	case StateFailed:
		return oops.With("message", name).
			Wrap(fault.Load(c.source, c.path, oops.Errorf("surface content failed to load")))
	default:
		return c.closedError("post message")
	}
}

// OnMessage installs the handler for messages named name sent by the
// surface content. A later registration replaces the earlier one.
func (c *Channel) OnMessage(name string, h message.Handler) {
	c.slots.Set(name, h)
}

// Receive schedules delivery of an inbound message to its handler on the
// script loop. It is safe to call from any goroutine and never runs the
// handler synchronously.
func (c *Channel) Receive(name string, data any) error {
	if c.State() == StateClosed {
		return c.closedError("receive")
	}
	cloned, err := message.Clone(data)
	if err != nil {
		return err
	}
	return c.loop.Enqueue(loop.Task{
		Label: c.source + " message " + name,
		Run: func(context.Context) error {
			found, err := c.slots.Dispatch(name, cloned)
			if !found {
				c.logger.Debug("surface message has no handler", "surface", c.source, "message", name)
				return nil
			}
			if err != nil {
				return fault.Callback(c.source, name, err)
			}
			return nil
		},
	})
}

// Show makes the surface visible.
func (c *Channel) Show() error {
	return c.setVisible(true)
}

// Hide hides the surface without unloading it.
func (c *Channel) Hide() error {
	return c.setVisible(false)
}

func (c *Channel) setVisible(v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state() == StateClosed {
		return c.closedError("set visibility")
	}
	c.visible = v
	c.peer.SetVisible(v)
	return nil
}

// Dispose closes the surface for good. Buffered outbound messages are
// discarded and reported; inbound handlers already queued still run.
func (c *Channel) Dispose() {
	c.mu.Lock()
	if c.state() == StateClosed {
		c.mu.Unlock()
		return
	}
	c.interp.Send(statekit.Event{Type: eventDispose})
	c.interp.Stop()
	c.closed = true
	discarded := len(c.pending)
	c.pending = nil
	c.visible = false
	c.mu.Unlock()

	pendingDepth.WithLabelValues(string(c.kind)).Sub(float64(discarded))
	if discarded > 0 {
		c.reporter.Report(c.source, oops.Code(fault.CodeResource).
			In("surface").
			With("discarded", discarded).
			Errorf("%s disposed with %d undelivered messages", c.source, discarded))
	}
	c.peer.Dispose()
}

func (c *Channel) closedError(op string) error {
	return oops.Code(fault.CodeResource).
		In("surface").
		With("surface", c.source).
		With("operation", op).
		Errorf("%s: surface %s is closed", op, c.source)
}
