// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package instance

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marquee-player/marquee/internal/event"
	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/fileio"
	"github.com/marquee-player/marquee/internal/loop"
	"github.com/marquee-player/marquee/internal/message"
	"github.com/marquee-player/marquee/internal/surface"
)

// Options describe a player instance to create.
type Options struct {
	Label                  string `json:"label,omitempty"`
	URL                    string `json:"url,omitempty"`
	EnablePlugins          bool   `json:"enablePlugins,omitempty"`
	DisableUI              bool   `json:"disableUI,omitempty"`
	DisableWindowAnimation bool   `json:"disableWindowAnimation,omitempty"`
}

// Instance is one player instance's script context. It owns the loop all
// of its script work runs on, its event bus, its open files and its three
// surfaces.
type Instance struct {
	id     ID
	opts   Options
	router *Router
	logger *slog.Logger

	loop     *loop.Loop
	bus      *event.Bus
	files    *fileio.Manager
	slots    *message.Slots
	surfaces map[surface.Kind]*surface.Channel
}

func newInstance(r *Router, id ID, opts Options) (*Instance, error) {
	source := r.source(id)
	logger := r.logger.With("instance", int(id))

	inst := &Instance{
		id:     id,
		opts:   opts,
		router: r,
		logger: logger,
		loop: loop.New(source,
			loop.WithLogger(logger),
			loop.WithReporter(r.reporter),
		),
		bus: event.NewBus(
			event.WithReporter(r.reporter),
			event.WithSource(source),
		),
		files:    fileio.NewManager(fileio.Resolver{Roots: r.roots}, fileio.WithLogger(logger)),
		slots:    message.NewSlots(),
		surfaces: make(map[surface.Kind]*surface.Channel, 3),
	}

	for _, kind := range []surface.Kind{surface.KindOverlay, surface.KindSidebar, surface.KindWindow} {
		surfaceOpts := []surface.Option{
			surface.WithLogger(logger),
			surface.WithReporter(r.reporter),
			surface.WithSource(source + "/" + string(kind)),
			surface.WithResolver(inst.resolveSurfacePath),
		}
		if kind == surface.KindOverlay {
			surfaceOpts = append(surfaceOpts, surface.WithReadyHook(inst.overlayReady))
		}
		ch, err := surface.New(kind, inst.loop, r.peers(id, kind), surfaceOpts...)
		if err != nil {
			inst.disposeSurfaces()
			return nil, err
		}
		inst.surfaces[kind] = ch
	}
	return inst, nil
}

// ID returns the instance identifier.
func (i *Instance) ID() ID {
	return i.id
}

// Options returns the options the instance was created with.
func (i *Instance) Options() Options {
	return i.opts
}

// Router returns the router that owns the instance.
func (i *Instance) Router() *Router {
	return i.router
}

// Loop returns the instance's script loop.
func (i *Instance) Loop() *loop.Loop {
	return i.loop
}

// Bus returns the instance's event bus.
func (i *Instance) Bus() *event.Bus {
	return i.bus
}

// Files returns the instance's file manager.
func (i *Instance) Files() *fileio.Manager {
	return i.files
}

// Surface returns the channel for kind.
func (i *Instance) Surface(kind surface.Kind) *surface.Channel {
	return i.surfaces[kind]
}

// Overlay returns the overlay channel.
func (i *Instance) Overlay() *surface.Channel {
	return i.surfaces[surface.KindOverlay]
}

// Sidebar returns the sidebar channel.
func (i *Instance) Sidebar() *surface.Channel {
	return i.surfaces[surface.KindSidebar]
}

// Window returns the standalone window channel.
func (i *Instance) Window() *surface.Channel {
	return i.surfaces[surface.KindWindow]
}

// Logger returns the instance logger.
func (i *Instance) Logger() *slog.Logger {
	return i.logger
}

// Notify queues an event emission from the player core. The payload is
// checked now; subscribers run later on the instance loop.
func (i *Instance) Notify(name event.Name, payload any) error {
	payload, err := event.CheckPayload(name, payload)
	if err != nil {
		return err
	}
	return i.loop.Enqueue(loop.Task{
		Label: "event " + string(name),
		Run: func(ctx context.Context) error {
			ctx, span := tracer.Start(ctx, "instance.notify",
				trace.WithAttributes(
					attribute.Int("instance.id", int(i.id)),
					attribute.String("event.name", string(name)),
				))
			defer span.End()

			n, err := i.bus.Emit(ctx, name, payload)
			span.SetAttributes(attribute.Int("event.subscribers", n))
			return err
		},
	})
}

// PostMessage sends a named message to target. Delivery is asynchronous;
// the returned error covers only addressing and argument problems.
func (i *Instance) PostMessage(ctx context.Context, target Target, name string, data any) error {
	return i.router.route(ctx, i, target, name, data)
}

// OnMessage installs the handler for messages named name from any
// instance. A later registration replaces the earlier one.
func (i *Instance) OnMessage(name string, h message.Handler) {
	i.slots.Set(name, h)
}

func (i *Instance) enqueue(msg message.Message, reporter fault.Reporter) error {
	return i.loop.Enqueue(loop.Task{
		Label: "message " + msg.Name,
		Run: func(context.Context) error {
			found, err := i.slots.Dispatch(msg.Name, msg.Data)
			if !found {
				i.logger.Debug("message has no handler", "message", msg.Name, "from", msg.From)
				return nil
			}
			if err != nil {
				return fault.Callback(i.id.String(), msg.Name, err)
			}
			return nil
		},
		Dropped: func(error) {
			reporter.Report(msg.From, fault.Addressing(i.id.String(),
				"message %q was not delivered: %s was destroyed", msg.Name, i.id))
		},
	})
}

func (i *Instance) overlayReady(ctx context.Context, _ *surface.Channel) {
	if _, err := i.bus.Emit(ctx, event.OverlayLoaded, nil); err != nil {
		i.logger.Warn("emit overlay loaded", "error", err)
	}
}

// resolveSurfacePath treats bare relative paths as bundle paths.
func (i *Instance) resolveSurfacePath(path string) (string, error) {
	if !strings.HasPrefix(path, "@") && !filepath.IsAbs(path) {
		path = fileio.PrefixPlugin + path
	}
	return i.files.Resolver().Resolve(path)
}

func (i *Instance) disposeSurfaces() {
	for _, ch := range i.surfaces {
		ch.Dispose()
	}
}

// teardown releases everything the instance owns. It runs after the loop
// has exited.
func (i *Instance) teardown() {
	i.bus.Close()
	i.disposeSurfaces()
	if n := i.files.CloseAll(); n > 0 {
		i.logger.Debug("closed files on teardown", "count", n)
	}
	i.slots.Clear()
}
