// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package instance routes messages between player instances and owns the
// per-instance script context: loop, event bus, files and surfaces.
package instance

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marquee-player/marquee/internal/event"
	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/fileio"
	"github.com/marquee-player/marquee/internal/message"
	"github.com/marquee-player/marquee/internal/surface"
)

var tracer = otel.Tracer("marquee/instance")

// Spawner asks the player core to bring up a new instance. An error
// fails the creation.
type Spawner func(ctx context.Context, id ID, opts Options) error

// Hook runs for each instance after it is created or before it is torn
// down.
type Hook func(ctx context.Context, inst *Instance) error

// PeerFactory supplies the rendering peer for one of an instance's surfaces.
type PeerFactory func(id ID, kind surface.Kind) surface.Peer

// Router tracks live instances and routes messages between them.
//
// Sends take the read lock and enqueue onto the target's FIFO loop while
// holding it, so messages from one sender to one target arrive in the
// order they were sent. Creation and destruction take the write lock.
type Router struct {
	name     string
	ctx      context.Context
	logger   *slog.Logger
	reporter fault.Reporter
	spawner  Spawner
	onCreate []Hook
	onClose  []Hook
	peers    PeerFactory
	roots    fileio.Roots
	limit    int

	mu        sync.RWMutex
	instances map[ID]*Instance
	next      ID
	reserved  int
	closed    bool

	teardowns sync.WaitGroup
}

// Option configures a Router.
type Option func(*Router)

// WithName sets the name used in loop labels and logs.
func WithName(name string) Option {
	return func(r *Router) {
		r.name = name
	}
}

// WithLogger sets the router logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithReporter sets where asynchronous failures are reported.
func WithReporter(rep fault.Reporter) Option {
	return func(r *Router) {
		r.reporter = rep
	}
}

// WithSpawner sets the player core hook called for each created instance.
func WithSpawner(s Spawner) Option {
	return func(r *Router) {
		r.spawner = s
	}
}

// WithLimit caps the number of live instances. Zero means no limit.
func WithLimit(n int) Option {
	return func(r *Router) {
		r.limit = n
	}
}

// WithCreateHook adds a hook that runs for every new instance, including
// instance 0. Hook errors are reported, not returned.
func WithCreateHook(h Hook) Option {
	return func(r *Router) {
		r.onCreate = append(r.onCreate, h)
	}
}

// WithCloseHook adds a hook that runs after an instance's loop has exited
// and before its resources are released.
func WithCloseHook(h Hook) Option {
	return func(r *Router) {
		r.onClose = append(r.onClose, h)
	}
}

// WithPeerFactory sets how surface peers are created.
func WithPeerFactory(f PeerFactory) Option {
	return func(r *Router) {
		r.peers = f
	}
}

// WithRoots sets the directories instance file access is confined to.
func WithRoots(roots fileio.Roots) Option {
	return func(r *Router) {
		r.roots = roots
	}
}

// NewRouter creates a router with instance 0 already live. Instance loops
// stop when ctx is cancelled.
func NewRouter(ctx context.Context, opts ...Option) (*Router, error) {
	r := &Router{
		name:      "marquee",
		ctx:       ctx,
		logger:    slog.Default(),
		reporter:  fault.Discard,
		peers:     func(ID, surface.Kind) surface.Peer { return surface.NewFilePeer() },
		instances: make(map[ID]*Instance),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.mu.Lock()
	r.next = 1
	r.mu.Unlock()

	if _, err := r.start(ctx, 0, Options{Label: "main", EnablePlugins: true}); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Router) source(id ID) string {
	return r.name + "/" + id.String()
}

// Create brings up a new instance and returns its ID. IDs increase
// monotonically and an ID burned by a failed creation is never reused.
func (r *Router) Create(ctx context.Context, opts Options) (ID, error) {
	ctx, span := tracer.Start(ctx, "instance.create",
		trace.WithAttributes(attribute.String("instance.label", opts.Label)))
	defer span.End()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, r.createFailed(span, nil, "router is closed")
	}
	if r.limit > 0 && len(r.instances)+r.reserved >= r.limit {
		r.mu.Unlock()
		return 0, r.createFailed(span, nil, "instance limit %d reached", r.limit)
	}
	id := r.next
	r.next++
	r.reserved++
	r.mu.Unlock()
	defer r.release()
	span.SetAttributes(attribute.Int("instance.id", int(id)))

	if r.spawner != nil {
		if err := r.spawner(ctx, id, opts); err != nil {
			return 0, r.createFailed(span, err, "player core could not spawn %s", id)
		}
	}

	if _, err := r.start(ctx, id, opts); err != nil {
		return 0, r.createFailed(span, err, "start %s", id)
	}
	return id, nil
}

func (r *Router) release() {
	r.mu.Lock()
	r.reserved--
	r.mu.Unlock()
}

func (r *Router) createFailed(span trace.Span, cause error, format string, args ...any) error {
	createFailures.Inc()
	b := oops.Code(fault.CodeCreateFailed).In("instance")
	var err error
	if cause != nil {
		err = b.Wrapf(cause, format, args...)
	} else {
		err = b.Errorf(format, args...)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (r *Router) start(ctx context.Context, id ID, opts Options) (*Instance, error) {
	inst, err := newInstance(r, id, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		inst.teardown()
		return nil, oops.Code(fault.CodeCreateFailed).In("instance").Errorf("router is closed")
	}
	r.instances[id] = inst
	r.mu.Unlock()

	if err := inst.loop.Start(r.ctx); err != nil {
		r.mu.Lock()
		delete(r.instances, id)
		r.mu.Unlock()
		inst.teardown()
		return nil, err
	}
	liveInstances.Inc()
	r.logger.Debug("instance created", "instance", int(id), "label", opts.Label)

	for _, hook := range r.onCreate {
		if err := hook(ctx, inst); err != nil {
			r.reporter.Report(r.source(id), oops.In("instance").With("instance", int(id)).Wrapf(err, "create hook"))
		}
	}
	return inst, nil
}

// Get returns the live instance with id.
func (r *Router) Get(id ID) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// IDs returns the live instance IDs in ascending order.
func (r *Router) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedIDs()
}

func (r *Router) sortedIDs() []ID {
	ids := make([]ID, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Len returns the number of live instances.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Notify queues an event for instance id.
func (r *Router) Notify(id ID, name event.Name, payload any) error {
	inst, ok := r.Get(id)
	if !ok {
		return fault.Addressing(id.String(), "no live instance %s", id)
	}
	return inst.Notify(name, payload)
}

// NotifyAll queues an event for every live instance.
func (r *Router) NotifyAll(name event.Name, payload any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.sortedIDs() {
		if err := r.instances[id].Notify(name, payload); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) route(ctx context.Context, from *Instance, target Target, name string, data any) error {
	_, span := tracer.Start(ctx, "instance.route",
		trace.WithAttributes(
			attribute.Int("instance.from", int(from.id)),
			attribute.String("message.target", target.String()),
			attribute.String("message.name", name),
		))
	defer span.End()

	if name == "" {
		return fault.InvalidArgument("message name is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var err error
	switch target.kind {
	case targetLocal:
		err = r.send(from, from, name, data)
	case targetBroadcast:
		for _, id := range r.sortedIDs() {
			if id == from.id {
				continue
			}
			if sendErr := r.send(from, r.instances[id], name, data); sendErr != nil {
				r.reporter.Report(from.id.String(), sendErr)
			}
		}
	default:
		to, ok := r.instances[target.id]
		if !ok {
			err = fault.Addressing(target.id.String(), "no live instance %s", target.id)
			break
		}
		err = r.send(from, to, name, data)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	routed.WithLabelValues(target.label()).Inc()
	return nil
}

// send copies data into a message for one recipient and enqueues it. The
// caller holds the read lock.
func (r *Router) send(from, to *Instance, name string, data any) error {
	msg, err := message.New(from.id.String(), name, data)
	if err != nil {
		return err
	}
	if err := to.enqueue(msg, r.reporter); err != nil {
		return fault.Addressing(to.id.String(), "%s is shutting down: %v", to.id, err)
	}
	return nil
}

// Destroy removes instance id and stops its loop without draining it.
// Messages still queued for it are reported as undeliverable. Resources
// are released once the loop has exited.
func (r *Router) Destroy(id ID) error {
	r.mu.Lock()
	inst, ok := r.instances[id]
	if !ok {
		r.mu.Unlock()
		return fault.Addressing(id.String(), "no live instance %s", id)
	}
	delete(r.instances, id)
	r.teardowns.Add(1)
	r.mu.Unlock()

	liveInstances.Dec()
	inst.loop.Stop(false)
	go func() {
		defer r.teardowns.Done()
		<-inst.loop.Done()
		for _, hook := range r.onClose {
			if err := hook(r.ctx, inst); err != nil {
				r.reporter.Report(r.source(id), oops.In("instance").With("instance", int(id)).Wrapf(err, "close hook"))
			}
		}
		inst.teardown()
		r.logger.Debug("instance destroyed", "instance", int(id))
	}()
	return nil
}

// Close destroys every instance and waits until their resources are
// released. Close must not be called from an instance loop.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	ids := r.sortedIDs()
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Destroy(id)
	}
	r.teardowns.Wait()
}
