// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package loop provides the script context task queue.
//
// A Loop owns one goroutine that runs queued tasks one at a time in FIFO
// order. Everything that touches a script context (Lua calls, message and
// event handlers) runs as a loop task, so inbound deliveries from the
// player core, from surfaces and from other instances are serialized at
// message granularity instead of running on arbitrary goroutines.
package loop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
)

// Task is a unit of work run on the loop goroutine.
type Task struct {
	// Label names the task in logs and failure reports.
	Label string
	// Run executes the task. A returned error is reported as a callback failure.
	Run func(ctx context.Context) error
	// Dropped, if set, is called instead of Run when the loop stops
	// without draining the queue.
	Dropped func(err error)
}

type step int

const (
	stepWait step = iota
	stepRun
	stepExit
	stepAbort
)

type loopKey struct{}

// Loop is a single-goroutine FIFO task queue. The queue is unbounded.
type Loop struct {
	name     string
	logger   *slog.Logger
	reporter fault.Reporter

	mu       sync.Mutex
	queue    []Task
	started  bool
	stopping bool
	drain    bool

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop logger.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		lp.logger = l
	}
}

// WithReporter sets where task failures are reported.
func WithReporter(r fault.Reporter) Option {
	return func(lp *Loop) {
		lp.reporter = r
	}
}

// New creates a stopped loop. Call Start to begin running tasks; tasks
// enqueued before Start wait in the queue.
func New(name string, opts ...Option) *Loop {
	l := &Loop{
		name:     name,
		logger:   slog.Default(),
		reporter: fault.Discard,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the loop name.
func (l *Loop) Name() string {
	return l.name
}

// Start launches the loop goroutine. Cancelling ctx stops the loop
// without draining. Start returns an error if the loop was already
// started or stopped.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started || l.stopping {
		return oops.Code(fault.CodeLoopClosed).
			With("loop", l.name).
			Errorf("loop %s cannot be started twice", l.name)
	}
	l.started = true

	runCtx := context.WithValue(ctx, loopKey{}, l)
	go l.run(runCtx)
	return nil
}

// Enqueue appends t to the queue. It fails with LOOP_CLOSED once Stop has
// been called.
func (l *Loop) Enqueue(t Task) error {
	if t.Run == nil {
		return fault.InvalidArgument("task %q has no Run function", t.Label)
	}

	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		return oops.Code(fault.CodeLoopClosed).
			With("loop", l.name).
			With("task", t.Label).
			Errorf("loop %s is stopped", l.name)
	}
	l.queue = append(l.queue, t)
	l.mu.Unlock()

	l.signal()
	return nil
}

// Go enqueues fn under label.
func (l *Loop) Go(label string, fn func(ctx context.Context) error) error {
	return l.Enqueue(Task{Label: label, Run: fn})
}

// Call runs fn on the loop and waits for its result. Called from a task
// already running on this loop, fn runs inline.
func (l *Loop) Call(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	if Current(ctx) == l {
		return fn(ctx)
	}

	result := make(chan error, 1)
	err := l.Enqueue(Task{
		Label: label,
		Run: func(taskCtx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					result <- fault.Callback(l.name, label, oops.Errorf("panic: %v", r))
				}
			}()
			result <- fn(taskCtx)
			return nil
		},
		Dropped: func(err error) { result <- err },
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return oops.With("loop", l.name).With("task", label).Wrap(ctx.Err())
	}
}

// Sync waits until every task enqueued before the call has run.
func (l *Loop) Sync(ctx context.Context) error {
	return l.Call(ctx, "sync", func(context.Context) error { return nil })
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stop asks the loop to stop and returns without waiting; use Wait or
// Done to observe the exit. With drain set, tasks already queued still
// run; otherwise they are dropped and their Dropped hooks are called.
// Stop may be called from a task running on the loop itself and is safe
// to call more than once.
func (l *Loop) Stop(drain bool) {
	l.mu.Lock()
	if l.stopping {
		// A later abort overrides an earlier drain.
		if !drain {
			l.drain = false
		}
	} else {
		l.stopping = true
		l.drain = drain
	}
	started := l.started
	l.mu.Unlock()

	if !started {
		l.abort()
		l.closeDone()
		return
	}
	l.signal()
}

// Wait blocks until the loop goroutine has exited. It must not be called
// from a task running on the same loop.
func (l *Loop) Wait() {
	<-l.done
}

// Done is closed when the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Current returns the loop running the task that owns ctx, or nil.
func Current(ctx context.Context) *Loop {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(loopKey{}).(*Loop)
	return l
}

func (l *Loop) closeDone() {
	l.doneOnce.Do(func() { close(l.done) })
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run(ctx context.Context) {
	defer l.closeDone()
	l.logger.Debug("script loop started", "loop", l.name)

	for {
		t, s := l.next()
		switch s {
		case stepRun:
			l.execute(ctx, t)
		case stepExit:
			l.logger.Debug("script loop stopped", "loop", l.name)
			return
		case stepAbort:
			l.abort()
			l.logger.Debug("script loop aborted", "loop", l.name)
			return
		case stepWait:
			select {
			case <-l.wake:
			case <-ctx.Done():
				l.mu.Lock()
				l.stopping = true
				l.drain = false
				l.mu.Unlock()
			}
		}
	}
}

func (l *Loop) next() (Task, step) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.stopping && !l.drain:
		return Task{}, stepAbort
	case len(l.queue) > 0:
		t := l.queue[0]
		l.queue[0] = Task{}
		l.queue = l.queue[1:]
		return t, stepRun
	case l.stopping:
		return Task{}, stepExit
	default:
		return Task{}, stepWait
	}
}

func (l *Loop) abort() {
	l.mu.Lock()
	dropped := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, t := range dropped {
		RecordTask(StatusDropped)
		if t.Dropped == nil {
			continue
		}
		t.Dropped(oops.Code(fault.CodeLoopClosed).
			With("loop", l.name).
			With("task", t.Label).
			Errorf("loop %s stopped before task ran", l.name))
	}
}

func (l *Loop) execute(ctx context.Context, t Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			RecordTask(StatusPanic)
			l.reporter.Report(l.name, fault.Callback(l.name, t.Label,
				oops.With("stack", string(debug.Stack())).Errorf("panic: %v", r)))
		}
	}()

	err := t.Run(ctx)
	RecordTaskDuration(time.Since(start))
	if err != nil {
		RecordTask(StatusError)
		if !fault.Is(err, fault.CodeCallback) {
			err = fault.Callback(l.name, t.Label, err)
		}
		l.reporter.Report(l.name, err)
		return
	}
	RecordTask(StatusOK)
}
