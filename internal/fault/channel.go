// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package fault

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marquee-player/marquee/pkg/errutil"
)

// Report describes a failure that happened outside any synchronous call,
// such as a surface load error or a handler that panicked.
type Report struct {
	ID     ulid.ULID
	Source string // component that observed the failure, e.g. "surface:overlay"
	Err    error
	Time   time.Time
}

// Code returns the oops code of the reported error.
func (r Report) Code() string {
	return errutil.Code(r.Err)
}

// Reporter receives asynchronous failures.
type Reporter interface {
	Report(source string, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(source string, err error)

// Report calls f.
func (f ReporterFunc) Report(source string, err error) { f(source, err) }

// Discard is a Reporter that drops every failure.
var Discard Reporter = ReporterFunc(func(string, error) {})

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

func newReport(source string, err error) Report {
	now := time.Now()
	entropyLock.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), entropy)
	entropyLock.Unlock()
	return Report{ID: id, Source: source, Err: err, Time: now}
}

// Failures counts reported failures by code and source.
// Use RegisterMetrics to register this with a Prometheus registry.
var Failures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marquee_failures_total",
		Help: "Total number of asynchronous bridge failures by code and source",
	},
	[]string{"code", "source"},
)

// RegisterMetrics registers fault package metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Failures)
}

// Channel is the failure channel. Every report is logged, counted and
// forwarded to Failures() without blocking the reporter.
type Channel struct {
	logger *slog.Logger
	ch     chan Report
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithLogger sets the logger used for reports.
func WithLogger(l *slog.Logger) ChannelOption {
	return func(c *Channel) {
		c.logger = l
	}
}

// NewChannel creates a failure channel buffering up to size reports.
func NewChannel(size int, opts ...ChannelOption) *Channel {
	if size < 0 {
		size = 0
	}
	c := &Channel{
		logger: slog.Default(),
		ch:     make(chan Report, size),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report logs and forwards a failure.
func (c *Channel) Report(source string, err error) {
	if err == nil {
		return
	}
	r := newReport(source, err)
	code := r.Code()
	if code == "" {
		code = "UNKNOWN"
	}
	Failures.WithLabelValues(code, source).Inc()
	errutil.LogError(c.logger, "bridge failure", err, "source", source, "report_id", r.ID.String())

	select {
	case c.ch <- r:
	default:
		c.logger.Warn("failure report dropped: channel full",
			"source", source,
			"report_id", r.ID.String(),
		)
	}
}

// Failures returns the receive side of the channel.
func (c *Channel) Failures() <-chan Report {
	return c.ch
}

// Recorder keeps every report in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

// Report stores a failure.
func (r *Recorder) Report(source string, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, newReport(source, err))
}

// Reports returns a copy of the stored reports.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Count returns how many reports carry code.
func (r *Recorder) Count(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rep := range r.reports {
		if Is(rep.Err, code) {
			n++
		}
	}
	return n
}

// Tee returns a Reporter that forwards to every non-nil reporter.
func Tee(reporters ...Reporter) Reporter {
	return ReporterFunc(func(source string, err error) {
		for _, r := range reporters {
			if r != nil {
				r.Report(source, err)
			}
		}
	})
}
