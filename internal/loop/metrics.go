// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package loop

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for task metrics.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusPanic   = "panic"
	StatusDropped = "dropped"
)

// Tasks counts loop tasks by outcome.
var Tasks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marquee_loop_tasks_total",
		Help: "Total number of script loop tasks by outcome",
	},
	[]string{"status"},
)

// TaskDuration observes how long tasks hold the script context.
var TaskDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "marquee_loop_task_duration_seconds",
		Help:    "Script loop task duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// RegisterMetrics registers loop metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Tasks)
	reg.MustRegister(TaskDuration)
}

// RecordTask increments the task counter for status.
func RecordTask(status string) {
	Tasks.WithLabelValues(status).Inc()
}

// RecordTaskDuration records how long a task ran.
func RecordTaskDuration(d time.Duration) {
	TaskDuration.Observe(d.Seconds())
}
