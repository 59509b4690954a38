// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package event

import "github.com/prometheus/client_golang/prometheus"

// Emissions counts emitted events by kind (builtin or custom).
var Emissions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marquee_events_emitted_total",
		Help: "Total number of events emitted by kind",
	},
	[]string{"kind"},
)

// CallbackFailures counts subscriber callbacks that returned an error or panicked.
var CallbackFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marquee_event_callback_failures_total",
		Help: "Total number of event callbacks that failed",
	},
)

// RegisterMetrics registers event metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Emissions)
	reg.MustRegister(CallbackFailures)
}

func recordEmission(name Name) {
	kind := "custom"
	if Builtin(name) {
		kind = "builtin"
	}
	Emissions.WithLabelValues(kind).Inc()
}
