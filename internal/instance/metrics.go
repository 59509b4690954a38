// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package instance

import "github.com/prometheus/client_golang/prometheus"

var (
	liveInstances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_instances_live",
			Help: "Number of live player instances",
		},
	)
	routed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_messages_routed_total",
			Help: "Total number of instance messages routed by target kind",
		},
		[]string{"target"},
	)
	createFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_instance_create_failures_total",
			Help: "Total number of player instances that could not be created",
		},
	)
)

// RegisterMetrics registers instance metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(liveInstances)
	reg.MustRegister(routed)
	reg.MustRegister(createFailures)
}
