// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package surface

import "github.com/prometheus/client_golang/prometheus"

var (
	pendingDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marquee_surface_pending_messages",
			Help: "Messages buffered for surfaces that are not loaded yet",
		},
		[]string{"kind"},
	)
	delivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_surface_messages_delivered_total",
			Help: "Total number of messages delivered to surface content",
		},
		[]string{"kind"},
	)
)

// RegisterMetrics registers surface metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(pendingDepth)
	reg.MustRegister(delivered)
}
