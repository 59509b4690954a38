// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package fileio

import "github.com/prometheus/client_golang/prometheus"

var openHandles = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "marquee_file_handles_open",
		Help: "Number of file handles currently open by scripts",
	},
)

// RegisterMetrics registers fileio metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(openHandles)
}
