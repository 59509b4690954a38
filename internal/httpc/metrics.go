// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package httpc

import "github.com/prometheus/client_golang/prometheus"

var requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marquee_http_requests_total",
		Help: "Outbound plugin HTTP requests by method and outcome",
	},
	[]string{"method", "outcome"},
)

// RegisterMetrics registers httpc metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(requests)
}

func outcome(status int, err error) string {
	switch {
	case err != nil:
		return "error"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "ok"
	}
}
