// ABOUTME: Prometheus counters for the API client
// ABOUTME: Tracks credential refreshes by outcome and responses by status class

package client

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshDiscarded = "discarded"
)

// Metrics groups the client's counters. A nil registerer yields working but
// unregistered counters.
type Metrics struct {
	Refreshes *prometheus.CounterVec
	Responses *prometheus.CounterVec
	Queued    prometheus.Counter
}

// NewMetrics creates the client counters and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymtrack",
			Subsystem: "client",
			Name:      "credential_refreshes_total",
			Help:      "Credential refresh calls issued, by outcome.",
		}, []string{"outcome"}),
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymtrack",
			Subsystem: "client",
			Name:      "responses_total",
			Help:      "API responses received, by status class.",
		}, []string{"class"}),
		Queued: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gymtrack",
			Subsystem: "client",
			Name:      "requests_queued_for_refresh_total",
			Help:      "Requests that waited on an in-flight credential refresh.",
		}),
	}
}

func (m *Metrics) observeResponse(status int) {
	m.Responses.WithLabelValues(strconv.Itoa(status/100) + "xx").Inc()
}
