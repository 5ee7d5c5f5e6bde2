// Package metrics exposes Prometheus counters for authentication attempts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFault    = "fault"
	OutcomeRedirect = "redirect"
	OutcomeNoModule = "no_module"
	OutcomeLogout   = "logout"
)

// AuthMetrics tracks authentication attempts.
//
// All metrics use the "passgate_" prefix. Methods handle a nil receiver, so
// a nil *AuthMetrics is a no-op when metrics are disabled.
type AuthMetrics struct {
	// Attempts counts requests reaching the resource.
	// Labels: strategy, outcome
	Attempts *prometheus.CounterVec

	// Duration tracks time spent in a strategy.
	// Labels: strategy
	Duration *prometheus.HistogramVec
}

// NewAuthMetrics creates the metrics and registers them with registerer.
// A nil registerer means prometheus.DefaultRegisterer.
func NewAuthMetrics(registerer prometheus.Registerer) *AuthMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &AuthMetrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passgate_auth_attempts_total",
				Help: "Total authentication attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "passgate_auth_duration_seconds",
				Help:    "Strategy processing duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
	}

	registerer.MustRegister(m.Attempts, m.Duration)
	return m
}

// RecordAttempt counts one attempt. strategy may be empty for requests that
// never reached a strategy.
func (m *AuthMetrics) RecordAttempt(strategy, outcome string) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.Attempts.WithLabelValues(strategy, outcome).Inc()
}

// ObserveDuration records how long a strategy took.
func (m *AuthMetrics) ObserveDuration(strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(strategy).Observe(d.Seconds())
}
