// Package metrics provides Prometheus metrics for the auth flows and the session sweeper.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flow names used as the "flow" label.
const (
	FlowRegister = "register"
	FlowLogin    = "login"
	FlowRefresh  = "refresh"
	FlowLogout   = "logout"
)

// Result label values.
const (
	ResultSuccess    = "success"
	ResultRejected   = "rejected"
	ResultValidation = "validation"
	ResultError      = "error"
)

// Metrics holds all Prometheus metrics for auth operations. A nil *Metrics, or one
// built with a nil registerer, records nothing.
type Metrics struct {
	enabled bool

	// Flow metrics
	flowsTotal   *prometheus.CounterVec
	flowDuration *prometheus.HistogramVec

	// Security metrics
	replaysTotal              prometheus.Counter
	compensationFailuresTotal prometheus.Counter

	// Worker metrics
	sessionsSweptTotal prometheus.Counter
}

// New creates the metrics and registers them with reg (typically prometheus.DefaultRegisterer).
// If reg is nil, returns a no-op Metrics instance.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{enabled: reg != nil}
	if !m.enabled {
		return m
	}
	factory := promauto.With(reg)

	m.flowsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "socialauth_auth_flows_total",
		Help: "Total auth flow calls by flow and result",
	}, []string{"flow", "result"})

	m.flowDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialauth_auth_flow_duration_seconds",
		Help:    "Auth flow duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})

	m.replaysTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "socialauth_token_replays_total",
		Help: "Refresh attempts rejected as replays; each one revokes a session",
	})

	m.compensationFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "socialauth_compensation_failures_total",
		Help: "Registrations whose rollback failed and left partial state",
	})

	m.sessionsSweptTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "socialauth_sessions_swept_total",
		Help: "Expired sessions deleted by the sweeper",
	})

	return m
}

// RecordFlow records one auth flow call and its duration.
func (m *Metrics) RecordFlow(flow, result string, d time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.flowsTotal.WithLabelValues(flow, result).Inc()
	m.flowDuration.WithLabelValues(flow).Observe(d.Seconds())
}

// RecordReplay records a detected refresh token replay.
func (m *Metrics) RecordReplay() {
	if m == nil || !m.enabled {
		return
	}
	m.replaysTotal.Inc()
}

// RecordCompensationFailure records a registration rollback that did not complete.
func (m *Metrics) RecordCompensationFailure() {
	if m == nil || !m.enabled {
		return
	}
	m.compensationFailuresTotal.Inc()
}

// AddSessionsSwept adds n deleted sessions.
func (m *Metrics) AddSessionsSwept(n int64) {
	if m == nil || !m.enabled || n <= 0 {
		return
	}
	m.sessionsSweptTotal.Add(float64(n))
}
