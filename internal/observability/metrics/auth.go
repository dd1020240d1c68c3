// Package metrics exposes Prometheus instruments for the auth flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	obserrors "github.com/snr-automations/teamdash/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultDenied  = "denied"
	ResultNoop    = "noop"
)

// Auth holds the auth instruments. A nil *Auth is valid and records nothing.
type Auth struct {
	gateDecisions    *prometheus.CounterVec
	gateDuration     prometheus.Histogram
	signIns          *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	recoveryCaptures *prometheus.CounterVec
	passwordCommits  *prometheus.CounterVec
	activeRuntimes   prometheus.Gauge
}

// NewAuth registers the auth instruments with reg under the "teamdash" namespace.
func NewAuth(reg prometheus.Registerer) *Auth {
	f := promauto.With(reg)
	const ns = "teamdash"
	return &Auth{
		gateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "allowlist", Name: "decisions_total",
			Help: "Allow-list gate decisions by result (authorized, denied, error).",
		}, []string{"result"}),
		gateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "allowlist", Name: "lookup_duration_seconds",
			Help:    "Allow-list lookup latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		signIns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "auth", Name: "sign_ins_total",
			Help: "Sign-in attempts by result and error class.",
		}, []string{"result", "error_class"}),
		stateTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "auth", Name: "state_transitions_total",
			Help: "Published auth state transitions by target state.",
		}, []string{"state"}),
		recoveryCaptures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "recovery", Name: "captures_total",
			Help: "Recovery link captures by status.",
		}, []string{"status"}),
		passwordCommits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "recovery", Name: "password_commits_total",
			Help: "Password commits by result and error class.",
		}, []string{"result", "error_class"}),
		activeRuntimes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "auth", Name: "active_runtimes",
			Help: "Client runtimes currently held in memory.",
		}),
	}
}

// GateDecision records one allow-list decision and its latency in seconds.
func (m *Auth) GateDecision(result string, seconds float64) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(result).Inc()
	m.gateDuration.Observe(seconds)
}

// SignIn records a sign-in outcome.
func (m *Auth) SignIn(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.signIns.WithLabelValues(ResultError, obserrors.Classify(err)).Inc()
		return
	}
	m.signIns.WithLabelValues(ResultSuccess, "").Inc()
}

// StateTransition records a published state.
func (m *Auth) StateTransition(state string) {
	if m == nil {
		return
	}
	m.stateTransitions.WithLabelValues(state).Inc()
}

// RecoveryCapture records a capture outcome.
func (m *Auth) RecoveryCapture(status string) {
	if m == nil {
		return
	}
	m.recoveryCaptures.WithLabelValues(status).Inc()
}

// PasswordCommit records a commit outcome.
func (m *Auth) PasswordCommit(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.passwordCommits.WithLabelValues(ResultError, obserrors.Classify(err)).Inc()
		return
	}
	m.passwordCommits.WithLabelValues(ResultSuccess, "").Inc()
}

// RuntimeAdded and RuntimeRemoved track the runtime registry size.
func (m *Auth) RuntimeAdded() {
	if m != nil {
		m.activeRuntimes.Inc()
	}
}

func (m *Auth) RuntimeRemoved() {
	if m != nil {
		m.activeRuntimes.Dec()
	}
}
