package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Attempts that entered the in-progress phase (fresh, resumed or restarted).
	attemptsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_attempts_started_total",
			Help: "Attempts that entered the in-progress phase",
		},
		[]string{"mode"}, // fresh, resume, restart
	)

	// Attempts currently connected, by phase.
	attemptsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "proctor_attempts_active",
			Help: "Connected attempts by phase",
		},
		[]string{"phase"},
	)

	violations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_violations_total",
			Help: "Detector decisions by kind and action",
		},
		[]string{"kind", "action"},
	)

	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_submissions_total",
			Help: "Submission attempts by trigger and outcome",
		},
		[]string{"trigger", "status"}, // trigger: interactive/timer/violation
	)

	backendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proctor_backend_request_duration_seconds",
			Help:    "Latency of quiz backend REST calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "code"},
	)
)

// AttemptStarted counts an entry into the in-progress phase.
func AttemptStarted(mode string) {
	attemptsStarted.WithLabelValues(mode).Inc()
}

// PhaseChanged moves one attempt between phase gauges. Empty names are skipped.
func PhaseChanged(from, to string) {
	if from != "" {
		attemptsActive.WithLabelValues(from).Dec()
	}
	if to != "" {
		attemptsActive.WithLabelValues(to).Inc()
	}
}

// Violation counts a detector decision.
func Violation(kind, action string) {
	if kind == "" {
		kind = "none"
	}
	violations.WithLabelValues(kind, action).Inc()
}

// Submission counts a submit outcome.
func Submission(trigger string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	submissions.WithLabelValues(trigger, status).Inc()
}

// ObserveBackend records a backend call. code is 0 for transport failures.
func ObserveBackend(op string, code int, since time.Time) {
	backendDuration.WithLabelValues(op, strconv.Itoa(code)).Observe(time.Since(since).Seconds())
}
