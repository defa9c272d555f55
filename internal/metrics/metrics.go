// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts successful check-ins by status.
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hr",
		Subsystem: "attendance",
		Name:      "check_ins_total",
		Help:      "Check-ins recorded, by status.",
	}, []string{"status"})

	// CheckOuts counts closed days by remark and source (manual or sweep).
	CheckOuts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hr",
		Subsystem: "attendance",
		Name:      "check_outs_total",
		Help:      "Attendance days closed, by remark and source.",
	}, []string{"remark", "source"})

	// SweepRecords counts records touched by the auto-checkout sweep.
	SweepRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hr",
		Subsystem: "sweep",
		Name:      "records_total",
		Help:      "Records processed by the auto-checkout sweep, by result.",
	}, []string{"result"})

	// SweepRuns counts sweep invocations by outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hr",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Sweep invocations, by outcome.",
	}, []string{"outcome"})

	// SweepDuration observes wall time of sweeps that did work.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hr",
		Subsystem: "sweep",
		Name:      "duration_seconds",
		Help:      "Duration of auto-checkout sweeps.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// Notifications counts notification publishes by outcome.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hr",
		Name:      "notifications_total",
		Help:      "Notification events published, by type and outcome.",
	}, []string{"type", "outcome"})

	// HTTPRequests counts handled requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hr",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests, by route and status code.",
	}, []string{"method", "route", "code"})
)
