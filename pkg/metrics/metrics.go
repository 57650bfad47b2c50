package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccessDecisions counts authorization decisions by action (grant|deny) and method.
	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portcullis_access_decisions_total",
			Help: "Total number of access decisions",
		},
		[]string{"action", "method"},
	)

	// AccessDecisionDuration measures time spent evaluating one access attempt.
	AccessDecisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portcullis_access_decision_duration_seconds",
			Help:    "Access decision evaluation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// AdminChanges counts administrative mutations by kind (permission.granted, access_point.deleted, ...).
	AdminChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portcullis_admin_changes_total",
			Help: "Total number of administrative changes",
		},
		[]string{"kind"},
	)

	// ArchiveDropped counts audit events the archive queue could not accept.
	ArchiveDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portcullis_archive_dropped_total",
			Help: "Audit events dropped because the archive queue was full",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portcullis_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
