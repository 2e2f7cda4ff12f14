package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks logical requests by final outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashclient_requests_total",
			Help: "Total number of dispatched requests by outcome",
		},
		[]string{"method", "outcome"},
	)

	// AttemptsTotal tracks individual network attempts
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashclient_attempts_total",
			Help: "Total number of network attempts",
		},
		[]string{"method", "result"},
	)

	// RetriesTotal tracks scheduled retries by reason
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashclient_retries_total",
			Help: "Total number of scheduled retries",
		},
		[]string{"reason"},
	)

	// AttemptLatency tracks attempt latency
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashclient_attempt_latency_seconds",
			Help:    "Network attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ErrorsClassified tracks classified errors
	ErrorsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashclient_errors_classified_total",
			Help: "Total number of classified errors",
		},
		[]string{"type", "severity"},
	)

	// QueueLength tracks the offline queue length
	QueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashclient_offline_queue_length",
			Help: "Number of requests waiting in the offline queue",
		},
	)

	// QueueOutcomes tracks how queued requests leave the queue
	QueueOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashclient_offline_queue_outcomes_total",
			Help: "Queued requests by outcome (rejected, expired, cleared, drained, failed, requeued)",
		},
		[]string{"outcome"},
	)

	// Online reports connectivity (1 online, 0 offline)
	Online = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashclient_online",
			Help: "Whether the remote API is reachable",
		},
	)
)
