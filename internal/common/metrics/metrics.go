// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_messages_processed_total",
			Help: "Total number of messages processed by the pipeline",
		},
		[]string{"intent", "language"},
	)

	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_escalations_total",
			Help: "Total number of messages escalated to a human agent",
		},
		[]string{"reason"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_response_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_response_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	ActionDispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_action_dispatch_failures_total",
			Help: "Total number of failed action dispatches",
		},
		[]string{"kind"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "engine_message_processing_seconds",
			Help: "Duration of full pipeline message processing in seconds",
		},
	)
)
