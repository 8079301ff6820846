// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchComputationsTotal counts global and single-match recomputes by outcome
	MatchComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardswap",
			Subsystem: "matching",
			Name:      "computations_total",
			Help:      "Total number of match computations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// MatchComputationDuration tracks global recompute latency
	MatchComputationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cardswap",
			Subsystem: "matching",
			Name:      "computation_duration_seconds",
			Help:      "Duration of a global match recompute in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// MatchesWrittenTotal counts match rows written by recompute
	MatchesWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cardswap",
			Subsystem: "matching",
			Name:      "matches_written_total",
			Help:      "Total number of match rows inserted or replaced by recompute",
		},
	)

	// TradeTransitionsTotal counts lifecycle transitions
	TradeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardswap",
			Subsystem: "trade",
			Name:      "transitions_total",
			Help:      "Total number of trade lifecycle transitions",
		},
		[]string{"transition"},
	)

	// SettlementOperationsTotal counts inventory decrements on completion
	SettlementOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardswap",
			Subsystem: "trade",
			Name:      "settlement_operations_total",
			Help:      "Total number of inventory settlement operations by side and outcome",
		},
		[]string{"side", "outcome"},
	)

	// NotificationsTotal counts notification deliveries
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardswap",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Total number of notification deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// OutboxEventsTotal counts processed inventory events
	OutboxEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardswap",
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Total number of inventory events processed by outcome",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsTotal tracks inbound API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardswap",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound API latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardswap",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)
