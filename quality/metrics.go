package quality

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskmesh_turns_total",
			Help: "Total number of completed turns",
		},
		[]string{"specialist", "outcome"},
	)

	turnLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "deskmesh_turn_latency_seconds",
			Help: "Turn latency in seconds",
		},
		[]string{"specialist"},
	)

	tokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskmesh_tokens_total",
			Help: "Total tokens consumed by specialist executions",
		},
		[]string{"specialist"},
	)

	escalationCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskmesh_escalations_total",
			Help: "Total number of turns escalated to the human queue",
		},
	)

	droppedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskmesh_quality_records_dropped_total",
			Help: "Quality records dropped because the telemetry queue was full",
		},
	)

	breakerGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deskmesh_breaker_open",
			Help: "Circuit breaker state per specialist (1 open, 0 closed)",
		},
		[]string{"specialist"},
	)
)
