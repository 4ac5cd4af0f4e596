package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("holdem-autopilot/engine")

var (
	ticksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_engine_ticks_total",
			Help: "Snapshots processed, by outcome class",
		},
		[]string{"table", "class"},
	)

	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_engine_decisions_total",
			Help: "Commands dispatched and committed, by edge",
		},
		[]string{"table", "edge"},
	)

	heuristicTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_engine_heuristic_total",
			Help: "In-place corrections applied while reconciling",
		},
		[]string{"kind"},
	)

	rollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_engine_rollbacks_total",
			Help: "Repeated snapshots that reverted the last committed decision",
		},
		[]string{"table"},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autopilot_engine_tick_duration_seconds",
			Help:    "Tick latency including deliberate delays",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

const (
	heuristicBlind       = "blind_misread"
	heuristicDealer      = "dealer_ambiguous"
	heuristicDrift       = "stack_drift"
	heuristicFailedAllIn = "failed_allin"
	heuristicRoundSkip   = "round_skip"
)
