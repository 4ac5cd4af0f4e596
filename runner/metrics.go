package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_runner_errors_total",
			Help: "Errors charged to a table's budget",
		},
		[]string{"table"},
	)

	budgetRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autopilot_runner_error_budget",
			Help: "Errors a table may still absorb before it stops",
		},
		[]string{"table"},
	)

	stopsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_runner_stops_total",
			Help: "Tables stopped, by reason",
		},
		[]string{"table", "reason"},
	)

	tablesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autopilot_runner_tables_running",
			Help: "Table loops currently running",
		},
	)
)
