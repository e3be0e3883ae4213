package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TickerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategylab_ticker_runs_total",
			Help: "Ticker pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strategylab_pipeline_duration_seconds",
			Help:    "Duration of fetch+signal+simulate+analyze per ticker",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	PortfolioRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strategylab_portfolio_runs_total",
			Help: "Completed portfolio allocation runs",
		},
	)

	LastPortfolioReturn = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "strategylab_last_portfolio_return_pct",
			Help: "Total return of the most recent portfolio run",
		},
	)
)
