package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sumoflow_pipeline_runs_total",
		Help: "Total number of pipeline runs by final status.",
	}, []string{"status"})
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sumoflow_pipeline_stage_duration_seconds",
		Help:    "Wall time spent in each pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"stage"})
	stageRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sumoflow_pipeline_stage_rows",
		Help: "Rows produced by each stage in the most recent run.",
	}, []string{"stage"})
	unresolvedRoads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sumoflow_pipeline_unresolved_roads",
		Help: "Road name entries left without an edge id in the most recent run.",
	})
)
