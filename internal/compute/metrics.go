package compute

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notebook",
		Name:      "executions_total",
		Help:      "Cell executions by engine and outcome.",
	}, []string{"engine", "outcome"})
	metricExecutionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "notebook",
		Name:      "execution_duration_seconds",
		Help:      "Wall time of cell executions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine"})
	metricQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "notebook",
		Name:      "executions_queued",
		Help:      "Cell executions waiting for the compute worker.",
	})
)
