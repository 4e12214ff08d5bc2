package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "casewatch",
		Subsystem: "dispatcher",
		Name:      "runs_total",
		Help:      "Collection runs by source and outcome.",
	}, []string{"source", "outcome"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "casewatch",
		Subsystem: "dispatcher",
		Name:      "run_duration_seconds",
		Help:      "Collection run duration by source.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	runsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "casewatch",
		Subsystem: "dispatcher",
		Name:      "runs_in_flight",
		Help:      "Collection runs currently executing.",
	})

	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casewatch",
		Subsystem: "dispatcher",
		Name:      "ticks_total",
		Help:      "Dispatch ticks processed.",
	})
)
