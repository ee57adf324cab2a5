package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caldav_sync_cycles_total",
		Help: "Total number of sync cycles run, by unit kind and result.",
	}, []string{"unit_kind", "result"})

	cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caldav_sync_duration_seconds",
		Help:    "Duration of sync cycles in seconds, by unit kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"unit_kind"})
)
