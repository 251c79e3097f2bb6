package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skycast_resolutions_total",
			Help: "Total location resolutions by provider, kind and outcome",
		},
		[]string{"provider", "kind", "status"},
	)

	ResolutionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skycast_resolution_latency_seconds",
			Help:    "Resolution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "kind"},
	)

	RequestsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skycast_requests_dropped_total",
			Help: "Dashboard requests rejected before reaching a provider",
		},
		[]string{"reason"},
	)

	HistoryPersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skycast_history_persist_errors_total",
			Help: "Failed writes of the recent-city history",
		},
	)
)
