package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sales stored successfully
	salesRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "academy_sales_recorded_total",
			Help: "Total number of sales recorded",
		},
	)

	// Sale recording failures partitioned by error kind
	saleFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_sale_failures_total",
			Help: "Total number of failed sale recordings by error kind",
		},
		[]string{"kind"},
	)

	// Tier lookups that matched no rule and used the lowest tier
	sellerLevelFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "academy_seller_level_fallback_total",
			Help: "Number of seller level lookups that fell back to the lowest tier",
		},
	)

	// Seller lock acquisitions that did not succeed
	sellerLockMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "academy_seller_lock_misses_total",
			Help: "Number of per-seller lock attempts that proceeded without the distributed lock",
		},
	)

	// KPI recompute duration in seconds
	kpiRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "academy_kpi_recompute_duration_seconds",
			Help:    "Monthly KPI recompute latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
