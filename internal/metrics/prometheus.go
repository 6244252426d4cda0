package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intel_feed_run_duration_seconds",
			Help:    "Feed run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	RunTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_feed_run_total",
			Help: "Total number of feed runs",
		},
		[]string{"mode", "status"},
	)

	QueryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_feed_query_attempts_total",
			Help: "Total query attempts against upstream sources",
		},
		[]string{"category"},
	)

	CategorySuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intel_feed_category_success",
			Help: "Whether the last run succeeded for a category (1 or 0)",
		},
		[]string{"category"},
	)

	ItemsBySource = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intel_feed_items_by_source",
			Help: "Items produced per source in the last run",
		},
		[]string{"source"},
	)

	SkipsBySource = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_feed_skipped_records_total",
			Help: "Malformed upstream records skipped during normalization",
		},
		[]string{"source"},
	)

	ItemsBySector = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intel_feed_items_by_sector",
			Help: "Items per sector in the last run",
		},
		[]string{"sector"},
	)

	DuplicatesMerged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intel_feed_duplicates_merged_total",
			Help: "Total duplicate items folded during merge",
		},
	)

	BelowThreshold = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intel_feed_below_threshold_total",
			Help: "Total items dropped below the composite score threshold",
		},
	)

	CompositeScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intel_feed_composite_score",
			Help:    "Composite scores of published items",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_feed_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_feed_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DegradedRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intel_feed_degraded_runs_total",
			Help: "Total runs that completed with one or more failed categories",
		},
	)
)

func Init() {
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(RunTotal)
	prometheus.MustRegister(QueryAttempts)
	prometheus.MustRegister(CategorySuccess)
	prometheus.MustRegister(ItemsBySource)
	prometheus.MustRegister(SkipsBySource)
	prometheus.MustRegister(ItemsBySector)
	prometheus.MustRegister(DuplicatesMerged)
	prometheus.MustRegister(BelowThreshold)
	prometheus.MustRegister(CompositeScore)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DegradedRuns)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
