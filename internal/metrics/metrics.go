package metrics

import (
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors exist from package init so callers never check for nil; Init
// registers them with the default registry.
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outlier_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outlier_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outlier_search_cache_hits_total",
			Help: "Total search cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outlier_search_cache_misses_total",
			Help: "Total search cache misses.",
		},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outlier_searches_total",
			Help: "Searches served, by mode and result tier.",
		},
		[]string{"mode", "search_type"},
	)

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outlier_ingest_jobs_total",
			Help: "Ingestion jobs finished, by status.",
		},
		[]string{"status"},
	)

	JobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outlier_ingest_job_duration_seconds",
			Help:    "Wall-clock duration of ingestion jobs.",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 120},
		},
	)

	QuotaUnits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outlier_quota_units_total",
			Help: "Provider quota units consumed, by provider.",
		},
		[]string{"provider"},
	)

	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outlier_provider_errors_total",
			Help: "Provider call failures, by provider and kind.",
		},
		[]string{"provider", "kind"},
	)

	VideosUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outlier_videos_upserted_total",
			Help: "Videos written by ingestion.",
		},
	)
)

var initOnce sync.Once

// Init registers all collectors. Call once at startup; later calls are no-ops.
func Init(pool *pgxpool.Pool) {
	initOnce.Do(func() {
		if pool != nil {
			prometheus.MustRegister(
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "outlier_db_connection_pool_active",
						Help: "Number of active database connections.",
					},
					func() float64 { return float64(pool.Stat().AcquiredConns()) },
				),
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "outlier_db_connection_pool_idle",
						Help: "Number of idle database connections.",
					},
					func() float64 { return float64(pool.Stat().IdleConns()) },
				),
			)
		}

		prometheus.MustRegister(
			RequestDuration,
			RequestsInFlight,
			CacheHits,
			CacheMisses,
			SearchesTotal,
			JobsTotal,
			JobDuration,
			QuotaUnits,
			ProviderErrors,
			VideosUpserted,
		)
	})
}
