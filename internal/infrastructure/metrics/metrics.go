package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Entry metrics
	EntriesCreated   prometheus.Counter
	EntriesImported  prometheus.Counter
	EntryOperations  *prometheus.CounterVec
	EntryTransitions *prometheus.CounterVec
	EntryAmount      *prometheus.HistogramVec

	// Ledger metrics
	LedgersCreated prometheus.Counter
	LedgersJoined  prometheus.Counter

	// Portfolio metrics
	PortfolioComputations prometheus.Counter
	PortfolioDuration     prometheus.Histogram
	PortfolioWatchers     prometheus.Gauge

	// Exchange rate metrics
	RateLookups      *prometheus.CounterVec
	RateFetchErrors  prometheus.Counter
	RateSnapshotAge  prometheus.Gauge
	RateFetchLatency prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBErrors *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Entry metrics
		EntriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendlog_entries_created_total",
			Help: "Total number of entries created",
		}),
		EntriesImported: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendlog_entries_imported_total",
			Help: "Total number of entries written by bulk import",
		}),
		EntryOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_entry_operations_total",
				Help: "Total entry operations by type",
			},
			[]string{"operation"},
		),
		EntryTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_entry_transitions_total",
				Help: "Total entry status transitions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		EntryAmount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lendlog_entry_amount",
				Help:    "Entry amounts",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"currency"},
		),

		// Ledger metrics
		LedgersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendlog_ledgers_created_total",
			Help: "Total number of ledgers created",
		}),
		LedgersJoined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendlog_ledgers_joined_total",
			Help: "Total number of ledgers joined with an invite code",
		}),

		// Portfolio metrics
		PortfolioComputations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendlog_portfolio_computations_total",
			Help: "Total number of portfolio computations",
		}),
		PortfolioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lendlog_portfolio_duration_seconds",
			Help:    "Duration of portfolio computations",
			Buckets: prometheus.DefBuckets,
		}),
		PortfolioWatchers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lendlog_portfolio_watchers",
			Help: "Current number of live portfolio subscriptions",
		}),

		// Exchange rate metrics
		RateLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_rate_lookups_total",
				Help: "Total rate snapshot lookups by serving source",
			},
			[]string{"source"},
		),
		RateFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendlog_rate_fetch_errors_total",
			Help: "Total failed rate source fetches",
		}),
		RateSnapshotAge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lendlog_rate_snapshot_age_seconds",
			Help: "Age of the last served rate snapshot",
		}),
		RateFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lendlog_rate_fetch_duration_seconds",
			Help:    "Duration of rate source fetches",
			Buckets: prometheus.DefBuckets,
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lendlog_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		// Audit metrics
		AuditLogsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendlog_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),
	}
}
