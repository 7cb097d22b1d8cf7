package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)
)

var (
	ReservationAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flash_sale_reservation_attempts_total",
			Help: "Total number of reservation requests",
		},
	)

	ReservationOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flash_sale_reservation_outcomes_total",
			Help: "Reservation results by outcome",
		},
		[]string{"outcome"},
	)

	ReservedUnitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flash_sale_reserved_units_total",
			Help: "Total number of units committed to buyers",
		},
	)

	ReservationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flash_sale_reservation_duration_seconds",
			Help:    "End-to-end reservation latency including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	AllocatorRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flash_sale_allocator_retries_total",
			Help: "Reservation attempts retried after contention",
		},
	)

	SaleViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flash_sale_views_total",
			Help: "Total number of sale detail views",
		},
	)

	SalesByPhase = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flash_sale_sales",
			Help: "Number of sales per lifecycle phase at the last refresh",
		},
		[]string{"phase"},
	)

	AnalyticsTotalViews = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flash_sale_analytics_total_views",
			Help: "Sum of views across all sales at the last refresh",
		},
	)
)

var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

var (
	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Duration of Redis commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"command"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)
)

func TimeDBQuery(queryType, table string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		DBQueryDuration.WithLabelValues(queryType, table).Observe(duration)
	}
}

func TimeRedisCommand(command string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		RedisCommandDuration.WithLabelValues(command).Observe(duration)
	}
}

func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

func RecordSaleView() {
	SaleViewsTotal.Inc()
}
