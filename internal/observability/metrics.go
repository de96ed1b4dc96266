// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Reconstruction metrics
	PositionsReconstructed prometheus.Counter
	PositionFailures       *prometheus.CounterVec
	EventsNormalized       *prometheus.CounterVec
	WalletReconstructions  prometheus.Counter
	ReconstructionDuration prometheus.Histogram

	// Price oracle metrics
	PriceCacheHits     prometheus.Counter
	PriceCacheMisses   prometheus.Counter
	PriceFetchErrors   *prometheus.CounterVec
	HistoricalFallback *prometheus.CounterVec

	// Upstream latency metrics
	RPCCallLatency     *prometheus.HistogramVec
	IndexerCallLatency *prometheus.HistogramVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulReconstruction prometheus.Gauge
	UptimeSeconds                prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dlmm_viewer"
	}

	return &Metrics{
		// Reconstruction metrics
		PositionsReconstructed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "positions_reconstructed_total",
			Help:      "Total number of positions reconstructed successfully",
		}),
		PositionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "position_failures_total",
			Help:      "Total number of position reconstruction failures by stage",
		}, []string{"stage"}),
		EventsNormalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_normalized_total",
			Help:      "Total number of canonical events produced by source",
		}, []string{"source"}),
		WalletReconstructions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "wallet_reconstructions_total",
			Help:      "Total number of wallet-level reconstruction runs",
		}),
		ReconstructionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "reconstruction_duration_seconds",
			Help:      "Wallet reconstruction duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		// Price oracle metrics
		PriceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "cache_hits_total",
			Help:      "Total number of price cache hits",
		}),
		PriceCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "cache_misses_total",
			Help:      "Total number of price cache misses",
		}),
		PriceFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "fetch_errors_total",
			Help:      "Total number of price fetch failures by kind",
		}, []string{"kind"}),
		HistoricalFallback: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "historical_fallbacks_total",
			Help:      "Total number of historical pricing degradations by fallback",
		}, []string{"fallback"}),

		// Upstream latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		IndexerCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "call_latency_seconds",
			Help:      "Indexer API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		// API metrics
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Health metrics
		LastSuccessfulReconstruction: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_reconstruction_timestamp",
			Help:      "Unix timestamp of last successful wallet reconstruction",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPositionReconstructed increments the reconstruction success counter.
func RecordPositionReconstructed() {
	DefaultMetrics.PositionsReconstructed.Inc()
}

// RecordPositionFailure records a reconstruction failure at the given stage.
func RecordPositionFailure(stage string) {
	DefaultMetrics.PositionFailures.WithLabelValues(stage).Inc()
}

// RecordEventsNormalized adds to the canonical event counter for a source.
func RecordEventsNormalized(source string, n int) {
	DefaultMetrics.EventsNormalized.WithLabelValues(source).Add(float64(n))
}

// RecordPriceFetchError records a failed price fetch.
func RecordPriceFetchError(kind string) {
	DefaultMetrics.PriceFetchErrors.WithLabelValues(kind).Inc()
}

// RecordHistoricalFallback records a pricing degradation.
func RecordHistoricalFallback(fallback string) {
	DefaultMetrics.HistoricalFallback.WithLabelValues(fallback).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordHTTPRequest records one served API request.
func RecordHTTPRequest(route, status string, seconds float64) {
	DefaultMetrics.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}
