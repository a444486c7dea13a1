// Package observability exposes Prometheus metrics for the survey engine.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of collaborator API calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"operation"},
	)

	categoryFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "category_fetch_total",
			Help: "Category layer fetches by outcome.",
		},
		[]string{"outcome"},
	)

	selectionRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_rejects_total",
			Help: "Selection additions rejected, by reason.",
		},
		[]string{"reason"},
	)

	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_searches_total",
			Help: "Geocode searches by cache outcome.",
		},
		[]string{"outcome"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Theme page submissions by outcome.",
		},
		[]string{"outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(operation string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(operation).Observe(durationSeconds)
}

// Category fetch outcomes.
const (
	FetchApplied = "applied"
	FetchStale   = "stale_discarded"
	FetchFailed  = "failed"
	FetchRetried = "retried"
	FetchEvicted = "evicted"
)

func IncCategoryFetch(outcome string) {
	categoryFetchTotal.WithLabelValues(outcome).Inc()
}

func IncSelectionReject(reason string) {
	selectionRejectsTotal.WithLabelValues(reason).Inc()
}

func IncSearch(outcome string) {
	searchesTotal.WithLabelValues(outcome).Inc()
}

func IncSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
