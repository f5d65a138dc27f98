// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal      *prometheus.CounterVec
	listingsExtractedTotal *prometheus.CounterVec
	jobsUpsertedTotal      *prometheus.CounterVec
	runsTotal              *prometheus.CounterVec
	proxyQuarantinesTotal  prometheus.Counter
	activeWorkers          prometheus.Gauge
	fetchDurationSeconds   *prometheus.HistogramVec
	rateLimitDelaySeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_fetched_total",
				Help: "Listing pages fetched, labeled by target and outcome.",
			},
			[]string{"target", "outcome"},
		)

		listingsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_listings_extracted_total",
				Help: "Raw listings extracted, labeled by target.",
			},
			[]string{"target"},
		)

		jobsUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_jobs_upserted_total",
				Help: "Normalized jobs written, labeled by result (created or updated).",
			},
			[]string{"result"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_runs_total",
				Help: "Per-target runs completed, labeled by status.",
			},
			[]string{"status"},
		)

		proxyQuarantinesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_proxy_quarantines_total",
				Help: "Proxy quarantine transitions.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_active_workers",
				Help: "Crawl tasks currently executing.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_fetch_duration_seconds",
				Help:    "Page fetch latency, labeled by target.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"target"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_rate_limit_delay_seconds",
				Help:    "Time spent waiting on the per-target rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"target"},
		)
	})
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObservePageFetched records one page fetch for a target.
func ObservePageFetched(target, outcome string) {
	Init()
	pagesFetchedTotal.WithLabelValues(target, outcome).Inc()
}

// ObserveListingsExtracted adds n extracted listings for a target.
func ObserveListingsExtracted(target string, n int) {
	Init()
	listingsExtractedTotal.WithLabelValues(target).Add(float64(n))
}

// ObserveJobUpserted records an upsert; created selects the label.
func ObserveJobUpserted(created bool) {
	Init()
	result := "updated"
	if created {
		result = "created"
	}
	jobsUpsertedTotal.WithLabelValues(result).Inc()
}

// ObserveRunCompleted records one finished per-target run.
func ObserveRunCompleted(status string) {
	Init()
	runsTotal.WithLabelValues(status).Inc()
}

// ObserveProxyQuarantined counts a quarantine transition.
func ObserveProxyQuarantined() {
	Init()
	proxyQuarantinesTotal.Inc()
}

// WorkerStarted and WorkerFinished track the active worker gauge.
func WorkerStarted() {
	Init()
	activeWorkers.Inc()
}

// WorkerFinished decrements the active worker gauge.
func WorkerFinished() {
	Init()
	activeWorkers.Dec()
}

// ObserveFetchDuration records page fetch latency for a target.
func ObserveFetchDuration(target string, d time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(target).Observe(d.Seconds())
}

// ObserveRateLimitDelay records limiter wait time for a target.
func ObserveRateLimitDelay(target string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(target).Observe(d.Seconds())
}
