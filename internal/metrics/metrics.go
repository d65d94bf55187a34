package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coingecko_ingester"

var (
	// FetchAttempts counts outbound request attempts.
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "Outbound API request attempts by route and outcome.",
	}, []string{"route", "outcome"})

	// FetchExhausted counts logical requests that ran out of attempts.
	FetchExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_exhausted_total",
		Help:      "Logical API requests that failed after every attempt.",
	}, []string{"route"})

	// RateLimitWaitSeconds observes how long callers wait for the window to open.
	RateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds",
		Help:      "Time spent waiting for a sliding-window grant.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
	})

	// TransformFailures counts records skipped because they could not be mapped.
	TransformFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transform_failures_total",
		Help:      "Records skipped by the transform stage.",
	}, []string{"kind"})

	// StoreChunks counts batched-write chunks.
	StoreChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_chunks_total",
		Help:      "Batched-write chunks by entity family and result.",
	}, []string{"family", "result"})

	// StoreItems counts items written in fully successful chunks.
	StoreItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_items_total",
		Help:      "Items persisted in fully successful chunks.",
	}, []string{"family"})

	// JobRuns counts scheduled and manual job runs.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Job runs by job name and outcome.",
	}, []string{"job", "outcome"})

	// JobDuration observes job run durations.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Job run duration.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"job"})

	// JobItems reports the item count of the most recent run per job.
	JobItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "job_last_items",
		Help:      "Items processed by the most recent run of each job.",
	}, []string{"job"})
)

// Route reduces an endpoint path to a low-cardinality label by replacing
// the id segment of detail endpoints.
//
//	"exchanges/binance" -> "exchanges/{id}"
//	"coins/markets"     -> "coins/markets"
func Route(endpoint string) string {
	endpoint = strings.Trim(endpoint, "/")
	parts := strings.Split(endpoint, "/")
	if len(parts) != 2 {
		return endpoint
	}
	switch parts[0] {
	case "exchanges":
		if parts[1] != "list" {
			return "exchanges/{id}"
		}
	case "coins":
		if parts[1] != "list" && parts[1] != "markets" {
			return "coins/{id}"
		}
	}
	return endpoint
}
