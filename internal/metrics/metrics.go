package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ScopeSemester   = "semester"
	ScopeCumulative = "cumulative"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	GPASyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpa_sync_total",
		Help: "GPA record upserts by scope and outcome.",
	}, []string{"scope", "outcome"})

	BatchSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gpa_batch_sync_duration_seconds",
		Help:    "Time taken to sync every student of one term.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	TranscriptCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_cache_requests_total",
		Help: "Transcript cache lookups by result.",
	}, []string{"result"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveSync counts one GPA upsert.
func ObserveSync(scope string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	GPASyncTotal.WithLabelValues(scope, outcome).Inc()
}
