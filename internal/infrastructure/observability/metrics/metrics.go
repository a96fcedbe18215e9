// Package metrics registers the Prometheus collectors for URL mapping,
// fast-cache and transaction activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// urlRebuildDuration tracks URL mapping rebuild latency by mode
	urlRebuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "elements_url_rebuild_duration_seconds",
		Help:    "URL mapping rebuild duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"mode"})

	// urlRebuildTotal counts rebuilds by mode and result
	urlRebuildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elements_url_rebuild_total",
		Help: "Total URL mapping rebuilds by mode and result",
	}, []string{"mode", "result"})

	// urlMappingSize is the number of pointers in the inverted index
	urlMappingSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "elements_url_mapping_pointers",
		Help: "Number of URL pointers in the inverted index",
	})

	// urlLookups counts URL lookups by outcome
	urlLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elements_url_lookup_total",
		Help: "Total URL lookups by outcome",
	}, []string{"outcome"})

	// fastCacheWriteFailures counts fast-cache writes that exhausted retries
	fastCacheWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elements_fast_cache_write_failures_total",
		Help: "Fast-cache writes that did not round-trip after all retries",
	}, []string{"key"})

	// transactionsTotal counts transactions by outcome
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elements_transactions_total",
		Help: "Total transactions by outcome",
	}, []string{"outcome"})

	// changesApplied counts applied changes by kind
	changesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elements_changes_applied_total",
		Help: "Total applied changes by kind",
	}, []string{"kind"})
)

// ObserveURLRebuild records one rebuild
func ObserveURLRebuild(mode string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	urlRebuildDuration.WithLabelValues(mode).Observe(d.Seconds())
	urlRebuildTotal.WithLabelValues(mode, result).Inc()
}

// SetURLMappingSize publishes the inverted index size
func SetURLMappingSize(n int) {
	urlMappingSize.Set(float64(n))
}

// URLLookup records a lookup hit or miss
func URLLookup(hit bool) {
	if hit {
		urlLookups.WithLabelValues("hit").Inc()
		return
	}
	urlLookups.WithLabelValues("miss").Inc()
}

// FastCacheWriteFailed records an exhausted fast-cache write
func FastCacheWriteFailed(key string) {
	fastCacheWriteFailures.WithLabelValues(key).Inc()
}

// Transaction records a transaction outcome: applied, rejected, failed, rolled_back
func Transaction(outcome string) {
	transactionsTotal.WithLabelValues(outcome).Inc()
}

// ChangeApplied records one applied change
func ChangeApplied(kind string) {
	changesApplied.WithLabelValues(kind).Inc()
}
