// Package metrics exposes Prometheus collectors for matching and the HTTP API.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Matching and job Prometheus metrics.
var (
	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldscout",
			Name:      "retrievals_total",
			Help:      "Field retrievals by domain and accepting strategy",
		},
		[]string{"domain", "strategy"}, // strategy "none" for no match
	)

	MatchConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fieldscout",
			Name:      "match_confidence",
			Help:      "Confidence of accepted matches",
			Buckets:   []float64{0.55, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1},
		},
		[]string{"strategy"},
	)

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldscout",
			Name:      "validation_failures_total",
			Help:      "Retrieved values failing validation, by severity",
		},
		[]string{"domain", "severity"},
	)

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldscout",
			Name:      "jobs_total",
			Help:      "Fill jobs by terminal status",
		},
		[]string{"status"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldscout",
			Name:      "cache_total",
			Help:      "Fill cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// RegisterMatchingMetrics registers the matching collectors with the default
// registry. Safe to call more than once.
func RegisterMatchingMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RetrievalsTotal)
		prometheus.MustRegister(MatchConfidence)
		prometheus.MustRegister(ValidationFailuresTotal)
		prometheus.MustRegister(JobsTotal)
		prometheus.MustRegister(CacheTotal)
	})
}

// ObserveRetrieval records one field resolution. An empty strategy or
// "none" means no match.
func ObserveRetrieval(domain, strategy string, confidence float64) {
	if strategy == "" {
		strategy = "none"
	}
	RetrievalsTotal.WithLabelValues(domain, strategy).Inc()
	if strategy != "none" {
		MatchConfidence.WithLabelValues(strategy).Observe(confidence)
	}
}
