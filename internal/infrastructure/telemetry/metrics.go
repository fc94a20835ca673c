// Package telemetry exposes the Prometheus metrics for the stores backend.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts profile cache lookups served from Redis.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stores",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Number of profile reads served from the cache",
	})

	// CacheMisses counts profile cache lookups that fell through to the database.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stores",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Number of profile reads that missed the cache",
	})

	// CacheDegraded counts reads served directly from the database because
	// the cache backend was unreachable.
	CacheDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stores",
		Subsystem: "cache",
		Name:      "degraded_total",
		Help:      "Number of profile reads that bypassed an unreachable cache",
	})

	// CacheInvalidations counts invalidate-on-write operations.
	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stores",
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Number of cache invalidations triggered by writes",
	})

	// RateRefreshFailures counts failed refresh attempts against the
	// external rate source.
	RateRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stores",
		Subsystem: "rates",
		Name:      "refresh_failures_total",
		Help:      "Number of failed exchange-rate refresh attempts",
	})

	// RateSnapshotGeneration reports the generation of the currently
	// published rate snapshot. A flat line means the refresher is stuck.
	RateSnapshotGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stores",
		Subsystem: "rates",
		Name:      "snapshot_generation",
		Help:      "Generation counter of the active exchange-rate snapshot",
	})

	// RateSnapshotAge reports the age of the active snapshot in seconds.
	RateSnapshotAge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stores",
		Subsystem: "rates",
		Name:      "snapshot_age_seconds",
		Help:      "Seconds since the active exchange-rate snapshot was fetched",
	})

	// HTTPRequests counts handled HTTP requests by method, path and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stores",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests processed",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes request latency by method and path.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stores",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)
