package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Interception counters
	InterceptedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_requests_total",
			Help: "Total number of intercepted requests by request class",
		},
		[]string{"class"},
	)

	PassthroughRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_passthrough_total",
			Help: "Total number of requests forwarded without caching",
		},
		[]string{"reason"}, // "method", "origin", "no_controller"
	)

	// Responses by where they came from: "cache", "network" or "fallback"
	Responses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_responses_total",
			Help: "Total number of responses served by request class and source",
		},
		[]string{"class", "source"},
	)

	StrategyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_strategy_errors_total",
			Help: "Total number of requests a strategy could not answer",
		},
		[]string{"class"},
	)

	Fetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_fetches_total",
			Help: "Total number of strategy network fetches by kind and outcome",
		},
		// kind: "foreground", "refresh"
		// outcome: "stored", "not_stored", "failed", "store_error"
		[]string{"class", "kind", "outcome"},
	)

	NetworkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_network_failures_total",
			Help: "Total number of failed network fetches",
		},
		[]string{"stage"}, // "request", "body"
	)

	NamespaceDeletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_cache_namespace_deletions_total",
			Help: "Total number of cache namespaces deleted",
		},
	)

	LifecycleEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_lifecycle_events_total",
			Help: "Total number of version lifecycle events",
		},
		[]string{"event"},
	)

	ControlMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_control_messages_total",
			Help: "Total number of control messages received by type",
		},
		[]string{"type"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_store_errors_total",
			Help: "Total number of store errors by level and operation",
		},
		[]string{"level", "operation"},
	)

	StrategyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "offline_cache_strategy_duration_seconds",
			Help:    "Duration of strategy execution by request class",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"class"},
	)

	// L1 capacity metrics only (if L1 is in-memory)
	CacheCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_cache_capacity_bytes",
			Help: "L1 cache capacity in bytes",
		},
		[]string{"level"}, // only "l1"
	)

	CacheUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_cache_used_bytes",
			Help: "L1 cache used space in bytes",
		},
		[]string{"level"}, // only "l1"
	)

	CacheKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_cache_keys",
			Help: "Number of keys held by a cache level",
		},
		[]string{"level"},
	)

	Online = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "offline_cache_online",
			Help: "1 when the network is reachable, 0 otherwise",
		},
	)
)

// RecordRequest records an intercepted request
func RecordRequest(class string) {
	InterceptedRequests.WithLabelValues(class).Inc()
}

// RecordPassthrough records a request forwarded without caching
func RecordPassthrough(reason string) {
	PassthroughRequests.WithLabelValues(reason).Inc()
}

// RecordResponse records where a served response came from
func RecordResponse(class, source string) {
	Responses.WithLabelValues(class, source).Inc()
}

// RecordStrategyError records a request that ended in an error
func RecordStrategyError(class string) {
	StrategyErrors.WithLabelValues(class).Inc()
}

// RecordFetch records the outcome of a strategy network fetch. kind tells
// whether the caller awaited it or it only refreshed a served entry.
func RecordFetch(class, kind, outcome string) {
	Fetches.WithLabelValues(class, kind, outcome).Inc()
}

// RecordNetworkFailure records a failed network fetch
func RecordNetworkFailure(stage string) {
	NetworkFailures.WithLabelValues(stage).Inc()
}

// RecordNamespaceDeletion records a deleted namespace
func RecordNamespaceDeletion() {
	NamespaceDeletions.Inc()
}

// RecordLifecycleEvent records a lifecycle transition
func RecordLifecycleEvent(event string) {
	LifecycleEvents.WithLabelValues(event).Inc()
}

// RecordControlMessage records a received control message
func RecordControlMessage(messageType string) {
	ControlMessages.WithLabelValues(messageType).Inc()
}

// RecordCacheError records a store error
func RecordCacheError(level, operation string) {
	CacheErrors.WithLabelValues(level, operation).Inc()
}

// UpdateL1CacheCapacity updates L1 cache capacity metrics only
func UpdateL1CacheCapacity(capacity, used int64) {
	CacheCapacity.WithLabelValues("l1").Set(float64(capacity))
	CacheUsed.WithLabelValues("l1").Set(float64(used))
}

// UpdateCacheKeys updates the key count of a cache level
func UpdateCacheKeys(level string, count int64) {
	CacheKeys.WithLabelValues(level).Set(float64(count))
}

// SetOnline updates the connectivity gauge
func SetOnline(online bool) {
	if online {
		Online.Set(1)
		return
	}
	Online.Set(0)
}

// TimeStrategy returns a timer function for measuring strategy duration
func TimeStrategy(class string) func() {
	timer := prometheus.NewTimer(StrategyDuration.WithLabelValues(class))
	return func() {
		timer.ObserveDuration()
	}
}
