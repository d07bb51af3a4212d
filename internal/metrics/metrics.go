package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TreeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filezone",
		Name:      "tree_operations_total",
		Help:      "Tree operations by operation and result.",
	}, []string{"operation", "result"})

	TreeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filezone",
		Name:      "tree_operation_duration_seconds",
		Help:      "Latency of tree operations, lock wait included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	CorruptionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "filezone",
		Name:      "index_corruption_errors_total",
		Help:      "Orphan or cyclic parent chains met while resolving the tree.",
	})

	PartialDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "filezone",
		Name:      "partial_delete_failures_total",
		Help:      "Deletes committed to the index whose physical delete failed.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filezone",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filezone",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func ObserveTreeOperation(operation, result string, start time.Time) {
	TreeOperations.WithLabelValues(operation, result).Inc()
	TreeOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
