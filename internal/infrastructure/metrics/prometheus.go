// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediavault"

var (
	// StorageOperationsTotal tracks object storage calls.
	// Labels:
	//   - operation: put, delete, stat, get, signed_url
	//   - status: success, error, not_found
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of object storage operations",
		},
		[]string{"operation", "status"},
	)

	// StreamResponsesTotal tracks media streaming responses by HTTP status.
	// Labels:
	//   - status: 200, 206, 404, 416
	StreamResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_responses_total",
			Help:      "Total number of media streaming responses",
		},
		[]string{"status"},
	)

	// StreamBytesTotal counts bytes piped to streaming clients.
	StreamBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_bytes_total",
			Help:      "Total number of media bytes served",
		},
	)

	// ConversionsTotal tracks container conversion outcomes.
	// Labels:
	//   - outcome: success, failed, not_needed
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Total number of container conversions",
		},
		[]string{"outcome"},
	)

	// SignedURLCacheTotal tracks signed-URL cache effectiveness.
	// Labels:
	//   - status: hit, miss, error
	SignedURLCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signed_url_cache_total",
			Help:      "Total number of signed URL cache lookups",
		},
		[]string{"status"},
	)

	// SingleflightRequestsTotal tracks presign request coalescing.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight presign requests",
		},
		[]string{"result"},
	)
)

// Storage operation constants.
const (
	StorageOpPut       = "put"
	StorageOpDelete    = "delete"
	StorageOpStat      = "stat"
	StorageOpGet       = "get"
	StorageOpSignedURL = "signed_url"
)

// Operation status constants.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Conversion outcome constants.
const (
	ConversionSuccess   = "success"
	ConversionFailed    = "failed"
	ConversionNotNeeded = "not_needed"
)

// Cache lookup status constants.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
