// Package metrics provides the Prometheus registry and HTTP handler for
// the enricher. All metrics are defined in their respective packages
// (sincera, cache, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the enricher.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the default registry, for
// embedders or the CLI's optional metrics listener.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - sincera_rate_limit_waits_total (Counter): Requests delayed by the local limiter
//   - sincera_rate_limit_wait_seconds (Histogram): Duration of local pacing pauses
//   - sincera_rate_limit_window_size (Gauge): Timestamps inside the trailing window
//
// Cache Metrics (pkg/cache):
//   - sincera_cache_hits_total (Counter): Record cache hits
//   - sincera_cache_misses_total (Counter): Record cache misses
//   - sincera_cache_size_bytes (Gauge): Bytes written to the cache
//   - sincera_cache_errors_total{operation} (Counter): Cache operation errors
//
// Lookup Metrics (pkg/sincera):
//   - sincera_requests_total{kind, status} (Counter): API requests by identifier kind and HTTP status
//   - sincera_lookup_duration_seconds{kind} (Histogram): Full lookup duration, all attempts included
//   - sincera_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - sincera_retries_total{error_class} (Counter): Retry attempts by error class
//   - sincera_null_results_total{reason} (Counter): All-null records by reason
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(sincera_cache_hits_total[5m]) /
//   (rate(sincera_cache_hits_total[5m]) + rate(sincera_cache_misses_total[5m]))
//
//   # Throttling Pressure
//   rate(sincera_requests_total{status="429"}[5m])
//
//   # Null Result Rate by Reason
//   rate(sincera_null_results_total[5m])
//
//   # P95 Lookup Latency
//   histogram_quantile(0.95, rate(sincera_lookup_duration_seconds_bucket[5m]))
