// Package metrics exposes the Prometheus registry all lazylist packages
// register with. Metrics are defined next to the code that updates them
// (pagination, client, cache, ratelimit) via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer used by promauto in every package.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Pagination Metrics (pkg/pagination):
//   - lazylist_pages_fetched_total{stage} (Counter): Pages fetched, stage "initial" or "next"
//   - lazylist_fetch_failures_total{stage} (Counter): Failed page fetches
//   - lazylist_items_appended_total (Counter): Items appended to content containers
//   - lazylist_continuations_total{result} (Counter): Call outcomes: dispatched, dropped_busy, no_callback
//   - lazylist_continuation_duration_seconds (Histogram): Continuation run time
//   - lazylist_continuations_in_flight (Gauge): Continuations currently running
//   - lazylist_continuation_panics_total (Counter): Continuations that panicked and were recovered
//
// Request Metrics (pkg/client):
//   - lazylist_client_requests_total{endpoint, status} (Counter): Requests by endpoint and outcome
//   - lazylist_client_request_duration_seconds{endpoint} (Histogram): Page fetch duration
//   - lazylist_client_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - lazylist_client_shared_fetches_total (Counter): Fetches answered by an identical in-flight request
//   - lazylist_client_retries_total{error_class} (Counter): Retry attempts
//   - lazylist_client_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - lazylist_client_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Cache Metrics (pkg/cache):
//   - lazylist_cache_hits_total (Counter): Page cache hits
//   - lazylist_cache_misses_total (Counter): Page cache misses
//   - lazylist_cache_stored_bytes (Counter): Bytes written to the cache
//   - lazylist_304_responses_total (Counter): 304 Not Modified revalidations
//   - lazylist_conditional_requests_total (Counter): Requests sent with validators
//   - lazylist_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - lazylist_rate_limit_remaining (Gauge): Requests left in the server window
//   - lazylist_rate_limit_blocks_total (Counter): Requests blocked at critical budget
//   - lazylist_rate_limit_throttles_total (Counter): Requests throttled at low budget
//
// Example Prometheus Queries:
//
//	# Dropped "load more" requests per second
//	rate(lazylist_continuations_total{result="dropped_busy"}[5m])
//
//	# Cache Hit Rate
//	sum(rate(lazylist_cache_hits_total[5m])) /
//	(sum(rate(lazylist_cache_hits_total[5m])) + sum(rate(lazylist_cache_misses_total[5m])))
//
//	# P95 Page Latency
//	histogram_quantile(0.95, rate(lazylist_client_request_duration_seconds_bucket[5m]))
