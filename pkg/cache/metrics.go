package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts pages served from Redis
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazylist_cache_hits_total",
		Help: "Total number of page cache hits",
	})

	// CacheMisses counts lookups that found nothing usable
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazylist_cache_misses_total",
		Help: "Total number of page cache misses",
	})

	// StoredBytes counts bytes written to the page cache
	StoredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazylist_cache_stored_bytes",
		Help: "Total bytes written to the page cache",
	})

	// NotModifiedResponses counts pages revalidated with 304 Not Modified
	NotModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazylist_304_responses_total",
		Help: "Total number of 304 Not Modified page responses",
	})

	// ConditionalRequestsSent counts requests sent with If-None-Match or If-Modified-Since
	ConditionalRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazylist_conditional_requests_total",
		Help: "Total number of conditional page requests",
	})

	// CacheErrors counts failed cache operations
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazylist_cache_errors_total",
		Help: "Total number of page cache operation errors",
	}, []string{"operation"}) // "get", "set", "delete"
)
