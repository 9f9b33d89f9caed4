// Package cache stores raw page responses in Redis so repeated loads of the
// same page window do not hit the remote collection again.
//
// Entries live exactly as long as the remote side allows: the Expires header
// of the page response sets the Redis TTL, and ETag / Last-Modified let the
// client revalidate a stale page with a conditional request instead of
// downloading it again.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.PageKey{
//		Endpoint: "/v1/playlists/42/tracks",
//		Offset:   40,
//		Limit:    20,
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch the page
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 answer means entry is still valid
//	}
//
// # Metrics
//
//   - lazylist_cache_hits_total - Page cache hits
//   - lazylist_cache_misses_total - Page cache misses
//   - lazylist_cache_stored_bytes - Bytes written to the page cache
//   - lazylist_304_responses_total - Pages revalidated with 304 Not Modified
//   - lazylist_cache_errors_total{operation} - Cache operation errors
//
// The cache holds remote responses only. Which pages a list has loaded is
// never persisted.
package cache
