package cache

import (
	"net/http"
	"time"
)

// Entry is one cached page window: the raw response body plus what is needed
// to serve it again or revalidate it with the page server.
type Entry struct {
	// Data is the page body, typically {"items": [...], "total": N}
	Data []byte `json:"data"`

	// ETag and LastModified are the validators sent back on revalidation
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`

	// Expires is when the page must be revalidated or refetched
	Expires time.Time `json:"expires"`

	StatusCode int `json:"status_code"`

	// Headers keeps the response headers, including X-Total-Count when the
	// server reports the collection size there instead of in the body.
	Headers http.Header `json:"headers"`

	// CachedAt is when the page was stored or last revalidated
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired reports whether the page is past its Expires time.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the time until expiration, or 0 once expired.
func (e *Entry) TTL() time.Duration {
	if ttl := time.Until(e.Expires); ttl > 0 {
		return ttl
	}
	return 0
}

// Age returns how long ago the page was stored or last revalidated.
func (e *Entry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return time.Since(e.CachedAt)
}

// HasValidators reports whether the server can be asked whether the page
// changed instead of sending it again.
func (e *Entry) HasValidators() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// Revalidate records a 304 Not Modified answer: the body stays, the page
// lives until expires.
func (e *Entry) Revalidate(expires time.Time) {
	e.Expires = expires
	e.CachedAt = time.Now()
}
