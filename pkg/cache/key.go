package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every page cache key in Redis.
const KeyPrefix = "lazylist"

// PageKey identifies one page window of a remote collection.
type PageKey struct {
	// Endpoint is the collection path (e.g., "/v1/playlists/42/tracks")
	Endpoint string

	Offset int
	Limit  int

	// Query holds extra query parameters that change the collection
	// (filters, sort order). offset and limit are taken from the fields above.
	Query url.Values
}

// String generates a deterministic key.
// Format: lazylist:endpoint:limit=M:offset=N:q1=v1:q2=v2
//
// Example:
//
//	lazylist:v1/playlists/42/tracks:limit=20:offset=40:sort=name
func (k PageKey) String() string {
	parts := []string{KeyPrefix}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	parts = append(parts,
		fmt.Sprintf("limit=%d", k.Limit),
		fmt.Sprintf("offset=%d", k.Offset),
	)

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			if name == "offset" || name == "limit" {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(k.Query[name], ",")))
		}
	}

	return strings.Join(parts, ":")
}
