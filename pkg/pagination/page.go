package pagination

import (
	"context"
	"errors"
)

var (
	// ErrFetchUnavailable is the only failure the core knows about. It covers
	// transport failures, authorization failures and the legitimate end of data.
	ErrFetchUnavailable = errors.New("fetch unavailable")

	// ErrInvalidArgument is returned by New for a negative offset, a non-positive
	// limit or a nil fetch function.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Page is one remotely fetched chunk of items plus the total item count the
// remote side declares for the whole collection.
type Page[T any] struct {
	Items []T
	Total int
}

// FetchPageFunc fetches the page starting at offset.
// Any non-nil error means no page is available.
type FetchPageFunc[T any] func(ctx context.Context, offset int) (Page[T], error)

// Paginator is a continuation closure run by a Controller. It is expected to
// fetch the next chunk and append it into content.
type Paginator[T any] func(content *Content[T])
