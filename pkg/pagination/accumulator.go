package pagination

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Sternrassler/lazylist/pkg/logging"
	"github.com/rs/zerolog"
)

// Accumulator walks a paged remote resource one page at a time and appends
// every fetched page into a shared Content.
//
// The first page is fetched by New. Later pages are fetched by Next, usually
// from a Controller continuation.
type Accumulator[T any] struct {
	// nextMu serializes Next so offset advances exactly once per fetched page.
	nextMu sync.Mutex

	// offsetMu guards offset only; it is never held across a fetch.
	offsetMu sync.RWMutex
	offset   int

	limit int
	total int
	items *Content[T]
	fetch FetchPageFunc[T]

	logger zerolog.Logger
}

// New fetches the page at offset and returns an accumulator holding it.
// If that fetch fails no accumulator and no content container exist; the
// returned error wraps ErrFetchUnavailable.
func New[T any](ctx context.Context, offset, limit int, fetch FetchPageFunc[T]) (*Accumulator[T], error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0 (got %d)", ErrInvalidArgument, offset)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0 (got %d)", ErrInvalidArgument, limit)
	}
	if offset > math.MaxInt-limit {
		return nil, fmt.Errorf("%w: offset %d + limit %d overflows", ErrInvalidArgument, offset, limit)
	}
	if fetch == nil {
		return nil, fmt.Errorf("%w: fetch function is required", ErrInvalidArgument)
	}

	logger := logging.NewLogger(logging.ComponentPagination)

	first, err := fetch(ctx, offset)
	if err != nil {
		fetchFailuresTotal.WithLabelValues(stageInitial).Inc()
		logger.Warn().
			Err(err).
			Int("offset", offset).
			Int("limit", limit).
			Msg("First page fetch failed")
		return nil, fmt.Errorf("%w: first page at offset %d", ErrFetchUnavailable, offset)
	}

	pagesFetchedTotal.WithLabelValues(stageInitial).Inc()
	itemsAppendedTotal.Add(float64(len(first.Items)))

	logger.Info().
		Int("offset", offset).
		Int("limit", limit).
		Int("items", len(first.Items)).
		Int("total", first.Total).
		Msg("First page loaded")

	return &Accumulator[T]{
		offset: offset,
		limit:  limit,
		total:  first.Total,
		items:  NewContent(first.Items...),
		fetch:  fetch,
		logger: logger,
	}, nil
}

// Len returns the number of items accumulated so far.
func (a *Accumulator[T]) Len() int {
	return a.items.Len()
}

// AtEnd reports whether offset+limit has reached the declared total.
// It never contacts the remote side and does not wait for a running Next.
func (a *Accumulator[T]) AtEnd() bool {
	return a.endsAt(a.Offset())
}

// endsAt reports whether the page at offset is the last one.
func (a *Accumulator[T]) endsAt(offset int) bool {
	return offset >= a.total-a.limit
}

// Next fetches the page after the current one and appends it.
// It returns false without fetching when AtEnd is true, and false with the
// state untouched when the fetch fails. Calling it again later is safe.
func (a *Accumulator[T]) Next(ctx context.Context) bool {
	a.nextMu.Lock()
	defer a.nextMu.Unlock()

	current := a.Offset()
	if a.endsAt(current) {
		a.logger.Debug().
			Int("offset", current).
			Int("total", a.total).
			Msg("Collection exhausted")
		return false
	}

	offset := current + a.limit
	page, err := a.fetch(ctx, offset)
	if err != nil {
		fetchFailuresTotal.WithLabelValues(stageNext).Inc()
		a.logger.Warn().
			Err(err).
			Int("offset", offset).
			Msg("Next page fetch failed")
		return false
	}

	a.items.Append(page.Items...)
	a.offsetMu.Lock()
	a.offset = offset
	a.offsetMu.Unlock()

	pagesFetchedTotal.WithLabelValues(stageNext).Inc()
	itemsAppendedTotal.Add(float64(len(page.Items)))

	atEnd := a.endsAt(offset)
	event := a.logger.Debug()
	if atEnd {
		event = a.logger.Info()
	}
	event.
		Int("offset", offset).
		Int("items", len(page.Items)).
		Int("loaded", a.items.Len()).
		Int("total", a.total).
		Bool("at_end", atEnd).
		Msg("Page appended")

	return true
}

// Offset returns the offset of the most recently fetched page.
func (a *Accumulator[T]) Offset() int {
	a.offsetMu.RLock()
	defer a.offsetMu.RUnlock()
	return a.offset
}

// Limit returns the page size.
func (a *Accumulator[T]) Limit() int { return a.limit }

// Total returns the total declared by the first page.
func (a *Accumulator[T]) Total() int { return a.total }

// Content returns the shared container the accumulator appends into.
func (a *Accumulator[T]) Content() *Content[T] { return a.items }

// Continuation returns a Paginator that loads the next page into the
// accumulator's content. The content handed to the Paginator is expected to
// be Content(); the accumulator always appends into its own container.
func (a *Accumulator[T]) Continuation(ctx context.Context) Paginator[T] {
	return func(content *Content[T]) {
		if content != a.items {
			a.logger.Warn().Msg("Continuation called with a foreign content container")
		}
		a.Next(ctx)
	}
}

// Attach configures ctrl to continue this accumulator: the declared total
// becomes the controller's max content and Continuation its callback.
func (a *Accumulator[T]) Attach(ctx context.Context, ctrl *Controller[T]) {
	ctrl.Set(a.total, a.Continuation(ctx))
}
