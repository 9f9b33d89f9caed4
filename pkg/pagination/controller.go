package pagination

import (
	"sync"
	"time"

	"github.com/Sternrassler/lazylist/pkg/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Controller gates "load more" requests so that at most one continuation runs
// at a time. The continuation runs on its own goroutine; completion is visible
// only through the content it appends to and through Busy.
//
// A *Controller is a shared handle: every widget holding the pointer observes
// the same configuration and busy state. Each field has its own lock; Set and
// Clear are not atomic as a pair.
type Controller[T any] struct {
	maxMu      sync.RWMutex
	maxContent *int

	cbMu     sync.RWMutex
	callback Paginator[T]

	busyMu sync.RWMutex
	busy   bool

	logger zerolog.Logger
}

// NewController returns an idle controller with no configuration.
func NewController[T any]() *Controller[T] {
	return &Controller[T]{
		logger: logging.NewLogger(logging.ComponentPagination),
	}
}

// Clone returns a handle sharing c's state.
func (c *Controller[T]) Clone() *Controller[T] {
	return c
}

// Clear removes the max content and callback. The busy flag is not touched.
func (c *Controller[T]) Clear() {
	c.maxMu.Lock()
	c.maxContent = nil
	c.maxMu.Unlock()

	c.cbMu.Lock()
	c.callback = nil
	c.cbMu.Unlock()
}

// Set installs a new configuration, replacing the previous one.
// A continuation already in flight keeps running with the callback it was
// started with and clears the busy flag when it returns.
func (c *Controller[T]) Set(maxContent int, callback Paginator[T]) {
	c.maxMu.Lock()
	c.maxContent = &maxContent
	c.maxMu.Unlock()

	c.cbMu.Lock()
	c.callback = callback
	c.cbMu.Unlock()
}

// MaxContent returns the expected total item count, if configured.
func (c *Controller[T]) MaxContent() (int, bool) {
	c.maxMu.RLock()
	defer c.maxMu.RUnlock()
	if c.maxContent == nil {
		return 0, false
	}
	return *c.maxContent, true
}

// Busy reports whether a continuation is in flight.
func (c *Controller[T]) Busy() bool {
	c.busyMu.RLock()
	defer c.busyMu.RUnlock()
	return c.busy
}

func (c *Controller[T]) currentCallback() Paginator[T] {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	return c.callback
}

// Call starts the configured continuation on a new goroutine and returns
// immediately. A panicking continuation is recovered and logged, and the
// controller becomes idle again. It is a no-op while another continuation is in flight and when
// no callback is configured; in both cases the busy flag is left alone.
// The return value reports whether a continuation was dispatched.
func (c *Controller[T]) Call(content *Content[T]) bool {
	c.busyMu.Lock()
	if c.busy {
		c.busyMu.Unlock()
		continuationsTotal.WithLabelValues(resultBusy).Inc()
		c.logger.Debug().Msg("Continuation already in flight, dropping request")
		return false
	}

	callback := c.currentCallback()
	if callback == nil {
		c.busyMu.Unlock()
		continuationsTotal.WithLabelValues(resultNoCallback).Inc()
		c.logger.Debug().Msg("No continuation configured")
		return false
	}

	c.busy = true
	c.busyMu.Unlock()

	id := uuid.NewString()
	continuationsTotal.WithLabelValues(resultDispatched).Inc()
	continuationsInFlight.Inc()

	go c.run(id, callback, content)

	return true
}

func (c *Controller[T]) run(id string, callback Paginator[T], content *Content[T]) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			continuationPanicsTotal.Inc()
			c.logger.Error().
				Str("continuation_id", id).
				Interface("panic", r).
				Msg("Continuation panicked")
		}

		continuationsInFlight.Dec()
		continuationDuration.Observe(time.Since(start).Seconds())

		c.busyMu.Lock()
		c.busy = false
		c.busyMu.Unlock()

		c.logger.Debug().
			Str("continuation_id", id).
			Dur("duration", time.Since(start)).
			Msg("Continuation finished")
	}()

	event := c.logger.Debug().Str("continuation_id", id)
	if content != nil {
		event = event.Int("loaded", content.Len())
	}
	event.Msg("Calling continuation")

	callback(content)
}

// ScrolledTo is the scroll hook for list views. It calls Call only when index
// is the last loaded item and more items are expected: either the loaded
// length is below MaxContent, or MaxContent is unknown.
func (c *Controller[T]) ScrolledTo(content *Content[T], index int) bool {
	loaded := content.Len()
	if loaded == 0 || index != loaded-1 {
		return false
	}
	if expected, ok := c.MaxContent(); ok && loaded >= expected {
		return false
	}
	return c.Call(content)
}
