package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch stages used as the "stage" label.
const (
	stageInitial = "initial"
	stageNext    = "next"
)

// Continuation results used as the "result" label.
const (
	resultDispatched = "dispatched"
	resultBusy       = "dropped_busy"
	resultNoCallback = "no_callback"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazylist_pages_fetched_total",
		Help: "Total pages fetched successfully by stage",
	}, []string{"stage"})

	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazylist_fetch_failures_total",
		Help: "Total page fetches that returned no page by stage",
	}, []string{"stage"})

	itemsAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazylist_items_appended_total",
		Help: "Total items appended to content containers",
	})

	continuationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazylist_continuations_total",
		Help: "Continuation requests by result",
	}, []string{"result"})

	continuationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lazylist_continuation_duration_seconds",
		Help:    "Duration of continuation callbacks in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	continuationPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazylist_continuation_panics_total",
		Help: "Total continuation callbacks that panicked",
	})

	continuationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lazylist_continuations_in_flight",
		Help: "Number of continuation callbacks currently running",
	})
)
