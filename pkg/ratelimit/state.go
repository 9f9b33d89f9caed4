// Package ratelimit tracks the request budget a page server advertises in
// its X-RateLimit-Remaining and X-RateLimit-Reset headers and gates requests
// before the budget runs out.
package ratelimit

import (
	"time"
)

// Response headers carrying the budget.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset" // seconds until the window resets
)

// Redis keys for shared budget state.
const (
	RedisKeyRemaining      = "lazylist:rate_limit:remaining"
	RedisKeyResetTimestamp = "lazylist:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "lazylist:rate_limit:last_update"
)

// Thresholds for gating decisions.
const (
	// ThresholdCritical blocks requests while fewer requests remain.
	ThresholdCritical = 5

	// ThresholdWarning throttles requests while fewer requests remain.
	ThresholdWarning = 20

	// ThresholdHealthy marks the budget healthy at or above this value.
	ThresholdHealthy = 50
)

// State is the last known request budget.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// defaultState is assumed until the server reports a budget.
func defaultState() *State {
	now := time.Now()
	return &State{
		Remaining:  100,
		ResetAt:    now.Add(60 * time.Second),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale reports whether the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock reports whether requests must be blocked. A window that
// has already reset never blocks.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling reports whether requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the time left in the window, or 0 once reset.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth recomputes IsHealthy from Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
