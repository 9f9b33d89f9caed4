package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/lazylist/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrCacheMiss indicates the page is not cached or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a cached value could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores page responses in Redis.
type Manager struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewManager creates a page cache backed by redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:  redisClient,
		logger: logging.NewLogger(logging.ComponentCache),
	}
}

// Get returns the cached page for key.
// Returns ErrCacheMiss if the key doesn't exist or the entry has expired.
func (m *Manager) Get(ctx context.Context, key PageKey) (*Entry, error) {
	redisKey := key.String()

	data, err := m.redis.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	m.logger.Debug().
		Str("key", redisKey).
		Dur("ttl", entry.TTL()).
		Dur("age", entry.Age()).
		Msg("Page cache hit")

	return &entry, nil
}

// Set stores entry under key with a TTL derived from entry.Expires.
// Entries that are already expired are skipped.
func (m *Manager) Set(ctx context.Context, key PageKey, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	StoredBytes.Add(float64(len(data)))

	return nil
}

// Delete removes the cached page for key.
func (m *Manager) Delete(ctx context.Context, key PageKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// UpdateTTL extends a cached page after a 304 Not Modified revalidation.
func (m *Manager) UpdateTTL(ctx context.Context, key PageKey, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	entry.Revalidate(newExpires)

	return m.Set(ctx, key, entry)
}
