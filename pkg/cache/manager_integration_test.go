//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts redis:7-alpine and returns a connected client.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(context.Background())
	})

	return client
}

func TestManager_Integration_PageLifecycle(t *testing.T) {
	manager := NewManager(setupRedisContainer(t))
	ctx := context.Background()

	key := PageKey{Endpoint: "/v1/playlists/42/tracks", Offset: 20, Limit: 20}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get on empty cache error = %v, want ErrCacheMiss", err)
	}

	entry := &Entry{
		Data:       []byte(`{"items": [20, 21], "total": 45}`),
		ETag:       `"page-2"`,
		Expires:    time.Now().Add(time.Minute),
		StatusCode: 200,
	}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %q, want %q", got.ETag, entry.ETag)
	}

	// a different window of the same endpoint stays a miss
	other := PageKey{Endpoint: key.Endpoint, Offset: 40, Limit: 20}
	if _, err := manager.Get(ctx, other); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(other window) error = %v, want ErrCacheMiss", err)
	}

	newExpires := time.Now().Add(10 * time.Minute)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL() error = %v", err)
	}
	ttl, err := manager.redis.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("redis TTL error = %v", err)
	}
	if ttl < 9*time.Minute {
		t.Errorf("redis TTL = %v, want about 10m", ttl)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Integration_InvalidEntry(t *testing.T) {
	client := setupRedisContainer(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := PageKey{Endpoint: "/v1/tracks", Limit: 10}
	if err := client.Set(ctx, key.String(), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed redis: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get() error = %v, want ErrInvalidEntry", err)
	}
}
