package pagination

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource serves pages of limit items out of [0, total).
func sliceSource(total, limit int, calls *atomic.Int32) FetchPageFunc[int] {
	return func(ctx context.Context, offset int) (Page[int], error) {
		if calls != nil {
			calls.Add(1)
		}
		if offset >= total {
			return Page[int]{}, errors.New("offset out of range")
		}
		end := offset + limit
		if end > total {
			end = total
		}
		items := make([]int, 0, end-offset)
		for i := offset; i < end; i++ {
			items = append(items, i)
		}
		return Page[int]{Items: items, Total: total}, nil
	}
}

func TestNew_FirstPage(t *testing.T) {
	acc, err := New(context.Background(), 0, 20, sliceSource(45, 20, nil))
	require.NoError(t, err)

	assert.Equal(t, 20, acc.Len())
	assert.Equal(t, 45, acc.Total())
	assert.Equal(t, 20, acc.Limit())
	assert.Equal(t, 0, acc.Offset())
	assert.False(t, acc.AtEnd())
}

func TestNew_FirstFetchFails(t *testing.T) {
	fetch := func(ctx context.Context, offset int) (Page[int], error) {
		return Page[int]{}, errors.New("connection refused")
	}

	acc, err := New(context.Background(), 0, 20, fetch)
	require.Error(t, err)
	assert.Nil(t, acc)
	assert.True(t, errors.Is(err, ErrFetchUnavailable))
}

func TestNew_InvalidArguments(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		limit  int
		fetch  FetchPageFunc[int]
	}{
		{name: "negative offset", offset: -1, limit: 10, fetch: sliceSource(10, 10, nil)},
		{name: "zero limit", offset: 0, limit: 0, fetch: sliceSource(10, 10, nil)},
		{name: "nil fetch", offset: 0, limit: 10, fetch: nil},
		{name: "offset plus limit overflows", offset: math.MaxInt - 5, limit: 10, fetch: sliceSource(10, 10, nil)},
		{name: "huge limit", offset: 1, limit: math.MaxInt, fetch: sliceSource(10, 10, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := New(context.Background(), tt.offset, tt.limit, tt.fetch)
			assert.Nil(t, acc)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestAccumulator_LimitTwentyTotalFortyFive(t *testing.T) {
	ctx := context.Background()
	calls := &atomic.Int32{}

	acc, err := New(ctx, 0, 20, sliceSource(45, 20, calls))
	require.NoError(t, err)
	assert.Equal(t, 20, acc.Len())
	assert.False(t, acc.AtEnd())

	require.True(t, acc.Next(ctx))
	assert.Equal(t, 40, acc.Len())
	assert.Equal(t, 20, acc.Offset())
	assert.False(t, acc.AtEnd())

	require.True(t, acc.Next(ctx))
	assert.Equal(t, 45, acc.Len())
	assert.Equal(t, 40, acc.Offset())
	assert.True(t, acc.AtEnd())

	assert.False(t, acc.Next(ctx))
	assert.Equal(t, 45, acc.Len())
	assert.Equal(t, 40, acc.Offset())
	assert.Equal(t, int32(3), calls.Load(), "exhausted Next must not fetch")

	items := acc.Content().Items()
	for i, v := range items {
		if v != i {
			t.Fatalf("items[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestAccumulator_NextUntilTotal(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		limit  int
		total  int
	}{
		{name: "exact multiple", offset: 0, limit: 10, total: 50},
		{name: "remainder", offset: 0, limit: 7, total: 50},
		{name: "single page", offset: 0, limit: 100, total: 30},
		{name: "page size one", offset: 0, limit: 1, total: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			acc, err := New(ctx, tt.offset, tt.limit, sliceSource(tt.total, tt.limit, nil))
			require.NoError(t, err)

			prev := acc.Len()
			for acc.Next(ctx) {
				require.Greater(t, acc.Len(), prev)
				prev = acc.Len()
			}

			assert.Equal(t, tt.total, acc.Len())
			assert.True(t, acc.AtEnd())
			assert.False(t, acc.Next(ctx))
			assert.Equal(t, tt.total, acc.Len())
		})
	}
}

func TestAccumulator_FailedNextLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	inner := sliceSource(30, 10, nil)
	fetch := func(ctx context.Context, offset int) (Page[int], error) {
		if fail.Load() {
			return Page[int]{}, errors.New("503")
		}
		return inner(ctx, offset)
	}

	acc, err := New(ctx, 0, 10, fetch)
	require.NoError(t, err)

	fail.Store(true)
	assert.False(t, acc.Next(ctx))
	assert.Equal(t, 10, acc.Len())
	assert.Equal(t, 0, acc.Offset())
	assert.False(t, acc.AtEnd())

	fail.Store(false)
	assert.True(t, acc.Next(ctx))
	assert.Equal(t, 20, acc.Len())
	assert.Equal(t, 10, acc.Offset())
}

func TestAccumulator_TotalNotRevalidated(t *testing.T) {
	ctx := context.Background()
	fetch := func(ctx context.Context, offset int) (Page[int], error) {
		// the remote total shrinks after the first page
		total := 30
		if offset > 0 {
			total = 5
		}
		return Page[int]{Items: []int{offset}, Total: total}, nil
	}

	acc, err := New(ctx, 0, 10, fetch)
	require.NoError(t, err)
	require.True(t, acc.Next(ctx))
	assert.Equal(t, 30, acc.Total())
	assert.False(t, acc.AtEnd())
}

func TestAccumulator_ConcurrentNext(t *testing.T) {
	ctx := context.Background()
	acc, err := New(ctx, 0, 10, sliceSource(100, 10, nil))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc.Next(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, acc.Len())
	assert.True(t, acc.AtEnd())

	seen := make(map[int]bool)
	acc.Content().Range(func(_ int, v int) bool {
		require.False(t, seen[v], "duplicate item %d", v)
		seen[v] = true
		return true
	})
}

func TestAccumulator_ReadsDoNotWaitForFetch(t *testing.T) {
	ctx := context.Background()
	inner := sliceSource(30, 10, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	fetch := func(ctx context.Context, offset int) (Page[int], error) {
		if offset > 0 {
			close(started)
			<-release
		}
		return inner(ctx, offset)
	}

	acc, err := New(ctx, 0, 10, fetch)
	require.NoError(t, err)

	done := make(chan bool)
	go func() { done <- acc.Next(ctx) }()
	<-started

	read := make(chan struct{})
	go func() {
		assert.False(t, acc.AtEnd())
		assert.Equal(t, 0, acc.Offset())
		assert.Equal(t, 10, acc.Len())
		close(read)
	}()

	select {
	case <-read:
	case <-time.After(time.Second):
		t.Fatal("AtEnd blocked while Next was fetching")
	}

	close(release)
	assert.True(t, <-done)
	assert.Equal(t, 10, acc.Offset())
	assert.Equal(t, 20, acc.Len())
}

func TestAccumulator_LargeTotalNearMaxInt(t *testing.T) {
	fetch := func(ctx context.Context, offset int) (Page[int], error) {
		return Page[int]{Items: []int{offset}, Total: math.MaxInt}, nil
	}

	acc, err := New(context.Background(), math.MaxInt-20, 10, fetch)
	require.NoError(t, err)
	assert.False(t, acc.AtEnd())

	require.True(t, acc.Next(context.Background()))
	assert.Equal(t, math.MaxInt-10, acc.Offset())
	assert.True(t, acc.AtEnd())
	assert.False(t, acc.Next(context.Background()))
}
