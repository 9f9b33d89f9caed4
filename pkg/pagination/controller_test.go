package pagination

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitIdle[T any](t *testing.T, c *Controller[T]) {
	t.Helper()
	require.Eventually(t, func() bool { return !c.Busy() }, 2*time.Second, 5*time.Millisecond)
}

func TestController_Defaults(t *testing.T) {
	c := NewController[int]()

	_, ok := c.MaxContent()
	assert.False(t, ok)
	assert.False(t, c.Busy())
}

func TestController_SetAndClear(t *testing.T) {
	c := NewController[int]()

	c.Set(45, func(*Content[int]) {})
	expected, ok := c.MaxContent()
	require.True(t, ok)
	assert.Equal(t, 45, expected)

	c.Set(90, func(*Content[int]) {})
	expected, _ = c.MaxContent()
	assert.Equal(t, 90, expected)

	c.Clear()
	_, ok = c.MaxContent()
	assert.False(t, ok)
	assert.False(t, c.Call(NewContent[int]()))
}

func TestController_SingleFlight(t *testing.T) {
	c := NewController[int]()
	content := NewContent[int]()

	release := make(chan struct{})
	var runs atomic.Int32
	c.Set(10, func(content *Content[int]) {
		runs.Add(1)
		<-release
		content.Append(1, 2, 3)
	})

	assert.True(t, c.Call(content))
	assert.True(t, c.Busy())
	assert.False(t, c.Call(content), "second call while busy must be dropped")

	close(release)
	waitIdle(t, c)

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, 3, content.Len())
}

func TestController_CallDoesNotBlock(t *testing.T) {
	c := NewController[int]()
	release := make(chan struct{})
	defer close(release)

	c.Set(1, func(*Content[int]) { <-release })

	done := make(chan struct{})
	go func() {
		c.Call(NewContent[int]())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Call blocked on a running continuation")
	}
}

func TestController_DispatchesAgainAfterCompletion(t *testing.T) {
	c := NewController[int]()
	content := NewContent[int]()
	var runs atomic.Int32
	c.Set(10, func(content *Content[int]) {
		runs.Add(1)
		content.Append(int(runs.Load()))
	})

	require.True(t, c.Call(content))
	waitIdle(t, c)
	require.True(t, c.Call(content))
	waitIdle(t, c)

	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, []int{1, 2}, content.Items())
}

func TestController_ClearThenCallKeepsBusyUntouched(t *testing.T) {
	c := NewController[int]()
	c.Set(10, func(*Content[int]) {})
	c.Clear()

	assert.False(t, c.Call(NewContent[int]()))
	assert.False(t, c.Busy())

	// No callback must not leave the controller stuck.
	c.Set(10, func(content *Content[int]) { content.Append(7) })
	content := NewContent[int]()
	assert.True(t, c.Call(content))
	waitIdle(t, c)
	assert.Equal(t, 1, content.Len())
}

func TestController_ClearWhileBusy(t *testing.T) {
	c := NewController[int]()
	release := make(chan struct{})
	c.Set(10, func(*Content[int]) { <-release })

	require.True(t, c.Call(NewContent[int]()))
	c.Clear()
	assert.True(t, c.Busy(), "Clear must not touch busy")

	close(release)
	waitIdle(t, c)
}

func TestController_SetWhileBusyKeepsRunningCallback(t *testing.T) {
	c := NewController[string]()
	content := NewContent[string]()
	release := make(chan struct{})

	c.Set(10, func(content *Content[string]) {
		<-release
		content.Append("old")
	})
	require.True(t, c.Call(content))

	c.Set(20, func(content *Content[string]) { content.Append("new") })
	assert.False(t, c.Call(content))

	close(release)
	waitIdle(t, c)
	assert.Equal(t, []string{"old"}, content.Items())

	require.True(t, c.Call(content))
	waitIdle(t, c)
	assert.Equal(t, []string{"old", "new"}, content.Items())
}

func TestController_ConcurrentCalls(t *testing.T) {
	c := NewController[int]()
	content := NewContent[int]()
	release := make(chan struct{})
	var runs atomic.Int32
	c.Set(100, func(content *Content[int]) {
		runs.Add(1)
		<-release
		content.Append(1)
	})

	var wg sync.WaitGroup
	var dispatched atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Clone().Call(content) {
				dispatched.Add(1)
			}
		}()
	}
	wg.Wait()
	close(release)
	waitIdle(t, c)

	assert.Equal(t, int32(1), dispatched.Load())
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, 1, content.Len())
}

func TestController_RecoversPanickingContinuation(t *testing.T) {
	c := NewController[int]()
	content := NewContent[int]()
	before := promtestutil.ToFloat64(continuationPanicsTotal)

	c.Set(10, func(*Content[int]) {
		panic("boom")
	})

	require.True(t, c.Call(content))
	waitIdle(t, c)
	assert.Equal(t, before+1, promtestutil.ToFloat64(continuationPanicsTotal))

	// the controller stays usable
	c.Set(10, func(content *Content[int]) { content.Append(1) })
	require.True(t, c.Call(content))
	waitIdle(t, c)
	assert.Equal(t, 1, content.Len())
}

func TestController_ScrolledTo(t *testing.T) {
	tests := []struct {
		name       string
		loaded     int
		maxContent int
		configure  bool
		index      int
		want       bool
	}{
		{name: "last item with more expected", loaded: 20, maxContent: 45, configure: true, index: 19, want: true},
		{name: "not last item", loaded: 20, maxContent: 45, configure: true, index: 10, want: false},
		{name: "everything loaded", loaded: 45, maxContent: 45, configure: true, index: 44, want: false},
		{name: "no configuration", loaded: 20, index: 19, want: false},
		{name: "empty list", loaded: 0, maxContent: 45, configure: true, index: -1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController[int]()
			if tt.configure {
				c.Set(tt.maxContent, func(*Content[int]) {})
			}
			content := NewContent(make([]int, tt.loaded)...)

			assert.Equal(t, tt.want, c.ScrolledTo(content, tt.index))
			waitIdle(t, c)
		})
	}
}

func TestAccumulator_AttachLoadsWholeCollection(t *testing.T) {
	ctx := context.Background()
	acc, err := New(ctx, 0, 20, sliceSource(45, 20, nil))
	require.NoError(t, err)

	c := NewController[int]()
	acc.Attach(ctx, c)

	expected, ok := c.MaxContent()
	require.True(t, ok)
	assert.Equal(t, 45, expected)

	content := acc.Content()
	for i := 0; i < 10 && content.Len() < expected; i++ {
		c.ScrolledTo(content, content.Len()-1)
		waitIdle(t, c)
	}

	assert.Equal(t, 45, content.Len())
	assert.True(t, acc.AtEnd())
	assert.False(t, c.ScrolledTo(content, content.Len()-1))
}
