package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrain_FIFO(t *testing.T) {
	l := New()
	var got []int
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Post(func() { got = append(got, i) }))
	}
	assert.Equal(t, 3, l.Pending())

	assert.Equal(t, 3, l.Drain())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Equal(t, 0, l.Pending())
}

func TestDrain_RunsNestedPosts(t *testing.T) {
	l := New()
	var got []string
	require.NoError(t, l.Post(func() {
		got = append(got, "outer")
		_ = l.Post(func() { got = append(got, "inner") })
	}))

	assert.Equal(t, 2, l.Drain())
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestRun_ProcessesPostsFromOtherGoroutines(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var (
		mu    sync.Mutex
		count int
		wg    sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Post(func() {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 10
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestClose_DrainsThenStops(t *testing.T) {
	l := New()
	ran := false
	require.NoError(t, l.Post(func() { ran = true }))
	l.Close()

	assert.ErrorIs(t, l.Post(func() {}), ErrClosed)
	assert.NoError(t, l.Run(context.Background()))
	assert.True(t, ran)
	assert.True(t, l.Closed())
}

func TestStep_ContextDone(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.False(t, l.Step(ctx))
}

func TestPost_NilIsIgnored(t *testing.T) {
	l := New()
	assert.NoError(t, l.Post(nil))
	assert.Equal(t, 0, l.Pending())
}

func TestRun_PanicPropagates(t *testing.T) {
	l := New()
	require.NoError(t, l.Post(func() { panic("invariant") }))
	assert.Panics(t, func() { l.Drain() })
}
