package authcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_OnePerInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(time.Second)
	l.now = clock.Now

	assert.True(t, l.TryAcquire("k"))
	assert.False(t, l.TryAcquire("k"))
	assert.True(t, l.TryAcquire("other"))

	clock.Advance(400 * time.Millisecond)
	assert.False(t, l.TryAcquire("k"))
	assert.InDelta(t, float64(600*time.Millisecond), float64(l.Remaining("k")), float64(time.Millisecond))

	clock.Advance(700 * time.Millisecond)
	assert.Equal(t, time.Duration(0), l.Remaining("k"))
	assert.True(t, l.TryAcquire("k"))
}

func TestThrottler_TrailingCallsCollapse(t *testing.T) {
	const interval = 200 * time.Millisecond
	th := NewThrottler(NewLimiter(interval))

	var calls atomic.Int32
	var mu sync.Mutex
	var at []time.Time
	fn := func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		mu.Lock()
		at = append(at, time.Now())
		mu.Unlock()
		return n, nil
	}

	v, err := th.Do(context.Background(), "k", fn)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = th.Do(context.Background(), "k", fn)
		}(i)
	}

	time.Sleep(interval / 2)
	assert.Equal(t, int32(1), calls.Load())

	wg.Wait()
	assert.Equal(t, int32(2), calls.Load())
	for _, r := range results {
		assert.Equal(t, int32(2), r)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, at, 2)
	assert.GreaterOrEqual(t, at[1].Sub(at[0]), interval-10*time.Millisecond)
}

func TestThrottler_JoinsInFlightCall(t *testing.T) {
	th := NewThrottler(NewLimiter(time.Second))

	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "ok", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := th.Do(context.Background(), "k", fn)
			assert.NoError(t, err)
			assert.Equal(t, "ok", v)
		}()
	}

	time.Sleep(30 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestThrottler_FinishedCallIsNeverJoined(t *testing.T) {
	th := NewThrottler(NewLimiter(time.Second))
	ctx := context.Background()

	releaseFirst, releaseSecond := make(chan struct{}), make(chan struct{})

	th.mu.Lock()
	first := th.start("k", ctx, func(context.Context) (any, error) {
		<-releaseFirst
		return "first", nil
	})
	// флаг уже снят, а singleflight ещё помнит первый вызов
	delete(th.inflight, "k")
	second := th.start("k", ctx, func(context.Context) (any, error) {
		<-releaseSecond
		return "second", nil
	})
	th.mu.Unlock()

	close(releaseFirst)
	assert.Equal(t, "first", (<-first).Val)

	th.mu.Lock()
	_, running := th.inflight["k"]
	th.mu.Unlock()
	assert.True(t, running, "первый вызов не должен снимать флаг второго")

	close(releaseSecond)
	assert.Equal(t, "second", (<-second).Val)

	th.mu.Lock()
	defer th.mu.Unlock()
	assert.Empty(t, th.inflight)
}
