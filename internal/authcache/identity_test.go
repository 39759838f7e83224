package authcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docportal/internal/backend"
	"docportal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	calls    atomic.Int32
	sessions atomic.Int32
	delay    time.Duration
	err      error
}

func (f *fakeClient) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeClient) fetch(token string) (*models.AuthUser, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &models.AuthUser{ID: "user-" + token, Email: token + "@empresa.com.br"}, nil
}

func (f *fakeClient) GetUser(ctx context.Context, token string) (*models.AuthUser, error) {
	f.calls.Add(1)
	return f.fetch(token)
}

func (f *fakeClient) GetSession(ctx context.Context, token string) (*models.Session, error) {
	f.sessions.Add(1)
	u, err := f.fetch(token)
	if err != nil {
		return nil, err
	}
	return &models.Session{AccessToken: token, User: u}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errRateLimited = &backend.APIError{Status: 429, Message: "too many requests"}

func TestGetUser_ConcurrentCallsShareOneRequest(t *testing.T) {
	fc := &fakeClient{delay: 50 * time.Millisecond}
	c := New(fc, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := c.GetUser(context.Background(), "tok")
			assert.NoError(t, err)
			if assert.NotNil(t, u) {
				assert.Equal(t, "user-tok", u.ID)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fc.calls.Load())
}

func TestGetUser_RepeatedCallsWithinSecond(t *testing.T) {
	fc := &fakeClient{}
	c := New(fc, Options{Interval: time.Second, TTL: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := c.GetUser(context.Background(), "tok")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fc.calls.Load())
}

func TestGetUser_FreshCacheSkipsNetwork(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	fc := &fakeClient{}
	c := New(fc, Options{Interval: 10 * time.Millisecond, TTL: 60 * time.Second, Now: clock.Now})

	first, err := c.GetUser(context.Background(), "tok")
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	time.Sleep(20 * time.Millisecond)

	second, err := c.GetUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), fc.calls.Load())

	clock.Advance(2 * time.Second)
	third, err := c.GetUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int32(2), fc.calls.Load())
}

func TestGetUser_RateLimitedWithoutCache(t *testing.T) {
	fc := &fakeClient{err: errRateLimited}
	c := New(fc, Options{})

	u, err := c.GetUser(context.Background(), "tok")
	assert.NoError(t, err)
	assert.Nil(t, u)

	s, err := c.GetSession(context.Background(), "tok")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestGetUser_RateLimitedReturnsStaleEntry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	fc := &fakeClient{}
	c := New(fc, Options{Interval: 10 * time.Millisecond, TTL: 60 * time.Second, Now: clock.Now})

	cached, err := c.GetUser(context.Background(), "tok")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	fc.setErr(errRateLimited)

	got, err := c.GetUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Same(t, cached, got)
	assert.Equal(t, int32(2), fc.calls.Load())
}

func TestGetUser_OtherErrorsPropagate(t *testing.T) {
	boom := &backend.APIError{Status: 500, Message: "boom"}
	fc := &fakeClient{err: boom}
	c := New(fc, Options{})

	u, err := c.GetUser(context.Background(), "tok")
	assert.Nil(t, u)
	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.Status)
}

func TestGetUser_TokensDoNotShareEntries(t *testing.T) {
	fc := &fakeClient{}
	c := New(fc, Options{})

	a, err := c.GetUser(context.Background(), "a")
	require.NoError(t, err)
	b, err := c.GetUser(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, "user-a", a.ID)
	assert.Equal(t, "user-b", b.ID)
	assert.Equal(t, int32(2), fc.calls.Load())
}

func TestGetUser_EmptyTokenIsAnonymous(t *testing.T) {
	fc := &fakeClient{}
	c := New(fc, Options{})

	u, err := c.GetUser(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.Equal(t, int32(0), fc.calls.Load())
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	fc := &fakeClient{}
	c := New(fc, Options{Interval: 10 * time.Millisecond})

	_, err := c.GetUser(context.Background(), "tok")
	require.NoError(t, err)
	_, err = c.GetSession(context.Background(), "tok")
	require.NoError(t, err)

	c.Invalidate("tok")
	assert.Equal(t, 0, c.users.Len())
	assert.Equal(t, 0, c.sessions.Len())

	time.Sleep(20 * time.Millisecond)
	_, err = c.GetUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fc.calls.Load())
}

func TestGetUser_CallerCancelDoesNotAbortCall(t *testing.T) {
	fc := &fakeClient{delay: 50 * time.Millisecond}
	c := New(fc, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := c.GetUser(ctx, "tok")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	time.Sleep(100 * time.Millisecond)
	u, err := c.GetUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-tok", u.ID)
	assert.Equal(t, int32(1), fc.calls.Load())
}
