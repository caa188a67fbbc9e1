package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedLimiter(perMinute int) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(perMinute)
	l.now = clock.now
	l.updated = clock.t
	return l, clock
}

func TestNewLimiter_Disabled(t *testing.T) {
	l := NewLimiter(0)
	assert.Nil(t, l)
	assert.True(t, l.TryTake())
	assert.NoError(t, l.Wait(context.Background()))
	assert.Nil(t, l.Status())
	l.Throttled()
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newClockedLimiter(2)

	assert.True(t, l.TryTake())
	assert.True(t, l.TryTake())
	assert.False(t, l.TryTake())

	s := l.Status()
	assert.Equal(t, 0, s.Available)
	assert.Equal(t, 30*time.Second, s.UntilNext)
	assert.Equal(t, int64(2), s.Consumed)

	clock.advance(30 * time.Second)
	assert.True(t, l.TryTake())
	assert.False(t, l.TryTake())

	clock.advance(time.Hour)
	assert.Equal(t, 2, l.Status().Available)
}

func TestLimiter_Throttled(t *testing.T) {
	l, clock := newClockedLimiter(60)
	l.Throttled()

	s := l.Status()
	assert.Equal(t, 0, s.Available)
	assert.Equal(t, clock.t, s.LastThrottled)
	assert.False(t, l.TryTake())
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := NewLimiter(1)
	require.True(t, l.TryTake())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestClient_SubmitRateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	// 6000/min refills a token every 10ms, so the retry after 429 waits
	// for the drained bucket instead of failing.
	limiter := NewLimiter(6000)
	client := NewClient(Config{
		Endpoint:   server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Limiter:    limiter,
	})
	require.Same(t, limiter, client.Limiter())
	require.Same(t, limiter, NewRunner(client, nil).Limiter())

	res, err := client.Submit(context.Background(), testRequest(t, false))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.Attempts)

	s := limiter.Status()
	assert.Equal(t, int64(2), s.Consumed)
	assert.False(t, s.LastThrottled.IsZero())
}
