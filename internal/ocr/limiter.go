package ocr

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket shared by every attempt a client makes,
// retries included.
type Limiter struct {
	mu sync.Mutex

	perMinute int
	tokens    float64
	updated   time.Time
	now       func() time.Time

	consumed     int64
	waited       time.Duration
	lastThrottle time.Time
}

// LimiterStatus reports the bucket state.
type LimiterStatus struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	Available         int           `json:"available"`
	UntilNext         time.Duration `json:"until_next" swaggertype:"integer"`
	Consumed          int64         `json:"consumed"`
	Waited            time.Duration `json:"waited" swaggertype:"integer"`
	LastThrottled     time.Time     `json:"last_throttled,omitempty"`
}

// NewLimiter returns a full bucket allowing perMinute submissions a minute.
// It returns nil when perMinute is not positive; a nil Limiter never blocks.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	return &Limiter{
		perMinute: perMinute,
		tokens:    float64(perMinute),
		updated:   time.Now(),
		now:       time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.consumed++
			l.mu.Unlock()
			return nil
		}
		wait := l.untilNext()
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			l.mu.Lock()
			l.waited += wait
			l.mu.Unlock()
		}
	}
}

// TryTake takes a token without blocking.
func (l *Limiter) TryTake() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	l.consumed++
	return true
}

// Throttled empties the bucket after the API answered 429.
func (l *Limiter) Throttled() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	l.tokens = 0
	l.lastThrottle = l.now()
}

// Status returns the bucket state, or nil for a nil Limiter.
func (l *Limiter) Status() *LimiterStatus {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	s := &LimiterStatus{
		RequestsPerMinute: l.perMinute,
		Available:         int(l.tokens),
		Consumed:          l.consumed,
		Waited:            l.waited,
		LastThrottled:     l.lastThrottle,
	}
	if l.tokens < 1 {
		s.UntilNext = l.untilNext()
	}
	return s
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	now := l.now()
	l.tokens += now.Sub(l.updated).Minutes() * float64(l.perMinute)
	l.updated = now
	if full := float64(l.perMinute); l.tokens > full {
		l.tokens = full
	}
}

// untilNext must be called with mu held.
func (l *Limiter) untilNext() time.Duration {
	missing := 1 - l.tokens
	return time.Duration(missing / float64(l.perMinute) * float64(time.Minute))
}
