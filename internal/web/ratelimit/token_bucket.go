package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// TokenBucket is an in-memory limiter: each key holds up to Limit tokens,
// refilled continuously at Limit tokens per Window.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewTokenBucket creates a limiter that allows limit requests per window
func NewTokenBucket(limit int, window time.Duration) (*TokenBucket, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	tb := &TokenBucket{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go tb.cleanupLoop(window * 5)

	return tb, nil
}

func (tb *TokenBucket) rate() float64 {
	return float64(tb.limit) / tb.window.Seconds()
}

// Allow checks if a request should be allowed for the given key
func (tb *TokenBucket) Allow(_ context.Context, key string) (*RateLimitInfo, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.limit), lastSeen: now}
		tb.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastSeen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(tb.limit), b.tokens+elapsed*tb.rate())
	}
	b.lastSeen = now

	info := &RateLimitInfo{Limit: tb.limit}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	}
	info.Remaining = int(math.Floor(b.tokens))

	// time until one more token is available
	missing := 1 - (b.tokens - math.Floor(b.tokens))
	if b.tokens >= 1 {
		missing = 0
	}
	info.ResetAt = now.Add(time.Duration(missing / tb.rate() * float64(time.Second)))

	return info, nil
}

func (tb *TokenBucket) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tb.cleanup()
		case <-tb.done:
			return
		}
	}
}

// cleanup drops buckets that have been idle long enough to be full again
func (tb *TokenBucket) cleanup() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	threshold := tb.now().Add(-tb.window)
	for key, b := range tb.buckets {
		if b.lastSeen.Before(threshold) {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine
func (tb *TokenBucket) Close() error {
	tb.once.Do(func() { close(tb.done) })
	return nil
}
