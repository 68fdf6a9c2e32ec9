// Package ratelimit limits request rates per key (client IP or user), in
// memory or across instances through Redis.
package ratelimit

import (
	"context"
	"time"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	// Allow records one request for key and reports whether it is allowed
	Allow(ctx context.Context, key string) (*RateLimitInfo, error)
}

// RateLimitInfo contains information about the current rate limit state
type RateLimitInfo struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when capacity is next restored
	ResetAt time.Time
	// Allowed indicates whether the request should be allowed
	Allowed bool
}

// RetryAfter returns how long a rejected client should wait
func (i *RateLimitInfo) RetryAfter(now time.Time) time.Duration {
	d := i.ResetAt.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d
}
