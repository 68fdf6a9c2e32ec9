package middleware

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/metrics"
	webcontext "github.com/inkwell-dev/inkwell/internal/web/context"
	"github.com/inkwell-dev/inkwell/internal/web/ratelimit"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// RateLimitKeyFunc extracts a rate limit key from a request. An empty key
// skips limiting.
type RateLimitKeyFunc func(*http.Request) string

// RateLimitConfig holds configuration for rate limiting middleware
type RateLimitConfig struct {
	Limiter ratelimit.RateLimiter
	KeyFunc RateLimitKeyFunc
	// Name labels rejections in metrics and separates keys between routes
	Name string
	// FailOpen lets requests through when the limiter itself errors
	FailOpen bool
	now      func() time.Time
}

// RateLimit limits requests per client IP
func RateLimit(name string, limiter ratelimit.RateLimiter) Middleware {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter:  limiter,
		KeyFunc:  IPKeyFunc,
		Name:     name,
		FailOpen: true,
	})
}

// RateLimitWithConfig creates a rate limiting middleware with custom configuration
func RateLimitWithConfig(config RateLimitConfig) Middleware {
	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}
	if config.now == nil {
		config.now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := config.KeyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if config.Name != "" {
				key = config.Name + ":" + key
			}

			info, err := config.Limiter.Allow(r.Context(), key)
			if err != nil {
				logging.FromContext(r.Context()).Warn("rate limiter failed", zap.String("key", key), zap.Error(err))
				if config.FailOpen {
					next.ServeHTTP(w, r)
				} else {
					response.InternalError(w, r, err)
				}
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				retry := info.RetryAfter(config.now())
				metrics.RateLimited.WithLabelValues(config.Name).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second)/time.Second)))
				response.Detail(w, http.StatusTooManyRequests,
					"Request was throttled. Expected available in "+strconv.Itoa(int(retry.Round(time.Second)/time.Second))+" seconds.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPKeyFunc uses the client IP resolved by ClientAddress, or the peer
// address.
func IPKeyFunc(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

// UserKeyFunc keys authenticated requests by user and falls back to the IP
func UserKeyFunc(r *http.Request) string {
	if u, ok := webcontext.GetCurrentUser(r.Context()); ok {
		return "user:" + strconv.FormatInt(u.ID, 10)
	}
	return IPKeyFunc(r)
}
