package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-dev/inkwell/internal/metrics"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/ratelimit"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*ratelimit.RateLimitInfo, error) {
	return nil, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	limiter, err := ratelimit.NewTokenBucket(2, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	before := testutil.ToFloat64(metrics.RateLimited.WithLabelValues("login"))
	h := RateLimit("login", limiter)(okHandler)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000").Code)
	rec := send("10.0.0.1:1001")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = send("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, decodeDetail(t, rec), "Request was throttled.")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimited.WithLabelValues("login")))

	// other clients are unaffected
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000").Code)
}

func TestRateLimitIgnoresForwardedForFromClients(t *testing.T) {
	limiter, err := ratelimit.NewTokenBucket(2, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	h := ClientAddress(nil)(RateLimit("login", limiter)(okHandler))
	accepted := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/login", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			accepted++
		}
	}
	assert.Equal(t, 2, accepted)
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	limiter, err := ratelimit.NewTokenBucket(1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })
	proxies, err := ParseTrustedProxies([]string{"10.0.0.1"})
	require.NoError(t, err)

	h := ClientAddress(proxies)(RateLimit("login", limiter)(okHandler))
	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/login", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1"))
	assert.Equal(t, http.StatusOK, send("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1"))
	// a forged leftmost entry does not buy a new bucket
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.77, 198.51.100.1"))
}

func TestRateLimitFailOpen(t *testing.T) {
	open := RateLimitWithConfig(RateLimitConfig{Limiter: failingLimiter{}, FailOpen: true})(okHandler)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	closed := RateLimitWithConfig(RateLimitConfig{Limiter: failingLimiter{}})(okHandler)
	rec = httptest.NewRecorder()
	closed.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUserKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:80"
	assert.Equal(t, "ip:10.1.1.1", UserKeyFunc(req))
	assert.Equal(t, "user:12", UserKeyFunc(withPrincipal(req, &auth.Principal{ID: 12})))
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/api/books/{id}", okHandler)

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/books/{id}", "200")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/api/books/1", "/api/books/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}
