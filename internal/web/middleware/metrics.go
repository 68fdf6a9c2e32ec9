package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/metrics"
)

// Metrics records request counts and latency labelled by the chi route
// pattern, so /api/books/1 and /api/books/2 share a series.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			sw := wrapWriter(w)
			next.ServeHTTP(sw, r)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			metrics.ObserveHTTP(r.Method, route, sw.status, time.Since(start))
		})
	}
}
