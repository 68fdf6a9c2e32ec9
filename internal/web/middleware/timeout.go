package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// timeoutWriter drops writes made after the deadline
type timeoutWriter struct {
	w    http.ResponseWriter
	mu   sync.Mutex
	done bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.w.Header()
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.done {
		return 0, http.ErrHandlerTimeout
	}
	return tw.w.Write(b)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.done {
		return
	}
	tw.w.WriteHeader(code)
}

// expire drops every later write from the handler
func (tw *timeoutWriter) expire() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.done = true
}

// Timeout cancels the request context after d and answers 503 when the
// handler has not finished by then.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			done := make(chan struct{})
			panicChan := make(chan any, 1)
			tw := &timeoutWriter{w: w}
			r = r.WithContext(ctx)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
			case p := <-panicChan:
				panic(p)
			case <-ctx.Done():
				tw.expire()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					response.Detail(w, http.StatusServiceUnavailable, "Request timed out.")
				}
			}
		})
	}
}
