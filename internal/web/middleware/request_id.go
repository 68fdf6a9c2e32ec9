package middleware

import (
	"net/http"

	"github.com/google/uuid"

	webcontext "github.com/inkwell-dev/inkwell/internal/web/context"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen caps client-supplied IDs
const maxRequestIDLen = 128

// RequestID reuses a client-supplied X-Request-ID or generates a UUID, stores
// it in the context and echoes it in the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.New().String()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(webcontext.SetRequestID(r.Context(), id)))
		})
	}
}
