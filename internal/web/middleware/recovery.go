package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// Recovery turns a panicking handler into a logged 500 response
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logging.FromContext(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				response.JSON(w, http.StatusInternalServerError, response.InternalErrorResponse{
					Error:   "internal_server_error",
					Message: "An unexpected error occurred",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
