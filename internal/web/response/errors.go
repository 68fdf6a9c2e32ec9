// Package response writes JSON API responses and maps errors to HTTP status
// codes.
package response

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// APIError is an error with a fixed status and a client-facing detail message
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Common errors
var (
	ErrNotFound         = &APIError{Status: http.StatusNotFound, Detail: "Not found."}
	ErrNotAuthenticated = &APIError{Status: http.StatusUnauthorized, Detail: "Authentication credentials were not provided."}
	ErrPermissionDenied = &APIError{Status: http.StatusForbidden, Detail: "You do not have permission to perform this action."}
)

// BadRequest returns a 400 APIError
func BadRequest(detail string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Detail: detail}
}

// NotFound returns a 404 APIError
func NotFound(detail string) *APIError {
	return &APIError{Status: http.StatusNotFound, Detail: detail}
}

// Forbidden returns a 403 APIError
func Forbidden(detail string) *APIError {
	return &APIError{Status: http.StatusForbidden, Detail: detail}
}

// InternalErrorResponse is the body of every 500 response
type InternalErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var internalError = InternalErrorResponse{
	Error:   "internal_server_error",
	Message: "An unexpected error occurred",
}

// Error renders err. Validation errors become 400 with a field map, known
// errors become {"detail": ...}, anything else is logged and rendered as 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := validation.AsErrors(err); ok {
		JSON(w, http.StatusBadRequest, ve)
		return
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		Detail(w, apiErr.Status, apiErr.Detail)
	case errors.Is(err, db.ErrNotFound):
		Detail(w, http.StatusNotFound, ErrNotFound.Detail)
	case errors.Is(err, query.ErrInvalidPage):
		Detail(w, http.StatusNotFound, "Invalid page.")
	case errors.Is(err, auth.ErrInvalidToken):
		Detail(w, http.StatusUnauthorized, "Invalid token.")
	case errors.Is(err, auth.ErrTokenRevoked):
		Detail(w, http.StatusUnauthorized, "Token has been revoked.")
	case errors.Is(err, auth.ErrAccountInactive):
		Detail(w, http.StatusUnauthorized, "User inactive or deleted.")
	case errors.Is(err, auth.ErrRevocationUnavailable):
		Detail(w, http.StatusServiceUnavailable, "Token could not be verified.")
	default:
		InternalError(w, r, err)
	}
}

// InternalError logs err with the request logger and writes a generic 500
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	JSON(w, http.StatusInternalServerError, internalError)
}

// StatusFor returns the status Error would write for err
func StatusFor(err error) int {
	if _, ok := validation.AsErrors(err); ok {
		return http.StatusBadRequest
	}
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Status
	case errors.Is(err, db.ErrNotFound), errors.Is(err, query.ErrInvalidPage):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrAccountInactive):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrRevocationUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
