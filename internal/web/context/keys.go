// Package context holds the request-scoped values shared between middleware
// and handlers.
package context

import (
	"context"
	"time"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	currentUserKey
)

// User is the authenticated principal attached to a request
type User struct {
	ID          int64
	Username    string
	Role        string
	Groups      []string
	IsStaff     bool
	IsSuperuser bool

	// TokenID and ExpiresAt identify the credential used on this request.
	TokenID   string
	ExpiresAt time.Time
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID adds the request ID to the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetCurrentUser returns the authenticated user, if any
func GetCurrentUser(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(currentUserKey).(*User)
	return u, ok && u != nil
}

// SetCurrentUser adds the authenticated user to the context
func SetCurrentUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}
