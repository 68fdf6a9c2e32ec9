package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Equal(t, "abc", GetRequestID(SetRequestID(ctx, "abc")))
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	_, ok := GetCurrentUser(ctx)
	assert.False(t, ok)

	_, ok = GetCurrentUser(SetCurrentUser(ctx, nil))
	assert.False(t, ok)

	u, ok := GetCurrentUser(SetCurrentUser(ctx, &User{ID: 7, Username: "ada"}))
	assert.True(t, ok)
	assert.Equal(t, int64(7), u.ID)
}
