package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcerGroupPermissions(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	require.NoError(t, e.LoadMemberships(map[int64][]string{
		1: {GroupViewers},
		2: {GroupEditors},
		3: {GroupAdmins},
	}))

	tests := []struct {
		name string
		user *Principal
		want []Permission
	}{
		{"viewer", &Principal{ID: 1}, []Permission{PermView}},
		{"editor", &Principal{ID: 2}, []Permission{PermView, PermCreate, PermEdit}},
		{"admin", &Principal{ID: 3}, []Permission{PermView, PermCreate, PermEdit, PermDelete}},
		{"no groups", &Principal{ID: 4}, nil},
		{"superuser", &Principal{ID: 5, IsSuperuser: true}, []Permission{PermView, PermCreate, PermEdit, PermDelete}},
		{"anonymous", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Permissions(context.Background(), tt.user, ObjectBook)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnforcerSetUserGroupsReplaces(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	require.NoError(t, e.SetUserGroups(9, []string{GroupAdmins, GroupViewers}))
	groups, err := e.UserGroups(9)
	require.NoError(t, err)
	assert.Equal(t, []string{GroupAdmins, GroupViewers}, groups)

	ok, err := e.HasPerm(context.Background(), &Principal{ID: 9}, ObjectBook, PermDelete)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.SetUserGroups(9, []string{GroupViewers}))
	ok, err = e.HasPerm(context.Background(), &Principal{ID: 9}, ObjectBook, PermDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.SetUserGroups(9, nil))
	groups, err = e.UserGroups(9)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestEnforcerUnknownObject(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)
	require.NoError(t, e.SetUserGroups(1, []string{GroupAdmins}))

	ok, err := e.HasPerm(context.Background(), &Principal{ID: 1}, "post", PermDelete)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnforcerRefreshFrom(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	stored := map[int64][]string{3: {GroupViewers}}
	var srcErr error
	loads := 0
	e.RefreshFrom(func(context.Context) (map[int64][]string, error) {
		loads++
		cp := make(map[int64][]string, len(stored))
		for k, v := range stored {
			cp[k] = v
		}
		return cp, srcErr
	}, time.Minute)

	ok, err := e.HasPerm(ctx, &Principal{ID: 3}, ObjectBook, PermView)
	require.NoError(t, err)
	assert.True(t, ok)

	// another process adds user 3 to Editors and user 4 to Admins
	stored = map[int64][]string{3: {GroupEditors}, 4: {GroupAdmins}}
	ok, err = e.HasPerm(ctx, &Principal{ID: 3}, ObjectBook, PermCreate)
	require.NoError(t, err)
	assert.False(t, ok, "still within the refresh interval")

	now = now.Add(time.Minute)
	ok, err = e.HasPerm(ctx, &Principal{ID: 3}, ObjectBook, PermCreate)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.HasPerm(ctx, &Principal{ID: 4}, ObjectBook, PermDelete)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, loads)

	// removed memberships are dropped on the next load
	stored = map[int64][]string{}
	now = now.Add(time.Minute)
	ok, err = e.HasPerm(ctx, &Principal{ID: 4}, ObjectBook, PermView)
	require.NoError(t, err)
	assert.False(t, ok)

	srcErr = errors.New("database is down")
	now = now.Add(time.Minute)
	_, err = e.HasPerm(ctx, &Principal{ID: 4}, ObjectBook, PermView)
	assert.ErrorIs(t, err, srcErr)
}
