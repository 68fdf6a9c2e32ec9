package social

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/middleware"
)

const testSecret = "social-test-secret-long-enough!!"

type apiFixture struct {
	store  *memStore
	router chi.Router
	tokens map[int64]string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	svc, store, _ := newTestService(t)
	issuer := auth.NewAuthService(testSecret, time.Hour)
	tokens := make(map[int64]string)
	for id, u := range store.users {
		token, err := issuer.GenerateToken(&auth.Principal{ID: id, Username: u.Username, Role: auth.RoleMember})
		require.NoError(t, err)
		tokens[id] = token
	}

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(issuer, nil))
	NewHandler(svc).Routes(r)
	return &apiFixture{store: store, router: r, tokens: tokens}
}

func (f *apiFixture) do(t *testing.T, method, path string, user int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if user != 0 {
		req.Header.Set("Authorization", "Bearer "+f.tokens[user])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["detail"]
}

func TestHandler_RequiresAuthentication(t *testing.T) {
	f := newAPIFixture(t)
	for _, path := range []string{"/feed", "/notifications"} {
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path, 0).Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/accounts/follow/2", 0).Code)
}

func TestHandler_FollowFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/accounts/follow/2", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You are now following grace.", detail(t, rec))

	tests := []struct {
		path string
		user int64
		code int
		want string
	}{
		{"/accounts/follow/2", 1, http.StatusBadRequest, "Already following this user."},
		{"/accounts/follow/1", 1, http.StatusBadRequest, "You cannot follow yourself."},
		{"/accounts/unfollow/1", 1, http.StatusBadRequest, "You cannot unfollow yourself."},
		{"/accounts/unfollow/3", 1, http.StatusBadRequest, "You are not following this user."},
		{"/accounts/follow/99", 1, http.StatusNotFound, "Not found."},
		{"/accounts/unfollow/2", 1, http.StatusOK, "You have unfollowed grace."},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodPost, tt.path, tt.user)
		assert.Equal(t, tt.code, rec.Code, tt.path)
		assert.Equal(t, tt.want, detail(t, rec), tt.path)
	}
}

func TestHandler_FollowerLists(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/accounts/follow/1", 2).Code)

	rec := f.do(t, http.MethodGet, "/accounts/users/1/followers", 3)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Count   int           `json:"count"`
		Results []UserSummary `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, "grace", page.Results[0].Username)

	rec = f.do(t, http.MethodGet, "/accounts/users/2/following", 3)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/accounts/users/99/followers", 3).Code)
}

func TestHandler_LikesAndFeed(t *testing.T) {
	f := newAPIFixture(t)
	post := f.store.addPost(2, "Hello")
	like := fmt.Sprintf("/posts/%d/like", post)

	rec := f.do(t, http.MethodPost, like, 1)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Post liked.", detail(t, rec))

	rec = f.do(t, http.MethodPost, like, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You have already liked this post.", detail(t, rec))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/posts/999/like", 1).Code)

	unlike := fmt.Sprintf("/posts/%d/unlike", post)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, unlike, 1).Code)
	rec = f.do(t, http.MethodPost, unlike, 1)
	assert.Equal(t, "You have not liked this post.", detail(t, rec))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/accounts/follow/2", 1).Code)
	rec = f.do(t, http.MethodGet, "/feed", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.EqualValues(t, 1, feed["count"])
}

func TestHandler_Notifications(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/accounts/follow/1", 2).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/accounts/follow/1", 3).Code)

	rec := f.do(t, http.MethodGet, "/notifications", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Count       int            `json:"count"`
		UnreadCount int            `json:"unread_count"`
		Results     []Notification `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, 2, page.UnreadCount)
	assert.Equal(t, VerbFollowed, page.Results[0].Verb)

	path := fmt.Sprintf("/notifications/%d/read", page.Results[0].ID)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, path, 2).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, path, 1).Code)

	rec = f.do(t, http.MethodPost, "/notifications/read-all", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"marked_read": 1}`, rec.Body.String())
}
