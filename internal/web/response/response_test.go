package response

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

func TestErrorMapping(t *testing.T) {
	ve := validation.New()
	ve.Add("title", "This field is required.")

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", ve, 400, `{"title":["This field is required."]}`},
		{"api error", BadRequest("You cannot follow yourself."), 400, `{"detail":"You cannot follow yourself."}`},
		{"wrapped api error", fmt.Errorf("follow: %w", ErrPermissionDenied), 403, `{"detail":"You do not have permission to perform this action."}`},
		{"not found", db.ConvertDBError(sql.ErrNoRows), 404, `{"detail":"Not found."}`},
		{"invalid page", query.ErrInvalidPage, 404, `{"detail":"Invalid page."}`},
		{"invalid token", auth.ErrInvalidToken, 401, `{"detail":"Invalid token."}`},
		{"revoked token", auth.ErrTokenRevoked, 401, `{"detail":"Token has been revoked."}`},
		{"inactive account", auth.ErrAccountInactive, 401, `{"detail":"User inactive or deleted."}`},
		{"revocation unavailable", fmt.Errorf("%w: dial tcp", auth.ErrRevocationUnavailable), 503, `{"detail":"Token could not be verified."}`},
		{"internal", assert.AnError, 500, `{"error":"internal_server_error","message":"An unexpected error occurred"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, StatusFor(tt.err))
			assert.JSONEq(t, tt.body, rec.Body.String())
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
		})
	}
}

func TestPaginated(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://api.test/api/books?page=2&search=dune", nil)
	rec := httptest.NewRecorder()

	Paginated(rec, r, query.Page{Number: 2, Size: 10}, 35, []string{"a", "b"})

	var body struct {
		Count    int      `json:"count"`
		Next     *string  `json:"next"`
		Previous *string  `json:"previous"`
		Results  []string `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 35, body.Count)
	require.NotNil(t, body.Next)
	assert.Equal(t, "http://api.test/api/books?page=3&search=dune", *body.Next)
	require.NotNil(t, body.Previous)
	assert.Equal(t, "http://api.test/api/books?search=dune", *body.Previous)
	assert.Equal(t, []string{"a", "b"}, body.Results)
}

func TestPaginatedEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	rec := httptest.NewRecorder()

	var none []int
	Paginated(rec, r, query.Page{Number: 1, Size: 10}, 0, none)
	assert.JSONEq(t, `{"count":0,"next":null,"previous":null,"results":[]}`, rec.Body.String())
}

func TestPageURLForwardedProto(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://api.test/api/posts", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://api.test/api/posts?page=2", PageURL(r, 2))
}

func TestRenderHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]int{"id": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestConditional(t *testing.T) {
	v := map[string]string{"title": "Dune"}

	rec := httptest.NewRecorder()
	Conditional(rec, httptest.NewRequest(http.MethodGet, "/books/1", nil), v)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.JSONEq(t, `{"title":"Dune"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/books/1", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	Conditional(rec, req, v)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}
