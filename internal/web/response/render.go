package response

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/inkwell-dev/inkwell/internal/web/cache"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with status 200
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Conditional writes v with status 200 and an ETag, or 304 when the client's
// If-None-Match already matches
func Conditional(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		InternalError(w, r, err)
		return
	}
	if cache.WriteConditional(w, r, body) {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// Created writes v with status 201
func Created(w http.ResponseWriter, v any) {
	JSON(w, http.StatusCreated, v)
}

// NoContent writes an empty 204
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DetailBody is the {"detail": "..."} envelope
type DetailBody struct {
	Detail string `json:"detail"`
}

// Detail writes {"detail": msg}
func Detail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, DetailBody{Detail: msg})
}

// PageBody is the paginated list envelope
type PageBody struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// NewPage builds the envelope for one page of results. A "last" page is
// resolved against total; a nil slice is rendered as [].
func NewPage[T any](r *http.Request, page query.Page, total int, results []T) PageBody {
	if page.Number == 0 {
		page.Number = page.PageCount(total)
	}
	if results == nil {
		results = []T{}
	}
	body := PageBody{Count: total, Results: results}
	if page.HasNext(total) {
		u := PageURL(r, page.Number+1)
		body.Next = &u
	}
	if page.HasPrevious() {
		u := PageURL(r, page.Number-1)
		body.Previous = &u
	}
	return body
}

// Paginated writes one page of results with status 200
func Paginated[T any](w http.ResponseWriter, r *http.Request, page query.Page, total int, results []T) {
	OK(w, NewPage(r, page, total, results))
}

// PageURL returns the absolute URL of the request with ?page= set to n.
// Page 1 drops the parameter.
func PageURL(r *http.Request, n int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}

	q := r.URL.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}

	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}
