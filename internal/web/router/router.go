// Package router builds the chi mux with JSON error handlers and exposes the
// registered routes for introspection.
package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// Router is a chi mux whose 404 and 405 responses use the API error format
type Router struct {
	*chi.Mux
}

// RouteInfo describes one registered method and pattern
type RouteInfo struct {
	Method     string
	Pattern    string
	Parameters []string
}

// New creates a router
func New() *Router {
	mux := chi.NewRouter()
	mux.NotFound(NotFoundHandler)
	mux.MethodNotAllowed(MethodNotAllowedHandler)
	return &Router{Mux: mux}
}

// NotFoundHandler answers unknown routes
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	response.Detail(w, http.StatusNotFound, response.ErrNotFound.Detail)
}

// MethodNotAllowedHandler answers known routes hit with the wrong method
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	response.Detail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method))
}

// Describe lists every route sorted by pattern then method
func (r *Router) Describe() ([]RouteInfo, error) {
	var out []RouteInfo
	walk := func(method, pattern string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		pattern = strings.ReplaceAll(pattern, "/*/", "/")
		out = append(out, RouteInfo{
			Method:     method,
			Pattern:    pattern,
			Parameters: PathParameters(pattern),
		})
		return nil
	}
	if err := chi.Walk(r.Mux, walk); err != nil {
		return nil, fmt.Errorf("failed to walk routes: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out, nil
}

// PathParameters extracts the {name} placeholders of a pattern
func PathParameters(pattern string) []string {
	var params []string
	for _, part := range strings.Split(pattern, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := strings.Trim(part, "{}")
			if i := strings.IndexByte(name, ':'); i >= 0 {
				name = name[:i]
			}
			params = append(params, name)
		}
	}
	return params
}
