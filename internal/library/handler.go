package library

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/middleware"
	"github.com/inkwell-dev/inkwell/internal/web/query"
	"github.com/inkwell-dev/inkwell/internal/web/request"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// ShelfPage is a page of shelf results with an optional warning
type ShelfPage struct {
	response.PageBody
	Warning string `json:"warning,omitempty"`
}

// Handler serves the library endpoints
type Handler struct {
	svc      *Service
	enforcer *auth.Enforcer
}

// NewHandler creates a Handler. The enforcer gates the shelf routes.
func NewHandler(svc *Service, enforcer *auth.Enforcer) *Handler {
	return &Handler{svc: svc, enforcer: enforcer}
}

// Routes registers the library routes on r
func (h *Handler) Routes(r chi.Router) {
	r.Route("/libraries", func(r chi.Router) {
		r.Get("/", h.listLibraries)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/", h.createLibrary)
		r.Get("/{id}", h.getLibrary)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Put("/{id}/librarian", h.setLibrarian)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleLibrarian, auth.RoleAdmin))
			r.Post("/{id}/books", h.addBook)
			r.Delete("/{id}/books/{book_id}", h.removeBook)
		})
	})

	r.Route("/library", func(r chi.Router) {
		r.Get("/queries", h.queries)

		r.With(middleware.RequireAuth()).Get("/dashboard", h.dashboard)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/admin", h.roleDashboard(auth.RoleAdmin))
		r.With(middleware.RequireRole(auth.RoleLibrarian)).Get("/librarian", h.roleDashboard(auth.RoleLibrarian))
		r.With(middleware.RequireRole(auth.RoleMember)).Get("/member", h.roleDashboard(auth.RoleMember))

		r.Route("/books", func(r chi.Router) {
			view := middleware.RequirePermission(h.enforcer, auth.ObjectBook, auth.PermView)
			r.With(view).Get("/", h.searchShelf)
			r.With(view).Get("/{id}", h.getShelfBook)
			r.With(middleware.RequirePermission(h.enforcer, auth.ObjectBook, auth.PermCreate)).Post("/", h.createShelfBook)
			r.With(middleware.RequirePermission(h.enforcer, auth.ObjectBook, auth.PermEdit)).Put("/{id}", h.updateShelfBook)
			r.With(middleware.RequirePermission(h.enforcer, auth.ObjectBook, auth.PermDelete)).Delete("/{id}", h.deleteShelfBook)
		})
	})
}

func (h *Handler) listLibraries(w http.ResponseWriter, r *http.Request) {
	libraries, err := h.svc.ListLibraries(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, libraries)
}

func (h *Handler) createLibrary(w http.ResponseWriter, r *http.Request) {
	var req CreateLibraryRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	l, err := h.svc.CreateLibrary(r.Context(), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, l)
}

func (h *Handler) getLibrary(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	l, err := h.svc.GetLibrary(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, l)
}

func (h *Handler) setLibrarian(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req LibrarianRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	lr, err := h.svc.SetLibrarian(r.Context(), id, req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, lr)
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req AddBookRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	l, err := h.svc.AddBook(r.Context(), id, req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, l)
}

func (h *Handler) removeBook(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	bookID, err := request.ID(r, "book_id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.svc.RemoveBook(r.Context(), id, bookID); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) queries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.Queries(r.Context(), strings.TrimSpace(q.Get("author")), strings.TrimSpace(q.Get("library")))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, res)
}

// dashboard tells the client which role dashboard to open
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentPrincipal(r.Context())
	base := strings.TrimSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/dashboard")
	response.OK(w, map[string]string{
		"role":     p.Role,
		"redirect": base + "/" + DashboardPath(p.Role),
	})
}

func (h *Handler) roleDashboard(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.svc.Dashboard(r.Context(), role)
		if err != nil {
			response.Error(w, r, err)
			return
		}
		response.OK(w, d)
	}
}

func (h *Handler) searchShelf(w http.ResponseWriter, r *http.Request) {
	q, err := ParseShelfQuery(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	page, err := query.ParsePage(r, ShelfPageSize, ShelfPageSize)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	books, total, err := h.svc.SearchShelf(r.Context(), q, page)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	body := ShelfPage{PageBody: response.NewPage(r, page, total, books)}
	if q.InvalidYear() {
		body.Warning = MsgInvalidYear
	}
	response.OK(w, body)
}

func (h *Handler) getShelfBook(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	b, err := h.svc.ShelfBook(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, b)
}

func (h *Handler) createShelfBook(w http.ResponseWriter, r *http.Request) {
	var in ShelfInput
	if err := request.Decode(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	res, err := h.svc.CreateShelfBook(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, res)
}

func (h *Handler) updateShelfBook(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var in ShelfInput
	if err := request.Decode(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	res, err := h.svc.UpdateShelfBook(r.Context(), id, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) deleteShelfBook(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	msg, err := h.svc.DeleteShelfBook(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]string{"message": msg})
}
