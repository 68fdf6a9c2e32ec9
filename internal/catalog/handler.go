package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/web/middleware"
	"github.com/inkwell-dev/inkwell/internal/web/query"
	"github.com/inkwell-dev/inkwell/internal/web/request"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// Handler serves the catalog endpoints
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the author and book routes on r. Reads are public and
// writes need an authenticated user.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ReadOnlyOrAuthenticated())

		r.Route("/authors", func(r chi.Router) {
			r.Get("/", h.listAuthors)
			r.Post("/", h.createAuthor)
			r.Get("/{id}", h.getAuthor)
			r.Put("/{id}", h.updateAuthor(false))
			r.Patch("/{id}", h.updateAuthor(true))
			r.Delete("/{id}", h.deleteAuthor)
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.listBooks)
			r.Post("/", h.createBook)
			r.Post("/create", h.createBook)
			r.Get("/statistics", h.statistics)
			r.Get("/by-author/{author_id}", h.booksByAuthor)

			r.Get("/{id}", h.getBook)
			r.Put("/{id}", h.updateBook(false))
			r.Patch("/{id}", h.updateBook(true))
			r.Delete("/{id}", h.deleteBook)
			r.Put("/{id}/update", h.updateBook(false))
			r.Patch("/{id}/update", h.updateBook(true))
			r.Delete("/{id}/delete", h.deleteBook)
		})
	})
}

func (h *Handler) listAuthors(w http.ResponseWriter, r *http.Request) {
	f, err := ParseAuthorFilter(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	page, err := query.ParseListPage(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	authors, total, err := h.svc.ListAuthors(r.Context(), f, page)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Paginated(w, r, page, total, authors)
}

func (h *Handler) createAuthor(w http.ResponseWriter, r *http.Request) {
	var in AuthorInput
	if err := request.Decode(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	a, err := h.svc.CreateAuthor(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, a)
}

func (h *Handler) getAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	a, err := h.svc.GetAuthor(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, a)
}

func (h *Handler) updateAuthor(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r, "id")
		if err != nil {
			response.Error(w, r, err)
			return
		}
		var in AuthorInput
		if err := request.Decode(w, r, &in); err != nil {
			response.Error(w, r, err)
			return
		}
		a, err := h.svc.UpdateAuthor(r.Context(), id, in, partial)
		if err != nil {
			response.Error(w, r, err)
			return
		}
		response.OK(w, a)
	}
}

func (h *Handler) deleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.svc.DeleteAuthor(r.Context(), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	f, err := ParseBookFilter(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	page, err := query.ParseListPage(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	books, total, err := h.svc.ListBooks(r.Context(), f, page)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Paginated(w, r, page, total, books)
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := request.Decode(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	res, err := h.svc.CreateBook(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, res)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	b, err := h.svc.GetBook(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Conditional(w, r, b)
}

func (h *Handler) updateBook(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r, "id")
		if err != nil {
			response.Error(w, r, err)
			return
		}
		var in BookInput
		if err := request.Decode(w, r, &in); err != nil {
			response.Error(w, r, err)
			return
		}
		res, err := h.svc.UpdateBook(r.Context(), id, in, partial)
		if err != nil {
			response.Error(w, r, err)
			return
		}
		response.OK(w, res)
	}
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	msg, err := h.svc.DeleteBook(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]string{"message": msg})
}

func (h *Handler) booksByAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "author_id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	res, err := h.svc.BooksByAuthor(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, stats)
}
