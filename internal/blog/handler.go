package blog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/middleware"
	"github.com/inkwell-dev/inkwell/internal/web/query"
	"github.com/inkwell-dev/inkwell/internal/web/request"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// Handler serves the blog endpoints
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the post, comment, tag and search routes on r. Reads are
// public; writes need an authenticated user and edits need the author.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ReadOnlyOrAuthenticated())

		r.Get("/posts", h.listPosts)
		r.Post("/posts", h.createPost)
		r.Get("/posts/{id}", h.getPost)
		r.Put("/posts/{id}", h.updatePost(false))
		r.Patch("/posts/{id}", h.updatePost(true))
		r.Delete("/posts/{id}", h.deletePost)
		r.Get("/posts/{id}/comments", h.postComments)
		r.Post("/posts/{id}/comments/new", h.createComment)

		r.Get("/comments", h.listComments)
		r.Get("/comments/{id}", h.getComment)
		r.Put("/comments/{id}/update", h.updateComment(false))
		r.Patch("/comments/{id}/update", h.updateComment(true))
		r.Delete("/comments/{id}/delete", h.deleteComment)

		r.Get("/tags", h.listTags)
		r.Get("/tags/{slug}/posts", h.tagPosts)
		r.Get("/search", h.search)
	})
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotAuthor) {
		err = response.ErrPermissionDenied
	}
	response.Error(w, r, err)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	f, err := ParsePostFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	page, err := query.ParseListPage(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	posts, total, err := h.svc.ListPosts(r.Context(), f, page)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, r, page, total, posts)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var in PostInput
	if err := request.Decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.svc.CreatePost(r.Context(), auth.CurrentUserID(r.Context()), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, p)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.svc.GetPost(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Conditional(w, r, p)
}

func (h *Handler) updatePost(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r, "id")
		if err != nil {
			fail(w, r, err)
			return
		}
		var in PostInput
		if err := request.Decode(w, r, &in); err != nil {
			fail(w, r, err)
			return
		}
		p, err := h.svc.UpdatePost(r.Context(), auth.CurrentUserID(r.Context()), id, in, partial)
		if err != nil {
			fail(w, r, err)
			return
		}
		response.OK(w, p)
	}
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.svc.DeletePost(r.Context(), auth.CurrentUserID(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) postComments(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	page, err := query.ParseListPage(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	comments, total, err := h.svc.PostComments(r.Context(), id, page)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, r, page, total, comments)
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var in CommentInput
	if err := request.Decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.svc.AddComment(r.Context(), auth.CurrentUserID(r.Context()), id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, c)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	f, err := ParseCommentFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	page, err := query.ParseListPage(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	comments, total, err := h.svc.ListComments(r.Context(), f, page)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, r, page, total, comments)
}

func (h *Handler) getComment(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.svc.GetComment(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.OK(w, c)
}

func (h *Handler) updateComment(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r, "id")
		if err != nil {
			fail(w, r, err)
			return
		}
		var in CommentInput
		if err := request.Decode(w, r, &in); err != nil {
			fail(w, r, err)
			return
		}
		c, err := h.svc.UpdateComment(r.Context(), auth.CurrentUserID(r.Context()), id, in, partial)
		if err != nil {
			fail(w, r, err)
			return
		}
		response.OK(w, c)
	}
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.svc.DeleteComment(r.Context(), auth.CurrentUserID(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.OK(w, tags)
}

// TagPage is a page of posts under one tag
type TagPage struct {
	Tag *Tag `json:"tag"`
	response.PageBody
}

func (h *Handler) tagPosts(w http.ResponseWriter, r *http.Request) {
	page, err := query.ParseListPage(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	tag, posts, total, err := h.svc.TagPosts(r.Context(), chi.URLParam(r, "slug"), page)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.OK(w, TagPage{Tag: tag, PageBody: response.NewPage(r, page, total, posts)})
}

// SearchPage is a page of search results echoing the query
type SearchPage struct {
	Query string `json:"query"`
	response.PageBody
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	page, err := query.ParseListPage(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	q := r.URL.Query().Get("q")
	posts, total, err := h.svc.Search(r.Context(), q, page)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.OK(w, SearchPage{Query: q, PageBody: response.NewPage(r, page, total, posts)})
}
