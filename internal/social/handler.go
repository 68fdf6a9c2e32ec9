package social

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/middleware"
	"github.com/inkwell-dev/inkwell/internal/web/query"
	"github.com/inkwell-dev/inkwell/internal/web/request"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// details maps state conflicts to their 400 messages
var details = map[error]string{
	ErrFollowSelf:       "You cannot follow yourself.",
	ErrUnfollowSelf:     "You cannot unfollow yourself.",
	ErrAlreadyFollowing: "Already following this user.",
	ErrNotFollowing:     "You are not following this user.",
	ErrAlreadyLiked:     "You have already liked this post.",
	ErrNotLiked:         "You have not liked this post.",
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	for target, detail := range details {
		if errors.Is(err, target) {
			response.Error(w, r, response.BadRequest(detail))
			return
		}
	}
	response.Error(w, r, err)
}

// NotificationPage is a page of notifications with the unread total
type NotificationPage struct {
	response.PageBody
	UnreadCount int `json:"unread_count"`
}

// Handler serves the social endpoints
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the social routes on r. Every route needs an
// authenticated user.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth())

		r.Post("/accounts/follow/{user_id}", h.follow)
		r.Post("/accounts/unfollow/{user_id}", h.unfollow)
		r.Get("/accounts/users/{id}/followers", h.followers)
		r.Get("/accounts/users/{id}/following", h.following)

		r.Get("/feed", h.feed)
		r.Post("/posts/{id}/like", h.like)
		r.Post("/posts/{id}/unlike", h.unlike)

		r.Get("/notifications", h.notifications)
		r.Post("/notifications/read-all", h.markAllRead)
		r.Post("/notifications/{id}/read", h.markRead)
	})
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "user_id")
	if err != nil {
		fail(w, r, err)
		return
	}
	msg, err := h.svc.Follow(r.Context(), auth.CurrentUserID(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Detail(w, http.StatusOK, msg)
}

func (h *Handler) unfollow(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "user_id")
	if err != nil {
		fail(w, r, err)
		return
	}
	msg, err := h.svc.Unfollow(r.Context(), auth.CurrentUserID(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Detail(w, http.StatusOK, msg)
}

func (h *Handler) followers(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.svc.Followers)
}

func (h *Handler) following(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.svc.Following)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, userID int64, page query.Page) ([]UserSummary, int, error)) {
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
	users, total, err := list(r.Context(), id, page)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, r, page, total, users)
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	page, err := query.ParseListPage(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	posts, total, err := h.svc.Feed(r.Context(), auth.CurrentUserID(r.Context()), page)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, r, page, total, posts)
}

func (h *Handler) like(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.svc.Like(r.Context(), auth.CurrentUserID(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	response.Detail(w, http.StatusCreated, "Post liked.")
}

func (h *Handler) unlike(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.svc.Unlike(r.Context(), auth.CurrentUserID(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	response.Detail(w, http.StatusOK, "Post unliked.")
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	page, err := query.ParseListPage(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	list, total, unread, err := h.svc.Notifications(r.Context(), auth.CurrentUserID(r.Context()), page)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.OK(w, NotificationPage{PageBody: response.NewPage(r, page, total, list), UnreadCount: unread})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.svc.MarkRead(r.Context(), auth.CurrentUserID(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	response.Detail(w, http.StatusOK, "Notification marked as read.")
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), auth.CurrentUserID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	response.OK(w, map[string]int{"marked_read": n})
}
