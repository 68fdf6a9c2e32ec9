package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/middleware"
	"github.com/inkwell-dev/inkwell/internal/web/query"
	"github.com/inkwell-dev/inkwell/internal/web/request"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// Handler serves the account endpoints
type Handler struct {
	svc *Service
	// limit guards register and login; nil disables limiting
	limit middleware.Middleware
}

// NewHandler creates a Handler. limit wraps the credential endpoints.
func NewHandler(svc *Service, limit middleware.Middleware) *Handler {
	return &Handler{svc: svc, limit: limit}
}

// Routes registers the account and admin routes on r
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limit != nil {
			r.Use(h.limit)
		}
		r.Post("/accounts/register", h.register)
		r.Post("/accounts/login", h.login)
	})

	r.Get("/accounts/users/{id}", h.getUser)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth())
		r.Post("/accounts/logout", h.logout)
		r.Get("/accounts/profile", h.getProfile)
		r.Put("/accounts/profile", h.updateProfile)
		r.Patch("/accounts/profile", h.updateProfile)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireStaff())
		r.Get("/users", h.listUsers)
		r.Put("/users/{id}/role", h.setRole)
		r.Put("/users/{id}/groups", h.setGroups)
		r.Get("/groups", h.listGroups)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	result, err := h.svc.Register(r.Context(), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, result)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, result)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentPrincipal(r.Context())
	if err := h.svc.Logout(r.Context(), p); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Detail(w, http.StatusOK, MsgLoggedOut)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profile(r.Context(), auth.CurrentUserID(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, profile)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	profile, err := h.svc.UpdateProfile(r.Context(), auth.CurrentUserID(r.Context()), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, profile)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	profile, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, profile)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := query.ParsePage(r, query.DefaultPageSize, query.MaxPageSize)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	users, total, err := h.svc.ListUsers(r.Context(), query.Search(r), page)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Paginated(w, r, page, total, users)
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req roleRequest
	if err := request.Bind(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	user, err := h.svc.SetRole(r.Context(), id, req.Role)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, user)
}

type groupsRequest struct {
	Groups []string `json:"groups" validate:"required"`
}

func (h *Handler) setGroups(w http.ResponseWriter, r *http.Request) {
	id, err := request.ID(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req groupsRequest
	if err := request.Bind(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	user, err := h.svc.SetGroups(r.Context(), id, req.Groups)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, user)
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, groups)
}
