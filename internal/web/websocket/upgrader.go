package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// Handler upgrades authenticated requests and attaches them to the hub. The
// JWT comes from the token query parameter or the Authorization header.
type Handler struct {
	hub      *Hub
	resolver *auth.Resolver
	upgrader websocket.Upgrader
}

// NewHandler creates the upgrade handler. allowedOrigins uses the same
// matching as CORS; empty allows same-host origins only.
func NewHandler(hub *Hub, resolver *auth.Resolver, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, resolver: resolver}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func tokenFrom(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && (strings.EqualFold(scheme, "Bearer") || strings.EqualFold(scheme, "Token")) {
		return strings.TrimSpace(token)
	}
	return ""
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	if token == "" {
		response.Error(w, r, response.ErrNotAuthenticated)
		return
	}
	p, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		h.hub.logger.Info("websocket authentication failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		response.Error(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h.hub, conn, p.ID)
	if !h.hub.add(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
