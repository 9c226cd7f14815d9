package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/rickgao/huddle/internal/model"
	"github.com/rickgao/huddle/internal/store"
	"github.com/rickgao/huddle/internal/version"
)

// ProfileResolver resolves the profile behind a request.
type ProfileResolver interface {
	// Current returns nil when the request has no session or no profile.
	Current(r *http.Request) (*model.Profile, error)

	// Initial creates the profile on first visit; fails with profile.ErrNoSession
	// when the request is unauthenticated.
	Initial(r *http.Request) (*model.Profile, error)
}

// Config configures the handler.
type Config struct {
	SignInURL string // Where unauthenticated visitors are sent
}

// Handler serves page routes and the JSON API.
type Handler struct {
	cfg      Config
	profiles ProfileResolver
	store    store.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg Config, profiles ProfileResolver, st store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:      cfg,
		profiles: profiles,
		store:    st,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes returns the router with every route registered.
func (h *Handler) Routes() http.Handler {
	r := httprouter.New()

	r.GET("/", h.handleSetup)
	r.GET("/servers/:serverId", h.handleServer)
	r.GET("/servers/:serverId/channels/:channelId", h.handleChannel)
	r.GET("/invite/:inviteCode", h.handleInvite)
	r.GET("/api/servers", h.handleListServers)
	r.POST("/api/servers", h.handleCreateServer)
	r.GET("/health", h.handleHealth)

	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		h.logger.Error("handler panic", "path", req.URL.Path, "panic", v)
		writeError(w, http.StatusInternalServerError, "internal error")
	}

	return r
}

// redirect halts the request and sends the browser elsewhere.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusTemporaryRedirect)
}

// redirectToSignIn sends the visitor to the sign-in page, remembering where they were going.
func (h *Handler) redirectToSignIn(w http.ResponseWriter, r *http.Request) {
	target := h.cfg.SignInURL
	if u, err := url.Parse(target); err == nil {
		q := u.Query()
		q.Set("redirect_url", r.URL.RequestURI())
		u.RawQuery = q.Encode()
		target = u.String()
	}
	redirect(w, r, target)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string            `json:"status"`
		Build      version.Info      `json:"build"`
		Components map[string]string `json:"components"`
	}{
		Status:     "healthy",
		Build:      version.Current(),
		Components: map[string]string{"database": "connected"},
	}

	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		health.Status = "unhealthy"
		health.Components["database"] = "disconnected"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, health)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
