package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sanathkumar-crypto/issue-tracker/internal/config"
	"github.com/sanathkumar-crypto/issue-tracker/internal/middleware"
	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
	"github.com/sanathkumar-crypto/issue-tracker/internal/service"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

const stateCookie = "oauth_state"

type AuthHTTP struct {
	auth  *service.AuthService
	oauth *service.OAuthService
	users repository.UserRepository
	cfg   config.Config
	log   zerolog.Logger
}

func NewAuthHTTP(auth *service.AuthService, oauth *service.OAuthService, users repository.UserRepository, cfg config.Config, log zerolog.Logger) *AuthHTTP {
	return &AuthHTTP{auth: auth, oauth: oauth, users: users, cfg: cfg, log: log}
}

func (h *AuthHTTP) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.Env == "prod",
		Expires:  time.Now().Add(24 * time.Hour),
	})
}

func profileJSON(u *models.User) map[string]any {
	return map[string]any{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
		"role":  u.Role,
	}
}

// POST /api/auth/login is the plain email login, the fallback when OAuth is not
// configured. The only credential is a domain-restricted address.
func (h *AuthHTTP) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		token, u, err := h.auth.LoginWithEmail(r.Context(), in.Email)
		switch {
		case errors.Is(err, service.ErrEmailRequired):
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, service.ErrDomainNotAllowed):
			utils.Error(w, http.StatusForbidden, err.Error())
			return
		case err != nil:
			utils.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.setSession(w, token)
		utils.JSON(w, http.StatusOK, profileJSON(u))
	}
}

// GET /api/auth/google redirects to the Google consent screen with a state
// nonce pinned in a short-lived cookie.
func (h *AuthHTTP) GoogleStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.oauth.Enabled() {
			utils.Error(w, http.StatusServiceUnavailable, "google oauth is not configured")
			return
		}
		state := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   h.cfg.Env == "prod",
			MaxAge:   600,
		})
		http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusFound)
	}
}

// GET /api/auth/google/callback
func (h *AuthHTTP) GoogleCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errParam := q.Get("error"); errParam != "" {
			h.log.Warn().Str("error", errParam).Str("description", q.Get("error_description")).Msg("oauth error from provider")
			utils.Error(w, http.StatusUnauthorized, "oauth error: "+errParam)
			return
		}

		c, err := r.Cookie(stateCookie)
		if err != nil || c.Value == "" || c.Value != q.Get("state") {
			utils.Error(w, http.StatusBadRequest, "invalid state parameter")
			return
		}
		// One-shot nonce.
		http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", HttpOnly: true, MaxAge: -1})

		code := q.Get("code")
		if code == "" {
			utils.Error(w, http.StatusBadRequest, "missing authorization code")
			return
		}

		info, err := h.oauth.Exchange(r.Context(), code)
		if err != nil {
			h.log.Error().Err(err).Msg("oauth exchange failed")
			utils.Error(w, http.StatusBadGateway, "oauth exchange failed")
			return
		}

		token, _, err := h.auth.CompleteOAuth(r.Context(), info.Email, info.Name)
		if errors.Is(err, service.ErrDomainNotAllowed) {
			utils.Error(w, http.StatusForbidden, err.Error())
			return
		}
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.setSession(w, token)
		http.Redirect(w, r, h.cfg.Origin, http.StatusFound)
	}
}

// POST /api/auth/logout
func (h *AuthHTTP) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0), // for older browsers
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /api/auth/me
func (h *AuthHTTP) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := utils.GetString(r.Context(), middleware.CtxUserID)
		if !ok || uid == "" {
			utils.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		u, err := h.users.GetByID(r.Context(), uid)
		if err != nil || u == nil {
			utils.Error(w, http.StatusNotFound, "user not found")
			return
		}
		utils.JSON(w, http.StatusOK, profileJSON(u))
	}
}
