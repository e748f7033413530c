package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sanathkumar-crypto/issue-tracker/internal/config"
	"github.com/sanathkumar-crypto/issue-tracker/internal/service"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

type ctxKey string

const (
	CtxUserID ctxKey = "uid"
	CtxEmail  ctxKey = "email"
	CtxName   ctxKey = "name"
	CtxRole   ctxKey = "role"
)

const SessionCookie = "session"

// WithAuth parses the session JWT from the cookie or Authorization header and
// stashes the identity in the request context. The admin allowlist is
// re-applied on every request so promotions take effect without re-login.
func WithAuth(cfg config.Config, auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tok string
			if c, err := r.Cookie(SessionCookie); err == nil {
				tok = c.Value
			} else if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				tok = strings.TrimPrefix(h, "Bearer ")
			}

			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := utils.ParseJWT(cfg.SessionSecret, tok)
			if err != nil {
				// Clear a broken/expired cookie so it stops being sent.
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    "",
					Path:     "/",
					HttpOnly: true,
					MaxAge:   -1,
				})
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), CtxUserID, claims.UserID)
			ctx = context.WithValue(ctx, CtxEmail, claims.Email)
			ctx = context.WithValue(ctx, CtxName, claims.Name)
			ctx = context.WithValue(ctx, CtxRole, auth.EffectiveRole(claims.Email, claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
