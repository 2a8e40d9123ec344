package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/http/response"
	"github.com/campushub/campus-events-backend/internal/service"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
	SessionContextKey   contextKey = "session"
)

// AuthMiddleware resolves the bearer token against the session registry
// and stores principal and session in the request context. Token claims
// alone never authenticate a request; the session row has to be live.
func AuthMiddleware(auth service.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
				return
			}
			principal, session, err := auth.Verify(r.Context(), raw)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrSessionExpired):
					response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired, log in again", nil)
				case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrAuthFailure):
					response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token", nil)
				default:
					// a persistence outage is not the caller's fault
					response.FromError(w, r, err)
				}
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			ctx = context.WithValue(ctx, SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePasswordChanged blocks principals still on a bootstrap
// password. The change-password route itself must not be behind it.
func RequirePasswordChanged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
			return
		}
		if principal.ForcePasswordChange {
			response.Error(w, r, http.StatusForbidden, "PASSWORD_CHANGE_REQUIRED", "change your password before doing anything else", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*domain.Principal)
	return p, ok
}

func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*domain.Session)
	return s, ok
}
