package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"locallibrary/internal/auth"

	"github.com/samber/lo"
)

type contextKey string

const callerKey contextKey = "caller"

// AuthMiddleware resolves the bearer token, if any, into an auth.Caller on the
// request context. Requests without a token continue as anonymous; a token
// that fails verification is rejected.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header", nil)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), claims.Caller())))
		})
	}
}

// RequireLogin rejects anonymous callers with 401.
func RequireLogin(next http.Handler) http.Handler {
	return RequirePermission()(next)
}

// RequirePermission rejects callers that are anonymous (401) or lack any of
// the listed permissions (403).
func RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := CallerFrom(r)
			if err := caller.Require(perms...); err != nil {
				if errors.Is(err, auth.ErrPermissionDenied) {
					JSONError(w, http.StatusForbidden, "FORBIDDEN", "Permission denied", missingPermissions(caller.Permissions.Missing(perms...)))
					return
				}
				WriteAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func missingPermissions(perms []string) []ErrorDetail {
	return lo.Map(perms, func(p string, _ int) ErrorDetail {
		return ErrorDetail{Field: "permission", Message: p}
	})
}

// WriteAuthError maps auth sentinel errors onto 401/403.
func WriteAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}
	JSONError(w, http.StatusForbidden, "FORBIDDEN", "Permission denied", nil)
}

func WithCaller(ctx context.Context, caller auth.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFrom returns the caller stored on the request, or an anonymous one.
func CallerFrom(r *http.Request) auth.Caller {
	if caller, ok := r.Context().Value(callerKey).(auth.Caller); ok {
		return caller
	}
	return auth.Caller{}
}

func UserIDFrom(r *http.Request) string {
	return CallerFrom(r).UserID
}
