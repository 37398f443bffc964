// Package visit tracks how many times a browser session has opened the
// landing page.
package visit

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const CookieName = "sessionid"

// Session identifies one visitor for the lifetime of its cookie.
type Session struct {
	ID string
	// New is set when the cookie was issued on this request.
	New bool
}

type contextKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, if Middleware ran.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

// Middleware attaches a Session to every request, issuing a cookie when the
// visitor has none. The cookie is refreshed on each request so its lifetime
// slides with activity.
func Middleware(ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := Session{}
			if c, err := r.Cookie(CookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					s.ID = id.String()
				}
			}
			if s.ID == "" {
				s = Session{ID: uuid.NewString(), New: true}
			}

			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    s.ID,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
