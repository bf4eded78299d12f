package middleware

import (
	"context"
	"net/http"

	"victor-smm-api/internal/service"
	"victor-smm-api/pkg/apierror"
)

// SessionKey is the context key holding the resolved session.
const SessionKey contextKey = "session"

// SessionCookie is the cookie fallback for the session token.
const SessionCookie = "victor_session"

// TokenFromRequest extracts the session token from the X-Session-Token
// header or the session cookie.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get("X-Session-Token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Session resolves the session token, when present, into the request
// context. It does not reject anonymous requests; handlers that need a
// session use RequireSession.
func Session(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token != "" {
				if session, err := sessions.Get(r.Context(), token); err == nil {
					ctx := context.WithValue(r.Context(), SessionKey, session)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without a live authenticated session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil || session.UserID == "" {
			writeError(w, apierror.Unauthorized("Please log in first"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose session lacks the admin flag. This
// guard covers routing only; authoritative enforcement is the remote
// store's row-level security.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil {
			writeError(w, apierror.Unauthorized(""))
			return
		}
		if !session.Admin {
			writeError(w, apierror.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext retrieves the session from request context.
func SessionFromContext(ctx context.Context) *service.Session {
	if session, ok := ctx.Value(SessionKey).(*service.Session); ok {
		return session
	}
	return nil
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
