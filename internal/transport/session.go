package transport

import (
	"context"
	"net/http"
)

// SessionHeader carries the editor session id. Mcp-Session-Id is accepted
// as a fallback, and downloads may pass ?session_id= since links cannot
// set headers.
const SessionHeader = "Inkwell-Session-Id"

type sessionKey struct{}

// SessionIDFromContext returns the session ID from context, if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionKey{}).(string)
	return sessionID, ok
}

// SessionMiddleware extracts the session id and stores it in context.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			sessionID = r.Header.Get("Mcp-Session-Id")
		}
		if sessionID == "" && r.Method == http.MethodGet {
			sessionID = r.URL.Query().Get("session_id")
		}
		if sessionID != "" {
			ctx := context.WithValue(r.Context(), sessionKey{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}
