package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
)

// SessionHeader lets HTTP clients resume an editor session across MCP
// connections. Without it the MCP connection's own session id is used.
const SessionHeader = "Inkwell-Session-Id"

// getSessionID extracts session ID from context.
func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// sessionMiddleware extracts the session ID from the Inkwell-Session-Id or
// Mcp-Session-Id header (HTTP) or from _meta.session_id (stdio). When none
// is present, defaultSession is used; pass "" to require one.
func sessionMiddleware(defaultSession string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var sessionID string

			extra := req.GetExtra()
			if extra != nil && extra.Header != nil {
				sessionID = extra.Header.Get(SessionHeader)
				if sessionID == "" {
					sessionID = extra.Header.Get("Mcp-Session-Id")
				}
			}

			// Some notifications (like "initialized") have nil params, and
			// GetMeta can panic on a nil underlying value.
			if sessionID == "" {
				if params := req.GetParams(); params != nil {
					func() {
						defer func() { recover() }()
						if meta := params.GetMeta(); meta != nil {
							if sid, ok := meta["session_id"].(string); ok {
								sessionID = sid
							}
						}
					}()
				}
			}

			if sessionID == "" {
				sessionID = defaultSession
			}
			if sessionID != "" {
				ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			}

			return next(ctx, method, req)
		}
	}
}
