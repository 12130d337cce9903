package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/rpggio/inkwell/internal/domain/session"
	"github.com/rpggio/inkwell/internal/mcp"
)

// MCPHandler handles method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, sessionID, method string, params json.RawMessage) (any, error)
}

// SessionReader resolves the caller's session.
type SessionReader interface {
	Current(ctx context.Context, id string) (*session.Session, error)
}

// ProjectReader serves read-only project views.
type ProjectReader interface {
	Export(ctx context.Context, actor account.Actor, ownerID string) (novel.Export, error)
	Preview(ctx context.Context, actor account.Actor, ownerID, chapterID string) (novel.Preview, error)
}

// Options wires the router.
type Options struct {
	Handler  MCPHandler
	Sessions SessionReader
	Projects ProjectReader
	// MCP is the streamable MCP endpoint, mounted at /mcp when set.
	MCP http.Handler
	// Metrics is the Prometheus scrape handler, mounted at /metrics when set.
	Metrics  http.Handler
	Recorder StatusRecorder
	Logger   *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler  MCPHandler
	sessions SessionReader
	projects ProjectReader
	logger   *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(SessionMiddleware)
	r.Use(LoggingMiddleware(logger, opts.Recorder))

	srv := &Server{
		handler:  opts.Handler,
		sessions: opts.Sessions,
		projects: opts.Projects,
		logger:   logger,
	}

	r.Post("/rpc", srv.handleRPC)
	r.Get("/health", srv.handleHealth)
	r.Route("/projects/{userID}", func(r chi.Router) {
		r.Get("/export", srv.handleExport)
		r.Get("/chapters/{chapterID}/preview", srv.handlePreview)
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		code, message := parseErrorCode(err)
		WriteError(w, nil, code, message, err.Error())
		return
	}

	sessionID, _ := SessionIDFromContext(r.Context())

	result, err := s.handler.Handle(r.Context(), sessionID, req.Method, req.Params)
	if err != nil {
		var apiErr *mcp.APIError
		switch {
		case errors.Is(err, mcp.ErrUnknownMethod):
			WriteError(w, req.ID, ErrMethodNotFound, err.Error(), nil)
		case errors.As(err, &apiErr):
			code := ErrApplication
			if apiErr.Code == "INVALID_PARAMS" {
				code = ErrInvalidParams
			}
			WriteError(w, req.ID, code, apiErr.Message, apiErr)
		default:
			s.logger.Error("rpc method failed", "method", req.Method, "error", err)
			WriteError(w, req.ID, ErrInternal, "internal error", nil)
		}
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	exp, err := s.projects.Export(r.Context(), actor, chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	novel.TriggerDownload(r.Context(), ResponseDownloader{W: w}, exp, s.logger)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	preview, err := s.projects.Preview(r.Context(), actor, chi.URLParam(r, "userID"), chi.URLParam(r, "chapterID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "<article>\n<h2>%s</h2>\n%s</article>\n", html.EscapeString(preview.Title), preview.HTML)
}

// actor resolves the session, writing an error response when it cannot.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (account.Actor, bool) {
	sessionID, _ := SessionIDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return account.Actor{}, false
	}
	sess, err := s.sessions.Current(r.Context(), sessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return account.Actor{}, false
	}
	return sess.Actor(), true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// StatusForError maps domain errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, novel.ErrAuthRequired), errors.Is(err, session.ErrInvalidInput):
		return http.StatusUnauthorized
	case errors.Is(err, novel.ErrReadOnly), errors.Is(err, account.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, novel.ErrProjectNotFound), errors.Is(err, novel.ErrChapterNotFound):
		return http.StatusNotFound
	case errors.Is(err, novel.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ResponseDownloader delivers an export as an HTTP attachment.
type ResponseDownloader struct {
	W http.ResponseWriter
}

// Download writes the headers and body of the attachment.
func (d ResponseDownloader) Download(_ context.Context, text, filename, mimeType string) error {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	d.W.Header().Set("Content-Type", mimeType+"; charset=utf-8")
	d.W.Header().Set("Content-Disposition", disposition)
	d.W.WriteHeader(http.StatusOK)
	if _, err := d.W.Write([]byte(text)); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
