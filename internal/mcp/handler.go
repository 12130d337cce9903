package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/rpggio/inkwell/internal/domain/session"
	"github.com/rpggio/inkwell/internal/domain/settings"
	"github.com/rpggio/inkwell/internal/notify"
)

const (
	defaultWaitTimeout = 25 * time.Second
	maxWaitTimeout     = 60 * time.Second
)

// SessionService defines session operations needed by MCP.
type SessionService interface {
	Start(ctx context.Context) (*session.Session, error)
	Current(ctx context.Context, id string) (*session.Session, error)
	ContinueAsGuest(ctx context.Context, id string) (*session.Session, error)
	Login(ctx context.Context, id, username, password string) (*session.Session, error)
	Register(ctx context.Context, id, username, password string) (*session.Session, error)
	SetupAdmin(ctx context.Context, id, username, password string) (*session.Session, error)
	Logout(ctx context.Context, id string) (*session.Session, error)
}

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Open(ctx context.Context, actor account.Actor, ownerID string) (*novel.Document, error)
	SetTitle(ctx context.Context, actor account.Actor, title string) (*novel.Document, error)
	AddChapter(ctx context.Context, actor account.Actor, title string) (*novel.Document, *novel.Chapter, error)
	UpdateChapterContent(ctx context.Context, actor account.Actor, chapterID, content string) (*novel.Document, error)
	RenameChapter(ctx context.Context, actor account.Actor, chapterID, title string) (*novel.Document, error)
	DeleteChapter(ctx context.Context, actor account.Actor, chapterID string) (*novel.Document, error)
	Save(ctx context.Context, actor account.Actor) (*novel.Document, error)
	Export(ctx context.Context, actor account.Actor, ownerID string) (novel.Export, error)
	Preview(ctx context.Context, actor account.Actor, ownerID, chapterID string) (novel.Preview, error)
	Stats(ctx context.Context, actor account.Actor, ownerID string) (novel.Stats, error)
}

// AccountService defines account administration needed by MCP.
type AccountService interface {
	List(ctx context.Context) ([]account.User, error)
	Delete(ctx context.Context, actor account.Actor, id string) (bool, error)
}

// SettingsService defines feature-flag operations needed by MCP.
type SettingsService interface {
	Get(ctx context.Context) settings.AdminSettings
	SetAllowRegistration(ctx context.Context, actor account.Actor, allow bool) (settings.AdminSettings, error)
}

// Subscriber delivers change events.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan notify.Event, string)
}

// Recorder counts dispatched calls.
type Recorder interface {
	RecordToolCall(method string, success bool)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Sessions SessionService
	Projects ProjectService
	Accounts AccountService
	Settings SettingsService
	Events   Subscriber
	// Exports receives a copy of every export. Optional.
	Exports  novel.Downloader
	Recorder Recorder
	Logger   *slog.Logger
}

// Handler dispatches MCP commands.
type Handler struct {
	sessions SessionService
	projects ProjectService
	accounts AccountService
	settings SettingsService
	events   Subscriber
	exports  novel.Downloader
	recorder Recorder
	logger   *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(svcs Services) *Handler {
	logger := svcs.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions: svcs.Sessions,
		projects: svcs.Projects,
		accounts: svcs.Accounts,
		settings: svcs.Settings,
		events:   svcs.Events,
		exports:  svcs.Exports,
		recorder: svcs.Recorder,
		logger:   logger,
	}
}

// Handle dispatches a method call. sessionID comes from the transport and
// takes precedence over a session_id argument.
func (h *Handler) Handle(ctx context.Context, sessionID, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, sessionID, method, params)
	if h.recorder != nil {
		h.recorder.RecordToolCall(method, err == nil)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, sessionID, method string, params json.RawMessage) (any, error) {
	if method == "start_session" {
		sess, err := h.sessions.Start(ctx)
		if err != nil {
			return nil, err
		}
		return toSessionResponse(sess), nil
	}

	var base sessionParams
	if err := decodeParams(params, &base); err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = base.SessionID
	}
	if sessionID == "" {
		if _, known := toolNames[method]; !known {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
		}
		return nil, errSessionRequired
	}

	switch method {
	case "continue_as_guest":
		return sessionResult(h.sessions.ContinueAsGuest(ctx, sessionID))
	case "register":
		var req CredentialsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResult(h.sessions.Register(ctx, sessionID, req.Username, req.Password))
	case "setup_admin":
		var req CredentialsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResult(h.sessions.SetupAdmin(ctx, sessionID, req.Username, req.Password))
	case "login":
		var req CredentialsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResult(h.sessions.Login(ctx, sessionID, req.Username, req.Password))
	case "logout":
		return sessionResult(h.sessions.Logout(ctx, sessionID))
	case "whoami":
		sess, err := h.sessions.Current(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return WhoAmIResponse{
			Session:  toSessionResponse(sess),
			Settings: toSettingsResponse(h.settings.Get(ctx)),
		}, nil
	}

	actor, err := h.actor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch method {
	case "open_project":
		var req OpenProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return projectResult(h.projects.Open(ctx, actor, req.OwnerID))
	case "set_project_title":
		var req SetProjectTitleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return projectResult(h.projects.SetTitle(ctx, actor, req.Title))
	case "add_chapter":
		var req AddChapterParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		doc, ch, err := h.projects.AddChapter(ctx, actor, req.Title)
		if err != nil {
			return nil, err
		}
		return AddChapterResponse{Project: toProjectResponse(doc), Chapter: toChapterResponse(*ch)}, nil
	case "update_chapter":
		var req UpdateChapterParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return projectResult(h.projects.UpdateChapterContent(ctx, actor, req.ChapterID, req.Content))
	case "rename_chapter":
		var req RenameChapterParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return projectResult(h.projects.RenameChapter(ctx, actor, req.ChapterID, req.Title))
	case "delete_chapter":
		var req DeleteChapterParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return projectResult(h.projects.DeleteChapter(ctx, actor, req.ChapterID))
	case "save_project":
		return projectResult(h.projects.Save(ctx, actor))
	case "export_project":
		var req OpenProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		exp, err := h.projects.Export(ctx, actor, req.OwnerID)
		if err != nil {
			return nil, err
		}
		novel.TriggerDownload(ctx, h.exports, exp, h.logger)
		return ExportResponse{Filename: exp.Filename, MIMEType: exp.MIMEType, Text: exp.Text}, nil
	case "preview_chapter":
		var req PreviewChapterParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Preview(ctx, actor, req.OwnerID, req.ChapterID)
	case "project_stats":
		var req OpenProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Stats(ctx, actor, req.OwnerID)
	case "get_settings":
		return toSettingsResponse(h.settings.Get(ctx)), nil
	case "set_allow_registration":
		var req SetAllowRegistrationParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.Allow == nil {
			return nil, &APIError{Code: errInvalidParams.Code, Message: "allow is required", RecoveryHint: errInvalidParams.RecoveryHint}
		}
		updated, err := h.settings.SetAllowRegistration(ctx, actor, *req.Allow)
		if err != nil {
			return nil, err
		}
		return toSettingsResponse(updated), nil
	case "list_users":
		if !actor.IsAdmin {
			return nil, account.ErrForbidden
		}
		users, err := h.accounts.List(ctx)
		if err != nil {
			return nil, err
		}
		resp := make([]UserResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, toUserResponse(u))
		}
		return resp, nil
	case "delete_user":
		var req DeleteUserParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		deleted, err := h.accounts.Delete(ctx, actor, req.UserID)
		if err != nil {
			return nil, err
		}
		return DeleteUserResponse{Deleted: deleted}, nil
	case "wait_for_change":
		var req WaitForChangeParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.waitForChange(ctx, actor, req)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// waitForChange blocks until an event arrives on the requested topic or
// the timeout passes.
func (h *Handler) waitForChange(ctx context.Context, actor account.Actor, req WaitForChangeParams) (WaitForChangeResponse, error) {
	var topic string
	switch req.Topic {
	case "", "project":
		if !actor.CanBrowse() {
			return WaitForChangeResponse{}, novel.ErrAuthRequired
		}
		owner := req.OwnerID
		if owner == "" {
			owner = actor.UserID
		}
		if owner == "" {
			return WaitForChangeResponse{}, &APIError{Code: errInvalidParams.Code, Message: "owner_id is required for guests", RecoveryHint: errInvalidParams.RecoveryHint}
		}
		topic = notify.ProjectTopic(owner)
	case notify.TopicSettings, notify.TopicUsers:
		topic = req.Topic
	default:
		return WaitForChangeResponse{}, &APIError{Code: errInvalidParams.Code, Message: "topic must be project, settings or users", RecoveryHint: errInvalidParams.RecoveryHint}
	}

	timeout := waitTimeout(req.TimeoutSeconds)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events, _ := h.events.Subscribe(waitCtx, topic)
	select {
	case ev, ok := <-events:
		if !ok {
			return WaitForChangeResponse{}, nil
		}
		return WaitForChangeResponse{Changed: true, Event: &ev}, nil
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return WaitForChangeResponse{}, err
		}
		return WaitForChangeResponse{}, nil
	}
}

func (h *Handler) actor(ctx context.Context, sessionID string) (account.Actor, error) {
	sess, err := h.sessions.Current(ctx, sessionID)
	if err != nil {
		return account.Actor{}, err
	}
	return sess.Actor(), nil
}

func sessionResult(sess *session.Session, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return toSessionResponse(sess), nil
}

func projectResult(doc *novel.Document, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return toProjectResponse(doc), nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &APIError{Code: errInvalidParams.Code, Message: err.Error(), RecoveryHint: errInvalidParams.RecoveryHint}
	}
	return nil
}

// waitTimeout converts a requested wait in seconds, capped before the
// multiplication so large values cannot overflow.
func waitTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultWaitTimeout
	}
	if maxSeconds := int(maxWaitTimeout / time.Second); seconds > maxSeconds {
		seconds = maxSeconds
	}
	return time.Duration(seconds) * time.Second
}
