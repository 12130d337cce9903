package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/rpggio/inkwell/internal/domain/session"
	"github.com/rpggio/inkwell/internal/domain/settings"
	"github.com/rpggio/inkwell/internal/notify"
	"github.com/rpggio/inkwell/internal/render"
	"github.com/rpggio/inkwell/internal/repository/mocks"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type callRecorder struct {
	mu    sync.Mutex
	calls map[string]int
	fails map[string]int
}

func (r *callRecorder) RecordToolCall(method string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.calls[method]++
	} else {
		r.fails[method]++
	}
}

type downloadStub struct {
	filename string
}

func (d *downloadStub) Download(_ context.Context, _, filename, _ string) error {
	d.filename = filename
	return nil
}

type harness struct {
	handler   *Handler
	events    *notify.Broadcaster
	recorder  *callRecorder
	downloads *downloadStub
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := mocks.NewMemoryKVStore()
	events := notify.NewBroadcaster(nil)
	t.Cleanup(events.Close)

	settingsSvc := settings.NewService(store, events, nil)
	accounts := account.NewService(store, settingsSvc, account.NewBcryptHasher(bcrypt.MinCost), events, nil)
	sessions := session.NewService(store, accounts, nil, nil)
	projectRepo := novel.NewKVRepository(store, nil)
	accounts.SetPurger(projectRepo)
	projects := novel.NewService(nil, projectRepo, render.New(), events, nil, nil)

	rec := &callRecorder{calls: map[string]int{}, fails: map[string]int{}}
	downloads := &downloadStub{}
	h := NewHandler(Services{
		Sessions: sessions,
		Projects: projects,
		Accounts: accounts,
		Settings: settingsSvc,
		Events:   events,
		Exports:  downloads,
		Recorder: rec,
	})
	return harness{handler: h, events: events, recorder: rec, downloads: downloads}
}

func (h harness) call(t *testing.T, sessionID, method string, params any) (any, error) {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = data
	}
	return h.handler.Handle(context.Background(), sessionID, method, raw)
}

func (h harness) mustCall(t *testing.T, sessionID, method string, params any) any {
	t.Helper()
	result, err := h.call(t, sessionID, method, params)
	require.NoError(t, err, method)
	return result
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, code, apiErr.Code)
}

func TestHandler_StartSession(t *testing.T) {
	h := newHarness(t)

	resp := h.mustCall(t, "", "start_session", nil).(SessionResponse)
	require.NotEmpty(t, resp.SessionID)
	require.Equal(t, session.StateAnonymous, resp.State)
	require.False(t, resp.CanBrowse)
}

func TestHandler_SessionRequired(t *testing.T) {
	h := newHarness(t)

	_, err := h.call(t, "", "open_project", nil)
	requireCode(t, err, "SESSION_REQUIRED")

	// A session_id argument works when the transport has none.
	_, err = h.call(t, "", "continue_as_guest", map[string]string{"session_id": "s1"})
	require.NoError(t, err)
}

func TestHandler_UnknownMethod(t *testing.T) {
	h := newHarness(t)
	_, err := h.call(t, "s1", "no_such_tool", nil)
	require.ErrorContains(t, err, "unknown method")

	_, err = h.call(t, "", "no_such_tool", nil)
	require.ErrorContains(t, err, "unknown method")
}

func TestHandler_AnonymousCannotOpen(t *testing.T) {
	h := newHarness(t)
	_, err := h.call(t, "s1", "open_project", nil)
	requireCode(t, err, "AUTH_REQUIRED")
	require.Equal(t, 1, h.recorder.fails["open_project"])
}

func TestHandler_EditingFlow(t *testing.T) {
	h := newHarness(t)

	reg := h.mustCall(t, "s1", "register", CredentialsParams{Username: "alice", Password: "secret1"}).(SessionResponse)
	require.Equal(t, session.StateAuthenticated, reg.State)
	require.True(t, reg.CanEdit)
	ownerID := reg.User.ID

	proj := h.mustCall(t, "s1", "open_project", nil).(ProjectResponse)
	require.Equal(t, ownerID, proj.OwnerID)
	require.Equal(t, novel.DefaultTitle, proj.Title)
	require.Empty(t, proj.Chapters)

	proj = h.mustCall(t, "s1", "set_project_title", SetProjectTitleParams{Title: "Demo"}).(ProjectResponse)
	require.Equal(t, "Demo", proj.Title)

	added := h.mustCall(t, "s1", "add_chapter", AddChapterParams{Title: "Ch1"}).(AddChapterResponse)
	chID := added.Chapter.ID
	require.Len(t, added.Project.Chapters, 1)

	proj = h.mustCall(t, "s1", "update_chapter", UpdateChapterParams{ChapterID: chID, Content: "Hello **world**"}).(ProjectResponse)
	require.Equal(t, "Hello **world**", proj.Chapters[0].Content)
	require.Equal(t, 15, proj.Chapters[0].Characters)

	proj = h.mustCall(t, "s1", "rename_chapter", RenameChapterParams{ChapterID: chID, Title: "Intro"}).(ProjectResponse)
	require.Equal(t, "Intro", proj.Chapters[0].Title)

	preview := h.mustCall(t, "s1", "preview_chapter", PreviewChapterParams{ChapterID: chID}).(novel.Preview)
	require.Contains(t, preview.HTML, "<strong>world</strong>")

	stats := h.mustCall(t, "s1", "project_stats", nil).(novel.Stats)
	require.Equal(t, 1, stats.Chapters)

	exp := h.mustCall(t, "s1", "export_project", nil).(ExportResponse)
	require.Equal(t, "Demo.md", exp.Filename)
	require.Equal(t, "text/markdown", exp.MIMEType)
	require.Equal(t, "# Demo\n\n## Intro\n\nHello **world**\n\n", exp.Text)
	require.Equal(t, "Demo.md", h.downloads.filename)

	h.mustCall(t, "s1", "save_project", nil)

	proj = h.mustCall(t, "s1", "delete_chapter", DeleteChapterParams{ChapterID: chID}).(ProjectResponse)
	require.Empty(t, proj.Chapters)

	// Deleting again is fine.
	h.mustCall(t, "s1", "delete_chapter", DeleteChapterParams{ChapterID: chID})

	_, err := h.call(t, "s1", "update_chapter", UpdateChapterParams{ChapterID: chID, Content: "x"})
	requireCode(t, err, "CHAPTER_NOT_FOUND")

	_, err = h.call(t, "s1", "add_chapter", AddChapterParams{Title: "  "})
	requireCode(t, err, "INVALID_INPUT")
}

func TestHandler_GuestBrowsesReadOnly(t *testing.T) {
	h := newHarness(t)

	reg := h.mustCall(t, "owner", "register", CredentialsParams{Username: "alice", Password: "secret1"}).(SessionResponse)
	h.mustCall(t, "owner", "add_chapter", AddChapterParams{Title: "Ch1"})

	guest := h.mustCall(t, "g", "continue_as_guest", nil).(SessionResponse)
	require.Equal(t, session.StateGuest, guest.State)
	require.True(t, guest.CanBrowse)
	require.False(t, guest.CanEdit)

	proj := h.mustCall(t, "g", "open_project", OpenProjectParams{OwnerID: reg.User.ID}).(ProjectResponse)
	require.True(t, proj.ReadOnly)
	require.Len(t, proj.Chapters, 1)

	_, err := h.call(t, "g", "add_chapter", AddChapterParams{Title: "Mine"})
	requireCode(t, err, "READ_ONLY")

	_, err = h.call(t, "g", "open_project", OpenProjectParams{OwnerID: "nobody"})
	requireCode(t, err, "PROJECT_NOT_FOUND")
}

func TestHandler_LoginAndLogout(t *testing.T) {
	h := newHarness(t)

	h.mustCall(t, "s1", "register", CredentialsParams{Username: "alice", Password: "secret1"})
	h.mustCall(t, "s1", "logout", nil)

	who := h.mustCall(t, "s1", "whoami", nil).(WhoAmIResponse)
	require.Equal(t, session.StateAnonymous, who.Session.State)
	require.True(t, who.Settings.AllowRegistration)

	_, err := h.call(t, "s1", "login", CredentialsParams{Username: "alice", Password: "wrong-pass"})
	requireCode(t, err, "INVALID_CREDENTIALS")

	resp := h.mustCall(t, "s1", "login", CredentialsParams{Username: "alice", Password: "secret1"}).(SessionResponse)
	require.Equal(t, "alice", resp.User.Username)

	_, err = h.call(t, "s1", "register", CredentialsParams{Username: "alice", Password: "secret1"})
	requireCode(t, err, "USERNAME_TAKEN")
}

func TestHandler_AdminFlow(t *testing.T) {
	h := newHarness(t)

	admin := h.mustCall(t, "a", "setup_admin", CredentialsParams{Username: "root", Password: "rootpass"}).(SessionResponse)
	require.True(t, admin.User.IsAdmin)

	_, err := h.call(t, "b", "setup_admin", CredentialsParams{Username: "other", Password: "rootpass"})
	requireCode(t, err, "SETUP_COMPLETED")

	who := h.mustCall(t, "a", "whoami", nil).(WhoAmIResponse)
	require.True(t, who.Settings.SetupCompleted)

	user := h.mustCall(t, "u", "register", CredentialsParams{Username: "alice", Password: "secret1"}).(SessionResponse)
	h.mustCall(t, "u", "add_chapter", AddChapterParams{Title: "Ch1"})
	h.mustCall(t, "a", "open_project", OpenProjectParams{OwnerID: user.User.ID})

	_, err = h.call(t, "u", "list_users", nil)
	requireCode(t, err, "FORBIDDEN")
	_, err = h.call(t, "u", "set_allow_registration", map[string]bool{"allow": false})
	requireCode(t, err, "FORBIDDEN")

	_, err = h.call(t, "a", "set_allow_registration", nil)
	requireCode(t, err, "INVALID_PARAMS")

	updated := h.mustCall(t, "a", "set_allow_registration", map[string]bool{"allow": false}).(SettingsResponse)
	require.False(t, updated.AllowRegistration)

	_, err = h.call(t, "x", "register", CredentialsParams{Username: "bob", Password: "secret1"})
	requireCode(t, err, "REGISTRATION_CLOSED")

	users := h.mustCall(t, "a", "list_users", nil).([]UserResponse)
	require.Len(t, users, 2)

	deleted := h.mustCall(t, "a", "delete_user", DeleteUserParams{UserID: user.User.ID}).(DeleteUserResponse)
	require.True(t, deleted.Deleted)

	// The deleted user's project goes with them.
	_, err = h.call(t, "a", "open_project", OpenProjectParams{OwnerID: user.User.ID})
	requireCode(t, err, "PROJECT_NOT_FOUND")

	// The deleted user's session falls back to anonymous.
	who = h.mustCall(t, "u", "whoami", nil).(WhoAmIResponse)
	require.Equal(t, session.StateAnonymous, who.Session.State)

	_, err = h.call(t, "a", "delete_user", DeleteUserParams{UserID: admin.User.ID})
	requireCode(t, err, "LAST_ADMIN")
}

func TestHandler_WaitForChange(t *testing.T) {
	h := newHarness(t)
	h.mustCall(t, "s1", "register", CredentialsParams{Username: "alice", Password: "secret1"})

	type waitResult struct {
		resp any
		err  error
	}
	done := make(chan waitResult, 1)
	params, err := json.Marshal(WaitForChangeParams{Topic: "project", TimeoutSeconds: 5})
	require.NoError(t, err)
	go func() {
		resp, err := h.handler.Handle(context.Background(), "s1", "wait_for_change", params)
		done <- waitResult{resp: resp, err: err}
	}()

	reg := h.mustCall(t, "s1", "whoami", nil).(WhoAmIResponse)
	topic := notify.ProjectTopic(reg.Session.User.ID)
	require.Eventually(t, func() bool { return h.events.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond)

	h.mustCall(t, "s1", "add_chapter", AddChapterParams{Title: "Ch1"})

	select {
	case res := <-done:
		require.NoError(t, res.err)
		resp := res.resp.(WaitForChangeResponse)
		require.True(t, resp.Changed)
		require.Equal(t, topic, resp.Event.Topic)
	case <-time.After(3 * time.Second):
		t.Fatal("wait_for_change did not return")
	}
}

func TestHandler_WaitForChangeTimeout(t *testing.T) {
	h := newHarness(t)
	h.mustCall(t, "s1", "continue_as_guest", nil)

	resp := h.mustCall(t, "s1", "wait_for_change", WaitForChangeParams{Topic: "settings", TimeoutSeconds: 1}).(WaitForChangeResponse)
	require.False(t, resp.Changed)

	_, err := h.call(t, "s1", "wait_for_change", WaitForChangeParams{Topic: "project"})
	requireCode(t, err, "INVALID_PARAMS")

	_, err = h.call(t, "s1", "wait_for_change", WaitForChangeParams{Topic: "weather"})
	requireCode(t, err, "INVALID_PARAMS")
}

func TestWaitTimeout(t *testing.T) {
	require.Equal(t, defaultWaitTimeout, waitTimeout(0))
	require.Equal(t, defaultWaitTimeout, waitTimeout(-3))
	require.Equal(t, 2*time.Second, waitTimeout(2))
	require.Equal(t, maxWaitTimeout, waitTimeout(61))
	require.Equal(t, maxWaitTimeout, waitTimeout(1<<62))
}

func TestHandler_InvalidParams(t *testing.T) {
	h := newHarness(t)
	_, err := h.handler.Handle(context.Background(), "s1", "login", json.RawMessage(`{"username": 7}`))
	requireCode(t, err, "INVALID_PARAMS")
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("boom")))
	require.Equal(t, "READ_ONLY", MapError(novel.ErrReadOnly).Code)
	require.Equal(t, "FORBIDDEN", MapError(settings.ErrForbidden).Code)
	require.Equal(t, "INVALID_TRANSITION", MapError(session.ErrInvalidTransition).Code)
}

func TestToolCatalog(t *testing.T) {
	names := map[string]bool{}
	for _, tool := range buildToolCatalog() {
		require.False(t, names[tool.Name], "duplicate tool %s", tool.Name)
		names[tool.Name] = true
		require.Equal(t, "object", tool.InputSchema["type"])
		require.NotEmpty(t, tool.Description)
	}
	for _, name := range []string{
		"start_session", "continue_as_guest", "register", "setup_admin", "login", "logout", "whoami",
		"open_project", "set_project_title", "add_chapter", "update_chapter", "rename_chapter",
		"delete_chapter", "save_project", "export_project", "preview_chapter", "project_stats",
		"get_settings", "set_allow_registration", "list_users", "delete_user", "wait_for_change",
	} {
		require.True(t, names[name], "missing tool %s", name)
	}
}
