package mcp

import (
	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/rpggio/inkwell/internal/domain/session"
	"github.com/rpggio/inkwell/internal/domain/settings"
	"github.com/rpggio/inkwell/internal/notify"
)

// sessionParams is embedded by every tool's params. The session id may
// arrive as an argument when the transport cannot carry it.
type sessionParams struct {
	SessionID string `json:"session_id,omitempty"`
}

type CredentialsParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OpenProjectParams struct {
	OwnerID string `json:"owner_id,omitempty"`
}

type SetProjectTitleParams struct {
	Title string `json:"title"`
}

type AddChapterParams struct {
	Title string `json:"title"`
}

type UpdateChapterParams struct {
	ChapterID string `json:"chapter_id"`
	Content   string `json:"content"`
}

type RenameChapterParams struct {
	ChapterID string `json:"chapter_id"`
	Title     string `json:"title"`
}

type DeleteChapterParams struct {
	ChapterID string `json:"chapter_id"`
}

type PreviewChapterParams struct {
	OwnerID   string `json:"owner_id,omitempty"`
	ChapterID string `json:"chapter_id"`
}

type SetAllowRegistrationParams struct {
	Allow *bool `json:"allow"`
}

type DeleteUserParams struct {
	UserID string `json:"user_id"`
}

type WaitForChangeParams struct {
	Topic          string `json:"topic"`
	OwnerID        string `json:"owner_id,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type SessionResponse struct {
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
	User      *UserResponse `json:"user,omitempty"`
	CanEdit   bool          `json:"can_edit"`
	CanBrowse bool          `json:"can_browse"`
}

type SettingsResponse struct {
	AllowRegistration bool   `json:"allow_registration"`
	DashboardURL      string `json:"dashboard_url"`
	SetupCompleted    bool   `json:"setup_completed"`
}

type WhoAmIResponse struct {
	Session  SessionResponse  `json:"session"`
	Settings SettingsResponse `json:"settings"`
}

type ChapterResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Characters int    `json:"characters"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

type ProjectResponse struct {
	OwnerID   string            `json:"owner_id"`
	ReadOnly  bool              `json:"read_only"`
	Title     string            `json:"title"`
	LastSaved int64             `json:"last_saved"`
	Chapters  []ChapterResponse `json:"chapters"`
}

type AddChapterResponse struct {
	Project ProjectResponse `json:"project"`
	Chapter ChapterResponse `json:"chapter"`
}

type ExportResponse struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Text     string `json:"text"`
}

type DeleteUserResponse struct {
	Deleted bool `json:"deleted"`
}

type WaitForChangeResponse struct {
	Changed bool          `json:"changed"`
	Event   *notify.Event `json:"event,omitempty"`
}

func toUserResponse(u account.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt}
}

func toSessionResponse(s *session.Session) SessionResponse {
	actor := s.Actor()
	resp := SessionResponse{
		SessionID: s.ID,
		State:     s.State,
		CanEdit:   actor.Authenticated(),
		CanBrowse: actor.CanBrowse(),
	}
	if s.User != nil {
		u := toUserResponse(*s.User)
		resp.User = &u
	}
	return resp
}

func toSettingsResponse(s settings.AdminSettings) SettingsResponse {
	return SettingsResponse{
		AllowRegistration: s.AllowRegistration,
		DashboardURL:      s.DashboardURL,
		SetupCompleted:    s.SetupCompleted,
	}
}

func toChapterResponse(ch novel.Chapter) ChapterResponse {
	return ChapterResponse{
		ID:         ch.ID,
		Title:      ch.Title,
		Content:    ch.Content,
		Characters: novel.CharacterCount(ch.Content),
		CreatedAt:  ch.CreatedAt,
		UpdatedAt:  ch.UpdatedAt,
	}
}

func toProjectResponse(doc *novel.Document) ProjectResponse {
	chapters := make([]ChapterResponse, 0, len(doc.Project.Chapters))
	for _, ch := range doc.Project.Chapters {
		chapters = append(chapters, toChapterResponse(ch))
	}
	return ProjectResponse{
		OwnerID:   doc.OwnerID,
		ReadOnly:  doc.ReadOnly,
		Title:     doc.Project.DisplayTitle(),
		LastSaved: doc.Project.LastSaved,
		Chapters:  chapters,
	}
}
