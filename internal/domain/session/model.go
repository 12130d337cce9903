package session

import (
	"time"

	"github.com/rpggio/inkwell/internal/domain/account"
)

// State is where a session sits in the sign-in lifecycle.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateGuest         State = "guest"
	StateAuthenticated State = "authenticated"
)

// Session is the caller's sign-in state. User is set only when
// authenticated.
type Session struct {
	ID        string        `json:"id"`
	State     State         `json:"state"`
	User      *account.User `json:"user,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Actor projects the session into the identity used for access checks.
func (s *Session) Actor() account.Actor {
	if s == nil {
		return account.Actor{}
	}
	switch s.State {
	case StateAuthenticated:
		if s.User == nil {
			return account.Actor{}
		}
		return account.Actor{UserID: s.User.ID, IsAdmin: s.User.IsAdmin}
	case StateGuest:
		return account.Actor{Guest: true}
	default:
		return account.Actor{}
	}
}

// stored is the persisted form. Only the user id is kept so that
// renames, role changes and deletions show up on the next read.
type stored struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
