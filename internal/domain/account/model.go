package account

// User is the caller-facing projection of an account. It never carries
// password material.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// StoredUser is the persisted account record.
type StoredUser struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	IsAdmin      bool   `json:"isAdmin"`
	CreatedAt    int64  `json:"createdAt"`
}

// Public strips the password hash.
func (u StoredUser) Public() User {
	return User{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

// Actor is who is performing an operation.
type Actor struct {
	UserID  string
	IsAdmin bool
	Guest   bool
}

// Authenticated reports whether the actor is signed in to an account.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// CanBrowse reports whether the actor may read projects.
func (a Actor) CanBrowse() bool {
	return a.Authenticated() || a.Guest
}

// Owns reports whether the actor is the signed-in owner of userID's data.
func (a Actor) Owns(userID string) bool {
	return a.Authenticated() && a.UserID == userID
}
