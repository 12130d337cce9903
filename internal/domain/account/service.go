package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rpggio/inkwell/internal/notify"
	"github.com/rpggio/inkwell/internal/repository"
)

// UsersKey stores the account list as one JSON array.
const UsersKey = "users"

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

// Service manages local accounts.
type Service struct {
	store  KVStore
	policy RegistrationPolicy
	hasher PasswordHasher
	events Publisher
	purger DataPurger
	logger *slog.Logger
	now    func() time.Time

	// mu serializes read-modify-write cycles on the users list.
	mu sync.Mutex
}

// NewService creates a new account service.
func NewService(store KVStore, policy RegistrationPolicy, hasher PasswordHasher, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		policy: policy,
		hasher: hasher,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// SetPurger registers where a deleted user's data is removed. Call it
// before the service is shared.
func (s *Service) SetPurger(p DataPurger) {
	s.purger = p
}

// Register creates a regular account while registration is allowed.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username, err := validateCredentials(username, password)
	if err != nil {
		return nil, err
	}
	if s.policy != nil && !s.policy.RegistrationAllowed(ctx) {
		return nil, ErrRegistrationClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.appendUser(ctx, users, username, password, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// SetupAdmin creates the first admin account. It fails once any admin exists.
func (s *Service) SetupAdmin(ctx context.Context, username, password string) (*User, error) {
	username, err := validateCredentials(username, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	if countAdmins(users) > 0 {
		return nil, ErrSetupCompleted
	}

	user, err := s.appendUser(ctx, users, username, password, true)
	if err != nil {
		return nil, err
	}

	if s.policy != nil {
		if err := s.policy.MarkSetupCompleted(ctx); err != nil {
			s.logger.Warn("failed to mark setup completed", "error", err)
		}
	}
	s.logger.Info("admin account created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// NeedsSetup reports whether no admin account exists yet.
func (s *Service) NeedsSetup(ctx context.Context) (bool, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return false, err
	}
	return countAdmins(users) == 0, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	idx := findByUsername(users, strings.TrimSpace(username))
	if idx < 0 {
		s.hasher.Verify(password, dummyHash)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, users[idx].PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	user := users[idx].Public()
	return &user, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			user := u.Public()
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

// List returns every account without password material.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Delete removes an account. Only admins may delete, the last admin cannot
// be deleted, and deleting an unknown id reports false.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) (bool, error) {
	if !actor.IsAdmin {
		return false, ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return false, err
	}

	idx := -1
	for i, u := range users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	if users[idx].IsAdmin && countAdmins(users) == 1 {
		return false, ErrLastAdmin
	}

	remaining := make([]StoredUser, 0, len(users)-1)
	remaining = append(remaining, users[:idx]...)
	remaining = append(remaining, users[idx+1:]...)

	if err := s.saveUsers(ctx, remaining); err != nil {
		return false, err
	}
	s.publish("user_deleted")
	s.logger.Info("user deleted", "user_id", id, "by", actor.UserID)

	if s.purger != nil {
		if err := s.purger.PurgeUser(ctx, id); err != nil {
			s.logger.Warn("failed to purge user data", "user_id", id, "error", err)
		}
	}
	return true, nil
}

func (s *Service) appendUser(ctx context.Context, users []StoredUser, username, password string, isAdmin bool) (*User, error) {
	if findByUsername(users, username) >= 0 {
		return nil, ErrDuplicateUsername
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	stored := StoredUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    s.now().UnixMilli(),
	}
	next := make([]StoredUser, 0, len(users)+1)
	next = append(next, users...)
	next = append(next, stored)

	if err := s.saveUsers(ctx, next); err != nil {
		return nil, err
	}
	s.publish("user_created")

	user := stored.Public()
	return &user, nil
}

// loadUsers treats a missing or unparsable list as empty.
func (s *Service) loadUsers(ctx context.Context) ([]StoredUser, error) {
	data, err := s.store.Get(ctx, UsersKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading users: %w", err)
	}

	var users []StoredUser
	if err := json.Unmarshal(data, &users); err != nil {
		s.logger.Warn("discarding unparsable user list", "error", err)
		return nil, nil
	}
	return users, nil
}

func (s *Service) saveUsers(ctx context.Context, users []StoredUser) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encoding users: %w", err)
	}
	if err := s.store.Put(ctx, UsersKey, data); err != nil {
		return fmt.Errorf("saving users: %w", err)
	}
	return nil
}

func (s *Service) publish(kind string) {
	if s.events != nil {
		s.events.Publish(notify.TopicUsers, kind, UsersKey)
	}
}

func validateCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return "", fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	return username, nil
}

func findByUsername(users []StoredUser, username string) int {
	for i, u := range users {
		if strings.EqualFold(u.Username, username) {
			return i
		}
	}
	return -1
}

func countAdmins(users []StoredUser) int {
	n := 0
	for _, u := range users {
		if u.IsAdmin {
			n++
		}
	}
	return n
}
