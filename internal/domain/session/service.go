package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/repository"
)

const keyPrefix = "session:"

// Key returns the storage key of a session.
func Key(id string) string {
	return keyPrefix + id
}

// Service drives the anonymous -> guest -> authenticated lifecycle.
// Sessions never expire.
type Service struct {
	store    KVStore
	accounts Accounts
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new session service.
func NewService(store KVStore, accounts Accounts, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		accounts: accounts,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Start creates a new anonymous session.
func (s *Service) Start(ctx context.Context) (*Session, error) {
	now := s.now().UTC()
	rec := stored{
		ID:        uuid.NewString(),
		State:     StateAnonymous,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Debug("session started", "session_id", rec.ID)
	return &Session{ID: rec.ID, State: rec.State, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}, nil
}

// Current returns the session. Unknown ids read as anonymous, and so do
// sessions whose user has been deleted.
func (s *Service) Current(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, rec)
}

// ContinueAsGuest moves an anonymous session into read-only guest mode.
func (s *Service) ContinueAsGuest(ctx context.Context, id string) (*Session, error) {
	current, err := s.Current(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.State {
	case StateGuest:
		return current, nil
	case StateAuthenticated:
		return nil, fmt.Errorf("%w: already signed in", ErrInvalidTransition)
	}

	rec := s.transition(current, StateGuest, "")
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return s.project(ctx, rec)
}

// Login authenticates and signs the session in. The guest flag is cleared.
// On bad credentials the session is left as it was.
func (s *Service) Login(ctx context.Context, id, username, password string) (*Session, error) {
	current, err := s.Current(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.Authenticate(ctx, username, password)
	if s.recorder != nil {
		s.recorder.RecordLogin(err == nil)
	}
	if err != nil {
		s.logger.Info("login failed", "session_id", id, "username", username)
		return nil, err
	}

	return s.signIn(ctx, current, user)
}

// Register creates an account and signs the session in with it.
func (s *Service) Register(ctx context.Context, id, username, password string) (*Session, error) {
	current, err := s.Current(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.Register(ctx, username, password)
	if s.recorder != nil {
		s.recorder.RecordRegistration(err == nil)
	}
	if err != nil {
		return nil, err
	}

	return s.signIn(ctx, current, user)
}

// SetupAdmin creates the first admin account and signs the session in.
func (s *Service) SetupAdmin(ctx context.Context, id, username, password string) (*Session, error) {
	current, err := s.Current(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.SetupAdmin(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, current, user)
}

// Logout returns the session to anonymous.
func (s *Service) Logout(ctx context.Context, id string) (*Session, error) {
	current, err := s.Current(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.State == StateAnonymous {
		return current, nil
	}

	rec := s.transition(current, StateAnonymous, "")
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("logged out", "session_id", id)
	return s.project(ctx, rec)
}

func (s *Service) signIn(ctx context.Context, current *Session, user *account.User) (*Session, error) {
	rec := s.transition(current, StateAuthenticated, user.ID)
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("signed in", "session_id", rec.ID, "user_id", user.ID)
	return &Session{
		ID:        rec.ID,
		State:     rec.State,
		User:      user,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *Service) transition(current *Session, state State, userID string) stored {
	return stored{
		ID:        current.ID,
		State:     state,
		UserID:    userID,
		CreatedAt: current.CreatedAt,
		UpdatedAt: s.now().UTC(),
	}
}

// load returns the stored session, or a fresh anonymous one when the id is
// unknown or the stored value cannot be parsed.
func (s *Service) load(ctx context.Context, id string) (stored, error) {
	data, err := s.store.Get(ctx, Key(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			now := s.now().UTC()
			return stored{ID: id, State: StateAnonymous, CreatedAt: now, UpdatedAt: now}, nil
		}
		return stored{}, fmt.Errorf("loading session: %w", err)
	}

	var rec stored
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("discarding unparsable session", "session_id", id, "error", err)
		now := s.now().UTC()
		return stored{ID: id, State: StateAnonymous, CreatedAt: now, UpdatedAt: now}, nil
	}
	rec.ID = id
	return rec, nil
}

func (s *Service) project(ctx context.Context, rec stored) (*Session, error) {
	sess := &Session{
		ID:        rec.ID,
		State:     rec.State,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}

	switch rec.State {
	case StateAuthenticated:
		user, err := s.accounts.Get(ctx, rec.UserID)
		if err != nil {
			if errors.Is(err, account.ErrUserNotFound) {
				sess.State = StateAnonymous
				return sess, nil
			}
			return nil, err
		}
		sess.User = user
	case StateGuest:
	default:
		sess.State = StateAnonymous
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, rec stored) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.store.Put(ctx, Key(rec.ID), data); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
