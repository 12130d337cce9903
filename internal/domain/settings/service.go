package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/notify"
	"github.com/rpggio/inkwell/internal/repository"
)

// Service reads and writes admin settings. Reads never fail: anything
// missing or unreadable falls back to Defaults.
type Service struct {
	store  KVStore
	events Publisher
	logger *slog.Logger

	mu sync.Mutex
}

// NewService creates a new settings service.
func NewService(store KVStore, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, events: events, logger: logger}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) AdminSettings {
	data, err := s.store.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("settings read failed, using defaults", "error", err)
		}
		return Defaults()
	}

	settings := Defaults()
	if err := json.Unmarshal(data, &settings); err != nil {
		s.logger.Warn("settings unparsable, using defaults", "error", err)
		return Defaults()
	}
	if settings.DashboardURL == "" {
		settings.DashboardURL = DefaultDashboardURL
	}
	return settings
}

// RegistrationAllowed reports whether new accounts may be created.
func (s *Service) RegistrationAllowed(ctx context.Context) bool {
	return s.Get(ctx).AllowRegistration
}

// SetupCompleted reports whether the first admin was created.
func (s *Service) SetupCompleted(ctx context.Context) bool {
	return s.Get(ctx).SetupCompleted
}

// SetAllowRegistration flips the registration flag and persists it at once.
func (s *Service) SetAllowRegistration(ctx context.Context, actor account.Actor, allow bool) (AdminSettings, error) {
	return s.Update(ctx, actor, Patch{AllowRegistration: &allow})
}

// Update applies patch. Only admins may change settings.
func (s *Service) Update(ctx context.Context, actor account.Actor, patch Patch) (AdminSettings, error) {
	if !actor.IsAdmin {
		return AdminSettings{}, ErrForbidden
	}
	if patch.DashboardURL != nil && !strings.HasPrefix(*patch.DashboardURL, "/") {
		return AdminSettings{}, fmt.Errorf("%w: dashboard url must be an absolute path", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.Get(ctx)
	if patch.AllowRegistration != nil {
		settings.AllowRegistration = *patch.AllowRegistration
	}
	if patch.DashboardURL != nil {
		settings.DashboardURL = *patch.DashboardURL
	}

	if err := s.save(ctx, settings); err != nil {
		return AdminSettings{}, err
	}
	s.logger.Info("settings updated", "by", actor.UserID,
		"allow_registration", settings.AllowRegistration, "dashboard_url", settings.DashboardURL)
	return settings, nil
}

// MarkSetupCompleted records that an admin account exists.
func (s *Service) MarkSetupCompleted(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.Get(ctx)
	if settings.SetupCompleted {
		return nil
	}
	settings.SetupCompleted = true
	return s.save(ctx, settings)
}

func (s *Service) save(ctx context.Context, settings AdminSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := s.store.Put(ctx, Key, data); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	if s.events != nil {
		s.events.Publish(notify.TopicSettings, "changed", Key)
	}
	return nil
}
