package novel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/inkwell/internal/repository"
)

// GlobalProjectKey stores the single shared project when no user is known.
const GlobalProjectKey = "novel-writer-data"

// ProjectKeyPrefix prefixes every per-user project key.
const ProjectKeyPrefix = GlobalProjectKey + ":"

// ProjectKey returns the storage key for a user's project.
func ProjectKey(userID string) string {
	if userID == "" {
		return GlobalProjectKey
	}
	return ProjectKeyPrefix + userID
}

// KVRepository stores projects as JSON documents in a KVStore.
type KVRepository struct {
	store  KVStore
	logger *slog.Logger
}

// NewKVRepository creates a new KVRepository.
func NewKVRepository(store KVStore, logger *slog.Logger) *KVRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &KVRepository{store: store, logger: logger}
}

// Save overwrites whatever is stored under key. There is no version check:
// the last save wins. Projects holding invalid UTF-8 are refused, since
// encoding would replace those bytes and the loaded project would differ.
func (r *KVRepository) Save(ctx context.Context, key string, p Project) error {
	if err := validateText(p); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding project: %w", err)
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	return nil
}

// Load returns the project under key. A missing key, a read failure and an
// unparsable value all come back as not found.
func (r *KVRepository) Load(ctx context.Context, key string) (Project, bool) {
	p, err := r.Fetch(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrProjectNotFound) {
			r.logger.Warn("project load failed", "key", key, "error", err)
		}
		return Project{}, false
	}
	return p, true
}

// Fetch is Load for callers that must not mistake a storage outage for a
// first run: missing and unparsable values yield ErrProjectNotFound, other
// read failures are returned as-is.
func (r *KVRepository) Fetch(ctx context.Context, key string) (Project, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Project{}, ErrProjectNotFound
		}
		return Project{}, fmt.Errorf("reading project: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn("discarding unparsable project", "key", key, "error", err)
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

// PurgeUser deletes userID's project. A user without one is not an error.
func (r *KVRepository) PurgeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	err := r.store.Delete(ctx, ProjectKey(userID))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

func validateText(p Project) error {
	if err := requireUTF8("title", p.Title); err != nil {
		return err
	}
	for _, ch := range p.Chapters {
		if err := requireUTF8("chapter title", ch.Title); err != nil {
			return err
		}
		if err := requireUTF8("content of chapter "+ch.ID, ch.Content); err != nil {
			return err
		}
	}
	return nil
}
