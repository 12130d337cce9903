package novel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"unicode/utf8"

	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/notify"
)

// Operation names reported to the Recorder and published as event kinds.
const (
	OpCreate        = "project_created"
	OpSetTitle      = "project_renamed"
	OpSave          = "project_saved"
	OpAddChapter    = "chapter_added"
	OpUpdateChapter = "chapter_updated"
	OpRenameChapter = "chapter_renamed"
	OpDeleteChapter = "chapter_deleted"
)

// Service applies store operations to persisted projects on behalf of a
// caller. Each write replaces the whole stored project; the last save wins.
type Service struct {
	store    *Store
	repo     Repository
	renderer Renderer
	events   Publisher
	recorder Recorder
	logger   *slog.Logger

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewService creates a new project service.
func NewService(store *Store, repo Repository, renderer Renderer, events Publisher, recorder Recorder, logger *slog.Logger) *Service {
	if store == nil {
		store = NewStore(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		repo:     repo,
		renderer: renderer,
		events:   events,
		recorder: recorder,
		logger:   logger,
	}
}

// Open returns the project of ownerID (the caller's own when empty). The
// owner's project is created and saved on first open; anyone else gets a
// read-only view of an existing project.
func (s *Service) Open(ctx context.Context, actor account.Actor, ownerID string) (*Document, error) {
	ownerID, err := resolveOwner(actor, ownerID)
	if err != nil {
		return nil, err
	}

	if !actor.Owns(ownerID) {
		p, err := s.repo.Fetch(ctx, ProjectKey(ownerID))
		if err != nil {
			if errors.Is(err, ErrProjectNotFound) && s.recorder != nil {
				s.recorder.RecordLoadMiss()
			}
			return nil, err
		}
		return &Document{OwnerID: ownerID, Project: p, ReadOnly: true}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, created, err := s.loadOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if created {
		if err := s.persist(ctx, ownerID, OpCreate, p); err != nil {
			return nil, err
		}
		s.logger.Info("project created", "owner_id", ownerID)
	}
	return &Document{OwnerID: ownerID, Project: p}, nil
}

// SetTitle renames the caller's project.
func (s *Service) SetTitle(ctx context.Context, actor account.Actor, title string) (*Document, error) {
	if isBlank(title) {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := requireUTF8("title", title); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, OpSetTitle, func(p Project) (Project, error) {
		return s.store.SetTitle(p, title), nil
	})
}

// AddChapter appends a chapter to the caller's project.
func (s *Service) AddChapter(ctx context.Context, actor account.Actor, title string) (*Document, *Chapter, error) {
	if isBlank(title) {
		return nil, nil, fmt.Errorf("%w: chapter title is required", ErrInvalidInput)
	}
	if err := requireUTF8("chapter title", title); err != nil {
		return nil, nil, err
	}

	var added Chapter
	doc, err := s.mutate(ctx, actor, OpAddChapter, func(p Project) (Project, error) {
		next, ch, ok := s.store.AddChapter(p, title)
		if !ok {
			return p, fmt.Errorf("%w: chapter could not be added", ErrInvalidInput)
		}
		added = ch
		return next, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, &added, nil
}

// UpdateChapterContent replaces a chapter's content.
func (s *Service) UpdateChapterContent(ctx context.Context, actor account.Actor, chapterID, content string) (*Document, error) {
	if err := requireUTF8("content", content); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, OpUpdateChapter, func(p Project) (Project, error) {
		if _, ok := FindChapter(p, chapterID); !ok {
			return p, ErrChapterNotFound
		}
		return s.store.UpdateChapterContent(p, chapterID, content), nil
	})
}

// RenameChapter retitles a chapter.
func (s *Service) RenameChapter(ctx context.Context, actor account.Actor, chapterID, title string) (*Document, error) {
	if isBlank(title) {
		return nil, fmt.Errorf("%w: chapter title is required", ErrInvalidInput)
	}
	if err := requireUTF8("chapter title", title); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, OpRenameChapter, func(p Project) (Project, error) {
		if _, ok := FindChapter(p, chapterID); !ok {
			return p, ErrChapterNotFound
		}
		return s.store.RenameChapter(p, chapterID, title), nil
	})
}

// DeleteChapter removes a chapter. Deleting an absent chapter succeeds
// without writing anything.
func (s *Service) DeleteChapter(ctx context.Context, actor account.Actor, chapterID string) (*Document, error) {
	return s.mutate(ctx, actor, OpDeleteChapter, func(p Project) (Project, error) {
		return s.store.DeleteChapter(p, chapterID), nil
	})
}

// Save stores the caller's project again and bumps LastSaved.
func (s *Service) Save(ctx context.Context, actor account.Actor) (*Document, error) {
	return s.mutate(ctx, actor, OpSave, func(p Project) (Project, error) {
		return s.store.Touch(p), nil
	})
}

// Export renders ownerID's project as Markdown.
func (s *Service) Export(ctx context.Context, actor account.Actor, ownerID string) (Export, error) {
	doc, err := s.view(ctx, actor, ownerID)
	if err != nil {
		return Export{}, err
	}
	return BuildExport(doc.Project), nil
}

// Preview renders one chapter to sanitized HTML.
func (s *Service) Preview(ctx context.Context, actor account.Actor, ownerID, chapterID string) (Preview, error) {
	doc, err := s.view(ctx, actor, ownerID)
	if err != nil {
		return Preview{}, err
	}
	ch, ok := FindChapter(doc.Project, chapterID)
	if !ok {
		return Preview{}, ErrChapterNotFound
	}

	html := ""
	if s.renderer != nil {
		html, err = s.renderer.HTML(ch.Content)
		if err != nil {
			return Preview{}, fmt.Errorf("rendering chapter %s: %w", chapterID, err)
		}
	}
	return Preview{
		ChapterID:  ch.ID,
		Title:      ch.Title,
		HTML:       html,
		Characters: CharacterCount(ch.Content),
	}, nil
}

// Stats counts chapters and characters of ownerID's project.
func (s *Service) Stats(ctx context.Context, actor account.Actor, ownerID string) (Stats, error) {
	doc, err := s.view(ctx, actor, ownerID)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(doc.Project), nil
}

// view is a read that never writes: an owner without a stored project
// sees a fresh empty one.
func (s *Service) view(ctx context.Context, actor account.Actor, ownerID string) (*Document, error) {
	ownerID, err := resolveOwner(actor, ownerID)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Fetch(ctx, ProjectKey(ownerID))
	switch {
	case err == nil:
	case errors.Is(err, ErrProjectNotFound) && actor.Owns(ownerID):
		p = s.store.Create("")
	default:
		return nil, err
	}
	return &Document{OwnerID: ownerID, Project: p, ReadOnly: !actor.Owns(ownerID)}, nil
}

func (s *Service) mutate(ctx context.Context, actor account.Actor, op string, fn func(Project) (Project, error)) (*Document, error) {
	if !actor.Authenticated() {
		if actor.CanBrowse() {
			return nil, ErrReadOnly
		}
		return nil, ErrAuthRequired
	}
	ownerID := actor.UserID

	s.mu.Lock()
	defer s.mu.Unlock()

	p, created, err := s.loadOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	next, err := fn(p)
	if err != nil {
		return nil, err
	}

	changed := created || !reflect.DeepEqual(next, p)
	if s.recorder != nil {
		s.recorder.RecordChapterOp(op, changed)
	}
	if !changed {
		return &Document{OwnerID: ownerID, Project: p}, nil
	}

	if err := s.persist(ctx, ownerID, op, next); err != nil {
		return nil, err
	}
	s.logger.Debug("project updated", "owner_id", ownerID, "op", op)
	return &Document{OwnerID: ownerID, Project: next}, nil
}

// loadOrCreate reads the owner's project. Only a missing or unparsable
// value starts a new one; read failures are returned so an outage cannot
// overwrite existing work.
func (s *Service) loadOrCreate(ctx context.Context, ownerID string) (Project, bool, error) {
	p, err := s.repo.Fetch(ctx, ProjectKey(ownerID))
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrProjectNotFound) {
		return Project{}, false, err
	}
	if s.recorder != nil {
		s.recorder.RecordLoadMiss()
	}
	return s.store.Create(""), true, nil
}

func (s *Service) persist(ctx context.Context, ownerID, op string, p Project) error {
	key := ProjectKey(ownerID)
	err := s.repo.Save(ctx, key, p)
	if s.recorder != nil {
		s.recorder.RecordSave(err)
	}
	if err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish(notify.ProjectTopic(ownerID), op, key)
	}
	return nil
}

func resolveOwner(actor account.Actor, ownerID string) (string, error) {
	if !actor.CanBrowse() {
		return "", ErrAuthRequired
	}
	if ownerID == "" {
		ownerID = actor.UserID
	}
	if ownerID == "" {
		return "", fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	return ownerID, nil
}

// requireUTF8 rejects text that JSON encoding would silently rewrite.
func requireUTF8(field, text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidInput, field)
	}
	return nil
}
