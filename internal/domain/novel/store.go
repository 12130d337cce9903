package novel

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Clock returns the current time in Unix milliseconds.
type Clock func() int64

// IDGenerator returns a fresh chapter identifier.
type IDGenerator func() string

// The functions below never modify their input. A call that matches nothing
// returns the input project as-is, LastSaved included.

// NewProject returns an empty project.
func NewProject(title string, now int64) Project {
	if isBlank(title) {
		title = DefaultTitle
	}
	return Project{
		Title:     title,
		Chapters:  []Chapter{},
		LastSaved: now,
	}
}

// AddChapter appends a chapter with empty content. Blank titles, empty ids and
// ids already present leave the project unchanged.
func AddChapter(p Project, id, title string, now int64) Project {
	if isBlank(title) || id == "" || indexOf(p.Chapters, id) >= 0 {
		return p
	}

	chapters := make([]Chapter, len(p.Chapters), len(p.Chapters)+1)
	copy(chapters, p.Chapters)
	chapters = append(chapters, Chapter{
		ID:        id,
		Title:     title,
		Content:   "",
		CreatedAt: now,
		UpdatedAt: now,
	})

	p.Chapters = chapters
	p.LastSaved = now
	return p
}

// UpdateChapterContent replaces the content of the first chapter matching id.
func UpdateChapterContent(p Project, id, content string, now int64) Project {
	idx := indexOf(p.Chapters, id)
	if idx < 0 {
		return p
	}

	chapters := cloneChapters(p.Chapters)
	chapters[idx].Content = content
	chapters[idx].UpdatedAt = advance(chapters[idx], now)

	p.Chapters = chapters
	p.LastSaved = now
	return p
}

// RenameChapter retitles the first chapter matching id. Blank titles are ignored.
func RenameChapter(p Project, id, title string, now int64) Project {
	idx := indexOf(p.Chapters, id)
	if idx < 0 || isBlank(title) {
		return p
	}

	chapters := cloneChapters(p.Chapters)
	chapters[idx].Title = title
	chapters[idx].UpdatedAt = advance(chapters[idx], now)

	p.Chapters = chapters
	p.LastSaved = now
	return p
}

// DeleteChapter removes the first chapter matching id.
func DeleteChapter(p Project, id string, now int64) Project {
	idx := indexOf(p.Chapters, id)
	if idx < 0 {
		return p
	}

	chapters := make([]Chapter, 0, len(p.Chapters)-1)
	chapters = append(chapters, p.Chapters[:idx]...)
	chapters = append(chapters, p.Chapters[idx+1:]...)

	p.Chapters = chapters
	p.LastSaved = now
	return p
}

// SetTitle renames the project. Blank titles are ignored.
func SetTitle(p Project, title string, now int64) Project {
	if isBlank(title) {
		return p
	}
	p.Chapters = cloneChapters(p.Chapters)
	p.Title = title
	p.LastSaved = now
	return p
}

// Touch marks the project as saved at now.
func Touch(p Project, now int64) Project {
	p.Chapters = cloneChapters(p.Chapters)
	p.LastSaved = now
	return p
}

// FindChapter returns the first chapter matching id.
func FindChapter(p Project, id string) (Chapter, bool) {
	idx := indexOf(p.Chapters, id)
	if idx < 0 {
		return Chapter{}, false
	}
	return p.Chapters[idx], true
}

// CharacterCount counts the characters (not bytes) of content.
func CharacterCount(content string) int {
	return utf8.RuneCountInString(content)
}

// ComputeStats summarizes chapter and character counts.
func ComputeStats(p Project) Stats {
	stats := Stats{
		Chapters:   len(p.Chapters),
		PerChapter: make(map[string]int, len(p.Chapters)),
	}
	for _, ch := range p.Chapters {
		n := CharacterCount(ch.Content)
		stats.Characters += n
		if _, seen := stats.PerChapter[ch.ID]; !seen {
			stats.PerChapter[ch.ID] = n
		}
	}
	return stats
}

// Store applies the pure operations with an injected clock and id source.
type Store struct {
	now   Clock
	newID IDGenerator
}

// NewStore creates a Store. Nil arguments fall back to wall-clock
// milliseconds and random UUIDs.
func NewStore(now Clock, newID IDGenerator) *Store {
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Store{now: now, newID: newID}
}

// Create returns an empty project.
func (s *Store) Create(title string) Project {
	return NewProject(title, s.now())
}

// AddChapter appends a chapter and reports the chapter it created.
func (s *Store) AddChapter(p Project, title string) (Project, Chapter, bool) {
	id := s.newID()
	next := AddChapter(p, id, title, s.now())
	if len(next.Chapters) == len(p.Chapters) {
		return p, Chapter{}, false
	}
	return next, next.Chapters[len(next.Chapters)-1], true
}

// UpdateChapterContent replaces a chapter's content.
func (s *Store) UpdateChapterContent(p Project, id, content string) Project {
	return UpdateChapterContent(p, id, content, s.now())
}

// RenameChapter retitles a chapter.
func (s *Store) RenameChapter(p Project, id, title string) Project {
	return RenameChapter(p, id, title, s.now())
}

// DeleteChapter removes a chapter.
func (s *Store) DeleteChapter(p Project, id string) Project {
	return DeleteChapter(p, id, s.now())
}

// SetTitle renames the project.
func (s *Store) SetTitle(p Project, title string) Project {
	return SetTitle(p, title, s.now())
}

// Touch bumps LastSaved.
func (s *Store) Touch(p Project) Project {
	return Touch(p, s.now())
}

// advance keeps UpdatedAt strictly increasing and never below CreatedAt,
// even when the clock stalls or steps backwards.
func advance(ch Chapter, now int64) int64 {
	next := now
	if next <= ch.UpdatedAt {
		next = ch.UpdatedAt + 1
	}
	if next < ch.CreatedAt {
		next = ch.CreatedAt
	}
	return next
}

func indexOf(chapters []Chapter, id string) int {
	for i, ch := range chapters {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

func cloneChapters(chapters []Chapter) []Chapter {
	if chapters == nil {
		return nil
	}
	out := make([]Chapter, len(chapters))
	copy(out, chapters)
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
