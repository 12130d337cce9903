package novel_test

import (
	"fmt"
	"testing"

	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/stretchr/testify/require"
)

// fixedStore returns a Store whose clock advances by one millisecond per
// call and whose ids are sequential.
func fixedStore(start int64) *novel.Store {
	now := start
	n := 0
	return novel.NewStore(
		func() int64 { now++; return now },
		func() string { n++; return fmt.Sprintf("ch-%d", n) },
	)
}

func sampleProject() novel.Project {
	p := novel.NewProject("Demo", 100)
	p = novel.AddChapter(p, "a", "One", 101)
	p = novel.AddChapter(p, "b", "Two", 102)
	p = novel.AddChapter(p, "c", "Three", 103)
	return p
}

func TestNewProject(t *testing.T) {
	p := novel.NewProject("", 42)
	require.Equal(t, novel.DefaultTitle, p.Title)
	require.Empty(t, p.Chapters)
	require.NotNil(t, p.Chapters)
	require.Equal(t, int64(42), p.LastSaved)

	p = novel.NewProject("Demo", 42)
	require.Equal(t, "Demo", p.Title)
}

func TestAddChapter_AppendsWithEmptyContent(t *testing.T) {
	p := novel.NewProject("Demo", 1)
	next := novel.AddChapter(p, "id-1", "Ch1", 5)

	require.Len(t, next.Chapters, 1)
	require.Equal(t, novel.Chapter{ID: "id-1", Title: "Ch1", Content: "", CreatedAt: 5, UpdatedAt: 5}, next.Chapters[0])
	require.Equal(t, int64(5), next.LastSaved)
	require.Empty(t, p.Chapters, "input must not change")
}

func TestAddChapter_RejectsBlankTitle(t *testing.T) {
	p := sampleProject()
	for _, title := range []string{"", " ", "\t\n"} {
		require.Equal(t, p, novel.AddChapter(p, "new", title, 500))
	}
}

func TestAddChapter_RejectsDuplicateID(t *testing.T) {
	p := sampleProject()
	require.Equal(t, p, novel.AddChapter(p, "b", "Again", 500))
}

func TestAddChapter_IDsUnique(t *testing.T) {
	s := fixedStore(0)
	p := s.Create("Demo")
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		var ch novel.Chapter
		var ok bool
		p, ch, ok = s.AddChapter(p, fmt.Sprintf("Chapter %d", i))
		require.True(t, ok)
		require.False(t, seen[ch.ID])
		seen[ch.ID] = true
	}
	require.Len(t, p.Chapters, 20)
}

func TestUpdateChapterContent_TouchesOnlyTarget(t *testing.T) {
	p := sampleProject()
	next := novel.UpdateChapterContent(p, "b", "Hello", 200)

	require.Equal(t, p.Chapters[0], next.Chapters[0])
	require.Equal(t, p.Chapters[2], next.Chapters[2])

	require.Equal(t, "Hello", next.Chapters[1].Content)
	require.Equal(t, p.Chapters[1].ID, next.Chapters[1].ID)
	require.Equal(t, p.Chapters[1].Title, next.Chapters[1].Title)
	require.Equal(t, p.Chapters[1].CreatedAt, next.Chapters[1].CreatedAt)
	require.Greater(t, next.Chapters[1].UpdatedAt, p.Chapters[1].UpdatedAt)
	require.Equal(t, int64(200), next.LastSaved)

	require.Equal(t, "", p.Chapters[1].Content, "input must not change")
}

func TestUpdateChapterContent_UpdatedAtStrictlyIncreasesWithStalledClock(t *testing.T) {
	p := novel.AddChapter(novel.NewProject("Demo", 10), "a", "One", 10)

	next := novel.UpdateChapterContent(p, "a", "x", 10)
	require.Greater(t, next.Chapters[0].UpdatedAt, p.Chapters[0].UpdatedAt)

	again := novel.UpdateChapterContent(next, "a", "y", 5)
	require.Greater(t, again.Chapters[0].UpdatedAt, next.Chapters[0].UpdatedAt)
	require.GreaterOrEqual(t, again.Chapters[0].UpdatedAt, again.Chapters[0].CreatedAt)
}

func TestRenameChapter(t *testing.T) {
	p := novel.UpdateChapterContent(sampleProject(), "a", "body", 150)
	next := novel.RenameChapter(p, "a", "Intro", 200)

	require.Equal(t, "Intro", next.Chapters[0].Title)
	require.Equal(t, "body", next.Chapters[0].Content)
	require.Equal(t, p.Chapters[1:], next.Chapters[1:])

	require.Equal(t, p, novel.RenameChapter(p, "a", "   ", 300))
}

func TestDeleteChapter(t *testing.T) {
	p := sampleProject()
	next := novel.DeleteChapter(p, "b", 200)

	require.Len(t, next.Chapters, 2)
	require.Equal(t, []novel.Chapter{p.Chapters[0], p.Chapters[2]}, next.Chapters)
	require.Len(t, p.Chapters, 3, "input must not change")
}

func TestDeleteChapter_TwiceIsSafe(t *testing.T) {
	p := sampleProject()
	once := novel.DeleteChapter(p, "b", 200)
	twice := novel.DeleteChapter(once, "b", 300)
	require.Equal(t, once, twice)
}

func TestNoOpLaw_AbsentChapter(t *testing.T) {
	p := sampleProject()

	require.Equal(t, p, novel.UpdateChapterContent(p, "missing", "x", 999))
	require.Equal(t, p, novel.RenameChapter(p, "missing", "x", 999))
	require.Equal(t, p, novel.DeleteChapter(p, "missing", 999))
}

func TestDuplicateIDs_FirstMatchOnly(t *testing.T) {
	p := novel.Project{
		Title: "Dup",
		Chapters: []novel.Chapter{
			{ID: "x", Title: "First", CreatedAt: 1, UpdatedAt: 1},
			{ID: "x", Title: "Second", CreatedAt: 1, UpdatedAt: 1},
		},
	}

	updated := novel.UpdateChapterContent(p, "x", "hi", 10)
	require.Equal(t, "hi", updated.Chapters[0].Content)
	require.Equal(t, p.Chapters[1], updated.Chapters[1])

	deleted := novel.DeleteChapter(p, "x", 10)
	require.Equal(t, []novel.Chapter{p.Chapters[1]}, deleted.Chapters)
}

func TestSetTitleAndTouch(t *testing.T) {
	p := sampleProject()

	renamed := novel.SetTitle(p, "Saga", 500)
	require.Equal(t, "Saga", renamed.Title)
	require.Equal(t, int64(500), renamed.LastSaved)
	require.Equal(t, p, novel.SetTitle(p, " ", 600))

	touched := novel.Touch(p, 700)
	require.Equal(t, int64(700), touched.LastSaved)
	require.Equal(t, p.Chapters, touched.Chapters)
}

func TestStats(t *testing.T) {
	p := novel.UpdateChapterContent(sampleProject(), "a", "héllo", 200)
	p = novel.UpdateChapterContent(p, "b", "你好", 201)

	stats := novel.ComputeStats(p)
	require.Equal(t, 3, stats.Chapters)
	require.Equal(t, 7, stats.Characters)
	require.Equal(t, 5, stats.PerChapter["a"])
	require.Equal(t, 2, stats.PerChapter["b"])
	require.Equal(t, 0, stats.PerChapter["c"])
}

func TestScenario_DemoChapterLifecycle(t *testing.T) {
	s := fixedStore(1000)

	p := s.Create("Demo")
	p, ch, ok := s.AddChapter(p, "Ch1")
	require.True(t, ok)
	require.Len(t, p.Chapters, 1)
	require.Equal(t, "Ch1", p.Chapters[0].Title)
	require.Equal(t, "", p.Chapters[0].Content)

	before := p.Chapters[0].UpdatedAt
	p = s.UpdateChapterContent(p, ch.ID, "Hello")
	require.Equal(t, "Hello", p.Chapters[0].Content)
	require.Greater(t, p.Chapters[0].UpdatedAt, before)

	p = s.RenameChapter(p, ch.ID, "Intro")
	require.Equal(t, "Intro", p.Chapters[0].Title)
	require.Equal(t, "Hello", p.Chapters[0].Content)

	p = s.DeleteChapter(p, ch.ID)
	require.Empty(t, p.Chapters)
}

func TestStore_AddChapterBlankTitle(t *testing.T) {
	s := fixedStore(0)
	p := s.Create("Demo")
	next, _, ok := s.AddChapter(p, "  ")
	require.False(t, ok)
	require.Equal(t, p, next)
}
