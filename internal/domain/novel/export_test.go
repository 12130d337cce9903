package novel_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/stretchr/testify/require"
)

func TestExportMarkdown_Format(t *testing.T) {
	p := novel.Project{
		Title: "Demo",
		Chapters: []novel.Chapter{
			{ID: "a", Title: "Ch1", Content: "Hello"},
			{ID: "b", Title: "Ch2", Content: "World"},
		},
	}
	require.Equal(t, "# Demo\n\n## Ch1\n\nHello\n\n## Ch2\n\nWorld\n\n", novel.ExportMarkdown(p))
}

func TestExportMarkdown_EmptyProject(t *testing.T) {
	require.Equal(t, "# My Novel\n\n", novel.ExportMarkdown(novel.Project{}))
	require.Equal(t, "# Demo\n\n", novel.ExportMarkdown(novel.NewProject("Demo", 1)))
}

func TestExportMarkdown_Deterministic(t *testing.T) {
	p := sampleProject()
	p = novel.UpdateChapterContent(p, "a", "# not escaped", 200)
	require.Equal(t, novel.ExportMarkdown(p), novel.ExportMarkdown(p))

	// Timestamps are not part of the output.
	require.Equal(t, novel.ExportMarkdown(p), novel.ExportMarkdown(novel.Touch(p, 9999)))
}

func TestExportFilename(t *testing.T) {
	require.Equal(t, "Demo.md", novel.ExportFilename(novel.Project{Title: "Demo"}))
	require.Equal(t, "My Novel.md", novel.ExportFilename(novel.Project{}))
	require.Equal(t, "a_b_c.md", novel.ExportFilename(novel.Project{Title: "a/b:c"}))
	require.Equal(t, "My Novel.md", novel.ExportFilename(novel.Project{Title: ".."}))
}

func TestBuildExport(t *testing.T) {
	exp := novel.BuildExport(novel.Project{Title: "Demo"})
	require.Equal(t, "text/markdown", exp.MIMEType)
	require.Equal(t, "Demo.md", exp.Filename)
	require.Equal(t, "# Demo\n\n", exp.Text)
}

func TestFileDownloader(t *testing.T) {
	dir := t.TempDir()
	d := novel.FileDownloader{Dir: filepath.Join(dir, "exports")}

	require.NoError(t, d.Download(context.Background(), "first", "Demo.md", novel.MarkdownMIMEType))
	require.NoError(t, d.Download(context.Background(), "second", "Demo.md", novel.MarkdownMIMEType))

	data, err := os.ReadFile(d.Path("Demo.md"))
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	_, err = os.Stat(d.Path("Demo.md") + ".tmp")
	require.True(t, os.IsNotExist(err))
}

type failingDownloader struct{ calls int }

func (f *failingDownloader) Download(context.Context, string, string, string) error {
	f.calls++
	return errors.New("no disk")
}

func TestTriggerDownload_BestEffort(t *testing.T) {
	d := &failingDownloader{}
	novel.TriggerDownload(context.Background(), d, novel.BuildExport(novel.Project{}), nil)
	require.Equal(t, 1, d.calls)

	novel.TriggerDownload(context.Background(), nil, novel.BuildExport(novel.Project{}), nil)
}
