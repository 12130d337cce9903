package novel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// MarkdownMIMEType is the MIME type of exported projects.
const MarkdownMIMEType = "text/markdown"

// ExportMarkdown renders the project as one Markdown document: the project
// title as a level-one heading, then each chapter title as a level-two
// heading followed by its raw content. Output depends only on the project.
func ExportMarkdown(p Project) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(p.DisplayTitle())
	b.WriteString("\n\n")

	for _, ch := range p.Chapters {
		b.WriteString("## ")
		b.WriteString(ch.Title)
		b.WriteString("\n\n")
		b.WriteString(ch.Content)
		b.WriteString("\n\n")
	}

	return b.String()
}

// ExportFilename returns "<title>.md" with characters that are unsafe in a
// file name replaced by underscores.
func ExportFilename(p Project) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '"' || r == '*' || r == '?' || r == '<' || r == '>' || r == '|':
			return '_'
		case r < 0x20 || r == 0x7f:
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(p.DisplayTitle()))

	if name == "" || name == "." || name == ".." {
		name = DefaultTitle
	}
	return name + ".md"
}

// BuildExport renders the project with its download metadata.
func BuildExport(p Project) Export {
	return Export{
		Text:     ExportMarkdown(p),
		Filename: ExportFilename(p),
		MIMEType: MarkdownMIMEType,
	}
}

// Downloader hands exported text to the host's file-save mechanism.
type Downloader interface {
	Download(ctx context.Context, text, filename, mimeType string) error
}

// TriggerDownload passes the export to d. It is best-effort: failures are
// logged and not reported back, and nothing is retried.
func TriggerDownload(ctx context.Context, d Downloader, exp Export, logger *slog.Logger) {
	if d == nil {
		return
	}
	if err := d.Download(ctx, exp.Text, exp.Filename, exp.MIMEType); err != nil && logger != nil {
		logger.Warn("export download failed", "filename", exp.Filename, "error", err)
	}
}

// FileDownloader saves exports into a directory on disk.
type FileDownloader struct {
	Dir string
}

// Download writes text to Dir/filename, replacing any previous export.
func (d FileDownloader) Download(_ context.Context, text, filename, _ string) error {
	if d.Dir == "" {
		return fmt.Errorf("export directory not configured")
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	target := filepath.Join(d.Dir, filepath.Base(filename))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing export: %w", err)
	}
	return nil
}

// Path reports where an export with filename is written.
func (d FileDownloader) Path(filename string) string {
	return filepath.Join(d.Dir, filepath.Base(filename))
}
