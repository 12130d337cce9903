package novel

// DefaultTitle is used when a project has no title.
const DefaultTitle = "My Novel"

// Chapter is a titled unit of Markdown content within a project.
// Timestamps are Unix milliseconds.
type Chapter struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Project is the top-level container of a user's chapters.
type Project struct {
	Title     string    `json:"title"`
	Chapters  []Chapter `json:"chapters"`
	LastSaved int64     `json:"lastSaved"`
}

// DisplayTitle returns the title, or DefaultTitle when it is blank.
func (p Project) DisplayTitle() string {
	if isBlank(p.Title) {
		return DefaultTitle
	}
	return p.Title
}

// Stats summarizes a project for display.
type Stats struct {
	Chapters   int            `json:"chapters"`
	Characters int            `json:"characters"`
	PerChapter map[string]int `json:"per_chapter"`
}

// Export is a rendered project ready to hand to a Downloader.
type Export struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
}

// Preview is a chapter rendered to sanitized HTML.
type Preview struct {
	ChapterID  string `json:"chapter_id"`
	Title      string `json:"title"`
	HTML       string `json:"html"`
	Characters int    `json:"characters"`
}

// Document is a project as seen by a particular caller.
type Document struct {
	OwnerID  string  `json:"owner_id"`
	Project  Project `json:"project"`
	ReadOnly bool    `json:"read_only"`
}
