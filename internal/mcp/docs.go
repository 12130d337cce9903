package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `inkwell stores one novel per user: a Project with an ordered list of Markdown Chapters.

Core concepts:
- Session: who you are. anonymous (nothing allowed), guest (read-only browsing) or authenticated (you own and edit your project).
- Project: title + chapters + last_saved. Every edit replaces the whole stored project; the last save wins.
- Chapter: id, title, Markdown content, created_at/updated_at (Unix ms). updated_at strictly increases on edits.

Default workflow:
1) start_session, then login / register / continue_as_guest. On a fresh install, setup_admin creates the first admin.
2) open_project to load your project (created on first open) or someone else's (read-only, via owner_id).
3) add_chapter / update_chapter / rename_chapter / delete_chapter / set_project_title. Edits save immediately.
4) export_project for a Markdown file; preview_chapter for rendered HTML; project_stats for counts.
5) wait_for_change to learn about edits made from another window instead of polling open_project.

Transport notes:
- HTTP: the session id is the Inkwell-Session-Id header, else the Mcp-Session-Id header.
- Stdio: pass _meta.session_id or a session_id argument; otherwise the shared "local" session is used.

Docs:
- inkwell://docs/index
- inkwell://docs/concepts
- inkwell://docs/workflows/editing
- inkwell://docs/workflows/admin
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "inkwell://docs/index",
		Name:        "docs_index",
		Title:       "inkwell docs index",
		Description: "Entry point: what the tools do and which doc to read next.",
		Content: `# inkwell: Docs Index

## Quick start

1. ` + "`start_session`" + `, then ` + "`login`" + ` or ` + "`register`" + ` (or ` + "`continue_as_guest`" + ` to browse).
2. ` + "`open_project`" + ` to load your novel.
3. Edit with ` + "`add_chapter`" + `, ` + "`update_chapter`" + `, ` + "`rename_chapter`" + `, ` + "`delete_chapter`" + `.
4. ` + "`export_project`" + ` when you want the whole book as Markdown.

## Docs

- ` + "`inkwell://docs/concepts`" + `: sessions, ownership, saving.
- ` + "`inkwell://docs/workflows/editing`" + `: the editing loop and multi-window sync.
- ` + "`inkwell://docs/workflows/admin`" + `: first-run setup, registration, user management.

## Limitations

- Concurrent edits from two windows are not merged. Whichever save lands last wins.
- Sessions do not expire.
`,
	},
	{
		URI:         "inkwell://docs/concepts",
		Name:        "docs_concepts",
		Title:       "Concepts",
		Description: "Sessions, ownership and how projects are stored.",
		Content: `# Concepts

## Sessions

| State | Can read | Can edit |
|---|---|---|
| anonymous | no | no |
| guest | any existing project | no |
| authenticated | any existing project | own project only |

` + "`login`" + ` clears guest mode. ` + "`logout`" + ` returns to anonymous. Deleting a user signs their sessions out.

## Projects

- One project per user. The owner's first ` + "`open_project`" + ` creates it.
- Chapter operations on an unknown chapter id report CHAPTER_NOT_FOUND, except ` + "`delete_chapter`" + `, which is idempotent.
- Blank titles are rejected.
- ` + "`save_project`" + ` is only needed to bump last_saved; every edit is already stored.

## Export format

` + "```" + `
# <project title>

## <chapter title>

<chapter content>

` + "```" + `
`,
	},
	{
		URI:         "inkwell://docs/workflows/editing",
		Name:        "docs_workflow_editing",
		Title:       "Workflow: editing",
		Description: "Editing chapters and keeping several windows in sync.",
		Content: `# Workflow: editing

1. ` + "`open_project`" + ` and keep the chapter ids from the response.
2. ` + "`update_chapter`" + ` sends the full new content; there are no partial patches.
3. After each edit the response carries the whole project. Use it instead of re-opening.

## Keeping windows in sync

Call ` + "`wait_for_change`" + ` (topic ` + "`project`" + `) in a loop. It returns as soon as the project changes, or with changed=false after the timeout. On a change, call ` + "`open_project`" + ` again.

Edits made by another process sharing the same database are picked up by the server's poller within a few seconds.
`,
	},
	{
		URI:         "inkwell://docs/workflows/admin",
		Name:        "docs_workflow_admin",
		Title:       "Workflow: administration",
		Description: "First-run setup, the registration switch and user management.",
		Content: `# Workflow: administration

## First run

` + "`whoami`" + ` reports settings.setup_completed=false until an admin exists. Call ` + "`setup_admin`" + ` once; afterwards it fails with SETUP_COMPLETED.

## Registration

Registration is open by default. Admins toggle it with ` + "`set_allow_registration`" + `. The change is stored immediately and announced on the ` + "`settings`" + ` topic.

## Users

` + "`list_users`" + ` and ` + "`delete_user`" + ` require admin rights. The last admin cannot be deleted.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
