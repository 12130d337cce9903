package mcp

// ToolDefinition describes a callable tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var sessionIDProperty = map[string]any{
	"type":        "string",
	"description": "Session ID when the transport does not carry one",
}

// buildToolCatalog returns all available MCP tools.
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Session
		{
			Name:        "start_session",
			Description: "Start a new anonymous session and return its id",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "continue_as_guest",
			Description: "Switch the session to read-only guest browsing",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty,
				},
			},
		},
		{
			Name:        "register",
			Description: "Create an account and sign the session in with it",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"username": map[string]any{
						"type":        "string",
						"description": "At least 3 characters",
					},
					"password": map[string]any{
						"type":        "string",
						"description": "At least 6 characters",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"username", "password"},
			},
		},
		{
			Name:        "setup_admin",
			Description: "Create the first admin account (only while none exists) and sign in",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"username": map[string]any{
						"type":        "string",
						"description": "At least 3 characters",
					},
					"password": map[string]any{
						"type":        "string",
						"description": "At least 6 characters",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"username", "password"},
			},
		},
		{
			Name:        "login",
			Description: "Sign the session in; clears guest mode",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"username": map[string]any{
						"type":        "string",
						"description": "Account username",
					},
					"password": map[string]any{
						"type":        "string",
						"description": "Account password",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"username", "password"},
			},
		},
		{
			Name:        "logout",
			Description: "Return the session to anonymous",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty,
				},
			},
		},
		{
			Name:        "whoami",
			Description: "Show the session state and the registration flags",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty,
				},
			},
		},

		// Project
		{
			Name:        "open_project",
			Description: "Open a project. Your own is created on first open; others are read-only",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": map[string]any{
						"type":        "string",
						"description": "User whose project to open (omit for your own)",
					},
					"session_id": sessionIDProperty,
				},
			},
		},
		{
			Name:        "set_project_title",
			Description: "Rename your project",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "New project title",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "save_project",
			Description: "Save your project now and bump its last-saved time",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty,
				},
			},
		},
		{
			Name:        "export_project",
			Description: "Export a project as one Markdown document",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": map[string]any{
						"type":        "string",
						"description": "User whose project to export (omit for your own)",
					},
					"session_id": sessionIDProperty,
				},
			},
		},
		{
			Name:        "project_stats",
			Description: "Count chapters and characters",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": map[string]any{
						"type":        "string",
						"description": "User whose project to count (omit for your own)",
					},
					"session_id": sessionIDProperty,
				},
			},
		},

		// Chapters
		{
			Name:        "add_chapter",
			Description: "Append a chapter with empty content",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Chapter title",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "update_chapter",
			Description: "Replace a chapter's Markdown content",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chapter_id": map[string]any{
						"type":        "string",
						"description": "Chapter ID",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Full new Markdown content",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"chapter_id", "content"},
			},
		},
		{
			Name:        "rename_chapter",
			Description: "Change a chapter's title",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chapter_id": map[string]any{
						"type":        "string",
						"description": "Chapter ID",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "New chapter title",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"chapter_id", "title"},
			},
		},
		{
			Name:        "delete_chapter",
			Description: "Remove a chapter. Deleting an unknown id does nothing",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chapter_id": map[string]any{
						"type":        "string",
						"description": "Chapter ID",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"chapter_id"},
			},
		},
		{
			Name:        "preview_chapter",
			Description: "Render a chapter's Markdown to sanitized HTML",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": map[string]any{
						"type":        "string",
						"description": "User whose project holds the chapter (omit for your own)",
					},
					"chapter_id": map[string]any{
						"type":        "string",
						"description": "Chapter ID",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"chapter_id"},
			},
		},

		// Admin
		{
			Name:        "get_settings",
			Description: "Read the admin settings",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty,
				},
			},
		},
		{
			Name:        "set_allow_registration",
			Description: "Open or close self-registration (admin only)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"allow": map[string]any{
						"type":        "boolean",
						"description": "Whether new accounts may register",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"allow"},
			},
		},
		{
			Name:        "list_users",
			Description: "List accounts (admin only)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty,
				},
			},
		},
		{
			Name:        "delete_user",
			Description: "Delete an account (admin only; the last admin cannot be deleted)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_id": map[string]any{
						"type":        "string",
						"description": "Account ID",
					},
					"session_id": sessionIDProperty,
				},
				"required": []string{"user_id"},
			},
		},

		// Sync
		{
			Name:        "wait_for_change",
			Description: "Block until a project, settings or users change, or until the timeout",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"topic": map[string]any{
						"type":        "string",
						"description": "project, settings or users (default project)",
					},
					"owner_id": map[string]any{
						"type":        "string",
						"description": "Project owner for the project topic (omit for your own)",
					},
					"timeout_seconds": map[string]any{
						"type":        "integer",
						"description": "Seconds to wait, at most 60 (default 25)",
					},
					"session_id": sessionIDProperty,
				},
			},
		},
	}
}

var toolNames = func() map[string]struct{} {
	names := make(map[string]struct{})
	for _, tool := range buildToolCatalog() {
		names[tool.Name] = struct{}{}
	}
	return names
}()
