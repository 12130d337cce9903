package novel

import "context"

// KVStore is the slice of the durable key-value substrate the adapter needs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Repository persists whole projects under a key.
type Repository interface {
	Save(ctx context.Context, key string, p Project) error
	Load(ctx context.Context, key string) (Project, bool)
	Fetch(ctx context.Context, key string) (Project, error)
}

// Publisher announces that a stored value changed.
type Publisher interface {
	Publish(topic, kind, key string)
}

// Renderer turns Markdown into display-safe HTML.
type Renderer interface {
	HTML(markdown string) (string, error)
}

// Recorder receives operational counts.
type Recorder interface {
	RecordChapterOp(op string, changed bool)
	RecordSave(err error)
	RecordLoadMiss()
}
