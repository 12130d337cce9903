package settings

import "context"

// KVStore is the slice of the key-value substrate settings need.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Publisher announces that a stored value changed.
type Publisher interface {
	Publish(topic, kind, key string)
}
