package repository

import "context"

// KVStore is the durable key-value substrate. Every Put is a full overwrite
// of the value under key; there are no partial updates and no transactions.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
