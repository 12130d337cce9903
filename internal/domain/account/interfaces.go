package account

import "context"

// KVStore is the slice of the durable key-value substrate accounts need.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// RegistrationPolicy exposes the feature flags that gate account creation.
type RegistrationPolicy interface {
	RegistrationAllowed(ctx context.Context) bool
	MarkSetupCompleted(ctx context.Context) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Publisher announces that a stored value changed.
type Publisher interface {
	Publish(topic, kind, key string)
}

// DataPurger removes data owned by a deleted user.
type DataPurger interface {
	PurgeUser(ctx context.Context, userID string) error
}
