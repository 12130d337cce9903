package session

import (
	"context"

	"github.com/rpggio/inkwell/internal/domain/account"
)

// KVStore is the slice of the key-value substrate sessions need.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Accounts is what sessions need from the account service.
type Accounts interface {
	Register(ctx context.Context, username, password string) (*account.User, error)
	SetupAdmin(ctx context.Context, username, password string) (*account.User, error)
	Authenticate(ctx context.Context, username, password string) (*account.User, error)
	Get(ctx context.Context, id string) (*account.User, error)
}

// Recorder receives sign-in outcomes.
type Recorder interface {
	RecordLogin(success bool)
	RecordRegistration(success bool)
}
