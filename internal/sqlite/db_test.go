package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", "kv").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count, "table kv not found")
}

// TestMigrations_Idempotent verifies the schema can be applied on every start
func TestMigrations_Idempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())
}

// TestKVTable verifies the primary key rejects duplicate raw inserts
func TestKVTable(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO kv (key, value) VALUES (?, ?)`, "users", "[]")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO kv (key, value) VALUES (?, ?)`, "users", "[]")
	require.Error(t, err, "should fail on duplicate key")
}
