// Package dbtest provides migrated in-memory SQLite databases for tests.
package dbtest

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/infrastructure/database"
)

// New returns a fresh, fully migrated database that is closed when the test ends.
func New(t testing.TB) *database.DB {
	t.Helper()

	raw, err := sqlx.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	raw.SetMaxOpenConns(1)
	raw.SetMaxIdleConns(1)
	raw.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = raw.Close() })

	db := database.Wrap(raw)
	require.NoError(t, database.Migrate(db))
	return db
}
