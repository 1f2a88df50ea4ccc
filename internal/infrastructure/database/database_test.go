package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/infrastructure/database"
	"github.com/plannerhq/planner/internal/infrastructure/database/dbtest"
)

func TestMigrationsCreateSchema(t *testing.T) {
	db := dbtest.New(t)

	var names []string
	require.NoError(t, db.DB.Select(&names, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))
	for _, table := range []string{"users", "departments", "boards", "board_members", "board_columns", "cards", "card_assignees", "labels", "comments", "mentions", "attachments"} {
		assert.Contains(t, names, table)
	}

	mg, err := database.NewMigrator(db)
	require.NoError(t, err)
	v, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO departments (id, name, position) VALUES ('d1', 'Ventas', 0)`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.DB.Get(&count, `SELECT COUNT(*) FROM departments`))
	assert.Zero(t, count)
}

func TestWithTransactionCommits(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO departments (id, name, position) VALUES (?, ?, ?)`), "d1", "Ventas", 0)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.DB.Get(&count, `SELECT COUNT(*) FROM departments`))
	assert.Equal(t, 1, count)
	assert.NoError(t, db.HealthCheck(ctx))
	assert.Equal(t, "sqlite", db.GetConnectionInfo()["driver"])
}
