package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Queries are written with ? placeholders and rebound for the active driver.

func getx(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
}

func selectx(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

func execx(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (sql.Result, error) {
	return q.ExecContext(ctx, q.Rebind(query), args...)
}

// selectIn expands slice arguments with sqlx.In before selecting.
func selectIn(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	expanded, params, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(expanded), params...)
}

// execAffected runs query and returns notFound when no row changed.
func execAffected(ctx context.Context, q sqlx.ExtContext, notFound error, query string, args ...interface{}) error {
	result, err := execx(ctx, q, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type positioned struct {
	ID       uuid.UUID `db:"id"`
	Position int       `db:"position"`
}

// applyOrder writes dense positions for order into table, skipping rows
// whose stored position already matches.
func applyOrder(ctx context.Context, tx sqlx.ExtContext, table string, order []uuid.UUID, current map[uuid.UUID]int) error {
	query := fmt.Sprintf(`UPDATE %s SET position = ? WHERE id = ?`, table)
	for i, id := range order {
		if pos, ok := current[id]; ok && pos == i {
			continue
		}
		if _, err := execx(ctx, tx, query, i, id); err != nil {
			return fmt.Errorf("renumber %s: %w", table, err)
		}
	}
	return nil
}

func splitPositioned(rows []positioned) ([]uuid.UUID, map[uuid.UUID]int) {
	order := make([]uuid.UUID, len(rows))
	current := make(map[uuid.UUID]int, len(rows))
	for i, row := range rows {
		order[i] = row.ID
		current[row.ID] = row.Position
	}
	return order, current
}

// compactCards renumbers the cards of a column to 0..n-1 keeping their order.
func compactCards(ctx context.Context, tx sqlx.ExtContext, columnID uuid.UUID) error {
	var rows []positioned
	if err := selectx(ctx, tx, &rows,
		`SELECT id, position FROM cards WHERE column_id = ? ORDER BY position, created_at, id`, columnID); err != nil {
		return fmt.Errorf("load column cards: %w", err)
	}
	order, current := splitPositioned(rows)
	return applyOrder(ctx, tx, "cards", order, current)
}

// compactColumns renumbers the columns of a board to 0..n-1 keeping their order.
func compactColumns(ctx context.Context, tx sqlx.ExtContext, boardID uuid.UUID) error {
	var rows []positioned
	if err := selectx(ctx, tx, &rows,
		`SELECT id, position FROM board_columns WHERE board_id = ? ORDER BY position, id`, boardID); err != nil {
		return fmt.Errorf("load board columns: %w", err)
	}
	order, current := splitPositioned(rows)
	return applyOrder(ctx, tx, "board_columns", order, current)
}
